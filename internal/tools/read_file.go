package tools

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/vtcode-go/vtcode/internal/model"
	"github.com/vtcode-go/vtcode/internal/sandbox"
)

// ReadFileTool reads file contents, optionally restricted to a line
// range. Grounded on teacher pkg/engine/tools/read_file.go.
type ReadFileTool struct {
	BaseTool
	guard    *sandbox.Guard
	maxBytes int64
}

func NewReadFileTool(guard *sandbox.Guard) *ReadFileTool {
	return &ReadFileTool{
		BaseTool: NewBaseTool(
			"read_file",
			"Read the contents of a file. Returns the file content as text. For large files, content may be truncated.",
			[]ParamDef{
				{Name: "path", Type: "string", Description: "Path to the file to read (relative to workspace)", Required: true},
				{Name: "start_line", Type: "integer", Description: "Start line number (1-indexed, optional)"},
				{Name: "end_line", Type: "integer", Description: "End line number (1-indexed, inclusive, optional)"},
			},
			model.PolicyAllow,
			false,
		),
		guard:    guard,
		maxBytes: 500 * 1024,
	}
}

func (t *ReadFileTool) Execute(_ context.Context, args model.Args) (Result, error) {
	path := GetString(args, "path", "")
	if path == "" {
		return Failuref("path is required"), nil
	}
	startLine := GetInt(args, "start_line", 0)
	endLine := GetInt(args, "end_line", 0)

	absPath, err := t.guard.Resolve(path)
	if err != nil {
		return Failure(err), nil
	}

	info, err := os.Stat(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return Failuref("file does not exist: %s", path), nil
		}
		return Failure(err), nil
	}
	if info.IsDir() {
		return Failuref("path is a directory, not a file: %s", path), nil
	}
	if info.Size() > t.maxBytes && startLine == 0 && endLine == 0 {
		return Failuref("file is too large (%d bytes); use start_line/end_line to read a portion", info.Size()), nil
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		return Failure(err), nil
	}

	if startLine > 0 || endLine > 0 {
		lines := strings.Split(string(content), "\n")
		if startLine < 1 {
			startLine = 1
		}
		if endLine < startLine {
			endLine = len(lines)
		}
		if startLine > len(lines) {
			return Failuref("start_line (%d) exceeds file length (%d lines)", startLine, len(lines)), nil
		}
		if endLine > len(lines) {
			endLine = len(lines)
		}
		selected := lines[startLine-1 : endLine]
		var b strings.Builder
		for i, line := range selected {
			fmt.Fprintf(&b, "%4d: %s\n", startLine+i, line)
		}
		return Success(b.String()), nil
	}

	contentStr := string(content)
	if int64(len(content)) > t.maxBytes {
		contentStr = contentStr[:t.maxBytes] + "\n\n... (content truncated)"
	}
	return Success(contentStr), nil
}
