package tools

import (
	"context"
	"os"
	"path/filepath"

	"github.com/vtcode-go/vtcode/internal/model"
	"github.com/vtcode-go/vtcode/internal/sandbox"
)

// FileChangeData is the Result.Data shape every file-mutating tool
// returns on success, letting the executor feed internal/diff's Tracker
// without each tool depending on that package directly.
type FileChangeData struct {
	Path       string
	Kind       model.ChangeKind
	OldContent string
	NewContent string
}

// WriteFileTool creates or overwrites a file.
// Grounded on teacher pkg/engine/tools/write_file.go.
type WriteFileTool struct {
	BaseTool
	guard *sandbox.Guard
}

func NewWriteFileTool(guard *sandbox.Guard) *WriteFileTool {
	return &WriteFileTool{
		BaseTool: NewBaseTool(
			"write_file",
			"Create a new file or overwrite an existing file with the specified content. Creates parent directories if needed.",
			[]ParamDef{
				{Name: "path", Type: "string", Description: "Path to the file to create/overwrite (relative to workspace)", Required: true},
				{Name: "content", Type: "string", Description: "Content to write to the file", Required: true},
			},
			model.PolicyPrompt,
			true,
		),
		guard: guard,
	}
}

func (t *WriteFileTool) Execute(_ context.Context, args model.Args) (Result, error) {
	path := GetString(args, "path", "")
	if path == "" {
		return Failuref("path is required"), nil
	}
	content := GetString(args, "content", "")

	absPath, err := t.guard.Resolve(path)
	if err != nil {
		return Failure(err), nil
	}

	var oldContent string
	var existed bool
	if prior, statErr := os.ReadFile(absPath); statErr == nil {
		existed = true
		oldContent = string(prior)
	}

	if err := os.MkdirAll(filepath.Dir(absPath), 0755); err != nil {
		return Failuref("failed to create directory %s: %v", filepath.Dir(absPath), err), nil
	}
	if err := os.WriteFile(absPath, []byte(content), 0644); err != nil {
		return Failure(err), nil
	}

	kind := model.ChangeAdd
	if existed {
		kind = model.ChangeUpdate
	}
	data := FileChangeData{Path: path, Kind: kind, OldContent: oldContent, NewContent: content}

	if existed {
		return SuccessData("file overwritten: "+path, data), nil
	}
	return SuccessData("file created: "+path, data), nil
}

func (t *WriteFileTool) Preview(_ context.Context, args model.Args) (*Preview, error) {
	path := GetString(args, "path", "")
	content := GetString(args, "content", "")

	absPath, err := t.guard.Resolve(path)
	if err != nil {
		absPath = "<invalid path: " + err.Error() + ">"
	}

	preview := content
	if len(preview) > 1000 {
		preview = preview[:1000] + "\n... (truncated)"
	}

	return &Preview{
		Kind:     "diff",
		Summary:  "Write file: " + path,
		Content:  preview,
		Affected: []string{absPath},
		RiskHint: "This operation modifies files on disk.",
	}, nil
}
