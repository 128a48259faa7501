package tools

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/vtcode-go/vtcode/internal/model"
	"github.com/vtcode-go/vtcode/internal/sandbox"
)

// LsTool lists directory contents. Grounded on teacher
// pkg/engine/tools/ls.go.
type LsTool struct {
	BaseTool
	guard *sandbox.Guard
}

func NewLsTool(guard *sandbox.Guard) *LsTool {
	return &LsTool{
		BaseTool: NewBaseTool(
			"ls",
			"List files and directories in a given path. Returns file names, types, and sizes.",
			[]ParamDef{
				{Name: "path", Type: "string", Description: "Directory path to list (relative to workspace)", Required: true},
				{Name: "all", Type: "boolean", Description: "Include hidden files (starting with .)"},
			},
			model.PolicyAllow,
			false,
		),
		guard: guard,
	}
}

func (t *LsTool) Execute(_ context.Context, args model.Args) (Result, error) {
	path := GetString(args, "path", ".")
	showAll := GetBool(args, "all", false)

	absPath, err := t.guard.Resolve(path)
	if err != nil {
		return Failure(err), nil
	}

	info, err := os.Stat(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return Failuref("path does not exist: %s", path), nil
		}
		return Failure(err), nil
	}

	if !info.IsDir() {
		return Success(formatFileInfo(path, info)), nil
	}

	entries, err := os.ReadDir(absPath)
	if err != nil {
		return Failure(err), nil
	}

	var lines []string
	for _, entry := range entries {
		name := entry.Name()
		if !showAll && strings.HasPrefix(name, ".") {
			continue
		}
		entryInfo, err := entry.Info()
		if err != nil {
			lines = append(lines, fmt.Sprintf("%s (error: %v)", name, err))
			continue
		}
		lines = append(lines, formatFileInfo(name, entryInfo))
	}
	sort.Strings(lines)

	if len(lines) == 0 {
		return Success("(empty directory)"), nil
	}
	return Success(strings.Join(lines, "\n")), nil
}

func formatFileInfo(name string, info os.FileInfo) string {
	if info.IsDir() {
		return fmt.Sprintf("%s/", name)
	}
	return fmt.Sprintf("%s (%s)", name, formatSize(info.Size()))
}

func formatSize(bytes int64) string {
	const (
		kb = 1024
		mb = kb * 1024
		gb = mb * 1024
	)
	switch {
	case bytes >= gb:
		return fmt.Sprintf("%.1f GB", float64(bytes)/gb)
	case bytes >= mb:
		return fmt.Sprintf("%.1f MB", float64(bytes)/mb)
	case bytes >= kb:
		return fmt.Sprintf("%.1f KB", float64(bytes)/kb)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
