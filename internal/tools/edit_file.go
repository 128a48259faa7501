package tools

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/vtcode-go/vtcode/internal/model"
	"github.com/vtcode-go/vtcode/internal/sandbox"
)

// EditFileTool makes a single exact-match textual replacement in an
// existing file. Grounded on teacher pkg/engine/tools/edit_file.go.
type EditFileTool struct {
	BaseTool
	guard *sandbox.Guard
}

func NewEditFileTool(guard *sandbox.Guard) *EditFileTool {
	return &EditFileTool{
		BaseTool: NewBaseTool(
			"edit_file",
			"Make targeted edits to an existing file by replacing specific text. More precise than write_file for modifications.",
			[]ParamDef{
				{Name: "path", Type: "string", Description: "Path to the file to edit (relative to workspace)", Required: true},
				{Name: "old_text", Type: "string", Description: "Exact text to find and replace (must match exactly)", Required: true},
				{Name: "new_text", Type: "string", Description: "Text to replace old_text with", Required: true},
			},
			model.PolicyPrompt,
			true,
		),
		guard: guard,
	}
}

func (t *EditFileTool) Execute(_ context.Context, args model.Args) (Result, error) {
	path := GetString(args, "path", "")
	if path == "" {
		return Failuref("path is required"), nil
	}
	oldText := GetString(args, "old_text", "")
	if oldText == "" {
		return Failuref("old_text is required"), nil
	}
	newText := GetString(args, "new_text", "")

	absPath, err := t.guard.Resolve(path)
	if err != nil {
		return Failure(err), nil
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return Failuref("file does not exist: %s", path), nil
		}
		return Failure(err), nil
	}
	contentStr := string(content)

	if !strings.Contains(contentStr, oldText) {
		return Failuref("old_text not found in file. Make sure it matches exactly including whitespace."), nil
	}
	if count := strings.Count(contentStr, oldText); count > 1 {
		return Failuref("old_text found %d times in file. It must be unique. Provide more context.", count), nil
	}

	newContent := strings.Replace(contentStr, oldText, newText, 1)
	if err := os.WriteFile(absPath, []byte(newContent), 0644); err != nil {
		return Failure(err), nil
	}

	data := FileChangeData{Path: path, Kind: model.ChangeUpdate, OldContent: contentStr, NewContent: newContent}
	return SuccessData(fmt.Sprintf("file edited: %s\nreplaced %d bytes with %d bytes", path, len(oldText), len(newText)), data), nil
}

func (t *EditFileTool) Preview(_ context.Context, args model.Args) (*Preview, error) {
	path := GetString(args, "path", "")
	oldText := GetString(args, "old_text", "")
	newText := GetString(args, "new_text", "")

	absPath, err := t.guard.Resolve(path)
	pathPreview := absPath
	if err != nil {
		pathPreview = "<invalid path: " + err.Error() + ">"
	}

	var b strings.Builder
	for _, line := range strings.Split(oldText, "\n") {
		b.WriteString("- " + line + "\n")
	}
	for _, line := range strings.Split(newText, "\n") {
		b.WriteString("+ " + line + "\n")
	}
	diffText := b.String()
	if len(diffText) > 4000 {
		diffText = diffText[:4000] + "\n... (truncated)"
	}

	return &Preview{
		Kind:     "diff",
		Summary:  "Edit file: " + path,
		Content:  diffText,
		Affected: []string{pathPreview},
		RiskHint: fmt.Sprintf("Replacing %d bytes with %d bytes", len(oldText), len(newText)),
	}, nil
}
