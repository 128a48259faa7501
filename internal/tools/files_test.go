package tools

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vtcode-go/vtcode/internal/model"
	"github.com/vtcode-go/vtcode/internal/sandbox"
)

func newWorkspaceGuard(t *testing.T) (*sandbox.Guard, string) {
	t.Helper()
	root := t.TempDir()
	guard, err := sandbox.NewGuard(root)
	require.NoError(t, err)
	return guard, root
}

func TestWriteFileTool_CreatesAndOverwrites(t *testing.T) {
	guard, root := newWorkspaceGuard(t)
	tool := NewWriteFileTool(guard)

	res, err := tool.Execute(context.Background(), model.Args{"path": "a.txt", "content": "hello"})
	require.NoError(t, err)
	require.False(t, res.IsError)
	data := res.Data.(FileChangeData)
	assert.Equal(t, model.ChangeAdd, data.Kind)

	content, err := os.ReadFile(filepath.Join(root, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(content))

	res, err = tool.Execute(context.Background(), model.Args{"path": "a.txt", "content": "world"})
	require.NoError(t, err)
	data = res.Data.(FileChangeData)
	assert.Equal(t, model.ChangeUpdate, data.Kind)
	assert.Equal(t, "hello", data.OldContent)
}

func TestWriteFileTool_RejectsEscape(t *testing.T) {
	guard, _ := newWorkspaceGuard(t)
	tool := NewWriteFileTool(guard)
	res, err := tool.Execute(context.Background(), model.Args{"path": "../escape.txt", "content": "x"})
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestReadFileTool_ReadsLineRange(t *testing.T) {
	guard, root := newWorkspaceGuard(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "f.txt"), []byte("one\ntwo\nthree\n"), 0644))

	tool := NewReadFileTool(guard)
	res, err := tool.Execute(context.Background(), model.Args{"path": "f.txt", "start_line": 2, "end_line": 2})
	require.NoError(t, err)
	assert.Contains(t, res.Content, "two")
	assert.NotContains(t, res.Content, "one")
}

func TestEditFileTool_RequiresUniqueMatch(t *testing.T) {
	guard, root := newWorkspaceGuard(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "f.txt"), []byte("foo foo"), 0644))

	tool := NewEditFileTool(guard)
	res, err := tool.Execute(context.Background(), model.Args{"path": "f.txt", "old_text": "foo", "new_text": "bar"})
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestEditFileTool_ReplacesExactMatch(t *testing.T) {
	guard, root := newWorkspaceGuard(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "f.txt"), []byte("foo bar"), 0644))

	tool := NewEditFileTool(guard)
	res, err := tool.Execute(context.Background(), model.Args{"path": "f.txt", "old_text": "foo", "new_text": "baz"})
	require.NoError(t, err)
	require.False(t, res.IsError)

	content, err := os.ReadFile(filepath.Join(root, "f.txt"))
	require.NoError(t, err)
	assert.Equal(t, "baz bar", string(content))
}

func TestLsTool_ListsDirectory(t *testing.T) {
	guard, root := newWorkspaceGuard(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "visible.txt"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".hidden"), []byte("x"), 0644))

	tool := NewLsTool(guard)
	res, err := tool.Execute(context.Background(), model.Args{"path": "."})
	require.NoError(t, err)
	assert.Contains(t, res.Content, "visible.txt")
	assert.NotContains(t, res.Content, ".hidden")

	res, err = tool.Execute(context.Background(), model.Args{"path": ".", "all": true})
	require.NoError(t, err)
	assert.Contains(t, res.Content, ".hidden")
}

func TestGlobTool_MatchesRecursivePattern(t *testing.T) {
	guard, root := newWorkspaceGuard(t)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "main.go"), []byte("package main"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "readme.md"), []byte("#"), 0644))

	tool := NewGlobTool(guard)
	res, err := tool.Execute(context.Background(), model.Args{"pattern": "**/*.go"})
	require.NoError(t, err)
	assert.Contains(t, res.Content, "main.go")
	assert.NotContains(t, res.Content, "readme.md")
}

func TestGrepTool_FindsMatchingLine(t *testing.T) {
	guard, root := newWorkspaceGuard(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "f.txt"), []byte("alpha\nTODO fix this\nbeta\n"), 0644))

	tool := NewGrepTool(guard)
	res, err := tool.Execute(context.Background(), model.Args{"pattern": "TODO"})
	require.NoError(t, err)
	assert.Contains(t, res.Content, "f.txt:2:")
}
