package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vtcode-go/vtcode/internal/model"
)

func TestShellTool_RunsAllowListedCommand(t *testing.T) {
	guard, _ := newWorkspaceGuard(t)
	tool := NewShellTool(guard)

	res, err := tool.Execute(context.Background(), model.Args{"command": "pwd"})
	require.NoError(t, err)
	assert.False(t, res.IsError)
}

func TestShellTool_BlocksCriticalCommand(t *testing.T) {
	guard, _ := newWorkspaceGuard(t)
	tool := NewShellTool(guard)

	res, err := tool.Execute(context.Background(), model.Args{"command": "rm -rf /"})
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, res.Error, "blocked by safety policy")
}

func TestShellTool_RejectsUnterminatedQuote(t *testing.T) {
	guard, _ := newWorkspaceGuard(t)
	tool := NewShellTool(guard)

	res, err := tool.Execute(context.Background(), model.Args{"command": `echo "unterminated`})
	require.NoError(t, err)
	assert.True(t, res.IsError)
}
