package textcall

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetect_ShellCallWithStringCommand(t *testing.T) {
	c, ok := Detect(`shell(command="ls -la /tmp")`)
	require.True(t, ok)
	assert.Equal(t, "shell", c.Name)
	assert.Equal(t, []string{"ls", "-la", "/tmp"}, c.Arguments["command"])
}

func TestDetect_ShellCallWithArrayCommandAndTimeout(t *testing.T) {
	c, ok := Detect(`default_api.shell(command=["git", "status"], timeout_secs=30)`)
	require.True(t, ok)
	assert.Equal(t, []string{"git", "status"}, c.Arguments["command"])
	assert.Equal(t, 30, c.Arguments["timeout_secs"])
}

func TestDetect_JSONToolObject(t *testing.T) {
	c, ok := Detect(`Sure, here:
{"name": "read_file", "arguments": {"path": "a.go"}}`)
	require.True(t, ok)
	assert.Equal(t, "read_file", c.Name)
	assert.Equal(t, "a.go", c.Arguments["path"])
}

func TestDetect_JSONToolObject_MergesExtraFields(t *testing.T) {
	c, ok := Detect(`{"tool": "write_file", "parameters": {"path": "a.go"}, "content": "hi"}`)
	require.True(t, ok)
	assert.Equal(t, "write_file", c.Name)
	assert.Equal(t, "a.go", c.Arguments["path"])
	assert.Equal(t, "hi", c.Arguments["content"])
}

func TestDetect_DirectToolCall(t *testing.T) {
	c, ok := Detect(`bash(command="echo hi")`)
	require.True(t, ok)
	assert.Equal(t, "bash", c.Name)
}

func TestDetect_PrefixedToolCall(t *testing.T) {
	c, ok := Detect(`default_api.list_files(path=".")`)
	require.True(t, ok)
	assert.Equal(t, "list_files", c.Name)
	assert.Equal(t, ".", c.Arguments["path"])
}

func TestDetect_InsideFencedCodeBlock(t *testing.T) {
	c, ok := Detect("I'll run this:\n```\nbash(command=\"ls\")\n```\n")
	require.True(t, ok)
	assert.Equal(t, "bash", c.Name)
}

func TestDetect_SingleQuotedJSONFallback(t *testing.T) {
	c, ok := Detect(`{'name': 'grep', 'arguments': {'pattern': 'TODO'}}`)
	require.True(t, ok)
	assert.Equal(t, "grep", c.Name)
	assert.Equal(t, "TODO", c.Arguments["pattern"])
}

func TestDetect_NoCallFound(t *testing.T) {
	_, ok := Detect("just a normal sentence with no tool call in it")
	assert.False(t, ok)
}

func TestDetect_KeyValueArgumentsWithoutQuotes(t *testing.T) {
	c, ok := Detect(`default_api.search(query=hello, limit=5, recursive=true)`)
	require.True(t, ok)
	assert.Equal(t, "hello", c.Arguments["query"])
	assert.Equal(t, int64(5), c.Arguments["limit"])
	assert.Equal(t, true, c.Arguments["recursive"])
}

func TestSplitShellTokens_HandlesQuoting(t *testing.T) {
	tokens, err := SplitShellTokens(`echo "hello world" 'literal $HOME' a\ b`)
	require.NoError(t, err)
	assert.Equal(t, []string{"echo", "hello world", "literal $HOME", "a b"}, tokens)
}

func TestSplitShellTokens_UnterminatedQuoteErrors(t *testing.T) {
	_, err := SplitShellTokens(`echo "unterminated`)
	assert.Error(t, err)
}
