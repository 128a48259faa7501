package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMCPServers_Stdio(t *testing.T) {
	out := parseMCPServers("docs=stdio:mcp-docs-server --root .")
	if assert.Len(t, out, 1) {
		assert.Equal(t, "docs", out[0].Name)
		assert.Equal(t, "stdio", out[0].Transport)
		assert.Equal(t, "mcp-docs-server", out[0].Command)
		assert.Equal(t, []string{"--root", "."}, out[0].Args)
	}
}

func TestParseMCPServers_SSE(t *testing.T) {
	out := parseMCPServers("search=sse:http://localhost:9000/sse")
	if assert.Len(t, out, 1) {
		assert.Equal(t, "search", out[0].Name)
		assert.Equal(t, "sse", out[0].Transport)
		assert.Equal(t, "http://localhost:9000/sse", out[0].URL)
	}
}

func TestParseMCPServers_MultipleAndMalformed(t *testing.T) {
	out := parseMCPServers("docs=stdio:mcp-docs-server; ;broken;search=sse:http://x/sse")
	assert.Len(t, out, 2)
}

func TestParseMCPServers_UnsupportedTransportSkipped(t *testing.T) {
	out := parseMCPServers("weird=carrier-pigeon:nowhere")
	assert.Empty(t, out)
}

func TestDefault_PromptCacheDisabledWithSaneDefaults(t *testing.T) {
	cfg := Default("/tmp/workspace")
	assert.False(t, cfg.PromptCacheEnabled)
	assert.Equal(t, 300, cfg.PromptCacheTTLSeconds)
	assert.Equal(t, 4, cfg.PromptCacheMaxBreakpoints)
}

func TestApplyEnv_PromptCacheOverrides(t *testing.T) {
	t.Setenv("VTCODE_PROMPT_CACHE_ENABLED", "true")
	t.Setenv("VTCODE_PROMPT_CACHE_TTL_SECONDS", "3600")
	t.Setenv("VTCODE_PROMPT_CACHE_MAX_BREAKPOINTS", "2")

	cfg := Default("/tmp/workspace").ApplyEnv()
	require.True(t, cfg.PromptCacheEnabled)
	assert.Equal(t, 3600, cfg.PromptCacheTTLSeconds)
	assert.Equal(t, 2, cfg.PromptCacheMaxBreakpoints)
}
