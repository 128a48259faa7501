// Package config resolves run configuration from flags and the
// environment; no file-format parser, matching spec.md's config
// Non-goal. Grounded on teacher cmd/root.go (loadDotEnv, persistent
// flags, LOG_LEVEL env var).
package config

import (
	"bufio"
	"os"
	"strconv"
	"strings"

	"github.com/vtcode-go/vtcode/internal/logging"
	"github.com/vtcode-go/vtcode/internal/model"
)

// Config is the resolved set of knobs the turn loop, provider layer,
// and tool executor read from.
type Config struct {
	Provider        string
	Model           string
	WorkspaceRoot   string
	AutoApprove     bool
	EnableTools     bool
	PlanModeEnforced bool
	TrustLevel      model.TrustLevel
	LogLevel        logging.Level
	LogPath         string
	ContextBudget   model.ContextBudget
	PreserveRecentTurns int
	CompactTargetPercent float64
	SafetyThresholdName string
	MCPServers      []MCPServerConfig
	PromptCacheEnabled    bool
	PromptCacheTTLSeconds int
	PromptCacheMaxBreakpoints int
}

// MCPServerConfig names one external tool-catalog server the MCP
// manager connects to at startup (spec.md §6). Transport is one of
// "stdio", "sse", "streamable-http".
type MCPServerConfig struct {
	Name       string
	Transport  string
	Command    string   // stdio
	Args       []string // stdio
	Env        map[string]string
	URL        string // sse, streamable-http
	ToolPrefix string
}

// Default returns the baseline configuration before flags/env are
// applied.
func Default(workspaceRoot string) Config {
	return Config{
		Provider:             "anthropic",
		WorkspaceRoot:        workspaceRoot,
		EnableTools:          true,
		TrustLevel:           model.TrustStandard,
		LogLevel:             logging.Info,
		LogPath:              "workspace/logs/vtcode.log",
		ContextBudget:        model.ContextBudget{MaxContextTokens: 180_000, TrimToPercent: 0.7},
		PreserveRecentTurns:  4,
		CompactTargetPercent: 0.7,
		SafetyThresholdName:  "medium",
		PromptCacheEnabled:        false,
		PromptCacheTTLSeconds:     300,
		PromptCacheMaxBreakpoints: 4,
	}
}

// ApplyEnv overlays environment variables on top of a baseline config.
// Flags set by cobra take precedence and are applied by the caller
// after ApplyEnv, so env only fills in what flags left at zero value.
func (c Config) ApplyEnv() Config {
	if v := os.Getenv("VTCODE_PROVIDER"); v != "" {
		c.Provider = v
	}
	if v := os.Getenv("VTCODE_MODEL"); v != "" {
		c.Model = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		switch strings.ToUpper(v) {
		case "DEBUG":
			c.LogLevel = logging.Debug
		case "WARN":
			c.LogLevel = logging.Warn
		case "ERROR":
			c.LogLevel = logging.Error
		default:
			c.LogLevel = logging.Info
		}
	}
	if v := os.Getenv("VTCODE_AUTO_APPROVE"); v != "" {
		c.AutoApprove, _ = strconv.ParseBool(v)
	}
	if v := os.Getenv("VTCODE_MAX_CONTEXT_TOKENS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.ContextBudget.MaxContextTokens = n
		}
	}
	if v := os.Getenv("VTCODE_MCP_SERVERS"); v != "" {
		c.MCPServers = append(c.MCPServers, parseMCPServers(v)...)
	}
	if v := os.Getenv("VTCODE_PROMPT_CACHE_ENABLED"); v != "" {
		c.PromptCacheEnabled, _ = strconv.ParseBool(v)
	}
	if v := os.Getenv("VTCODE_PROMPT_CACHE_TTL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.PromptCacheTTLSeconds = n
		}
	}
	if v := os.Getenv("VTCODE_PROMPT_CACHE_MAX_BREAKPOINTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.PromptCacheMaxBreakpoints = n
		}
	}
	return c
}

// parseMCPServers reads the stable-identifier form spec.md §6 calls for
// rather than a config file: a ';'-separated list of
// "name=transport:target" entries, e.g.
// "docs=stdio:mcp-docs-server --root .;search=sse:http://localhost:9000/sse".
// For stdio, target is "command arg1 arg2...". Malformed entries are
// skipped; this is a convenience surface, not a schema the rest of the
// agent depends on.
func parseMCPServers(raw string) []MCPServerConfig {
	var out []MCPServerConfig
	for _, entry := range strings.Split(raw, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, rest, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}
		transport, target, ok := strings.Cut(rest, ":")
		if !ok {
			continue
		}
		cfg := MCPServerConfig{Name: strings.TrimSpace(name), Transport: strings.TrimSpace(transport)}
		switch cfg.Transport {
		case "stdio":
			fields := strings.Fields(target)
			if len(fields) == 0 {
				continue
			}
			cfg.Command = fields[0]
			cfg.Args = fields[1:]
		case "sse", "streamable-http":
			cfg.URL = strings.TrimSpace(target)
			if cfg.URL == "" {
				continue
			}
		default:
			continue
		}
		out = append(out, cfg)
	}
	return out
}

// LoadDotEnv reads a .env file (if present) and sets process environment
// variables for any key not already set, without overriding the shell
// environment. Grounded on teacher's loadDotEnv.
func LoadDotEnv(path string) {
	file, err := os.Open(path)
	if err != nil {
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		val := strings.TrimSpace(parts[1])
		if (strings.HasPrefix(val, `"`) && strings.HasSuffix(val, `"`)) ||
			(strings.HasPrefix(val, "'") && strings.HasSuffix(val, "'")) {
			val = val[1 : len(val)-1]
		}

		if os.Getenv(key) == "" {
			os.Setenv(key, val)
		}
	}
}
