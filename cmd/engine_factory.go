package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vtcode-go/vtcode/cmd/ui"
	"github.com/vtcode-go/vtcode/internal/archive"
	"github.com/vtcode-go/vtcode/internal/config"
	ctxmgr "github.com/vtcode-go/vtcode/internal/context"
	"github.com/vtcode-go/vtcode/internal/diff"
	"github.com/vtcode-go/vtcode/internal/executor"
	"github.com/vtcode-go/vtcode/internal/logging"
	"github.com/vtcode-go/vtcode/internal/mcp"
	"github.com/vtcode-go/vtcode/internal/model"
	"github.com/vtcode-go/vtcode/internal/prompts"
	"github.com/vtcode-go/vtcode/internal/provider"
	"github.com/vtcode-go/vtcode/internal/provider/anthropic"
	"github.com/vtcode-go/vtcode/internal/provider/compat"
	"github.com/vtcode-go/vtcode/internal/provider/openai"
	"github.com/vtcode-go/vtcode/internal/sandbox"
	"github.com/vtcode-go/vtcode/internal/systemprompt"
	"github.com/vtcode-go/vtcode/internal/telemetry"
	"github.com/vtcode-go/vtcode/internal/tools"
	"github.com/vtcode-go/vtcode/internal/turn"

	"go.opentelemetry.io/otel"
)

// resolveWorkspaceRoot resolves the directory file tools and the shell
// tool are sandboxed to: a workspace/ subdirectory of the current
// directory, created on demand.
func resolveWorkspaceRoot() (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	if realWD, err := filepath.EvalSymlinks(wd); err == nil {
		wd = realWD
	}
	workspaceDir := filepath.Join(wd, "workspace")
	if err := os.MkdirAll(workspaceDir, 0755); err != nil {
		return "", err
	}
	return workspaceDir, nil
}

// promptRoots returns, in precedence order, the directories internal/
// prompts.Registry scans for custom slash-command prompts: the
// workspace's own .vtcode/prompts, the enclosing project's, and the
// user's home directory.
func promptRoots(workspaceRoot string) []string {
	var roots []string
	projectRoot := filepath.Dir(workspaceRoot)

	roots = append(roots, filepath.Join(workspaceRoot, ".vtcode", "prompts"))
	roots = append(roots, filepath.Join(projectRoot, ".vtcode", "prompts"))
	if home, err := os.UserHomeDir(); err == nil {
		roots = append(roots, filepath.Join(home, ".vtcode", agentFlag, "prompts"))
	}
	return roots
}

// newProvider selects a provider.Provider from resolved configuration.
// Anthropic is the default; VTCODE_PROVIDER=openai routes to the OpenAI
// client, and VTCODE_PROVIDER=compat, openrouter or local routes to the
// generic chat-completions-compatible adapter at VTCODE_BASE_URL.
func newProvider(cfg config.Config) (provider.Provider, error) {
	apiKey := os.Getenv("LLM_API_KEY")

	switch cfg.Provider {
	case "openai":
		key := os.Getenv("OPENAI_API_KEY")
		if key == "" {
			key = apiKey
		}
		return openai.New(key, openai.Options{DefaultModel: cfg.Model})
	case "compat", "openrouter", "local":
		baseURL := os.Getenv("VTCODE_BASE_URL")
		return compat.New(cfg.Provider, baseURL, apiKey, nil), nil
	default:
		key := os.Getenv("ANTHROPIC_API_KEY")
		if key == "" {
			key = apiKey
		}
		return anthropic.NewFromAPIKey(key, anthropic.Options{DefaultModel: cfg.Model})
	}
}

// sessionComponents bundles everything one chat session needs: the turn
// engine itself plus the pieces the cmd layer drives directly (the
// archive store for /new and resume, the prompt registry for
// /prompts:<name>).
type sessionComponents struct {
	Engine   *turn.Engine
	Archive  *archive.Store
	Prompts  *prompts.Registry
	Config   config.Config
	MCP      *mcp.Catalog
}

// newSessionComponents wires the provider, sandboxed tool registry,
// executor, context manager, and turn engine into one ready-to-run set,
// the way teacher cmd/engine_factory.go's newAPIEngine wired the
// teacher's runtime.Engine (skill index, memory manager, middleware
// chain) — generalized here to this module's provider/executor/turn
// stack, which has no skill or memory system.
func newSessionComponents(workspaceRoot string) (*sessionComponents, error) {
	cfg := config.Default(workspaceRoot).ApplyEnv()
	if modelFlag != "" {
		cfg.Model = modelFlag
	}
	if autoApproveFlag {
		cfg.AutoApprove = true
	}
	cfg.EnableTools = enableToolsFlag

	guard, err := sandbox.NewGuard(workspaceRoot)
	if err != nil {
		return nil, fmt.Errorf("building sandbox guard: %w", err)
	}

	registry := tools.NewRegistry()
	if cfg.EnableTools {
		registry.MustRegister(tools.NewLsTool(guard))
		registry.MustRegister(tools.NewReadFileTool(guard))
		registry.MustRegister(tools.NewWriteFileTool(guard))
		registry.MustRegister(tools.NewEditFileTool(guard))
		registry.MustRegister(tools.NewGlobTool(guard))
		registry.MustRegister(tools.NewGrepTool(guard))
		registry.MustRegister(tools.NewShellTool(guard))
	}

	tracker := diff.NewTracker()
	exec, err := executor.New(registry, tracker, 256)
	if err != nil {
		return nil, fmt.Errorf("building executor: %w", err)
	}

	llm, err := newProvider(cfg)
	if err != nil {
		return nil, fmt.Errorf("building provider: %w", err)
	}

	ctxManager := ctxmgr.NewManager(cfg.ContextBudget)

	archiveStore, err := archive.NewStore(workspaceRoot)
	if err != nil {
		return nil, fmt.Errorf("building session archive: %w", err)
	}

	promptRegistry := prompts.NewRegistry(promptRoots(workspaceRoot)...)

	systemPrompt := systemprompt.Build(systemprompt.Options{
		WorkspaceRoot: workspaceRoot,
		ProjectRoot:   filepath.Dir(workspaceRoot),
		AgentName:     agentFlag,
	})

	turnCfg := turn.DefaultConfig()
	turnCfg.SystemPrompt = systemPrompt
	if cfg.Model != "" {
		turnCfg.Model = cfg.Model
	}
	turnCfg.Caching = provider.CachingConfig{
		Enabled:        cfg.PromptCacheEnabled,
		TTLSeconds:     cfg.PromptCacheTTLSeconds,
		MaxBreakpoints: cfg.PromptCacheMaxBreakpoints,
	}

	eng := turn.NewEngine(llm, exec, registry, ctxManager, tracker, turnCfg)
	eng.Metrics = telemetry.NewMetrics("vtcode")
	eng.Trust = cfg.TrustLevel
	if cfg.AutoApprove {
		eng.Trust = model.TrustFull
	}
	eng.Policy = model.PolicyConfig{
		BasePolicy:       model.PolicyPrompt,
		PlanModeEnforced: cfg.PlanModeEnforced,
	}
	approver := ui.NewCLIApprover()
	if cfg.AutoApprove {
		approver.SetAutoAccept(true)
	}
	eng.Approver = approver

	catalog := mcp.NewCatalog(registry, eng.Notify)
	if len(cfg.MCPServers) > 0 {
		catalog.Connect(context.Background(), cfg.MCPServers)
	}

	return &sessionComponents{
		Engine:  eng,
		Archive: archiveStore,
		Prompts: promptRegistry,
		Config:  cfg,
		MCP:     catalog,
	}, nil
}

// initLogging opens the process-wide logger at the level ApplyEnv
// resolves from LOG_LEVEL, and installs the process-wide OTel trace
// provider every turn.Engine's spans attach to.
func initLogging() {
	cfg := config.Default("").ApplyEnv()
	if err := logging.Init(cfg.LogPath, cfg.LogLevel, "vtcode"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to initialize logger: %v\n", err)
	}
	otel.SetTracerProvider(telemetry.NewTracerProvider())
}
