package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/vtcode-go/vtcode/cmd/ui"
	"github.com/vtcode-go/vtcode/internal/archive"
	"github.com/vtcode-go/vtcode/internal/prompts"
)

var listSessionsFlag bool

var chatCmd = &cobra.Command{
	Use:   "chat [session-id]",
	Short: "Start an interactive chat session",
	Run:   runChat,
}

func init() {
	chatCmd.Flags().BoolVarP(&listSessionsFlag, "list", "l", false, "List saved sessions")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) {
	workspaceRoot, err := resolveWorkspaceRoot()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	sc, err := newSessionComponents(workspaceRoot)
	if err != nil {
		fmt.Printf("Error initializing session: %v\n", err)
		return
	}
	defer sc.MCP.Close()

	ctx := context.Background()

	if listSessionsFlag {
		listSessions(ctx, sc.Archive)
		return
	}

	sessionID, resumed := loadOrCreateSession(ctx, sc, args)
	sc.Engine.SessionID = sessionID

	printChatBanner(sessionID, resumed)

	historyMgr, err := NewHistoryManager(workspaceRoot)
	if err != nil {
		fmt.Printf("Warning: Failed to initialize history: %v\n", err)
	}
	var inputHistory []string
	if historyMgr != nil {
		if stored, err := historyMgr.Load(); err == nil {
			inputHistory = stored
		}
	}

	for {
		in, err := ui.ReadInputWithHistory("\n💬 You: ", inputHistory)
		if err != nil {
			fmt.Printf("Input error: %v\n", err)
			return
		}
		if in.Cancelled {
			return
		}

		text := strings.TrimSpace(in.Value)
		if text == "" {
			continue
		}

		if len(inputHistory) == 0 || inputHistory[len(inputHistory)-1] != text {
			inputHistory = append(inputHistory, text)
			if historyMgr != nil {
				go func(t string) { _ = historyMgr.Append(t) }(text)
			}
		}

		if strings.HasPrefix(text, "/") {
			handled, quit := dispatchSlashCommand(sc, &sessionID, text)
			if quit {
				return
			}
			if handled {
				continue
			}
		}

		if _, err := runOneTurn(ctx, sc.Engine, text); err != nil {
			fmt.Printf("\n❌ Error: %v\n", err)
		}
		persistSession(ctx, sc, sessionID)
	}
}

// loadOrCreateSession resolves the session positional argument (if any)
// against the archive, falling back to a freshly minted session id.
func loadOrCreateSession(ctx context.Context, sc *sessionComponents, args []string) (sessionID string, resumed bool) {
	if len(args) > 0 {
		snap, err := sc.Archive.Get(ctx, args[0])
		if err == nil {
			for _, m := range snap.Messages {
				sc.Engine.Context.Append(m)
			}
			return snap.SessionID, true
		}
		fmt.Printf("Session '%s' not found, creating a new session...\n", args[0])
	}
	return "sess-" + uuid.NewString()[:8], false
}

func persistSession(ctx context.Context, sc *sessionComponents, sessionID string) {
	snap := &archive.Snapshot{
		SessionID:     sessionID,
		DisplayID:     sessionID,
		WorkspaceRoot: sc.Config.WorkspaceRoot,
		Model:         sc.Config.Model,
		Provider:      sc.Config.Provider,
		Messages:      sc.Engine.Context.Messages(),
	}
	if err := sc.Archive.Put(ctx, snap); err != nil {
		fmt.Printf("Warning: failed to save session: %v\n", err)
	}
}

// dispatchSlashCommand handles the built-in commands listed in
// cmd/ui.DefaultCommands. handled reports whether text was consumed as
// a command (vs. forwarded to the model); quit reports whether the
// session loop should exit.
func dispatchSlashCommand(sc *sessionComponents, sessionID *string, text string) (handled bool, quit bool) {
	fields := strings.Fields(text)
	name := strings.ToLower(fields[0])

	switch {
	case name == "/quit" || name == "/exit" || name == "/q":
		fmt.Println("\nGoodbye.")
		return true, true

	case name == "/help" || name == "/?":
		fmt.Println("\nCommands:")
		for _, c := range ui.DefaultCommands {
			fmt.Printf("  %-10s %s\n", c.Name, c.Description)
		}
		return true, false

	case name == "/model":
		if len(fields) > 1 {
			sc.Engine.Cfg.Model = fields[1]
			fmt.Printf("Model set to %s\n", fields[1])
		} else {
			fmt.Printf("Current model: %s\n", sc.Engine.Cfg.Model)
		}
		return true, false

	case name == "/config":
		fmt.Printf("provider=%s model=%s trust=%d auto_approve=%v max_context_tokens=%d\n",
			sc.Config.Provider, sc.Engine.Cfg.Model, sc.Engine.Trust, sc.Config.AutoApprove,
			sc.Config.ContextBudget.MaxContextTokens)
		return true, false

	case name == "/clear":
		sc.Engine.Context.Clear()
		fmt.Println("Transcript cleared.")
		return true, false

	case name == "/new":
		persistSession(context.Background(), sc, *sessionID)
		sc.Engine.Context.Clear()
		*sessionID = "sess-" + uuid.NewString()[:8]
		sc.Engine.SessionID = *sessionID
		fmt.Printf("Started new session %s\n", *sessionID)
		return true, false

	case name == "/status":
		budget := sc.Engine.Context.Budget()
		fmt.Printf("session=%s messages=%d context_usage=%.1f%%\n",
			*sessionID, len(sc.Engine.Context.Messages()), budget.UtilizationPercent()*100)
		return true, false

	case name == "/theme":
		fmt.Println("Theme switching is a terminal-emulator setting; vtcode draws in your terminal's current palette.")
		return true, false

	case name == "/mode":
		sc.Engine.Cfg.PlanModeActive = !sc.Engine.Cfg.PlanModeActive
		fmt.Printf("plan mode: %v\n", sc.Engine.Cfg.PlanModeActive)
		return true, false

	case strings.HasPrefix(name, "/prompts"):
		runPromptInvocation(sc, text)
		return true, false

	default:
		return false, false
	}
}

func runPromptInvocation(sc *sessionComponents, text string) {
	rest := strings.TrimPrefix(text, "/prompts")
	rest = strings.TrimPrefix(rest, ":")
	rest = strings.TrimSpace(rest)
	if rest == "" {
		fmt.Println("usage: /prompts:<name> [args...]")
		for _, name := range sc.Prompts.List() {
			fmt.Printf("  %s\n", name)
		}
		return
	}

	fields := strings.SplitN(rest, " ", 2)
	name := fields[0]
	argv := ""
	if len(fields) > 1 {
		argv = fields[1]
	}

	p, err := sc.Prompts.Get(name)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	inv, err := prompts.ParseInvocation(name, argv)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	expanded, err := prompts.Expand(p, inv)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	if _, err := runOneTurn(context.Background(), sc.Engine, expanded); err != nil {
		fmt.Printf("\n❌ Error: %v\n", err)
	}
}

// listSessions prints every archived session, most recently updated
// first (archive.Store.List already orders that way).
func listSessions(ctx context.Context, store *archive.Store) {
	ids, err := store.List(ctx)
	if err != nil {
		fmt.Printf("Error listing sessions: %v\n", err)
		return
	}
	if len(ids) == 0 {
		fmt.Println("No sessions found.")
		return
	}

	fmt.Println("\n📂 Sessions:")
	for _, id := range ids {
		snap, err := store.Get(ctx, id)
		if err != nil {
			continue
		}
		fmt.Printf("  %s - %d messages\n", id, len(snap.Messages))
	}
	fmt.Println("\nResume with: vtcode chat <session-id>")
}

func printChatBanner(sessionID string, resumed bool) {
	status := "new"
	if resumed {
		status = "resumed"
	}
	fmt.Println()
	fmt.Println("╔═══════════════════════════════════════════════════════════════╗")
	fmt.Println("║                      vtcode — chat session                     ║")
	fmt.Println("╠═══════════════════════════════════════════════════════════════╣")
	fmt.Printf("║  Session: %-41s (%-7s) ║\n", sessionID, status)
	fmt.Println("╠═══════════════════════════════════════════════════════════════╣")
	fmt.Println("║  Type /help for commands, Ctrl+J for newline, Ctrl+C to exit    ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════╝")
}
