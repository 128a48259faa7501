package turn

import "github.com/vtcode-go/vtcode/internal/provider"

// Config holds the guard thresholds and request defaults for one Engine
// (spec.md §4.1 "inner loop guards" plus the provider-request fields the
// loop fills in on every iteration).
type Config struct {
	// MaxConversationTurns caps turns_executed within one user turn.
	MaxConversationTurns int
	// IdleTurnLimit caps consecutive_idle_turns (a turn that produced
	// neither a tool call nor a completion indicator).
	IdleTurnLimit int
	// MaxToolLoops caps tool_loop_streak (consecutive assistant responses
	// that requested a tool call).
	MaxToolLoops int
	// ContextWarnPercent and ContextForcePercent gate the context-budget
	// guard: above Warn a diagnostic is surfaced, at or above Force a
	// compaction pass runs before the next provider call.
	ContextWarnPercent  float64
	ContextForcePercent float64
	// CompactPreserveTurns is how many of the most recent turns a forced
	// compaction pass must never touch.
	CompactPreserveTurns int
	// LoopWindow is the response-loop detector's sliding window size.
	LoopWindow int

	SystemPrompt string
	Model        string
	MaxTokens    int
	Temperature  float64
	// Caching configures prompt-caching breakpoints attached to every
	// outgoing request (spec.md §4.2, §6 prompt_cache.enabled).
	Caching provider.CachingConfig

	// PlanModeActive and the interview flags gate respond.Process's
	// plan-extraction and question-synthesis steps.
	PlanModeActive          bool
	AllowPlanInterview      bool
	RequestUserInputEnabled bool
}

// DefaultConfig returns thresholds matched to the teacher's own
// defaults where it has an analogous setting (AutoCompressThreshold),
// generalized to the full guard set spec.md §4.1 names.
func DefaultConfig() Config {
	return Config{
		MaxConversationTurns: 50,
		IdleTurnLimit:        3,
		MaxToolLoops:         25,
		ContextWarnPercent:   0.90,
		ContextForcePercent:  1.00,
		CompactPreserveTurns: 3,
		LoopWindow:           2,
		MaxTokens:            4096,
	}
}
