package model

// Policy is the base disposition a tool is assigned absent any pattern
// override.
type Policy string

const (
	PolicyAllow  Policy = "allow"
	PolicyPrompt Policy = "prompt"
	PolicyDeny   Policy = "deny"
)

// ToolDefinition describes a tool's identity, schema, and policy (spec.md
// §3). Schema is a JSON-Schema document (map form) used both to validate
// arguments before dispatch and to document the tool to the LLM.
type ToolDefinition struct {
	Name        string
	Description string
	Schema      map[string]any
	BasePolicy  Policy
	Mutating    bool
}

// TrustLevel gates whether approval prompts can be bypassed.
type TrustLevel int

const (
	TrustUntrusted TrustLevel = iota
	TrustStandard
	TrustElevated
	TrustFull
)

// CanBypassApproval reports whether this trust level pre-approves
// NeedsApproval dispositions (spec.md §4.3 step 4c). It never bypasses a
// deny pattern or a plan-mode block; evaluatePolicy applies it before the
// override and base policy, so those are not consulted once it holds.
func (t TrustLevel) CanBypassApproval() bool {
	return t >= TrustElevated
}

// ApprovalState is the monotone lifecycle of one tool invocation's
// approval. Pending -> {PreApproved|NeedsApproval|Blocked} ->
// {Approved|Denied|Blocked}; terminal states never re-enter non-terminal
// ones (spec.md §3 invariant, §8 testable property 2).
type ApprovalState string

const (
	ApprovalPending       ApprovalState = "pending"
	ApprovalPreApproved   ApprovalState = "pre_approved"
	ApprovalNeedsApproval ApprovalState = "needs_approval"
	ApprovalApproved      ApprovalState = "approved"
	ApprovalDenied        ApprovalState = "denied"
	ApprovalBlocked       ApprovalState = "blocked"
)

func (s ApprovalState) terminal() bool {
	switch s {
	case ApprovalApproved, ApprovalDenied, ApprovalBlocked:
		return true
	default:
		return false
	}
}

// ValidTransition reports whether moving from 'from' to 'to' obeys the
// approval-state monotonicity invariant.
func ValidTransition(from, to ApprovalState) bool {
	if from.terminal() {
		return false
	}
	switch from {
	case ApprovalPending:
		switch to {
		case ApprovalPreApproved, ApprovalNeedsApproval, ApprovalBlocked:
			return true
		}
	case ApprovalPreApproved:
		switch to {
		case ApprovalApproved, ApprovalBlocked:
			return true
		}
	case ApprovalNeedsApproval:
		switch to {
		case ApprovalApproved, ApprovalDenied, ApprovalBlocked:
			return true
		}
	}
	return false
}

// PolicyConfig is the resolved policy envelope evaluated for every tool
// call (spec.md §3, §4.3).
type PolicyConfig struct {
	BasePolicy        Policy
	SandboxPolicy     string
	AllowPatterns     []string
	DenyPatterns      []string
	PlanModeEnforced  bool
	Timeout           int // seconds; 0 means no explicit override
	Overrides         map[string]Policy
}

// ExecutionContext accompanies a single tool invocation attempt (spec.md
// §3).
type ExecutionContext struct {
	TrustLevel        TrustLevel
	ApprovalState     ApprovalState
	Policy            PolicyConfig
	InvocationID      string
	SessionID         string
	ParentInvocationID string
	TurnNumber        int
	Attempt           int
	CreatedAtUnixNano int64
	Metadata          map[string]any
}

// Args is the structured argument map passed to a tool's Execute method.
type Args map[string]any
