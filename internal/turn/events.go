package turn

import "github.com/vtcode-go/vtcode/internal/model"

// EventType discriminates the payload carried by an Event. Grounded on
// teacher pkg/engine/api's Event/EventType shape (EventDelta, EventToolCall,
// EventToolResult, EventError, EventDone), generalized with EventDiagnostic
// for the transcript notices §4.8/§4.9 surface (validation failures, loop
// detection) that the teacher has no equivalent for.
type EventType string

const (
	EventDelta      EventType = "delta"
	EventToolCall   EventType = "tool_call"
	EventToolResult EventType = "tool_result"
	EventDiagnostic EventType = "diagnostic"
	EventError      EventType = "error"
	EventDone       EventType = "done"
)

// DeltaSource distinguishes streamed assistant text from streamed tool
// argument fragments, so a renderer can style them differently.
type DeltaSource string

const (
	DeltaText    DeltaSource = "text"
	DeltaToolArg DeltaSource = "tool_arg"
	DeltaThink   DeltaSource = "thinking"
)

type DeltaPayload struct {
	Text   string
	Source DeltaSource
}

type ToolCallPayload struct {
	ID   string
	Name string
	Args map[string]any
}

type ToolResultPayload struct {
	ID       string
	Name     string
	Result   model.ToolCall
	Success  bool
	Error    string
	Duration float64 // seconds
	Cached   bool
}

type ErrorPayload struct {
	Kind    string
	Message string
}

// DoneReason explains why a turn's inner loop stopped.
type DoneReason string

const (
	DoneCompleted     DoneReason = "completed"
	DoneCancelled     DoneReason = "cancelled"
	DoneTurnGuard     DoneReason = "max_turns"
	DoneIdleGuard     DoneReason = "idle_limit"
	DoneToolLoopGuard DoneReason = "tool_loop_limit"
	DoneResponseLoop  DoneReason = "response_loop"
	DoneError         DoneReason = "error"
)

type DonePayload struct {
	Reason DoneReason
}

// Event is one notification the Engine emits as a turn progresses. A nil
// OnEvent sink on Engine is valid; emission becomes a no-op.
type Event struct {
	Type       EventType
	Delta      *DeltaPayload
	ToolCall   *ToolCallPayload
	ToolResult *ToolResultPayload
	Diagnostic string
	Error      *ErrorPayload
	Done       *DonePayload
}
