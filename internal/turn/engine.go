package turn

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	ctxmgr "github.com/vtcode-go/vtcode/internal/context"
	"github.com/vtcode-go/vtcode/internal/diff"
	"github.com/vtcode-go/vtcode/internal/errkind"
	"github.com/vtcode-go/vtcode/internal/executor"
	"github.com/vtcode-go/vtcode/internal/model"
	"github.com/vtcode-go/vtcode/internal/provider"
	"github.com/vtcode-go/vtcode/internal/respond"
	"github.com/vtcode-go/vtcode/internal/telemetry"
	"github.com/vtcode-go/vtcode/internal/tools"
)

// Engine drives one session's turn/interaction loop (spec.md §4.1),
// wiring the provider abstraction, unified executor, context manager,
// turn-diff tracker, and response processor into the inner LLM<->tool
// loop. Grounded on teacher pkg/engine/runtime/turn_runner.go's
// agentLoop (970 lines, the teacher's largest file), generalized with
// the explicit guard set (idle-turn counter, tool-loop-streak cap,
// response-loop detector, context-budget guard) the teacher's loop
// doesn't have, and with synchronous in-process approval
// (executor.Approver) in place of the teacher's event-stream
// suspend/Resume split, since this module's Executor already blocks on
// approval internally rather than surfacing a pending-approval event.
type Engine struct {
	Provider provider.Provider
	Executor *executor.Executor
	Registry *tools.Registry
	Context  *ctxmgr.Manager
	Tracker  *diff.Tracker
	Approver executor.Approver

	Cfg    Config
	Policy model.PolicyConfig
	Trust  model.TrustLevel

	SessionID string

	// Metrics records turn/LLM-call/tool-call counters and histograms;
	// nil is safe (every Record call becomes a no-op).
	Metrics *telemetry.Metrics
	// Tracer opens a span per turn, per provider call, and per tool
	// invocation. NewEngine sets it to telemetry.Tracer("vtcode/turn"),
	// which is a no-op until a provider is installed globally; a nil
	// Tracer is not checked for and is called unconditionally.
	Tracer trace.Tracer

	// OnEvent, if set, receives every Event emitted during RunTurn.
	OnEvent func(Event)

	// ExpandRefs optionally expands @path references in a submitted
	// message into inline file content (spec.md §4.1 step 7). A nil
	// value leaves the message unchanged.
	ExpandRefs func(text string) string

	loop   *LoopDetector
	cancel *CancelController

	lastUserPrompt  string
	lastTurnStalled bool
	turnNumber      int
	invocationSeq   int
}

// NewEngine wires the components above into a ready-to-run Engine.
func NewEngine(provider provider.Provider, exec *executor.Executor, registry *tools.Registry, ctxManager *ctxmgr.Manager, tracker *diff.Tracker, cfg Config) *Engine {
	return &Engine{
		Provider: provider,
		Executor: exec,
		Registry: registry,
		Context:  ctxManager,
		Tracker:  tracker,
		Cfg:      cfg,
		Tracer:   telemetry.Tracer("vtcode/turn"),
		loop:     NewLoopDetector(cfg.LoopWindow),
		cancel:   NewCancelController(0),
	}
}

func (e *Engine) emit(ev Event) {
	if e.OnEvent != nil {
		e.OnEvent(ev)
	}
}

// Notify lets a component outside the turn loop (the MCP catalog's
// connect/register/health-check activity, spec.md §6) surface a
// transcript notice through the same diagnostic channel RunTurn uses,
// without exposing emit or the event sink directly.
func (e *Engine) Notify(message string) {
	e.emit(Event{Type: EventDiagnostic, Diagnostic: message})
}

// Cancel forwards a user interrupt to the turn's cancellation
// controller and returns how far it escalated (spec.md §4.1
// "Cancellation").
func (e *Engine) Cancel() CancelLevel {
	if e.cancel == nil {
		return CancelNone
	}
	return e.cancel.Signal()
}

// RunTurn drives one user prompt to completion: the repeated-follow-up
// heuristic, @path expansion, appending the user message, then the
// inner LLM<->tool loop until a yield condition or guard fires (spec.md
// §4.1 steps 6-10).
func (e *Engine) RunTurn(ctx context.Context, userMessage string) (DoneReason, error) {
	e.cancel.Reset()
	e.turnNumber++
	start := time.Now()

	ctx, span := telemetry.StartTurnSpan(ctx, e.Tracer, e.turnNumber, e.SessionID)

	message := e.applyRepeatedFollowupHeuristic(userMessage)
	if e.ExpandRefs != nil {
		message = e.ExpandRefs(message)
	}
	e.Context.Append(model.Message{Role: model.RoleUser, Text: message})

	reason, err := e.innerLoop(ctx)
	telemetry.EndSpan(span, err)
	e.lastTurnStalled = reason == DoneIdleGuard || reason == DoneToolLoopGuard || reason == DoneResponseLoop || reason == DoneError
	e.Metrics.RecordTurn(string(reason), time.Since(start))
	e.emit(Event{Type: EventDone, Done: &DonePayload{Reason: reason}})
	return reason, err
}

// applyRepeatedFollowupHeuristic implements spec.md §4.1 step 6: if the
// user resubmits the same or substantively identical prompt and the
// previous turn stalled, inject a recovery directive; if they resubmit
// it but the previous turn did not stall, inject a status-demand
// directive instead. Per DESIGN.md Open Question decision 2,
// "substantively identical" reuses the loop detector's normalization.
func (e *Engine) applyRepeatedFollowupHeuristic(prompt string) string {
	normalized := normalizeForLoopMatch(prompt)
	isRepeat := normalized != "" && normalized == normalizeForLoopMatch(e.lastUserPrompt)
	e.lastUserPrompt = prompt

	if !isRepeat {
		return prompt
	}
	if e.lastTurnStalled {
		e.Context.Append(model.Message{
			Role: model.RoleSystem,
			Text: "The previous attempt at this request stalled. Diagnose what blocked progress and continue autonomously without re-asking the user the same question.",
		})
	} else {
		e.Context.Append(model.Message{
			Role: model.RoleSystem,
			Text: "The user resubmitted the same request. Report concrete status on what has been done so far before proceeding further.",
		})
	}
	return prompt
}

// innerLoop is the LLM<->tool loop of spec.md §4.1 step 10.
func (e *Engine) innerLoop(ctx context.Context) (DoneReason, error) {
	turnsExecuted := 0
	idleTurns := 0
	toolLoopStreak := 0

	for {
		if turnsExecuted >= e.Cfg.MaxConversationTurns {
			return DoneTurnGuard, nil
		}
		if idleTurns >= e.Cfg.IdleTurnLimit {
			return DoneIdleGuard, nil
		}
		if toolLoopStreak >= e.Cfg.MaxToolLoops {
			return DoneToolLoopGuard, nil
		}
		if e.cancel.Level() >= CancelTurn {
			return DoneCancelled, nil
		}

		if util := e.Context.Budget().UtilizationPercent(); util >= e.Cfg.ContextForcePercent {
			e.Context.Compact(e.Cfg.CompactPreserveTurns, e.Context.Budget().TrimToPercent)
			e.emit(Event{Type: EventDiagnostic, Diagnostic: "context budget exceeded; compacted older turns"})
		} else if util >= e.Cfg.ContextWarnPercent {
			e.emit(Event{Type: EventDiagnostic, Diagnostic: "context budget above warning threshold"})
		}

		turnCtx := e.cancel.TurnContext(ctx)

		resp, err := e.callProvider(turnCtx)
		if err != nil {
			if turnCtx.Err() != nil {
				return DoneCancelled, nil
			}
			e.emit(Event{Type: EventError, Error: &ErrorPayload{Kind: string(errkind.KindOf(err)), Message: err.Error()}})
			return DoneError, err
		}

		result := respond.Process(resp, respond.Options{
			PlanModeActive:          e.Cfg.PlanModeActive,
			AllowPlanInterview:      e.Cfg.AllowPlanInterview,
			RequestUserInputEnabled: e.Cfg.RequestUserInputEnabled,
			ConversationLen:         len(e.Context.Messages()),
		})
		for _, d := range result.Diagnostics {
			e.emit(Event{Type: EventDiagnostic, Diagnostic: d})
		}
		turnsExecuted++

		switch result.Kind {
		case respond.KindEmpty:
			idleTurns++
			toolLoopStreak = 0

		case respond.KindText:
			e.Context.Append(model.Message{
				Role:             model.RoleAssistant,
				Text:             result.Text,
				Reasoning:        result.ReasoningToShow,
				ReasoningDetails: result.ReasoningToRetain,
			})
			if e.loop.Observe(result.Text) {
				return DoneResponseLoop, nil
			}
			return DoneCompleted, nil

		case respond.KindToolCalls:
			idleTurns = 0
			toolLoopStreak++
			e.Context.Append(model.Message{
				Role:             model.RoleAssistant,
				Text:             result.AssistantText,
				ToolCalls:        result.ToolCalls,
				Reasoning:        result.ReasoningToShow,
				ReasoningDetails: result.ReasoningToRetain,
			})
			e.dispatchToolCalls(turnCtx, result.ToolCalls)
		}
	}
}

// callProvider builds a request from the current context and dispatches
// it via Stream when the provider supports it, falling back to Generate.
func (e *Engine) callProvider(ctx context.Context) (provider.Response, error) {
	req := provider.Request{
		Messages:  e.Context.SummarizeForProvider(""),
		System:    e.Cfg.SystemPrompt,
		Tools:     e.visibleToolSpecs(),
		Model:     e.Cfg.Model,
		MaxTokens: e.Cfg.MaxTokens,
		Temperature: e.Cfg.Temperature,
		Stream:    e.Provider.SupportsStreaming(),
		Caching:   e.Cfg.Caching,
	}

	start := time.Now()
	ctx, span := telemetry.StartLLMSpan(ctx, e.Tracer, e.Provider.Name(), req.Model)
	resp, err := e.doCallProvider(ctx, req)
	telemetry.EndSpan(span, err)
	e.Metrics.RecordLLMCall(e.Provider.Name(), req.Model, time.Since(start), err)
	return resp, err
}

func (e *Engine) doCallProvider(ctx context.Context, req provider.Request) (provider.Response, error) {
	if !req.Stream {
		return e.Provider.Generate(ctx, req)
	}

	stream, err := e.Provider.Stream(ctx, req)
	if err != nil {
		return provider.Response{}, err
	}
	defer stream.Close()
	return e.drainStream(ctx, stream)
}

// drainStream accumulates a Streamer's chunks into one Response, emitting
// Delta/Thinking events as text and tool-argument fragments arrive.
func (e *Engine) drainStream(ctx context.Context, stream provider.Streamer) (provider.Response, error) {
	var resp provider.Response
	for {
		chunk, err := stream.Recv(ctx)
		if err != nil {
			if err == io.EOF {
				return resp, nil
			}
			return provider.Response{}, err
		}
		switch chunk.Type {
		case provider.ChunkText:
			resp.Content += chunk.Text
			e.emit(Event{Type: EventDelta, Delta: &DeltaPayload{Text: chunk.Text, Source: DeltaText}})
		case provider.ChunkThinking:
			resp.Reasoning += chunk.Thinking
			e.emit(Event{Type: EventDelta, Delta: &DeltaPayload{Text: chunk.Thinking, Source: DeltaThink}})
		case provider.ChunkToolCallDelta:
			e.emit(Event{Type: EventDelta, Delta: &DeltaPayload{Text: chunk.ArgsDelta, Source: DeltaToolArg}})
		case provider.ChunkToolCall:
			if chunk.ToolCall != nil {
				resp.ToolCalls = append(resp.ToolCalls, *chunk.ToolCall)
			}
		case provider.ChunkUsage:
			if chunk.Usage != nil {
				resp.Usage = *chunk.Usage
			}
		case provider.ChunkStop:
			resp.FinishReason = chunk.FinishReason
			return resp, nil
		}
	}
}

// visibleToolSpecs converts every registered tool's definition into the
// wire-agnostic ToolSpec shape the provider abstraction consumes.
func (e *Engine) visibleToolSpecs() []provider.ToolSpec {
	all := e.Registry.All()
	specs := make([]provider.ToolSpec, 0, len(all))
	for _, t := range all {
		def := t.Definition()
		specs = append(specs, provider.ToolSpec{Name: def.Name, Description: def.Description, Schema: def.Schema})
	}
	return specs
}

// dispatchToolCalls runs calls through the unified executor and appends
// one tool-result message per call, in call order (spec.md §5
// "Ordering guarantees"). A batch where every call is non-mutating may
// run concurrently (spec.md §4.3 "Parallel execution"); any mutating
// call in the batch degrades the whole batch to serial.
func (e *Engine) dispatchToolCalls(ctx context.Context, calls []model.ToolCall) {
	if len(calls) == 0 {
		return
	}
	if len(calls) > 1 && e.allParallelSafe(calls) {
		e.dispatchParallel(ctx, calls)
		return
	}
	e.dispatchSerial(ctx, calls)
}

func (e *Engine) allParallelSafe(calls []model.ToolCall) bool {
	for _, tc := range calls {
		t, ok := e.Registry.Get(tc.Name)
		if !ok || t.Definition().Mutating {
			return false
		}
	}
	return true
}

func (e *Engine) dispatchSerial(ctx context.Context, calls []model.ToolCall) {
	for _, tc := range calls {
		e.Context.Append(e.executeOne(ctx, tc))
	}
}

func (e *Engine) dispatchParallel(ctx context.Context, calls []model.ToolCall) {
	messages := make([]model.Message, len(calls))
	var wg sync.WaitGroup
	for i, tc := range calls {
		wg.Add(1)
		go func(i int, tc model.ToolCall) {
			defer wg.Done()
			messages[i] = e.executeOne(ctx, tc)
		}(i, tc)
	}
	wg.Wait()
	for _, msg := range messages {
		e.Context.Append(msg)
	}
}

// executeOne runs a single tool call through the executor, emitting the
// ToolCall/ToolResult events and returning the tool-result message to
// append to conversation history.
func (e *Engine) executeOne(ctx context.Context, tc model.ToolCall) model.Message {
	e.emit(Event{Type: EventToolCall, ToolCall: &ToolCallPayload{ID: tc.ID, Name: tc.Name, Args: tc.Arguments}})

	toolCtx := e.cancel.ToolContext(ctx)
	e.invocationSeq++
	execCtx := model.ExecutionContext{
		TrustLevel:        e.Trust,
		Policy:            e.Policy,
		InvocationID:      fmt.Sprintf("inv_%d_%d", e.turnNumber, e.invocationSeq),
		SessionID:         e.SessionID,
		TurnNumber:        e.turnNumber,
		Attempt:           1,
		CreatedAtUnixNano: time.Now().UnixNano(),
	}

	spanCtx, span := telemetry.StartToolSpan(toolCtx, e.Tracer, tc.Name, execCtx)
	result, err := e.Executor.Execute(spanCtx, tc.Name, model.Args(tc.Arguments), execCtx, e.Approver)
	telemetry.EndSpan(span, err)
	e.Metrics.RecordToolCall(tc.Name, result.Duration, result.WasCached, err)
	if err != nil {
		e.emit(Event{Type: EventToolResult, ToolResult: &ToolResultPayload{
			ID: tc.ID, Name: tc.Name, Success: false, Error: err.Error(),
		}})
		return model.Message{Role: model.RoleTool, Text: err.Error(), ToolCallID: tc.ID}
	}

	e.emit(Event{Type: EventToolResult, ToolResult: &ToolResultPayload{
		ID: tc.ID, Name: tc.Name, Success: !result.Value.IsError,
		Duration: result.Duration.Seconds(), Cached: result.WasCached,
	}})
	return model.Message{Role: model.RoleTool, Text: result.Value.Content, ToolCallID: tc.ID}
}
