package turn

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ctxmgr "github.com/vtcode-go/vtcode/internal/context"
	"github.com/vtcode-go/vtcode/internal/diff"
	"github.com/vtcode-go/vtcode/internal/executor"
	"github.com/vtcode-go/vtcode/internal/model"
	"github.com/vtcode-go/vtcode/internal/provider"
	"github.com/vtcode-go/vtcode/internal/tools"
)

// fakeProvider returns a scripted sequence of non-streaming responses,
// one per call to Generate.
type fakeProvider struct {
	responses []provider.Response
	calls     int
}

func (p *fakeProvider) Name() string { return "fake" }
func (p *fakeProvider) Generate(ctx context.Context, req provider.Request) (provider.Response, error) {
	if p.calls >= len(p.responses) {
		return provider.Response{}, nil
	}
	resp := p.responses[p.calls]
	p.calls++
	return resp, nil
}
func (p *fakeProvider) Stream(ctx context.Context, req provider.Request) (provider.Streamer, error) {
	return nil, nil
}
func (p *fakeProvider) SupportsReasoning(string) bool            { return false }
func (p *fakeProvider) SupportsReasoningEffort(string) bool      { return false }
func (p *fakeProvider) SupportsStreaming() bool                  { return false }
func (p *fakeProvider) SupportsParallelToolConfig(string) bool   { return false }
func (p *fakeProvider) EffectiveContextSize(string) int          { return 100000 }
func (p *fakeProvider) SupportedModels() []string                { return []string{"fake-model"} }
func (p *fakeProvider) ValidateRequest(provider.Request) error   { return nil }

// echoTool is a trivial non-mutating tool used to exercise the
// dispatch-and-continue path.
type echoTool struct{ tools.BaseTool }

func newEchoTool() *echoTool {
	return &echoTool{BaseTool: tools.NewBaseTool("echo", "echoes its input", nil, model.PolicyAllow, false)}
}
func (echoTool) Execute(ctx context.Context, args model.Args) (tools.Result, error) {
	return tools.Success("echoed"), nil
}

func newTestEngine(t *testing.T, p *fakeProvider) *Engine {
	t.Helper()
	registry := tools.NewRegistry()
	require.NoError(t, registry.Register(newEchoTool()))

	tracker := diff.NewTracker()
	exec, err := executor.New(registry, tracker, 64)
	require.NoError(t, err)

	cfg := DefaultConfig()
	ctxManager := ctxmgr.NewManager(model.ContextBudget{MaxContextTokens: 100000, TrimToPercent: 0.5})

	e := NewEngine(p, exec, registry, ctxManager, tracker, cfg)
	e.Approver = executor.AutoApprover{}
	e.Trust = model.TrustFull
	e.SessionID = "test-session"
	return e
}

func TestRunTurn_PlainTextCompletes(t *testing.T) {
	p := &fakeProvider{responses: []provider.Response{
		{Content: "All done here."},
	}}
	e := newTestEngine(t, p)

	reason, err := e.RunTurn(context.Background(), "do the thing")
	require.NoError(t, err)
	assert.Equal(t, DoneCompleted, reason)

	msgs := e.Context.Messages()
	assert.Equal(t, model.RoleAssistant, msgs[len(msgs)-1].Role)
	assert.Equal(t, "All done here.", msgs[len(msgs)-1].Text)
}

func TestRunTurn_ToolCallThenText(t *testing.T) {
	p := &fakeProvider{responses: []provider.Response{
		{ToolCalls: []model.ToolCall{{ID: "call_1", Name: "echo", Arguments: map[string]any{"x": 1}}}},
		{Content: "Finished after tool use."},
	}}
	e := newTestEngine(t, p)

	reason, err := e.RunTurn(context.Background(), "run echo")
	require.NoError(t, err)
	assert.Equal(t, DoneCompleted, reason)

	var sawToolResult bool
	for _, m := range e.Context.Messages() {
		if m.Role == model.RoleTool && m.ToolCallID == "call_1" {
			sawToolResult = true
			assert.Equal(t, "echoed", m.Text)
		}
	}
	assert.True(t, sawToolResult)
}

func TestRunTurn_IdleGuardStopsEmptyResponses(t *testing.T) {
	p := &fakeProvider{responses: []provider.Response{{}, {}, {}}}
	e := newTestEngine(t, p)
	e.Cfg.IdleTurnLimit = 2

	reason, err := e.RunTurn(context.Background(), "say nothing")
	require.NoError(t, err)
	assert.Equal(t, DoneIdleGuard, reason)
}

func TestRunTurn_MaxToolLoopsGuard(t *testing.T) {
	resp := provider.Response{ToolCalls: []model.ToolCall{{ID: "call_x", Name: "echo", Arguments: map[string]any{}}}}
	many := make([]provider.Response, 10)
	for i := range many {
		many[i] = resp
	}
	p := &fakeProvider{responses: many}
	e := newTestEngine(t, p)
	e.Cfg.MaxToolLoops = 3

	reason, err := e.RunTurn(context.Background(), "loop forever")
	require.NoError(t, err)
	assert.Equal(t, DoneToolLoopGuard, reason)
}

func TestRunTurn_ResponseLoopDetected(t *testing.T) {
	p := &fakeProvider{responses: []provider.Response{
		{Content: "same answer"},
	}}
	// Seed the loop detector as if this exact text was already seen once.
	e := newTestEngine(t, p)
	e.loop.Observe("same answer")

	reason, err := e.RunTurn(context.Background(), "ask again")
	require.NoError(t, err)
	assert.Equal(t, DoneResponseLoop, reason)
}

func TestApplyRepeatedFollowupHeuristic_InjectsRecoveryNote(t *testing.T) {
	p := &fakeProvider{}
	e := newTestEngine(t, p)
	e.lastUserPrompt = "do the thing"
	e.lastTurnStalled = true

	e.Context.Append(model.Message{Role: model.RoleUser, Text: "do the thing"})
	msg := e.applyRepeatedFollowupHeuristic("do the thing")
	assert.Equal(t, "do the thing", msg)

	msgs := e.Context.Messages()
	assert.Contains(t, msgs[len(msgs)-1].Text, "stalled")
}
