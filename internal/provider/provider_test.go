package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vtcode-go/vtcode/internal/model"
)

func TestDropOrphanToolMessages(t *testing.T) {
	messages := []model.Message{
		{Role: model.RoleUser, Text: "hi"},
		{Role: model.RoleAssistant, ToolCalls: []model.ToolCall{{ID: "1", Name: "shell"}}},
		{Role: model.RoleTool, ToolCallID: "1", Text: "ok"},
		{Role: model.RoleTool, ToolCallID: "stale", Text: "orphan"},
	}
	out := DropOrphanToolMessages(messages)
	assert.Len(t, out, 3)
	for _, m := range out {
		assert.NotEqual(t, "stale", m.ToolCallID)
	}
}

func TestConcatenateSystemMessages(t *testing.T) {
	messages := []model.Message{
		{Role: model.RoleSystem, Text: "be terse"},
		{Role: model.RoleSystem, Text: "be precise"},
		{Role: model.RoleUser, Text: "hi"},
	}
	sys, rest := ConcatenateSystemMessages("base prompt", messages)
	assert.Equal(t, "base prompt\n\nbe terse\n\nbe precise", sys)
	assert.Len(t, rest, 1)
}

func TestPrepareThinkingBudget(t *testing.T) {
	assert.Equal(t, 1024, PrepareThinkingBudget(0, 2000))
	assert.Equal(t, 1024, PrepareThinkingBudget(10, 2000))
	assert.Equal(t, 1900, PrepareThinkingBudget(5000, 2000))
	assert.Equal(t, 0, PrepareThinkingBudget(500, 1000))
}

func TestInjectStructuredOutputTool(t *testing.T) {
	req := Request{OutputFormat: map[string]any{"type": "object"}}
	out := InjectStructuredOutputTool(req)
	assert.Len(t, out.Tools, 1)
	assert.Equal(t, StructuredOutputToolName, out.Tools[0].Name)
	assert.Equal(t, ToolChoiceSpecific, out.ToolChoice.Mode)

	noop := InjectStructuredOutputTool(Request{})
	assert.Empty(t, noop.Tools)
}
