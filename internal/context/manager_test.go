package context

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vtcode-go/vtcode/internal/model"
)

func userMsg(text string) model.Message { return model.Message{Role: model.RoleUser, Text: text} }
func assistantMsg(text string) model.Message {
	return model.Message{Role: model.RoleAssistant, Text: text}
}

func TestManager_AppendAndMessages(t *testing.T) {
	m := NewManager(model.ContextBudget{MaxContextTokens: 1000, TrimToPercent: 0.5})
	m.Append(userMsg("hi"))
	m.Append(assistantMsg("hello"))
	assert.Len(t, m.Messages(), 2)
}

func TestManager_CompactPreservesSystemAndRecentTurns(t *testing.T) {
	m := NewManager(model.ContextBudget{MaxContextTokens: 100, TrimToPercent: 0.5})
	m.Append(model.Message{Role: model.RoleSystem, Text: "you are an agent"})
	for i := 0; i < 6; i++ {
		m.Append(userMsg("question number with some padding text to add length"))
		m.Append(assistantMsg("answer number with some padding text to add length"))
	}
	m.SetUsage(EstimateTokens(m.Messages()))
	require.True(t, m.EstimateUsage() > 50)

	passes := m.Compact(1, 0.5)
	assert.Greater(t, passes, 0)

	msgs := m.Messages()
	require.NotEmpty(t, msgs)
	assert.Equal(t, model.RoleSystem, msgs[0].Role)
	assert.Contains(t, msgs[0].Text, "you are an agent")

	found := false
	for _, msg := range msgs {
		if msg.Role == model.RoleSystem && len(msg.Text) > 0 && containsCompactedTag(msg.Text) {
			found = true
		}
	}
	assert.True(t, found, "expected a synthetic compacted note")

	last := msgs[len(msgs)-1]
	assert.Equal(t, model.RoleAssistant, last.Role)
}

func containsCompactedTag(s string) bool {
	return len(s) >= len("[compacted:") && s[:len("[compacted:")] == "[compacted:"
}

func TestFindTurnSplitIndex_NeverSplitsInsideToolCallSequence(t *testing.T) {
	messages := []model.Message{
		userMsg("go"),
		{Role: model.RoleAssistant, ToolCalls: []model.ToolCall{{ID: "1", Name: "read_file"}}},
		{Role: model.RoleTool, ToolCallID: "1", Text: "ok"},
		userMsg("go again"),
	}
	idx := findTurnSplitIndex(messages, 1)
	assert.Equal(t, 3, idx)
}

func TestSummarizeForProvider_DropsOrphanToolMessages(t *testing.T) {
	m := NewManager(model.ContextBudget{MaxContextTokens: 1000, TrimToPercent: 0.5})
	m.Append(userMsg("hi"))
	m.Append(model.Message{Role: model.RoleTool, ToolCallID: "orphan", Text: "leftover"})
	m.Append(assistantMsg("hello"))

	out := m.SummarizeForProvider("system prompt")
	for _, msg := range out {
		assert.NotEqual(t, "orphan", msg.ToolCallID)
	}
	assert.Equal(t, model.RoleSystem, out[0].Role)
}
