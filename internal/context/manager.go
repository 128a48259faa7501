// Package context keeps a session's conversation within a model's
// effective context window while preserving tool-call-sequence integrity
// (spec.md §4.5).
//
// Grounded on teacher pkg/engine/runtime/compress.go: findTurnSplitIndex
// and findSafeMessageSplit are kept as the split algorithm (unmodified
// logic, retargeted from api.LLMMessage to model.Message). Diverges from
// the teacher in one respect: rather than one LLM-generated
// session-wide summary field, each compaction pass emits its own
// synthetic `"[compacted: N turns]"` system message carrying a
// deterministic plain-text digest of the turns it replaced (spec.md
// §4.5 names this derivation as synchronous, and Manager.Compact takes
// no LLM dependency), so repeated compaction passes leave a readable
// trail of notes rather than overwriting a single field.
package context

import (
	"fmt"
	"strings"

	"github.com/vtcode-go/vtcode/internal/model"
)

// Manager owns one session's message history and token budget.
type Manager struct {
	messages []model.Message
	budget   model.ContextBudget
}

// NewManager returns a Manager with the given budget and no messages.
func NewManager(budget model.ContextBudget) *Manager {
	return &Manager{budget: budget}
}

// Append adds a message to the end of the history.
func (m *Manager) Append(msg model.Message) {
	m.messages = append(m.messages, msg)
}

// Messages returns the current history.
func (m *Manager) Messages() []model.Message {
	return m.messages
}

// Clear empties the history.
func (m *Manager) Clear() {
	m.messages = nil
	m.budget.EstimatedUsage = 0
}

// SummarizeForProvider returns the message sequence to send to a
// provider: the given system prompt followed by the current history,
// with any orphaned Tool messages (whose ToolCallID answers no earlier
// Assistant tool call still in history) dropped.
func (m *Manager) SummarizeForProvider(systemPrompt string) []model.Message {
	out := make([]model.Message, 0, len(m.messages)+1)
	if systemPrompt != "" {
		out = append(out, model.Message{Role: model.RoleSystem, Text: systemPrompt})
	}

	known := map[string]bool{}
	for _, msg := range m.messages {
		for _, tc := range msg.ToolCalls {
			known[tc.ID] = true
		}
	}
	for _, msg := range m.messages {
		if msg.Role == model.RoleTool && !known[msg.ToolCallID] {
			continue
		}
		out = append(out, msg)
	}
	return out
}

// EstimateUsage returns the manager's current token-usage estimate.
func (m *Manager) EstimateUsage() int {
	return m.budget.EstimatedUsage
}

// SetUsage updates the estimate, typically from a provider response's
// usage field (spec.md §4.5 "updated lazily after each response").
func (m *Manager) SetUsage(tokens int) {
	m.budget.EstimatedUsage = tokens
}

// Budget returns the manager's current context budget, including its
// live EstimatedUsage field, for callers (the turn loop's context-limit
// guard) that need the raw figures rather than a single derived stat.
func (m *Manager) Budget() model.ContextBudget {
	return m.budget
}

// EstimateTokens is the per-provider fallback heuristic used when a
// response carries no usage field: roughly 4 characters per token.
func EstimateTokens(messages []model.Message) int {
	total := 0
	for _, msg := range messages {
		total += len(msg.PlainText()) / 4
		for _, p := range msg.Parts {
			total += len(p.Text) / 4
		}
	}
	return total
}

// Compact replaces every turn before the split point with a single
// synthetic system note per pass, repeating while estimated usage is
// above targetPercent of the budget's max and a split point remains,
// always preserving system messages
// and the last preserveRecentTurns turns. Returns the number of
// compaction passes performed.
func (m *Manager) Compact(preserveRecentTurns int, targetPercent float64) int {
	if preserveRecentTurns <= 0 {
		preserveRecentTurns = 1
	}
	target := int(float64(m.budget.MaxContextTokens) * targetPercent)

	passes := 0
	for m.budget.EstimatedUsage > target {
		splitIdx := findTurnSplitIndex(m.messages, preserveRecentTurns)
		if splitIdx == 0 || len(m.messages)-splitIdx > maxMessagesFor(target) {
			splitIdx = findSafeMessageSplit(m.messages, maxMessagesFor(target))
		}
		if splitIdx <= 0 {
			break
		}

		old := m.messages[:splitIdx]
		rest := m.messages[splitIdx:]

		note := summarize(old)
		turnCount := countTurns(old)

		compacted := make([]model.Message, 0, len(rest)+1)
		compacted = append(compacted, systemPrefix(m.messages)...)
		compacted = append(compacted, model.Message{
			Role: model.RoleSystem,
			Text: fmt.Sprintf("[compacted: %d turns] %s", turnCount, note),
		})
		compacted = append(compacted, stripLeadingSystems(rest)...)

		m.messages = compacted
		m.budget.EstimatedUsage = EstimateTokens(m.messages)
		passes++

		if passes > 64 {
			break
		}
	}
	return passes
}

func maxMessagesFor(targetTokens int) int {
	if targetTokens <= 0 {
		return 20
	}
	estimate := targetTokens / 50
	if estimate < 4 {
		return 4
	}
	return estimate
}

// systemPrefix returns the leading run of System messages already
// present (the original system prompt), which Compact never replaces.
func systemPrefix(messages []model.Message) []model.Message {
	i := 0
	for i < len(messages) && messages[i].Role == model.RoleSystem {
		i++
	}
	return append([]model.Message(nil), messages[:i]...)
}

func stripLeadingSystems(messages []model.Message) []model.Message {
	i := 0
	for i < len(messages) && messages[i].Role == model.RoleSystem {
		i++
	}
	return messages[i:]
}

// summarize derives a short plain-text digest of the replaced turns:
// each user message truncated, each assistant tool-call batch named.
func summarize(messages []model.Message) string {
	var b strings.Builder
	for _, msg := range messages {
		switch msg.Role {
		case model.RoleUser:
			b.WriteString(truncate(msg.PlainText(), 160))
			b.WriteString(" ")
		case model.RoleAssistant:
			if len(msg.ToolCalls) > 0 {
				names := make([]string, len(msg.ToolCalls))
				for i, tc := range msg.ToolCalls {
					names[i] = tc.Name
				}
				fmt.Fprintf(&b, "[used: %s] ", strings.Join(names, ", "))
			}
		}
	}
	return strings.TrimSpace(b.String())
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

func countTurns(messages []model.Message) int {
	count := 0
	for _, m := range messages {
		if m.Role == model.RoleUser {
			count++
		}
	}
	return count
}

// findTurnSplitIndex finds the index that keeps the last keepTurns
// user-led turns, never splitting inside an incomplete tool-call
// sequence. Ported from teacher's compress.go.
func findTurnSplitIndex(messages []model.Message, keepTurns int) int {
	var validSplits []int
	pending := make(map[string]bool)

	for i, msg := range messages {
		if msg.Role == model.RoleAssistant && len(msg.ToolCalls) > 0 {
			for _, tc := range msg.ToolCalls {
				pending[tc.ID] = true
			}
		}
		if msg.Role == model.RoleTool && msg.ToolCallID != "" {
			delete(pending, msg.ToolCallID)
		}
		if msg.Role == model.RoleUser && len(pending) == 0 {
			validSplits = append(validSplits, i)
		}
	}

	if len(validSplits) <= keepTurns {
		return 0
	}
	return validSplits[len(validSplits)-keepTurns]
}

// findSafeMessageSplit finds a split point keeping at most maxMessages,
// preferring the first valid user-message boundary at or after the
// target and falling back to the latest one before it.
func findSafeMessageSplit(messages []model.Message, maxMessages int) int {
	if len(messages) <= maxMessages {
		return 0
	}
	targetSplit := len(messages) - maxMessages

	var validSplits []int
	pending := make(map[string]bool)
	for i, msg := range messages {
		if msg.Role == model.RoleAssistant && len(msg.ToolCalls) > 0 {
			for _, tc := range msg.ToolCalls {
				pending[tc.ID] = true
			}
		}
		if msg.Role == model.RoleTool && msg.ToolCallID != "" {
			delete(pending, msg.ToolCallID)
		}
		if msg.Role == model.RoleUser && len(pending) == 0 {
			validSplits = append(validSplits, i)
		}
	}

	for _, split := range validSplits {
		if split >= targetSplit {
			return split
		}
	}
	for i := len(validSplits) - 1; i >= 0; i-- {
		if validSplits[i] > 0 {
			return validSplits[i]
		}
	}
	return 0
}
