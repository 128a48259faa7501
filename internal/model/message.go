// Package model holds the conversation and tool data types shared across
// the provider, executor, context-manager, and turn-loop packages (spec.md
// §3 DATA MODEL).
package model

import "encoding/json"

// Role identifies who authored a Message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// PartKind distinguishes the shape of a ContentPart.
type PartKind string

const (
	PartText  PartKind = "text"
	PartImage PartKind = "image"
	PartFile  PartKind = "file"
)

// ContentPart is one element of a Message's multi-part content.
type ContentPart struct {
	Kind PartKind `json:"kind"`
	Text string   `json:"text,omitempty"`
	// URI or base64 payload, meaning depends on Kind.
	Data     string `json:"data,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
	Name     string `json:"name,omitempty"`
}

// ToolCall is an opaque request from the assistant to invoke a tool.
type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// Message is one turn of conversation history.
//
// Invariant (spec.md §3): every Tool message's ToolCallID must refer to a
// tool-call emitted by an earlier Assistant message in the same
// conversation; orphan Tool messages are dropped before transmission to a
// provider (see provider.DropOrphanToolMessages).
type Message struct {
	Role Role `json:"role"`

	// Content is either plain text (Text non-empty, Parts nil) or an
	// ordered sequence of parts. Exactly one of the two is used.
	Text  string        `json:"text,omitempty"`
	Parts []ContentPart `json:"parts,omitempty"`

	// Assistant-only.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	// Tool-only: the id this result answers.
	ToolCallID string `json:"tool_call_id,omitempty"`

	// Assistant-only reasoning. ReasoningDetails is opaque and preserved
	// verbatim across turns (spec.md §4.2, §9 open question 1).
	Reasoning        string          `json:"reasoning,omitempty"`
	ReasoningDetails json.RawMessage `json:"reasoning_details,omitempty"`
}

// PlainText returns the message's textual content, concatenating Parts of
// kind PartText when Text itself is empty.
func (m Message) PlainText() string {
	if m.Text != "" {
		return m.Text
	}
	out := ""
	for _, p := range m.Parts {
		if p.Kind == PartText {
			out += p.Text
		}
	}
	return out
}

// IsEmpty reports whether the message carries no text, parts, or tool calls.
func (m Message) IsEmpty() bool {
	return m.PlainText() == "" && len(m.Parts) == 0 && len(m.ToolCalls) == 0
}
