// Package provider gives the turn loop a single request/response shape
// across LLM backends, hiding each one's wire format behind the Provider
// interface (spec.md §4.2).
//
// Grounded on teacher pkg/engine/runtime/llm_openai.go (the LLMRequest /
// LLMChunk / LLMStream shapes this package generalizes) and
// goadesign-goa-ai features/model/anthropic/client.go (the
// Complete/Stream dual entrypoint split, canonical-name mapping, and
// thinking-budget handling this package's Anthropic adapter builds on).
package provider

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/vtcode-go/vtcode/internal/model"
)

// ToolChoiceMode selects how strongly a request steers the model toward
// calling a tool.
type ToolChoiceMode string

const (
	ToolChoiceAuto     ToolChoiceMode = "auto"
	ToolChoiceNone     ToolChoiceMode = "none"
	ToolChoiceAny      ToolChoiceMode = "any"
	ToolChoiceSpecific ToolChoiceMode = "specific"
)

// ToolChoice pins tool-selection behavior for one request.
type ToolChoice struct {
	Mode ToolChoiceMode
	Name string // only used when Mode == ToolChoiceSpecific
}

// ReasoningEffort is the requested depth of a model's internal reasoning.
type ReasoningEffort string

const (
	ReasoningNone    ReasoningEffort = ""
	ReasoningMinimal ReasoningEffort = "minimal"
	ReasoningLow     ReasoningEffort = "low"
	ReasoningMedium  ReasoningEffort = "medium"
	ReasoningHigh    ReasoningEffort = "high"
	ReasoningXHigh   ReasoningEffort = "xhigh"
)

// FinishReason is the normalized reason a generation ended.
type FinishReason string

const (
	FinishStop          FinishReason = "stop"
	FinishLength        FinishReason = "length"
	FinishToolCalls     FinishReason = "tool_calls"
	FinishContentFilter FinishReason = "content_filter"
	FinishError         FinishReason = "error"
)

// ToolSpec is the wire-facing description of a tool a request makes
// available to the model; distinct from model.ToolDefinition, which also
// carries policy fields the provider layer has no business seeing.
type ToolSpec struct {
	Name        string
	Description string
	Schema      map[string]any
}

// ThinkingConfig requests an extended-reasoning budget. BudgetTokens is
// capped to MaxTokens-100 and floored at 1024 by PrepareThinkingBudget
// before being sent on the wire (spec.md §4.2).
type ThinkingConfig struct {
	Enable       bool
	BudgetTokens int
}

// CachingConfig enables prompt-caching breakpoints on a request.
type CachingConfig struct {
	Enabled     bool
	TTLSeconds  int
	MaxBreakpoints int
}

// CodingAgentSettings carries the small set of coding-agent-specific
// steering knobs the spec groups under "coding_agent_settings".
type CodingAgentSettings struct {
	Role              string
	Prefill           string
	StrictGrounding   bool
	CharacterReinforce bool
}

// Request is the provider-agnostic generation request (spec.md §4.2).
type Request struct {
	Messages     []model.Message
	System       string
	Tools        []ToolSpec
	Model        string
	MaxTokens    int
	Temperature  float64
	Stream       bool
	ToolChoice   ToolChoice
	Reasoning    ReasoningEffort
	Verbosity    string
	OutputFormat map[string]any // JSON-Schema, or nil
	Agent        CodingAgentSettings
	Parallel     *bool // nil means provider default
	Thinking     *ThinkingConfig
	Caching      CachingConfig
}

// Usage reports token accounting for one response.
type Usage struct {
	PromptTokens      int
	CompletionTokens  int
	TotalTokens       int
	CachedPromptTokens int
	CacheCreationTokens int
	CacheReadTokens     int
}

// Response is the provider-agnostic generation result (spec.md §4.2).
type Response struct {
	Content          string
	ToolCalls        []model.ToolCall
	Model            string
	Usage            Usage
	FinishReason     FinishReason
	Reasoning        string
	ReasoningDetails json.RawMessage
	ToolReferences   []string
}

// ChunkType discriminates a streamed Chunk's payload.
type ChunkType string

const (
	ChunkText         ChunkType = "text"
	ChunkToolCallDelta ChunkType = "tool_call_delta"
	ChunkToolCall     ChunkType = "tool_call"
	ChunkThinking     ChunkType = "thinking"
	ChunkUsage        ChunkType = "usage"
	ChunkStop         ChunkType = "stop"
)

// Chunk is one increment of a streamed response.
type Chunk struct {
	Type         ChunkType
	Text         string
	ToolCall     *model.ToolCall
	ToolCallID   string
	ToolCallName string
	ArgsDelta    string
	Thinking     string
	Usage        *Usage
	FinishReason FinishReason
}

// Streamer yields successive Chunks of one streaming generation. Recv
// returns io.EOF once the stream is exhausted.
type Streamer interface {
	Recv(ctx context.Context) (Chunk, error)
	Close() error
}

// Provider is the capability set every adapter implements (spec.md
// §4.2). All operations are safe for concurrent use.
type Provider interface {
	Name() string
	Generate(ctx context.Context, req Request) (Response, error)
	Stream(ctx context.Context, req Request) (Streamer, error)

	SupportsReasoning(modelID string) bool
	SupportsReasoningEffort(modelID string) bool
	SupportsStreaming() bool
	SupportsParallelToolConfig(modelID string) bool
	EffectiveContextSize(modelID string) int

	SupportedModels() []string
	ValidateRequest(req Request) error
}

// DropOrphanToolMessages removes Tool messages whose ToolCallID does not
// match a ToolCall emitted by a preceding Assistant message, per spec.md
// §4.2. Orphans are dropped from the wire-bound copy only; callers that
// need the full audit history should retain their own conversation log.
func DropOrphanToolMessages(messages []model.Message) []model.Message {
	active := make(map[string]bool)
	out := make([]model.Message, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case model.RoleAssistant:
			for _, tc := range m.ToolCalls {
				active[tc.ID] = true
			}
			out = append(out, m)
		case model.RoleTool:
			if active[m.ToolCallID] {
				out = append(out, m)
			}
		default:
			out = append(out, m)
		}
	}
	return out
}

// ConcatenateSystemMessages merges every System-role message in messages
// into sys (joined by a blank line) and returns the remaining messages
// with system entries removed, for providers that accept only a single
// instruction field (spec.md §4.2).
func ConcatenateSystemMessages(sys string, messages []model.Message) (string, []model.Message) {
	var parts []string
	if sys != "" {
		parts = append(parts, sys)
	}
	out := make([]model.Message, 0, len(messages))
	for _, m := range messages {
		if m.Role == model.RoleSystem {
			if text := m.PlainText(); text != "" {
				parts = append(parts, text)
			}
			continue
		}
		out = append(out, m)
	}
	return strings.Join(parts, "\n\n"), out
}

// PrepareThinkingBudget caps budget to maxTokens-100 and floors it at
// 1024, per spec.md §4.2. Returns 0 if the floor can't be met (maxTokens
// too small to host any budget), signaling the caller to disable
// thinking for this request rather than send an invalid one.
func PrepareThinkingBudget(budget, maxTokens int) int {
	ceiling := maxTokens - 100
	if ceiling < 1024 {
		return 0
	}
	if budget > ceiling {
		budget = ceiling
	}
	if budget < 1024 {
		budget = 1024
	}
	return budget
}

// StructuredOutputToolName is the synthetic tool injected when a request
// asks for OutputFormat but the target provider has no native
// structured-output field (spec.md §4.2).
const StructuredOutputToolName = "structured_output"

// InjectStructuredOutputTool appends a synthetic structured_output tool
// carrying req.OutputFormat as its schema and pins ToolChoice to it, for
// providers with no native structured-output support. No-op if
// OutputFormat is unset.
func InjectStructuredOutputTool(req Request) Request {
	if len(req.OutputFormat) == 0 {
		return req
	}
	req.Tools = append(req.Tools, ToolSpec{
		Name:        StructuredOutputToolName,
		Description: "Emit the final answer matching the required output schema.",
		Schema:      req.OutputFormat,
	})
	req.ToolChoice = ToolChoice{Mode: ToolChoiceSpecific, Name: StructuredOutputToolName}
	return req
}
