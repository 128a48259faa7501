// Package respond turns a provider response into a tool-calls result, a
// text result, or nothing (spec.md §4.8).
//
// Grounded on teacher pkg/engine/runtime/turn_runner.go's response
// classification branch (the tool-calls / text / empty split) and
// original_source/.../turn_processing/response_processing.rs for the
// harmony-wrapper stripping, proposed-plan extraction, textual-tool-call
// recovery, and interview-question synthesis steps. The two Rust helpers
// response_processing.rs imports but does not define in this pack
// (extract_proposed_plan, split_reasoning_from_text) are authored here
// from spec.md §4.8's own wording rather than transliterated.
package respond

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vtcode-go/vtcode/internal/model"
	"github.com/vtcode-go/vtcode/internal/provider"
	"github.com/vtcode-go/vtcode/internal/textcall"
)

// RequestUserInputTool is the synthetic tool name used when the
// interview-question heuristic synthesizes a tool call from plain text.
const RequestUserInputTool = "request_user_input"

// Kind discriminates the three shapes a processed response can take.
type Kind string

const (
	KindToolCalls Kind = "tool_calls"
	KindText      Kind = "text"
	KindEmpty     Kind = "empty"
)

// Question is one structured entry synthesized from a plain-text interview
// prompt (spec.md §4.8 step 4).
type Question struct {
	ID            string   `json:"id"`
	Header        string   `json:"header"`
	Question      string   `json:"question"`
	FocusArea     string   `json:"focus_area,omitempty"`
	AnalysisHints []string `json:"analysis_hints,omitempty"`
}

// Result is the outcome of Process: exactly one of ToolCalls or Text is
// meaningful, selected by Kind.
type Result struct {
	Kind Kind

	ToolCalls     []model.ToolCall
	AssistantText string

	Text         string
	ProposedPlan string

	ReasoningToShow   string
	ReasoningToRetain json.RawMessage

	// Diagnostics are human-readable notes meant for the transcript (e.g.
	// "detected shell call but validation failed: ...").
	Diagnostics []string
}

// ValidateArgs runs the security/schema pre-check on a textually recovered
// tool call (spec.md §4.8 step 3). It returns a list of human-readable
// failure descriptions, or nil if the call is safe to synthesize. A nil
// ValidateArgs in Options skips this check entirely.
type ValidateArgs func(name string, args map[string]any) []string

// Options configures one Process call. ConversationLen seeds the
// synthetic tool-call ids so they stay stable and unique within a session.
type Options struct {
	PlanModeActive          bool
	AllowPlanInterview      bool
	RequestUserInputEnabled bool
	ConversationLen         int
	Validate                ValidateArgs
}

var harmonyMarkers = []string{"<|start|>", "<|channel|>", "<|call|>"}

// Process implements the §4.8 algorithm end to end.
func Process(resp provider.Response, opts Options) Result {
	finalText := resp.Content
	toolCalls := append([]model.ToolCall(nil), resp.ToolCalls...)
	var proposedPlan string
	var diagnostics []string
	interpretedTextual := false

	isHarmony := containsAny(finalText, harmonyMarkers)
	if isHarmony {
		finalText = stripHarmonySyntax(finalText)
	}

	if opts.PlanModeActive && len(toolCalls) == 0 {
		extraction := extractProposedPlan(finalText)
		finalText = extraction.StrippedText
		proposedPlan = extraction.PlanText
	}

	if len(toolCalls) == 0 && strings.TrimSpace(finalText) != "" {
		if candidate, ok := textcall.Detect(finalText); ok {
			if failures := validate(opts.Validate, candidate); len(failures) > 0 {
				diagnostics = append(diagnostics, fmt.Sprintf(
					"Detected %s but validation failed: %s",
					candidate.Name, strings.Join(failures, "; "),
				))
			} else {
				toolCalls = append(toolCalls, model.ToolCall{
					ID:        fmt.Sprintf("call_textual_%d", opts.ConversationLen),
					Name:      candidate.Name,
					Arguments: candidate.Arguments,
				})
				interpretedTextual = true
				finalText = ""
			}
		}
	}

	if !interpretedTextual && opts.AllowPlanInterview && opts.RequestUserInputEnabled && len(toolCalls) == 0 {
		if args, ok := buildInterviewArgs(finalText); ok {
			toolCalls = append(toolCalls, model.ToolCall{
				ID:        fmt.Sprintf("call_interview_%d", opts.ConversationLen),
				Name:      RequestUserInputTool,
				Arguments: args,
			})
			interpretedTextual = true
			finalText = ""
		}
	}

	show, retain := partitionReasoning(resp.Reasoning, resp.ReasoningDetails)

	if len(toolCalls) > 0 {
		assistantText := finalText
		if interpretedTextual {
			assistantText = ""
		}
		return Result{
			Kind:              KindToolCalls,
			ToolCalls:         toolCalls,
			AssistantText:     assistantText,
			ReasoningToShow:   show,
			ReasoningToRetain: retain,
			Diagnostics:       diagnostics,
		}
	}

	if strings.TrimSpace(finalText) != "" || isHarmony || proposedPlan != "" {
		return Result{
			Kind:              KindText,
			Text:              finalText,
			ProposedPlan:      proposedPlan,
			ReasoningToShow:   show,
			ReasoningToRetain: retain,
			Diagnostics:       diagnostics,
		}
	}

	return Result{Kind: KindEmpty, ReasoningToShow: show, ReasoningToRetain: retain, Diagnostics: diagnostics}
}

func validate(v ValidateArgs, candidate textcall.Candidate) []string {
	if v == nil {
		return nil
	}
	return v(candidate.Name, candidate.Arguments)
}

func containsAny(text string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(text, m) {
			return true
		}
	}
	return false
}

// stripHarmonySyntax removes Harmony-style channel wrapper tokens and the
// channel-routing text between them, leaving only the model's visible
// content. Grounded on spec.md §4.8 step 1's explicit marker list; the
// Rust original (harmony.rs) is not present in the retrieved pack, so this
// strips by marker rather than transliterating a known parser.
func stripHarmonySyntax(text string) string {
	var b strings.Builder
	rest := text
	for {
		start := strings.Index(rest, "<|start|>")
		if start == -1 {
			b.WriteString(rest)
			break
		}
		b.WriteString(rest[:start])
		afterStart := rest[start+len("<|start|>"):]

		callIdx := strings.Index(afterStart, "<|call|>")
		channelIdx := strings.Index(afterStart, "<|channel|>")
		cut := -1
		switch {
		case callIdx == -1 && channelIdx == -1:
			rest = ""
			continue
		case callIdx == -1:
			cut = channelIdx + len("<|channel|>")
		case channelIdx == -1:
			cut = callIdx + len("<|call|>")
		case channelIdx < callIdx:
			cut = channelIdx + len("<|channel|>")
		default:
			cut = callIdx + len("<|call|>")
		}
		rest = afterStart[cut:]
	}
	cleaned := b.String()
	cleaned = strings.ReplaceAll(cleaned, "<|start|>", "")
	cleaned = strings.ReplaceAll(cleaned, "<|channel|>", "")
	cleaned = strings.ReplaceAll(cleaned, "<|call|>", "")
	return strings.TrimSpace(cleaned)
}

// partitionReasoning splits a response's reasoning into the portion shown
// in the transcript and the portion retained as opaque details re-sent on
// later turns. Per DESIGN.md's Open Question decision 1, this module keeps
// both the full text and the full details; there is no further split.
func partitionReasoning(reasoning string, details json.RawMessage) (string, json.RawMessage) {
	return reasoning, details
}
