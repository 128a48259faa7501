// Package anthropic adapts provider.Request/Response onto Anthropic's
// Messages API via github.com/anthropics/anthropic-sdk-go.
//
// Grounded directly on goadesign-goa-ai features/model/anthropic/client.go:
// the MessagesClient narrowing interface, the Complete/Stream split
// sharing one prepareRequest, the canonical/sanitized tool-name maps, and
// isRateLimited-style classification are all carried over; the
// thinking-budget validation is replaced with provider.PrepareThinkingBudget's
// cap-and-floor per spec.md §4.2 rather than goa-ai's reject-on-violation.
package anthropic

import (
	"context"
	"encoding/json"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"

	"github.com/vtcode-go/vtcode/internal/errkind"
	"github.com/vtcode-go/vtcode/internal/model"
	"github.com/vtcode-go/vtcode/internal/provider"
)

// MessagesClient captures the subset of the Anthropic SDK used by the
// adapter, so tests can substitute a fake.
type MessagesClient interface {
	New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
	NewStreaming(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) *ssestream.Stream[sdk.MessageStreamEventUnion]
}

// Options configures adapter defaults.
type Options struct {
	DefaultModel       string
	Models             []string
	ContextSizes       map[string]int
	DefaultContextSize int
	DefaultMaxTokens   int
	DefaultTemperature float64
	DefaultThinking    int64
}

// Client implements provider.Provider on top of Anthropic Messages.
type Client struct {
	msg  MessagesClient
	opts Options
}

// New builds an Anthropic-backed provider client.
func New(msg MessagesClient, opts Options) (*Client, error) {
	if msg == nil {
		return nil, errkind.New(errkind.InvalidRequest, "anthropic client is required")
	}
	if opts.DefaultModel == "" {
		return nil, errkind.New(errkind.InvalidRequest, "default model identifier is required")
	}
	if opts.DefaultContextSize == 0 {
		opts.DefaultContextSize = 200_000
	}
	return &Client{msg: msg, opts: opts}, nil
}

// NewFromAPIKey builds a client using Anthropic's default HTTP transport.
func NewFromAPIKey(apiKey string, opts Options) (*Client, error) {
	if apiKey == "" {
		return nil, errkind.New(errkind.Authentication, "anthropic api key is required")
	}
	ac := sdk.NewClient(option.WithAPIKey(apiKey))
	return New(&ac.Messages, opts)
}

func (c *Client) Name() string { return "anthropic" }

func (c *Client) SupportsReasoning(string) bool       { return true }
func (c *Client) SupportsReasoningEffort(string) bool { return true }
func (c *Client) SupportsStreaming() bool             { return true }
func (c *Client) SupportsParallelToolConfig(string) bool {
	return true
}

func (c *Client) EffectiveContextSize(modelID string) int {
	if size, ok := c.opts.ContextSizes[modelID]; ok {
		return size
	}
	return c.opts.DefaultContextSize
}

func (c *Client) SupportedModels() []string {
	if len(c.opts.Models) > 0 {
		return append([]string(nil), c.opts.Models...)
	}
	return []string{c.opts.DefaultModel}
}

func (c *Client) ValidateRequest(req provider.Request) error {
	if len(req.Messages) == 0 {
		return errkind.New(errkind.InvalidRequest, "request has no messages")
	}
	return nil
}

// Generate issues a non-streaming Messages.New call.
func (c *Client) Generate(ctx context.Context, req provider.Request) (provider.Response, error) {
	params, provToCanon, err := c.prepareRequest(req)
	if err != nil {
		return provider.Response{}, err
	}
	msg, err := c.msg.New(ctx, *params)
	if err != nil {
		return provider.Response{}, classifySDKError(err)
	}
	return translateResponse(msg, provToCanon), nil
}

// Stream invokes Messages.NewStreaming and adapts events into chunks.
func (c *Client) Stream(ctx context.Context, req provider.Request) (provider.Streamer, error) {
	params, provToCanon, err := c.prepareRequest(req)
	if err != nil {
		return nil, err
	}
	sdkStream := c.msg.NewStreaming(ctx, *params)
	return newStreamer(ctx, sdkStream, provToCanon), nil
}

func (c *Client) prepareRequest(req provider.Request) (*sdk.MessageNewParams, map[string]string, error) {
	if err := c.ValidateRequest(req); err != nil {
		return nil, nil, err
	}
	modelID := req.Model
	if modelID == "" {
		modelID = c.opts.DefaultModel
	}

	toolParams, canonToProv, provToCanon, err := encodeTools(req.Tools)
	if err != nil {
		return nil, nil, err
	}

	sys, rest := provider.ConcatenateSystemMessages(req.System, req.Messages)
	rest = provider.DropOrphanToolMessages(rest)

	msgs, err := encodeMessages(rest, canonToProv)
	if err != nil {
		return nil, nil, err
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.opts.DefaultMaxTokens
	}
	if maxTokens <= 0 {
		return nil, nil, errkind.New(errkind.InvalidRequest, "max_tokens must be positive")
	}

	params := sdk.MessageNewParams{
		MaxTokens: int64(maxTokens),
		Messages:  msgs,
		Model:     sdk.Model(modelID),
	}
	if sys != "" {
		params.System = []sdk.TextBlockParam{{Text: sys}}
	}
	if len(toolParams) > 0 {
		params.Tools = toolParams
	}

	thinkingEnabled := req.Thinking != nil && req.Thinking.Enable
	if thinkingEnabled {
		requested := req.Thinking.BudgetTokens
		if requested <= 0 {
			requested = int(c.opts.DefaultThinking)
		}
		budget := provider.PrepareThinkingBudget(requested, maxTokens)
		if budget > 0 {
			params.Thinking = sdk.ThinkingConfigParamOfEnabled(int64(budget))
		} else {
			thinkingEnabled = false
		}
	}
	if !thinkingEnabled {
		temp := req.Temperature
		if temp <= 0 {
			temp = c.opts.DefaultTemperature
		}
		if temp > 0 {
			params.Temperature = sdk.Float(temp)
		}
	}

	if req.ToolChoice.Mode != "" && req.ToolChoice.Mode != provider.ToolChoiceAuto {
		tc, err := encodeToolChoice(req.ToolChoice, canonToProv)
		if err != nil {
			return nil, nil, err
		}
		params.ToolChoice = tc
	}
	applyPromptCaching(req.Caching, &params)
	return &params, provToCanon, nil
}

// applyPromptCaching attaches cache_control breakpoints to tool
// definitions, the system prompt, and the largest (or, if tied, oldest)
// user message, up to Caching.MaxBreakpoints total, per spec.md §4.2's
// prompt-caching requirement. No-op unless caching is enabled; this is
// the only adapter wired up, since the Anthropic Messages API is the
// one SDK among this module's providers that accepts cache_control at
// all (spec.md §9's breakpoint-bookkeeping note).
func applyPromptCaching(cfg provider.CachingConfig, params *sdk.MessageNewParams) {
	if !cfg.Enabled {
		return
	}
	remaining := cfg.MaxBreakpoints
	if remaining <= 0 {
		remaining = 4
	}
	cc := cacheControlFor(cfg.TTLSeconds)

	if remaining > 0 && len(params.Tools) > 0 {
		last := &params.Tools[len(params.Tools)-1]
		if last.OfTool != nil {
			last.OfTool.CacheControl = cc
			remaining--
		}
	}
	if remaining > 0 && len(params.System) > 0 {
		params.System[len(params.System)-1].CacheControl = cc
		remaining--
	}
	if remaining > 0 {
		if idx, ok := largestUserMessageIndex(params.Messages); ok {
			markCacheable(&params.Messages[idx], cc)
		}
	}
}

// cacheControlFor maps a requested TTL in seconds onto Anthropic's two
// supported ephemeral lifetimes, defaulting to the API's own 5-minute
// default when the request asks for anything shorter than an hour.
func cacheControlFor(ttlSeconds int) sdk.CacheControlEphemeralParam {
	cc := sdk.NewCacheControlEphemeralParam()
	if ttlSeconds >= 3600 {
		cc.TTL = sdk.CacheControlEphemeralTTL1h
	}
	return cc
}

// largestUserMessageIndex finds the user message with the most content,
// breaking ties toward the earliest (oldest) one so a stable message
// gets the breakpoint instead of whichever happens to sort last.
func largestUserMessageIndex(msgs []sdk.MessageParam) (int, bool) {
	best := -1
	bestLen := -1
	for i, m := range msgs {
		if m.Role != sdk.MessageParamRoleUser {
			continue
		}
		n := messageParamTextLen(m)
		if n > bestLen {
			bestLen = n
			best = i
		}
	}
	return best, best >= 0
}

func messageParamTextLen(m sdk.MessageParam) int {
	total := 0
	for _, block := range m.Content {
		if block.OfText != nil {
			total += len(block.OfText.Text)
		}
	}
	return total
}

// markCacheable attaches cc to the last content block of m that
// supports cache_control, matching Anthropic's rule that the
// breakpoint is placed on the final block of the cached prefix.
func markCacheable(m *sdk.MessageParam, cc sdk.CacheControlEphemeralParam) {
	for i := len(m.Content) - 1; i >= 0; i-- {
		block := &m.Content[i]
		switch {
		case block.OfText != nil:
			block.OfText.CacheControl = cc
			return
		case block.OfToolResult != nil:
			block.OfToolResult.CacheControl = cc
			return
		}
	}
}

func encodeMessages(msgs []model.Message, nameMap map[string]string) ([]sdk.MessageParam, error) {
	conversation := make([]sdk.MessageParam, 0, len(msgs))
	for _, m := range msgs {
		blocks := make([]sdk.ContentBlockParamUnion, 0, 1)
		if text := m.PlainText(); text != "" {
			blocks = append(blocks, sdk.NewTextBlock(text))
		}
		if m.Role == model.RoleAssistant {
			for _, tc := range m.ToolCalls {
				sanitized, ok := nameMap[tc.Name]
				if !ok {
					sanitized = sanitizeToolName(tc.Name)
				}
				blocks = append(blocks, sdk.NewToolUseBlock(tc.ID, tc.Arguments, sanitized))
			}
		}
		if m.Role == model.RoleTool {
			content := m.PlainText()
			blocks = append(blocks, sdk.NewToolResultBlock(m.ToolCallID, content, false))
		}
		if len(blocks) == 0 {
			continue
		}
		switch m.Role {
		case model.RoleUser, model.RoleTool:
			conversation = append(conversation, sdk.NewUserMessage(blocks...))
		case model.RoleAssistant:
			conversation = append(conversation, sdk.NewAssistantMessage(blocks...))
		default:
			return nil, errkind.New(errkind.InvalidRequest, "unsupported message role %q", m.Role)
		}
	}
	if len(conversation) == 0 {
		return nil, errkind.New(errkind.InvalidRequest, "at least one user/assistant message is required")
	}
	return conversation, nil
}

func encodeTools(specs []provider.ToolSpec) ([]sdk.ToolUnionParam, map[string]string, map[string]string, error) {
	if len(specs) == 0 {
		return nil, nil, nil, nil
	}
	out := make([]sdk.ToolUnionParam, 0, len(specs))
	canonToSan := make(map[string]string, len(specs))
	sanToCanon := make(map[string]string, len(specs))
	for _, spec := range specs {
		sanitized := sanitizeToolName(spec.Name)
		canonToSan[spec.Name] = sanitized
		sanToCanon[sanitized] = spec.Name

		data, err := json.Marshal(spec.Schema)
		if err != nil {
			return nil, nil, nil, errkind.Wrap(errkind.InvalidRequest, err, "tool %s schema", spec.Name)
		}
		var schemaMap map[string]any
		if err := json.Unmarshal(data, &schemaMap); err != nil {
			return nil, nil, nil, errkind.Wrap(errkind.InvalidRequest, err, "tool %s schema", spec.Name)
		}
		u := sdk.ToolUnionParamOfTool(sdk.ToolInputSchemaParam{ExtraFields: schemaMap}, sanitized)
		if u.OfTool != nil {
			u.OfTool.Description = sdk.String(spec.Description)
		}
		out = append(out, u)
	}
	return out, canonToSan, sanToCanon, nil
}

func encodeToolChoice(choice provider.ToolChoice, canonToProv map[string]string) (sdk.ToolChoiceUnionParam, error) {
	switch choice.Mode {
	case provider.ToolChoiceNone:
		none := sdk.NewToolChoiceNoneParam()
		return sdk.ToolChoiceUnionParam{OfNone: &none}, nil
	case provider.ToolChoiceAny:
		return sdk.ToolChoiceUnionParam{OfAny: &sdk.ToolChoiceAnyParam{}}, nil
	case provider.ToolChoiceSpecific:
		sanitized, ok := canonToProv[choice.Name]
		if !ok {
			return sdk.ToolChoiceUnionParam{}, errkind.New(errkind.InvalidRequest, "tool choice %q does not match any tool", choice.Name)
		}
		return sdk.ToolChoiceParamOfTool(sanitized), nil
	default:
		return sdk.ToolChoiceUnionParam{}, nil
	}
}

// sanitizeToolName maps a canonical tool identifier to Anthropic's
// allowed character set, replacing any disallowed rune with '_'.
func sanitizeToolName(in string) string {
	if isProviderSafeToolName(in) {
		return in
	}
	out := make([]rune, 0, len(in))
	for _, r := range in {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' || r == '-' {
			out = append(out, r)
		} else {
			out = append(out, '_')
		}
	}
	return string(out)
}

func isProviderSafeToolName(name string) bool {
	if name == "" || len(name) > 64 {
		return false
	}
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' || r == '-' {
			continue
		}
		return false
	}
	return true
}

func classifySDKError(err error) error {
	msg := err.Error()
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "429") || strings.Contains(lower, "rate limit"):
		return errkind.Wrap(errkind.RateLimit, err, "anthropic rate limited")
	case strings.Contains(lower, "401") || strings.Contains(lower, "403") || strings.Contains(lower, "authentication"):
		return errkind.Wrap(errkind.Authentication, err, "anthropic authentication failed")
	case strings.Contains(lower, "400") || strings.Contains(lower, "422") || strings.Contains(lower, "invalid_request"):
		return errkind.Wrap(errkind.InvalidRequest, err, "anthropic rejected request")
	case strings.Contains(lower, "timeout") || strings.Contains(lower, "deadline"):
		return errkind.Wrap(errkind.Timeout, err, "anthropic request timed out")
	case strings.Contains(lower, "50") && (strings.Contains(lower, "server") || strings.Contains(lower, "overloaded")):
		return errkind.Wrap(errkind.Network, err, "anthropic server error")
	default:
		return errkind.Wrap(errkind.Provider, err, "anthropic messages call failed")
	}
}

func translateResponse(msg *sdk.Message, nameMap map[string]string) provider.Response {
	resp := provider.Response{Model: string(msg.Model)}
	var textParts []string
	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			if block.Text != "" {
				textParts = append(textParts, block.Text)
			}
		case "tool_use":
			canonical := block.Name
			if mapped, ok := nameMap[block.Name]; ok {
				canonical = mapped
			}
			var args map[string]any
			_ = json.Unmarshal(block.Input, &args)
			resp.ToolCalls = append(resp.ToolCalls, model.ToolCall{
				ID:        block.ID,
				Name:      canonical,
				Arguments: args,
			})
		case "thinking":
			resp.Reasoning += block.Thinking
		}
	}
	resp.Content = strings.Join(textParts, "")
	resp.Usage = provider.Usage{
		PromptTokens:      int(msg.Usage.InputTokens),
		CompletionTokens:  int(msg.Usage.OutputTokens),
		TotalTokens:       int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
		CacheReadTokens:   int(msg.Usage.CacheReadInputTokens),
		CacheCreationTokens: int(msg.Usage.CacheCreationInputTokens),
	}
	resp.FinishReason = translateFinishReason(string(msg.StopReason))
	return resp
}

func translateFinishReason(reason string) provider.FinishReason {
	switch reason {
	case "tool_use":
		return provider.FinishToolCalls
	case "max_tokens":
		return provider.FinishLength
	case "stop_sequence", "end_turn":
		return provider.FinishStop
	case "":
		return provider.FinishStop
	default:
		return provider.FinishStop
	}
}
