// Package openai adapts provider.Request/Response onto the official
// github.com/openai/openai-go SDK.
//
// Grounded on the Complete/Stream dual-entrypoint shape and
// isRateLimited-style failure classification of goadesign-goa-ai
// features/model/anthropic/client.go (the only full SDK-wrapper example
// in the pack), carried over to openai-go's client surface since the
// pack has no direct openai-go caller to ground the wire shape on.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/vtcode-go/vtcode/internal/errkind"
	"github.com/vtcode-go/vtcode/internal/model"
	"github.com/vtcode-go/vtcode/internal/provider"
)

// Options configures the adapter's model defaults and context-size table.
type Options struct {
	DefaultModel string
	Models       []string
	// ContextSizes maps a model id to its effective context window; models
	// absent from this map fall back to DefaultContextSize.
	ContextSizes       map[string]int
	DefaultContextSize int
}

// Client implements provider.Provider on top of the OpenAI Chat
// Completions API.
type Client struct {
	sdk  openai.Client
	opts Options
}

// New builds an OpenAI-backed provider from an API key.
func New(apiKey string, opts Options) (*Client, error) {
	if apiKey == "" {
		return nil, errkind.New(errkind.Authentication, "openai api key is required")
	}
	if opts.DefaultModel == "" {
		return nil, errkind.New(errkind.InvalidRequest, "default model is required")
	}
	if opts.DefaultContextSize == 0 {
		opts.DefaultContextSize = 128_000
	}
	return &Client{
		sdk:  openai.NewClient(option.WithAPIKey(apiKey)),
		opts: opts,
	}, nil
}

func (c *Client) Name() string { return "openai" }

func (c *Client) SupportsReasoning(modelID string) bool {
	return strings.HasPrefix(modelID, "o1") || strings.HasPrefix(modelID, "o3") || strings.HasPrefix(modelID, "gpt-5")
}

func (c *Client) SupportsReasoningEffort(modelID string) bool { return c.SupportsReasoning(modelID) }
func (c *Client) SupportsStreaming() bool                     { return true }
func (c *Client) SupportsParallelToolConfig(string) bool      { return true }

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

func (c *Client) Generate(ctx context.Context, req provider.Request) (provider.Response, error) {
	params, err := c.prepareParams(req)
	if err != nil {
		return provider.Response{}, err
	}
	completion, err := c.sdk.Chat.Completions.New(ctx, params)
	if err != nil {
		return provider.Response{}, classifySDKError(err)
	}
	return translateResponse(completion), nil
}

func (c *Client) Stream(ctx context.Context, req provider.Request) (provider.Streamer, error) {
	params, err := c.prepareParams(req)
	if err != nil {
		return nil, err
	}
	sdkStream := c.sdk.Chat.Completions.NewStreaming(ctx, params)
	if err := sdkStream.Err(); err != nil {
		return nil, classifySDKError(err)
	}
	return newStreamer(ctx, sdkStream), nil
}

// prepareParams never reads req.Caching: the Chat Completions API has
// no cache_control equivalent, only an automatic, non-configurable
// prefix cache OpenAI applies server-side. req.Caching is silently
// unused here rather than rejected, since a caller building one Request
// for multiple providers shouldn't have to special-case this one.
func (c *Client) prepareParams(req provider.Request) (openai.ChatCompletionNewParams, error) {
	if err := c.ValidateRequest(req); err != nil {
		return openai.ChatCompletionNewParams{}, err
	}
	modelID := req.Model
	if modelID == "" {
		modelID = c.opts.DefaultModel
	}

	sys, messages := provider.ConcatenateSystemMessages(req.System, req.Messages)
	messages = provider.DropOrphanToolMessages(messages)
	if len(req.OutputFormat) > 0 {
		req = provider.InjectStructuredOutputTool(req)
	}

	wireMsgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages)+1)
	if sys != "" {
		wireMsgs = append(wireMsgs, openai.SystemMessage(sys))
	}
	for _, m := range messages {
		wireMsgs = append(wireMsgs, toWireMessage(m))
	}

	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(modelID),
		Messages: wireMsgs,
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.Thinking == nil || !req.Thinking.Enable {
		if req.Temperature > 0 {
			params.Temperature = openai.Float(req.Temperature)
		}
	}
	if req.Reasoning != provider.ReasoningNone && c.SupportsReasoningEffort(modelID) {
		params.ReasoningEffort = shared.ReasoningEffort(mapReasoningEffort(req.Reasoning))
	}
	if len(req.Tools) > 0 {
		params.Tools = toWireTools(req.Tools)
		params.ToolChoice = toWireToolChoice(req.ToolChoice)
	}
	return params, nil
}

func mapReasoningEffort(e provider.ReasoningEffort) string {
	switch e {
	case provider.ReasoningMinimal:
		return "minimal"
	case provider.ReasoningLow:
		return "low"
	case provider.ReasoningMedium:
		return "medium"
	case provider.ReasoningHigh, provider.ReasoningXHigh:
		return "high"
	default:
		return "medium"
	}
}

func toWireMessage(m model.Message) openai.ChatCompletionMessageParamUnion {
	switch m.Role {
	case model.RoleUser:
		return openai.UserMessage(m.PlainText())
	case model.RoleTool:
		return openai.ToolMessage(m.PlainText(), m.ToolCallID)
	case model.RoleAssistant:
		if len(m.ToolCalls) == 0 {
			return openai.AssistantMessage(m.PlainText())
		}
		assistant := openai.ChatCompletionAssistantMessageParam{}
		if text := m.PlainText(); text != "" {
			assistant.Content.OfString = openai.String(text)
		}
		for _, tc := range m.ToolCalls {
			args, _ := json.Marshal(tc.Arguments)
			assistant.ToolCalls = append(assistant.ToolCalls, openai.ChatCompletionMessageToolCallParam{
				ID:   tc.ID,
				Type: "function",
				Function: openai.ChatCompletionMessageToolCallFunctionParam{
					Name:      tc.Name,
					Arguments: string(args),
				},
			})
		}
		return openai.ChatCompletionMessageParamUnion{OfAssistant: &assistant}
	default:
		return openai.UserMessage(m.PlainText())
	}
}

func toWireTools(tools []provider.ToolSpec) []openai.ChatCompletionToolParam {
	out := make([]openai.ChatCompletionToolParam, 0, len(tools))
	for _, t := range tools {
		out = append(out, openai.ChatCompletionToolParam{
			Function: shared.FunctionDefinitionParam{
				Name:        t.Name,
				Description: openai.String(t.Description),
				Parameters:  shared.FunctionParameters(t.Schema),
			},
		})
	}
	return out
}

func toWireToolChoice(tc provider.ToolChoice) openai.ChatCompletionToolChoiceOptionUnionParam {
	switch tc.Mode {
	case provider.ToolChoiceNone:
		return openai.ChatCompletionToolChoiceOptionUnionParam{OfAuto: openai.String("none")}
	case provider.ToolChoiceAny:
		return openai.ChatCompletionToolChoiceOptionUnionParam{OfAuto: openai.String("required")}
	case provider.ToolChoiceSpecific:
		return openai.ChatCompletionToolChoiceOptionUnionParam{
			OfChatCompletionNamedToolChoice: &openai.ChatCompletionNamedToolChoiceParam{
				Function: openai.ChatCompletionNamedToolChoiceFunctionParam{Name: tc.Name},
			},
		}
	default:
		return openai.ChatCompletionToolChoiceOptionUnionParam{OfAuto: openai.String("auto")}
	}
}

func translateResponse(completion *openai.ChatCompletion) provider.Response {
	resp := provider.Response{Model: completion.Model}
	resp.Usage = provider.Usage{
		PromptTokens:     int(completion.Usage.PromptTokens),
		CompletionTokens: int(completion.Usage.CompletionTokens),
		TotalTokens:      int(completion.Usage.TotalTokens),
	}
	if completion.Usage.PromptTokensDetails.CachedTokens > 0 {
		resp.Usage.CachedPromptTokens = int(completion.Usage.PromptTokensDetails.CachedTokens)
	}
	if len(completion.Choices) == 0 {
		resp.FinishReason = provider.FinishStop
		return resp
	}
	choice := completion.Choices[0]
	resp.Content = choice.Message.Content
	for _, tc := range choice.Message.ToolCalls {
		var args map[string]any
		_ = json.Unmarshal([]byte(tc.Function.Arguments), &args)
		resp.ToolCalls = append(resp.ToolCalls, model.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: args,
		})
	}
	resp.FinishReason = translateFinishReason(string(choice.FinishReason))
	return resp
}

func translateFinishReason(reason string) provider.FinishReason {
	switch reason {
	case "tool_calls":
		return provider.FinishToolCalls
	case "length":
		return provider.FinishLength
	case "content_filter":
		return provider.FinishContentFilter
	default:
		return provider.FinishStop
	}
}

func classifySDKError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case 429:
			return errkind.Wrap(errkind.RateLimit, err, "openai rate limited")
		case 401, 403:
			return errkind.Wrap(errkind.Authentication, err, "openai authentication failed")
		case 400, 422:
			return errkind.Wrap(errkind.InvalidRequest, err, "openai rejected request")
		case 408, 504:
			return errkind.Wrap(errkind.Timeout, err, "openai request timed out")
		default:
			if apiErr.StatusCode >= 500 {
				return errkind.Wrap(errkind.Network, err, "openai server error")
			}
			return errkind.Wrap(errkind.Provider, err, "openai request failed")
		}
	}
	return errkind.Wrap(errkind.Network, err, "openai request failed")
}
