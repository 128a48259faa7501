// Package compat is a hand-rolled OpenAI-chat-compatible provider
// adapter: it speaks the `/chat/completions` SSE wire format directly
// over net/http instead of a vendored SDK, for any endpoint that mimics
// it (local model servers, OpenRouter, Azure-compatible gateways, etc).
//
// Grounded on teacher pkg/engine/runtime/llm_openai.go, generalized from
// the teacher's single hardcoded model/LLMRequest shape to the full
// provider.Request/Response contract, with retry-with-backoff layered on
// top per spec.md §4.2's failure taxonomy.
package compat

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/vtcode-go/vtcode/internal/errkind"
	"github.com/vtcode-go/vtcode/internal/logging"
	"github.com/vtcode-go/vtcode/internal/model"
	"github.com/vtcode-go/vtcode/internal/provider"
)

// Client is an OpenAI-chat-compatible provider.Provider.
type Client struct {
	name       string
	baseURL    string
	apiKey     string
	models     []string
	httpClient *http.Client
	maxRetries int
}

// New builds a compat client. models lists the identifiers accepted by
// SupportedModels/ValidateRequest; name is the provider identity surfaced
// to the rest of the core (e.g. "openrouter", "local").
func New(name, baseURL, apiKey string, models []string) *Client {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &Client{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		models:  models,
		httpClient: &http.Client{
			Timeout: 24 * time.Hour,
		},
		maxRetries: 4,
	}
}

func (c *Client) Name() string { return c.name }

func (c *Client) SupportsReasoning(string) bool         { return false }
func (c *Client) SupportsReasoningEffort(string) bool   { return false }
func (c *Client) SupportsStreaming() bool               { return true }
func (c *Client) SupportsParallelToolConfig(string) bool { return false }

func (c *Client) EffectiveContextSize(modelID string) int {
	return 128_000
}

func (c *Client) SupportedModels() []string { return append([]string(nil), c.models...) }

func (c *Client) ValidateRequest(req provider.Request) error {
	if len(req.Messages) == 0 {
		return errkind.New(errkind.InvalidRequest, "request has no messages")
	}
	if req.Model == "" {
		return errkind.New(errkind.InvalidRequest, "request has no model")
	}
	return nil
}

func (c *Client) Generate(ctx context.Context, req provider.Request) (provider.Response, error) {
	req.Stream = false
	payload, err := c.preparePayload(req)
	if err != nil {
		return provider.Response{}, err
	}

	var resp provider.Response
	op := func() (provider.Response, error) {
		body, status, err := c.post(ctx, payload)
		if err != nil {
			return provider.Response{}, err
		}
		if status != http.StatusOK {
			classified := classifyStatus(status, body)
			if errkind.Is(classified, errkind.RateLimit) || errkind.Is(classified, errkind.Network) {
				return provider.Response{}, classified
			}
			return provider.Response{}, backoff.Permanent(classified)
		}
		var wire openAIChatCompletionResponse
		if err := json.Unmarshal(body, &wire); err != nil {
			return provider.Response{}, backoff.Permanent(errkind.Wrap(errkind.Provider, err, "decoding chat completion response"))
		}
		return translateNonStreamResponse(wire), nil
	}

	resp, err = backoff.Retry(ctx, op, backoff.WithMaxTries(uint(c.maxRetries)))
	if err != nil {
		return provider.Response{}, classifyRetryError(err)
	}
	return resp, nil
}

func (c *Client) Stream(ctx context.Context, req provider.Request) (provider.Streamer, error) {
	req.Stream = true
	payload, err := c.preparePayload(req)
	if err != nil {
		return nil, err
	}
	payload.Stream = true

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errkind.Wrap(errkind.InvalidRequest, err, "encoding request")
	}

	url := c.baseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, errkind.Wrap(errkind.Network, err, "building request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, errkind.Wrap(errkind.Network, err, "streaming request to %s", c.name)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(resp.Body)
		return nil, classifyStatus(resp.StatusCode, raw)
	}

	logging.DebugCtx("provider.compat", "stream started", map[string]any{"provider": c.name, "model": req.Model})
	return newStream(resp.Body), nil
}

// preparePayload never reads req.Caching: a generic chat-completions-
// compatible backend (OpenRouter, a local server) has no standardized
// cache_control wire field to target, unlike Anthropic's Messages API.
func (c *Client) preparePayload(req provider.Request) (*openAIChatCompletionRequest, error) {
	if err := c.ValidateRequest(req); err != nil {
		return nil, err
	}

	sys, messages := provider.ConcatenateSystemMessages(req.System, req.Messages)
	messages = provider.DropOrphanToolMessages(messages)

	if len(req.OutputFormat) > 0 {
		req = provider.InjectStructuredOutputTool(req)
	}

	wireMsgs := make([]openAIChatMsg, 0, len(messages)+1)
	if sys != "" {
		wireMsgs = append(wireMsgs, openAIChatMsg{Role: "system", Content: sys})
	}
	wireMsgs = append(wireMsgs, toOpenAIMessages(messages)...)

	payload := &openAIChatCompletionRequest{
		Model:    req.Model,
		Messages: wireMsgs,
	}
	if req.MaxTokens > 0 {
		payload.MaxTokens = req.MaxTokens
	}
	if req.Thinking == nil || !req.Thinking.Enable {
		payload.Temperature = req.Temperature
	}
	if len(req.Tools) > 0 {
		payload.Tools = toOpenAITools(req.Tools)
		payload.ToolChoice = toolChoiceString(req.ToolChoice)
	}
	return payload, nil
}

func toolChoiceString(tc provider.ToolChoice) string {
	switch tc.Mode {
	case provider.ToolChoiceNone:
		return "none"
	case provider.ToolChoiceAny:
		return "required"
	case provider.ToolChoiceSpecific:
		return "auto" // exact function-pinning is adapter-specific; callers relying on this
		// should prefer a native adapter. compat best-effort forwards "auto".
	default:
		return "auto"
	}
}

func (c *Client) post(ctx context.Context, payload *openAIChatCompletionRequest) ([]byte, int, error) {
	payload.Stream = false
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, errkind.Wrap(errkind.InvalidRequest, err, "encoding request")
	}
	url := c.baseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, 0, errkind.Wrap(errkind.Network, err, "building request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, 0, errkind.Wrap(errkind.Network, err, "request to %s", c.name)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, errkind.Wrap(errkind.Network, err, "reading response body")
	}
	return raw, resp.StatusCode, nil
}

func classifyStatus(status int, body []byte) error {
	msg := strings.TrimSpace(string(body))
	switch status {
	case http.StatusTooManyRequests:
		return errkind.New(errkind.RateLimit, "rate limited: %s", msg)
	case http.StatusUnauthorized, http.StatusForbidden:
		return errkind.New(errkind.Authentication, "authentication failed: %s", msg)
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return errkind.New(errkind.InvalidRequest, "invalid request: %s", msg)
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return errkind.New(errkind.Timeout, "provider timeout: %s", msg)
	default:
		if status >= 500 {
			return errkind.New(errkind.Network, "provider error (status %d): %s", status, msg)
		}
		return errkind.New(errkind.Provider, "provider error (status %d): %s", status, msg)
	}
}

func classifyRetryError(err error) error {
	if errkind.KindOf(err) != "" {
		return err
	}
	return errkind.Wrap(errkind.Provider, err, "request failed after retries")
}

type openAIChatCompletionRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIChatMsg `json:"messages"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Temperature float64         `json:"temperature,omitempty"`
	Stream      bool            `json:"stream"`
	Tools       []openAITool    `json:"tools,omitempty"`
	ToolChoice  string          `json:"tool_choice,omitempty"`
}

type openAITool struct {
	Type     string     `json:"type"`
	Function openAIFunc `json:"function"`
}

type openAIFunc struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Parameters  any    `json:"parameters,omitempty"`
}

type openAIChatMsg struct {
	Role       string           `json:"role"`
	Content    string           `json:"content"`
	ToolCallID string           `json:"tool_call_id,omitempty"`
	ToolCalls  []openAIToolCall `json:"tool_calls,omitempty"`
}

type openAIToolCall struct {
	Index    int            `json:"index"`
	ID       string         `json:"id"`
	Type     string         `json:"type"`
	Function openAIFuncCall `json:"function"`
}

type openAIFuncCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type openAIChatCompletionResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content   string           `json:"content"`
			ToolCalls []openAIToolCall `json:"tool_calls,omitempty"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

type openAIStreamChunk struct {
	Choices []struct {
		Delta struct {
			Content   string           `json:"content,omitempty"`
			ToolCalls []openAIToolCall `json:"tool_calls,omitempty"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason,omitempty"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

func toOpenAITools(tools []provider.ToolSpec) []openAITool {
	out := make([]openAITool, 0, len(tools))
	for _, t := range tools {
		out = append(out, openAITool{
			Type: "function",
			Function: openAIFunc{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Schema,
			},
		})
	}
	return out
}

func toOpenAIMessages(messages []model.Message) []openAIChatMsg {
	out := make([]openAIChatMsg, 0, len(messages))
	for _, msg := range messages {
		role := string(msg.Role)
		m := openAIChatMsg{Role: role, Content: msg.PlainText()}
		if msg.Role == model.RoleTool {
			m.ToolCallID = msg.ToolCallID
		}
		if msg.Role == model.RoleAssistant && len(msg.ToolCalls) > 0 {
			for _, tc := range msg.ToolCalls {
				args, _ := json.Marshal(tc.Arguments)
				m.ToolCalls = append(m.ToolCalls, openAIToolCall{
					ID:   tc.ID,
					Type: "function",
					Function: openAIFuncCall{
						Name:      tc.Name,
						Arguments: string(args),
					},
				})
			}
		}
		out = append(out, m)
	}
	return out
}

func translateNonStreamResponse(wire openAIChatCompletionResponse) provider.Response {
	resp := provider.Response{
		Model: wire.Model,
		Usage: provider.Usage{
			PromptTokens:     wire.Usage.PromptTokens,
			CompletionTokens: wire.Usage.CompletionTokens,
			TotalTokens:      wire.Usage.TotalTokens,
		},
	}
	if len(wire.Choices) == 0 {
		resp.FinishReason = provider.FinishStop
		return resp
	}
	choice := wire.Choices[0]
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
	resp.FinishReason = translateFinishReason(choice.FinishReason)
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
	case "":
		return provider.FinishStop
	default:
		return provider.FinishStop
	}
}

// stream adapts the chat/completions SSE wire format into provider.Chunk,
// buffering tool-call argument fragments across delta events until
// finish_reason arrives, per teacher's openAIStream.
type stream struct {
	body   io.ReadCloser
	reader *bufio.Reader

	mu           sync.Mutex
	queue        []provider.Chunk
	done         bool
	toolBuilders map[int]*toolCallBuilder
}

type toolCallBuilder struct {
	id   string
	name string
	args strings.Builder
}

func newStream(body io.ReadCloser) *stream {
	return &stream{
		body:         body,
		reader:       bufio.NewReader(body),
		toolBuilders: make(map[int]*toolCallBuilder),
	}
}

func (s *stream) Recv(ctx context.Context) (provider.Chunk, error) {
	s.mu.Lock()
	if len(s.queue) > 0 {
		ch := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()
		return ch, nil
	}
	if s.done {
		s.mu.Unlock()
		return provider.Chunk{}, io.EOF
	}
	s.mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			return provider.Chunk{}, ctx.Err()
		default:
		}

		line, err := s.reader.ReadString('\n')
		if err != nil {
			s.mu.Lock()
			s.done = true
			s.mu.Unlock()
			if err == io.EOF {
				return provider.Chunk{}, io.EOF
			}
			return provider.Chunk{}, errkind.Wrap(errkind.Network, err, "reading stream")
		}

		line = strings.TrimSpace(line)
		if line == "" || !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" {
			s.mu.Lock()
			s.done = true
			s.mu.Unlock()
			return provider.Chunk{}, io.EOF
		}

		var chunk openAIStreamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			continue
		}
		if chunk.Error != nil {
			s.mu.Lock()
			s.done = true
			s.mu.Unlock()
			return provider.Chunk{}, errkind.New(errkind.Provider, "stream error: %s", chunk.Error.Message)
		}
		if len(chunk.Choices) == 0 {
			continue
		}

		delta := chunk.Choices[0].Delta
		finish := chunk.Choices[0].FinishReason

		if len(delta.ToolCalls) > 0 {
			var argDelta string
			s.mu.Lock()
			for _, tc := range delta.ToolCalls {
				b := s.toolBuilders[tc.Index]
				if b == nil {
					b = &toolCallBuilder{}
					s.toolBuilders[tc.Index] = b
				}
				if tc.ID != "" {
					b.id = tc.ID
				}
				if tc.Function.Name != "" {
					b.name = tc.Function.Name
				}
				if tc.Function.Arguments != "" {
					b.args.WriteString(tc.Function.Arguments)
					argDelta += tc.Function.Arguments
				}
			}
			s.mu.Unlock()
			if argDelta != "" {
				return provider.Chunk{Type: provider.ChunkToolCallDelta, ArgsDelta: argDelta}, nil
			}
		}

		if delta.Content != "" {
			return provider.Chunk{Type: provider.ChunkText, Text: delta.Content}, nil
		}

		if finish != "" {
			s.mu.Lock()
			if finish == "tool_calls" {
				maxIdx := -1
				for i := range s.toolBuilders {
					if i > maxIdx {
						maxIdx = i
					}
				}
				for i := 0; i <= maxIdx; i++ {
					b := s.toolBuilders[i]
					if b == nil || b.name == "" {
						continue
					}
					var args map[string]any
					_ = json.Unmarshal([]byte(b.args.String()), &args)
					s.queue = append(s.queue, provider.Chunk{
						Type: provider.ChunkToolCall,
						ToolCall: &model.ToolCall{
							ID:        b.id,
							Name:      b.name,
							Arguments: args,
						},
					})
				}
				s.toolBuilders = make(map[int]*toolCallBuilder)
			}
			s.queue = append(s.queue, provider.Chunk{Type: provider.ChunkStop, FinishReason: translateFinishReason(finish)})
			ch := s.queue[0]
			s.queue = s.queue[1:]
			s.mu.Unlock()
			return ch, nil
		}
	}
}

func (s *stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return nil
	}
	s.done = true
	return s.body.Close()
}
