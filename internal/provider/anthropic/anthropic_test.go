package anthropic

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"

	"github.com/vtcode-go/vtcode/internal/model"
	"github.com/vtcode-go/vtcode/internal/provider"
)

type fakeMessagesClient struct {
	lastParams sdk.MessageNewParams
	response   *sdk.Message
}

func (f *fakeMessagesClient) New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error) {
	f.lastParams = body
	return f.response, nil
}

func (f *fakeMessagesClient) NewStreaming(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) *ssestream.Stream[sdk.MessageStreamEventUnion] {
	return nil
}

func TestGenerate_TranslatesTextResponse(t *testing.T) {
	fake := &fakeMessagesClient{
		response: &sdk.Message{
			Model:      sdk.Model("claude-test"),
			StopReason: "end_turn",
			Content: []sdk.ContentBlockUnion{
				{Type: "text", Text: "hello there"},
			},
		},
	}
	client, err := New(fake, Options{DefaultModel: "claude-test", DefaultMaxTokens: 1024})
	require.NoError(t, err)

	resp, err := client.Generate(context.Background(), provider.Request{
		Messages: []model.Message{{Role: model.RoleUser, Text: "hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "hello there", resp.Content)
	assert.Equal(t, provider.FinishStop, resp.FinishReason)
}

func TestPrepareRequest_CapsThinkingBudget(t *testing.T) {
	fake := &fakeMessagesClient{response: &sdk.Message{}}
	client, err := New(fake, Options{DefaultModel: "claude-test"})
	require.NoError(t, err)

	params, _, err := client.prepareRequest(provider.Request{
		Messages:  []model.Message{{Role: model.RoleUser, Text: "hi"}},
		MaxTokens: 2000,
		Thinking:  &provider.ThinkingConfig{Enable: true, BudgetTokens: 50000},
	})
	require.NoError(t, err)
	require.NotNil(t, params.Thinking.OfEnabled)
	assert.Equal(t, int64(1900), params.Thinking.OfEnabled.BudgetTokens)
}

func TestValidateRequest_RequiresMessages(t *testing.T) {
	fake := &fakeMessagesClient{}
	client, err := New(fake, Options{DefaultModel: "claude-test"})
	require.NoError(t, err)
	assert.Error(t, client.ValidateRequest(provider.Request{}))
}

func TestPrepareRequest_CachingDisabled_NoCacheControl(t *testing.T) {
	fake := &fakeMessagesClient{response: &sdk.Message{}}
	client, err := New(fake, Options{DefaultModel: "claude-test", DefaultMaxTokens: 1024})
	require.NoError(t, err)

	params, _, err := client.prepareRequest(provider.Request{
		Messages: []model.Message{{Role: model.RoleUser, Text: "hi"}},
		System:   "be helpful",
		Tools:    []provider.ToolSpec{{Name: "search", Schema: map[string]any{"type": "object"}}},
	})
	require.NoError(t, err)
	assert.Equal(t, sdk.CacheControlEphemeralParam{}, params.System[0].CacheControl)
	require.NotNil(t, params.Tools[0].OfTool)
	assert.Equal(t, sdk.CacheControlEphemeralParam{}, params.Tools[0].OfTool.CacheControl)
}

func TestPrepareRequest_CachingEnabled_MarksToolsSystemAndLargestUserMessage(t *testing.T) {
	fake := &fakeMessagesClient{response: &sdk.Message{}}
	client, err := New(fake, Options{DefaultModel: "claude-test", DefaultMaxTokens: 1024})
	require.NoError(t, err)

	params, _, err := client.prepareRequest(provider.Request{
		Messages: []model.Message{
			{Role: model.RoleUser, Text: "short"},
			{Role: model.RoleAssistant, Text: "ack"},
			{Role: model.RoleUser, Text: "a much longer follow-up message with more content"},
		},
		System: "be helpful",
		Tools:  []provider.ToolSpec{{Name: "search", Schema: map[string]any{"type": "object"}}},
		Caching: provider.CachingConfig{
			Enabled:        true,
			MaxBreakpoints: 3,
		},
	})
	require.NoError(t, err)

	zero := sdk.CacheControlEphemeralParam{}
	require.NotNil(t, params.Tools[0].OfTool)
	assert.NotEqual(t, zero, params.Tools[0].OfTool.CacheControl)
	assert.NotEqual(t, zero, params.System[0].CacheControl)

	idx, ok := largestUserMessageIndex(params.Messages)
	require.True(t, ok)
	assert.True(t, messageParamTextLen(params.Messages[idx]) > 0)
	last := params.Messages[idx].Content[len(params.Messages[idx].Content)-1]
	require.NotNil(t, last.OfText)
	assert.NotEqual(t, zero, last.OfText.CacheControl)
}

func TestPrepareRequest_CachingRespectsBreakpointCap(t *testing.T) {
	fake := &fakeMessagesClient{response: &sdk.Message{}}
	client, err := New(fake, Options{DefaultModel: "claude-test", DefaultMaxTokens: 1024})
	require.NoError(t, err)

	params, _, err := client.prepareRequest(provider.Request{
		Messages: []model.Message{{Role: model.RoleUser, Text: "hi, this one is the longest message here"}},
		System:   "be helpful",
		Tools:    []provider.ToolSpec{{Name: "search", Schema: map[string]any{"type": "object"}}},
		Caching: provider.CachingConfig{
			Enabled:        true,
			MaxBreakpoints: 1,
		},
	})
	require.NoError(t, err)

	zero := sdk.CacheControlEphemeralParam{}
	require.NotNil(t, params.Tools[0].OfTool)
	assert.NotEqual(t, zero, params.Tools[0].OfTool.CacheControl)
	assert.Equal(t, zero, params.System[0].CacheControl)
}
