package compat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vtcode-go/vtcode/internal/errkind"
	"github.com/vtcode-go/vtcode/internal/model"
	"github.com/vtcode-go/vtcode/internal/provider"
)

func TestGenerate_TranslatesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "test-model", body["model"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"model": "test-model",
			"choices": [{"message": {"content": "hello"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 2, "total_tokens": 12}
		}`))
	}))
	defer srv.Close()

	client := New("test", srv.URL, "key", []string{"test-model"})
	resp, err := client.Generate(context.Background(), provider.Request{
		Model:    "test-model",
		Messages: []model.Message{{Role: model.RoleUser, Text: "hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Content)
	assert.Equal(t, provider.FinishStop, resp.FinishReason)
	assert.Equal(t, 12, resp.Usage.TotalTokens)
}

func TestGenerate_RateLimitIsClassified(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"slow down"}`))
	}))
	defer srv.Close()

	client := New("test", srv.URL, "key", []string{"test-model"})
	client.maxRetries = 1
	_, err := client.Generate(context.Background(), provider.Request{
		Model:    "test-model",
		Messages: []model.Message{{Role: model.RoleUser, Text: "hi"}},
	})
	require.Error(t, err)
	assert.True(t, errkind.Is(err, errkind.RateLimit))
}

func TestValidateRequest_RequiresMessagesAndModel(t *testing.T) {
	client := New("test", "", "key", nil)
	assert.Error(t, client.ValidateRequest(provider.Request{}))
	assert.Error(t, client.ValidateRequest(provider.Request{Model: "m"}))
	assert.NoError(t, client.ValidateRequest(provider.Request{
		Model:    "m",
		Messages: []model.Message{{Role: model.RoleUser, Text: "hi"}},
	}))
}
