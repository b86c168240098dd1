package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/threatalytics/backend/internal/infrastructure/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *HTTPClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewHTTPClient(&config.LLMConfig{
		BaseURL:       server.URL,
		APIKey:        "sk-test",
		Model:         "gpt-4o",
		FallbackModel: "gpt-4o-mini",
		Timeout:       5 * time.Second,
		MaxTokens:     1024,
	}, nil)
	client.retryWait = 10 * time.Millisecond
	return client
}

func completionBody(model, content string) string {
	b, _ := json.Marshal(map[string]any{
		"model": model,
		"choices": []map[string]any{
			{"message": map[string]string{"role": "assistant", "content": content}},
		},
		"usage": map[string]int{"prompt_tokens": 12, "completion_tokens": 34},
	})
	return string(b)
}

func TestComplete(t *testing.T) {
	var gotReq chatRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Write([]byte(completionBody("gpt-4o", "Threat level: low.")))
	})

	result, err := client.Complete(context.Background(), CompletionRequest{
		System:      "You are a security analyst.",
		Messages:    []Message{{Role: "user", Content: "Assess this log."}},
		Temperature: 0.2,
	})
	require.NoError(t, err)
	assert.Equal(t, "Threat level: low.", result.Content)
	assert.Equal(t, 12, result.PromptTokens)
	assert.Equal(t, 34, result.CompletionTokens)

	require.Len(t, gotReq.Messages, 2)
	assert.Equal(t, "system", gotReq.Messages[0].Role)
	assert.Equal(t, "gpt-4o", gotReq.Model)
	assert.Equal(t, 1024, gotReq.MaxTokens)
}

func TestComplete_FallbackOnPermissionError(t *testing.T) {
	var models []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		models = append(models, req.Model)
		if req.Model == "gpt-4o" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Write([]byte(completionBody(req.Model, "ok")))
	})

	result, err := client.Complete(context.Background(), CompletionRequest{
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", result.Content)
	assert.Equal(t, []string{"gpt-4o", "gpt-4o-mini"}, models)
}

func TestComplete_RetryOnRateLimit(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(completionBody("gpt-4o", "recovered")))
	})

	result, err := client.Complete(context.Background(), CompletionRequest{
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "recovered", result.Content)
	assert.Equal(t, 2, calls)
}

func TestComplete_EmptyChoices(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"model":"gpt-4o","choices":[]}`))
	})

	_, err := client.Complete(context.Background(), CompletionRequest{
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	assert.ErrorIs(t, err, ErrEmptyResponse)
}
