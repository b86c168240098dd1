// Package llm talks to an OpenAI-compatible chat completion API.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/threatalytics/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Common errors
var (
	ErrEmptyResponse = errors.New("model returned an empty response")
	ErrRateLimited   = errors.New("model provider rate limited the request")
	ErrUnauthorized  = errors.New("model provider rejected the credentials")
)

// Message is one turn of a chat completion request
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest describes a single generation call
type CompletionRequest struct {
	System      string
	Messages    []Message
	Model       string // optional override of the configured model
	MaxTokens   int    // optional override of the configured limit
	Temperature float64
}

// CompletionResult is the generated text plus token accounting
type CompletionResult struct {
	Content          string
	Model            string
	PromptTokens     int
	CompletionTokens int
}

// Client is the interface assist services generate text through
type Client interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResult, error)
}

// HTTPClient implements Client against any OpenAI-compatible endpoint. On a
// permission-class error (401/403) it retries once with the fallback model,
// which covers providers that gate newer models per key. On 429 it waits
// briefly and retries once.
type HTTPClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	fallback   string
	maxTokens  int
	retryWait  time.Duration
	logger     *zap.Logger
}

// NewHTTPClient creates a client from configuration
func NewHTTPClient(cfg *config.LLMConfig, logger *zap.Logger) *HTTPClient {
	if logger == nil {
		logger = zap.NewNop()
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	return &HTTPClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		fallback:   cfg.FallbackModel,
		maxTokens:  cfg.MaxTokens,
		retryWait:  2 * time.Second,
		logger:     logger,
	}
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Complete implements Client
func (c *HTTPClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResult, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}

	result, err := c.complete(ctx, model, req)
	if err == nil {
		return result, nil
	}

	if errors.Is(err, ErrUnauthorized) && c.fallback != "" && model != c.fallback {
		c.logger.Warn("Model rejected, retrying with fallback",
			zap.String("model", model),
			zap.String("fallback", c.fallback))
		return c.complete(ctx, c.fallback, req)
	}

	if errors.Is(err, ErrRateLimited) {
		select {
		case <-time.After(c.retryWait):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		return c.complete(ctx, model, req)
	}

	return nil, err
}

func (c *HTTPClient) complete(ctx context.Context, model string, req CompletionRequest) (*CompletionResult, error) {
	messages := make([]Message, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, Message{Role: "system", Content: req.System})
	}
	messages = append(messages, req.Messages...)

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.maxTokens
	}

	body, err := json.Marshal(chatRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode completion request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build completion request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read completion response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: status %d", ErrUnauthorized, resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, ErrRateLimited
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("completion request returned status %d: %s",
			resp.StatusCode, truncate(string(respBody), 200))
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode completion response: %w", err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("model provider error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return nil, ErrEmptyResponse
	}

	respModel := parsed.Model
	if respModel == "" {
		respModel = model
	}

	return &CompletionResult{
		Content:          parsed.Choices[0].Message.Content,
		Model:            respModel,
		PromptTokens:     parsed.Usage.PromptTokens,
		CompletionTokens: parsed.Usage.CompletionTokens,
	}, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

var _ Client = (*HTTPClient)(nil)
