// Package openrouter is the language-capability client. The orchestrator
// only sees the core.LLMClient interface; this is the OpenRouter-backed
// implementation.
package openrouter

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

	"github.com/caresbot/caresbot/internal/core"
)

const BaseURL = "https://openrouter.ai/api/v1"

// Message is the wire message shape.
type Message = core.Message

// ChatRequest is the request body for chat completions.
type ChatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
}

// ChatResponse is the response from chat completions.
type ChatResponse struct {
	Choices []struct {
		Message struct {
			Content json.RawMessage `json:"content"`
			Role    string          `json:"role"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Client calls the OpenRouter API.
type Client struct {
	APIKey         string
	Model          string
	EmbeddingModel string
	HTTP           *http.Client

	baseURL string // overridden in tests; empty means BaseURL
}

// NewClient creates a client with the given API key and chat model.
func NewClient(apiKey, model, embeddingModel string) *Client {
	return &Client{
		APIKey:         apiKey,
		Model:          model,
		EmbeddingModel: embeddingModel,
		HTTP:           http.DefaultClient,
	}
}

// parseContent parses API content that may be string, null, or an array of
// parts (e.g. [{"type":"text","text":"..."}]).
func parseContent(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var parts []map[string]interface{}
	if err := json.Unmarshal(raw, &parts); err != nil {
		return ""
	}
	var b strings.Builder
	for _, p := range parts {
		if t, ok := p["text"].(string); ok {
			b.WriteString(t)
		}
	}
	return b.String()
}

// wrapTransport maps a transport-level failure to the orchestrator's error
// taxonomy: a blown deadline is a capability timeout, everything else is the
// provider being unavailable.
func wrapTransport(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", core.ErrCapabilityTimeout, err)
	}
	return fmt.Errorf("%w: %v", core.ErrBackendUnavailable, err)
}

// ChatCompletion sends messages and returns the assistant reply content.
func (c *Client) ChatCompletion(ctx context.Context, messages []Message) (string, error) {
	if c.APIKey == "" {
		return "", fmt.Errorf("openrouter: API key not set")
	}
	if c.Model == "" {
		return "", fmt.Errorf("openrouter: model not set")
	}
	raw, err := json.Marshal(ChatRequest{Model: c.Model, Messages: messages})
	if err != nil {
		return "", err
	}
	bodyBytes, status, err := c.post(ctx, "/chat/completions", raw)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("openrouter: HTTP %d: %s", status, string(bodyBytes))
	}
	var out ChatResponse
	if err := json.Unmarshal(bodyBytes, &out); err != nil {
		return "", fmt.Errorf("openrouter: decode: %w", err)
	}
	if out.Error != nil {
		return "", fmt.Errorf("openrouter: %s", out.Error.Message)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("openrouter: no choices in response")
	}
	return parseContent(out.Choices[0].Message.Content), nil
}

// post sends one request with exponential-backoff retries on network errors,
// 5xx, and 429.
func (c *Client) post(ctx context.Context, path string, raw []byte) ([]byte, int, error) {
	const maxRetries = 3
	backoff := 1 * time.Second

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, 0, wrapTransport(ctx.Err())
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		base := c.baseURL
		if base == "" {
			base = BaseURL
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+path, bytes.NewReader(raw))
		if err != nil {
			return nil, 0, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
		req.Header.Set("X-Title", "caresbot")

		resp, err := c.HTTP.Do(req)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return nil, 0, wrapTransport(ctx.Err())
			}
			continue
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("HTTP %d", resp.StatusCode)
			continue
		}
		return body, resp.StatusCode, nil
	}
	return nil, 0, wrapTransport(fmt.Errorf("request failed after %d retries: %v", maxRetries, lastErr))
}

// EmbeddingRequest is the request body for embeddings.
type EmbeddingRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

// EmbeddingResponse is the response from embeddings.
type EmbeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Embed generates an embedding for the given text. Requires EmbeddingModel.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if c.APIKey == "" {
		return nil, fmt.Errorf("openrouter: API key not set")
	}
	if c.EmbeddingModel == "" {
		return nil, fmt.Errorf("openrouter: embedding model not set")
	}
	raw, err := json.Marshal(EmbeddingRequest{Model: c.EmbeddingModel, Input: text})
	if err != nil {
		return nil, err
	}
	bodyBytes, status, err := c.post(ctx, "/embeddings", raw)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("openrouter embeddings: HTTP %d: %s", status, string(bodyBytes))
	}
	var out EmbeddingResponse
	if err := json.Unmarshal(bodyBytes, &out); err != nil {
		return nil, fmt.Errorf("decode embeddings: %w", err)
	}
	if out.Error != nil {
		return nil, fmt.Errorf("openrouter embeddings: %s", out.Error.Message)
	}
	if len(out.Data) == 0 {
		return nil, fmt.Errorf("openrouter embeddings: no data")
	}
	return out.Data[0].Embedding, nil
}
