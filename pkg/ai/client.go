// Package ai talks to an OpenAI-compatible chat-completions endpoint.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Message is one entry of a chat-completion conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client calls any OpenAI-compatible /v1/chat/completions endpoint.
// Works with OpenAI, vLLM, LiteLLM, LocalAI, OpenRouter, self-hosted models, etc.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewClient builds a chat-completion client.
// baseURL should include the /v1 prefix, e.g. "https://api.openai.com/v1".
// apiKey can be empty for local models that do not require authentication.
func NewClient(baseURL, apiKey, model string) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	return &Client{
		baseURL: baseURL,
		apiKey:  strings.TrimSpace(apiKey),
		model:   strings.TrimSpace(model),
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// Complete forwards the conversation to the provider and returns its raw
// completion response body, so callers can relay it untouched.
func (c *Client) Complete(ctx context.Context, messages []Message) (json.RawMessage, error) {
	if c.model == "" {
		return nil, fmt.Errorf("completion model required")
	}
	if len(messages) == 0 {
		return nil, fmt.Errorf("messages required")
	}

	reqBody := chatRequest{
		Model:    c.model,
		Messages: messages,
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	url := c.baseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("completion request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp errorResponse
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		if errResp.Error.Message != "" {
			return nil, fmt.Errorf("completion api error: %s", errResp.Error.Message)
		}
		return nil, fmt.Errorf("completion api error: %s", resp.Status)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("completion read: %w", err)
	}
	if !json.Valid(raw) {
		return nil, fmt.Errorf("completion api returned invalid JSON")
	}
	return json.RawMessage(raw), nil
}

// Provider request/response types.

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}
