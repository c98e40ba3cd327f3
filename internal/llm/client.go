// Package llm provides the completion client the generation pipeline uses
// for every model call. Call sites depend on the narrow Client interface;
// the HTTP implementation, the retry decorator, and the test mock all
// satisfy it.
package llm

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

// Defaults for the chat completion endpoint.
const (
	DefaultBaseURL = "https://api.openai.com"
	DefaultModel   = "gpt-4o-mini"

	completionsPath = "/v1/chat/completions"
	requestTimeout  = 120 * time.Second
)

// Client is the completion surface the pipeline needs. Implementations
// must be safe for concurrent use, and completions must be safe to retry.
type Client interface {
	// Complete sends a prompt and returns the model's raw text response.
	Complete(ctx context.Context, prompt string, temperature float64) (string, error)
}

// HTTPDoer is the subset of *http.Client the API client uses.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig configures a ChatClient.
type ClientConfig struct {
	// BaseURL is the API root. Empty means DefaultBaseURL.
	BaseURL string
	// APIKey is sent as a bearer token when non-empty.
	APIKey string
	// Model selects the completion model. Empty means DefaultModel.
	Model string
}

// ChatClient talks to an OpenAI-compatible chat completions endpoint.
type ChatClient struct {
	baseURL string
	apiKey  string
	model   string
	httpc   HTTPDoer
}

// NewChatClient creates a ChatClient. A nil doer uses a default HTTP
// client with a generous timeout, since completions are slow.
func NewChatClient(cfg ClientConfig, httpc HTTPDoer) *ChatClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if httpc == nil {
		httpc = &http.Client{Timeout: requestTimeout}
	}
	return &ChatClient{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		httpc:   httpc,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Complete implements Client against the chat completions API.
func (c *ChatClient) Complete(ctx context.Context, prompt string, temperature float64) (string, error) {
	payload, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: temperature,
	})
	if err != nil {
		return "", fmt.Errorf("encoding completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+completionsPath, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("building completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling completion API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("completion API returned status %d: %s",
			resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decoding completion response: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return "", fmt.Errorf("completion response contained no choices")
	}

	return decoded.Choices[0].Message.Content, nil
}
