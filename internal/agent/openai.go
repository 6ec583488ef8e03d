package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Omribarzi/lead-generation-agent/internal/errs"
)

const defaultChatURL = "https://api.openai.com/v1/chat/completions"

// Request/response structs for OpenAI's /v1/chat/completions.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// OpenAIClient is the production ChatCompleter. Temperature 0.7 keeps the
// output creative but controlled; 200 tokens is plenty for a 30-word message.
type OpenAIClient struct {
	apiKey string
	model  string
	url    string
	hc     *http.Client
}

func NewOpenAIClient(apiKey, model string) *OpenAIClient {
	if model == "" {
		model = "gpt-4o"
	}
	return &OpenAIClient{
		apiKey: apiKey,
		model:  model,
		url:    defaultChatURL,
		hc:     &http.Client{Timeout: 60 * time.Second},
	}
}

// WithURL overrides the completions endpoint, for tests.
func (c *OpenAIClient) WithURL(url string) *OpenAIClient {
	c.url = url
	return c
}

func (c *OpenAIClient) Complete(ctx context.Context, system, user string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		MaxTokens:   200,
		Temperature: 0.7,
	})
	if err != nil {
		return "", fmt.Errorf("encode chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build chat request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return "", &errs.TransportError{Service: "openai", Err: err}
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &errs.TransportError{Service: "openai", Err: err}
	}

	var out chatResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", &errs.TransportError{Service: "openai", Err: fmt.Errorf("decode response: %w", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := fmt.Sprintf("unexpected status %d", resp.StatusCode)
		if out.Error != nil {
			msg = out.Error.Message
		}
		return "", &errs.ServiceError{Service: "openai", Message: msg}
	}
	if len(out.Choices) == 0 {
		return "", &errs.ServiceError{Service: "openai", Message: "no choices in response"}
	}
	return out.Choices[0].Message.Content, nil
}
