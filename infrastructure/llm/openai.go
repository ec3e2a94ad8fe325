// Package llm provides the OpenAI chat completions client used by the
// chat_llm and analyze_database tools.
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

	domainconfig "github.com/felixgeelhaar/dbmcp/domain/config"
	domainllm "github.com/felixgeelhaar/dbmcp/domain/llm"
)

// Errors returned by the client.
var (
	ErrNoChoices = errors.New("llm: no choices in response")
	ErrAPI       = errors.New("llm: api error")
)

// Config configures the OpenAI client.
type Config struct {
	APIKey  string
	BaseURL string // Default: https://api.openai.com/v1
	Model   string
	Timeout time.Duration
}

// FromConfig adapts the server configuration.
func FromConfig(c domainconfig.LLMConfig) Config {
	return Config{
		APIKey:  c.APIKey,
		BaseURL: c.BaseURL,
		Model:   c.Model,
		Timeout: c.Timeout,
	}
}

// OpenAI implements domainllm.Completer against the chat completions API.
type OpenAI struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

// NewOpenAI creates a client.
func NewOpenAI(config Config) *OpenAI {
	baseURL := strings.TrimRight(config.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	model := config.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &OpenAI{
		apiKey:  config.APIKey,
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{Timeout: timeout},
	}
}

// Model returns the configured model name.
func (c *OpenAI) Model() string {
	return c.model
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Complete implements domainllm.Completer.
func (c *OpenAI) Complete(ctx context.Context, req domainllm.Request) (domainllm.Response, error) {
	if c.apiKey == "" {
		return domainllm.Response{}, domainllm.ErrNotConfigured
	}

	var messages []chatMessage
	if strings.TrimSpace(req.System) != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.User})

	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return domainllm.Response{}, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return domainllm.Response{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return domainllm.Response{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return domainllm.Response{}, fmt.Errorf("read response: %w", err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		if resp.StatusCode != http.StatusOK {
			return domainllm.Response{}, fmt.Errorf("%w: status %d: %s", ErrAPI, resp.StatusCode, strings.TrimSpace(string(respBody)))
		}
		return domainllm.Response{}, fmt.Errorf("parse response: %w", err)
	}
	if parsed.Error != nil {
		return domainllm.Response{}, fmt.Errorf("%w: %s (%s)", ErrAPI, parsed.Error.Message, parsed.Error.Type)
	}
	if resp.StatusCode != http.StatusOK {
		return domainllm.Response{}, fmt.Errorf("%w: status %d", ErrAPI, resp.StatusCode)
	}
	if len(parsed.Choices) == 0 {
		return domainllm.Response{}, ErrNoChoices
	}

	return domainllm.Response{
		Model:   parsed.Model,
		Content: parsed.Choices[0].Message.Content,
		Usage: domainllm.Usage{
			PromptTokens:     parsed.Usage.PromptTokens,
			CompletionTokens: parsed.Usage.CompletionTokens,
			TotalTokens:      parsed.Usage.TotalTokens,
		},
	}, nil
}
