// Package llm defines the chat completion contract used by the assistant
// tools.
package llm

import (
	"context"
	"errors"
)

// ErrNotConfigured indicates no provider credentials are configured.
var ErrNotConfigured = errors.New("llm: api key not configured")

// Completer produces a chat completion for a system and user message.
type Completer interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

// Request is a single-turn chat completion request.
type Request struct {
	System      string
	User        string
	Temperature float64
	MaxTokens   int
}

// Response is the first completion choice.
type Response struct {
	Model   string
	Content string
	Usage   Usage
}

// Usage reports token consumption.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}
