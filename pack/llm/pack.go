// Package llm provides the chat_llm tool.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	domainllm "github.com/felixgeelhaar/dbmcp/domain/llm"
	"github.com/felixgeelhaar/dbmcp/domain/pack"
	"github.com/felixgeelhaar/dbmcp/domain/tool"
)

// chatTemperature is used for chat_llm calls.
const chatTemperature = 0.7

// New creates the llm pack around completer.
func New(completer domainllm.Completer) (*pack.Pack, error) {
	if completer == nil {
		return nil, errors.New("completer is required")
	}
	return pack.NewBuilder("llm").
		WithDescription("Chat with the configured language model").
		AddTools(chatTool(completer)).
		Build(), nil
}

type chatInput struct {
	SystemMessage string `json:"system_message"`
	UserMessage   string `json:"user_message"`
}

func chatTool(completer domainllm.Completer) tool.Tool {
	return tool.NewBuilder("chat_llm").
		WithDescription("Run a chat prompt against the language model and return its reply.").
		WithInputSchema(tool.ObjectSchema(map[string]tool.Property{
			"system_message": tool.String("System message prompt"),
			"user_message":   tool.String("User message prompt"),
		}, "user_message")).
		ReadOnly().
		OpenWorld().
		InCategory(tool.CategoryLLM).
		WithHandler(func(ctx context.Context, input json.RawMessage) (tool.Result, error) {
			in, err := tool.DecodeInput[chatInput](input)
			if err != nil {
				return tool.Result{}, err
			}
			if strings.TrimSpace(in.UserMessage) == "" {
				return tool.Result{}, fmt.Errorf("%w: user_message is required", tool.ErrInvalidInput)
			}

			resp, err := completer.Complete(ctx, domainllm.Request{
				System:      in.SystemMessage,
				User:        in.UserMessage,
				Temperature: chatTemperature,
			})
			if err != nil {
				return tool.Result{}, err
			}
			return tool.TextResult("Chat executed successfully. Response: " + resp.Content), nil
		}).
		MustBuild()
}
