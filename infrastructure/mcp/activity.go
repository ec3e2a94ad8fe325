package mcp

import (
	"context"
	"errors"

	mcpgo "github.com/felixgeelhaar/mcp-go"

	"github.com/felixgeelhaar/dbmcp/domain/activity"
)

// Activity log endpoints exposed next to the tools.
const (
	LatestLogURI        = "logs://latest"
	LogSummaryPrompt    = "log_summary_prompt"
	noLogsPromptMessage = "There are no logs yet."
)

// LatestLog renders the newest activity entry, or activity.EmptyMessage
// when the log is empty.
func LatestLog(ctx context.Context, store activity.Store) (string, error) {
	e, err := store.Latest(ctx)
	if errors.Is(err, activity.ErrEmpty) {
		return activity.EmptyMessage, nil
	}
	if err != nil {
		return "", err
	}
	return e.String(), nil
}

// LogSummary renders the prompt asking the client model to summarize every
// logged entry.
func LogSummary(ctx context.Context, store activity.Store) (string, error) {
	entries, err := store.List(ctx, 0)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return noLogsPromptMessage, nil
	}
	return "Summarize the current logs: " + activity.Format(entries), nil
}

func (s *Server) registerActivity(store activity.Store) {
	s.srv.Resource(LatestLogURI).
		Name("latest_log").
		Description("The most recently added activity log entry.").
		MimeType("text/plain").
		Handler(func(ctx context.Context, uri string, _ map[string]string) (*mcpgo.ResourceContent, error) {
			text, err := LatestLog(ctx, store)
			if err != nil {
				return nil, err
			}
			return &mcpgo.ResourceContent{URI: uri, MimeType: "text/plain", Text: text}, nil
		})

	s.srv.Prompt(LogSummaryPrompt).
		Description("Ask the model to summarize every activity log entry.").
		Handler(func(ctx context.Context, _ map[string]string) (*mcpgo.PromptResult, error) {
			text, err := LogSummary(ctx, store)
			if err != nil {
				return nil, err
			}
			return &mcpgo.PromptResult{
				Messages: []mcpgo.PromptMessage{{
					Role:    "user",
					Content: mcpgo.TextContent{Type: "text", Text: text},
				}},
			}, nil
		})
}
