// Package activity provides the activity log tools: add_log, get_logs and
// get_latest_log.
package activity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/felixgeelhaar/dbmcp/domain/activity"
	"github.com/felixgeelhaar/dbmcp/domain/pack"
	"github.com/felixgeelhaar/dbmcp/domain/tool"
)

// New creates the activity pack around store.
func New(store activity.Store) (*pack.Pack, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	return pack.NewBuilder("activity").
		WithDescription("Read and append the activity log").
		AddTools(
			addLogTool(store),
			getLogsTool(store),
			latestLogTool(store),
		).
		Build(), nil
}

func addLogTool(store activity.Store) tool.Tool {
	return tool.NewBuilder("add_log").
		WithDescription("Append a message to the activity log. Returns the message.").
		WithInputSchema(tool.ObjectSchema(map[string]tool.Property{
			"message": tool.String("The log content to add"),
		}, "message")).
		InCategory(tool.CategoryActivity).
		WithHandler(func(ctx context.Context, input json.RawMessage) (tool.Result, error) {
			in, err := tool.DecodeInput[struct {
				Message string `json:"message"`
			}](input)
			if err != nil {
				return tool.Result{}, err
			}

			e, err := activity.NewEntry(activity.SourceUser, in.Message)
			if err != nil {
				return tool.Result{}, fmt.Errorf("%w: %v", tool.ErrInvalidInput, err)
			}
			if err := store.Append(ctx, e); err != nil {
				return tool.Result{}, err
			}
			return tool.TextResult(e.Message), nil
		}).
		MustBuild()
}

func getLogsTool(store activity.Store) tool.Tool {
	return tool.NewBuilder("get_logs").
		WithDescription("Return the activity log, oldest first, one entry per line.").
		WithInputSchema(tool.ObjectSchema(map[string]tool.Property{
			"limit": tool.Integer("Return only the most recent entries. Zero returns all."),
		})).
		ReadOnly().
		InCategory(tool.CategoryActivity).
		WithHandler(func(ctx context.Context, input json.RawMessage) (tool.Result, error) {
			in, err := tool.DecodeInput[struct {
				Limit int `json:"limit"`
			}](input)
			if err != nil {
				return tool.Result{}, err
			}

			entries, err := store.List(ctx, in.Limit)
			if err != nil {
				return tool.Result{}, err
			}
			return tool.TextResult(activity.Format(entries)), nil
		}).
		MustBuild()
}

func latestLogTool(store activity.Store) tool.Tool {
	return tool.NewBuilder("get_latest_log").
		WithDescription("Return the most recent activity log entry.").
		ReadOnly().
		InCategory(tool.CategoryActivity).
		WithHandler(func(ctx context.Context, _ json.RawMessage) (tool.Result, error) {
			e, err := store.Latest(ctx)
			if errors.Is(err, activity.ErrEmpty) {
				return tool.TextResult(activity.EmptyMessage), nil
			}
			if err != nil {
				return tool.Result{}, err
			}
			return tool.TextResult(e.String()), nil
		}).
		MustBuild()
}
