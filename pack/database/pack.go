// Package database provides the read-only database tools: list_tables,
// run_query, run_mongo_operation and analyze_database.
package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/felixgeelhaar/dbmcp/domain/llm"
	"github.com/felixgeelhaar/dbmcp/domain/pack"
	"github.com/felixgeelhaar/dbmcp/domain/query"
	"github.com/felixgeelhaar/dbmcp/domain/tool"
)

// Config configures the database pack.
type Config struct {
	// Runner executes guarded operations (required).
	Runner query.Runner

	// Backends are the configured backends. The first is the default when
	// a call names none.
	Backends []query.Backend

	// Completer enables analyze_database when set.
	Completer llm.Completer
}

// New creates the database pack.
func New(cfg Config) (*pack.Pack, error) {
	if cfg.Runner == nil {
		return nil, errors.New("runner is required")
	}
	if len(cfg.Backends) == 0 {
		return nil, errors.New("at least one backend is required")
	}

	b := pack.NewBuilder("database").
		WithDescription("Read-only database tools").
		AddTools(listTablesTool(cfg), runQueryTool(cfg))

	for _, backend := range cfg.Backends {
		if backend == query.MongoDB {
			b.AddTools(mongoOperationTool(cfg))
			break
		}
	}
	if cfg.Completer != nil {
		b.AddTools(analyzeTool(cfg))
	}
	return b.Build(), nil
}

// backendSelector is embedded by inputs that name a backend. "type" is
// accepted as an alias of "backend".
type backendSelector struct {
	Backend string `json:"backend,omitempty"`
	Type    string `json:"type,omitempty"`
}

func (s backendSelector) resolve(cfg Config) (query.Backend, error) {
	name := s.Backend
	if name == "" {
		name = s.Type
	}
	if strings.TrimSpace(name) == "" {
		return cfg.Backends[0], nil
	}
	b, err := query.ParseBackend(name)
	if err != nil {
		return "", fmt.Errorf("%w: %v", query.ErrInvalidDescriptor, err)
	}
	return b, nil
}

func backendProperty(cfg Config) tool.Property {
	names := make([]string, len(cfg.Backends))
	for i, b := range cfg.Backends {
		names[i] = b.String()
	}
	return tool.Enum(fmt.Sprintf("Database backend. Defaults to %s.", cfg.Backends[0]), names...)
}

// queryTool is a tool whose arguments describe a database operation. The
// dispatcher calls Describe and runs the descriptor itself; Execute does the
// same through the runner for direct callers.
type queryTool struct {
	tool.Tool
	describe func(json.RawMessage) (query.Descriptor, error)
}

// Describe implements query.Describer.
func (t *queryTool) Describe(input json.RawMessage) (query.Descriptor, error) {
	return t.describe(input)
}

func newQueryTool(b *tool.Builder, runner query.Runner, describe func(json.RawMessage) (query.Descriptor, error)) tool.Tool {
	return &queryTool{
		Tool: b.WithHandler(func(ctx context.Context, input json.RawMessage) (tool.Result, error) {
			d, err := describe(input)
			if err != nil {
				return tool.Result{}, err
			}
			res, err := runner.Run(ctx, d)
			if err != nil {
				return tool.Result{}, err
			}
			return tool.JSONResult(res)
		}).MustBuild(),
		describe: describe,
	}
}

type listTablesOutput struct {
	Backend query.Backend `json:"backend"`
	Tables  []string      `json:"tables"`
	Count   int           `json:"count"`
}

func listTablesTool(cfg Config) tool.Tool {
	return tool.NewBuilder("list_tables").
		WithDescription("List the tables (PostgreSQL, MySQL) or collections (MongoDB) of a configured database.").
		WithInputSchema(tool.ObjectSchema(map[string]tool.Property{
			"backend": backendProperty(cfg),
		})).
		ReadOnly().
		InCategory(tool.CategoryDatabase).
		WithHandler(func(ctx context.Context, input json.RawMessage) (tool.Result, error) {
			in, err := tool.DecodeInput[backendSelector](input)
			if err != nil {
				return tool.Result{}, err
			}
			backend, err := in.resolve(cfg)
			if err != nil {
				return tool.Result{}, err
			}

			tables, err := cfg.Runner.ListTables(ctx, backend)
			if err != nil {
				return tool.Result{}, err
			}
			if tables == nil {
				tables = []string{}
			}
			return tool.JSONResult(listTablesOutput{Backend: backend, Tables: tables, Count: len(tables)})
		}).
		MustBuild()
}

type runQueryInput struct {
	backendSelector
	Query string `json:"query"`
}

func runQueryTool(cfg Config) tool.Tool {
	b := tool.NewBuilder("run_query").
		WithDescription("Run a read-only query. SQL backends accept SELECT, SHOW and EXPLAIN statements. " +
			"MongoDB accepts shell syntax such as db.users.find({\"age\": {\"$gt\": 30}}).limit(10) or show collections. " +
			"Writes are refused before any connection is made.").
		WithInputSchema(tool.ObjectSchema(map[string]tool.Property{
			"backend": backendProperty(cfg),
			"query":   tool.String("SQL text, or a MongoDB shell expression"),
		}, "query")).
		ReadOnly().
		InCategory(tool.CategoryDatabase)

	return newQueryTool(b, cfg.Runner, func(input json.RawMessage) (query.Descriptor, error) {
		in, err := tool.DecodeInput[runQueryInput](input)
		if err != nil {
			return query.Descriptor{}, err
		}
		backend, err := in.resolve(cfg)
		if err != nil {
			return query.Descriptor{}, err
		}
		return describeText(backend, in.Query)
	})
}

// describeText turns query text into a descriptor for backend.
func describeText(backend query.Backend, text string) (query.Descriptor, error) {
	if backend == query.MongoDB {
		return query.ParseMongoShell(text), nil
	}
	return query.NewSQLDescriptor(backend, text)
}

func mongoOperationTool(cfg Config) tool.Tool {
	b := tool.NewBuilder("run_mongo_operation").
		WithDescription("Run a structured read-only MongoDB operation. Documents are extended JSON.").
		WithInputSchema(tool.ObjectSchema(map[string]tool.Property{
			"operation": tool.Enum("Read operation",
				"find", "findOne", "aggregate", "count", "countDocuments",
				"estimatedDocumentCount", "distinct", "listCollections"),
			"collection": tool.String("Collection name"),
			"filter":     tool.Object("Query filter"),
			"pipeline":   tool.Array("Aggregation pipeline stages", tool.Object("Stage")),
			"field":      tool.String("Field for distinct"),
			"projection": tool.Object("Projection document"),
			"sort":       tool.Object("Sort document"),
			"limit":      tool.Integer("Maximum documents to return"),
		}, "operation")).
		ReadOnly().
		InCategory(tool.CategoryDatabase)

	return newQueryTool(b, cfg.Runner, func(input json.RawMessage) (query.Descriptor, error) {
		op, err := tool.DecodeInput[query.MongoOperation](input)
		if err != nil {
			return query.Descriptor{}, err
		}
		return query.NewMongoDescriptor(op)
	})
}
