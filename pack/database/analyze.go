package database

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/felixgeelhaar/dbmcp/domain/llm"
	"github.com/felixgeelhaar/dbmcp/domain/query"
	"github.com/felixgeelhaar/dbmcp/domain/tool"
)

// sampleRows is how many rows the analysis prompt sees.
const sampleRows = 100

// NoDataAnalysis is reported instead of an analysis for an empty result.
const NoDataAnalysis = "No data available for analysis."

const translateSystem = "You are an expert at translating natural language into database queries. " +
	"Only return the query without any explanations, comments, or markdown formatting. " +
	"Only generate safe, read-only queries. Never include INSERT, UPDATE, DELETE, DROP, ALTER, CREATE, or any other write operation."

const analyzeSystem = "You are an expert data analyst specializing in database analysis. " +
	"Provide insightful, actionable analysis based on the data. Format your response in well-structured markdown."

type analyzeInput struct {
	backendSelector
	Request string `json:"request"`
}

type analysisOutput struct {
	Backend  query.Backend `json:"backend"`
	Request  string        `json:"request"`
	Query    string        `json:"query"`
	Result   query.Result  `json:"result"`
	Analysis string        `json:"analysis"`
	Chart    *Chart        `json:"chart,omitempty"`
}

func analyzeTool(cfg Config) tool.Tool {
	return tool.NewBuilder("analyze_database").
		WithDescription("Answer a natural-language question about a database. The question is translated into a " +
			"read-only query, the query runs behind the same read-only guard as run_query, and the rows are analyzed. " +
			"Requests that ask for a chart, trend, distribution or comparison also get a chart suggestion.").
		WithInputSchema(tool.ObjectSchema(map[string]tool.Property{
			"backend": backendProperty(cfg),
			"request": tool.String("Question whose answer can be found in the database"),
		}, "request")).
		ReadOnly().
		OpenWorld().
		InCategory(tool.CategoryDatabase).
		WithHandler(func(ctx context.Context, input json.RawMessage) (tool.Result, error) {
			in, err := tool.DecodeInput[analyzeInput](input)
			if err != nil {
				return tool.Result{}, err
			}
			if strings.TrimSpace(in.Request) == "" {
				return tool.Result{}, fmt.Errorf("%w: request is required", tool.ErrInvalidInput)
			}
			backend, err := in.resolve(cfg)
			if err != nil {
				return tool.Result{}, err
			}

			out, err := analyze(ctx, cfg, backend, in.Request)
			if err != nil {
				return tool.Result{}, err
			}
			return tool.JSONResult(out)
		}).
		MustBuild()
}

func analyze(ctx context.Context, cfg Config, backend query.Backend, request string) (analysisOutput, error) {
	tables, err := cfg.Runner.ListTables(ctx, backend)
	if err != nil {
		return analysisOutput{}, err
	}

	resp, err := cfg.Completer.Complete(ctx, llm.Request{
		System:      translateSystem,
		User:        translatePrompt(backend, tables, request),
		Temperature: 0,
	})
	if err != nil {
		return analysisOutput{}, fmt.Errorf("translate request: %w", err)
	}
	text := StripFences(resp.Content)

	d, err := describeText(backend, text)
	if err != nil {
		return analysisOutput{}, err
	}
	res, err := cfg.Runner.Run(ctx, d)
	if err != nil {
		return analysisOutput{}, err
	}

	out := analysisOutput{Backend: backend, Request: request, Query: text, Result: res, Analysis: NoDataAnalysis}
	if len(res.Rows) == 0 {
		return out, nil
	}

	resp, err = cfg.Completer.Complete(ctx, llm.Request{
		System:      analyzeSystem,
		User:        analysisPrompt(request, res),
		Temperature: 0.2,
	})
	if err != nil {
		return analysisOutput{}, fmt.Errorf("analyze result: %w", err)
	}
	out.Analysis = strings.TrimSpace(resp.Content)
	out.Chart = SuggestChart(request, res)
	return out, nil
}

func translatePrompt(backend query.Backend, tables []string, request string) string {
	var sb strings.Builder
	switch backend {
	case query.Postgres:
		sb.WriteString("Write a single PostgreSQL SELECT statement.\n")
	case query.MySQL:
		sb.WriteString("Write a single MySQL SELECT statement.\n")
	case query.MongoDB:
		sb.WriteString("Write a single MongoDB shell expression such as db.collection.find({...}) or db.collection.aggregate([...]). Use double-quoted JSON keys.\n")
	}
	if len(tables) > 0 {
		noun := "Tables"
		if backend == query.MongoDB {
			noun = "Collections"
		}
		fmt.Fprintf(&sb, "%s: %s\n", noun, strings.Join(tables, ", "))
	}
	fmt.Fprintf(&sb, "Natural language request: %q\n", request)
	sb.WriteString("Return ONLY the query, complete and correct, without explanation or markdown.")
	return sb.String()
}

func analysisPrompt(request string, res query.Result) string {
	rows := res.Rows
	note := ""
	if len(rows) > sampleRows {
		note = fmt.Sprintf("\n[Note: showing only the first %d of %d rows]", sampleRows, len(rows))
		rows = rows[:sampleRows]
	}
	sample, _ := json.MarshalIndent(rows, "", "  ")

	return fmt.Sprintf("You've been provided with data from a database query.\n"+
		"The user's request was: %q\n"+
		"Here's a sample of the data:\n```json\n%s\n```%s\n"+
		"Provide a concise analysis addressing the request: key findings, trends or patterns, "+
		"anomalies, and actionable recommendations.", request, sample, note)
}

// StripFences removes a surrounding markdown code fence from model output.
// The fence's language tag line is dropped with it.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	body := strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		body = body[nl+1:]
	}
	body = strings.TrimSpace(body)
	return strings.TrimSpace(strings.TrimSuffix(body, "```"))
}
