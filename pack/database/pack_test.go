package database

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/felixgeelhaar/dbmcp/domain/guard"
	"github.com/felixgeelhaar/dbmcp/domain/llm"
	"github.com/felixgeelhaar/dbmcp/domain/query"
	"github.com/felixgeelhaar/dbmcp/domain/tool"
)

// fakeRunner applies the guard like the dispatcher and records what ran.
type fakeRunner struct {
	result  query.Result
	tables  []string
	ran     []query.Descriptor
	listed  []query.Backend
	listErr error
}

func (r *fakeRunner) Run(_ context.Context, d query.Descriptor) (query.Result, error) {
	if err := guard.Check(d); err != nil {
		return query.Result{}, err
	}
	r.ran = append(r.ran, d)
	return r.result, nil
}

func (r *fakeRunner) ListTables(_ context.Context, b query.Backend) ([]string, error) {
	r.listed = append(r.listed, b)
	return r.tables, r.listErr
}

type fakeCompleter struct {
	replies  []string
	requests []llm.Request
}

func (c *fakeCompleter) Complete(_ context.Context, req llm.Request) (llm.Response, error) {
	c.requests = append(c.requests, req)
	if len(c.replies) == 0 {
		return llm.Response{}, errors.New("no reply scripted")
	}
	reply := c.replies[0]
	c.replies = c.replies[1:]
	return llm.Response{Content: reply}, nil
}

func newPack(t *testing.T, runner *fakeRunner, completer llm.Completer, backends ...query.Backend) map[string]tool.Tool {
	t.Helper()
	p, err := New(Config{Runner: runner, Backends: backends, Completer: completer})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	tools := make(map[string]tool.Tool)
	for _, tl := range p.Tools {
		tools[tl.Name()] = tl
	}
	return tools
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	if _, err := New(Config{Backends: []query.Backend{query.Postgres}}); err == nil {
		t.Error("expected error without runner")
	}
	if _, err := New(Config{Runner: &fakeRunner{}}); err == nil {
		t.Error("expected error without backends")
	}
}

func TestNew_ToolSet(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		backends  []query.Backend
		completer llm.Completer
		want      []string
	}{
		{name: "sql only", backends: []query.Backend{query.Postgres}, want: []string{"list_tables", "run_query"}},
		{name: "with mongo", backends: []query.Backend{query.Postgres, query.MongoDB}, want: []string{"list_tables", "run_query", "run_mongo_operation"}},
		{name: "with llm", backends: []query.Backend{query.MySQL}, completer: &fakeCompleter{}, want: []string{"list_tables", "run_query", "analyze_database"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tools := newPack(t, &fakeRunner{}, tt.completer, tt.backends...)
			if len(tools) != len(tt.want) {
				t.Fatalf("tools = %d, want %d", len(tools), len(tt.want))
			}
			for _, name := range tt.want {
				tl, ok := tools[name]
				if !ok {
					t.Errorf("missing %s", name)
					continue
				}
				if !tl.Annotations().ReadOnly {
					t.Errorf("%s should be read-only", name)
				}
			}
		})
	}
}

func TestRunQuery_Describe(t *testing.T) {
	t.Parallel()

	tools := newPack(t, &fakeRunner{}, nil, query.Postgres, query.MySQL, query.MongoDB)
	describer, ok := tools["run_query"].(query.Describer)
	if !ok {
		t.Fatal("run_query must implement query.Describer")
	}

	tests := []struct {
		name        string
		input       string
		wantBackend query.Backend
		wantErr     error
	}{
		{name: "default backend", input: `{"query": "SELECT 1"}`, wantBackend: query.Postgres},
		{name: "explicit backend", input: `{"backend": "mysql", "query": "SHOW TABLES"}`, wantBackend: query.MySQL},
		{name: "type alias", input: `{"type": "mongo", "query": "db.users.find({})"}`, wantBackend: query.MongoDB},
		{name: "unknown backend", input: `{"backend": "oracle", "query": "SELECT 1"}`, wantErr: query.ErrInvalidDescriptor},
		{name: "unknown field", input: `{"sql": "SELECT 1"}`, wantErr: tool.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			d, err := describer.Describe(json.RawMessage(tt.input))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Describe() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Describe() error = %v", err)
			}
			if d.Backend != tt.wantBackend {
				t.Errorf("Backend = %s, want %s", d.Backend, tt.wantBackend)
			}
		})
	}
}

func TestRunQuery_MongoShell(t *testing.T) {
	t.Parallel()

	tools := newPack(t, &fakeRunner{}, nil, query.MongoDB)
	d, err := tools["run_query"].(query.Describer).Describe(json.RawMessage(`{"query": "db.orders.find({\"status\": \"paid\"}).limit(5)"}`))
	if err != nil {
		t.Fatalf("Describe() error = %v", err)
	}
	if d.Mongo == nil || d.Mongo.Collection != "orders" || d.Mongo.Limit != 5 {
		t.Errorf("Mongo = %+v", d.Mongo)
	}
}

func TestRunQuery_ExecuteIsGuarded(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{result: query.CountResult(query.Postgres, 3)}
	tools := newPack(t, runner, nil, query.Postgres)

	res, err := tools["run_query"].Execute(context.Background(), json.RawMessage(`{"query": "SELECT count(*) FROM users"}`))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(res.OutputString(), `"count":3`) {
		t.Errorf("output = %s", res.OutputString())
	}

	_, err = tools["run_query"].Execute(context.Background(), json.RawMessage(`{"query": "DELETE FROM users"}`))
	if !errors.Is(err, guard.ErrRejected) {
		t.Fatalf("Execute() error = %v, want ErrRejected", err)
	}
	if len(runner.ran) != 1 {
		t.Errorf("ran = %d, rejected query must not run", len(runner.ran))
	}
}

func TestRunMongoOperation(t *testing.T) {
	t.Parallel()

	tools := newPack(t, &fakeRunner{}, nil, query.MongoDB)
	describer := tools["run_mongo_operation"].(query.Describer)

	d, err := describer.Describe(json.RawMessage(`{
		"operation": "aggregate",
		"collection": "orders",
		"pipeline": [{"$match": {"status": "paid"}}, {"$group": {"_id": "$customer", "n": {"$sum": 1}}}]
	}`))
	if err != nil {
		t.Fatalf("Describe() error = %v", err)
	}
	if err := guard.Check(d); err != nil {
		t.Errorf("guard.Check() = %v", err)
	}

	d, err = describer.Describe(json.RawMessage(`{"operation": "aggregate", "collection": "orders", "pipeline": [{"$out": "copy"}]}`))
	if err != nil {
		t.Fatalf("Describe() error = %v", err)
	}
	if err := guard.Check(d); !errors.Is(err, guard.ErrRejected) {
		t.Errorf("guard.Check($out) = %v, want rejection", err)
	}

	if _, err := describer.Describe(json.RawMessage(`{"operation": "find", "collection": "c", "filter": [1]}`)); !errors.Is(err, query.ErrInvalidDescriptor) {
		t.Errorf("array filter error = %v, want ErrInvalidDescriptor", err)
	}
}

func TestListTables(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{tables: []string{"orders", "users"}}
	tools := newPack(t, runner, nil, query.MySQL)

	res, err := tools["list_tables"].Execute(context.Background(), nil)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	var out listTablesOutput
	if err := json.Unmarshal(res.Output, &out); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if out.Backend != query.MySQL || out.Count != 2 {
		t.Errorf("output = %+v", out)
	}
	if len(runner.listed) != 1 || runner.listed[0] != query.MySQL {
		t.Errorf("listed = %v", runner.listed)
	}
}

func TestAnalyzeDatabase(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{
		tables: []string{"orders"},
		result: query.NewResult(query.Postgres, []string{"total"}, []query.Row{{"total": 42}}, 0),
	}
	completer := &fakeCompleter{replies: []string{
		"```sql\nSELECT sum(amount) AS total FROM orders\n```",
		"## Findings\nRevenue is 42.",
	}}
	tools := newPack(t, runner, completer, query.Postgres)

	res, err := tools["analyze_database"].Execute(context.Background(), json.RawMessage(`{"request": "total revenue?"}`))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	var out analysisOutput
	if err := json.Unmarshal(res.Output, &out); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if out.Query != "SELECT sum(amount) AS total FROM orders" {
		t.Errorf("Query = %q", out.Query)
	}
	if out.Analysis != "## Findings\nRevenue is 42." {
		t.Errorf("Analysis = %q", out.Analysis)
	}
	if out.Chart != nil {
		t.Errorf("Chart = %+v, want none for a request without chart words", *out.Chart)
	}
	if len(runner.ran) != 1 {
		t.Errorf("ran = %d", len(runner.ran))
	}
	if !strings.Contains(completer.requests[0].User, "Tables: orders") {
		t.Errorf("translate prompt = %s", completer.requests[0].User)
	}
	if completer.requests[0].Temperature != 0 {
		t.Errorf("translate temperature = %v", completer.requests[0].Temperature)
	}
}

func TestAnalyzeDatabase_GeneratedWriteIsRejected(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{}
	completer := &fakeCompleter{replies: []string{"DELETE FROM orders"}}
	tools := newPack(t, runner, completer, query.Postgres)

	_, err := tools["analyze_database"].Execute(context.Background(), json.RawMessage(`{"request": "clean up"}`))
	if !errors.Is(err, guard.ErrRejected) {
		t.Fatalf("Execute() error = %v, want ErrRejected", err)
	}
	if len(runner.ran) != 0 {
		t.Error("generated write reached the runner")
	}
	if len(completer.requests) != 1 {
		t.Errorf("requests = %d, analysis must not run", len(completer.requests))
	}
}

func TestAnalyzeDatabase_EmptyResult(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{result: query.NewResult(query.MongoDB, nil, nil, 0)}
	completer := &fakeCompleter{replies: []string{`db.orders.find({"status": "void"})`}}
	tools := newPack(t, runner, completer, query.MongoDB)

	res, err := tools["analyze_database"].Execute(context.Background(), json.RawMessage(`{"request": "void orders", "type": "mongo"}`))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	var out analysisOutput
	_ = json.Unmarshal(res.Output, &out)
	if out.Analysis != NoDataAnalysis {
		t.Errorf("Analysis = %q", out.Analysis)
	}
	if len(completer.requests) != 1 {
		t.Errorf("requests = %d", len(completer.requests))
	}
}

func TestAnalyzeDatabase_RequiresRequest(t *testing.T) {
	t.Parallel()

	tools := newPack(t, &fakeRunner{}, &fakeCompleter{}, query.Postgres)
	if _, err := tools["analyze_database"].Execute(context.Background(), json.RawMessage(`{"request": "  "}`)); !errors.Is(err, tool.ErrInvalidInput) {
		t.Errorf("Execute() error = %v, want ErrInvalidInput", err)
	}
}

func TestStripFences(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{"SELECT 1", "SELECT 1"},
		{"  SELECT 1\n", "SELECT 1"},
		{"```sql\nSELECT 1\n```", "SELECT 1"},
		{"```\nSELECT 1\n```", "SELECT 1"},
		{"```SELECT 1```", "SELECT 1"},
	}
	for _, tt := range tests {
		if got := StripFences(tt.in); got != tt.want {
			t.Errorf("StripFences(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
