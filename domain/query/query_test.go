package query_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/felixgeelhaar/dbmcp/domain/query"
)

func TestParseBackend(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input   string
		want    query.Backend
		wantErr bool
	}{
		{input: "postgres", want: query.Postgres},
		{input: "PostgreSQL", want: query.Postgres},
		{input: " pg ", want: query.Postgres},
		{input: "mysql", want: query.MySQL},
		{input: "mariadb", want: query.MySQL},
		{input: "mongo", want: query.MongoDB},
		{input: "MongoDB", want: query.MongoDB},
		{input: "", wantErr: true},
		{input: "oracle", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			got, err := query.ParseBackend(tt.input)
			if tt.wantErr {
				if !errors.Is(err, query.ErrUnknownBackend) {
					t.Errorf("ParseBackend(%q) error = %v, want ErrUnknownBackend", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseBackend(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseBackend(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestBackend_IsSQL(t *testing.T) {
	t.Parallel()

	if !query.Postgres.IsSQL() || !query.MySQL.IsSQL() {
		t.Error("postgres and mysql should be SQL backends")
	}
	if query.MongoDB.IsSQL() {
		t.Error("mongodb should not be a SQL backend")
	}
}

func TestNewSQLDescriptor(t *testing.T) {
	t.Parallel()

	d, err := query.NewSQLDescriptor(query.Postgres, "SELECT 1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Backend != query.Postgres || d.Statement != "SELECT 1" {
		t.Errorf("descriptor = %+v", d)
	}

	if _, err := query.NewSQLDescriptor(query.MongoDB, "SELECT 1"); !errors.Is(err, query.ErrInvalidDescriptor) {
		t.Errorf("mongodb SQL descriptor error = %v, want ErrInvalidDescriptor", err)
	}
}

func TestNewMongoDescriptor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		op      query.MongoOperation
		wantErr bool
	}{
		{
			name: "find with filter",
			op:   query.MongoOperation{Name: "find", Collection: "users", Filter: json.RawMessage(`{"age":{"$gt":30}}`)},
		},
		{
			name: "null filter is dropped",
			op:   query.MongoOperation{Name: "find", Collection: "users", Filter: json.RawMessage(`null`)},
		},
		{
			name: "aggregate pipeline",
			op:   query.MongoOperation{Name: "aggregate", Collection: "orders", Pipeline: json.RawMessage(`[{"$match":{}}]`)},
		},
		{
			name:    "filter must be object",
			op:      query.MongoOperation{Name: "find", Collection: "users", Filter: json.RawMessage(`[1,2]`)},
			wantErr: true,
		},
		{
			name:    "pipeline must be array",
			op:      query.MongoOperation{Name: "aggregate", Collection: "orders", Pipeline: json.RawMessage(`{"$match":{}}`)},
			wantErr: true,
		},
		{
			name:    "pipeline stage must be object",
			op:      query.MongoOperation{Name: "aggregate", Collection: "orders", Pipeline: json.RawMessage(`[1]`)},
			wantErr: true,
		},
		{
			name:    "negative limit",
			op:      query.MongoOperation{Name: "find", Collection: "users", Limit: -1},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			d, err := query.NewMongoDescriptor(tt.op)
			if tt.wantErr {
				if !errors.Is(err, query.ErrInvalidDescriptor) {
					t.Errorf("error = %v, want ErrInvalidDescriptor", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if d.Backend != query.MongoDB || d.Mongo == nil {
				t.Fatalf("descriptor = %+v", d)
			}
			if string(tt.op.Filter) == "null" && d.Mongo.Filter != nil {
				t.Errorf("Filter = %s, want nil", d.Mongo.Filter)
			}
		})
	}
}

func TestNewResult_Truncates(t *testing.T) {
	t.Parallel()

	rows := []query.Row{{"id": 1}, {"id": 2}, {"id": 3}}

	r := query.NewResult(query.Postgres, []string{"id"}, rows, 2)
	if r.Count != 2 || !r.Truncated {
		t.Errorf("Count = %d, Truncated = %v, want 2, true", r.Count, r.Truncated)
	}

	r = query.NewResult(query.Postgres, []string{"id"}, rows, 0)
	if r.Count != 3 || r.Truncated {
		t.Errorf("Count = %d, Truncated = %v, want 3, false", r.Count, r.Truncated)
	}

	r = query.NewResult(query.MySQL, nil, nil, 10)
	if r.Rows == nil {
		t.Error("Rows should be empty, not nil")
	}
}

func TestValuesResult(t *testing.T) {
	t.Parallel()

	r := query.ValuesResult(query.MongoDB, "name", []string{"a", "b"}, 0)
	if r.Count != 2 || r.Rows[1]["name"] != "b" {
		t.Errorf("result = %+v", r)
	}

	c := query.CountResult(query.MongoDB, 42)
	if c.Rows[0]["count"] != int64(42) {
		t.Errorf("count row = %v", c.Rows[0])
	}
}

func TestConnectorError(t *testing.T) {
	t.Parallel()

	driverErr := errors.New("connection refused")
	err := query.NewConnectorError(query.MySQL, "connect", driverErr)

	if !errors.Is(err, query.ErrConnector) {
		t.Error("should match ErrConnector")
	}
	if !errors.Is(err, driverErr) {
		t.Error("should unwrap to the driver error")
	}
	var ce *query.ConnectorError
	if !errors.As(err, &ce) || ce.Op != "connect" {
		t.Errorf("errors.As = %+v", ce)
	}
	if err.Error() != "mysql connect: connection refused" {
		t.Errorf("Error() = %q", err.Error())
	}
	if query.NewConnectorError(query.MySQL, "connect", nil) != nil {
		t.Error("nil driver error should give nil")
	}
}

type stubHandle struct {
	closed   bool
	closeErr error
}

func (h *stubHandle) ListTables(context.Context) ([]string, error) { return []string{"t"}, nil }
func (h *stubHandle) Execute(context.Context, query.Descriptor) (query.Result, error) {
	return query.Result{}, nil
}
func (h *stubHandle) Close(context.Context) error {
	h.closed = true
	return h.closeErr
}

type stubConnector struct {
	handle     *stubHandle
	connectErr error
}

func (c *stubConnector) Backend() query.Backend { return query.Postgres }
func (c *stubConnector) Connect(context.Context) (query.Handle, error) {
	if c.connectErr != nil {
		return nil, c.connectErr
	}
	return c.handle, nil
}

func TestWithHandle(t *testing.T) {
	t.Parallel()

	t.Run("closes after success", func(t *testing.T) {
		t.Parallel()
		h := &stubHandle{}
		tables, err := query.WithHandle(context.Background(), &stubConnector{handle: h}, func(h query.Handle) ([]string, error) {
			return h.ListTables(context.Background())
		})
		if err != nil || len(tables) != 1 {
			t.Fatalf("tables = %v, err = %v", tables, err)
		}
		if !h.closed {
			t.Error("handle was not closed")
		}
	})

	t.Run("closes after failure", func(t *testing.T) {
		t.Parallel()
		h := &stubHandle{closeErr: errors.New("close failed")}
		fnErr := errors.New("boom")
		_, err := query.WithHandle(context.Background(), &stubConnector{handle: h}, func(query.Handle) (int, error) {
			return 0, fnErr
		})
		if !errors.Is(err, fnErr) {
			t.Errorf("err = %v, want fn error", err)
		}
		if !h.closed {
			t.Error("handle was not closed")
		}
	})

	t.Run("reports close failure", func(t *testing.T) {
		t.Parallel()
		h := &stubHandle{closeErr: errors.New("close failed")}
		_, err := query.WithHandle(context.Background(), &stubConnector{handle: h}, func(query.Handle) (int, error) {
			return 1, nil
		})
		if !errors.Is(err, query.ErrConnector) {
			t.Errorf("err = %v, want ErrConnector", err)
		}
	})

	t.Run("connect failure", func(t *testing.T) {
		t.Parallel()
		connectErr := errors.New("refused")
		_, err := query.WithHandle(context.Background(), &stubConnector{connectErr: connectErr}, func(query.Handle) (int, error) {
			t.Error("fn should not run")
			return 0, nil
		})
		if !errors.Is(err, connectErr) {
			t.Errorf("err = %v, want connect error", err)
		}
	})
}
