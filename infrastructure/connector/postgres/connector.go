package postgres

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/felixgeelhaar/dbmcp/domain/query"
)

// Connector opens one PostgreSQL connection per call.
type Connector struct {
	cfg Config
}

// New creates a PostgreSQL connector.
func New(cfg Config) *Connector {
	if cfg.Schema == "" {
		cfg.Schema = "public"
	}
	return &Connector{cfg: cfg}
}

// Backend implements query.Connector.
func (c *Connector) Backend() query.Backend {
	return query.Postgres
}

// Connect implements query.Connector. Sessions start with
// default_transaction_read_only so the server refuses writes as well.
func (c *Connector) Connect(ctx context.Context) (query.Handle, error) {
	connCfg, err := pgx.ParseConfig(c.cfg.ConnectionString())
	if err != nil {
		return nil, query.NewConnectorError(query.Postgres, "connect", err)
	}
	if c.cfg.ConnectTimeout > 0 {
		connCfg.ConnectTimeout = c.cfg.ConnectTimeout
	}
	connCfg.RuntimeParams["default_transaction_read_only"] = "on"
	connCfg.RuntimeParams["application_name"] = "dbmcp"

	conn, err := pgx.ConnectConfig(ctx, connCfg)
	if err != nil {
		return nil, query.NewConnectorError(query.Postgres, "connect", err)
	}
	return &handle{conn: conn, schema: c.cfg.Schema, maxRows: c.cfg.MaxRows}, nil
}

type handle struct {
	conn    *pgx.Conn
	schema  string
	maxRows int
}

const listTablesSQL = `SELECT table_name FROM information_schema.tables
	WHERE table_schema = $1 AND table_type = 'BASE TABLE'
	ORDER BY table_name`

func (h *handle) ListTables(ctx context.Context) ([]string, error) {
	rows, err := h.conn.Query(ctx, listTablesSQL, h.schema)
	if err != nil {
		return nil, query.NewConnectorError(query.Postgres, "list tables", err)
	}
	tables, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, query.NewConnectorError(query.Postgres, "list tables", err)
	}
	return tables, nil
}

// Execute runs the statement over the simple protocol so a script of
// several SELECTs is accepted. The last result set is returned.
func (h *handle) Execute(ctx context.Context, d query.Descriptor) (query.Result, error) {
	if d.Backend != query.Postgres || strings.TrimSpace(d.Statement) == "" {
		return query.Result{}, query.ErrUnsupportedOperation
	}

	typeMap := h.conn.TypeMap()
	mrr := h.conn.PgConn().Exec(ctx, d.Statement)

	var (
		columns []string
		rows    []query.Row
	)
	for mrr.NextResult() {
		rr := mrr.ResultReader()
		fields := rr.FieldDescriptions()
		if len(fields) == 0 {
			if _, err := rr.Close(); err != nil {
				_ = mrr.Close()
				return query.Result{}, query.NewConnectorError(query.Postgres, "execute", err)
			}
			continue
		}

		columns = make([]string, len(fields))
		for i, f := range fields {
			columns[i] = f.Name
		}
		rows = rows[:0]

		for rr.NextRow() {
			if h.maxRows > 0 && len(rows) > h.maxRows {
				continue
			}
			values := rr.Values()
			row := make(query.Row, len(fields))
			for i, f := range fields {
				row[f.Name] = decodeValue(typeMap, f.DataTypeOID, f.Format, values[i])
			}
			rows = append(rows, row)
		}
		if _, err := rr.Close(); err != nil {
			_ = mrr.Close()
			return query.Result{}, query.NewConnectorError(query.Postgres, "execute", err)
		}
	}
	if err := mrr.Close(); err != nil {
		return query.Result{}, query.NewConnectorError(query.Postgres, "execute", err)
	}

	return query.NewResult(query.Postgres, columns, rows, h.maxRows), nil
}

func (h *handle) Close(ctx context.Context) error {
	return h.conn.Close(ctx)
}
