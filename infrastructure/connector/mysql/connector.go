package mysql

import (
	"context"
	"database/sql"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/felixgeelhaar/dbmcp/domain/query"
)

// Connector opens one MySQL connection per call.
type Connector struct {
	cfg Config
}

// New creates a MySQL connector.
func New(cfg Config) *Connector {
	return &Connector{cfg: cfg}
}

// Backend implements query.Connector.
func (c *Connector) Backend() query.Backend {
	return query.MySQL
}

// Connect implements query.Connector. The session is switched to read-only
// transactions before it is handed out.
func (c *Connector) Connect(ctx context.Context) (query.Handle, error) {
	drv, err := mysql.NewConnector(c.cfg.DriverConfig())
	if err != nil {
		return nil, query.NewConnectorError(query.MySQL, "connect", err)
	}
	db := sql.OpenDB(drv)
	db.SetMaxOpenConns(1)

	conn, err := db.Conn(ctx)
	if err != nil {
		_ = db.Close()
		return nil, query.NewConnectorError(query.MySQL, "connect", err)
	}
	if _, err := conn.ExecContext(ctx, "SET SESSION TRANSACTION READ ONLY"); err != nil {
		_ = conn.Close()
		_ = db.Close()
		return nil, query.NewConnectorError(query.MySQL, "connect", err)
	}
	return &handle{db: db, conn: conn, maxRows: c.cfg.MaxRows}, nil
}

type handle struct {
	db      *sql.DB
	conn    *sql.Conn
	maxRows int
}

const listTablesSQL = `SELECT table_name FROM information_schema.tables
	WHERE table_schema = DATABASE() AND table_type = 'BASE TABLE'
	ORDER BY table_name`

func (h *handle) ListTables(ctx context.Context) ([]string, error) {
	rows, err := h.conn.QueryContext(ctx, listTablesSQL)
	if err != nil {
		return nil, query.NewConnectorError(query.MySQL, "list tables", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, query.NewConnectorError(query.MySQL, "list tables", err)
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, query.NewConnectorError(query.MySQL, "list tables", err)
	}
	return tables, nil
}

// Execute runs the statement and returns its last result set.
func (h *handle) Execute(ctx context.Context, d query.Descriptor) (query.Result, error) {
	if d.Backend != query.MySQL || strings.TrimSpace(d.Statement) == "" {
		return query.Result{}, query.ErrUnsupportedOperation
	}

	rows, err := h.conn.QueryContext(ctx, d.Statement)
	if err != nil {
		return query.Result{}, query.NewConnectorError(query.MySQL, "execute", err)
	}
	defer rows.Close()

	var (
		columns []string
		out     []query.Row
	)
	for {
		cols, set, err := scanRows(rows, h.maxRows)
		if err != nil {
			return query.Result{}, query.NewConnectorError(query.MySQL, "execute", err)
		}
		if len(cols) > 0 {
			columns, out = cols, set
		}
		if !rows.NextResultSet() {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return query.Result{}, query.NewConnectorError(query.MySQL, "execute", err)
	}

	return query.NewResult(query.MySQL, columns, out, h.maxRows), nil
}

func (h *handle) Close(context.Context) error {
	cerr := h.conn.Close()
	if err := h.db.Close(); err != nil {
		return err
	}
	return cerr
}

// rowScanner is the subset of *sql.Rows read by scanRows.
type rowScanner interface {
	Columns() ([]string, error)
	Next() bool
	Scan(dest ...any) error
	Err() error
}

// scanRows reads the current result set. Rows past maxRows+1 are drained
// without being kept so truncation can still be reported.
func scanRows(rows rowScanner, maxRows int) ([]string, []query.Row, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}

	var results []query.Row
	for rows.Next() {
		if maxRows > 0 && len(results) > maxRows {
			continue
		}
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, err
		}

		row := make(query.Row, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		results = append(results, row)
	}
	return columns, results, rows.Err()
}
