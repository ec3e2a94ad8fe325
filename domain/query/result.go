package query

// Row is one record returned by a backend, keyed by column or field name.
type Row map[string]any

// Result is the outcome of a single read operation. It is serialized to JSON
// for the client and then discarded.
type Result struct {
	Backend   Backend  `json:"backend"`
	Columns   []string `json:"columns,omitempty"`
	Rows      []Row    `json:"rows"`
	Count     int      `json:"count"`
	Truncated bool     `json:"truncated,omitempty"`
}

// NewResult builds a result from rows, keeping at most maxRows of them.
// A maxRows of zero or less keeps everything.
func NewResult(backend Backend, columns []string, rows []Row, maxRows int) Result {
	truncated := false
	if maxRows > 0 && len(rows) > maxRows {
		rows = rows[:maxRows]
		truncated = true
	}
	if rows == nil {
		rows = []Row{}
	}
	return Result{
		Backend:   backend,
		Columns:   columns,
		Rows:      rows,
		Count:     len(rows),
		Truncated: truncated,
	}
}

// CountResult reports a scalar count as a single row {"count": n}.
func CountResult(backend Backend, n int64) Result {
	return NewResult(backend, []string{"count"}, []Row{{"count": n}}, 0)
}

// ValuesResult reports a list of scalar values, one row per value under the
// given column name. Used for distinct values and table listings.
func ValuesResult[T any](backend Backend, column string, values []T, maxRows int) Result {
	rows := make([]Row, 0, len(values))
	for _, v := range values {
		rows = append(rows, Row{column: v})
	}
	return NewResult(backend, []string{column}, rows, maxRows)
}
