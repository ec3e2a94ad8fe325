package query

import (
	"context"
	"encoding/json"
)

// Runner executes read operations behind the read-only guard. Tools hold a
// Runner instead of connectors so every path to a backend is guarded.
type Runner interface {
	// Run evaluates the guard and, on acceptance, executes d.
	Run(ctx context.Context, d Descriptor) (Result, error)

	// ListTables lists tables or collections of a backend.
	ListTables(ctx context.Context, backend Backend) ([]string, error)
}

// Describer is implemented by tools whose arguments describe a database
// operation. The dispatcher describes, guards and runs such tools itself.
type Describer interface {
	Describe(input json.RawMessage) (Descriptor, error)
}
