// Package query provides the domain model for read-only database operations.
package query

import (
	"fmt"
	"strings"
)

// Backend identifies one of the supported database engines.
type Backend string

const (
	// Postgres is a PostgreSQL server.
	Postgres Backend = "postgres"

	// MySQL is a MySQL or MariaDB server.
	MySQL Backend = "mysql"

	// MongoDB is a MongoDB deployment.
	MongoDB Backend = "mongodb"
)

// Backends returns every supported backend in a stable order.
func Backends() []Backend {
	return []Backend{Postgres, MySQL, MongoDB}
}

// ParseBackend resolves a backend name, accepting the common aliases
// clients use ("pg", "postgresql", "mongo", "mariadb").
func ParseBackend(name string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "postgres", "postgresql", "pg":
		return Postgres, nil
	case "mysql", "mariadb":
		return MySQL, nil
	case "mongodb", "mongo":
		return MongoDB, nil
	case "":
		return "", fmt.Errorf("%w: backend is required", ErrUnknownBackend)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownBackend, name)
	}
}

// IsSQL reports whether the backend speaks SQL.
func (b Backend) IsSQL() bool {
	return b == Postgres || b == MySQL
}

// String returns the canonical backend name.
func (b Backend) String() string {
	return string(b)
}
