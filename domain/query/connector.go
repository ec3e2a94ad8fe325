package query

import (
	"context"
	"errors"
)

// Connector opens connections to one backend. Implementations connect per
// call and never pool.
type Connector interface {
	// Backend returns the backend this connector serves.
	Backend() Backend

	// Connect opens a fresh connection.
	Connect(ctx context.Context) (Handle, error)
}

// Handle is an open connection. It must be closed by the caller.
type Handle interface {
	// ListTables returns table names, or collection names for MongoDB.
	ListTables(ctx context.Context) ([]string, error)

	// Execute runs a descriptor that has already passed the guard.
	Execute(ctx context.Context, d Descriptor) (Result, error)

	// Close releases the connection.
	Close(ctx context.Context) error
}

// WithHandle opens a connection, passes it to fn and closes it on every exit
// path. A close failure is reported only when fn succeeded.
func WithHandle[T any](ctx context.Context, c Connector, fn func(Handle) (T, error)) (result T, err error) {
	h, err := c.Connect(ctx)
	if err != nil {
		return result, err
	}
	defer func() {
		if cerr := h.Close(ctx); cerr != nil && err == nil {
			err = NewConnectorError(c.Backend(), "close", cerr)
		}
	}()
	return fn(h)
}

// Resolver returns the connector configured for a backend.
type Resolver interface {
	Connector(backend Backend) (Connector, error)
}

// IsConnectorError reports whether err came from a backend driver.
func IsConnectorError(err error) bool {
	return errors.Is(err, ErrConnector)
}
