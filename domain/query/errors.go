package query

import (
	"errors"
	"fmt"
)

// Domain errors for query operations.
var (
	// ErrUnknownBackend indicates a backend name outside the supported set.
	ErrUnknownBackend = errors.New("unknown backend")

	// ErrBackendNotConfigured indicates the backend has no connection settings.
	ErrBackendNotConfigured = errors.New("backend not configured")

	// ErrInvalidDescriptor indicates tool arguments could not form a descriptor.
	ErrInvalidDescriptor = errors.New("invalid query descriptor")

	// ErrUnsupportedOperation indicates the connector cannot run the operation.
	ErrUnsupportedOperation = errors.New("unsupported operation")

	// ErrConnector indicates the underlying driver reported a failure.
	ErrConnector = errors.New("connector failure")
)

// ConnectorError carries a driver error together with the backend and the
// step that failed. The driver error is preserved as-is.
type ConnectorError struct {
	Backend Backend
	Op      string
	Err     error
}

// NewConnectorError wraps a driver error. It returns nil for a nil error.
func NewConnectorError(backend Backend, op string, err error) error {
	if err == nil {
		return nil
	}
	return &ConnectorError{Backend: backend, Op: op, Err: err}
}

func (e *ConnectorError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Backend, e.Op, e.Err)
}

// Unwrap returns the driver error.
func (e *ConnectorError) Unwrap() error {
	return e.Err
}

// Is matches ErrConnector so callers can classify without a type assertion.
func (e *ConnectorError) Is(target error) bool {
	return target == ErrConnector
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidDescriptor, fmt.Sprintf(format, args...))
}
