package notification

import "errors"

// Domain errors for notification operations.
var (
	// ErrInvalidPayload indicates a payload failed validation.
	ErrInvalidPayload = errors.New("invalid notification payload")

	// ErrGatewayUnavailable indicates the gateway could not be reached.
	ErrGatewayUnavailable = errors.New("notification gateway unavailable")

	// ErrGatewayRejected indicates the gateway answered with an error status.
	ErrGatewayRejected = errors.New("notification gateway rejected request")

	// ErrNotConfigured indicates no gateway URL is configured.
	ErrNotConfigured = errors.New("notification gateway not configured")
)
