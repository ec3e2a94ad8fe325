// Package guard decides whether a query descriptor is read-only.
//
// Evaluation is a pure function of the descriptor. Verdicts are computed for
// every request and never cached.
package guard

import (
	"errors"
	"fmt"

	"github.com/felixgeelhaar/dbmcp/domain/query"
)

// ReasonEmpty is reported for blank, comment-only or unparseable input.
const ReasonEmpty = "empty or unparseable query"

// ErrRejected indicates the guard refused a descriptor.
var ErrRejected = errors.New("query rejected")

// Verdict is the outcome of evaluating a descriptor.
type Verdict struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// Allow returns an accepting verdict.
func Allow() Verdict {
	return Verdict{Allowed: true}
}

// Reject returns a refusing verdict with a human-readable reason.
func Reject(format string, args ...any) Verdict {
	return Verdict{Reason: fmt.Sprintf(format, args...)}
}

// RejectionError reports a rejected descriptor to the caller.
type RejectionError struct {
	Backend query.Backend
	Reason  string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("read-only guard rejected %s query: %s", e.Backend, e.Reason)
}

// Is matches ErrRejected.
func (e *RejectionError) Is(target error) bool {
	return target == ErrRejected
}

// Evaluate returns the verdict for a descriptor.
func Evaluate(d query.Descriptor) Verdict {
	switch d.Backend {
	case query.Postgres:
		return evaluateSQL(d.Statement, postgresDialect)
	case query.MySQL:
		return evaluateSQL(d.Statement, mysqlDialect)
	case query.MongoDB:
		return evaluateMongo(d.Mongo)
	default:
		return Reject("unknown backend %q", d.Backend)
	}
}

// Check evaluates a descriptor and converts a rejection into a
// *RejectionError.
func Check(d query.Descriptor) error {
	v := Evaluate(d)
	if v.Allowed {
		return nil
	}
	return &RejectionError{Backend: d.Backend, Reason: v.Reason}
}
