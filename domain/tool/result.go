package tool

import (
	"encoding/json"
	"fmt"
	"time"
)

// Result contains the output of a tool execution.
type Result struct {
	// Output is the JSON or text returned to the client.
	Output json.RawMessage `json:"output"`

	// Duration is how long the execution took.
	Duration time.Duration `json:"duration"`
}

// NewResult creates a result with the given output.
func NewResult(output json.RawMessage) Result {
	return Result{Output: output}
}

// JSONResult marshals v into a result.
func JSONResult(v any) (Result, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return Result{}, fmt.Errorf("encode tool output: %w", err)
	}
	return Result{Output: raw}, nil
}

// TextResult wraps plain text as a result. The text is returned verbatim
// to the client, not JSON-quoted.
func TextResult(text string) Result {
	return Result{Output: json.RawMessage(text)}
}

// WithDuration returns a copy of the result with the duration set.
func (r Result) WithDuration(d time.Duration) Result {
	r.Duration = d
	return r
}

// OutputString returns the output as a string.
func (r Result) OutputString() string {
	return string(r.Output)
}
