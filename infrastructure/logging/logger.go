// Package logging provides structured logging using bolt.
//
// Logs always go to stderr by default: stdout carries the MCP stream when
// the server runs over stdio.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/felixgeelhaar/bolt/v3"
)

// Config configures the logger.
type Config struct {
	// Level is the minimum log level (trace, debug, info, warn, error).
	Level string

	// Format is the output format (json or console).
	Format string

	// Output is the output destination. Nil selects stderr.
	Output io.Writer
}

// DefaultConfig returns a JSON logger at info level writing to stderr.
func DefaultConfig() Config {
	return Config{
		Level:  "info",
		Format: "json",
		Output: os.Stderr,
	}
}

// parseLevel converts a string level to bolt.Level.
func parseLevel(s string) bolt.Level {
	switch strings.ToLower(s) {
	case "trace":
		return bolt.TRACE
	case "debug":
		return bolt.DEBUG
	case "info":
		return bolt.INFO
	case "warn":
		return bolt.WARN
	case "error":
		return bolt.ERROR
	default:
		return bolt.INFO
	}
}

// New builds a logger from the configuration.
func New(config Config) *bolt.Logger {
	output := config.Output
	if output == nil {
		output = os.Stderr
	}

	var handler bolt.Handler
	if config.Format == "console" {
		handler = bolt.NewConsoleHandler(output)
	} else {
		handler = bolt.NewJSONHandler(output)
	}

	return bolt.New(handler).SetLevel(parseLevel(config.Level))
}

// Discard returns a logger that drops everything. Used by tests and by
// components constructed without a logger.
func Discard() *bolt.Logger {
	return bolt.New(bolt.NewJSONHandler(io.Discard)).SetLevel(bolt.ERROR)
}

// OrDiscard returns l, or a discarding logger when l is nil.
func OrDiscard(l *bolt.Logger) *bolt.Logger {
	if l == nil {
		return Discard()
	}
	return l
}

// LogEvent is a wrapper that allows adding Fields to a bolt.Event.
type LogEvent struct {
	event *bolt.Event
}

// NewEvent wraps a bolt.Event for field application.
func NewEvent(e *bolt.Event) *LogEvent {
	return &LogEvent{event: e}
}

// With applies fields to the event and returns the wrapper for chaining.
func (l *LogEvent) With(fields ...Field) *LogEvent {
	for _, f := range fields {
		l.event = f(l.event)
	}
	return l
}

// Msg sends the log event with a message.
func (l *LogEvent) Msg(msg string) {
	l.event.Msg(msg)
}
