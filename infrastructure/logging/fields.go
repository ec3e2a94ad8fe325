package logging

import (
	"time"

	"github.com/felixgeelhaar/bolt/v3"

	"github.com/felixgeelhaar/dbmcp/domain/query"
)

// Field is a function that applies structured data to a log event.
type Field func(*bolt.Event) *bolt.Event

// ToolName adds a tool name field.
func ToolName(name string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("tool", name)
	}
}

// Backend adds a database backend field.
func Backend(b query.Backend) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("backend", string(b))
	}
}

// InvocationID adds the per-call id field.
func InvocationID(id string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("invocation_id", id)
	}
}

// Reason adds a guard rejection reason field.
func Reason(reason string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("reason", reason)
	}
}

// Rows adds a result row count field.
func Rows(n int) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int("rows", n)
	}
}

// Channel adds a notification channel field.
func Channel(c string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("channel", c)
	}
}

// Duration adds a duration field in milliseconds.
func Duration(d time.Duration) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int64("duration_ms", d.Milliseconds())
	}
}

// ErrorField adds an error field.
func ErrorField(err error) Field {
	return func(e *bolt.Event) *bolt.Event {
		if err == nil {
			return e
		}
		return e.Err(err)
	}
}

// Transport adds the MCP transport field.
func Transport(name string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("transport", name)
	}
}

// Addr adds a listen address field.
func Addr(addr string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("addr", addr)
	}
}

// Count adds a generic count field.
func Count(n int) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int("count", n)
	}
}

// Str adds an arbitrary string field.
func Str(key, value string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str(key, value)
	}
}
