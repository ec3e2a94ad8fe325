// Package activity provides the user-visible operation log.
//
// The log records what the assistant did through the server (notes it
// added, notifications it sent). It holds no query state.
package activity

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// EmptyMessage is reported when the log has no entries.
const EmptyMessage = "No logs yet."

// Domain errors for the activity log.
var (
	// ErrEmpty indicates the log has no entries.
	ErrEmpty = errors.New("activity log is empty")

	// ErrEmptyMessage indicates an entry with a blank message.
	ErrEmptyMessage = errors.New("log message cannot be empty")
)

// Source values for entries written by the server itself.
const (
	SourceUser         = "user"
	SourceNotification = "notification"
)

// Entry is one line of the activity log.
type Entry struct {
	ID      string    `json:"id"`
	Time    time.Time `json:"time"`
	Source  string    `json:"source"`
	Message string    `json:"message"`
}

// NewEntry creates an entry stamped with a fresh id and the current time.
func NewEntry(source, message string) (Entry, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return Entry{}, ErrEmptyMessage
	}
	return Entry{
		ID:      uuid.NewString(),
		Time:    time.Now().UTC(),
		Source:  source,
		Message: message,
	}, nil
}

// String renders the entry as "[2006-01-02 15:04:05] message".
func (e Entry) String() string {
	return "[" + e.Time.Format(time.DateTime) + "] " + e.Message
}

// Store persists activity entries. Implementations are safe for concurrent
// use.
type Store interface {
	// Append adds an entry to the end of the log.
	Append(ctx context.Context, e Entry) error

	// List returns the most recent entries, oldest first. A limit of zero
	// or less returns every entry.
	List(ctx context.Context, limit int) ([]Entry, error)

	// Latest returns the newest entry, or ErrEmpty.
	Latest(ctx context.Context) (Entry, error)

	// Close releases the store.
	Close() error
}

// Format renders entries one per line, or EmptyMessage when there are none.
func Format(entries []Entry) string {
	if len(entries) == 0 {
		return EmptyMessage
	}
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = e.String()
	}
	return strings.Join(lines, "\n")
}

// Record appends a message to store, ignoring blank messages. It is the
// helper other components use to leave a trace in the log.
func Record(ctx context.Context, store Store, source, message string) error {
	if store == nil {
		return nil
	}
	e, err := NewEntry(source, message)
	if err != nil {
		return nil
	}
	return store.Append(ctx, e)
}
