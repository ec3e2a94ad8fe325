package memory

import (
	"context"
	"sync"

	"github.com/felixgeelhaar/dbmcp/domain/activity"
)

// ActivityStore is an in-memory implementation of activity.Store. Entries
// are lost when the process exits.
type ActivityStore struct {
	entries []activity.Entry
	mu      sync.RWMutex
}

// NewActivityStore creates an empty in-memory activity log.
func NewActivityStore() *ActivityStore {
	return &ActivityStore{}
}

// Append adds an entry to the end of the log.
func (s *ActivityStore) Append(_ context.Context, e activity.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
	return nil
}

// List returns the most recent entries, oldest first.
func (s *ActivityStore) List(_ context.Context, limit int) ([]activity.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	start := 0
	if limit > 0 && len(s.entries) > limit {
		start = len(s.entries) - limit
	}
	out := make([]activity.Entry, len(s.entries)-start)
	copy(out, s.entries[start:])
	return out, nil
}

// Latest returns the newest entry.
func (s *ActivityStore) Latest(_ context.Context) (activity.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.entries) == 0 {
		return activity.Entry{}, activity.ErrEmpty
	}
	return s.entries[len(s.entries)-1], nil
}

// Close is a no-op.
func (s *ActivityStore) Close() error {
	return nil
}
