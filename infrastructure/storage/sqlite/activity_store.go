package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/felixgeelhaar/dbmcp/domain/activity"
)

// ActivityStore is a SQLite-backed implementation of activity.Store.
type ActivityStore struct {
	db *sql.DB
}

// NewActivityStore opens the database and creates the activity table.
func NewActivityStore(cfg Config, opts ...Option) (*ActivityStore, error) {
	for _, opt := range opts {
		opt(&cfg)
	}

	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}

	s := &ActivityStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *ActivityStore) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS activity (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			source TEXT NOT NULL,
			message TEXT NOT NULL,
			created_at INTEGER NOT NULL
		);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return errors.Join(ErrMigrationFailed, err)
	}
	return nil
}

// Append adds an entry to the end of the log.
func (s *ActivityStore) Append(ctx context.Context, e activity.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO activity (id, source, message, created_at) VALUES (?, ?, ?, ?)`,
		e.ID, e.Source, e.Message, e.Time.UnixNano(),
	)
	return err
}

// List returns the most recent entries, oldest first.
func (s *ActivityStore) List(ctx context.Context, limit int) ([]activity.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source, message, created_at FROM (
			SELECT seq, id, source, message, created_at FROM activity ORDER BY seq DESC LIMIT ?
		) ORDER BY seq ASC`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []activity.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Latest returns the newest entry.
func (s *ActivityStore) Latest(ctx context.Context) (activity.Entry, error) {
	if err := ctx.Err(); err != nil {
		return activity.Entry{}, err
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT id, source, message, created_at FROM activity ORDER BY seq DESC LIMIT 1`)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return activity.Entry{}, activity.ErrEmpty
	}
	return e, err
}

// Close closes the database.
func (s *ActivityStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(sc scanner) (activity.Entry, error) {
	var (
		e       activity.Entry
		created int64
	)
	if err := sc.Scan(&e.ID, &e.Source, &e.Message, &created); err != nil {
		return activity.Entry{}, err
	}
	e.Time = time.Unix(0, created).UTC()
	return e, nil
}
