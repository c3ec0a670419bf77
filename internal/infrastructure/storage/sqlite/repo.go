package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"xfeed/internal/application/port"
	"xfeed/internal/domain"
)

// Repo is the file-backed session journal.
type Repo struct {
	db *sql.DB
}

func New(path string) (*Repo, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create journal dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	r := &Repo{db: db}
	if err := r.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func (r *Repo) Close() error { return r.db.Close() }

func (r *Repo) migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS session_events (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  venue TEXT NOT NULL,
  from_state TEXT NOT NULL,
  to_state TEXT NOT NULL,
  attempt INTEGER NOT NULL,
  error TEXT NOT NULL DEFAULT '',
  ts_ms INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_session_events_venue ON session_events(venue, id);
CREATE INDEX IF NOT EXISTS idx_session_events_ts ON session_events(ts_ms);
`)
	return err
}

func (r *Repo) RecordSessionEvent(ctx context.Context, ev domain.SessionEvent) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO session_events(venue, from_state, to_state, attempt, error, ts_ms)
		VALUES(?, ?, ?, ?, ?, ?)
	`, ev.Venue, ev.From.String(), ev.To.String(), ev.Attempt, ev.Error, ev.Timestamp)
	return err
}

func (r *Repo) ListSessionEvents(ctx context.Context, venue string, limit int) ([]domain.SessionEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	q := `SELECT venue, from_state, to_state, attempt, error, ts_ms FROM session_events`
	args := []any{}
	if venue != "" {
		q += ` WHERE venue = ?`
		args = append(args, venue)
	}
	q += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]domain.SessionEvent, error) {
	var out []domain.SessionEvent
	for rows.Next() {
		var ev domain.SessionEvent
		var from, to string
		if err := rows.Scan(&ev.Venue, &from, &to, &ev.Attempt, &ev.Error, &ev.Timestamp); err != nil {
			return nil, err
		}
		ev.From, _ = domain.ParseSessionState(from)
		ev.To, _ = domain.ParseSessionState(to)
		out = append(out, ev)
	}
	return out, rows.Err()
}

var _ port.SessionJournal = (*Repo)(nil)
