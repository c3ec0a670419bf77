package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"

	"xfeed/internal/application/port"
	"xfeed/internal/domain"
)

// Repo is the shared session journal for deployments running several
// feed processes against one database.
type Repo struct {
	db *sql.DB
}

func New(dsn string) (*Repo, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	r := &Repo{db: db}
	if err := r.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return r, nil
}

func (r *Repo) Close() error { return r.db.Close() }

func (r *Repo) migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS session_events (
  id BIGSERIAL PRIMARY KEY,
  venue TEXT NOT NULL,
  from_state TEXT NOT NULL,
  to_state TEXT NOT NULL,
  attempt INTEGER NOT NULL,
  error TEXT NOT NULL DEFAULT '',
  ts_ms BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_session_events_venue ON session_events(venue, id);
`)
	return err
}

func (r *Repo) RecordSessionEvent(ctx context.Context, ev domain.SessionEvent) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO session_events(venue, from_state, to_state, attempt, error, ts_ms) VALUES($1, $2, $3, $4, $5, $6)`,
		ev.Venue, ev.From.String(), ev.To.String(), ev.Attempt, ev.Error, ev.Timestamp)
	return err
}

func (r *Repo) ListSessionEvents(ctx context.Context, venue string, limit int) ([]domain.SessionEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT venue, from_state, to_state, attempt, error, ts_ms
		FROM session_events
		WHERE $1::text = '' OR venue = $1
		ORDER BY id DESC
		LIMIT $2
	`, venue, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

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
