package composite

import (
	"context"

	"xfeed/internal/application/port"
	"xfeed/internal/domain"
)

// Repo writes every event to all journals and reads from the first one.
type Repo struct {
	repos []port.SessionJournal
}

func New(repos ...port.SessionJournal) *Repo {
	// nil repos are allowed; filter in constructor for safety
	out := make([]port.SessionJournal, 0, len(repos))
	for _, r := range repos {
		if r != nil {
			out = append(out, r)
		}
	}
	return &Repo{repos: out}
}

// Len is the number of underlying journals.
func (r *Repo) Len() int { return len(r.repos) }

func (r *Repo) RecordSessionEvent(ctx context.Context, ev domain.SessionEvent) error {
	var firstErr error
	for _, repo := range r.repos {
		if err := repo.RecordSessionEvent(ctx, ev); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (r *Repo) ListSessionEvents(ctx context.Context, venue string, limit int) ([]domain.SessionEvent, error) {
	if len(r.repos) == 0 {
		return nil, nil
	}
	return r.repos[0].ListSessionEvents(ctx, venue, limit)
}

func (r *Repo) Close() error {
	var firstErr error
	for _, repo := range r.repos {
		if err := repo.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

var _ port.SessionJournal = (*Repo)(nil)
