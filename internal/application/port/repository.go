package port

import (
	"context"

	"xfeed/internal/domain"
)

// SessionJournal keeps an audit trail of venue session lifecycle events.
type SessionJournal interface {
	RecordSessionEvent(ctx context.Context, ev domain.SessionEvent) error
	// ListSessionEvents returns the newest events first; empty venue means all.
	ListSessionEvents(ctx context.Context, venue string, limit int) ([]domain.SessionEvent, error)

	// Connection management
	Close() error
}
