package port

import (
	"context"
	"time"

	"xfeed/internal/domain"
)

// QuoteSink is any secondary consumer of normalized updates (console echo,
// redis and kafka mirrors). Errors are reported, never propagated to sessions.
type QuoteSink interface {
	Publish(ctx context.Context, u domain.PriceUpdate) error
}

// Broadcaster fans an update out to downstream TCP consumers.
type Broadcaster interface {
	Broadcast(u domain.PriceUpdate)
}

// StatusSink receives the periodic human-readable status board.
type StatusSink interface {
	WriteSnapshot(ts time.Time, line string) error
}
