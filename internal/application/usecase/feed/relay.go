package feed

import (
	"context"

	"github.com/rs/zerolog/log"

	"xfeed/internal/application/port"
	"xfeed/internal/domain"
)

// Relay is the handler every session calls with its normalized updates.
// The TCP fan-out comes first; secondary sinks follow and can only log.
type Relay struct {
	broadcaster port.Broadcaster
	sinks       []port.QuoteSink
}

func NewRelay(b port.Broadcaster, sinks ...port.QuoteSink) *Relay {
	out := make([]port.QuoteSink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return &Relay{broadcaster: b, sinks: out}
}

// Handle is safe for concurrent use by all sessions.
func (r *Relay) Handle(u domain.PriceUpdate) {
	if r.broadcaster != nil {
		r.broadcaster.Broadcast(u)
	}
	for _, s := range r.sinks {
		if err := s.Publish(context.Background(), u); err != nil {
			log.Warn().Err(err).Str("venue", u.Exchange).Str("pair", u.Pair).Msg("sink publish failed")
		}
	}
}
