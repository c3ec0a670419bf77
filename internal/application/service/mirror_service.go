package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"xfeed/internal/application/port"
	"xfeed/internal/domain"
	"xfeed/internal/infrastructure/metrics"
)

// MirrorService decouples a slow secondary sink from the relay. Publish
// only enqueues; Run performs the real writes.
type MirrorService struct {
	name    string
	sink    port.QuoteSink
	queue   chan domain.PriceUpdate
	timeout time.Duration
}

func NewMirrorService(name string, sink port.QuoteSink, buffer int, timeout time.Duration) *MirrorService {
	if buffer <= 0 {
		buffer = 4096
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &MirrorService{
		name:    name,
		sink:    sink,
		queue:   make(chan domain.PriceUpdate, buffer),
		timeout: timeout,
	}
}

func (s *MirrorService) Name() string { return s.name }

// Publish drops the update when the queue is full and never returns an error.
func (s *MirrorService) Publish(_ context.Context, u domain.PriceUpdate) error {
	select {
	case s.queue <- u:
	default:
		metrics.SinkDroppedTotal.WithLabelValues(s.name).Inc()
	}
	return nil
}

func (s *MirrorService) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case u := <-s.queue:
			s.write(ctx, u)
		}
	}
}

func (s *MirrorService) write(parent context.Context, u domain.PriceUpdate) {
	ctx, cancel := context.WithTimeout(parent, s.timeout)
	defer cancel()
	if err := s.sink.Publish(ctx, u); err != nil {
		metrics.SinkErrorsTotal.WithLabelValues(s.name).Inc()
		log.Warn().Err(err).Str("sink", s.name).Str("venue", u.Exchange).Str("pair", u.Pair).Msg("mirror publish failed")
	}
}

var _ port.QuoteSink = (*MirrorService)(nil)
