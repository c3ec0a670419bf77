package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"xfeed/internal/application/port"
	"xfeed/internal/domain"
	"xfeed/internal/infrastructure/metrics"
)

const journalSink = "journal"

// JournalService moves session transitions off the session goroutines and
// into the configured journal. When the queue is full the event is dropped.
type JournalService struct {
	journal port.SessionJournal
	queue   chan domain.SessionEvent
	timeout time.Duration
}

func NewJournalService(journal port.SessionJournal, buffer int, timeout time.Duration) *JournalService {
	if buffer <= 0 {
		buffer = 1024
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &JournalService{
		journal: journal,
		queue:   make(chan domain.SessionEvent, buffer),
		timeout: timeout,
	}
}

// OnSessionEvent never blocks.
func (s *JournalService) OnSessionEvent(ev domain.SessionEvent) {
	select {
	case s.queue <- ev:
	default:
		metrics.SinkDroppedTotal.WithLabelValues(journalSink).Inc()
	}
}

// Run writes queued events until ctx is done, then flushes what is left.
func (s *JournalService) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			s.flush()
			return nil
		case ev := <-s.queue:
			s.record(context.Background(), ev)
		}
	}
}

func (s *JournalService) flush() {
	for {
		select {
		case ev := <-s.queue:
			s.record(context.Background(), ev)
		default:
			return
		}
	}
}

func (s *JournalService) record(parent context.Context, ev domain.SessionEvent) {
	ctx, cancel := context.WithTimeout(parent, s.timeout)
	defer cancel()
	if err := s.journal.RecordSessionEvent(ctx, ev); err != nil {
		metrics.SinkErrorsTotal.WithLabelValues(journalSink).Inc()
		log.Warn().Err(err).Str("venue", ev.Venue).Str("to", ev.To.String()).Msg("record session event failed")
	}
}

// Recent reads back the journal, newest first.
func (s *JournalService) Recent(ctx context.Context, venue string, limit int) ([]domain.SessionEvent, error) {
	return s.journal.ListSessionEvents(ctx, venue, limit)
}
