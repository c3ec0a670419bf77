package monitor

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"xfeed/internal/application/port"
	"xfeed/internal/domain"
)

type ServiceDeps struct {
	Pairs    []string
	Sessions []SessionSource
	Clients  ClientCounter
	Every    time.Duration
	Sink     port.StatusSink
	Color    bool
}

// Service keeps the latest mids and periodically writes the status board.
// It is fed as a QuoteSink by the relay.
type Service struct {
	deps ServiceDeps
	st   *State
	fmt  *Formatter
}

func NewService(deps ServiceDeps) *Service {
	if deps.Every <= 0 {
		deps.Every = time.Minute
	}
	return &Service{
		deps: deps,
		st:   NewState(deps.Pairs),
		fmt:  NewFormatter(deps.Color),
	}
}

// SetSessions replaces the sessions shown on the board. Call before Run.
func (s *Service) SetSessions(sessions []SessionSource) {
	s.deps.Sessions = sessions
}

func (s *Service) Publish(_ context.Context, u domain.PriceUpdate) error {
	s.st.Apply(u)
	return nil
}

// Render returns the current status line.
func (s *Service) Render() string {
	clients := 0
	if s.deps.Clients != nil {
		clients = s.deps.Clients.ClientCount()
	}
	return s.fmt.Render(s.st, s.deps.Sessions, clients)
}

func (s *Service) Run(ctx context.Context) error {
	snapTicker := time.NewTicker(s.deps.Every)
	defer snapTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-snapTicker.C:
			if s.deps.Sink == nil {
				continue
			}
			if err := s.deps.Sink.WriteSnapshot(now, s.Render()); err != nil {
				log.Warn().Err(err).Msg("write status snapshot failed")
			}
		}
	}
}

var _ port.QuoteSink = (*Service)(nil)
