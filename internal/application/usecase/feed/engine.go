package feed

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Session is one supervised venue connection.
type Session interface {
	Name() string
	Start(ctx context.Context) error
	Stop()
	Done() <-chan struct{}
}

// Server is the downstream distribution endpoint.
type Server interface {
	Start(ctx context.Context) error
	Close() error
}

// Runner is a background worker that lives as long as the engine.
type Runner interface {
	Run(ctx context.Context) error
}

type EngineDeps struct {
	Server     Server
	Sessions   []Session
	Background []Runner
}

// Engine starts the server and every session, then waits for shutdown. A
// venue that gives up does not stop the engine or its siblings.
type Engine struct {
	deps EngineDeps
}

func NewEngine(deps EngineDeps) *Engine {
	return &Engine{deps: deps}
}

// Run blocks until ctx is cancelled. On return every session is Stopped,
// the server is closed and background workers have drained.
func (e *Engine) Run(ctx context.Context) error {
	if len(e.deps.Sessions) == 0 {
		return errors.New("no sessions")
	}
	if err := e.deps.Server.Start(ctx); err != nil {
		return fmt.Errorf("start distribution server: %w", err)
	}

	// workers outlive ctx so they see the final Stopped transitions
	bgCtx, cancelBg := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelBg()
	g, gctx := errgroup.WithContext(bgCtx)
	for _, r := range e.deps.Background {
		g.Go(func() error { return r.Run(gctx) })
	}

	var live atomic.Int32
	live.Store(int32(len(e.deps.Sessions)))
	for _, s := range e.deps.Sessions {
		if err := s.Start(ctx); err != nil {
			log.Error().Err(err).Str("venue", s.Name()).Msg("session start failed")
		}
		go func() {
			<-s.Done()
			if ctx.Err() != nil {
				return
			}
			log.Warn().Str("venue", s.Name()).Msg("venue session stopped permanently")
			if live.Add(-1) == 0 {
				log.Error().Msg("all venue sessions stopped, still serving clients")
			}
		}()
	}
	log.Info().Int("sessions", len(e.deps.Sessions)).Msg("feed engine running")

	<-ctx.Done()
	log.Info().Msg("shutting down feed engine")

	for _, s := range e.deps.Sessions {
		s.Stop()
	}
	for _, s := range e.deps.Sessions {
		<-s.Done()
	}
	err := e.deps.Server.Close()

	cancelBg()
	if werr := g.Wait(); werr != nil && !errors.Is(werr, context.Canceled) && err == nil {
		err = werr
	}
	return err
}
