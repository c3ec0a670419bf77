package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"xfeed/internal/application/port"
	"xfeed/internal/domain"
	"xfeed/internal/infrastructure/metrics"
)

// Policy is the fixed reconnect policy plus per-step timeouts.
type Policy struct {
	MaxAttempts      int           // consecutive failures before giving up
	ReconnectDelay   time.Duration // fixed wait between attempts
	HandshakeTimeout time.Duration // bound on resolve+connect+TLS+ws handshake
	PingInterval     time.Duration // 0 disables pings
}

var DefaultPolicy = Policy{
	MaxAttempts:      10,
	ReconnectDelay:   5 * time.Second,
	HandshakeTimeout: 10 * time.Second,
	PingInterval:     25 * time.Second,
}

// Observer is told about every lifecycle transition.
type Observer = port.SessionObserver

// Supervisor drives one venue session from cold start to streaming and
// recovers from transport errors until the attempt ceiling is reached.
//
// All session state is written only by the supervisor's own goroutine;
// state and attempts are mirrored in atomics for outside readers.
type Supervisor struct {
	adapter   port.Adapter
	handler   port.Handler
	transport Transport
	policy    Policy
	observers []Observer

	state    atomic.Int32
	attempts atomic.Int32

	mu       sync.Mutex
	cancel   context.CancelFunc
	stream   Stream
	stopping bool

	done     chan struct{}
	doneOnce sync.Once
}

func NewSupervisor(adapter port.Adapter, handler port.Handler, transport Transport, policy Policy, observers ...Observer) *Supervisor {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = DefaultPolicy.MaxAttempts
	}
	if policy.ReconnectDelay < 0 {
		policy.ReconnectDelay = 0
	}
	return &Supervisor{
		adapter:   adapter,
		handler:   handler,
		transport: transport,
		policy:    policy,
		observers: observers,
		done:      make(chan struct{}),
	}
}

func (s *Supervisor) Name() string { return s.adapter.Name() }

// State is safe to call from any goroutine.
func (s *Supervisor) State() domain.SessionState { return domain.SessionState(s.state.Load()) }

// Attempts returns the current consecutive-failure counter.
func (s *Supervisor) Attempts() int { return int(s.attempts.Load()) }

// Done is closed once the session reached Stopped.
func (s *Supervisor) Done() <-chan struct{} { return s.done }

// Start moves Idle -> Resolving and runs the session until Stop, parent
// cancellation or attempt exhaustion.
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopping {
		return ErrStopped
	}
	if s.cancel != nil {
		return ErrAlreadyStarted
	}
	ctx, s.cancel = context.WithCancel(ctx)
	log.Info().Str("venue", s.Name()).Str("url", s.adapter.Endpoint().URL()).Msg("starting session")
	go s.run(ctx)
	return nil
}

// Stop is accepted in any state: the live transport is closed and the
// session ends in Stopped. Safe to call more than once.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	if s.stopping {
		s.mu.Unlock()
		return
	}
	s.stopping = true
	cancel, stream := s.cancel, s.stream
	s.mu.Unlock()

	if stream != nil {
		_ = stream.Close()
	}
	if cancel != nil {
		cancel()
		return
	}
	// never started, the run goroutine will not do it
	s.finish(nil)
}

func (s *Supervisor) run(ctx context.Context) {
	var cause error
	defer func() { s.finish(cause) }()

	for {
		err := s.session(ctx)
		if ctx.Err() != nil {
			return
		}
		if !s.reconnect(ctx, err) {
			if ctx.Err() == nil {
				cause = ErrAttemptsExhausted
			}
			return
		}
	}
}

// session runs one connect..stream cycle and returns why it ended.
func (s *Supervisor) session(ctx context.Context) error {
	stream, err := s.dial(ctx)
	if err != nil {
		return err
	}
	if !s.attach(stream) {
		_ = stream.Close()
		return ErrStopped
	}
	defer s.detach()

	// protocol handshake done
	s.attempts.Store(0)
	s.transition(domain.StateSubscribing, nil)

	if payload := s.adapter.SubscriptionPayload(); len(payload) > 0 {
		if err := stream.WriteMessage(payload); err != nil {
			return fmt.Errorf("subscribe: %w", err)
		}
		log.Info().Str("venue", s.Name()).Msg("subscribed to feeds")
	} else {
		log.Info().Str("venue", s.Name()).Msg("subscribed via url")
	}

	s.transition(domain.StateStreaming, nil)
	err = s.pump(ctx, stream)
	s.transition(domain.StateClosing, err)
	return err
}

func (s *Supervisor) dial(ctx context.Context) (Stream, error) {
	ep := s.adapter.Endpoint()
	if s.policy.HandshakeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.policy.HandshakeTimeout)
		defer cancel()
	}

	s.transition(domain.StateResolving, nil)
	addrs, err := s.transport.Resolve(ctx, ep.Host)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", ep.Host, err)
	}

	s.transition(domain.StateConnecting, nil)
	conn, err := s.transport.Connect(ctx, addrs, ep.Port)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", ep.Addr(), err)
	}
	log.Debug().Str("venue", s.Name()).Str("remote", conn.RemoteAddr().String()).Msg("tcp connected")

	s.transition(domain.StateEncryptingHandshake, nil)
	tlsConn, err := s.transport.Encrypt(ctx, conn, ep.Host)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("tls handshake: %w", err)
	}

	s.transition(domain.StateProtocolHandshake, nil)
	stream, err := s.transport.Handshake(ctx, tlsConn, ep)
	if err != nil {
		_ = tlsConn.Close()
		return nil, fmt.Errorf("websocket handshake: %w", err)
	}
	log.Info().Str("venue", s.Name()).Msg("websocket connected")
	return stream, nil
}

// pump reads one message at a time and hands recognized quotes to the
// handler before issuing the next read.
func (s *Supervisor) pump(ctx context.Context, stream Stream) error {
	errCh := make(chan error, 1)
	go func() {
		for {
			b, err := stream.ReadMessage()
			if err != nil {
				errCh <- err
				return
			}
			s.dispatch(b)
		}
	}()

	var ping <-chan time.Time
	if s.policy.PingInterval > 0 {
		t := time.NewTicker(s.policy.PingInterval)
		defer t.Stop()
		ping = t.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errCh:
			return err
		case <-ping:
			if err := stream.Ping(); err != nil {
				log.Debug().Str("venue", s.Name()).Err(err).Msg("ping failed")
			}
		}
	}
}

func (s *Supervisor) dispatch(raw []byte) {
	u, ok := s.adapter.Parse(raw)
	if !ok {
		return
	}
	metrics.UpdatesTotal.WithLabelValues(s.Name()).Inc()
	if s.handler != nil {
		s.handler(u)
	}
}

// reconnect counts the failure and waits out the fixed delay. It returns
// false when the session must stop.
func (s *Supervisor) reconnect(ctx context.Context, cause error) bool {
	n := int(s.attempts.Add(1))
	s.transition(domain.StateReconnecting, cause)

	if n >= s.policy.MaxAttempts {
		log.Error().
			Str("venue", s.Name()).
			Int("attempts", n).
			Err(cause).
			Msg("max reconnection attempts reached, giving up")
		return false
	}

	log.Warn().
		Str("venue", s.Name()).
		Int("attempt", n).
		Dur("delay", s.policy.ReconnectDelay).
		Err(cause).
		Msg("disconnected, reconnecting")

	timer := time.NewTimer(s.policy.ReconnectDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (s *Supervisor) attach(stream Stream) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopping {
		return false
	}
	s.stream = stream
	return true
}

func (s *Supervisor) detach() {
	s.mu.Lock()
	stream := s.stream
	s.stream = nil
	s.mu.Unlock()
	if stream != nil {
		_ = stream.Close()
	}
}

func (s *Supervisor) finish(cause error) {
	s.doneOnce.Do(func() {
		s.transition(domain.StateStopped, cause)
		log.Info().Str("venue", s.Name()).Msg("session stopped")
		close(s.done)
	})
}

func (s *Supervisor) transition(to domain.SessionState, cause error) {
	from := domain.SessionState(s.state.Swap(int32(to)))
	ev := domain.SessionEvent{
		Venue:     s.Name(),
		From:      from,
		To:        to,
		Attempt:   s.Attempts(),
		Timestamp: time.Now().UnixMilli(),
	}
	if cause != nil && !errors.Is(cause, context.Canceled) {
		ev.Error = cause.Error()
	}
	for _, o := range s.observers {
		o.OnSessionEvent(ev)
	}
}
