package session

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xfeed/internal/application/port"
	"xfeed/internal/domain"
)

// stubAdapter understands "q:<bid>" messages and ignores everything else.
type stubAdapter struct {
	name    string
	payload []byte
}

func (a *stubAdapter) Name() string { return a.name }
func (a *stubAdapter) Endpoint() port.Endpoint {
	return port.Endpoint{Host: "venue.test", Port: "443", Path: "/ws"}
}
func (a *stubAdapter) Pairs() []string             { return []string{"BTC/USDT"} }
func (a *stubAdapter) SubscriptionPayload() []byte { return a.payload }
func (a *stubAdapter) Parse(raw []byte) (domain.PriceUpdate, bool) {
	s, ok := strings.CutPrefix(string(raw), "q:")
	if !ok {
		return domain.PriceUpdate{}, false
	}
	bid, err := decimal.NewFromString(s)
	if err != nil {
		return domain.PriceUpdate{}, false
	}
	u, err := domain.NewPriceUpdate(a.name, "BTC/USDT", bid, bid.Add(decimal.NewFromInt(1)), time.Now().UnixMilli())
	return u, err == nil
}

type fakeStream struct {
	msgs      chan []byte
	closed    chan struct{}
	closeOnce sync.Once

	mu     sync.Mutex
	writes [][]byte
}

func newFakeStream() *fakeStream {
	return &fakeStream{msgs: make(chan []byte, 256), closed: make(chan struct{})}
}

func (f *fakeStream) ReadMessage() ([]byte, error) {
	select {
	case b := <-f.msgs:
		return b, nil
	case <-f.closed:
		return nil, io.EOF
	}
}

func (f *fakeStream) WriteMessage(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, append([]byte(nil), data...))
	return nil
}

func (f *fakeStream) Writes() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes
}

func (f *fakeStream) Ping() error { return nil }

func (f *fakeStream) Close() error {
	f.closeOnce.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeStream) isClosed() bool {
	select {
	case <-f.closed:
		return true
	default:
		return false
	}
}

// fakeTransport fails Connect while failConnects > 0 and otherwise hands
// out the streams produced by next.
type fakeTransport struct {
	mu           sync.Mutex
	resolves     int
	connects     int
	failConnects int
	next         func() Stream
}

func (t *fakeTransport) Resolve(ctx context.Context, host string) ([]string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resolves++
	return []string{"127.0.0.1"}, nil
}

func (t *fakeTransport) Connect(ctx context.Context, addrs []string, port string) (net.Conn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.connects++
	if t.failConnects != 0 {
		if t.failConnects > 0 {
			t.failConnects--
		}
		return nil, errors.New("connection reset by peer")
	}
	c1, c2 := net.Pipe()
	go func() {
		_, _ = io.Copy(io.Discard, c2)
	}()
	return c1, nil
}

func (t *fakeTransport) Encrypt(ctx context.Context, conn net.Conn, host string) (net.Conn, error) {
	return conn, nil
}

func (t *fakeTransport) Handshake(ctx context.Context, conn net.Conn, ep port.Endpoint) (Stream, error) {
	return t.next(), nil
}

func (t *fakeTransport) Resolves() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.resolves
}

type recorder struct {
	mu     sync.Mutex
	events []domain.SessionEvent
}

func (r *recorder) OnSessionEvent(ev domain.SessionEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) count(to domain.SessionState) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.events {
		if ev.To == to {
			n++
		}
	}
	return n
}

func (r *recorder) last() domain.SessionEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}

type collector struct {
	mu      sync.Mutex
	updates []domain.PriceUpdate
}

func (c *collector) handle(u domain.PriceUpdate) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updates = append(c.updates, u)
}

func (c *collector) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.updates)
}

var fastPolicy = Policy{MaxAttempts: 10, ReconnectDelay: time.Millisecond, HandshakeTimeout: time.Second}

func waitDone(t *testing.T, s *Supervisor) {
	t.Helper()
	select {
	case <-s.Done():
	case <-time.After(5 * time.Second):
		t.Fatalf("%s did not stop, state %s", s.Name(), s.State())
	}
}

func TestSupervisorGivesUpAfterMaxAttempts(t *testing.T) {
	failing := &fakeTransport{failConnects: -1}
	rec := &recorder{}
	broken := NewSupervisor(&stubAdapter{name: "Broken"}, nil, failing, fastPolicy, rec)

	healthyStream := newFakeStream()
	got := &collector{}
	healthy := NewSupervisor(
		&stubAdapter{name: "Healthy"},
		got.handle,
		&fakeTransport{next: func() Stream { return healthyStream }},
		fastPolicy,
	)

	ctx := context.Background()
	require.NoError(t, healthy.Start(ctx))
	require.NoError(t, broken.Start(ctx))

	waitDone(t, broken)
	assert.Equal(t, domain.StateStopped, broken.State())
	assert.Equal(t, 10, failing.Resolves(), "no 11th attempt")
	assert.Equal(t, 10, broken.Attempts())
	assert.Equal(t, 10, rec.count(domain.StateReconnecting))
	assert.Equal(t, ErrAttemptsExhausted.Error(), rec.last().Error)

	// nothing else happens after the terminal transition
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 10, failing.Resolves())

	// the healthy venue keeps streaming throughout
	for i := 1; i <= 5; i++ {
		healthyStream.msgs <- []byte("q:100")
	}
	require.Eventually(t, func() bool { return got.len() == 5 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, domain.StateStreaming, healthy.State())

	healthy.Stop()
	waitDone(t, healthy)
}

func TestSupervisorResetsCounterAfterHandshake(t *testing.T) {
	var mu sync.Mutex
	var streams []*fakeStream
	tr := &fakeTransport{failConnects: 3, next: func() Stream {
		mu.Lock()
		defer mu.Unlock()
		s := newFakeStream()
		streams = append(streams, s)
		return s
	}}
	s := NewSupervisor(&stubAdapter{name: "Flaky"}, nil, tr, fastPolicy)
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	require.Eventually(t, func() bool { return s.State() == domain.StateStreaming }, 2*time.Second, time.Millisecond)
	assert.Equal(t, 0, s.Attempts())
	assert.Equal(t, 4, tr.Resolves())

	// venue drops the connection, session comes back and resets again
	mu.Lock()
	first := streams[0]
	mu.Unlock()
	_ = first.Close()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(streams) == 2 && s.State() == domain.StateStreaming
	}, 2*time.Second, time.Millisecond)
	assert.Equal(t, 0, s.Attempts())
}

func TestSupervisorSubscribesOncePerConnection(t *testing.T) {
	stream := newFakeStream()
	tr := &fakeTransport{next: func() Stream { return stream }}
	s := NewSupervisor(&stubAdapter{name: "Sub", payload: []byte(`{"op":"subscribe"}`)}, nil, tr, fastPolicy)
	require.NoError(t, s.Start(context.Background()))

	require.Eventually(t, func() bool { return s.State() == domain.StateStreaming }, 2*time.Second, time.Millisecond)
	require.Len(t, stream.Writes(), 1)
	assert.Equal(t, `{"op":"subscribe"}`, string(stream.Writes()[0]))

	s.Stop()
	waitDone(t, s)
}

func TestSupervisorSkipsSubscriptionWhenPathEncoded(t *testing.T) {
	stream := newFakeStream()
	tr := &fakeTransport{next: func() Stream { return stream }}
	s := NewSupervisor(&stubAdapter{name: "Path"}, nil, tr, fastPolicy)
	require.NoError(t, s.Start(context.Background()))

	require.Eventually(t, func() bool { return s.State() == domain.StateStreaming }, 2*time.Second, time.Millisecond)
	assert.Empty(t, stream.Writes())

	s.Stop()
	waitDone(t, s)
}

func TestSupervisorDeliversInWireOrder(t *testing.T) {
	stream := newFakeStream()
	got := &collector{}
	s := NewSupervisor(&stubAdapter{name: "Order"}, got.handle, &fakeTransport{next: func() Stream { return stream }}, fastPolicy)
	require.NoError(t, s.Start(context.Background()))

	stream.msgs <- []byte(`{"event":"heartbeat"}`)
	for i := 1; i <= 100; i++ {
		stream.msgs <- []byte("q:" + decimal.NewFromInt(int64(i)).String())
	}
	require.Eventually(t, func() bool { return got.len() == 100 }, 2*time.Second, time.Millisecond)

	got.mu.Lock()
	for i, u := range got.updates {
		assert.True(t, u.Bid.Equal(decimal.NewFromInt(int64(i+1))))
	}
	got.mu.Unlock()

	s.Stop()
	waitDone(t, s)
}

func TestSupervisorStop(t *testing.T) {
	t.Run("while streaming", func(t *testing.T) {
		stream := newFakeStream()
		tr := &fakeTransport{next: func() Stream { return stream }}
		s := NewSupervisor(&stubAdapter{name: "A"}, nil, tr, fastPolicy)
		require.NoError(t, s.Start(context.Background()))
		require.Eventually(t, func() bool { return s.State() == domain.StateStreaming }, 2*time.Second, time.Millisecond)

		s.Stop()
		waitDone(t, s)
		assert.True(t, stream.isClosed())
		assert.Equal(t, domain.StateStopped, s.State())
		assert.Equal(t, 1, tr.Resolves())
		s.Stop()
	})

	t.Run("while waiting to reconnect", func(t *testing.T) {
		tr := &fakeTransport{failConnects: -1}
		s := NewSupervisor(&stubAdapter{name: "B"}, nil, tr, Policy{MaxAttempts: 10, ReconnectDelay: time.Hour})
		require.NoError(t, s.Start(context.Background()))
		require.Eventually(t, func() bool { return s.State() == domain.StateReconnecting }, 2*time.Second, time.Millisecond)

		s.Stop()
		waitDone(t, s)
		assert.Equal(t, 1, tr.Resolves())
	})

	t.Run("before start", func(t *testing.T) {
		s := NewSupervisor(&stubAdapter{name: "C"}, nil, &fakeTransport{}, fastPolicy)
		s.Stop()
		waitDone(t, s)
		assert.ErrorIs(t, s.Start(context.Background()), ErrStopped)
	})

	t.Run("parent cancel", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		stream := newFakeStream()
		s := NewSupervisor(&stubAdapter{name: "D"}, nil, &fakeTransport{next: func() Stream { return stream }}, fastPolicy)
		require.NoError(t, s.Start(ctx))
		assert.ErrorIs(t, s.Start(ctx), ErrAlreadyStarted)
		require.Eventually(t, func() bool { return s.State() == domain.StateStreaming }, 2*time.Second, time.Millisecond)

		cancel()
		waitDone(t, s)
		assert.True(t, stream.isClosed())
	})
}
