package port

import (
	"context"
	"net"
	"time"

	"xfeed/internal/domain"
)

// Endpoint is where a venue's streaming feed lives. Path may carry a query
// string when the venue encodes subscriptions in the resource path.
type Endpoint struct {
	Host string
	Port string
	Path string
}

// Addr returns host:port.
func (e Endpoint) Addr() string { return net.JoinHostPort(e.Host, e.Port) }

// URL returns the wss:// URL of the endpoint.
func (e Endpoint) URL() string {
	path := e.Path
	if path == "" {
		path = "/"
	}
	return "wss://" + e.Addr() + path
}

// VenueSpec is what the configuration hands to an adapter factory.
type VenueSpec struct {
	Host    string
	Port    string
	Path    string
	Pairs   []string          // canonical pairs, "BASE/QUOTE"
	Symbols map[string]string // canonical -> native overrides
}

// Adapter translates one venue's wire dialect to the canonical model.
type Adapter interface {
	Name() string
	Endpoint() Endpoint
	// Pairs lists the canonical pairs this adapter maps.
	Pairs() []string
	// SubscriptionPayload is written once after the protocol handshake.
	// nil means the subscription lives in the endpoint path.
	SubscriptionPayload() []byte
	// Parse returns false for anything that is not a quote for a mapped pair.
	Parse(raw []byte) (domain.PriceUpdate, bool)
}

// Handler receives every normalized update. It is called from the session's
// own goroutine and must not retain the session.
type Handler func(domain.PriceUpdate)

// SourceSpec configures a self-driven quote source that needs no venue
// connection.
type SourceSpec struct {
	Pairs   []string           // canonical pairs, "BASE/QUOTE"
	Venues  map[string]float64 // display name -> price offset in percent
	MinTick time.Duration
	MaxTick time.Duration
	Seed    int64 // 0 picks a random seed
}

// SessionObserver is told about every lifecycle transition of a session.
// Calls happen on the session goroutine and must not block.
type SessionObserver interface {
	OnSessionEvent(ev domain.SessionEvent)
}

// QuoteSource produces canonical updates on its own goroutine and exposes
// the same lifecycle as a supervised venue session.
type QuoteSource interface {
	Name() string
	Pairs() []string
	Start(ctx context.Context) error
	Stop()
	Done() <-chan struct{}
	State() domain.SessionState
	Attempts() int
}
