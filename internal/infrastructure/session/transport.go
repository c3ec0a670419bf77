package session

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"xfeed/internal/application/port"
)

// Stream is an established, subscribed-or-not venue connection.
// One reader and one writer may use it concurrently; Close may be called
// from any goroutine.
type Stream interface {
	ReadMessage() ([]byte, error)
	WriteMessage(data []byte) error
	Ping() error
	Close() error
}

// Transport performs each connection step separately so the supervisor can
// track which one failed.
type Transport interface {
	Resolve(ctx context.Context, host string) ([]string, error)
	Connect(ctx context.Context, addrs []string, port string) (net.Conn, error)
	// Encrypt runs the TLS client handshake presenting host for SNI and
	// certificate verification.
	Encrypt(ctx context.Context, conn net.Conn, host string) (net.Conn, error)
	Handshake(ctx context.Context, conn net.Conn, ep port.Endpoint) (Stream, error)
}

// NetTransport is the production transport: system resolver, TCP, TLS and a
// gorilla WebSocket handshake over the already encrypted connection.
type NetTransport struct {
	Resolver    *net.Resolver
	Dialer      *net.Dialer
	TLSConfig   *tls.Config
	UserAgent   string
	ReadTimeout time.Duration
}

func NewNetTransport(userAgent string, readTimeout time.Duration) *NetTransport {
	return &NetTransport{
		Resolver:    net.DefaultResolver,
		Dialer:      &net.Dialer{KeepAlive: 30 * time.Second},
		TLSConfig:   &tls.Config{MinVersion: tls.VersionTLS12},
		UserAgent:   userAgent,
		ReadTimeout: readTimeout,
	}
}

func (t *NetTransport) Resolve(ctx context.Context, host string) ([]string, error) {
	addrs, err := t.Resolver.LookupHost(ctx, host)
	if err != nil {
		return nil, err
	}
	if len(addrs) == 0 {
		return nil, fmt.Errorf("no addresses for %s", host)
	}
	return addrs, nil
}

// Connect tries each resolved address in order and returns the first
// successful connection.
func (t *NetTransport) Connect(ctx context.Context, addrs []string, port string) (net.Conn, error) {
	var errs []error
	for _, a := range addrs {
		conn, err := t.Dialer.DialContext(ctx, "tcp", net.JoinHostPort(a, port))
		if err == nil {
			return conn, nil
		}
		errs = append(errs, err)
		if ctx.Err() != nil {
			break
		}
	}
	return nil, errors.Join(errs...)
}

func (t *NetTransport) Encrypt(ctx context.Context, conn net.Conn, host string) (net.Conn, error) {
	var cfg *tls.Config
	if t.TLSConfig != nil {
		cfg = t.TLSConfig.Clone()
	} else {
		cfg = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	cfg.ServerName = host
	tc := tls.Client(conn, cfg)
	if err := tc.HandshakeContext(ctx); err != nil {
		return nil, err
	}
	return tc, nil
}

func (t *NetTransport) Handshake(ctx context.Context, conn net.Conn, ep port.Endpoint) (Stream, error) {
	dialer := websocket.Dialer{
		// the connection is already encrypted, hand it over as is
		NetDialTLSContext: func(context.Context, string, string) (net.Conn, error) {
			return conn, nil
		},
	}
	header := http.Header{}
	if t.UserAgent != "" {
		header.Set("User-Agent", t.UserAgent)
	}
	ws, resp, err := dialer.DialContext(ctx, ep.URL(), header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}
	return newWSStream(ws, t.ReadTimeout), nil
}

// wsStream adapts a gorilla connection with a rolling read deadline,
// refreshed on every message and on every pong.
type wsStream struct {
	conn        *websocket.Conn
	readTimeout time.Duration
}

func newWSStream(conn *websocket.Conn, readTimeout time.Duration) *wsStream {
	s := &wsStream{conn: conn, readTimeout: readTimeout}
	if readTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(readTimeout))
		})
	}
	return s
}

func (s *wsStream) ReadMessage() ([]byte, error) {
	_, b, err := s.conn.ReadMessage()
	if err == nil && s.readTimeout > 0 {
		_ = s.conn.SetReadDeadline(time.Now().Add(s.readTimeout))
	}
	return b, err
}

func (s *wsStream) WriteMessage(data []byte) error {
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

func (s *wsStream) Ping() error {
	return s.conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(5*time.Second))
}

// Close sends a normal close frame best effort, then drops the socket.
func (s *wsStream) Close() error {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	return s.conn.Close()
}
