package tcpfeed

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"xfeed/internal/application/port"
	"xfeed/internal/domain"
	"xfeed/internal/infrastructure/metrics"
)

var ErrServerClosed = errors.New("tcpfeed: server closed")

type client struct {
	id     string
	remote string
	conn   net.Conn
}

// Server accepts downstream consumers on a plain TCP port and writes every
// update to all of them as one JSON line.
//
// Writes happen in sequence under a single lock, so one slow consumer delays
// the others until its write completes or hits WriteTimeout.
type Server struct {
	addr         string
	writeTimeout time.Duration

	mu       sync.Mutex
	clients  []*client
	listener net.Listener
	closed   bool

	wg sync.WaitGroup
}

func New(addr string, writeTimeout time.Duration) *Server {
	return &Server{addr: addr, writeTimeout: writeTimeout}
}

// Start opens the listener and runs the accept loop in the background.
func (s *Server) Start(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.addr)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = ln.Close()
		return ErrServerClosed
	}
	s.listener = ln
	s.mu.Unlock()

	log.Info().Str("addr", ln.Addr().String()).Msg("price feed server listening")

	s.wg.Add(1)
	go s.acceptLoop(ln)
	return nil
}

func (s *Server) acceptLoop(ln net.Listener) {
	defer s.wg.Done()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			log.Error().Err(err).Msg("accept failed")
			// transient (e.g. EMFILE); back off a little and keep accepting
			time.Sleep(50 * time.Millisecond)
			continue
		}
		s.register(conn)
	}
}

func (s *Server) register(conn net.Conn) {
	c := &client{id: uuid.NewString(), remote: conn.RemoteAddr().String(), conn: conn}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = conn.Close()
		return
	}
	s.clients = append(s.clients, c)
	n := len(s.clients)
	s.mu.Unlock()

	metrics.DistributionClients.Set(float64(n))
	log.Info().Str("client", c.id).Str("remote", c.remote).Int("clients", n).Msg("client connected")
}

// Broadcast writes the same line to every registered client. Clients whose
// write fails are closed and dropped in the same pass. It never fails.
func (s *Server) Broadcast(u domain.PriceUpdate) {
	line, err := u.MarshalLine()
	if err != nil {
		log.Error().Err(err).Str("venue", u.Exchange).Msg("marshal update failed")
		return
	}
	metrics.BroadcastsTotal.Inc()

	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.clients[:0]
	for _, c := range s.clients {
		if err := s.write(c, line); err != nil {
			_ = c.conn.Close()
			metrics.ClientsDroppedTotal.Inc()
			log.Info().Str("client", c.id).Str("remote", c.remote).Err(err).Msg("client dropped")
			continue
		}
		kept = append(kept, c)
	}
	for i := len(kept); i < len(s.clients); i++ {
		s.clients[i] = nil
	}
	s.clients = kept
	metrics.DistributionClients.Set(float64(len(kept)))
}

func (s *Server) write(c *client, line []byte) error {
	if s.writeTimeout > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	}
	_, err := c.conn.Write(line)
	return err
}

// ClientCount returns the number of registered consumers.
func (s *Server) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Addr is the bound listen address, nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Close stops accepting and disconnects every client.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	ln := s.listener
	clients := s.clients
	s.clients = nil
	s.mu.Unlock()

	var err error
	if ln != nil {
		err = ln.Close()
	}
	for _, c := range clients {
		_ = c.conn.Close()
	}
	s.wg.Wait()
	metrics.DistributionClients.Set(0)
	log.Info().Msg("price feed server closed")
	return err
}

var _ port.Broadcaster = (*Server)(nil)
