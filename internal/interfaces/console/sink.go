package console

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"xfeed/internal/application/port"
	"xfeed/internal/domain"
)

// Sink prints to a terminal: the status board and, when echo is on, every
// distributed line.
type Sink struct {
	mu  sync.Mutex
	out io.Writer
}

func NewSink(out io.Writer) *Sink {
	if out == nil {
		out = os.Stdout
	}
	return &Sink{out: out}
}

// Publish echoes the wire line.
func (s *Sink) Publish(_ context.Context, u domain.PriceUpdate) error {
	line, err := u.MarshalLine()
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.out.Write(line)
	return err
}

// snapshot block is framed by blank lines so it stands out between echo lines
func (s *Sink) WriteSnapshot(ts time.Time, line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := fmt.Fprintf(s.out, "\n%s %s\n\n", ts.Format("2006-01-02 15:04:05"), line)
	return err
}

var (
	_ port.QuoteSink  = (*Sink)(nil)
	_ port.StatusSink = (*Sink)(nil)
)
