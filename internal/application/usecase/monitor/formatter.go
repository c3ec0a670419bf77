package monitor

import (
	"fmt"
	"strings"

	"xfeed/internal/domain"
)

const (
	ansiReset  = "\033[0m"
	ansiRed    = "\033[31m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
	ansiDim    = "\033[2m"
)

type Formatter struct {
	Color bool
}

func NewFormatter(color bool) *Formatter {
	return &Formatter{Color: color}
}

func (f *Formatter) colorize(s, c string) string {
	if !f.Color {
		return s
	}
	return c + s + ansiReset
}

func dirColor(d Dir) string {
	switch d {
	case DirUp:
		return ansiGreen
	case DirDown:
		return ansiRed
	default:
		return ansiYellow
	}
}

func stateColor(s domain.SessionState) string {
	switch s {
	case domain.StateStreaming:
		return ansiGreen
	case domain.StateStopped, domain.StateReconnecting:
		return ansiRed
	default:
		return ansiYellow
	}
}

// Render builds the one-line status board: mids per pair, then session
// states, then the consumer count.
func (f *Formatter) Render(st *State, sessions []SessionSource, clients int) string {
	snap := st.Snapshot()

	var sb strings.Builder
	sb.WriteString(f.colorize("[XFEED] ", ansiDim))

	for i, pair := range st.Pairs() {
		if i > 0 {
			sb.WriteString(f.colorize("  ||  ", ansiDim))
		}
		sb.WriteString(pair)
		rows := snap[pair]
		if len(rows) == 0 {
			sb.WriteString(" --")
			continue
		}
		for _, q := range rows {
			sb.WriteString(" ")
			sb.WriteString(f.colorize(fmt.Sprintf("%s:%s", q.Venue, q.Mid.String()), dirColor(q.Dir)))
		}
	}

	if len(sessions) > 0 {
		sb.WriteString(f.colorize("  |  ", ansiDim))
		for i, s := range sessions {
			if i > 0 {
				sb.WriteString(" ")
			}
			state := s.State()
			label := s.Name() + "=" + state.String()
			if n := s.Attempts(); n > 0 {
				label += fmt.Sprintf("(%d)", n)
			}
			sb.WriteString(f.colorize(label, stateColor(state)))
		}
	}

	sb.WriteString(f.colorize("  |  ", ansiDim))
	sb.WriteString(fmt.Sprintf("clients=%d", clients))
	return sb.String()
}
