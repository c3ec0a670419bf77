package monitor

import "xfeed/internal/domain"

// SessionSource is the read side of a venue session.
type SessionSource interface {
	Name() string
	State() domain.SessionState
	Attempts() int
}

// ClientCounter reports connected downstream consumers.
type ClientCounter interface {
	ClientCount() int
}
