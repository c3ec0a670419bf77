package domain

// SessionState is the lifecycle position of one venue session.
type SessionState int32

const (
	StateIdle SessionState = iota
	StateResolving
	StateConnecting
	StateEncryptingHandshake
	StateProtocolHandshake
	StateSubscribing
	StateStreaming
	StateClosing
	StateReconnecting
	StateStopped
)

var stateNames = [...]string{
	StateIdle:                "idle",
	StateResolving:           "resolving",
	StateConnecting:          "connecting",
	StateEncryptingHandshake: "encrypting_handshake",
	StateProtocolHandshake:   "protocol_handshake",
	StateSubscribing:         "subscribing",
	StateStreaming:           "streaming",
	StateClosing:             "closing",
	StateReconnecting:        "reconnecting",
	StateStopped:             "stopped",
}

func (s SessionState) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// ParseSessionState is the inverse of String; unknown names map to StateIdle.
func ParseSessionState(name string) (SessionState, bool) {
	for i, n := range stateNames {
		if n == name {
			return SessionState(i), true
		}
	}
	return StateIdle, false
}

// SessionEvent records one lifecycle transition of a venue session.
type SessionEvent struct {
	Venue     string
	From      SessionState
	To        SessionState
	Attempt   int    // reconnect attempts so far
	Error     string // cause of the transition, empty on success paths
	Timestamp int64  // unix ms
}
