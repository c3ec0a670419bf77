package session

import "errors"

var (
	ErrAlreadyStarted = errors.New("session already started")
	ErrStopped        = errors.New("session stopped")
	// ErrAttemptsExhausted is the cause recorded on the terminal transition.
	ErrAttemptsExhausted = errors.New("max reconnect attempts reached")
)
