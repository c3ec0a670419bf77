package svc

import "errors"

// ErrNoFeedsEnabled: no enabled exchange has a registered adapter
var ErrNoFeedsEnabled = errors.New("no exchange feeds enabled")

// ErrStorageInitFailed: an enabled storage backend could not be opened
var ErrStorageInitFailed = errors.New("storage initialization failed")
