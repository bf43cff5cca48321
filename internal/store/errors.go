package store

import "errors"

var (
	ErrNotFound = errors.New("not found")

	// ErrUnavailable wraps any connectivity or driver failure. It propagates to
	// the caller as a retryable error; the process keeps running.
	ErrUnavailable = errors.New("storage unavailable")
)
