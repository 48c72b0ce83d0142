package client

import "errors"

var (
	// ErrTransient marks network failures, timeouts and 5xx responses.
	// Transient failures are queued and retried automatically.
	ErrTransient = errors.New("client: transient error")

	// ErrValidation marks 4xx responses: the server understood and rejected
	// the payload, so retrying the same bytes cannot succeed. These are
	// parked in the dead-letter list rather than retried forever.
	ErrValidation = errors.New("client: validation error")

	// ErrNotFound marks a missing remote record. Restore treats this as
	// "no progress", not a failure.
	ErrNotFound = errors.New("client: not found")
)
