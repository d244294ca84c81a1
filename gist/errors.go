package gist

import (
	"errors"
	"fmt"
	"time"
)

// ErrAuthenticationFailed is an exported constant or variable used by the sync engine.
// The backend rejected our credentials (401/403); retrying cannot help
// without user intervention.
var ErrAuthenticationFailed = errors.New("authentication failed")

// ErrNotFound is an exported constant or variable used by the sync engine.
var ErrNotFound = errors.New("gist not found")

// APIError reports a remote call that completed but was rejected by the
// service. Retryable only for 5xx-class statuses.
type APIError struct {
	Operation  string
	StatusCode int
	Details    string
}

func (e *APIError) Error() string {
	if e.Details == "" {
		return fmt.Sprintf("gist api %s failed: HTTP %d", e.Operation, e.StatusCode)
	}
	return fmt.Sprintf("gist api %s failed: HTTP %d: %s", e.Operation, e.StatusCode, e.Details)
}

// Retryable reports whether the failure class is transient.
func (e *APIError) Retryable() bool {
	return e.StatusCode >= 500
}

// TimeoutError reports that the backend produced no response within the
// allotted time. Always retryable.
type TimeoutError struct {
	Operation string
	Timeout   time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("network timeout after %s during %s", e.Timeout, e.Operation)
}

func (e *TimeoutError) Retryable() bool { return true }

// RateLimitError is the backend's explicit backpressure signal (429).
// RetryAfter carries the server-provided delay hint.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited: retry after %s", e.RetryAfter)
}

func (e *RateLimitError) Retryable() bool { return true }

// RetryDelay feeds the server hint into the backoff executor, which uses
// it when it exceeds the computed delay.
func (e *RateLimitError) RetryDelay() time.Duration { return e.RetryAfter }
