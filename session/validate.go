package session

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"
)

// ErrExpired is an exported constant or variable used by the sync engine.
var ErrExpired = errors.New("session expired")

// Validation failure reasons carried by [ValidationError].
const (
	ReasonHashMismatch = "hash-mismatch"
	ReasonReplay       = "replay"
	ReasonVersion      = "version"
	ReasonMalformed    = "malformed"
)

// ValidationError reports why a session envelope was rejected. It is
// never retryable: a failed validation is a data problem, not a transient
// fault.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "session invalid: " + e.Reason
}

// Validator checks session envelopes against expiry, integrity, version,
// and replay. The replay ledger is the only mutable state it touches.
type Validator struct {
	Ledger Ledger

	// Now is overridable for tests; nil means time.Now.
	Now func() time.Time
}

// NewValidator creates a Validator recording seen session IDs in ledger.
func NewValidator(ledger Ledger) *Validator {
	return &Validator{Ledger: ledger}
}

func (v *Validator) now() time.Time {
	if v.Now != nil {
		return v.Now()
	}
	return time.Now()
}

// Validate rejects the envelope when it is expired, carries an unknown
// version, its payload hash does not match, or its SessionID was already
// consumed. On success the SessionID is recorded in the ledger before
// returning, so presenting the same envelope again — even via a replayed
// network response — fails with ReasonReplay.
//
// Check order is deliberate: expiry and version first (cheap, no ledger
// write), integrity next, replay last so only fully valid envelopes are
// ever recorded as seen.
func (v *Validator) Validate(ctx context.Context, meta Metadata, payload []byte) error {
	if meta.SessionID == "" {
		return &ValidationError{Reason: ReasonMalformed}
	}
	if meta.Version != CurrentVersion {
		return &ValidationError{Reason: ReasonVersion}
	}
	if !v.now().Before(meta.ExpiresAt) {
		return ErrExpired
	}

	want := meta.ContentHash
	got := ContentHash(payload)
	if subtle.ConstantTimeCompare([]byte(want), []byte(got)) != 1 {
		return &ValidationError{Reason: ReasonHashMismatch}
	}

	seen, err := v.Ledger.Record(ctx, meta.SessionID, meta.ExpiresAt)
	if err != nil {
		return fmt.Errorf("replay ledger: %w", err)
	}
	if seen {
		return &ValidationError{Reason: ReasonReplay}
	}

	return nil
}
