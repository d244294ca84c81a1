package goCredSync

import (
	"errors"

	"github.com/MrEthical07/goCredSync/crypt"
	"github.com/MrEthical07/goCredSync/gist"
	"github.com/MrEthical07/goCredSync/session"
)

var (
	// ErrConfigInvalid is an exported constant or variable used by the sync engine.
	ErrConfigInvalid = errors.New("invalid configuration")
	// ErrEngineClosed is an exported constant or variable used by the sync engine.
	ErrEngineClosed = errors.New("engine closed")
	// ErrNoRemoteSession is an exported constant or variable used by the sync engine.
	ErrNoRemoteSession = errors.New("no remote session stored")
	// ErrTokenSourceRequired is an exported constant or variable used by the sync engine.
	ErrTokenSourceRequired = errors.New("token source required")
)

// Re-exported sentinels from the subpackages so callers can branch on
// failure classes without importing them directly.
var (
	// ErrAuthenticationFailed is an exported constant or variable used by the sync engine.
	ErrAuthenticationFailed = gist.ErrAuthenticationFailed
	// ErrRemoteNotFound is an exported constant or variable used by the sync engine.
	ErrRemoteNotFound = gist.ErrNotFound
	// ErrEncrypt is an exported constant or variable used by the sync engine.
	ErrEncrypt = crypt.ErrEncrypt
	// ErrDecrypt is an exported constant or variable used by the sync engine.
	ErrDecrypt = crypt.ErrDecrypt
	// ErrSessionExpired is an exported constant or variable used by the sync engine.
	ErrSessionExpired = session.ErrExpired
	// ErrSecretNotFound is an exported constant or variable used by the sync engine.
	ErrSecretNotFound = crypt.ErrSecretNotFound
)

// Structured error types callers may inspect with errors.As.
type (
	// APIError defines a public type used by goCredSync APIs.
	APIError = gist.APIError
	// TimeoutError defines a public type used by goCredSync APIs.
	TimeoutError = gist.TimeoutError
	// RateLimitError defines a public type used by goCredSync APIs.
	RateLimitError = gist.RateLimitError
	// ValidationError defines a public type used by goCredSync APIs.
	ValidationError = session.ValidationError
)
