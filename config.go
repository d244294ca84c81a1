package goCredSync

import (
	"errors"
	"time"
)

// Config defines a public type used by goCredSync APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	Retry      RetryConfig
	Session    SessionConfig
	Encryption EncryptionConfig
	Remote     RemoteConfig
	Ledger     LedgerConfig
	Audit      AuditConfig
	Metrics    MetricsConfig
}

/*
====================================
RETRY CONFIG
====================================
*/

// RetryConfig controls the exponential backoff applied to every remote
// call. It never applies to encryption, validation, or authentication
// failures — those are fatal by classification, not by budget.
type RetryConfig struct {
	MaxRetries        int
	BaseDelay         time.Duration
	MaxDelay          time.Duration
	BackoffMultiplier float64
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig defines a public type used by goCredSync APIs.
//
// SessionConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SessionConfig struct {
	// Platforms names the browser/cookie sources contributing to stored
	// sessions. Carried in envelope metadata for diagnostics only.
	Platforms []string

	// DeviceID overrides the hostname-derived device identifier.
	DeviceID string
}

/*
====================================
ENCRYPTION CONFIG
====================================
*/

// EncryptionConfig defines a public type used by goCredSync APIs.
//
// EncryptionConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type EncryptionConfig struct {
	// Workers sizes the CPU pool running encrypt/decrypt off the I/O
	// goroutines.
	Workers int
}

/*
====================================
REMOTE CONFIG
====================================
*/

// RemoteConfig defines a public type used by goCredSync APIs.
//
// RemoteConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type RemoteConfig struct {
	// BaseURL of the gist API. Empty selects the public endpoint;
	// overridable for tests and GitHub Enterprise.
	BaseURL string

	RequestTimeout time.Duration

	GistDescription string
	GistFilename    string
}

/*
====================================
LEDGER CONFIG
====================================
*/

// LedgerConfig defines a public type used by goCredSync APIs.
//
// LedgerConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type LedgerConfig struct {
	// RedisPrefix namespaces replay-ledger keys when a Redis client is
	// supplied via [Builder.WithRedis].
	RedisPrefix string
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig defines a public type used by goCredSync APIs.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig defines a public type used by goCredSync APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig describes the defaultconfig operation and its observable behavior.
//
// DefaultConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Retry: RetryConfig{
			MaxRetries:        3,
			BaseDelay:         time.Second,
			MaxDelay:          10 * time.Second,
			BackoffMultiplier: 2.0,
		},
		Session: SessionConfig{},
		Encryption: EncryptionConfig{
			Workers: 2,
		},
		Remote: RemoteConfig{
			RequestTimeout:  30 * time.Second,
			GistDescription: "goCredSync encrypted session data - DO NOT EDIT",
			GistFilename:    "gocredsync-session-data.enc",
		},
		Ledger: LedgerConfig{},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

// Validate checks configuration invariants before Build wires anything.
func (c Config) Validate() error {
	if c.Retry.MaxRetries < 0 {
		return errors.New("Retry.MaxRetries must not be negative")
	}
	if c.Retry.BaseDelay <= 0 {
		return errors.New("Retry.BaseDelay must be positive")
	}
	if c.Retry.MaxDelay < c.Retry.BaseDelay {
		return errors.New("Retry.MaxDelay must be >= Retry.BaseDelay")
	}
	if c.Retry.BackoffMultiplier < 1.0 {
		return errors.New("Retry.BackoffMultiplier must be >= 1.0")
	}
	if c.Encryption.Workers < 1 {
		return errors.New("Encryption.Workers must be >= 1")
	}
	if c.Remote.RequestTimeout <= 0 {
		return errors.New("Remote.RequestTimeout must be positive")
	}
	if c.Remote.GistFilename == "" {
		return errors.New("Remote.GistFilename must not be empty")
	}
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit.BufferSize must be positive when audit is enabled")
	}
	return nil
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Session.Platforms = append([]string(nil), cfg.Session.Platforms...)
	return out
}
