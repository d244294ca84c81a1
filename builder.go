package goCredSync

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/MrEthical07/goCredSync/crypt"
	"github.com/MrEthical07/goCredSync/gist"
	"github.com/MrEthical07/goCredSync/internal/cpupool"
	"github.com/MrEthical07/goCredSync/session"
	"github.com/redis/go-redis/v9"
)

// Builder defines a public type used by goCredSync APIs.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config Config

	tokens       gist.TokenSource
	secretSource crypt.SecretSource
	httpClient   *http.Client
	redis        redis.UniversalClient
	ledger       session.Ledger
	stateDir     string
	auditSink    AuditSink

	built bool
}

// New describes the new operation and its observable behavior.
//
// New does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig describes the withconfig operation and its observable behavior.
//
// WithConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithTokenSource describes the withtokensource operation and its observable behavior.
//
// WithTokenSource does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithTokenSource(tokens gist.TokenSource) *Builder {
	b.tokens = tokens
	return b
}

// WithToken describes the withtoken operation and its observable behavior.
//
// WithToken does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithToken(token string) *Builder {
	b.tokens = gist.StaticToken(token)
	return b
}

// WithSecretSource describes the withsecretsource operation and its observable behavior.
//
// WithSecretSource does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithSecretSource(source crypt.SecretSource) *Builder {
	b.secretSource = source
	return b
}

// WithHTTPClient describes the withhttpclient operation and its observable behavior.
//
// WithHTTPClient does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithHTTPClient(client *http.Client) *Builder {
	b.httpClient = client
	return b
}

// WithRedis describes the withredis operation and its observable behavior.
//
// WithRedis does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithLedger describes the withledger operation and its observable behavior.
//
// WithLedger does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithLedger(ledger session.Ledger) *Builder {
	b.ledger = ledger
	return b
}

// WithStateDir describes the withstatedir operation and its observable behavior.
//
// WithStateDir does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithStateDir(dir string) *Builder {
	b.stateDir = dir
	return b
}

// WithAuditSink describes the withauditsink operation and its observable behavior.
//
// WithAuditSink does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled describes the withmetricsenabled operation and its observable behavior.
//
// WithMetricsEnabled does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms describes the withlatencyhistograms operation and its observable behavior.
//
// WithLatencyHistograms does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build describes the build operation and its observable behavior.
//
// Build may return an error when input validation, dependency calls, or security checks fail.
// Build does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) Build() (*Store, error) {
	if b.built {
		return nil, ErrConfigInvalid
	}

	cfg := cloneConfig(b.config)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.tokens == nil {
		return nil, ErrTokenSourceRequired
	}

	stateDir := b.stateDir
	if stateDir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return nil, err
		}
		stateDir = filepath.Join(base, "gocredsync")
	}

	locators, err := newLocatorStore(stateDir)
	if err != nil {
		return nil, err
	}

	// -------- REPLAY LEDGER --------
	ledger := b.ledger
	ownLedger := false
	if ledger == nil {
		if b.redis != nil {
			ledger = session.NewRedisLedger(b.redis, cfg.Ledger.RedisPrefix)
		} else {
			sq, err := session.OpenSQLiteLedger(stateDir)
			if err != nil {
				return nil, err
			}
			ledger = sq
		}
		ownLedger = true
	}

	// -------- ENCRYPTION --------
	source := b.secretSource
	if source == nil {
		source = crypt.NewKeyringSource()
	}

	pool := cpupool.New(cfg.Encryption.Workers)

	sealer, err := crypt.NewSealer(source, pool)
	if err != nil {
		pool.Close()
		if ownLedger {
			_ = ledger.Close()
		}
		return nil, err
	}

	// -------- REMOTE CLIENT POOL --------
	httpClient := b.httpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Remote.RequestTimeout}
	}
	clients := gist.NewPool(b.tokens, httpClient, cfg.Remote.BaseURL)

	deviceID := cfg.Session.DeviceID
	if deviceID == "" {
		deviceID = session.DeviceID()
	}

	store := &Store{
		config:    cfg,
		sealer:    sealer,
		cpu:       pool,
		clients:   clients,
		tokens:    b.tokens,
		validator: session.NewValidator(ledger),
		ledger:    ledger,
		ownLedger: ownLedger,
		locators:  locators,
		deviceID:  deviceID,
		audit:     newAuditDispatcher(cfg.Audit, b.auditSink),
		metrics:   NewMetrics(cfg.Metrics),
	}

	b.built = true

	return store, nil
}
