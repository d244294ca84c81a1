package goCredSync

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/goCredSync/crypt"
	"github.com/MrEthical07/goCredSync/gist"
	"github.com/MrEthical07/goCredSync/internal/audit"
	"github.com/MrEthical07/goCredSync/internal/backoff"
	"github.com/MrEthical07/goCredSync/internal/cpupool"
	"github.com/MrEthical07/goCredSync/session"
)

// Store defines a public type used by goCredSync APIs.
//
// Store instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Store struct {
	config    Config
	sealer    *crypt.Sealer
	cpu       *cpupool.Pool
	clients   *gist.Pool
	tokens    gist.TokenSource
	validator *session.Validator
	ledger    session.Ledger
	ownLedger bool
	locators  *locatorStore
	deviceID  string
	audit     *audit.Dispatcher
	metrics   *Metrics

	// mu serializes the remote sync phase of Store, Load and Delete so
	// two goroutines never race on the gist content or the locator file.
	mu     sync.Mutex
	closed atomic.Bool
}

// Close describes the close operation and its observable behavior.
//
// Close does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Store) Close() {
	if s == nil {
		return
	}
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	if s.audit != nil {
		s.audit.Close()
	}
	if s.cpu != nil {
		s.cpu.Close()
	}
	if s.ownLedger && s.ledger != nil {
		_ = s.ledger.Close()
	}
}

// DeviceID describes the deviceid operation and its observable behavior.
func (s *Store) DeviceID() string {
	if s == nil {
		return ""
	}
	return s.deviceID
}

// AuditDropped describes the auditdropped operation and its observable behavior.
func (s *Store) AuditDropped() uint64 {
	if s == nil || s.audit == nil {
		return 0
	}
	return s.audit.Dropped()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Store) MetricsSnapshot() MetricsSnapshot {
	if s == nil || s.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return s.metrics.Snapshot()
}

// Store encrypts payload and uploads it, creating the backing gist on
// first use and updating it afterwards. The returned metadata carries
// the fresh SessionID and expiry so callers can report or log them.
//
// Store may return an error when input validation, dependency calls, or security checks fail.
// Store does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Store) Store(ctx context.Context, payload []byte) (session.Metadata, error) {
	if s == nil || s.closed.Load() {
		return session.Metadata{}, ErrEngineClosed
	}
	if len(payload) == 0 {
		return session.Metadata{}, fmt.Errorf("%w: empty payload", ErrConfigInvalid)
	}

	start := time.Now()

	meta := session.Stamp(payload, s.config.Session.Platforms, s.deviceID)

	envelope, err := json.Marshal(session.Data{Metadata: meta, Payload: payload})
	if err != nil {
		s.metrics.Inc(MetricStoreFailure)
		return session.Metadata{}, err
	}

	// Seal wipes the envelope buffer once the ciphertext exists, so the
	// plaintext JSON never outlives this call.
	sealed, err := s.sealer.Seal(ctx, envelope)
	if err != nil {
		s.metrics.Inc(MetricStoreFailure)
		s.emit(ctx, AuditEvent{
			Timestamp: time.Now().UTC(),
			EventType: AuditEventStore,
			DeviceID:  s.deviceID,
			SessionID: meta.SessionID,
			Success:   false,
			Error:     err.Error(),
		})
		return session.Metadata{}, err
	}

	content := base64.StdEncoding.EncodeToString(sealed)

	s.mu.Lock()
	defer s.mu.Unlock()

	loc, haveLoc, err := s.locators.load()
	if err != nil {
		s.metrics.Inc(MetricStoreFailure)
		return session.Metadata{}, err
	}

	gistID := loc.GistID
	attempts := 0

	err = s.remote(ctx, &attempts, func(ctx context.Context, client *gist.Client) error {
		if gistID != "" {
			uerr := client.Update(ctx, gistID, s.config.Remote.GistFilename, content)
			if uerr == nil {
				return nil
			}
			if !errors.Is(uerr, gist.ErrNotFound) {
				return uerr
			}
			// The remembered gist vanished. Fall through and recreate.
			gistID = ""
		}

		id, cerr := client.Create(ctx, s.config.Remote.GistDescription, s.config.Remote.GistFilename, content)
		if cerr != nil {
			return cerr
		}
		gistID = id
		return nil
	})
	if err != nil {
		s.metrics.Inc(MetricStoreFailure)
		s.emit(ctx, AuditEvent{
			Timestamp: time.Now().UTC(),
			EventType: AuditEventStore,
			DeviceID:  s.deviceID,
			SessionID: meta.SessionID,
			GistID:    gistID,
			Attempts:  attempts,
			Success:   false,
			Error:     err.Error(),
		})
		return session.Metadata{}, err
	}

	loc.GistID = gistID
	loc.DeviceID = s.deviceID
	loc.LastSync = time.Now().UTC()
	if !haveLoc || loc.TokenHash == "" {
		if token, terr := s.tokens.Token(ctx); terr == nil {
			loc.TokenHash = tokenFingerprint(token)
		}
	}
	if err := s.locators.save(loc); err != nil {
		s.metrics.Inc(MetricStoreFailure)
		return session.Metadata{}, err
	}

	s.metrics.Inc(MetricStoreSuccess)
	s.metrics.Observe(MetricStoreLatency, time.Since(start))
	s.emit(ctx, AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: AuditEventStore,
		DeviceID:  s.deviceID,
		SessionID: meta.SessionID,
		GistID:    gistID,
		Attempts:  attempts,
		Success:   true,
	})

	return meta, nil
}

// Load fetches the stored gist, decrypts it, and validates the envelope
// against expiry, integrity, version, and replay before returning the
// plaintext payload. A given SessionID loads successfully exactly once;
// later loads of the same envelope fail with a replay ValidationError.
//
// Load may return an error when input validation, dependency calls, or security checks fail.
// Load does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Store) Load(ctx context.Context) ([]byte, session.Metadata, error) {
	if s == nil || s.closed.Load() {
		return nil, session.Metadata{}, ErrEngineClosed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	loc, ok, err := s.locators.load()
	if err != nil {
		s.metrics.Inc(MetricLoadFailure)
		return nil, session.Metadata{}, err
	}
	if !ok {
		s.metrics.Inc(MetricLoadFailure)
		return nil, session.Metadata{}, ErrNoRemoteSession
	}

	var content string
	attempts := 0

	err = s.remote(ctx, &attempts, func(ctx context.Context, client *gist.Client) error {
		fetched, ferr := client.Fetch(ctx, loc.GistID, s.config.Remote.GistFilename)
		if ferr != nil {
			return ferr
		}
		content = fetched
		return nil
	})
	if err != nil {
		s.metrics.Inc(MetricLoadFailure)
		s.emit(ctx, AuditEvent{
			Timestamp: time.Now().UTC(),
			EventType: AuditEventLoad,
			DeviceID:  s.deviceID,
			GistID:    loc.GistID,
			Attempts:  attempts,
			Success:   false,
			Error:     err.Error(),
		})
		if errors.Is(err, gist.ErrNotFound) {
			return nil, session.Metadata{}, ErrNoRemoteSession
		}
		return nil, session.Metadata{}, err
	}

	sealed, err := base64.StdEncoding.DecodeString(content)
	if err != nil {
		s.metrics.Inc(MetricTamperDetected)
		s.metrics.Inc(MetricLoadFailure)
		return nil, session.Metadata{}, crypt.ErrDecrypt
	}

	envelope, err := s.sealer.Open(ctx, sealed)
	if err != nil {
		s.metrics.Inc(MetricTamperDetected)
		s.metrics.Inc(MetricLoadFailure)
		s.emit(ctx, AuditEvent{
			Timestamp: time.Now().UTC(),
			EventType: AuditEventTamperDetected,
			DeviceID:  s.deviceID,
			GistID:    loc.GistID,
			Success:   false,
			Error:     err.Error(),
		})
		return nil, session.Metadata{}, err
	}

	var data session.Data
	if err := json.Unmarshal(envelope, &data); err != nil {
		crypt.Wipe(envelope)
		s.metrics.Inc(MetricTamperDetected)
		s.metrics.Inc(MetricLoadFailure)
		return nil, session.Metadata{}, crypt.ErrDecrypt
	}
	crypt.Wipe(envelope)

	if err := s.validator.Validate(ctx, data.Metadata, data.Payload); err != nil {
		crypt.Wipe(data.Payload)
		s.metrics.Inc(MetricLoadFailure)
		s.recordValidationFailure(ctx, loc.GistID, data.Metadata, err)
		return nil, session.Metadata{}, err
	}

	loc.LastSync = time.Now().UTC()
	_ = s.locators.save(loc)

	s.metrics.Inc(MetricLoadSuccess)
	s.emit(ctx, AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: AuditEventLoad,
		DeviceID:  s.deviceID,
		SessionID: data.Metadata.SessionID,
		GistID:    loc.GistID,
		Attempts:  attempts,
		Success:   true,
	})

	return data.Payload, data.Metadata, nil
}

// Delete removes the remote gist and forgets the local locator. A
// missing remote is not an error; the local state is cleared either way.
//
// Delete may return an error when input validation, dependency calls, or security checks fail.
// Delete does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Store) Delete(ctx context.Context) error {
	if s == nil || s.closed.Load() {
		return ErrEngineClosed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	loc, ok, err := s.locators.load()
	if err != nil {
		s.metrics.Inc(MetricDeleteFailure)
		return err
	}
	if !ok {
		return nil
	}

	attempts := 0
	err = s.remote(ctx, &attempts, func(ctx context.Context, client *gist.Client) error {
		derr := client.Delete(ctx, loc.GistID)
		if errors.Is(derr, gist.ErrNotFound) {
			return nil
		}
		return derr
	})
	if err != nil {
		s.metrics.Inc(MetricDeleteFailure)
		s.emit(ctx, AuditEvent{
			Timestamp: time.Now().UTC(),
			EventType: AuditEventDelete,
			DeviceID:  s.deviceID,
			GistID:    loc.GistID,
			Attempts:  attempts,
			Success:   false,
			Error:     err.Error(),
		})
		return err
	}

	if err := s.locators.clear(); err != nil {
		s.metrics.Inc(MetricDeleteFailure)
		return err
	}

	s.metrics.Inc(MetricDeleteSuccess)
	s.emit(ctx, AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: AuditEventDelete,
		DeviceID:  s.deviceID,
		GistID:    loc.GistID,
		Attempts:  attempts,
		Success:   true,
	})

	return nil
}

// Has reports whether an encrypted session is currently stored remotely.
// It checks the remote side, not just the local locator, so a gist
// deleted out of band reports false.
//
// Has may return an error when input validation, dependency calls, or security checks fail.
// Has does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Store) Has(ctx context.Context) (bool, error) {
	if s == nil || s.closed.Load() {
		return false, ErrEngineClosed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	loc, ok, err := s.locators.load()
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	attempts := 0
	err = s.remote(ctx, &attempts, func(ctx context.Context, client *gist.Client) error {
		_, ferr := client.Fetch(ctx, loc.GistID, s.config.Remote.GistFilename)
		return ferr
	})
	if errors.Is(err, gist.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// remote runs op through the retry policy with the pooled client. On an
// authentication failure the pooled handle is dropped and op gets one
// chance with a freshly built client before the error surfaces.
func (s *Store) remote(ctx context.Context, attempts *int, op func(ctx context.Context, client *gist.Client) error) error {
	return backoff.Do(ctx, backoff.Config{
		MaxRetries: s.config.Retry.MaxRetries,
		BaseDelay:  s.config.Retry.BaseDelay,
		MaxDelay:   s.config.Retry.MaxDelay,
		Multiplier: s.config.Retry.BackoffMultiplier,
	}, func(ctx context.Context) error {
		if attempts != nil {
			if *attempts > 0 {
				s.metrics.Inc(MetricRetryAttempt)
			}
			*attempts++
		}

		client, err := s.clients.Get(ctx)
		if err != nil {
			return err
		}

		err = op(ctx, client)
		if err == nil {
			return nil
		}

		var rl *gist.RateLimitError
		if errors.As(err, &rl) {
			s.metrics.Inc(MetricRateLimited)
			s.emit(ctx, AuditEvent{
				Timestamp: time.Now().UTC(),
				EventType: AuditEventRateLimited,
				DeviceID:  s.deviceID,
				Success:   false,
				Error:     err.Error(),
			})
		}

		if !errors.Is(err, gist.ErrAuthenticationFailed) {
			return err
		}

		// Stale token. Rebuild the handle once and re-run before giving up.
		s.clients.Invalidate()
		fresh, rerr := s.clients.Get(ctx)
		if rerr != nil {
			return err
		}
		s.metrics.Inc(MetricClientRefreshed)
		s.emit(ctx, AuditEvent{
			Timestamp: time.Now().UTC(),
			EventType: AuditEventClientRefreshed,
			DeviceID:  s.deviceID,
			Success:   true,
		})
		return op(ctx, fresh)
	})
}

func (s *Store) recordValidationFailure(ctx context.Context, gistID string, meta session.Metadata, err error) {
	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: AuditEventLoad,
		DeviceID:  s.deviceID,
		SessionID: meta.SessionID,
		GistID:    gistID,
		Success:   false,
		Error:     err.Error(),
	}

	var verr *session.ValidationError
	switch {
	case errors.Is(err, session.ErrExpired):
		s.metrics.Inc(MetricSessionExpired)
		event.EventType = AuditEventExpired
	case errors.As(err, &verr) && verr.Reason == session.ReasonReplay:
		s.metrics.Inc(MetricReplayDetected)
		event.EventType = AuditEventReplayDetected
	case errors.As(err, &verr) && verr.Reason == session.ReasonHashMismatch:
		s.metrics.Inc(MetricTamperDetected)
		event.EventType = AuditEventTamperDetected
	}

	s.emit(ctx, event)
}

func (s *Store) emit(ctx context.Context, event AuditEvent) {
	if s.audit == nil {
		return
	}
	s.audit.Emit(ctx, event)
}
