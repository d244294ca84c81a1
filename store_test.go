package goCredSync

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrEthical07/goCredSync/crypt"
	"github.com/MrEthical07/goCredSync/internal/cpupool"
	"github.com/MrEthical07/goCredSync/session"
)

type testSecretSource struct {
	mu      sync.Mutex
	secrets map[string][]byte
}

func newTestSecretSource() *testSecretSource {
	return &testSecretSource{secrets: map[string][]byte{}}
}

func (s *testSecretSource) ReadSecret(name string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.secrets[name]
	if !ok {
		return nil, crypt.ErrSecretNotFound
	}
	return append([]byte(nil), value...), nil
}

func (s *testSecretSource) WriteSecret(name string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.secrets[name] = append([]byte(nil), value...)
	return nil
}

// fakeGistServer implements the subset of the GitHub API the store uses
// and exposes knobs for fault injection.
type fakeGistServer struct {
	mu    sync.Mutex
	gists map[string]map[string]string
	next  int

	failFetches  atomic.Int64 // remaining GET /gists/{id} calls to fail with 503
	failUpdates  atomic.Int64 // remaining PATCH calls to fail with 503
	unauthorized atomic.Int64 // remaining gist calls to fail with 401

	fetchCalls  atomic.Int64
	createCalls atomic.Int64
	updateCalls atomic.Int64
	viewerCalls atomic.Int64
}

func newFakeGistServer() *fakeGistServer {
	return &fakeGistServer{gists: map[string]map[string]string{}}
}

func (f *fakeGistServer) content(id, filename string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	files, ok := f.gists[id]
	if !ok {
		return "", false
	}
	content, ok := files[filename]
	return content, ok
}

func (f *fakeGistServer) setContent(id, filename, content string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.gists[id] == nil {
		f.gists[id] = map[string]string{}
	}
	f.gists[id][filename] = content
}

func (f *fakeGistServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/user" {
		f.viewerCalls.Add(1)
		_, _ = w.Write([]byte(`{"login":"octocat"}`))
		return
	}

	if f.unauthorized.Load() > 0 {
		f.unauthorized.Add(-1)
		http.Error(w, `{"message":"Bad credentials"}`, http.StatusUnauthorized)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case r.URL.Path == "/gists" && r.Method == http.MethodPost:
		f.createCalls.Add(1)
		files := decodeFiles(r)
		f.next++
		id := fmt.Sprintf("gist-%d", f.next)
		f.gists[id] = files
		writeGist(w, http.StatusCreated, id, files)
	case strings.HasPrefix(r.URL.Path, "/gists/"):
		id := strings.TrimPrefix(r.URL.Path, "/gists/")
		files, ok := f.gists[id]
		if !ok {
			http.Error(w, `{"message":"Not Found"}`, http.StatusNotFound)
			return
		}
		switch r.Method {
		case http.MethodGet:
			f.fetchCalls.Add(1)
			if f.failFetches.Load() > 0 {
				f.failFetches.Add(-1)
				http.Error(w, `{"message":"Service Unavailable"}`, http.StatusServiceUnavailable)
				return
			}
			writeGist(w, http.StatusOK, id, files)
		case http.MethodPatch:
			f.updateCalls.Add(1)
			if f.failUpdates.Load() > 0 {
				f.failUpdates.Add(-1)
				http.Error(w, `{"message":"Service Unavailable"}`, http.StatusServiceUnavailable)
				return
			}
			for name, content := range decodeFiles(r) {
				files[name] = content
			}
			writeGist(w, http.StatusOK, id, files)
		case http.MethodDelete:
			delete(f.gists, id)
			w.WriteHeader(http.StatusNoContent)
		}
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

func decodeFiles(r *http.Request) map[string]string {
	var body struct {
		Files map[string]struct {
			Content string `json:"content"`
		} `json:"files"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	files := map[string]string{}
	for name, file := range body.Files {
		files[name] = file.Content
	}
	return files
}

func writeGist(w http.ResponseWriter, status int, id string, files map[string]string) {
	fileObjs := map[string]any{}
	for name, content := range files {
		fileObjs[name] = map[string]string{"content": content}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"id": id, "files": fileObjs})
}

type storeFixture struct {
	store  *Store
	server *fakeGistServer
	source *testSecretSource
	cfg    Config
}

func newStoreFixture(t *testing.T, mutate func(*Config)) *storeFixture {
	t.Helper()

	api := newFakeGistServer()
	server := httptest.NewServer(api)
	t.Cleanup(server.Close)

	cfg := DefaultConfig()
	cfg.Remote.BaseURL = server.URL
	cfg.Retry.BaseDelay = time.Millisecond
	cfg.Retry.MaxDelay = 5 * time.Millisecond
	cfg.Session.Platforms = []string{"chrome"}
	cfg.Metrics.Enabled = true
	if mutate != nil {
		mutate(&cfg)
	}

	source := newTestSecretSource()

	store, err := New().
		WithConfig(cfg).
		WithToken("test-token").
		WithSecretSource(source).
		WithHTTPClient(server.Client()).
		WithStateDir(t.TempDir()).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(store.Close)

	return &storeFixture{store: store, server: api, source: source, cfg: cfg}
}

func TestStoreLoadRoundTrip(t *testing.T) {
	fx := newStoreFixture(t, nil)
	ctx := context.Background()

	payload := []byte(`{"cookies":[{"name":"sid","value":"cookie-blob-v1"}]}`)

	meta, err := fx.store.Store(ctx, append([]byte(nil), payload...))
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	if meta.SessionID == "" {
		t.Fatal("expected session id in metadata")
	}
	if got := meta.ExpiresAt.Sub(meta.CreatedAt); got != session.DefaultTTL {
		t.Fatalf("expected 30 day TTL, got %v", got)
	}

	loaded, loadedMeta, err := fx.store.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !bytes.Equal(loaded, payload) {
		t.Fatalf("payload mismatch: %q", loaded)
	}
	if loadedMeta.SessionID != meta.SessionID {
		t.Fatal("metadata session id mismatch")
	}

	if got := fx.store.MetricsSnapshot().Counters[MetricStoreSuccess]; got != 1 {
		t.Fatalf("expected 1 store success, got %d", got)
	}
}

func TestStoreRemoteContentIsOpaque(t *testing.T) {
	fx := newStoreFixture(t, nil)
	ctx := context.Background()

	secret := "super-secret-cookie-value"
	if _, err := fx.store.Store(ctx, []byte(secret)); err != nil {
		t.Fatalf("Store: %v", err)
	}

	content, ok := fx.server.content("gist-1", fx.cfg.Remote.GistFilename)
	if !ok {
		t.Fatal("gist file missing on server")
	}
	if strings.Contains(content, secret) {
		t.Fatal("remote content contains plaintext")
	}
	if _, err := base64.StdEncoding.DecodeString(content); err != nil {
		t.Fatalf("remote content is not base64: %v", err)
	}
}

func TestSecondStoreUpdatesExistingGist(t *testing.T) {
	fx := newStoreFixture(t, nil)
	ctx := context.Background()

	if _, err := fx.store.Store(ctx, []byte("first")); err != nil {
		t.Fatalf("first Store: %v", err)
	}
	if _, err := fx.store.Store(ctx, []byte("second")); err != nil {
		t.Fatalf("second Store: %v", err)
	}

	if got := fx.server.createCalls.Load(); got != 1 {
		t.Fatalf("expected 1 create, got %d", got)
	}
	if got := fx.server.updateCalls.Load(); got != 1 {
		t.Fatalf("expected 1 update, got %d", got)
	}
}

func TestLoadRejectsReplay(t *testing.T) {
	fx := newStoreFixture(t, nil)
	ctx := context.Background()

	if _, err := fx.store.Store(ctx, []byte("payload")); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if _, _, err := fx.store.Load(ctx); err != nil {
		t.Fatalf("first Load: %v", err)
	}

	_, _, err := fx.store.Load(ctx)
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Reason != ReasonReplay {
		t.Fatalf("expected replay rejection, got %v", err)
	}

	if got := fx.store.MetricsSnapshot().Counters[MetricReplayDetected]; got != 1 {
		t.Fatalf("expected 1 replay detection, got %d", got)
	}
}

func TestLoadRetriesTransientFailures(t *testing.T) {
	fx := newStoreFixture(t, nil)
	ctx := context.Background()

	if _, err := fx.store.Store(ctx, []byte("payload")); err != nil {
		t.Fatalf("Store: %v", err)
	}

	fx.server.failFetches.Store(2)

	if _, _, err := fx.store.Load(ctx); err != nil {
		t.Fatalf("Load should survive two 503s: %v", err)
	}

	if got := fx.store.MetricsSnapshot().Counters[MetricRetryAttempt]; got != 2 {
		t.Fatalf("expected 2 retries, got %d", got)
	}
}

func TestLoadExhaustsRetryBudget(t *testing.T) {
	fx := newStoreFixture(t, nil)
	ctx := context.Background()

	if _, err := fx.store.Store(ctx, []byte("payload")); err != nil {
		t.Fatalf("Store: %v", err)
	}

	// More failures than the budget (1 attempt + 3 retries) can absorb.
	fx.server.failFetches.Store(10)

	_, _, err := fx.store.Load(ctx)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError after exhausted budget, got %v", err)
	}

	if got := fx.server.fetchCalls.Load(); got != 4 {
		t.Fatalf("expected 4 fetch attempts, got %d", got)
	}
}

func TestAuthFailureGetsOneFreshClientRetry(t *testing.T) {
	fx := newStoreFixture(t, nil)
	ctx := context.Background()

	if _, err := fx.store.Store(ctx, []byte("payload")); err != nil {
		t.Fatalf("Store: %v", err)
	}

	// One 401 on the gist fetch; the health-checked rebuild then retries.
	fx.server.unauthorized.Store(1)

	if _, _, err := fx.store.Load(ctx); err != nil {
		t.Fatalf("Load should recover from a stale token: %v", err)
	}

	if got := fx.store.MetricsSnapshot().Counters[MetricClientRefreshed]; got != 1 {
		t.Fatalf("expected 1 client refresh, got %d", got)
	}
	// No backoff retry was consumed: the fresh-handle retry is immediate.
	if got := fx.store.MetricsSnapshot().Counters[MetricRetryAttempt]; got != 0 {
		t.Fatalf("expected 0 backoff retries, got %d", got)
	}
}

func TestLoadRejectsTamperedRemote(t *testing.T) {
	fx := newStoreFixture(t, nil)
	ctx := context.Background()

	if _, err := fx.store.Store(ctx, []byte("payload")); err != nil {
		t.Fatalf("Store: %v", err)
	}

	content, ok := fx.server.content("gist-1", fx.cfg.Remote.GistFilename)
	if !ok {
		t.Fatal("gist file missing on server")
	}
	raw, err := base64.StdEncoding.DecodeString(content)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	raw[len(raw)/2] ^= 0x01
	fx.server.setContent("gist-1", fx.cfg.Remote.GistFilename, base64.StdEncoding.EncodeToString(raw))

	if _, _, err := fx.store.Load(ctx); !errors.Is(err, ErrDecrypt) {
		t.Fatalf("expected ErrDecrypt, got %v", err)
	}
	if got := fx.store.MetricsSnapshot().Counters[MetricTamperDetected]; got != 1 {
		t.Fatalf("expected 1 tamper detection, got %d", got)
	}
}

func TestLoadRejectsExpiredEnvelope(t *testing.T) {
	fx := newStoreFixture(t, nil)
	ctx := context.Background()

	if _, err := fx.store.Store(ctx, []byte("payload")); err != nil {
		t.Fatalf("Store: %v", err)
	}

	// Replace the remote envelope with one whose expiry is in the past,
	// sealed under the same master key.
	pool := cpupool.New(1)
	t.Cleanup(pool.Close)
	sealer, err := crypt.NewSealer(fx.source, pool)
	if err != nil {
		t.Fatalf("NewSealer: %v", err)
	}

	payload := []byte("old payload")
	meta := session.Stamp(payload, nil, "dev")
	meta.CreatedAt = time.Now().UTC().Add(-31 * 24 * time.Hour)
	meta.ExpiresAt = time.Now().UTC().Add(-24 * time.Hour)

	envelope, err := json.Marshal(session.Data{Metadata: meta, Payload: payload})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	sealed, err := sealer.Seal(ctx, envelope)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	fx.server.setContent("gist-1", fx.cfg.Remote.GistFilename, base64.StdEncoding.EncodeToString(sealed))

	if _, _, err := fx.store.Load(ctx); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
	if got := fx.store.MetricsSnapshot().Counters[MetricSessionExpired]; got != 1 {
		t.Fatalf("expected 1 expiry rejection, got %d", got)
	}
}

func TestLoadWithoutStoredSession(t *testing.T) {
	fx := newStoreFixture(t, nil)

	if _, _, err := fx.store.Load(context.Background()); !errors.Is(err, ErrNoRemoteSession) {
		t.Fatalf("expected ErrNoRemoteSession, got %v", err)
	}
}

func TestDeleteRemovesRemoteAndLocator(t *testing.T) {
	fx := newStoreFixture(t, nil)
	ctx := context.Background()

	if _, err := fx.store.Store(ctx, []byte("payload")); err != nil {
		t.Fatalf("Store: %v", err)
	}

	ok, err := fx.store.Has(ctx)
	if err != nil || !ok {
		t.Fatalf("expected stored session, got ok=%v err=%v", ok, err)
	}

	if err := fx.store.Delete(ctx); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	ok, err = fx.store.Has(ctx)
	if err != nil {
		t.Fatalf("Has after delete: %v", err)
	}
	if ok {
		t.Fatal("session still reported present after delete")
	}
	if _, _, err := fx.store.Load(ctx); !errors.Is(err, ErrNoRemoteSession) {
		t.Fatalf("expected ErrNoRemoteSession after delete, got %v", err)
	}
}

func TestDeleteWithoutSessionIsNoOp(t *testing.T) {
	fx := newStoreFixture(t, nil)

	if err := fx.store.Delete(context.Background()); err != nil {
		t.Fatalf("Delete without session: %v", err)
	}
}

func TestStoreRecreatesVanishedGist(t *testing.T) {
	fx := newStoreFixture(t, nil)
	ctx := context.Background()

	if _, err := fx.store.Store(ctx, []byte("first")); err != nil {
		t.Fatalf("Store: %v", err)
	}

	// Remove the gist behind the store's back.
	fx.server.mu.Lock()
	delete(fx.server.gists, "gist-1")
	fx.server.mu.Unlock()

	if _, err := fx.store.Store(ctx, []byte("second")); err != nil {
		t.Fatalf("Store after remote deletion: %v", err)
	}
	if got := fx.server.createCalls.Load(); got != 2 {
		t.Fatalf("expected recreate, got %d creates", got)
	}

	if payload, _, err := fx.store.Load(ctx); err != nil || string(payload) != "second" {
		t.Fatalf("Load after recreate: payload=%q err=%v", payload, err)
	}
}

func TestConcurrentStoresAllSucceed(t *testing.T) {
	fx := newStoreFixture(t, nil)

	const goroutines = 8
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			payload := []byte(fmt.Sprintf("payload-%d", i))
			if _, err := fx.store.Store(context.Background(), payload); err != nil {
				t.Errorf("Store %d: %v", i, err)
			}
		}()
	}
	wg.Wait()

	// The remote phase is serialized, so exactly one gist exists.
	if got := fx.server.createCalls.Load(); got != 1 {
		t.Fatalf("expected 1 create across concurrent stores, got %d", got)
	}
	if got := fx.store.MetricsSnapshot().Counters[MetricStoreSuccess]; got != goroutines {
		t.Fatalf("expected %d store successes, got %d", goroutines, got)
	}
}

func TestStoreRejectsEmptyPayload(t *testing.T) {
	fx := newStoreFixture(t, nil)

	if _, err := fx.store.Store(context.Background(), nil); err == nil {
		t.Fatal("expected error for empty payload")
	}
}

func TestOperationsAfterClose(t *testing.T) {
	fx := newStoreFixture(t, nil)
	fx.store.Close()

	if _, err := fx.store.Store(context.Background(), []byte("x")); !errors.Is(err, ErrEngineClosed) {
		t.Fatalf("expected ErrEngineClosed, got %v", err)
	}
	if _, _, err := fx.store.Load(context.Background()); !errors.Is(err, ErrEngineClosed) {
		t.Fatalf("expected ErrEngineClosed, got %v", err)
	}
	if err := fx.store.Delete(context.Background()); !errors.Is(err, ErrEngineClosed) {
		t.Fatalf("expected ErrEngineClosed, got %v", err)
	}
}

func TestAuditEventsEmitted(t *testing.T) {
	sinkEvents := make(chan AuditEvent, 16)

	api := newFakeGistServer()
	server := httptest.NewServer(api)
	t.Cleanup(server.Close)

	cfg := DefaultConfig()
	cfg.Remote.BaseURL = server.URL
	cfg.Audit.Enabled = true
	cfg.Audit.BufferSize = 16

	sink := NewChannelSink(16)
	store, err := New().
		WithConfig(cfg).
		WithToken("tok").
		WithSecretSource(newTestSecretSource()).
		WithHTTPClient(server.Client()).
		WithStateDir(t.TempDir()).
		WithAuditSink(sink).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if _, err := store.Store(context.Background(), []byte("payload")); err != nil {
		t.Fatalf("Store: %v", err)
	}
	store.Close()

	go func() {
		for ev := range sink.Events() {
			sinkEvents <- ev
		}
	}()

	select {
	case ev := <-sinkEvents:
		if ev.EventType != AuditEventStore || !ev.Success {
			t.Fatalf("unexpected audit event: %+v", ev)
		}
		if ev.SessionID == "" {
			t.Fatal("audit event missing session id")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no audit event received")
	}
}
