package goCredSync

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const locatorFilename = "gist-locator.json"

// locator records where the encrypted session currently lives. It holds
// no secrets: the token is stored only as a hash so a rotated token can
// be detected without ever writing the credential to disk.
type locator struct {
	GistID    string    `json:"gist_id"`
	Owner     string    `json:"owner,omitempty"`
	TokenHash string    `json:"token_hash,omitempty"`
	DeviceID  string    `json:"device_id,omitempty"`
	LastSync  time.Time `json:"last_sync"`
}

type locatorStore struct {
	path string
	mu   sync.Mutex
}

func newLocatorStore(stateDir string) (*locatorStore, error) {
	if err := os.MkdirAll(stateDir, 0o700); err != nil {
		return nil, fmt.Errorf("state dir: %w", err)
	}
	return &locatorStore{path: filepath.Join(stateDir, locatorFilename)}, nil
}

// load returns the stored locator, or ok=false when none exists yet.
func (s *locatorStore) load() (locator, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return locator{}, false, nil
	}
	if err != nil {
		return locator{}, false, fmt.Errorf("read locator: %w", err)
	}

	var loc locator
	if err := json.Unmarshal(raw, &loc); err != nil {
		return locator{}, false, fmt.Errorf("parse locator: %w", err)
	}
	if loc.GistID == "" {
		return locator{}, false, nil
	}
	return loc, true, nil
}

// save writes the locator atomically via rename so a crash mid-write
// never leaves a truncated file behind.
func (s *locatorStore) save(loc locator) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := json.MarshalIndent(loc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode locator: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("write locator: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("persist locator: %w", err)
	}
	return nil
}

func (s *locatorStore) clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove locator: %w", err)
	}
	return nil
}

func tokenFingerprint(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:8])
}
