package crypt

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/zalando/go-keyring"
)

// ErrSecretNotFound is returned by a SecretSource when no secret exists
// under the requested name.
var ErrSecretNotFound = errors.New("secret not found")

const (
	keyringService = "com.mrethical.gocredsync"
	keyringAccount = "session-encryption-master-key"

	// Escape hatch for deterministic tooling/CI, mirroring the browser
	// safe-storage override convention.
	masterKeyEnv = "GOCREDSYNC_MASTER_KEY"

	masterKeySize = 32
)

// SecretSource is the boundary to the platform secret store. Read returns
// ErrSecretNotFound when the named secret does not exist; any other error
// is treated as an encryption failure by the sealer.
type SecretSource interface {
	ReadSecret(name string) ([]byte, error)
	WriteSecret(name string, value []byte) error
}

// KeyringSource stores secrets in the OS keychain (macOS Keychain, Windows
// Credential Manager, Secret Service on Linux). Values are base64-encoded
// because keyring backends are string-oriented.
type KeyringSource struct {
	Service string
}

// NewKeyringSource returns a KeyringSource bound to the default service
// namespace.
func NewKeyringSource() *KeyringSource {
	return &KeyringSource{Service: keyringService}
}

func (k *KeyringSource) service() string {
	if k == nil || k.Service == "" {
		return keyringService
	}
	return k.Service
}

func (k *KeyringSource) ReadSecret(name string) ([]byte, error) {
	if override := strings.TrimSpace(os.Getenv(masterKeyEnv)); override != "" && name == keyringAccount {
		raw, err := base64.StdEncoding.DecodeString(override)
		if err != nil {
			return nil, fmt.Errorf("invalid %s value: %w", masterKeyEnv, err)
		}
		return raw, nil
	}

	encoded, err := keyring.Get(k.service(), name)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, ErrSecretNotFound
		}
		return nil, fmt.Errorf("keyring read: %w", err)
	}

	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return nil, fmt.Errorf("corrupt keyring entry: %w", err)
	}
	return raw, nil
}

func (k *KeyringSource) WriteSecret(name string, value []byte) error {
	if err := keyring.Set(k.service(), name, base64.StdEncoding.EncodeToString(value)); err != nil {
		return fmt.Errorf("keyring write: %w", err)
	}
	return nil
}

// masterKey loads the master encryption key from source, generating and
// persisting a fresh 256-bit key on first use.
func masterKey(source SecretSource) ([]byte, error) {
	key, err := source.ReadSecret(keyringAccount)
	if err == nil {
		if len(key) != masterKeySize {
			return nil, fmt.Errorf("master key has invalid length %d", len(key))
		}
		return key, nil
	}
	if !errors.Is(err, ErrSecretNotFound) {
		return nil, err
	}

	key = make([]byte, masterKeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	if err := source.WriteSecret(keyringAccount, key); err != nil {
		return nil, err
	}
	return key, nil
}
