package crypt

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/MrEthical07/goCredSync/internal/cpupool"
)

var (
	// ErrEncrypt is an exported constant or variable used by the sync engine.
	ErrEncrypt = errors.New("encryption failed")
	// ErrDecrypt is an exported constant or variable used by the sync engine.
	// Decrypt failures are deliberately coarse: authentication failure,
	// truncation, and deserialization problems all collapse into this one
	// error so callers cannot be used as a padding/format oracle.
	ErrDecrypt = errors.New("decryption failed")
)

var (
	hkdfSalt = []byte("gocredsync-session-encryption-v1")
	hkdfInfo = []byte("gist-session-storage")
)

const nonceSize = 12

// Sealer provides authenticated encryption (AES-256-GCM) for serialized
// session envelopes. The data key is derived per operation via HKDF-SHA256
// from a master secret held in the platform secret store; neither key is
// retained between operations, and both are wiped before returning.
//
// Seal and Open execute on a shared CPU worker pool so large payloads do
// not stall goroutines multiplexing network I/O. The calling goroutine
// still blocks until the result is ready.
type Sealer struct {
	source SecretSource
	pool   *cpupool.Pool
}

// NewSealer creates a Sealer reading key material from source and running
// crypto on pool. Both must be non-nil.
func NewSealer(source SecretSource, pool *cpupool.Pool) (*Sealer, error) {
	if source == nil {
		return nil, fmt.Errorf("%w: nil secret source", ErrEncrypt)
	}
	if pool == nil {
		return nil, fmt.Errorf("%w: nil cpu pool", ErrEncrypt)
	}
	return &Sealer{source: source, pool: pool}, nil
}

// Seal encrypts plaintext and returns nonce || ciphertext || tag. The
// plaintext buffer is wiped before Seal returns, on success and failure
// alike; callers must treat it as consumed.
func (s *Sealer) Seal(ctx context.Context, plaintext []byte) ([]byte, error) {
	defer Wipe(plaintext)

	var (
		out []byte
		err error
	)
	runErr := s.pool.Run(ctx, func() {
		out, err = s.seal(plaintext)
	})
	if runErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncrypt, runErr)
	}
	return out, err
}

// Open authenticates and decrypts data produced by Seal. Any failure —
// tampered ciphertext, wrong key, truncated input — returns ErrDecrypt.
func (s *Sealer) Open(ctx context.Context, sealed []byte) ([]byte, error) {
	var (
		out []byte
		err error
	)
	runErr := s.pool.Run(ctx, func() {
		out, err = s.open(sealed)
	})
	if runErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecrypt, runErr)
	}
	return out, err
}

func (s *Sealer) seal(plaintext []byte) ([]byte, error) {
	aead, err := s.newAEAD()
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncrypt, err)
	}

	// nonce prepended so Open can recover it without a framing header.
	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

func (s *Sealer) open(sealed []byte) ([]byte, error) {
	if len(sealed) < nonceSize {
		return nil, ErrDecrypt
	}

	aead, err := s.newAEAD()
	if err != nil {
		return nil, ErrDecrypt
	}

	plain, err := aead.Open(nil, sealed[:nonceSize], sealed[nonceSize:], nil)
	if err != nil {
		return nil, ErrDecrypt
	}
	return plain, nil
}

// newAEAD derives a fresh AES-256 key and builds the GCM cipher. The
// master and derived keys are wiped before returning on every path.
func (s *Sealer) newAEAD() (cipher.AEAD, error) {
	master, err := masterKey(s.source)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncrypt, err)
	}
	defer Wipe(master)

	derived := make([]byte, 32)
	defer Wipe(derived)
	if _, err := io.ReadFull(hkdf.New(sha256.New, master, hkdfSalt, hkdfInfo), derived); err != nil {
		return nil, fmt.Errorf("%w: key derivation: %v", ErrEncrypt, err)
	}

	block, err := aes.NewCipher(derived)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncrypt, err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncrypt, err)
	}
	return aead, nil
}

// Wipe overwrites b with zeros. Used on every buffer that held plaintext
// or key material.
func Wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
