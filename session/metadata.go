package session

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"time"

	"github.com/google/uuid"
)

// CurrentVersion is the envelope format revision this build writes and
// the only revision it accepts. Unknown versions are rejected, never
// best-effort parsed.
const CurrentVersion = 1

// DefaultTTL is the policy lifetime of a stored session.
const DefaultTTL = 30 * 24 * time.Hour

// Metadata is the envelope header stamped onto every stored session.
// It is immutable once created: a new write gets a fresh Metadata with a
// fresh SessionID, never an updated copy of the old one.
type Metadata struct {
	Version     int       `json:"version"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
	SessionID   string    `json:"session_id"`
	ContentHash string    `json:"content_hash"`
	DeviceID    string    `json:"device_id"`
	Platforms   []string  `json:"platforms,omitempty"`
}

// Data pairs a Metadata envelope with the raw session payload. Plaintext
// Data lives only for the duration of a single store or load call.
type Data struct {
	Metadata Metadata `json:"metadata"`
	Payload  []byte   `json:"payload"`
}

// Stamp builds the envelope header for a fresh write: new random
// SessionID, SHA-256 content hash over payload, CreatedAt = now and
// ExpiresAt = now + DefaultTTL.
func Stamp(payload []byte, platforms []string, deviceID string) Metadata {
	now := time.Now().UTC()
	return Metadata{
		Version:     CurrentVersion,
		CreatedAt:   now,
		ExpiresAt:   now.Add(DefaultTTL),
		SessionID:   uuid.NewString(),
		ContentHash: ContentHash(payload),
		DeviceID:    deviceID,
		Platforms:   append([]string(nil), platforms...),
	}
}

// ContentHash returns the hex SHA-256 digest of payload. Computed over
// plaintext before encryption and re-checked after decryption.
func ContentHash(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// DeviceID derives a stable identifier for this machine from its
// hostname. Falls back to a random identifier when the hostname is
// unavailable; the value only scopes multi-device visibility, so
// stability is preferred but not required.
func DeviceID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return uuid.NewString()[:16]
	}
	sum := sha256.Sum256([]byte(host))
	return hex.EncodeToString(sum[:8])
}
