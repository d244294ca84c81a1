// Package session defines the versioned, hashed, time-boxed envelope
// wrapped around synced credential payloads, plus the validator and the
// persisted replay ledger that together enforce expiry, integrity,
// version, and single-use session IDs.
package session
