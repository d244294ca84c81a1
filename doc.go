// Package goCredSync provides an encrypted session credential store that
// synchronizes browser session data through private GitHub Gists. Payloads
// are sealed with AES-256-GCM under a host-bound master key, stamped with
// single-use session metadata, and validated on load against expiry,
// tampering, and replay.
//
// The package is designed for local agent workloads: Store methods are safe
// to call from multiple goroutines after initialization through
// [Builder.Build], and the remote sync phase of each operation is serialized
// internally.
//
// # Architecture boundaries
//
// goCredSync is the public surface. It exposes [Store], [Builder], [Config],
// and value types (MetricsSnapshot, AuditEvent, etc.). Domain mechanics live
// in the subpackages: gist holds the remote client and its error taxonomy,
// crypt the sealing and key material handling, session the envelope format,
// validation, and replay ledgers. Retry policy, CPU offload, and audit
// dispatch live under internal/ and are never exported.
//
// # What this package must NOT do
//
//   - Write the GitHub token or the master key to disk. The locator file
//     stores a token fingerprint only, and key material moves through the
//     OS keyring.
//   - Return plaintext that failed validation. Expired, tampered, or
//     replayed envelopes surface an error, never the payload.
//   - Retry non-transient failures. Authentication, decryption, and
//     validation errors fail immediately; only 5xx, timeouts, and rate
//     limits consume the retry budget.
package goCredSync
