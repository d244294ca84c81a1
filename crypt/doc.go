// Package crypt implements the application-layer encryption envelope for
// synced session data: AES-256-GCM keyed through HKDF-SHA256 from a
// master secret in the OS keychain.
//
// Transport security is out of scope here — the envelope exists so a
// compromised or malicious storage backend still learns nothing. Key
// material is loaded per operation, never cached, and wiped on all exit
// paths.
package crypt
