// Package gist talks to the remote paste-style storage backend (GitHub
// Gists): a thin authenticated REST client, the typed remote-failure
// taxonomy consumed by the retry executor, and the single-handle pool
// that amortizes credential reads and health checks across calls.
package gist
