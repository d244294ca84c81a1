// Package backoff implements the exponential backoff retry executor used
// around every remote call. Classification of errors as retryable or fatal
// stays with the error types themselves; this package only consumes the
// Retryable and RetryDelay contracts.
package backoff
