package backoff

import (
	"context"
	"errors"
	"time"
)

// Config controls the exponential backoff schedule applied to retryable
// operations. Values are copied at call time; a Config is never mutated.
type Config struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Multiplier float64
}

// retryable is implemented by error types that may succeed on a later
// attempt (timeouts, 5xx responses, rate limits).
type retryable interface {
	Retryable() bool
}

// delayHinter is implemented by errors carrying a server-provided delay
// (Retry-After). The hint overrides the computed delay when larger.
type delayHinter interface {
	RetryDelay() time.Duration
}

// IsRetryable reports whether err may succeed on a later attempt.
// Errors that do not implement the classification are treated as fatal.
func IsRetryable(err error) bool {
	var r retryable
	return errors.As(err, &r) && r.Retryable()
}

// DelayFor computes the wait before retry number attempt (0-based):
// min(BaseDelay * Multiplier^attempt, MaxDelay).
func DelayFor(cfg Config, attempt int) time.Duration {
	d := float64(cfg.BaseDelay)
	for i := 0; i < attempt; i++ {
		d *= cfg.Multiplier
	}
	delay := time.Duration(d)
	if cfg.MaxDelay > 0 && delay > cfg.MaxDelay {
		delay = cfg.MaxDelay
	}
	return delay
}

// Do runs op once plus up to MaxRetries additional attempts while op keeps
// failing with a retryable error. The last error is returned after the
// budget is exhausted. Fatal errors surface immediately. Context
// cancellation during a backoff wait aborts with ctx.Err().
func Do(ctx context.Context, cfg Config, op func(ctx context.Context) error) error {
	var err error

	for attempt := 0; ; attempt++ {
		err = op(ctx)
		if err == nil {
			return nil
		}
		if !IsRetryable(err) || attempt >= cfg.MaxRetries {
			return err
		}

		delay := DelayFor(cfg, attempt)
		var h delayHinter
		if errors.As(err, &h) {
			if hint := h.RetryDelay(); hint > delay {
				delay = hint
			}
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
