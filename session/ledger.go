package session

import (
	"context"
	"time"
)

// Ledger persists the set of session IDs this device has already
// consumed. Record is the single operation: it atomically checks and
// marks an ID, returning whether it had been seen before.
//
// Implementations must bound growth — entries whose expiry horizon has
// passed are pruned on access, so an idle ledger never needs a
// background sweeper.
type Ledger interface {
	Record(ctx context.Context, sessionID string, expiresAt time.Time) (seen bool, err error)
	Close() error
}
