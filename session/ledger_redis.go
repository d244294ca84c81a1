package session

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisLedgerPrefix = "csr:"

// RedisLedger is an optional replay ledger backed by Redis, for
// deployments where several agent processes share one host or where the
// replay window should span machines. SET NX with a TTL gives the
// atomic check-and-mark in one round trip, and key expiry replaces
// explicit pruning.
type RedisLedger struct {
	redis  redis.UniversalClient
	prefix string
}

// NewRedisLedger creates a ledger on the given client. An empty prefix
// selects the default key namespace.
func NewRedisLedger(client redis.UniversalClient, prefix string) *RedisLedger {
	if prefix == "" {
		prefix = redisLedgerPrefix
	}
	return &RedisLedger{redis: client, prefix: prefix}
}

func (l *RedisLedger) key(sessionID string) string {
	return l.prefix + sessionID
}

// Record marks sessionID as consumed until expiresAt. Returns true when
// the ID had already been recorded.
func (l *RedisLedger) Record(ctx context.Context, sessionID string, expiresAt time.Time) (bool, error) {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		ttl = time.Second
	}

	set, err := l.redis.SetNX(ctx, l.key(sessionID), 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis ledger unavailable: %w", err)
	}
	return !set, nil
}

// Close is a no-op; the Redis client is owned by the caller.
func (l *RedisLedger) Close() error {
	return nil
}
