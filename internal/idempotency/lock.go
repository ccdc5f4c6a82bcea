// Package idempotency guards the decision hot path against concurrent
// duplicate request_ids with a best-effort distributed lock, following the
// teacher's internal/ratelimit/lock.go SET NX / Lua-release pattern. The
// database's unique index on request_id remains the authoritative guard
// (spec.md §5 option (a)); this lock only shrinks the race window before
// the first insert lands.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

const lockReleaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

const lockKeyFormat = "bnpl:decision:lock:%s:%s"

// Locker is a best-effort distributed mutex keyed by (user_id, request_id).
type Locker struct {
	client *redis.Client
	script *redis.Script
}

// NewLocker builds a Locker over client. A nil client yields a nil Locker
// whose methods are safe no-ops, so Redis is optional infrastructure.
func NewLocker(client *redis.Client) *Locker {
	if client == nil {
		return nil
	}
	return &Locker{
		client: client,
		script: redis.NewScript(lockReleaseScript),
	}
}

// TryLock attempts to acquire the lock for (userID, requestID), returning a
// release token on success. If the Locker is nil (Redis unconfigured) it
// always succeeds, relying on the DB unique index alone.
func (l *Locker) TryLock(ctx context.Context, userID, requestID string, ttl time.Duration) (string, bool, error) {
	if l == nil || l.client == nil {
		return "", true, nil
	}
	if requestID == "" {
		return "", true, nil
	}
	if ttl <= 0 {
		return "", false, errors.New("lock ttl must be positive")
	}

	key := fmt.Sprintf(lockKeyFormat, userID, requestID)
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return "", false, err
	}
	return token, ok, nil
}

// Release drops the lock for (userID, requestID) if token still owns it.
func (l *Locker) Release(ctx context.Context, userID, requestID, token string) error {
	if l == nil || l.client == nil || token == "" {
		return nil
	}
	key := fmt.Sprintf(lockKeyFormat, userID, requestID)
	return l.script.Run(ctx, l.client, []string{key}, token).Err()
}
