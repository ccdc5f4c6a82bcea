package idempotency

import (
	"strings"

	appconfig "github.com/geraldco/bnpl-decision-gateway/internal/config"
	"go.uber.org/fx"
	redis "github.com/redis/go-redis/v9"
)

// NewRedisClient returns a redis client if REDIS_ADDR is configured, or nil
// otherwise — the Locker degrades to a no-op when Redis is absent.
func NewRedisClient(cfg appconfig.Config) *redis.Client {
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{Addr: addr})
}

// Module wires the idempotency lock into the fx graph.
var Module = fx.Module("idempotency",
	fx.Provide(NewRedisClient),
	fx.Provide(NewLocker),
)
