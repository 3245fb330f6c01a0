package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const idempotencyTTL = 24 * time.Hour

// RedisIdempotencyGuard claims idempotency keys in Redis with a 24h TTL.
type RedisIdempotencyGuard struct {
	rdb *redis.Client
}

// NewRedisIdempotencyGuard creates the guard.
func NewRedisIdempotencyGuard(rdb *redis.Client) *RedisIdempotencyGuard {
	return &RedisIdempotencyGuard{rdb: rdb}
}

// Claim atomically claims the key via SETNX. Returns false when a previous
// request already claimed it.
func (g *RedisIdempotencyGuard) Claim(ctx context.Context, key string) (bool, error) {
	redisKey := fmt.Sprintf("idempotent-key:%s", key)
	ok, err := g.rdb.SetNX(ctx, redisKey, "claimed", idempotencyTTL).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return false, err
	}
	return ok, nil
}
