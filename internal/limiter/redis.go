package limiter

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stemsi/toefl-quiz-backend/internal/config"
)

// hitScript increments the window counter and starts its expiry on first hit.
// Returns {count, pttl}.
var hitScript = redis.NewScript(`
local current = redis.call('INCR', KEYS[1])
if current == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
  ttl = tonumber(ARGV[1])
end
return {current, ttl}
`)

// RedisStore keeps windows in Redis so every replica shares the same counts.
// Keys expire with their window, so no sweeping is needed.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore creates a RedisStore.
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

// Hit implements Store.
func (s *RedisStore) Hit(ctx context.Context, identifier string, rule Rule, now time.Time) (Result, error) {
	key := config.CacheKey.RateLimitKey(identifier)

	vals, err := hitScript.Run(ctx, s.rdb, []string{key}, rule.Window.Milliseconds()).Int64Slice()
	if err != nil {
		return Result{}, err
	}
	if len(vals) != 2 {
		return Result{}, fmt.Errorf("unexpected script reply %v", vals)
	}

	count, ttl := int(vals[0]), time.Duration(vals[1])*time.Millisecond
	res := Result{
		Limit:   rule.Limit,
		ResetAt: now.Add(ttl),
	}
	if count <= rule.Limit {
		res.Allowed = true
		res.Remaining = rule.Limit - count
	}
	return res, nil
}
