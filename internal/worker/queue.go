package worker

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrQueueEmpty is returned by Pop and PopNow when no item is available.
var ErrQueueEmpty = errors.New("queue empty")

// Queue is a FIFO of opaque payloads with a claim primitive for
// de-duplicating work across replicas.
type Queue interface {
	Push(ctx context.Context, payload []byte) error
	// Pop blocks for up to timeout.
	Pop(ctx context.Context, timeout time.Duration) ([]byte, error)
	// PopNow returns immediately.
	PopNow(ctx context.Context) ([]byte, error)
	// Claim sets key if absent and reports whether this caller set it.
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
	Len(ctx context.Context) (int64, error)
}

// RedisQueue is a Redis list used with RPUSH / BLPOP.
type RedisQueue struct {
	rdb *redis.Client
	key string
}

// NewRedisQueue creates a queue on the list at key.
func NewRedisQueue(rdb *redis.Client, key string) *RedisQueue {
	return &RedisQueue{rdb: rdb, key: key}
}

func (q *RedisQueue) Push(ctx context.Context, payload []byte) error {
	return q.rdb.RPush(ctx, q.key, payload).Err()
}

func (q *RedisQueue) Pop(ctx context.Context, timeout time.Duration) ([]byte, error) {
	result, err := q.rdb.BLPop(ctx, timeout, q.key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrQueueEmpty
	}
	if err != nil {
		return nil, err
	}
	if len(result) < 2 {
		return nil, ErrQueueEmpty
	}
	return []byte(result[1]), nil
}

func (q *RedisQueue) PopNow(ctx context.Context) ([]byte, error) {
	result, err := q.rdb.LPop(ctx, q.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrQueueEmpty
	}
	return result, err
}

func (q *RedisQueue) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return q.rdb.SetNX(ctx, key, 1, ttl).Result()
}

func (q *RedisQueue) Release(ctx context.Context, key string) error {
	return q.rdb.Del(ctx, key).Err()
}

func (q *RedisQueue) Len(ctx context.Context) (int64, error) {
	return q.rdb.LLen(ctx, q.key).Result()
}
