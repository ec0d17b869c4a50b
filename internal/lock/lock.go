// Package lock serializes reconciliation runs. At most one run may touch the
// job table at a time; two concurrent runs would race on last_seen_run_id.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrHeld is returned when another process holds the run lock.
var ErrHeld = errors.New("run lock held by another process")

// ReleaseFunc gives the lock back.
type ReleaseFunc func(ctx context.Context) error

// Locker hands out the run lock.
type Locker interface {
	Acquire(ctx context.Context) (ReleaseFunc, error)
}

// NopLocker is for single-process deployments.
type NopLocker struct{}

func NewNopLocker() *NopLocker { return &NopLocker{} }

func (NopLocker) Acquire(context.Context) (ReleaseFunc, error) {
	return func(context.Context) error { return nil }, nil
}

// DefaultKey is the Redis key holding the run lock.
const DefaultKey = "mcfradar:crawl:lock"

// Deletes the key only if it still holds our token, so an expired lock
// re-acquired by someone else is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker is a single-instance Redis lock with a TTL. The TTL must
// outlast the longest expected run.
type RedisLocker struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedisLocker wraps an existing client.
func NewRedisLocker(client *redis.Client, key string, ttl time.Duration) *RedisLocker {
	if key == "" {
		key = DefaultKey
	}
	return &RedisLocker{client: client, key: key, ttl: ttl}
}

// NewRedisClient parses redisURL and verifies connectivity.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

// Acquire takes the lock or returns ErrHeld without waiting.
func (l *RedisLocker) Acquire(ctx context.Context) (ReleaseFunc, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquiring run lock: %w", err)
	}
	if !ok {
		return nil, ErrHeld
	}

	return func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, l.client, []string{l.key}, token).Err(); err != nil {
			return fmt.Errorf("releasing run lock: %w", err)
		}
		return nil
	}, nil
}
