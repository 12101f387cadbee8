package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrBusy is returned when another holder owns the lock.
var ErrBusy = errors.New("lock is held by another request")

// Locker serializes work per key. Release must be called with the token
// Acquire returned.
type Locker interface {
	Acquire(ctx context.Context, key string) (token string, err error)
	Release(ctx context.Context, key, token string) error
}

// releaseScript deletes the key only if it still carries our token, so a lock
// that expired and was taken over is never removed by the old holder.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisLocker struct {
	rdb redis.UniversalClient
	ttl time.Duration
}

func NewRedisLocker(rdb redis.UniversalClient, ttl time.Duration) *RedisLocker {
	return &RedisLocker{rdb: rdb, ttl: ttl}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string) (string, error) {
	token := uuid.New().String()
	ok, err := l.rdb.SetNX(ctx, lockKey(key), token, l.ttl).Result()
	if err != nil {
		return "", fmt.Errorf("lock error: %w", err)
	}
	if !ok {
		return "", ErrBusy
	}
	return token, nil
}

func (l *RedisLocker) Release(ctx context.Context, key, token string) error {
	return releaseScript.Run(ctx, l.rdb, []string{lockKey(key)}, token).Err()
}

func lockKey(key string) string {
	return "lock:project:" + key
}

// NoopLocker never blocks. Used when no Redis is configured, in which case
// concurrent replaces of one project are last-commit-wins.
type NoopLocker struct{}

func (NoopLocker) Acquire(ctx context.Context, key string) (string, error) { return "", nil }

func (NoopLocker) Release(ctx context.Context, key, token string) error { return nil }

var (
	_ Locker = (*RedisLocker)(nil)
	_ Locker = NoopLocker{}
)
