package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// unlockScript deletes the key only while it still holds our token, so an
// expired lock taken over by another instance is left alone.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker is a best-effort advisory lock shared between service instances.
// Lock returns a token naming this acquisition; Unlock releases the key only
// while it is still held under that token.
type Locker interface {
	Lock(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)
	Unlock(ctx context.Context, key, token string) error
}

const retryInterval = 50 * time.Millisecond

// Acquire retries Lock until it succeeds or wait elapses. ok is false
// without an error when the key stayed held for the whole wait.
func Acquire(ctx context.Context, l Locker, key string, ttl, wait time.Duration) (string, bool, error) {
	deadline := time.Now().Add(wait)
	for {
		token, ok, err := l.Lock(ctx, key, ttl)
		if err != nil || ok {
			return token, ok, err
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return "", false, nil
		}
		timer := time.NewTimer(min(retryInterval, remaining))
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", false, ctx.Err()
		case <-timer.C:
		}
	}
}

type RedisLock struct {
	client redis.UniversalClient
}

func NewRedisLock(redisAddr string) (*RedisLock, error) {
	const op = "lock.NewRedisLock"

	client := redis.NewClient(&redis.Options{
		Addr: redisAddr,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &RedisLock{client: client}, nil
}

// NewRedisLockWithClient wraps an existing client, such as a cluster client.
func NewRedisLockWithClient(client redis.UniversalClient) *RedisLock {
	return &RedisLock{client: client}
}

func (r *RedisLock) Lock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	const op = "lock.RedisLock.Lock"

	token := uuid.NewString()
	ok, err := r.client.SetNX(ctx, lockKey(key), token, ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

func (r *RedisLock) Unlock(ctx context.Context, key, token string) error {
	const op = "lock.RedisLock.Unlock"

	if token == "" {
		return nil
	}
	if err := unlockScript.Run(ctx, r.client, []string{lockKey(key)}, token).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (r *RedisLock) Close() error {
	return r.client.Close()
}

func lockKey(key string) string {
	return "washapp:lock:" + key
}

// Noop always grants the lock. Used when no Redis address is configured.
type Noop struct{}

func (Noop) Lock(context.Context, string, time.Duration) (string, bool, error) { return "", true, nil }
func (Noop) Unlock(context.Context, string, string) error                      { return nil }
