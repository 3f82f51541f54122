package redisclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrLockNotAcquired = errors.New("booking lock not acquired")
)

// Locker guards a critical section across api-server replicas.
type Locker interface {
	WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

// DoctorDayKey scopes a lock to one doctor's calendar day. Both booking
// invariants (slot collision and one booking per patient per day) live inside
// that scope, so one lock covers them.
func DoctorDayKey(doctorID uuid.UUID, date string) string {
	return fmt.Sprintf("lock:doctor:%s:%s", doctorID.String(), date)
}

type redisLocker struct {
	client   *redis.Client
	ttl      time.Duration
	attempts int
	wait     time.Duration
}

type LockOption func(*redisLocker)

// WithAcquireRetry makes WithLock try up to attempts times, sleeping wait
// between tries, before giving up with ErrLockNotAcquired.
func WithAcquireRetry(attempts int, wait time.Duration) LockOption {
	return func(l *redisLocker) {
		if attempts > 0 {
			l.attempts = attempts
		}
		l.wait = wait
	}
}

// NewRedisLocker creates a locker backed by SET NX keys with a TTL.
func NewRedisLocker(client *redis.Client, ttl time.Duration, opts ...LockOption) Locker {
	l := &redisLocker{
		client:   client,
		ttl:      ttl,
		attempts: 1,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *redisLocker) acquire(ctx context.Context, key, token string) error {
	for i := 0; i < l.attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(l.wait):
			}
		}

		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return fmt.Errorf("acquire lock: %w", err)
		}
		if ok {
			return nil
		}
	}
	return ErrLockNotAcquired
}

func (l *redisLocker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	token := uuid.NewString()

	if err := l.acquire(ctx, key, token); err != nil {
		return err
	}

	defer func() {
		_ = l.release(context.WithoutCancel(ctx), key, token)
	}()

	ctxWithTimeout, cancel := context.WithTimeout(ctx, l.ttl)
	defer cancel()

	return fn(ctxWithTimeout)
}

var unlockScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

func (l *redisLocker) release(ctx context.Context, key, token string) error {
	_, err := unlockScript.Run(ctx, l.client, []string{key}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release lock: %w", err)
	}
	return nil
}
