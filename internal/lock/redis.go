// Package lock provides an advisory per-table lock so two runs against the
// same table do not interleave their writes. It is a courtesy on top of the
// conditional writes, which remain the actual protection.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrHeld is returned when another run holds the lock
	ErrHeld = errors.New("another run holds the lock")

	// ErrNotHeld is returned when releasing a lock this run does not own
	ErrNotHeld = errors.New("lock is not held by this run")
)

// releaseScript deletes the key only if it still carries our token
var releaseScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`)

// RedisLocker acquires table locks in Redis
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// RedisConfig holds configuration for the Redis locker
type RedisConfig struct {
	// Client is the Redis client to use
	Client *redis.Client
	// TTL bounds how long a crashed run can keep the lock
	TTL time.Duration
	// Prefix is the key prefix for lock keys
	Prefix string
}

// DefaultRedisConfig returns a default configuration with a 15 minute TTL
func DefaultRedisConfig(client *redis.Client) RedisConfig {
	return RedisConfig{
		Client: client,
		TTL:    15 * time.Minute,
		Prefix: "dynarename:lock:",
	}
}

// NewRedisLocker creates a new Redis locker
func NewRedisLocker(config RedisConfig) (*RedisLocker, error) {
	if config.Client == nil {
		return nil, errors.New("redis client is required")
	}
	if config.TTL <= 0 {
		return nil, errors.New("ttl must be greater than 0")
	}

	return &RedisLocker{
		client: config.Client,
		ttl:    config.TTL,
		prefix: config.Prefix,
	}, nil
}

// Lock is a held table lock
type Lock struct {
	locker *RedisLocker
	key    string
	token  string
}

// Acquire takes the lock for table, identified by token. It fails with
// ErrHeld if any other token currently holds it.
func (l *RedisLocker) Acquire(ctx context.Context, table, token string) (*Lock, error) {
	key := l.prefix + table

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lock acquire failed: %w", err)
	}
	if !ok {
		holder, _ := l.client.Get(ctx, key).Result()
		return nil, fmt.Errorf("%w: %s (held by %s)", ErrHeld, table, holder)
	}

	return &Lock{locker: l, key: key, token: token}, nil
}

// Release gives the lock up if this run still owns it
func (lk *Lock) Release(ctx context.Context) error {
	n, err := releaseScript.Run(ctx, lk.locker.client, []string{lk.key}, lk.token).Int()
	if err != nil {
		return fmt.Errorf("redis lock release failed: %w", err)
	}
	if n == 0 {
		return ErrNotHeld
	}
	return nil
}

// Close closes the Redis client
func (l *RedisLocker) Close() error {
	return l.client.Close()
}

// IsHeld returns true if the error is ErrHeld
func IsHeld(err error) bool {
	return errors.Is(err, ErrHeld)
}
