package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisConfig configures the Redis locker
type RedisConfig struct {
	// Prefix is prepended to every lock key
	Prefix string
	// TTL bounds how long a crashed holder keeps the lock
	TTL time.Duration
}

// DefaultRedisConfig returns the default Redis locker configuration
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Prefix: "scaffold:lock:",
		TTL:    5 * time.Minute,
	}
}

// releaseScript deletes the key only while it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker is a Locker backed by SET NX with an expiry
type RedisLocker struct {
	client *redis.Client
	config RedisConfig
}

// NewRedisLocker creates a locker from a redis:// URL and checks the connection
func NewRedisLocker(ctx context.Context, url string, config RedisConfig) (*RedisLocker, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return NewRedisLockerWithClient(client, config), nil
}

// NewRedisLockerWithClient creates a locker with an existing client
func NewRedisLockerWithClient(client *redis.Client, config RedisConfig) *RedisLocker {
	if config.TTL <= 0 {
		config.TTL = DefaultRedisConfig().TTL
	}
	return &RedisLocker{client: client, config: config}
}

func (r *RedisLocker) TryLock(ctx context.Context, key string) (Release, error) {
	fullKey := r.config.Prefix + key
	token := uuid.NewString()

	ok, err := r.client.SetNX(ctx, fullKey, token, r.config.TTL).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, ErrLocked
	}

	return func(ctx context.Context) error {
		n, err := releaseScript.Run(ctx, r.client, []string{fullKey}, token).Int()
		if err != nil {
			return fmt.Errorf("failed to release lock %s: %w", key, err)
		}
		if n == 0 {
			return ErrNotHeld
		}
		return nil
	}, nil
}

// Close closes the underlying client
func (r *RedisLocker) Close() error {
	return r.client.Close()
}
