// Package cache is the Redis-backed side cache for migration progress.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Options configures the Redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int

	// Attempts is how many times Connect pings before giving up.
	Attempts int
	PoolSize int
}

// Redis stores JSON values under namespaced keys. A nil *Redis is a valid
// cache that stores nothing.
type Redis struct {
	client *redis.Client
}

// Connect dials Redis and pings it, backing off between attempts.
func Connect(ctx context.Context, opts Options) (*Redis, error) {
	if opts.Attempts <= 0 {
		opts.Attempts = 3
	}
	if opts.PoolSize <= 0 {
		opts.PoolSize = 20
	}

	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
		PoolSize: opts.PoolSize,
	})

	var err error
	for attempt := 1; attempt <= opts.Attempts; attempt++ {
		if err = client.Ping(ctx).Err(); err == nil {
			slog.Info("connected to redis", "addr", opts.Addr, "attempt", attempt)
			return &Redis{client: client}, nil
		}
		if attempt == opts.Attempts {
			break
		}

		sleep := time.Second * time.Duration(1<<min(attempt, 5))
		if sleep > 30*time.Second {
			sleep = 30 * time.Second
		}
		slog.Warn("redis ping failed, retrying", "addr", opts.Addr, "attempt", attempt, "retry_in", sleep, "error", err)

		select {
		case <-ctx.Done():
			client.Close()
			return nil, ctx.Err()
		case <-time.After(sleep):
		}
	}

	client.Close()
	return nil, fmt.Errorf("connect redis %s: %w", opts.Addr, err)
}

// Key joins namespace and key the way every entry is stored.
func Key(namespace, key string) string {
	if namespace == "" {
		return key
	}
	return namespace + ":" + key
}

// Set stores value as JSON with the given expiry.
func (r *Redis) Set(ctx context.Context, key string, value any, ttl time.Duration, namespace string) error {
	if r == nil || r.client == nil {
		return nil
	}
	b, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return r.client.Set(ctx, Key(namespace, key), b, ttl).Err()
}

// Get decodes the value under key into dest. A missing key is not an error.
func (r *Redis) Get(ctx context.Context, key, namespace string, dest any) (bool, error) {
	if r == nil || r.client == nil {
		return false, nil
	}
	val, err := r.client.Get(ctx, Key(namespace, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(val, dest); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// Ping checks the connection. It backs the health endpoint.
func (r *Redis) Ping(ctx context.Context) error {
	if r == nil || r.client == nil {
		return errors.New("redis cache not configured")
	}
	return r.client.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	if r == nil || r.client == nil {
		return nil
	}
	return r.client.Close()
}
