package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewClient creates a Redis client from a URL
// (e.g. "redis://localhost:6379/0") and verifies the connection.
func NewClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// Key constructs a namespaced key with the pattern {service}:{resource}:{identifier}.
func Key(service, resource, identifier string) string {
	return fmt.Sprintf("%s:%s:%s", service, resource, identifier)
}

// GetOrFill reads key from cache; on a miss it calls fill, stores the result
// with the given TTL and returns it. Cache errors are returned alongside the
// filled value decision: a read error is treated as a miss, a write error is
// ignored so the caller still gets fresh data.
func GetOrFill(ctx context.Context, client *redis.Client, key string, ttl time.Duration, fill func() ([]byte, error)) ([]byte, error) {
	if client != nil {
		if data, err := client.Get(ctx, key).Bytes(); err == nil {
			return data, nil
		}
	}

	data, err := fill()
	if err != nil {
		return nil, err
	}

	if client != nil && ttl > 0 {
		client.Set(ctx, key, data, ttl)
	}
	return data, nil
}
