package telephony

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/voxcalls/backend/internal/platform/cache"
)

// CachingClient wraps a Client with a Redis read-through cache for the
// read-only catalogue calls (Search, Pricing). Mutating calls pass through.
// Provider inventory changes slowly enough that a short TTL is safe; a stale
// candidate only surfaces as a purchase rejection.
type CachingClient struct {
	inner  Client
	redis  *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewCachingClient(inner Client, redisClient *redis.Client, ttl time.Duration, logger *slog.Logger) *CachingClient {
	return &CachingClient{
		inner:  inner,
		redis:  redisClient,
		ttl:    ttl,
		logger: logger.With("component", "telephony_cache"),
	}
}

func (c *CachingClient) Search(ctx context.Context, params SearchParams) ([]NumberCandidate, error) {
	key := cache.Key("telephony", "search",
		fmt.Sprintf("%s:%s:%s:%s:%d", params.CountryCode, params.AreaCode, params.Contains, params.NumberType, params.Limit))

	data, err := cache.GetOrFill(ctx, c.redis, key, c.ttl, func() ([]byte, error) {
		candidates, err := c.inner.Search(ctx, params)
		if err != nil {
			return nil, err
		}
		return json.Marshal(candidates)
	})
	if err != nil {
		return nil, err
	}

	var candidates []NumberCandidate
	if err := json.Unmarshal(data, &candidates); err != nil {
		return nil, fmt.Errorf("failed to decode cached search result: %w", err)
	}
	return candidates, nil
}

func (c *CachingClient) Pricing(ctx context.Context, countryCode string) (*CountryPricing, error) {
	key := cache.Key("telephony", "pricing", countryCode)

	data, err := cache.GetOrFill(ctx, c.redis, key, c.ttl, func() ([]byte, error) {
		pricing, err := c.inner.Pricing(ctx, countryCode)
		if err != nil {
			return nil, err
		}
		return json.Marshal(pricing)
	})
	if err != nil {
		return nil, err
	}

	var pricing CountryPricing
	if err := json.Unmarshal(data, &pricing); err != nil {
		return nil, fmt.Errorf("failed to decode cached pricing result: %w", err)
	}
	return &pricing, nil
}

func (c *CachingClient) Purchase(ctx context.Context, phoneNumber string) (*PurchaseResult, error) {
	return c.inner.Purchase(ctx, phoneNumber)
}

func (c *CachingClient) Release(ctx context.Context, providerNumberID string) error {
	return c.inner.Release(ctx, providerNumberID)
}

func (c *CachingClient) Addresses(ctx context.Context) ([]Address, error) {
	return c.inner.Addresses(ctx)
}
