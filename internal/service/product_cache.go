package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prperemyshlev/storefront-api/internal/domain"
	"github.com/prperemyshlev/storefront-api/pkg/database"
	"github.com/redis/go-redis/v9"
)

// RedisProductCache stores product detail as JSON under product:slug:<slug>
type RedisProductCache struct {
	redis *database.Redis
	ttl   time.Duration
}

// NewRedisProductCache creates a product cache; a non-positive ttl disables caching
func NewRedisProductCache(redis *database.Redis, ttl time.Duration) *RedisProductCache {
	return &RedisProductCache{redis: redis, ttl: ttl}
}

func productCacheKey(slug string) string {
	return fmt.Sprintf("product:slug:%s", slug)
}

// Get returns nil without error on a miss
func (c *RedisProductCache) Get(ctx context.Context, slug string) (*domain.Product, error) {
	if c.ttl <= 0 {
		return nil, nil
	}

	data, err := c.redis.Client.Get(ctx, productCacheKey(slug)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read product cache: %w", err)
	}

	var product domain.Product
	if err := json.Unmarshal(data, &product); err != nil {
		return nil, fmt.Errorf("failed to decode cached product: %w", err)
	}

	return &product, nil
}

func (c *RedisProductCache) Set(ctx context.Context, product *domain.Product) error {
	if c.ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(product)
	if err != nil {
		return fmt.Errorf("failed to encode product: %w", err)
	}

	if err := c.redis.Client.Set(ctx, productCacheKey(product.Slug), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write product cache: %w", err)
	}
	return nil
}

func (c *RedisProductCache) Invalidate(ctx context.Context, slugs ...string) error {
	keys := make([]string, 0, len(slugs))
	for _, slug := range slugs {
		if slug != "" {
			keys = append(keys, productCacheKey(slug))
		}
	}
	if len(keys) == 0 {
		return nil
	}

	if err := c.redis.Client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to invalidate product cache: %w", err)
	}
	return nil
}
