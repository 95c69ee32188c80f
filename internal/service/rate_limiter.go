package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prperemyshlev/storefront-api/pkg/database"
	"github.com/redis/go-redis/v9"
)

// RateLimitResult describes the outcome of one Allow call
type RateLimitResult struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// RateLimiter handles rate limiting using Redis
type RateLimiter struct {
	redis *database.Redis
	now   func() time.Time
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(redis *database.Redis) *RateLimiter {
	return &RateLimiter{redis: redis, now: time.Now}
}

// Allow records a hit for key using a sliding window log and reports whether it fits in limit
func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (RateLimitResult, error) {
	now := r.now()
	windowStart := now.Add(-window)
	redisKey := fmt.Sprintf("ratelimit:%s", key)

	pipe := r.redis.Client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "-inf", fmt.Sprintf("(%d", windowStart.UnixNano()))
	card := pipe.ZCard(ctx, redisKey)
	oldest := pipe.ZRangeWithScores(ctx, redisKey, 0, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return RateLimitResult{}, fmt.Errorf("failed to read rate limit window: %w", err)
	}

	count := int(card.Val())
	if count >= limit {
		result := RateLimitResult{Allowed: false, RetryAfter: window}
		if entries := oldest.Val(); len(entries) > 0 {
			oldestAt := time.Unix(0, int64(entries[0].Score))
			result.RetryAfter = oldestAt.Add(window).Sub(now)
		}
		return result, nil
	}

	pipe = r.redis.Client.TxPipeline()
	pipe.ZAdd(ctx, redisKey, redis.Z{
		Score:  float64(now.UnixNano()),
		Member: uuid.NewString(),
	})
	pipe.Expire(ctx, redisKey, window+time.Minute)
	if _, err := pipe.Exec(ctx); err != nil {
		return RateLimitResult{}, fmt.Errorf("failed to record request: %w", err)
	}

	return RateLimitResult{Allowed: true, Remaining: limit - count - 1}, nil
}
