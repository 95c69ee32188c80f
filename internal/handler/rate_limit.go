package handler

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/storefront-api/internal/service"
	"go.uber.org/zap"
)

// Limiter is satisfied by *service.RateLimiter
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (service.RateLimitResult, error)
}

// RateLimitMiddleware creates a rate limiting middleware. Limiter failures let the request through.
func RateLimitMiddleware(limiter Limiter, limit int, window time.Duration, keyFunc func(*gin.Context) string, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := keyFunc(c)

		result, err := limiter.Allow(c.Request.Context(), key, limit, window)
		if err != nil {
			logger.Warn("Rate limiter unavailable", zap.String("key", key), zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))

		if !result.Allowed {
			retryAfter := int(math.Ceil(result.RetryAfter.Seconds()))
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":      true,
				"message":    fmt.Sprintf("Too many requests, try again in %d seconds", retryAfter),
				"retryAfter": retryAfter,
			})
			return
		}

		c.Next()
	}
}

// RouteIPKey limits each client IP per route
func RouteIPKey(c *gin.Context) string {
	return fmt.Sprintf("%s:%s", c.FullPath(), c.ClientIP())
}
