package service

import (
	"context"
	"fmt"
	"time"

	"github.com/prperemyshlev/storefront-api/internal/utils"
	"github.com/prperemyshlev/storefront-api/pkg/database"
)

// TokenBlacklistService handles token blacklist operations in Redis.
// Keys hold a digest of the token, never the token itself.
type TokenBlacklistService struct {
	redis *database.Redis
}

// NewTokenBlacklistService creates a new token blacklist service
func NewTokenBlacklistService(redis *database.Redis) *TokenBlacklistService {
	return &TokenBlacklistService{redis: redis}
}

func blacklistKey(token string) string {
	return fmt.Sprintf("blacklist:token:%s", utils.HashToken(token))
}

// AddToken blacklists token until expiry; non-positive expiries are ignored
// because the token is already unusable.
func (s *TokenBlacklistService) AddToken(ctx context.Context, token string, expiry time.Duration) error {
	if expiry <= 0 {
		return nil
	}

	if err := s.redis.Client.Set(ctx, blacklistKey(token), "1", expiry).Err(); err != nil {
		return fmt.Errorf("failed to add token to blacklist: %w", err)
	}
	return nil
}

// IsTokenBlacklisted checks if a token is in the blacklist
func (s *TokenBlacklistService) IsTokenBlacklisted(ctx context.Context, token string) (bool, error) {
	exists, err := s.redis.Client.Exists(ctx, blacklistKey(token)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token blacklist: %w", err)
	}
	return exists > 0, nil
}
