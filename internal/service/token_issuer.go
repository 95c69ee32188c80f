package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prperemyshlev/storefront-api/internal/domain"
	"github.com/prperemyshlev/storefront-api/internal/repository"
	"github.com/prperemyshlev/storefront-api/internal/utils"
	"go.uber.org/zap"
)

// refreshTokenBytes is the entropy of an opaque refresh token
const refreshTokenBytes = 32

// ErrInvalidRefreshToken is returned for unknown, revoked and expired refresh tokens alike
var ErrInvalidRefreshToken = errors.New("invalid refresh token")

// TokenIssuer hands out access tokens and persisted refresh tokens
type TokenIssuer struct {
	jwt        *utils.JWTManager
	repo       repository.TokenRepository
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenIssuer creates a new token issuer
func NewTokenIssuer(jwt *utils.JWTManager, repo repository.TokenRepository, refreshTTL time.Duration) *TokenIssuer {
	return &TokenIssuer{
		jwt:        jwt,
		repo:       repo,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// IssuePair signs an access token and stores a new refresh token for account
func (t *TokenIssuer) IssuePair(ctx context.Context, account *domain.Account) (*domain.TokenPair, error) {
	accessToken, err := t.jwt.GenerateAccessToken(account.ID, account.Role, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := t.IssueRefreshToken(ctx, account.ID)
	if err != nil {
		return nil, err
	}

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    t.jwt.GetAccessTokenExpiry(),
	}, nil
}

// IssueRefreshToken stores the digest of a fresh random token and returns the raw value
func (t *TokenIssuer) IssueRefreshToken(ctx context.Context, accountID string) (string, error) {
	raw, err := utils.GenerateOpaqueToken(refreshTokenBytes)
	if err != nil {
		return "", err
	}

	token := &domain.RefreshToken{
		UserID:    accountID,
		TokenHash: utils.HashToken(raw),
		ExpiresAt: t.now().Add(t.refreshTTL),
	}

	if err := t.repo.Create(ctx, token); err != nil {
		return "", fmt.Errorf("failed to save refresh token: %w", err)
	}

	return raw, nil
}

// VerifyRefreshToken returns the stored row when raw is still usable
func (t *TokenIssuer) VerifyRefreshToken(ctx context.Context, raw string) (*domain.RefreshToken, error) {
	if raw == "" {
		return nil, ErrInvalidRefreshToken
	}

	token, err := t.repo.GetByTokenHash(ctx, utils.HashToken(raw))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("failed to get refresh token: %w", err)
	}

	if !token.Usable(t.now()) {
		return nil, ErrInvalidRefreshToken
	}

	return token, nil
}

// ConsumeRefreshToken revokes raw and reports whether this call was the one that revoked it
func (t *TokenIssuer) ConsumeRefreshToken(ctx context.Context, raw string) (bool, error) {
	consumed, err := t.repo.Revoke(ctx, utils.HashToken(raw))
	if err != nil {
		return false, fmt.Errorf("failed to consume refresh token: %w", err)
	}
	return consumed, nil
}

// RevokeRefreshToken is a no-op for unknown or already revoked tokens
func (t *TokenIssuer) RevokeRefreshToken(ctx context.Context, raw string) error {
	_, err := t.ConsumeRefreshToken(ctx, raw)
	return err
}

func (t *TokenIssuer) RevokeAllForAccount(ctx context.Context, accountID string) error {
	if _, err := t.repo.RevokeAllForUser(ctx, accountID); err != nil {
		return fmt.Errorf("failed to revoke refresh tokens: %w", err)
	}
	return nil
}

// SweepExpired deletes refresh tokens that can no longer be used
func (t *TokenIssuer) SweepExpired(ctx context.Context) (int64, error) {
	return t.repo.DeleteExpired(ctx, t.now())
}

// RunSweeper purges expired refresh tokens every interval until ctx is cancelled
func (t *TokenIssuer) RunSweeper(ctx context.Context, interval time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := t.SweepExpired(ctx)
			if err != nil {
				logger.Error("Failed to sweep expired refresh tokens", zap.Error(err))
				continue
			}
			if n > 0 {
				logger.Info("Swept expired refresh tokens", zap.Int64("count", n))
			}
		}
	}
}
