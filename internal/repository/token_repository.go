package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prperemyshlev/storefront-api/internal/domain"
	"github.com/prperemyshlev/storefront-api/pkg/database"
)

// tokenRepository implements TokenRepository interface
type tokenRepository struct {
	db *database.Postgres
}

// NewTokenRepository creates a new token repository
func NewTokenRepository(db *database.Postgres) TokenRepository {
	return &tokenRepository{db: db}
}

// Create creates a new refresh token in the database
func (r *tokenRepository) Create(ctx context.Context, token *domain.RefreshToken) error {
	query := `
		INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at, is_revoked, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	// Generate UUID if not provided
	if token.ID == "" {
		token.ID = uuid.New().String()
	}

	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now()
	}

	_, err := r.db.Executor(ctx).ExecContext(ctx, query,
		token.ID,
		token.UserID,
		token.TokenHash,
		token.ExpiresAt,
		token.IsRevoked,
		token.CreatedAt,
	)

	if err != nil {
		if sentinel := uniqueViolation(err); sentinel != nil {
			return fmt.Errorf("failed to create token: %w", sentinel)
		}
		return fmt.Errorf("failed to create token: %w", err)
	}

	return nil
}

// GetByTokenHash retrieves a refresh token by its hash
func (r *tokenRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error) {
	query := `
		SELECT id, user_id, token_hash, expires_at, is_revoked, created_at
		FROM refresh_tokens
		WHERE token_hash = $1
	`

	token := &domain.RefreshToken{}

	err := r.db.Executor(ctx).QueryRowContext(ctx, query, tokenHash).Scan(
		&token.ID,
		&token.UserID,
		&token.TokenHash,
		&token.ExpiresAt,
		&token.IsRevoked,
		&token.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("token with hash not found: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get token by hash: %w", err)
	}

	return token, nil
}

// Revoke marks a token revoked. Only the caller that flips the flag gets true,
// so two concurrent rotations of the same token cannot both win.
func (r *tokenRepository) Revoke(ctx context.Context, tokenHash string) (bool, error) {
	query := `
		UPDATE refresh_tokens
		SET is_revoked = TRUE
		WHERE token_hash = $1 AND is_revoked = FALSE
	`

	result, err := r.db.Executor(ctx).ExecContext(ctx, query, tokenHash)
	if err != nil {
		return false, fmt.Errorf("failed to revoke token: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected == 1, nil
}

// RevokeAllForUser revokes every live refresh token of a user
func (r *tokenRepository) RevokeAllForUser(ctx context.Context, userID string) (int64, error) {
	query := `
		UPDATE refresh_tokens
		SET is_revoked = TRUE
		WHERE user_id = $1 AND is_revoked = FALSE
	`

	result, err := r.db.Executor(ctx).ExecContext(ctx, query, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to revoke user tokens: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected, nil
}

// DeleteExpired deletes all tokens that expired before the given time
func (r *tokenRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	query := `
		DELETE FROM refresh_tokens
		WHERE expires_at < $1
	`

	result, err := r.db.Executor(ctx).ExecContext(ctx, query, before)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired tokens: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected, nil
}
