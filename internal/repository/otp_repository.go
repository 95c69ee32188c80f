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

type otpRepository struct {
	db *database.Postgres
}

// NewOTPRepository creates a new OTP repository
func NewOTPRepository(db *database.Postgres) OTPRepository {
	return &otpRepository{db: db}
}

func (r *otpRepository) Create(ctx context.Context, otp *domain.OTP) error {
	query := `
		INSERT INTO otps (id, user_id, code, expires_at, is_used, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	if otp.ID == "" {
		otp.ID = uuid.New().String()
	}
	if otp.CreatedAt.IsZero() {
		otp.CreatedAt = time.Now()
	}

	_, err := r.db.Executor(ctx).ExecContext(ctx, query,
		otp.ID,
		otp.UserID,
		otp.Code,
		otp.ExpiresAt,
		otp.IsUsed,
		otp.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create otp: %w", err)
	}

	return nil
}

// LatestUnused returns the most recently issued code that has not been consumed
func (r *otpRepository) LatestUnused(ctx context.Context, userID string) (*domain.OTP, error) {
	query := `
		SELECT id, user_id, code, expires_at, is_used, created_at
		FROM otps
		WHERE user_id = $1 AND is_used = FALSE
		ORDER BY created_at DESC
		LIMIT 1
	`

	otp := &domain.OTP{}
	err := r.db.Executor(ctx).QueryRowContext(ctx, query, userID).Scan(
		&otp.ID,
		&otp.UserID,
		&otp.Code,
		&otp.ExpiresAt,
		&otp.IsUsed,
		&otp.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("no unused otp for user %s: %w", userID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get latest otp: %w", err)
	}

	return otp, nil
}

// MarkUsed consumes a code. Only the caller that flips is_used gets true.
func (r *otpRepository) MarkUsed(ctx context.Context, otpID string) (bool, error) {
	query := `UPDATE otps SET is_used = TRUE WHERE id = $1 AND is_used = FALSE`

	result, err := r.db.Executor(ctx).ExecContext(ctx, query, otpID)
	if err != nil {
		return false, fmt.Errorf("failed to mark otp used: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected == 1, nil
}

// InvalidateAll burns every outstanding code of a user
func (r *otpRepository) InvalidateAll(ctx context.Context, userID string) error {
	query := `UPDATE otps SET is_used = TRUE WHERE user_id = $1 AND is_used = FALSE`

	if _, err := r.db.Executor(ctx).ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("failed to invalidate otps: %w", err)
	}

	return nil
}
