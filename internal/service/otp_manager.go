package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/prperemyshlev/storefront-api/internal/apperror"
	"github.com/prperemyshlev/storefront-api/internal/domain"
	"github.com/prperemyshlev/storefront-api/internal/repository"
	"github.com/prperemyshlev/storefront-api/internal/utils"
)

// OTPManager issues and checks one-time passcodes.
//
// Only the most recent unused code of an account counts. An expired code is burned
// when presented; a wrong code leaves the current one valid until it expires.
type OTPManager struct {
	repo   repository.OTPRepository
	expiry time.Duration
	now    func() time.Time
}

// NewOTPManager creates a new OTP manager
func NewOTPManager(repo repository.OTPRepository, expiry time.Duration) *OTPManager {
	return &OTPManager{
		repo:   repo,
		expiry: expiry,
		now:    time.Now,
	}
}

// Expiry returns how long a new code stays valid
func (m *OTPManager) Expiry() time.Duration {
	return m.expiry
}

func (m *OTPManager) Create(ctx context.Context, accountID string) (*domain.OTP, error) {
	code, err := utils.GenerateOTP()
	if err != nil {
		return nil, err
	}

	now := m.now()
	otp := &domain.OTP{
		UserID:    accountID,
		Code:      code,
		ExpiresAt: now.Add(m.expiry),
		CreatedAt: now,
	}

	if err := m.repo.Create(ctx, otp); err != nil {
		return nil, fmt.Errorf("failed to save otp: %w", err)
	}

	return otp, nil
}

// Verify returns apperror.ErrInvalidOTP unless code matches the current unexpired code
func (m *OTPManager) Verify(ctx context.Context, accountID, code string) error {
	otp, err := m.repo.LatestUnused(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperror.ErrInvalidOTP
		}
		return fmt.Errorf("failed to load otp: %w", err)
	}

	if otp.Expired(m.now()) {
		if _, err := m.repo.MarkUsed(ctx, otp.ID); err != nil {
			return fmt.Errorf("failed to burn expired otp: %w", err)
		}
		return apperror.ErrInvalidOTP
	}

	if subtle.ConstantTimeCompare([]byte(otp.Code), []byte(code)) != 1 {
		return apperror.ErrInvalidOTP
	}

	consumed, err := m.repo.MarkUsed(ctx, otp.ID)
	if err != nil {
		return fmt.Errorf("failed to consume otp: %w", err)
	}
	if !consumed {
		return apperror.ErrInvalidOTP
	}

	return nil
}

// TimeRemaining is zero when no unused, unexpired code exists
func (m *OTPManager) TimeRemaining(ctx context.Context, accountID string) (time.Duration, error) {
	otp, err := m.repo.LatestUnused(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to load otp: %w", err)
	}

	remaining := otp.ExpiresAt.Sub(m.now())
	if remaining < 0 {
		return 0, nil
	}
	return remaining, nil
}

func (m *OTPManager) InvalidateAll(ctx context.Context, accountID string) error {
	return m.repo.InvalidateAll(ctx, accountID)
}
