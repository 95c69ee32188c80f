package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/prperemyshlev/storefront-api/internal/apperror"
	"github.com/prperemyshlev/storefront-api/internal/domain"
	"github.com/prperemyshlev/storefront-api/internal/repository"
	"github.com/prperemyshlev/storefront-api/internal/utils"
	"go.uber.org/zap"
)

// Outcome labels for auth counters
const (
	ResultSuccess    = "success"
	ResultFailure    = "failure"
	ResultUnverified = "unverified"
)

// AuthConfig holds the tunables of the auth flows
type AuthConfig struct {
	BCryptCost     int
	OTPResendGrace time.Duration
}

// authService implements AuthService interface
type authService struct {
	users     repository.UserRepository
	tx        TxManager
	tokens    *TokenIssuer
	otps      *OTPManager
	jwt       *utils.JWTManager
	blacklist TokenBlacklist
	notifier  Notifier
	metrics   AuthMetrics
	logger    *zap.Logger
	cfg       AuthConfig
	decoy     *utils.DecoyHash
	now       func() time.Time
}

// NewAuthService creates a new auth service
func NewAuthService(
	users repository.UserRepository,
	tx TxManager,
	tokens *TokenIssuer,
	otps *OTPManager,
	jwt *utils.JWTManager,
	blacklist TokenBlacklist,
	notifier Notifier,
	metrics AuthMetrics,
	logger *zap.Logger,
	cfg AuthConfig,
) AuthService {
	return &authService{
		users:     users,
		tx:        tx,
		tokens:    tokens,
		otps:      otps,
		jwt:       jwt,
		blacklist: blacklist,
		notifier:  notifier,
		metrics:   metrics,
		logger:    logger,
		cfg:       cfg,
		decoy:     utils.NewDecoyHash(cfg.BCryptCost),
		now:       time.Now,
	}
}

// Signup registers an inactive customer, hands out a session and mails an OTP
func (s *authService) Signup(ctx context.Context, in SignupInput) (*AuthResult, error) {
	username := strings.TrimSpace(in.Username)
	email := utils.SanitizeEmail(in.Email)

	if err := validateCredentials(username, email, in.Password); err != nil {
		return nil, err
	}

	passwordHash, err := utils.HashPassword(in.Password, s.cfg.BCryptCost)
	if err != nil {
		return nil, err
	}

	account := &domain.Account{
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		Phone:        normalizePhone(in.Phone),
		Role:         domain.RoleUser,
		IsActive:     false,
	}

	var result *AuthResult
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.users.Create(ctx, account); err != nil {
			return mapAccountError(err)
		}

		var err error
		if result, err = s.newAuthResult(ctx, account); err != nil {
			return err
		}

		return s.issueOTP(ctx, account)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordSignup(ctx)
	s.logger.Info("Account registered", zap.String("user_id", account.ID))

	return result, nil
}

// VerifyOTP activates the account when code matches its current OTP
func (s *authService) VerifyOTP(ctx context.Context, account *domain.Account, code string) (*AuthResult, error) {
	code = strings.TrimSpace(code)

	var (
		result    *AuthResult
		verifyErr error
	)
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.otps.Verify(ctx, account.ID, code); err != nil {
			if errors.Is(err, apperror.ErrInvalidOTP) {
				// commit so that an expired code stays burned
				verifyErr = err
				return nil
			}
			return err
		}

		if err := s.users.SetActive(ctx, account.ID, true); err != nil {
			return mapAccountError(err)
		}

		activated := *account
		activated.IsActive = true

		var err error
		result, err = s.newAuthResult(ctx, &activated)
		return err
	})
	if err != nil {
		return nil, err
	}

	if verifyErr != nil {
		s.metrics.RecordOTPVerification(ctx, ResultFailure)
		return nil, verifyErr
	}

	s.metrics.RecordOTPVerification(ctx, ResultSuccess)
	s.logger.Info("Account verified", zap.String("user_id", account.ID))

	return result, nil
}

// ResendOTP replaces outstanding codes once the current one is within the grace window
func (s *authService) ResendOTP(ctx context.Context, account *domain.Account) error {
	if account.IsActive {
		return apperror.Validation("Account is already verified")
	}

	remaining, err := s.otps.TimeRemaining(ctx, account.ID)
	if err != nil {
		return err
	}

	if wait := remaining - s.cfg.OTPResendGrace; wait > 0 {
		return apperror.OTPCooldown(int(math.Ceil(wait.Seconds())))
	}

	return s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.otps.InvalidateAll(ctx, account.ID); err != nil {
			return err
		}
		return s.issueOTP(ctx, account)
	})
}

// Login authenticates against the realm's role. Inactive customers get a session
// flagged for verification and a fresh OTP instead of an error.
func (s *authService) Login(ctx context.Context, realm domain.Role, email, password string) (*AuthResult, error) {
	account, err := s.users.GetByEmail(ctx, utils.SanitizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.decoy.Compare(password)
			s.metrics.RecordLogin(ctx, ResultFailure)
			return nil, apperror.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !utils.CheckPasswordHash(password, account.PasswordHash) || account.Role != realm {
		s.metrics.RecordLogin(ctx, ResultFailure)
		return nil, apperror.ErrInvalidCredentials
	}

	if !account.IsActive && realm == domain.RoleAdmin {
		s.metrics.RecordLogin(ctx, ResultFailure)
		return nil, apperror.ErrAccountInactive
	}

	var result *AuthResult
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		now := s.now()
		if err := s.users.UpdateLastLogin(ctx, account.ID, now); err != nil {
			return err
		}
		account.LastLoginAt = &now

		var err error
		if result, err = s.newAuthResult(ctx, account); err != nil {
			return err
		}

		if !account.IsActive {
			result.RequireVerification = true
			return s.issueOTP(ctx, account)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.RequireVerification {
		s.metrics.RecordLogin(ctx, ResultUnverified)
	} else {
		s.metrics.RecordLogin(ctx, ResultSuccess)
	}

	return result, nil
}

// ForgotPassword mails a reset token when the email belongs to the realm.
// Unknown emails succeed silently.
func (s *authService) ForgotPassword(ctx context.Context, realm domain.Role, email string) error {
	account, err := s.users.GetByEmail(ctx, utils.SanitizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to get user: %w", err)
	}

	if account.Role != realm {
		return nil
	}

	token, err := s.jwt.GeneratePasswordResetToken(account.ID, account.Email)
	if err != nil {
		return err
	}

	if err := s.notifier.SendPasswordReset(ctx, account.Email, account.Username, token, s.jwt.GetResetTokenExpiry()); err != nil {
		s.logger.Warn("Failed to send password reset mail", zap.String("user_id", account.ID), zap.Error(err))
	}

	return nil
}

// ResetPassword sets a new password with a single-use reset token and ends every session.
// The token only works on the endpoint of its account's realm.
func (s *authService) ResetPassword(ctx context.Context, realm domain.Role, token, newPassword string) error {
	if !utils.ValidatePassword(newPassword) {
		return errPasswordLength
	}

	claims, err := s.jwt.ValidatePasswordResetToken(token)
	if err != nil {
		return apperror.ErrInvalidResetToken
	}

	key := resetTokenKey(claims.ID)
	used, err := s.blacklist.IsTokenBlacklisted(ctx, key)
	if err != nil {
		return err
	}
	if used {
		return apperror.ErrInvalidResetToken
	}

	account, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperror.ErrInvalidResetToken
		}
		return fmt.Errorf("failed to get user: %w", err)
	}

	if account.Email != claims.Email || account.Role != realm {
		return apperror.ErrInvalidResetToken
	}

	passwordHash, err := utils.HashPassword(newPassword, s.cfg.BCryptCost)
	if err != nil {
		return err
	}

	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.users.UpdatePassword(ctx, account.ID, passwordHash); err != nil {
			return err
		}
		if err := s.tokens.RevokeAllForAccount(ctx, account.ID); err != nil {
			return err
		}

		burnCtx := context.WithoutCancel(ctx)
		ttl := claims.ExpiresAt().Sub(s.now())
		s.tx.AfterCommit(ctx, func() {
			if err := s.blacklist.AddToken(burnCtx, key, ttl); err != nil {
				s.logger.Error("Failed to burn reset token", zap.String("user_id", account.ID), zap.Error(err))
			}
		})
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("Password reset", zap.String("user_id", account.ID))
	return nil
}

// RefreshToken rotates a refresh token; the presented token cannot be used again
func (s *authService) RefreshToken(ctx context.Context, realm domain.Role, refreshToken string) (*AuthResult, error) {
	var result *AuthResult
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		stored, err := s.tokens.VerifyRefreshToken(ctx, refreshToken)
		if err != nil {
			if errors.Is(err, ErrInvalidRefreshToken) {
				return apperror.ErrInvalidSession
			}
			return err
		}

		account, err := s.users.GetByID(ctx, stored.UserID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperror.ErrInvalidSession
			}
			return err
		}

		if !account.IsActive || account.Role != realm {
			return apperror.ErrInvalidSession
		}

		consumed, err := s.tokens.ConsumeRefreshToken(ctx, refreshToken)
		if err != nil {
			return err
		}
		if !consumed {
			return apperror.ErrInvalidSession
		}

		result, err = s.newAuthResult(ctx, account)
		return err
	})
	if err != nil {
		s.metrics.RecordTokenRefresh(ctx, ResultFailure)
		return nil, err
	}

	s.metrics.RecordTokenRefresh(ctx, ResultSuccess)
	return result, nil
}

// Logout revokes the given refresh token, or all of the caller's when none is given,
// and blacklists the presented access token until it expires.
func (s *authService) Logout(ctx context.Context, account *domain.Account, accessToken, refreshToken string) error {
	if refreshToken != "" {
		stored, err := s.tokens.VerifyRefreshToken(ctx, refreshToken)
		switch {
		case errors.Is(err, ErrInvalidRefreshToken):
			// already unusable
		case err != nil:
			return err
		case stored.UserID == account.ID:
			if err := s.tokens.RevokeRefreshToken(ctx, refreshToken); err != nil {
				return err
			}
		}
	} else if err := s.tokens.RevokeAllForAccount(ctx, account.ID); err != nil {
		return err
	}

	if accessToken != "" {
		claims, err := s.jwt.ValidateAccessToken(accessToken)
		if err == nil {
			if err := s.blacklist.AddToken(ctx, accessToken, claims.ExpiresAt().Sub(s.now())); err != nil {
				return err
			}
		}
	}

	s.logger.Info("Account logged out", zap.String("user_id", account.ID))
	return nil
}

func (s *authService) UpdatePassword(ctx context.Context, account *domain.Account, currentPassword, newPassword string) error {
	if !utils.CheckPasswordHash(currentPassword, account.PasswordHash) {
		return apperror.New(apperror.KindInvalidCredentials, "Current password is incorrect")
	}

	if !utils.ValidatePassword(newPassword) {
		return errPasswordLength
	}

	passwordHash, err := utils.HashPassword(newPassword, s.cfg.BCryptCost)
	if err != nil {
		return err
	}

	return mapAccountError(s.users.UpdatePassword(ctx, account.ID, passwordHash))
}

func (s *authService) UpdateDetails(ctx context.Context, account *domain.Account, in UpdateDetailsInput) (*domain.Account, error) {
	if in.Username == nil && in.Phone == nil {
		return nil, apperror.Validation("Nothing to update")
	}

	updated := *account

	if in.Username != nil {
		username := strings.TrimSpace(*in.Username)
		if err := validateUsername(username); err != nil {
			return nil, err
		}
		updated.Username = username
	}

	if in.Phone != nil {
		updated.Phone = normalizePhone(in.Phone)
	}

	if err := s.users.UpdateProfile(ctx, &updated); err != nil {
		return nil, mapAccountError(err)
	}

	updated.UpdatedAt = s.now()
	return &updated, nil
}

// Authenticate resolves a bearer token to the current state of its account
func (s *authService) Authenticate(ctx context.Context, accessToken string) (*domain.Account, error) {
	claims, err := s.jwt.ValidateAccessToken(accessToken)
	if err != nil {
		return nil, apperror.ErrInvalidSession
	}

	blacklisted, err := s.blacklist.IsTokenBlacklisted(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	if blacklisted {
		return nil, apperror.ErrInvalidSession
	}

	account, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.ErrInvalidSession
		}
		return nil, err
	}

	return account, nil
}

// SeedAdmin creates an active administrator unless the email is already registered
func (s *authService) SeedAdmin(ctx context.Context, username, email, password string) error {
	email = utils.SanitizeEmail(email)

	_, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		s.logger.Info("Admin seed skipped, account exists", zap.String("email", email))
		return nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("failed to look up seed admin: %w", err)
	}

	if err := validateCredentials(username, email, password); err != nil {
		return err
	}

	passwordHash, err := utils.HashPassword(password, s.cfg.BCryptCost)
	if err != nil {
		return err
	}

	admin := &domain.Account{
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         domain.RoleAdmin,
		IsActive:     true,
	}

	if err := s.users.Create(ctx, admin); err != nil {
		return mapAccountError(err)
	}

	s.logger.Info("Admin account seeded", zap.String("user_id", admin.ID))
	return nil
}

// issueOTP stores a new code and mails it once the surrounding transaction commits
func (s *authService) issueOTP(ctx context.Context, account *domain.Account) error {
	otp, err := s.otps.Create(ctx, account.ID)
	if err != nil {
		return err
	}

	mailCtx := context.WithoutCancel(ctx)
	to, username, code := account.Email, account.Username, otp.Code

	s.tx.AfterCommit(ctx, func() {
		if err := s.notifier.SendOTP(mailCtx, to, username, code, s.otps.Expiry()); err != nil {
			s.logger.Warn("Failed to send OTP mail", zap.String("user_id", account.ID), zap.Error(err))
		}
	})

	return nil
}

func resetTokenKey(jti string) string {
	return "reset:" + jti
}
