package service

import (
	"context"
	"strings"

	"github.com/prperemyshlev/storefront-api/internal/apperror"
	"github.com/prperemyshlev/storefront-api/internal/domain"
	"github.com/prperemyshlev/storefront-api/internal/repository"
	"github.com/prperemyshlev/storefront-api/internal/utils"
	"go.uber.org/zap"
)

type accountService struct {
	users      repository.UserRepository
	tx         TxManager
	tokens     *TokenIssuer
	logger     *zap.Logger
	bcryptCost int
}

// NewAccountService creates the admin account management service
func NewAccountService(users repository.UserRepository, tx TxManager, tokens *TokenIssuer, logger *zap.Logger, bcryptCost int) AccountService {
	return &accountService{
		users:      users,
		tx:         tx,
		tokens:     tokens,
		logger:     logger,
		bcryptCost: bcryptCost,
	}
}

func (s *accountService) List(ctx context.Context, page, limit int) ([]*domain.Account, int, error) {
	limit, offset := pageBounds(page, limit)
	return s.users.List(ctx, limit, offset)
}

// Create adds an account that is active immediately
func (s *accountService) Create(ctx context.Context, in CreateAccountInput) (*domain.Account, error) {
	username := strings.TrimSpace(in.Username)
	email := utils.SanitizeEmail(in.Email)

	if err := validateCredentials(username, email, in.Password); err != nil {
		return nil, err
	}

	role := in.Role
	if role == "" {
		role = domain.RoleUser
	}
	if !role.Valid() {
		return nil, apperror.Validation("Role must be admin or user")
	}

	passwordHash, err := utils.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	account := &domain.Account{
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		Phone:        normalizePhone(in.Phone),
		Role:         role,
		IsActive:     true,
	}

	if err := s.users.Create(ctx, account); err != nil {
		return nil, mapAccountError(err)
	}

	s.logger.Info("Account created by admin", zap.String("user_id", account.ID), zap.String("role", string(role)))
	return account, nil
}

// SetActive toggles activation; deactivation also ends every refresh session
func (s *accountService) SetActive(ctx context.Context, accountID string, active bool) (*domain.Account, error) {
	var account *domain.Account
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.users.SetActive(ctx, accountID, active); err != nil {
			return mapAccountError(err)
		}

		if !active {
			if err := s.tokens.RevokeAllForAccount(ctx, accountID); err != nil {
				return err
			}
		}

		var err error
		account, err = s.users.GetByID(ctx, accountID)
		return mapAccountError(err)
	})
	if err != nil {
		return nil, err
	}

	return account, nil
}
