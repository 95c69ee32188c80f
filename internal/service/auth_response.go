package service

import (
	"context"
	"fmt"

	"github.com/prperemyshlev/storefront-api/internal/domain"
)

// AuthResult is returned by every flow that hands out a session
type AuthResult struct {
	Account             *domain.Account
	Tokens              *domain.TokenPair
	RequireVerification bool
}

// SignupInput carries the fields accepted at signup
type SignupInput struct {
	Username string
	Email    string
	Password string
	Phone    *string
}

// UpdateDetailsInput carries optional profile changes; nil leaves a field untouched
type UpdateDetailsInput struct {
	Username *string
	Phone    *string
}

// CreateAccountInput is used by administrators to create accounts directly
type CreateAccountInput struct {
	Username string
	Email    string
	Password string
	Phone    *string
	Role     domain.Role
}

// newAuthResult issues an access and refresh token pair for account
func (s *authService) newAuthResult(ctx context.Context, account *domain.Account) (*AuthResult, error) {
	tokens, err := s.tokens.IssuePair(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("failed to issue tokens: %w", err)
	}

	return &AuthResult{
		Account: account,
		Tokens:  tokens,
	}, nil
}
