package service

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/prperemyshlev/storefront-api/internal/apperror"
	"github.com/prperemyshlev/storefront-api/internal/repository"
	"github.com/prperemyshlev/storefront-api/internal/utils"
)

const (
	minUsernameLength = 3
	maxUsernameLength = 50

	defaultPageSize = 20
	maxPageSize     = 100
)

var errPasswordLength = apperror.Validation(fmt.Sprintf(
	"Password must be between %d and %d characters", utils.MinPasswordLength, utils.MaxPasswordLength))

func validateUsername(username string) error {
	n := utf8.RuneCountInString(username)
	if n < minUsernameLength || n > maxUsernameLength {
		return apperror.Validation(fmt.Sprintf(
			"Username must be between %d and %d characters", minUsernameLength, maxUsernameLength))
	}
	return nil
}

func validateCredentials(username, email, password string) error {
	if err := validateUsername(username); err != nil {
		return err
	}
	if !utils.ValidateEmail(email) {
		return apperror.Validation("Invalid email format")
	}
	if !utils.ValidatePassword(password) {
		return errPasswordLength
	}
	return nil
}

// normalizePhone trims the value and treats blank as absent
func normalizePhone(phone *string) *string {
	if phone == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*phone)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// pageBounds converts a 1-based page and a size into limit and offset
func pageBounds(page, limit int) (int, int) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if page < 1 {
		page = 1
	}
	return limit, (page - 1) * limit
}

// mapAccountError translates repository sentinels into client errors
func mapAccountError(err error) error {
	switch {
	case errors.Is(err, repository.ErrDuplicateEmail):
		return apperror.ErrDuplicateEmail
	case errors.Is(err, repository.ErrDuplicateUsername):
		return apperror.ErrDuplicateUsername
	case errors.Is(err, repository.ErrNotFound):
		return apperror.NotFound("Account")
	default:
		return err
	}
}
