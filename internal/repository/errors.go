package repository

import (
	"errors"

	"github.com/lib/pq"
)

// Common repository errors
var (
	// ErrNotFound is returned when a record is not found
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateEmail is returned when trying to create a user with an existing email
	ErrDuplicateEmail = errors.New("user with this email already exists")

	// ErrDuplicateUsername is returned when the username is taken
	ErrDuplicateUsername = errors.New("user with this username already exists")

	// ErrDuplicateToken is returned when trying to create a token with an existing hash
	ErrDuplicateToken = errors.New("token with this hash already exists")

	// ErrDuplicateSlug is returned when a category or product slug is already in use
	ErrDuplicateSlug = errors.New("slug already in use")

	// ErrDuplicateReview is returned when a user reviews the same product twice
	ErrDuplicateReview = errors.New("review for this product already exists")

	// ErrInUse is returned when a row cannot be deleted because others reference it
	ErrInUse = errors.New("record is still referenced")
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

// constraintErrors maps unique constraint names from the migrations to sentinels
var constraintErrors = map[string]error{
	"users_email_key":               ErrDuplicateEmail,
	"users_username_key":            ErrDuplicateUsername,
	"refresh_tokens_token_hash_key": ErrDuplicateToken,
	"categories_slug_key":           ErrDuplicateSlug,
	"products_slug_key":             ErrDuplicateSlug,
	"reviews_product_user_key":      ErrDuplicateReview,
}

// uniqueViolation returns the sentinel for a unique constraint violation, or nil
func uniqueViolation(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != pqUniqueViolation {
		return nil
	}
	if sentinel, ok := constraintErrors[pqErr.Constraint]; ok {
		return sentinel
	}
	return nil
}

func foreignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqForeignKeyViolation
}
