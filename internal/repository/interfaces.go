package repository

import (
	"context"
	"time"

	"github.com/prperemyshlev/storefront-api/internal/domain"
)

// UserRepository defines methods for account operations
type UserRepository interface {
	Create(ctx context.Context, user *domain.Account) error
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	List(ctx context.Context, limit, offset int) ([]*domain.Account, int, error)
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
	UpdateProfile(ctx context.Context, user *domain.Account) error
	SetActive(ctx context.Context, userID string, active bool) error
	UpdateLastLogin(ctx context.Context, userID string, at time.Time) error
}

// TokenRepository defines methods for refresh token operations
type TokenRepository interface {
	Create(ctx context.Context, token *domain.RefreshToken) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error)
	// Revoke flips is_revoked on a live row and reports whether this call did it
	Revoke(ctx context.Context, tokenHash string) (bool, error)
	RevokeAllForUser(ctx context.Context, userID string) (int64, error)
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// OTPRepository defines methods for one-time passcode operations
type OTPRepository interface {
	Create(ctx context.Context, otp *domain.OTP) error
	LatestUnused(ctx context.Context, userID string) (*domain.OTP, error)
	// MarkUsed reports whether this call consumed the code
	MarkUsed(ctx context.Context, otpID string) (bool, error)
	InvalidateAll(ctx context.Context, userID string) error
}

// CategoryRepository defines methods for category operations
type CategoryRepository interface {
	Create(ctx context.Context, category *domain.Category) error
	GetByID(ctx context.Context, id string) (*domain.Category, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Category, error)
	List(ctx context.Context, activeOnly bool) ([]*domain.Category, error)
	Update(ctx context.Context, category *domain.Category) error
	Delete(ctx context.Context, id string) error
}

// ProductRepository defines methods for product operations
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Product, error)
	List(ctx context.Context, filter domain.ProductFilter) ([]*domain.Product, int, error)
	Update(ctx context.Context, product *domain.Product) error
	UpdateImage(ctx context.Context, productID, imagePath, thumbnailPath string) error
	Delete(ctx context.Context, id string) error
}

// CommentRepository defines methods for product comment operations
type CommentRepository interface {
	Create(ctx context.Context, comment *domain.Comment) error
	GetByID(ctx context.Context, id string) (*domain.Comment, error)
	ListApprovedByProduct(ctx context.Context, productID string) ([]*domain.Comment, error)
	ListPending(ctx context.Context, limit, offset int) ([]*domain.Comment, error)
	Approve(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

// ReviewRepository defines methods for product review operations
type ReviewRepository interface {
	Create(ctx context.Context, review *domain.Review) error
	GetByID(ctx context.Context, id string) (*domain.Review, error)
	Update(ctx context.Context, review *domain.Review) error
	ListApprovedByProduct(ctx context.Context, productID string) ([]*domain.Review, error)
	AverageRating(ctx context.Context, productID string) (float64, int, error)
	ListPending(ctx context.Context, limit, offset int) ([]*domain.Review, error)
	Approve(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}
