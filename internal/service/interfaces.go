package service

import (
	"context"
	"io"
	"time"

	"github.com/prperemyshlev/storefront-api/internal/domain"
)

// AuthService defines methods for authentication operations
type AuthService interface {
	Signup(ctx context.Context, in SignupInput) (*AuthResult, error)
	VerifyOTP(ctx context.Context, account *domain.Account, code string) (*AuthResult, error)
	ResendOTP(ctx context.Context, account *domain.Account) error
	Login(ctx context.Context, realm domain.Role, email, password string) (*AuthResult, error)
	ForgotPassword(ctx context.Context, realm domain.Role, email string) error
	ResetPassword(ctx context.Context, realm domain.Role, token, newPassword string) error
	RefreshToken(ctx context.Context, realm domain.Role, refreshToken string) (*AuthResult, error)
	Logout(ctx context.Context, account *domain.Account, accessToken, refreshToken string) error
	UpdatePassword(ctx context.Context, account *domain.Account, currentPassword, newPassword string) error
	UpdateDetails(ctx context.Context, account *domain.Account, in UpdateDetailsInput) (*domain.Account, error)
	Authenticate(ctx context.Context, accessToken string) (*domain.Account, error)
	SeedAdmin(ctx context.Context, username, email, password string) error
}

// AccountService defines admin operations on accounts
type AccountService interface {
	List(ctx context.Context, page, limit int) ([]*domain.Account, int, error)
	Create(ctx context.Context, in CreateAccountInput) (*domain.Account, error)
	SetActive(ctx context.Context, accountID string, active bool) (*domain.Account, error)
}

// CatalogService defines category and product operations
type CatalogService interface {
	ListCategories(ctx context.Context) ([]*domain.Category, error)
	GetCategory(ctx context.Context, slug string) (*domain.Category, error)
	CreateCategory(ctx context.Context, actor *domain.Account, in CategoryInput) (*domain.Category, error)
	UpdateCategory(ctx context.Context, id string, in CategoryInput) (*domain.Category, error)
	DeleteCategory(ctx context.Context, id string) error

	ListProducts(ctx context.Context, q ProductQuery) (*ProductPage, error)
	GetProduct(ctx context.Context, slug string) (*domain.Product, error)
	CreateProduct(ctx context.Context, actor *domain.Account, in ProductInput) (*domain.Product, error)
	UpdateProduct(ctx context.Context, id string, in ProductInput) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id string) error
	UploadProductImage(ctx context.Context, id string, image io.Reader) (*domain.Product, error)
}

// FeedbackService defines comment and review operations
type FeedbackService interface {
	AddComment(ctx context.Context, actor *domain.Account, productSlug string, in CommentInput) (*domain.Comment, error)
	DeleteOwnComment(ctx context.Context, actor *domain.Account, commentID string) error
	ListComments(ctx context.Context, productSlug string) ([]*CommentThread, error)
	ListPendingComments(ctx context.Context, page, limit int) ([]*domain.Comment, error)
	ApproveComment(ctx context.Context, commentID string) error
	DeleteComment(ctx context.Context, commentID string) error

	AddReview(ctx context.Context, actor *domain.Account, productSlug string, in ReviewInput) (*domain.Review, error)
	UpdateOwnReview(ctx context.Context, actor *domain.Account, reviewID string, in ReviewInput) (*domain.Review, error)
	DeleteOwnReview(ctx context.Context, actor *domain.Account, reviewID string) error
	ListReviews(ctx context.Context, productSlug string) (*ReviewSummary, error)
	ListPendingReviews(ctx context.Context, page, limit int) ([]*domain.Review, error)
	ApproveReview(ctx context.Context, reviewID string) error
	DeleteReview(ctx context.Context, reviewID string) error
}

// TxManager runs work atomically. Repositories pick the transaction up from ctx.
type TxManager interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	AfterCommit(ctx context.Context, fn func())
}

// Notifier delivers account mail
type Notifier interface {
	SendOTP(ctx context.Context, to, username, code string, ttl time.Duration) error
	SendPasswordReset(ctx context.Context, to, username, token string, ttl time.Duration) error
}

// TokenBlacklist remembers tokens that must be refused before their natural expiry
type TokenBlacklist interface {
	AddToken(ctx context.Context, token string, expiry time.Duration) error
	IsTokenBlacklisted(ctx context.Context, token string) (bool, error)
}

// ImageStore persists product images and their thumbnails
type ImageStore interface {
	Save(r io.Reader) (imagePath, thumbnailPath string, err error)
	Delete(paths ...string) error
}

// ProductCache caches product detail by slug
type ProductCache interface {
	Get(ctx context.Context, slug string) (*domain.Product, error)
	Set(ctx context.Context, product *domain.Product) error
	Invalidate(ctx context.Context, slugs ...string) error
}

// AuthMetrics records auth outcomes
type AuthMetrics interface {
	RecordSignup(ctx context.Context)
	RecordLogin(ctx context.Context, result string)
	RecordOTPVerification(ctx context.Context, result string)
	RecordTokenRefresh(ctx context.Context, result string)
}
