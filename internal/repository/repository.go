package repository

import (
	"github.com/prperemyshlev/storefront-api/pkg/database"
)

// Repositories holds all repository interfaces
type Repositories struct {
	User     UserRepository
	Token    TokenRepository
	OTP      OTPRepository
	Category CategoryRepository
	Product  ProductRepository
	Comment  CommentRepository
	Review   ReviewRepository
}

// NewRepositories creates all repositories
func NewRepositories(db *database.Postgres) *Repositories {
	return &Repositories{
		User:     NewUserRepository(db),
		Token:    NewTokenRepository(db),
		OTP:      NewOTPRepository(db),
		Category: NewCategoryRepository(db),
		Product:  NewProductRepository(db),
		Comment:  NewCommentRepository(db),
		Review:   NewReviewRepository(db),
	}
}
