package dto

// SignupRequest represents a customer registration request
type SignupRequest struct {
	Username string  `json:"username" binding:"required,min=3,max=50"`
	Email    string  `json:"email" binding:"required,email"`
	Password string  `json:"password" binding:"required,min=6,max=72"`
	Phone    *string `json:"phone" binding:"omitempty,max=32"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type VerifyOTPRequest struct {
	OTP string `json:"otp" binding:"required,len=6,numeric"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required"`
}

type ResetPasswordRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required,min=6,max=72"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// LogoutRequest ends one session when RefreshToken is set, every session otherwise
type LogoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type UpdatePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=6,max=72"`
}

// UpdateDetailsRequest leaves absent fields unchanged
type UpdateDetailsRequest struct {
	Username *string `json:"username" binding:"omitempty,min=3,max=50"`
	Phone    *string `json:"phone" binding:"omitempty,max=32"`
}

// CreateAccountRequest is used by administrators; the account is active immediately
type CreateAccountRequest struct {
	Username string  `json:"username" binding:"required,min=3,max=50"`
	Email    string  `json:"email" binding:"required,email"`
	Password string  `json:"password" binding:"required,min=6,max=72"`
	Phone    *string `json:"phone" binding:"omitempty,max=32"`
	Role     string  `json:"role" binding:"omitempty,oneof=admin user"`
}

type SetStatusRequest struct {
	IsActive *bool `json:"isActive" binding:"required"`
}

type CategoryRequest struct {
	Name        string `json:"name" binding:"required,max=100"`
	Slug        string `json:"slug" binding:"omitempty,max=120"`
	Description string `json:"description" binding:"omitempty,max=2000"`
	IsActive    *bool  `json:"isActive"`
}

type ProductRequest struct {
	CategoryID  string `json:"categoryId" binding:"required,uuid"`
	Name        string `json:"name" binding:"required,max=200"`
	Slug        string `json:"slug" binding:"omitempty,max=220"`
	Description string `json:"description" binding:"omitempty,max=10000"`
	PriceCents  int64  `json:"priceCents" binding:"min=0"`
	Stock       int    `json:"stock" binding:"min=0"`
	IsActive    *bool  `json:"isActive"`
}

// ProductListQuery binds the public listing query string
type ProductListQuery struct {
	Category string `form:"category"`
	Q        string `form:"q" binding:"omitempty,max=100"`
	MinPrice *int64 `form:"minPrice" binding:"omitempty,min=0"`
	MaxPrice *int64 `form:"maxPrice" binding:"omitempty,min=0"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	Limit    int    `form:"limit" binding:"omitempty,min=1,max=100"`
}

// PageQuery binds page and limit for admin listings
type PageQuery struct {
	Page  int `form:"page" binding:"omitempty,min=1"`
	Limit int `form:"limit" binding:"omitempty,min=1,max=100"`
}

type CommentRequest struct {
	Body     string  `json:"body" binding:"required,max=2000"`
	ParentID *string `json:"parentId" binding:"omitempty,uuid"`
}

type ReviewRequest struct {
	Rating int    `json:"rating" binding:"required,min=1,max=5"`
	Title  string `json:"title" binding:"omitempty,max=200"`
	Body   string `json:"body" binding:"omitempty,max=5000"`
}
