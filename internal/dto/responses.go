package dto

import (
	"time"

	"github.com/prperemyshlev/storefront-api/internal/domain"
)

// UserResponse represents an account in responses
type UserResponse struct {
	ID          string  `json:"id"`
	Username    string  `json:"username"`
	Email       string  `json:"email"`
	Phone       *string `json:"phone"`
	Role        string  `json:"role"`
	IsActive    bool    `json:"isActive"`
	CreatedAt   string  `json:"createdAt"`
	UpdatedAt   string  `json:"updatedAt"`
	LastLoginAt *string `json:"lastLoginAt"`
}

func NewUserResponse(a *domain.Account) UserResponse {
	resp := UserResponse{
		ID:        a.ID,
		Username:  a.Username,
		Email:     a.Email,
		Phone:     a.Phone,
		Role:      string(a.Role),
		IsActive:  a.IsActive,
		CreatedAt: a.CreatedAt.Format(time.RFC3339),
		UpdatedAt: a.UpdatedAt.Format(time.RFC3339),
	}
	if a.LastLoginAt != nil {
		ts := a.LastLoginAt.Format(time.RFC3339)
		resp.LastLoginAt = &ts
	}
	return resp
}

func NewUserResponses(accounts []*domain.Account) []UserResponse {
	out := make([]UserResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, NewUserResponse(a))
	}
	return out
}

// Pagination describes a page of a listing
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
}

// CommentThreadResponse is a top-level comment with its replies
type CommentThreadResponse struct {
	*domain.Comment
	Replies []*domain.Comment `json:"replies"`
}
