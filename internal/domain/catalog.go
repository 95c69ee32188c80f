package domain

import "time"

type Category struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Slug        string    `json:"slug" db:"slug"`
	Description string    `json:"description" db:"description"`
	IsActive    bool      `json:"isActive" db:"is_active"`
	UserID      string    `json:"userId" db:"user_id"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

type Product struct {
	ID            string    `json:"id" db:"id"`
	CategoryID    string    `json:"categoryId" db:"category_id"`
	Name          string    `json:"name" db:"name"`
	Slug          string    `json:"slug" db:"slug"`
	Description   string    `json:"description" db:"description"`
	PriceCents    int64     `json:"priceCents" db:"price_cents"`
	Stock         int       `json:"stock" db:"stock"`
	ImagePath     string    `json:"imagePath" db:"image_path"`
	ThumbnailPath string    `json:"thumbnailPath" db:"thumbnail_path"`
	IsActive      bool      `json:"isActive" db:"is_active"`
	UserID        string    `json:"userId" db:"user_id"`
	CreatedAt     time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time `json:"updatedAt" db:"updated_at"`
}

// ProductFilter narrows public product listings
type ProductFilter struct {
	CategoryID    string
	Query         string
	MinPriceCents *int64
	MaxPriceCents *int64
	ActiveOnly    bool
	Limit         int
	Offset        int
}

// Comment belongs to a product; replies reference a top-level comment only
type Comment struct {
	ID         string    `json:"id" db:"id"`
	ProductID  string    `json:"productId" db:"product_id"`
	UserID     string    `json:"userId" db:"user_id"`
	ParentID   *string   `json:"parentId" db:"parent_id"`
	Body       string    `json:"body" db:"body"`
	IsApproved bool      `json:"isApproved" db:"is_approved"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt  time.Time `json:"updatedAt" db:"updated_at"`
}

type Review struct {
	ID         string    `json:"id" db:"id"`
	ProductID  string    `json:"productId" db:"product_id"`
	UserID     string    `json:"userId" db:"user_id"`
	Rating     int       `json:"rating" db:"rating"`
	Title      string    `json:"title" db:"title"`
	Body       string    `json:"body" db:"body"`
	IsApproved bool      `json:"isApproved" db:"is_approved"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt  time.Time `json:"updatedAt" db:"updated_at"`
}
