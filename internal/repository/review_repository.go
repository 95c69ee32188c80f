package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prperemyshlev/storefront-api/internal/domain"
	"github.com/prperemyshlev/storefront-api/pkg/database"
)

const reviewColumns = `id, product_id, user_id, rating, title, body, is_approved, created_at, updated_at`

type reviewRepository struct {
	db *database.Postgres
}

// NewReviewRepository creates a new review repository
func NewReviewRepository(db *database.Postgres) ReviewRepository {
	return &reviewRepository{db: db}
}

func (r *reviewRepository) Create(ctx context.Context, review *domain.Review) error {
	query := `
		INSERT INTO reviews (id, product_id, user_id, rating, title, body, is_approved, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	if review.ID == "" {
		review.ID = uuid.New().String()
	}
	if review.CreatedAt.IsZero() {
		review.CreatedAt = time.Now()
	}
	review.UpdatedAt = review.CreatedAt

	_, err := r.db.Executor(ctx).ExecContext(ctx, query,
		review.ID,
		review.ProductID,
		review.UserID,
		review.Rating,
		review.Title,
		review.Body,
		review.IsApproved,
		review.CreatedAt,
		review.UpdatedAt,
	)
	if err != nil {
		if sentinel := uniqueViolation(err); sentinel != nil {
			return fmt.Errorf("failed to create review: %w", sentinel)
		}
		return fmt.Errorf("failed to create review: %w", err)
	}

	return nil
}

func (r *reviewRepository) GetByID(ctx context.Context, id string) (*domain.Review, error) {
	query := `SELECT ` + reviewColumns + ` FROM reviews WHERE id = $1`

	review, err := scanReview(r.db.Executor(ctx).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("review %s not found: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get review: %w", err)
	}

	return review, nil
}

// Update rewrites the review content and its approval state
func (r *reviewRepository) Update(ctx context.Context, review *domain.Review) error {
	query := `
		UPDATE reviews
		SET rating = $2, title = $3, body = $4, is_approved = $5, updated_at = $6
		WHERE id = $1
	`

	review.UpdatedAt = time.Now()

	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		review.ID,
		review.Rating,
		review.Title,
		review.Body,
		review.IsApproved,
		review.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update review: %w", err)
	}

	return expectRow(result, "review", review.ID)
}

func (r *reviewRepository) ListApprovedByProduct(ctx context.Context, productID string) ([]*domain.Review, error) {
	query := `SELECT ` + reviewColumns + `
		FROM reviews
		WHERE product_id = $1 AND is_approved = TRUE
		ORDER BY created_at DESC`

	return r.list(ctx, query, productID)
}

// AverageRating aggregates approved reviews only
func (r *reviewRepository) AverageRating(ctx context.Context, productID string) (float64, int, error) {
	query := `
		SELECT COALESCE(AVG(rating), 0), COUNT(*)
		FROM reviews
		WHERE product_id = $1 AND is_approved = TRUE
	`

	var (
		avg   float64
		count int
	)
	if err := r.db.Executor(ctx).QueryRowContext(ctx, query, productID).Scan(&avg, &count); err != nil {
		return 0, 0, fmt.Errorf("failed to aggregate ratings: %w", err)
	}

	return avg, count, nil
}

func (r *reviewRepository) ListPending(ctx context.Context, limit, offset int) ([]*domain.Review, error) {
	query := `SELECT ` + reviewColumns + `
		FROM reviews
		WHERE is_approved = FALSE
		ORDER BY created_at
		LIMIT $1 OFFSET $2`

	return r.list(ctx, query, limit, offset)
}

func (r *reviewRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Review, error) {
	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	defer rows.Close()

	var reviews []*domain.Review
	for rows.Next() {
		review, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		reviews = append(reviews, review)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reviews: %w", err)
	}

	return reviews, nil
}

func (r *reviewRepository) Approve(ctx context.Context, id string) error {
	result, err := r.db.Executor(ctx).ExecContext(ctx,
		`UPDATE reviews SET is_approved = TRUE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to approve review: %w", err)
	}

	return expectRow(result, "review", id)
}

func (r *reviewRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.Executor(ctx).ExecContext(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete review: %w", err)
	}

	return expectRow(result, "review", id)
}

func scanReview(row rowScanner) (*domain.Review, error) {
	review := &domain.Review{}
	err := row.Scan(
		&review.ID,
		&review.ProductID,
		&review.UserID,
		&review.Rating,
		&review.Title,
		&review.Body,
		&review.IsApproved,
		&review.CreatedAt,
		&review.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return review, nil
}
