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

const commentColumns = `id, product_id, user_id, parent_id, body, is_approved, created_at, updated_at`

type commentRepository struct {
	db *database.Postgres
}

// NewCommentRepository creates a new comment repository
func NewCommentRepository(db *database.Postgres) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) Create(ctx context.Context, comment *domain.Comment) error {
	query := `
		INSERT INTO comments (id, product_id, user_id, parent_id, body, is_approved, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	if comment.ID == "" {
		comment.ID = uuid.New().String()
	}
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = time.Now()
	}
	comment.UpdatedAt = comment.CreatedAt

	_, err := r.db.Executor(ctx).ExecContext(ctx, query,
		comment.ID,
		comment.ProductID,
		comment.UserID,
		nullString(comment.ParentID),
		comment.Body,
		comment.IsApproved,
		comment.CreatedAt,
		comment.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create comment: %w", err)
	}

	return nil
}

func (r *commentRepository) GetByID(ctx context.Context, id string) (*domain.Comment, error) {
	query := `SELECT ` + commentColumns + ` FROM comments WHERE id = $1`

	comment, err := scanComment(r.db.Executor(ctx).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("comment %s not found: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get comment: %w", err)
	}

	return comment, nil
}

// ListApprovedByProduct returns approved comments oldest first
func (r *commentRepository) ListApprovedByProduct(ctx context.Context, productID string) ([]*domain.Comment, error) {
	query := `SELECT ` + commentColumns + `
		FROM comments
		WHERE product_id = $1 AND is_approved = TRUE
		ORDER BY created_at`

	return r.list(ctx, query, productID)
}

func (r *commentRepository) ListPending(ctx context.Context, limit, offset int) ([]*domain.Comment, error) {
	query := `SELECT ` + commentColumns + `
		FROM comments
		WHERE is_approved = FALSE
		ORDER BY created_at
		LIMIT $1 OFFSET $2`

	return r.list(ctx, query, limit, offset)
}

func (r *commentRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Comment, error) {
	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	defer rows.Close()

	var comments []*domain.Comment
	for rows.Next() {
		comment, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		comments = append(comments, comment)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating comments: %w", err)
	}

	return comments, nil
}

func (r *commentRepository) Approve(ctx context.Context, id string) error {
	result, err := r.db.Executor(ctx).ExecContext(ctx,
		`UPDATE comments SET is_approved = TRUE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to approve comment: %w", err)
	}

	return expectRow(result, "comment", id)
}

// Delete removes a comment together with its replies
func (r *commentRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.Executor(ctx).ExecContext(ctx, `DELETE FROM comments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete comment: %w", err)
	}

	return expectRow(result, "comment", id)
}

func scanComment(row rowScanner) (*domain.Comment, error) {
	comment := &domain.Comment{}
	var parentID sql.NullString

	err := row.Scan(
		&comment.ID,
		&comment.ProductID,
		&comment.UserID,
		&parentID,
		&comment.Body,
		&comment.IsApproved,
		&comment.CreatedAt,
		&comment.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if parentID.Valid {
		comment.ParentID = &parentID.String
	}

	return comment, nil
}
