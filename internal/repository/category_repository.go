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

const categoryColumns = `id, name, slug, description, is_active, user_id, created_at, updated_at`

type categoryRepository struct {
	db *database.Postgres
}

// NewCategoryRepository creates a new category repository
func NewCategoryRepository(db *database.Postgres) CategoryRepository {
	return &categoryRepository{db: db}
}

func (r *categoryRepository) Create(ctx context.Context, category *domain.Category) error {
	query := `
		INSERT INTO categories (id, name, slug, description, is_active, user_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	if category.ID == "" {
		category.ID = uuid.New().String()
	}

	now := time.Now()
	if category.CreatedAt.IsZero() {
		category.CreatedAt = now
	}
	category.UpdatedAt = category.CreatedAt

	_, err := r.db.Executor(ctx).ExecContext(ctx, query,
		category.ID,
		category.Name,
		category.Slug,
		category.Description,
		category.IsActive,
		category.UserID,
		category.CreatedAt,
		category.UpdatedAt,
	)
	if err != nil {
		if sentinel := uniqueViolation(err); sentinel != nil {
			return fmt.Errorf("failed to create category %s: %w", category.Slug, sentinel)
		}
		return fmt.Errorf("failed to create category: %w", err)
	}

	return nil
}

func (r *categoryRepository) GetByID(ctx context.Context, id string) (*domain.Category, error) {
	return r.getOne(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = $1`, id)
}

func (r *categoryRepository) GetBySlug(ctx context.Context, slug string) (*domain.Category, error) {
	return r.getOne(ctx, `SELECT `+categoryColumns+` FROM categories WHERE slug = $1`, slug)
}

func (r *categoryRepository) getOne(ctx context.Context, query, key string) (*domain.Category, error) {
	category, err := scanCategory(r.db.Executor(ctx).QueryRowContext(ctx, query, key))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("category %s not found: %w", key, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return category, nil
}

// List returns categories ordered by name
func (r *categoryRepository) List(ctx context.Context, activeOnly bool) ([]*domain.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories`
	if activeOnly {
		query += ` WHERE is_active = TRUE`
	}
	query += ` ORDER BY name`

	rows, err := r.db.Executor(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var categories []*domain.Category
	for rows.Next() {
		category, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, category)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	return categories, nil
}

func (r *categoryRepository) Update(ctx context.Context, category *domain.Category) error {
	query := `
		UPDATE categories
		SET name = $2, slug = $3, description = $4, is_active = $5, updated_at = $6
		WHERE id = $1
	`

	category.UpdatedAt = time.Now()

	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		category.ID,
		category.Name,
		category.Slug,
		category.Description,
		category.IsActive,
		category.UpdatedAt,
	)
	if err != nil {
		if sentinel := uniqueViolation(err); sentinel != nil {
			return fmt.Errorf("failed to update category %s: %w", category.ID, sentinel)
		}
		return fmt.Errorf("failed to update category: %w", err)
	}

	return expectRow(result, "category", category.ID)
}

// Delete removes a category; ErrInUse when products still reference it
func (r *categoryRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.Executor(ctx).ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		if foreignKeyViolation(err) {
			return fmt.Errorf("category %s has products: %w", id, ErrInUse)
		}
		return fmt.Errorf("failed to delete category: %w", err)
	}

	return expectRow(result, "category", id)
}

func scanCategory(row rowScanner) (*domain.Category, error) {
	category := &domain.Category{}
	err := row.Scan(
		&category.ID,
		&category.Name,
		&category.Slug,
		&category.Description,
		&category.IsActive,
		&category.UserID,
		&category.CreatedAt,
		&category.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return category, nil
}
