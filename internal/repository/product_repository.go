package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prperemyshlev/storefront-api/internal/domain"
	"github.com/prperemyshlev/storefront-api/pkg/database"
)

const productColumns = `id, category_id, name, slug, description, price_cents, stock, image_path, thumbnail_path, is_active, user_id, created_at, updated_at`

type productRepository struct {
	db *database.Postgres
}

// NewProductRepository creates a new product repository
func NewProductRepository(db *database.Postgres) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	query := `
		INSERT INTO products (id, category_id, name, slug, description, price_cents, stock, image_path, thumbnail_path, is_active, user_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	if product.ID == "" {
		product.ID = uuid.New().String()
	}
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now()
	}
	product.UpdatedAt = product.CreatedAt

	_, err := r.db.Executor(ctx).ExecContext(ctx, query,
		product.ID,
		product.CategoryID,
		product.Name,
		product.Slug,
		product.Description,
		product.PriceCents,
		product.Stock,
		product.ImagePath,
		product.ThumbnailPath,
		product.IsActive,
		product.UserID,
		product.CreatedAt,
		product.UpdatedAt,
	)
	if err != nil {
		if sentinel := uniqueViolation(err); sentinel != nil {
			return fmt.Errorf("failed to create product %s: %w", product.Slug, sentinel)
		}
		return fmt.Errorf("failed to create product: %w", err)
	}

	return nil
}

func (r *productRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	return r.getOne(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
}

func (r *productRepository) GetBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	return r.getOne(ctx, `SELECT `+productColumns+` FROM products WHERE slug = $1`, slug)
}

func (r *productRepository) getOne(ctx context.Context, query, key string) (*domain.Product, error) {
	product, err := scanProduct(r.db.Executor(ctx).QueryRowContext(ctx, query, key))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("product %s not found: %w", key, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return product, nil
}

// List returns one page of products matching filter plus the total match count
func (r *productRepository) List(ctx context.Context, filter domain.ProductFilter) ([]*domain.Product, int, error) {
	where, args := productWhere(filter)
	exec := r.db.Executor(ctx)

	var total int
	if err := exec.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM products%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		productColumns, where, len(args)+1, len(args)+2)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	var products []*domain.Product
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating products: %w", err)
	}

	return products, total, nil
}

func productWhere(filter domain.ProductFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)

	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.ActiveOnly {
		conds = append(conds, "is_active = TRUE")
	}
	if filter.CategoryID != "" {
		add("category_id = $%d", filter.CategoryID)
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		add("(name ILIKE $%[1]d OR description ILIKE $%[1]d)", "%"+escapeLike(q)+"%")
	}
	if filter.MinPriceCents != nil {
		add("price_cents >= $%d", *filter.MinPriceCents)
	}
	if filter.MaxPriceCents != nil {
		add("price_cents <= $%d", *filter.MaxPriceCents)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func (r *productRepository) Update(ctx context.Context, product *domain.Product) error {
	query := `
		UPDATE products
		SET category_id = $2, name = $3, slug = $4, description = $5, price_cents = $6, stock = $7, is_active = $8, updated_at = $9
		WHERE id = $1
	`

	product.UpdatedAt = time.Now()

	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		product.ID,
		product.CategoryID,
		product.Name,
		product.Slug,
		product.Description,
		product.PriceCents,
		product.Stock,
		product.IsActive,
		product.UpdatedAt,
	)
	if err != nil {
		if sentinel := uniqueViolation(err); sentinel != nil {
			return fmt.Errorf("failed to update product %s: %w", product.ID, sentinel)
		}
		return fmt.Errorf("failed to update product: %w", err)
	}

	return expectRow(result, "product", product.ID)
}

// UpdateImage records the stored image and thumbnail paths
func (r *productRepository) UpdateImage(ctx context.Context, productID, imagePath, thumbnailPath string) error {
	query := `
		UPDATE products
		SET image_path = $2, thumbnail_path = $3, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.Executor(ctx).ExecContext(ctx, query, productID, imagePath, thumbnailPath)
	if err != nil {
		return fmt.Errorf("failed to update product image: %w", err)
	}

	return expectRow(result, "product", productID)
}

func (r *productRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.Executor(ctx).ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	return expectRow(result, "product", id)
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	product := &domain.Product{}
	err := row.Scan(
		&product.ID,
		&product.CategoryID,
		&product.Name,
		&product.Slug,
		&product.Description,
		&product.PriceCents,
		&product.Stock,
		&product.ImagePath,
		&product.ThumbnailPath,
		&product.IsActive,
		&product.UserID,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return product, nil
}
