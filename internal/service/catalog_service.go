package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/prperemyshlev/storefront-api/internal/apperror"
	"github.com/prperemyshlev/storefront-api/internal/domain"
	"github.com/prperemyshlev/storefront-api/internal/repository"
	"github.com/prperemyshlev/storefront-api/internal/utils"
	"go.uber.org/zap"
)

// CategoryInput is the full writable state of a category
type CategoryInput struct {
	Name        string
	Slug        string
	Description string
	IsActive    *bool
}

// ProductInput is the full writable state of a product
type ProductInput struct {
	CategoryID  string
	Name        string
	Slug        string
	Description string
	PriceCents  int64
	Stock       int
	IsActive    *bool
}

// ProductQuery filters the public product listing
type ProductQuery struct {
	CategorySlug  string
	Query         string
	MinPriceCents *int64
	MaxPriceCents *int64
	Page          int
	Limit         int
}

type ProductPage struct {
	Items []*domain.Product
	Total int
	Page  int
	Limit int
}

var errSlugInUse = apperror.Validation("Slug already in use")

type catalogService struct {
	categories repository.CategoryRepository
	products   repository.ProductRepository
	tx         TxManager
	images     ImageStore
	cache      ProductCache
	logger     *zap.Logger
}

// NewCatalogService creates a new catalog service
func NewCatalogService(
	categories repository.CategoryRepository,
	products repository.ProductRepository,
	tx TxManager,
	images ImageStore,
	cache ProductCache,
	logger *zap.Logger,
) CatalogService {
	return &catalogService{
		categories: categories,
		products:   products,
		tx:         tx,
		images:     images,
		cache:      cache,
		logger:     logger,
	}
}

func (s *catalogService) ListCategories(ctx context.Context) ([]*domain.Category, error) {
	return s.categories.List(ctx, true)
}

func (s *catalogService) GetCategory(ctx context.Context, slug string) (*domain.Category, error) {
	category, err := s.categories.GetBySlug(ctx, slug)
	if err != nil {
		return nil, mapCatalogError(err, "Category")
	}
	if !category.IsActive {
		return nil, apperror.NotFound("Category")
	}
	return category, nil
}

func (s *catalogService) CreateCategory(ctx context.Context, actor *domain.Account, in CategoryInput) (*domain.Category, error) {
	category := &domain.Category{UserID: actor.ID, IsActive: true}
	if err := applyCategoryInput(category, in); err != nil {
		return nil, err
	}

	if err := s.categories.Create(ctx, category); err != nil {
		return nil, mapCatalogError(err, "Category")
	}

	return category, nil
}

func (s *catalogService) UpdateCategory(ctx context.Context, id string, in CategoryInput) (*domain.Category, error) {
	category, err := s.categories.GetByID(ctx, id)
	if err != nil {
		return nil, mapCatalogError(err, "Category")
	}

	if err := applyCategoryInput(category, in); err != nil {
		return nil, err
	}

	if err := s.categories.Update(ctx, category); err != nil {
		return nil, mapCatalogError(err, "Category")
	}

	return category, nil
}

func (s *catalogService) DeleteCategory(ctx context.Context, id string) error {
	err := s.categories.Delete(ctx, id)
	if errors.Is(err, repository.ErrInUse) {
		return apperror.Validation("Category still has products")
	}
	return mapCatalogError(err, "Category")
}

func (s *catalogService) ListProducts(ctx context.Context, q ProductQuery) (*ProductPage, error) {
	if q.MinPriceCents != nil && q.MaxPriceCents != nil && *q.MinPriceCents > *q.MaxPriceCents {
		return nil, apperror.Validation("minPrice must not exceed maxPrice")
	}

	limit, offset := pageBounds(q.Page, q.Limit)
	filter := domain.ProductFilter{
		Query:         q.Query,
		MinPriceCents: q.MinPriceCents,
		MaxPriceCents: q.MaxPriceCents,
		ActiveOnly:    true,
		Limit:         limit,
		Offset:        offset,
	}

	if q.CategorySlug != "" {
		category, err := s.GetCategory(ctx, q.CategorySlug)
		if err != nil {
			return nil, err
		}
		filter.CategoryID = category.ID
	}

	items, total, err := s.products.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	return &ProductPage{
		Items: items,
		Total: total,
		Page:  offset/limit + 1,
		Limit: limit,
	}, nil
}

// GetProduct serves active products by slug, through the cache
func (s *catalogService) GetProduct(ctx context.Context, slug string) (*domain.Product, error) {
	if cached, err := s.cache.Get(ctx, slug); err != nil {
		s.logger.Warn("Product cache read failed", zap.String("slug", slug), zap.Error(err))
	} else if cached != nil {
		return cached, nil
	}

	product, err := s.products.GetBySlug(ctx, slug)
	if err != nil {
		return nil, mapCatalogError(err, "Product")
	}
	if !product.IsActive {
		return nil, apperror.NotFound("Product")
	}

	if err := s.cache.Set(ctx, product); err != nil {
		s.logger.Warn("Product cache write failed", zap.String("slug", slug), zap.Error(err))
	}

	return product, nil
}

func (s *catalogService) CreateProduct(ctx context.Context, actor *domain.Account, in ProductInput) (*domain.Product, error) {
	product := &domain.Product{UserID: actor.ID, IsActive: true}
	if err := s.applyProductInput(ctx, product, in); err != nil {
		return nil, err
	}

	if err := s.products.Create(ctx, product); err != nil {
		return nil, mapCatalogError(err, "Product")
	}

	return product, nil
}

func (s *catalogService) UpdateProduct(ctx context.Context, id string, in ProductInput) (*domain.Product, error) {
	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, mapCatalogError(err, "Product")
	}
	oldSlug := product.Slug

	if err := s.applyProductInput(ctx, product, in); err != nil {
		return nil, err
	}

	if err := s.products.Update(ctx, product); err != nil {
		return nil, mapCatalogError(err, "Product")
	}

	s.invalidate(ctx, oldSlug, product.Slug)
	return product, nil
}

func (s *catalogService) DeleteProduct(ctx context.Context, id string) error {
	return s.tx.WithTx(ctx, func(ctx context.Context) error {
		product, err := s.products.GetByID(ctx, id)
		if err != nil {
			return mapCatalogError(err, "Product")
		}

		if err := s.products.Delete(ctx, id); err != nil {
			return mapCatalogError(err, "Product")
		}

		s.tx.AfterCommit(ctx, func() {
			s.removeFiles(product.ImagePath, product.ThumbnailPath)
			s.invalidate(context.WithoutCancel(ctx), product.Slug)
		})
		return nil
	})
}

// UploadProductImage stores a new image and swaps it in. Old files are removed only
// after the database update commits; new files are removed if it does not.
func (s *catalogService) UploadProductImage(ctx context.Context, id string, image io.Reader) (*domain.Product, error) {
	imagePath, thumbnailPath, err := s.images.Save(image)
	if err != nil {
		return nil, err
	}

	var product *domain.Product
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		product, err = s.products.GetByID(ctx, id)
		if err != nil {
			return mapCatalogError(err, "Product")
		}

		if err := s.products.UpdateImage(ctx, id, imagePath, thumbnailPath); err != nil {
			return err
		}

		oldImage, oldThumbnail := product.ImagePath, product.ThumbnailPath
		s.tx.AfterCommit(ctx, func() {
			s.removeFiles(oldImage, oldThumbnail)
			s.invalidate(context.WithoutCancel(ctx), product.Slug)
		})

		product.ImagePath = imagePath
		product.ThumbnailPath = thumbnailPath
		return nil
	})
	if err != nil {
		s.removeFiles(imagePath, thumbnailPath)
		return nil, err
	}

	return product, nil
}

func (s *catalogService) applyProductInput(ctx context.Context, product *domain.Product, in ProductInput) error {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return apperror.Validation("Name is required")
	}
	if in.PriceCents < 0 {
		return apperror.Validation("Price must not be negative")
	}
	if in.Stock < 0 {
		return apperror.Validation("Stock must not be negative")
	}

	slug, err := resolveSlug(in.Slug, name)
	if err != nil {
		return err
	}

	if _, err := s.categories.GetByID(ctx, in.CategoryID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperror.Validation("Category does not exist")
		}
		return err
	}

	product.CategoryID = in.CategoryID
	product.Name = name
	product.Slug = slug
	product.Description = strings.TrimSpace(in.Description)
	product.PriceCents = in.PriceCents
	product.Stock = in.Stock
	if in.IsActive != nil {
		product.IsActive = *in.IsActive
	}

	return nil
}

func applyCategoryInput(category *domain.Category, in CategoryInput) error {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return apperror.Validation("Name is required")
	}

	slug, err := resolveSlug(in.Slug, name)
	if err != nil {
		return err
	}

	category.Name = name
	category.Slug = slug
	category.Description = strings.TrimSpace(in.Description)
	if in.IsActive != nil {
		category.IsActive = *in.IsActive
	}

	return nil
}

// resolveSlug normalizes an explicit slug or derives one from name
func resolveSlug(explicit, name string) (string, error) {
	source := explicit
	if strings.TrimSpace(source) == "" {
		source = name
	}

	slug := utils.Slugify(source)
	if slug == "" {
		return "", apperror.Validation("Slug must contain letters or digits")
	}
	return slug, nil
}

func (s *catalogService) invalidate(ctx context.Context, slugs ...string) {
	if err := s.cache.Invalidate(ctx, slugs...); err != nil {
		s.logger.Warn("Product cache invalidation failed", zap.Strings("slugs", slugs), zap.Error(err))
	}
}

func (s *catalogService) removeFiles(paths ...string) {
	if err := s.images.Delete(paths...); err != nil {
		s.logger.Warn("Failed to remove product image files", zap.Strings("paths", paths), zap.Error(err))
	}
}

func mapCatalogError(err error, resource string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return apperror.NotFound(resource)
	case errors.Is(err, repository.ErrDuplicateSlug):
		return errSlugInUse
	default:
		return fmt.Errorf("%s operation failed: %w", strings.ToLower(resource), err)
	}
}
