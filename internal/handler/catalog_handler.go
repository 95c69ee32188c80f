package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/storefront-api/internal/apperror"
	"github.com/prperemyshlev/storefront-api/internal/dto"
	"github.com/prperemyshlev/storefront-api/internal/service"
	"go.uber.org/zap"
)

// CatalogHandler serves public catalog reads and admin catalog writes
type CatalogHandler struct {
	catalog        service.CatalogService
	maxUploadBytes int64
	logger         *zap.Logger
}

func NewCatalogHandler(catalog service.CatalogService, maxUploadBytes int64, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{
		catalog:        catalog,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

func (h *CatalogHandler) ListCategories(c *gin.Context) {
	categories, err := h.catalog.ListCategories(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, "OK", gin.H{"categories": categories})
}

func (h *CatalogHandler) GetCategory(c *gin.Context) {
	category, err := h.catalog.GetCategory(c.Request.Context(), c.Param("slug"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, "OK", gin.H{"category": category})
}

// ListProducts lists active products
// @Summary List products
// @Tags catalog
// @Produce json
// @Param category query string false "Category slug"
// @Param q query string false "Search text"
// @Param minPrice query int false "Minimum price in cents"
// @Param maxPrice query int false "Maximum price in cents"
// @Param page query int false "Page, from 1"
// @Param limit query int false "Page size, at most 100"
// @Success 200 {object} map[string]any
// @Router /products [get]
func (h *CatalogHandler) ListProducts(c *gin.Context) {
	var q dto.ProductListQuery
	if err := bindQuery(c, &q); err != nil {
		respondError(c, h.logger, err)
		return
	}

	page, err := h.catalog.ListProducts(c.Request.Context(), service.ProductQuery{
		CategorySlug:  q.Category,
		Query:         q.Q,
		MinPriceCents: q.MinPrice,
		MaxPriceCents: q.MaxPrice,
		Page:          q.Page,
		Limit:         q.Limit,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respond(c, http.StatusOK, "OK", gin.H{
		"products":   page.Items,
		"pagination": dto.Pagination{Page: page.Page, Limit: page.Limit, Total: page.Total},
	})
}

func (h *CatalogHandler) GetProduct(c *gin.Context) {
	product, err := h.catalog.GetProduct(c.Request.Context(), c.Param("slug"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, "OK", gin.H{"product": product})
}

func (h *CatalogHandler) CreateCategory(c *gin.Context) {
	var req dto.CategoryRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, h.logger, err)
		return
	}

	category, err := h.catalog.CreateCategory(c.Request.Context(), currentAccount(c), categoryInput(req))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusCreated, "Category created", gin.H{"category": category})
}

func (h *CatalogHandler) UpdateCategory(c *gin.Context) {
	var req dto.CategoryRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, h.logger, err)
		return
	}

	category, err := h.catalog.UpdateCategory(c.Request.Context(), c.Param("id"), categoryInput(req))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, "Category updated", gin.H{"category": category})
}

func (h *CatalogHandler) DeleteCategory(c *gin.Context) {
	if err := h.catalog.DeleteCategory(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, "Category deleted", nil)
}

func (h *CatalogHandler) CreateProduct(c *gin.Context) {
	var req dto.ProductRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, h.logger, err)
		return
	}

	product, err := h.catalog.CreateProduct(c.Request.Context(), currentAccount(c), productInput(req))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusCreated, "Product created", gin.H{"product": product})
}

func (h *CatalogHandler) UpdateProduct(c *gin.Context) {
	var req dto.ProductRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, h.logger, err)
		return
	}

	product, err := h.catalog.UpdateProduct(c.Request.Context(), c.Param("id"), productInput(req))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, "Product updated", gin.H{"product": product})
}

func (h *CatalogHandler) DeleteProduct(c *gin.Context) {
	if err := h.catalog.DeleteProduct(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, "Product deleted", nil)
}

// UploadProductImage replaces the product image with the multipart "image" field
func (h *CatalogHandler) UploadProductImage(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)

	file, err := c.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(c, h.logger, apperror.Validation("Image is too large"))
			return
		}
		respondError(c, h.logger, apperror.Validation("Multipart field \"image\" is required"))
		return
	}

	f, err := file.Open()
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	defer f.Close()

	product, err := h.catalog.UploadProductImage(c.Request.Context(), c.Param("id"), f)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, "Image uploaded", gin.H{"product": product})
}

func categoryInput(req dto.CategoryRequest) service.CategoryInput {
	return service.CategoryInput{
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
		IsActive:    req.IsActive,
	}
}

func productInput(req dto.ProductRequest) service.ProductInput {
	return service.ProductInput{
		CategoryID:  req.CategoryID,
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
		PriceCents:  req.PriceCents,
		Stock:       req.Stock,
		IsActive:    req.IsActive,
	}
}
