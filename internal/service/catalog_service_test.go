package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prperemyshlev/storefront-api/internal/apperror"
	"github.com/prperemyshlev/storefront-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type catalogFixture struct {
	svc        CatalogService
	categories *fakeCategories
	products   *fakeProducts
	images     *fakeImages
	cache      *fakeCache
	admin      *domain.Account
}

func newCatalogFixture() *catalogFixture {
	f := &catalogFixture{
		categories: newFakeCategories(),
		products:   newFakeProducts(),
		images:     &fakeImages{},
		cache:      newFakeCache(),
		admin:      &domain.Account{ID: "admin-1", Role: domain.RoleAdmin, IsActive: true},
	}
	f.svc = NewCatalogService(f.categories, f.products, newFakeTx(), f.images, f.cache, zap.NewNop())
	return f
}

func (f *catalogFixture) category(t *testing.T, name string) *domain.Category {
	t.Helper()
	c, err := f.svc.CreateCategory(context.Background(), f.admin, CategoryInput{Name: name})
	require.NoError(t, err)
	return c
}

func (f *catalogFixture) product(t *testing.T, categoryID, name string) *domain.Product {
	t.Helper()
	p, err := f.svc.CreateProduct(context.Background(), f.admin, ProductInput{
		CategoryID: categoryID,
		Name:       name,
		PriceCents: 1999,
		Stock:      5,
	})
	require.NoError(t, err)
	return p
}

func TestCreateCategory_DerivesSlug(t *testing.T) {
	f := newCatalogFixture()

	c := f.category(t, "  Home & Garden ")

	assert.Equal(t, "Home & Garden", c.Name)
	assert.Equal(t, "home-garden", c.Slug)
	assert.True(t, c.IsActive)
	assert.Equal(t, "admin-1", c.UserID)
}

func TestCreateCategory_DuplicateSlug(t *testing.T) {
	f := newCatalogFixture()
	f.category(t, "Books")

	_, err := f.svc.CreateCategory(context.Background(), f.admin, CategoryInput{Name: "Other", Slug: "BOOKS"})

	var appErr *apperror.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.KindValidation, appErr.Kind)
}

func TestCreateCategory_RequiresName(t *testing.T) {
	f := newCatalogFixture()

	_, err := f.svc.CreateCategory(context.Background(), f.admin, CategoryInput{Name: "   "})
	assert.Equal(t, apperror.KindValidation, apperror.From(err).Kind)

	_, err = f.svc.CreateCategory(context.Background(), f.admin, CategoryInput{Name: "x", Slug: "!!!"})
	assert.Equal(t, apperror.KindValidation, apperror.From(err).Kind)
}

func TestDeleteCategory_InUse(t *testing.T) {
	f := newCatalogFixture()
	c := f.category(t, "Books")
	f.categories.inUse[c.ID] = true

	err := f.svc.DeleteCategory(context.Background(), c.ID)
	assert.Equal(t, apperror.KindValidation, apperror.From(err).Kind)

	err = f.svc.DeleteCategory(context.Background(), "missing")
	assert.Equal(t, apperror.KindNotFound, apperror.From(err).Kind)
}

func TestGetCategory_HidesInactive(t *testing.T) {
	f := newCatalogFixture()
	inactive := false
	_, err := f.svc.CreateCategory(context.Background(), f.admin, CategoryInput{Name: "Hidden", IsActive: &inactive})
	require.NoError(t, err)

	_, err = f.svc.GetCategory(context.Background(), "hidden")
	assert.Equal(t, apperror.KindNotFound, apperror.From(err).Kind)

	categories, err := f.svc.ListCategories(context.Background())
	require.NoError(t, err)
	assert.Empty(t, categories)
}

func TestCreateProduct_Validation(t *testing.T) {
	f := newCatalogFixture()
	c := f.category(t, "Books")

	cases := []ProductInput{
		{CategoryID: c.ID, Name: "", PriceCents: 1},
		{CategoryID: c.ID, Name: "Book", PriceCents: -1},
		{CategoryID: c.ID, Name: "Book", Stock: -1},
		{CategoryID: "missing", Name: "Book"},
	}

	for _, in := range cases {
		_, err := f.svc.CreateProduct(context.Background(), f.admin, in)
		assert.Equal(t, apperror.KindValidation, apperror.From(err).Kind, "%+v", in)
	}
}

func TestListProducts(t *testing.T) {
	f := newCatalogFixture()
	books := f.category(t, "Books")
	toys := f.category(t, "Toys")
	f.product(t, books.ID, "Go in Action")
	f.product(t, toys.ID, "Go Kart")

	page, err := f.svc.ListProducts(context.Background(), ProductQuery{CategorySlug: "books", Page: 2, Limit: 500})
	require.NoError(t, err)

	assert.Equal(t, 1, page.Total)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 100, page.Limit)
	assert.Equal(t, books.ID, f.products.lastFilter.CategoryID)
	assert.Equal(t, 100, f.products.lastFilter.Offset)
	assert.True(t, f.products.lastFilter.ActiveOnly)

	_, err = f.svc.ListProducts(context.Background(), ProductQuery{CategorySlug: "nope"})
	assert.Equal(t, apperror.KindNotFound, apperror.From(err).Kind)

	lo, hi := int64(500), int64(100)
	_, err = f.svc.ListProducts(context.Background(), ProductQuery{MinPriceCents: &lo, MaxPriceCents: &hi})
	assert.Equal(t, apperror.KindValidation, apperror.From(err).Kind)
}

func TestGetProduct_ReadsThroughCache(t *testing.T) {
	f := newCatalogFixture()
	c := f.category(t, "Books")
	p := f.product(t, c.ID, "Go in Action")

	got, err := f.svc.GetProduct(context.Background(), p.Slug)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
	assert.Contains(t, f.cache.items, p.Slug)

	delete(f.products.items, p.ID)
	cached, err := f.svc.GetProduct(context.Background(), p.Slug)
	require.NoError(t, err)
	assert.Equal(t, p.ID, cached.ID)
}

func TestGetProduct_InactiveIsNotFound(t *testing.T) {
	f := newCatalogFixture()
	c := f.category(t, "Books")
	inactive := false
	p, err := f.svc.CreateProduct(context.Background(), f.admin, ProductInput{CategoryID: c.ID, Name: "Draft", IsActive: &inactive})
	require.NoError(t, err)

	_, err = f.svc.GetProduct(context.Background(), p.Slug)
	assert.Equal(t, apperror.KindNotFound, apperror.From(err).Kind)
	assert.Empty(t, f.cache.items)
}

func TestUpdateProduct_InvalidatesOldAndNewSlug(t *testing.T) {
	f := newCatalogFixture()
	c := f.category(t, "Books")
	p := f.product(t, c.ID, "Go in Action")
	_, err := f.svc.GetProduct(context.Background(), p.Slug)
	require.NoError(t, err)

	updated, err := f.svc.UpdateProduct(context.Background(), p.ID, ProductInput{
		CategoryID: c.ID,
		Name:       "Go in Action 2nd Edition",
		PriceCents: 2999,
	})
	require.NoError(t, err)

	assert.Equal(t, "go-in-action-2nd-edition", updated.Slug)
	assert.ElementsMatch(t, []string{"go-in-action", "go-in-action-2nd-edition"}, f.cache.invalidated)
	assert.NotContains(t, f.cache.items, "go-in-action")
}

func TestUploadProductImage_SwapsFiles(t *testing.T) {
	f := newCatalogFixture()
	c := f.category(t, "Books")
	p := f.product(t, c.ID, "Go in Action")

	first, err := f.svc.UploadProductImage(context.Background(), p.ID, strings.NewReader("one"))
	require.NoError(t, err)
	assert.Empty(t, f.images.deleted)

	second, err := f.svc.UploadProductImage(context.Background(), p.ID, strings.NewReader("two"))
	require.NoError(t, err)

	assert.NotEqual(t, first.ImagePath, second.ImagePath)
	assert.ElementsMatch(t, []string{first.ImagePath, first.ThumbnailPath}, f.images.deleted)
	assert.Equal(t, second.ImagePath, f.products.items[p.ID].ImagePath)
	assert.Contains(t, f.cache.invalidated, p.Slug)
}

func TestUploadProductImage_RemovesNewFilesOnFailure(t *testing.T) {
	f := newCatalogFixture()
	c := f.category(t, "Books")
	p := f.product(t, c.ID, "Go in Action")
	f.products.failUpdate = errors.New("db down")

	_, err := f.svc.UploadProductImage(context.Background(), p.ID, strings.NewReader("img"))
	require.Error(t, err)

	assert.Len(t, f.images.saved, 2)
	assert.ElementsMatch(t, f.images.saved, f.images.deleted)
}

func TestUploadProductImage_UnknownProduct(t *testing.T) {
	f := newCatalogFixture()

	_, err := f.svc.UploadProductImage(context.Background(), "missing", strings.NewReader("img"))
	assert.Equal(t, apperror.KindNotFound, apperror.From(err).Kind)
	assert.ElementsMatch(t, f.images.saved, f.images.deleted)
}

func TestDeleteProduct_RemovesFiles(t *testing.T) {
	f := newCatalogFixture()
	c := f.category(t, "Books")
	p := f.product(t, c.ID, "Go in Action")
	uploaded, err := f.svc.UploadProductImage(context.Background(), p.ID, strings.NewReader("img"))
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteProduct(context.Background(), p.ID))

	assert.Contains(t, f.images.deleted, uploaded.ImagePath)
	assert.Contains(t, f.images.deleted, uploaded.ThumbnailPath)
	assert.NotContains(t, f.products.items, p.ID)

	err = f.svc.DeleteProduct(context.Background(), p.ID)
	assert.Equal(t, apperror.KindNotFound, apperror.From(err).Kind)
}
