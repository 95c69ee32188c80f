package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prperemyshlev/storefront-api/internal/domain"
	"github.com/prperemyshlev/storefront-api/internal/repository"
)

type fakeCategories struct {
	mu    sync.Mutex
	items map[string]domain.Category
	// inUse marks categories whose delete hits a foreign key
	inUse map[string]bool
}

func newFakeCategories() *fakeCategories {
	return &fakeCategories{items: make(map[string]domain.Category), inUse: make(map[string]bool)}
}

func (r *fakeCategories) slugTaken(id, slug string) bool {
	for _, c := range r.items {
		if c.ID != id && c.Slug == slug {
			return true
		}
	}
	return false
}

func (r *fakeCategories) Create(_ context.Context, c *domain.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.slugTaken("", c.Slug) {
		return repository.ErrDuplicateSlug
	}
	c.ID = uuid.NewString()
	c.CreatedAt, c.UpdatedAt = time.Now(), time.Now()
	r.items[c.ID] = *c
	return nil
}

func (r *fakeCategories) GetByID(_ context.Context, id string) (*domain.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (r *fakeCategories) GetBySlug(_ context.Context, slug string) (*domain.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range r.items {
		if c.Slug == slug {
			cp := c
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeCategories) List(_ context.Context, activeOnly bool) ([]*domain.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := []*domain.Category{}
	for _, c := range r.items {
		if activeOnly && !c.IsActive {
			continue
		}
		cp := c
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakeCategories) Update(_ context.Context, c *domain.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[c.ID]; !ok {
		return repository.ErrNotFound
	}
	if r.slugTaken(c.ID, c.Slug) {
		return repository.ErrDuplicateSlug
	}
	r.items[c.ID] = *c
	return nil
}

func (r *fakeCategories) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return repository.ErrNotFound
	}
	if r.inUse[id] {
		return repository.ErrInUse
	}
	delete(r.items, id)
	return nil
}

type fakeProducts struct {
	mu         sync.Mutex
	items      map[string]domain.Product
	lastFilter domain.ProductFilter
	failUpdate error
}

func newFakeProducts() *fakeProducts {
	return &fakeProducts{items: make(map[string]domain.Product)}
}

func (r *fakeProducts) slugTaken(id, slug string) bool {
	for _, p := range r.items {
		if p.ID != id && p.Slug == slug {
			return true
		}
	}
	return false
}

func (r *fakeProducts) Create(_ context.Context, p *domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.slugTaken("", p.Slug) {
		return repository.ErrDuplicateSlug
	}
	p.ID = uuid.NewString()
	p.CreatedAt, p.UpdatedAt = time.Now(), time.Now()
	r.items[p.ID] = *p
	return nil
}

func (r *fakeProducts) GetByID(_ context.Context, id string) (*domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r *fakeProducts) GetBySlug(_ context.Context, slug string) (*domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range r.items {
		if p.Slug == slug {
			cp := p
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeProducts) List(_ context.Context, f domain.ProductFilter) ([]*domain.Product, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lastFilter = f
	out := []*domain.Product{}
	for _, p := range r.items {
		if f.ActiveOnly && !p.IsActive {
			continue
		}
		if f.CategoryID != "" && p.CategoryID != f.CategoryID {
			continue
		}
		if f.Query != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(f.Query)) {
			continue
		}
		cp := p
		out = append(out, &cp)
	}
	return out, len(out), nil
}

func (r *fakeProducts) Update(_ context.Context, p *domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failUpdate != nil {
		return r.failUpdate
	}
	if _, ok := r.items[p.ID]; !ok {
		return repository.ErrNotFound
	}
	if r.slugTaken(p.ID, p.Slug) {
		return repository.ErrDuplicateSlug
	}
	r.items[p.ID] = *p
	return nil
}

func (r *fakeProducts) UpdateImage(_ context.Context, id, imagePath, thumbnailPath string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failUpdate != nil {
		return r.failUpdate
	}
	p, ok := r.items[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.ImagePath, p.ThumbnailPath = imagePath, thumbnailPath
	r.items[id] = p
	return nil
}

func (r *fakeProducts) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.items, id)
	return nil
}

type fakeComments struct {
	mu    sync.Mutex
	items []*domain.Comment
}

func (r *fakeComments) Create(_ context.Context, c *domain.Comment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c.ID = uuid.NewString()
	c.CreatedAt = time.Now().Add(time.Duration(len(r.items)) * time.Second)
	cp := *c
	r.items = append(r.items, &cp)
	return nil
}

func (r *fakeComments) GetByID(_ context.Context, id string) (*domain.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range r.items {
		if c.ID == id {
			cp := *c
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeComments) ListApprovedByProduct(_ context.Context, productID string) ([]*domain.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*domain.Comment
	for _, c := range r.items {
		if c.ProductID == productID && c.IsApproved {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeComments) ListPending(_ context.Context, limit, offset int) ([]*domain.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*domain.Comment
	for _, c := range r.items {
		if !c.IsApproved {
			cp := *c
			out = append(out, &cp)
		}
	}
	if offset >= len(out) {
		return []*domain.Comment{}, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeComments) Approve(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range r.items {
		if c.ID == id {
			c.IsApproved = true
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r *fakeComments) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, c := range r.items {
		if c.ID == id {
			r.items = append(r.items[:i], r.items[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

type fakeReviews struct {
	mu    sync.Mutex
	items []*domain.Review
}

func (r *fakeReviews) find(id string) *domain.Review {
	for _, rv := range r.items {
		if rv.ID == id {
			return rv
		}
	}
	return nil
}

func (r *fakeReviews) Create(_ context.Context, rv *domain.Review) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.items {
		if existing.ProductID == rv.ProductID && existing.UserID == rv.UserID {
			return repository.ErrDuplicateReview
		}
	}
	rv.ID = uuid.NewString()
	cp := *rv
	r.items = append(r.items, &cp)
	return nil
}

func (r *fakeReviews) GetByID(_ context.Context, id string) (*domain.Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rv := r.find(id)
	if rv == nil {
		return nil, repository.ErrNotFound
	}
	cp := *rv
	return &cp, nil
}

func (r *fakeReviews) Update(_ context.Context, rv *domain.Review) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing := r.find(rv.ID)
	if existing == nil {
		return repository.ErrNotFound
	}
	*existing = *rv
	return nil
}

func (r *fakeReviews) ListApprovedByProduct(_ context.Context, productID string) ([]*domain.Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*domain.Review
	for _, rv := range r.items {
		if rv.ProductID == productID && rv.IsApproved {
			cp := *rv
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeReviews) AverageRating(_ context.Context, productID string) (float64, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sum, n := 0, 0
	for _, rv := range r.items {
		if rv.ProductID == productID && rv.IsApproved {
			sum += rv.Rating
			n++
		}
	}
	if n == 0 {
		return 0, 0, nil
	}
	return float64(sum) / float64(n), n, nil
}

func (r *fakeReviews) ListPending(_ context.Context, limit, offset int) ([]*domain.Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*domain.Review
	for _, rv := range r.items {
		if !rv.IsApproved {
			cp := *rv
			out = append(out, &cp)
		}
	}
	if offset >= len(out) {
		return []*domain.Review{}, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeReviews) Approve(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rv := r.find(id)
	if rv == nil {
		return repository.ErrNotFound
	}
	rv.IsApproved = true
	return nil
}

func (r *fakeReviews) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, rv := range r.items {
		if rv.ID == id {
			r.items = append(r.items[:i], r.items[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}
