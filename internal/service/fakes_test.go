package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prperemyshlev/storefront-api/internal/domain"
	"github.com/prperemyshlev/storefront-api/internal/repository"
	"github.com/prperemyshlev/storefront-api/internal/utils"
	"github.com/prperemyshlev/storefront-api/pkg/observability"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"
)

// fakeTx runs callbacks after fn succeeds; in-memory stores have no rollback
type fakeTx struct{}

type fakeTxKey struct{}

func newFakeTx() *fakeTx {
	return &fakeTx{}
}

func (f *fakeTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(fakeTxKey{}).(*[]func()); ok {
		return fn(ctx)
	}

	var callbacks []func()
	if err := fn(context.WithValue(ctx, fakeTxKey{}, &callbacks)); err != nil {
		return err
	}

	for _, cb := range callbacks {
		cb()
	}
	return nil
}

func (f *fakeTx) AfterCommit(ctx context.Context, fn func()) {
	if callbacks, ok := ctx.Value(fakeTxKey{}).(*[]func()); ok {
		*callbacks = append(*callbacks, fn)
		return
	}
	fn()
}

type fakeUsers struct {
	mu    sync.Mutex
	byID  map[string]domain.Account
	order []string
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: make(map[string]domain.Account)}
}

func (r *fakeUsers) Create(_ context.Context, user *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.byID {
		if u.Email == user.Email {
			return fmt.Errorf("create: %w", repository.ErrDuplicateEmail)
		}
		if u.Username == user.Username {
			return fmt.Errorf("create: %w", repository.ErrDuplicateUsername)
		}
	}

	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now()
	user.CreatedAt, user.UpdatedAt = now, now
	r.byID[user.ID] = *user
	r.order = append(r.order, user.ID)
	return nil
}

func (r *fakeUsers) GetByEmail(_ context.Context, email string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.byID {
		if u.Email == email {
			cp := u
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("get: %w", repository.ErrNotFound)
}

func (r *fakeUsers) GetByID(_ context.Context, id string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("get: %w", repository.ErrNotFound)
	}
	return &u, nil
}

func (r *fakeUsers) List(_ context.Context, limit, offset int) ([]*domain.Account, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*domain.Account
	for i := offset; i < len(r.order) && len(out) < limit; i++ {
		u := r.byID[r.order[i]]
		out = append(out, &u)
	}
	return out, len(r.order), nil
}

func (r *fakeUsers) update(id string, fn func(u *domain.Account) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return fmt.Errorf("update: %w", repository.ErrNotFound)
	}
	if err := fn(&u); err != nil {
		return err
	}
	r.byID[id] = u
	return nil
}

func (r *fakeUsers) UpdatePassword(_ context.Context, userID, passwordHash string) error {
	return r.update(userID, func(u *domain.Account) error {
		u.PasswordHash = passwordHash
		return nil
	})
}

func (r *fakeUsers) UpdateProfile(_ context.Context, user *domain.Account) error {
	r.mu.Lock()
	for id, u := range r.byID {
		if id != user.ID && u.Username == user.Username {
			r.mu.Unlock()
			return fmt.Errorf("update: %w", repository.ErrDuplicateUsername)
		}
	}
	r.mu.Unlock()

	return r.update(user.ID, func(u *domain.Account) error {
		u.Username = user.Username
		u.Phone = user.Phone
		return nil
	})
}

func (r *fakeUsers) SetActive(_ context.Context, userID string, active bool) error {
	return r.update(userID, func(u *domain.Account) error {
		u.IsActive = active
		return nil
	})
}

func (r *fakeUsers) UpdateLastLogin(_ context.Context, userID string, at time.Time) error {
	return r.update(userID, func(u *domain.Account) error {
		u.LastLoginAt = &at
		return nil
	})
}

type fakeTokens struct {
	mu     sync.Mutex
	byHash map[string]*domain.RefreshToken
}

func newFakeTokens() *fakeTokens {
	return &fakeTokens{byHash: make(map[string]*domain.RefreshToken)}
}

func (r *fakeTokens) Create(_ context.Context, token *domain.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byHash[token.TokenHash]; ok {
		return repository.ErrDuplicateToken
	}
	if token.ID == "" {
		token.ID = uuid.NewString()
	}
	cp := *token
	r.byHash[token.TokenHash] = &cp
	return nil
}

func (r *fakeTokens) GetByTokenHash(_ context.Context, tokenHash string) (*domain.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.byHash[tokenHash]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *fakeTokens) Revoke(_ context.Context, tokenHash string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.byHash[tokenHash]
	if !ok || t.IsRevoked {
		return false, nil
	}
	t.IsRevoked = true
	return true, nil
}

func (r *fakeTokens) RevokeAllForUser(_ context.Context, userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for _, t := range r.byHash {
		if t.UserID == userID && !t.IsRevoked {
			t.IsRevoked = true
			n++
		}
	}
	return n, nil
}

func (r *fakeTokens) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for h, t := range r.byHash {
		if t.ExpiresAt.Before(before) {
			delete(r.byHash, h)
			n++
		}
	}
	return n, nil
}

type fakeOTPs struct {
	mu   sync.Mutex
	rows []*domain.OTP
}

func (r *fakeOTPs) Create(_ context.Context, otp *domain.OTP) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if otp.ID == "" {
		otp.ID = uuid.NewString()
	}
	cp := *otp
	r.rows = append(r.rows, &cp)
	return nil
}

func (r *fakeOTPs) LatestUnused(_ context.Context, userID string) (*domain.OTP, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var candidates []*domain.OTP
	for _, o := range r.rows {
		if o.UserID == userID && !o.IsUsed {
			candidates = append(candidates, o)
		}
	}
	if len(candidates) == 0 {
		return nil, repository.ErrNotFound
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].CreatedAt.After(candidates[j].CreatedAt)
	})
	cp := *candidates[0]
	return &cp, nil
}

func (r *fakeOTPs) MarkUsed(_ context.Context, otpID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, o := range r.rows {
		if o.ID == otpID {
			if o.IsUsed {
				return false, nil
			}
			o.IsUsed = true
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeOTPs) InvalidateAll(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, o := range r.rows {
		if o.UserID == userID {
			o.IsUsed = true
		}
	}
	return nil
}

type fakeBlacklist struct {
	mu     sync.Mutex
	tokens map[string]time.Duration
}

func newFakeBlacklist() *fakeBlacklist {
	return &fakeBlacklist{tokens: make(map[string]time.Duration)}
}

func (b *fakeBlacklist) AddToken(_ context.Context, token string, expiry time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if expiry > 0 {
		b.tokens[token] = expiry
	}
	return nil
}

func (b *fakeBlacklist) IsTokenBlacklisted(_ context.Context, token string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.tokens[token]
	return ok, nil
}

type sentMail struct {
	to, username, secret string
}

type fakeNotifier struct {
	mu     sync.Mutex
	otps   []sentMail
	resets []sentMail
	err    error
}

func (n *fakeNotifier) SendOTP(_ context.Context, to, username, code string, _ time.Duration) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.otps = append(n.otps, sentMail{to, username, code})
	return n.err
}

func (n *fakeNotifier) SendPasswordReset(_ context.Context, to, username, token string, _ time.Duration) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.resets = append(n.resets, sentMail{to, username, token})
	return n.err
}

func (n *fakeNotifier) lastOTP() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.otps) == 0 {
		return ""
	}
	return n.otps[len(n.otps)-1].secret
}

type fakeImages struct {
	saved   []string
	deleted []string
}

func (f *fakeImages) Save(r io.Reader) (string, string, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return "", "", err
	}
	id := uuid.NewString()
	image, thumb := "/uploads/"+id+".jpg", "/uploads/"+id+"_thumb.jpg"
	f.saved = append(f.saved, image, thumb)
	return image, thumb, nil
}

func (f *fakeImages) Delete(paths ...string) error {
	for _, p := range paths {
		if p != "" {
			f.deleted = append(f.deleted, p)
		}
	}
	return nil
}

type fakeCache struct {
	items       map[string]domain.Product
	invalidated []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{items: make(map[string]domain.Product)}
}

func (c *fakeCache) Get(_ context.Context, slug string) (*domain.Product, error) {
	p, ok := c.items[slug]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (c *fakeCache) Set(_ context.Context, product *domain.Product) error {
	c.items[product.Slug] = *product
	return nil
}

func (c *fakeCache) Invalidate(_ context.Context, slugs ...string) error {
	for _, s := range slugs {
		delete(c.items, s)
		c.invalidated = append(c.invalidated, s)
	}
	return nil
}

const testJWTSecret = "test-secret-key-that-is-at-least-32-characters-long"

// authFixture wires the auth service to in-memory collaborators
type authFixture struct {
	svc       *authService
	users     *fakeUsers
	tokens    *fakeTokens
	otps      *fakeOTPs
	blacklist *fakeBlacklist
	notifier  *fakeNotifier
	jwt       *utils.JWTManager
	issuer    *TokenIssuer
	otpMgr    *OTPManager
	tx        *fakeTx
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	f := &authFixture{
		users:     newFakeUsers(),
		tokens:    newFakeTokens(),
		otps:      &fakeOTPs{},
		blacklist: newFakeBlacklist(),
		notifier:  &fakeNotifier{},
		jwt:       utils.NewJWTManager(testJWTSecret, time.Hour, 15*time.Minute),
		tx:        newFakeTx(),
	}
	f.issuer = NewTokenIssuer(f.jwt, f.tokens, 7*24*time.Hour)
	f.otpMgr = NewOTPManager(f.otps, 5*time.Minute)

	metrics, err := observability.NewAuthMetrics(noop.NewMeterProvider().Meter("test"))
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}

	f.svc = NewAuthService(
		f.users,
		f.tx,
		f.issuer,
		f.otpMgr,
		f.jwt,
		f.blacklist,
		f.notifier,
		metrics,
		zap.NewNop(),
		AuthConfig{BCryptCost: 4, OTPResendGrace: 30 * time.Second},
	).(*authService)

	return f
}

// setNow pins every clock in the fixture
func (f *authFixture) setNow(now time.Time) {
	clock := func() time.Time { return now }
	f.svc.now = clock
	f.issuer.now = clock
	f.otpMgr.now = clock
}
