package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/storefront-api/internal/domain"
	"github.com/prperemyshlev/storefront-api/internal/service"
	"github.com/stretchr/testify/mock"
)

type mockAuthService struct {
	mock.Mock
}

var _ service.AuthService = (*mockAuthService)(nil)

func (m *mockAuthService) result(args mock.Arguments) (*service.AuthResult, error) {
	r, _ := args.Get(0).(*service.AuthResult)
	return r, args.Error(1)
}

func (m *mockAuthService) Signup(ctx context.Context, in service.SignupInput) (*service.AuthResult, error) {
	return m.result(m.Called(ctx, in))
}

func (m *mockAuthService) VerifyOTP(ctx context.Context, account *domain.Account, code string) (*service.AuthResult, error) {
	return m.result(m.Called(ctx, account, code))
}

func (m *mockAuthService) ResendOTP(ctx context.Context, account *domain.Account) error {
	return m.Called(ctx, account).Error(0)
}

func (m *mockAuthService) Login(ctx context.Context, realm domain.Role, email, password string) (*service.AuthResult, error) {
	return m.result(m.Called(ctx, realm, email, password))
}

func (m *mockAuthService) ForgotPassword(ctx context.Context, realm domain.Role, email string) error {
	return m.Called(ctx, realm, email).Error(0)
}

func (m *mockAuthService) ResetPassword(ctx context.Context, realm domain.Role, token, newPassword string) error {
	return m.Called(ctx, realm, token, newPassword).Error(0)
}

func (m *mockAuthService) RefreshToken(ctx context.Context, realm domain.Role, refreshToken string) (*service.AuthResult, error) {
	return m.result(m.Called(ctx, realm, refreshToken))
}

func (m *mockAuthService) Logout(ctx context.Context, account *domain.Account, accessToken, refreshToken string) error {
	return m.Called(ctx, account, accessToken, refreshToken).Error(0)
}

func (m *mockAuthService) UpdatePassword(ctx context.Context, account *domain.Account, currentPassword, newPassword string) error {
	return m.Called(ctx, account, currentPassword, newPassword).Error(0)
}

func (m *mockAuthService) UpdateDetails(ctx context.Context, account *domain.Account, in service.UpdateDetailsInput) (*domain.Account, error) {
	args := m.Called(ctx, account, in)
	a, _ := args.Get(0).(*domain.Account)
	return a, args.Error(1)
}

func (m *mockAuthService) Authenticate(ctx context.Context, accessToken string) (*domain.Account, error) {
	args := m.Called(ctx, accessToken)
	a, _ := args.Get(0).(*domain.Account)
	return a, args.Error(1)
}

func (m *mockAuthService) SeedAdmin(ctx context.Context, username, email, password string) error {
	return m.Called(ctx, username, email, password).Error(0)
}

type stubLimiter struct {
	result service.RateLimitResult
	err    error
	keys   []string
}

func (l *stubLimiter) Allow(_ context.Context, key string, _ int, _ time.Duration) (service.RateLimitResult, error) {
	l.keys = append(l.keys, key)
	return l.result, l.err
}

// serve runs one request through router. body may be nil, a raw string or a value to encode.
func serve(router *gin.Engine, method, path, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, _ := json.Marshal(b)
		reader = bytes.NewBuffer(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := newRecorder(router, req)

	var decoded map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &decoded)
	return w, decoded
}

func newRecorder(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func customer(active bool) *domain.Account {
	return &domain.Account{
		ID:        "5d0f6a49-0c43-4c1f-9a57-4a7e4a0d8d11",
		Username:  "ana",
		Email:     "a@x.com",
		Role:      domain.RoleUser,
		IsActive:  active,
		CreatedAt: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func administrator(active bool) *domain.Account {
	a := customer(active)
	a.ID = "9a3c2f1e-7b6d-4e5f-8a9b-0c1d2e3f4a5b"
	a.Username = "root"
	a.Email = "root@x.com"
	a.Role = domain.RoleAdmin
	return a
}

func tokenPair() *domain.TokenPair {
	return &domain.TokenPair{
		AccessToken:  "access",
		RefreshToken: "refresh",
		TokenType:    "Bearer",
		ExpiresIn:    3600,
	}
}
