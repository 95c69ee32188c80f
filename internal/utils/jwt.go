package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/prperemyshlev/storefront-api/internal/domain"
)

// ErrInvalidToken covers malformed, expired, badly signed and wrong-purpose tokens alike
var ErrInvalidToken = errors.New("invalid token")

// JWTManager signs and verifies self-contained tokens
type JWTManager struct {
	secret            []byte
	accessTokenExpiry time.Duration
	resetTokenExpiry  time.Duration
	now               func() time.Time
}

// NewJWTManager creates a new JWT manager
func NewJWTManager(secret string, accessTokenExpiry, resetTokenExpiry time.Duration) *JWTManager {
	return &JWTManager{
		secret:            []byte(secret),
		accessTokenExpiry: accessTokenExpiry,
		resetTokenExpiry:  resetTokenExpiry,
		now:               time.Now,
	}
}

// GenerateAccessToken signs an access token; ttl <= 0 uses the configured default
func (j *JWTManager) GenerateAccessToken(userID string, role domain.Role, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = j.accessTokenExpiry
	}

	now := j.now()
	claims := jwt.MapClaims{
		"user_id": userID,
		"role":    string(role),
		"type":    domain.TokenTypeAccess,
		"jti":     uuid.NewString(),
		"exp":     now.Add(ttl).Unix(),
		"iat":     now.Unix(),
	}

	return j.sign(claims)
}

// ValidateAccessToken verifies an access token and returns its claims
func (j *JWTManager) ValidateAccessToken(tokenString string) (*domain.TokenClaims, error) {
	claims, err := j.parse(tokenString, domain.TokenTypeAccess)
	if err != nil {
		return nil, err
	}

	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return nil, fmt.Errorf("missing user_id: %w", ErrInvalidToken)
	}

	role, ok := claims["role"].(string)
	if !ok || !domain.Role(role).Valid() {
		return nil, fmt.Errorf("invalid role: %w", ErrInvalidToken)
	}

	exp, _ := claims["exp"].(float64)
	iat, _ := claims["iat"].(float64)

	return &domain.TokenClaims{
		UserID: userID,
		Role:   domain.Role(role),
		Exp:    int64(exp),
		Iat:    int64(iat),
	}, nil
}

// GeneratePasswordResetToken signs a short-lived token bound to the account's current email
func (j *JWTManager) GeneratePasswordResetToken(userID, email string) (string, error) {
	now := j.now()
	claims := jwt.MapClaims{
		"user_id": userID,
		"email":   email,
		"type":    domain.TokenTypePasswordReset,
		"jti":     uuid.New().String(),
		"exp":     now.Add(j.resetTokenExpiry).Unix(),
		"iat":     now.Unix(),
	}

	return j.sign(claims)
}

// ValidatePasswordResetToken verifies a reset token and returns its claims
func (j *JWTManager) ValidatePasswordResetToken(tokenString string) (*domain.ResetClaims, error) {
	claims, err := j.parse(tokenString, domain.TokenTypePasswordReset)
	if err != nil {
		return nil, err
	}

	userID, _ := claims["user_id"].(string)
	email, _ := claims["email"].(string)
	jti, _ := claims["jti"].(string)
	if userID == "" || email == "" || jti == "" {
		return nil, fmt.Errorf("incomplete reset claims: %w", ErrInvalidToken)
	}

	exp, _ := claims["exp"].(float64)

	return &domain.ResetClaims{
		UserID: userID,
		Email:  email,
		ID:     jti,
		Exp:    int64(exp),
	}, nil
}

// GetAccessTokenExpiry returns the access token expiry duration in seconds
func (j *JWTManager) GetAccessTokenExpiry() int {
	return int(j.accessTokenExpiry.Seconds())
}

// GetResetTokenExpiry returns how long password reset tokens live
func (j *JWTManager) GetResetTokenExpiry() time.Duration {
	return j.resetTokenExpiry
}

func (j *JWTManager) sign(claims jwt.MapClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(j.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

func (j *JWTManager) parse(tokenString, expectedType string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims: %w", ErrInvalidToken)
	}

	if claims["type"] != expectedType {
		return nil, fmt.Errorf("unexpected token type: %w", ErrInvalidToken)
	}

	return claims, nil
}
