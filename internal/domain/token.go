package domain

import "time"

const (
	TokenTypeAccess        = "access"
	TokenTypePasswordReset = "password_reset"
)

// TokenClaims represents the claims of a verified access token
type TokenClaims struct {
	UserID string
	Role   Role
	Exp    int64
	Iat    int64
}

// ExpiresAt returns the expiry as time
func (tc TokenClaims) ExpiresAt() time.Time {
	return time.Unix(tc.Exp, 0)
}

// ResetClaims represents the claims of a verified password reset token
type ResetClaims struct {
	UserID string
	Email  string
	ID     string
	Exp    int64
}

// ExpiresAt returns the expiry as time
func (rc ResetClaims) ExpiresAt() time.Time {
	return time.Unix(rc.Exp, 0)
}

// TokenPair represents a pair of access and refresh tokens
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	TokenType    string `json:"tokenType"`
	ExpiresIn    int    `json:"expiresIn"`
}

// RefreshToken is a stored refresh token; only the SHA-256 digest is kept
type RefreshToken struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"userId" db:"user_id"`
	TokenHash string    `json:"-" db:"token_hash"`
	ExpiresAt time.Time `json:"expiresAt" db:"expires_at"`
	IsRevoked bool      `json:"isRevoked" db:"is_revoked"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// Usable reports whether the token can still be exchanged at now
func (t RefreshToken) Usable(now time.Time) bool {
	return !t.IsRevoked && now.Before(t.ExpiresAt)
}
