package domain

import "time"

// Role is the closed set of account roles
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// ID returns the primary key of the role row seeded by migrations
func (r Role) ID() int {
	switch r {
	case RoleAdmin:
		return 1
	case RoleUser:
		return 2
	default:
		return 0
	}
}

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	return r.ID() != 0
}

// RoleFromID maps a roles.id value back to the enumeration
func RoleFromID(id int) (Role, bool) {
	switch id {
	case 1:
		return RoleAdmin, true
	case 2:
		return RoleUser, true
	default:
		return "", false
	}
}

// RoleInfo mirrors a row of the roles table
type RoleInfo struct {
	ID          int    `json:"id" db:"id"`
	Name        Role   `json:"name" db:"name"`
	Description string `json:"description" db:"description"`
}

// Account is a customer or administrator
type Account struct {
	ID           string     `json:"id" db:"id"`
	Username     string     `json:"username" db:"username"`
	Email        string     `json:"email" db:"email"`
	PasswordHash string     `json:"-" db:"password_hash"`
	Phone        *string    `json:"phone" db:"phone"`
	Role         Role       `json:"role" db:"role_id"`
	IsActive     bool       `json:"isActive" db:"is_active"`
	CreatedAt    time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time  `json:"updatedAt" db:"updated_at"`
	LastLoginAt  *time.Time `json:"lastLoginAt" db:"last_login_at"`
}
