package utils

import (
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword hashes a password using bcrypt
func HashPassword(password string, cost int) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(bytes), nil
}

// CheckPasswordHash compares a password with a hash
func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// DecoyHash is compared against when the account does not exist so unknown emails
// cost the same bcrypt work as wrong passwords. It must use the cost of real hashes.
type DecoyHash struct {
	once sync.Once
	cost int
	hash []byte
}

// NewDecoyHash creates a decoy hashed lazily at cost
func NewDecoyHash(cost int) *DecoyHash {
	return &DecoyHash{cost: cost}
}

// Compare performs a throwaway comparison
func (d *DecoyHash) Compare(password string) {
	d.once.Do(func() {
		d.hash, _ = bcrypt.GenerateFromPassword([]byte("storefront-decoy-password"), d.cost)
	})
	_ = bcrypt.CompareHashAndPassword(d.hash, []byte(password))
}

// Cost reports the bcrypt cost of the decoy once it has been built
func (d *DecoyHash) Cost() (int, error) {
	return bcrypt.Cost(d.hash)
}
