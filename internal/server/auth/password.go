// Package auth implements the credential and token primitives of the server:
// bcrypt password hashing and the HS256 token codec.
package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/authvault/authvault/internal/common"
)

// PasswordHasher derives and verifies salted bcrypt hashes with a
// configurable work factor.
type PasswordHasher struct {
	cost int
}

// NewPasswordHasher returns a hasher with the given bcrypt cost. Costs
// outside bcrypt's supported range fall back to the library default.
func NewPasswordHasher(cost int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &PasswordHasher{cost: cost}
}

// Hash derives a salted hash from password. Each call embeds a fresh random
// salt, so hashing the same password twice yields different strings.
func (h *PasswordHasher) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Verify reports whether password matches the stored hash. A mismatch is
// (false, nil); a stored value that is not a valid bcrypt hash returns
// common.ErrInvalidHashFormat.
func (h *PasswordHasher) Verify(password, hash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, common.ErrInvalidHashFormat
	}
}
