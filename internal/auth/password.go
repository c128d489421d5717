package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// bcryptCost is fixed so hashing stays uniformly expensive; bcrypt embeds
// the cost and a fresh salt in every output, so hashing the same plaintext
// twice yields different opaque strings.
const bcryptCost = 10

// HashPassword derives an opaque one-way hash from a plaintext password.
// The plaintext is never logged or returned.
func HashPassword(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether plaintext matches the stored hash. bcrypt's
// comparison uses the salt embedded in the hash and does not short-circuit
// on the first differing byte.
func CheckPassword(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}
