package security

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the default floor for new passwords, used when no
// policy length is configured.
const MinPasswordLength = 8

// PolicyMinLength resolves the configured minimum password length, falling
// back to the default when unset.
func PolicyMinLength(configured int) int {
	if configured < 1 {
		return MinPasswordLength
	}
	return configured
}

var ErrWeakPassword = errors.New("password does not meet the minimum length policy")

// HashPassword hashes a plain text password with bcrypt.
func HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)

	if err != nil {
		return "", err
	}

	return string(hash), nil
}

// helper that compares a bcrypt hash with a plaintext password.

func CheckPassword(hash, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
}

// ValidateNewPassword applies the password policy to a candidate password.
// The same check runs at registration and at password reset.
func ValidateNewPassword(plain string, minLen int) error {
	if len(plain) < PolicyMinLength(minLen) {
		return ErrWeakPassword
	}
	return nil
}
