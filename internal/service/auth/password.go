package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/phrazzld/eventhost/internal/platform/logger"
	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the shortest password HashPassword accepts.
const MinPasswordLength = 12

// PasswordVerifier defines the interface for comparing passwords.
type PasswordVerifier interface {
	// Compare compares a hashed password with its possible plaintext equivalent.
	// Returns nil on success, or an error on failure (e.g., mismatch).
	Compare(hashedPassword, password string) error
}

// BcryptVerifier implements PasswordVerifier using bcrypt.
type BcryptVerifier struct{}

// NewBcryptVerifier creates a new BcryptVerifier.
func NewBcryptVerifier() *BcryptVerifier {
	return &BcryptVerifier{}
}

// Compare implements the PasswordVerifier interface using bcrypt.
func (v *BcryptVerifier) Compare(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

// HashPassword returns the bcrypt hash of password at the default cost.
func HashPassword(password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// AdminAuthenticator checks passwords against the configured admin hash.
type AdminAuthenticator struct {
	hash     string
	verifier PasswordVerifier
}

// NewAdminAuthenticator creates an authenticator for the given bcrypt hash.
func NewAdminAuthenticator(hash string, verifier PasswordVerifier) *AdminAuthenticator {
	if verifier == nil {
		verifier = NewBcryptVerifier()
	}
	return &AdminAuthenticator{hash: hash, verifier: verifier}
}

// Authenticate returns ErrInvalidCredentials unless password matches.
// A malformed hash is reported as an internal error, not a mismatch.
func (a *AdminAuthenticator) Authenticate(ctx context.Context, password string) error {
	if password == "" {
		return ErrInvalidCredentials
	}

	err := a.verifier.Compare(a.hash, password)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return ErrInvalidCredentials
	default:
		logger.FromContext(ctx).Error("admin password hash could not be checked", "error", err)
		return fmt.Errorf("failed to verify password: %w", err)
	}
}
