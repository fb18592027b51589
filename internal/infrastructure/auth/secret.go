package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// SecretGuard checks plain secrets against a bcrypt hash
type SecretGuard struct {
	hash []byte
}

// NewSecretGuard create a guard from a bcrypt hash, an empty hash rejects every secret
func NewSecretGuard(hash string) *SecretGuard {
	return &SecretGuard{hash: []byte(hash)}
}

// Enabled whether a hash is configured
func (sg *SecretGuard) Enabled() bool {
	return len(sg.hash) > 0
}

// Verify report whether secret matches the configured hash
func (sg *SecretGuard) Verify(secret string) (bool, error) {
	if !sg.Enabled() || secret == "" {
		return false, nil
	}
	err := bcrypt.CompareHashAndPassword(sg.hash, []byte(secret))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, err
}

// HashSecret produce the bcrypt hash stored in config
func HashSecret(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
