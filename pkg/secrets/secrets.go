// Package secrets mints and checks the API keys agents present to the tools API.
package secrets

import (
	"crypto/rand"
	"encoding/base64"
	"errors"

	"golang.org/x/crypto/bcrypt"

	dErrors "agentconsent/pkg/domain-errors"
)

const (
	keyPrefix = "ack_"
	keyBytes  = 32
)

// Generate returns a new random API key of the form ack_<base64url>.
func Generate() (string, error) {
	buf := make([]byte, keyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "could not generate api key")
	}
	return keyPrefix + base64.RawURLEncoding.EncodeToString(buf), nil
}

// Hash returns the bcrypt form of key for an API_KEYS entry.
func Hash(key string) (string, error) {
	if key == "" {
		return "", dErrors.New(dErrors.CodeValidation, "api key cannot be empty")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	switch {
	case errors.Is(err, bcrypt.ErrPasswordTooLong):
		return "", dErrors.New(dErrors.CodeValidation, "api key is too long")
	case err != nil:
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "could not hash api key")
	}
	return string(hashed), nil
}

// Verify reports whether key matches hash. A mismatch is CodeUnauthorized.
func Verify(key, hash string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(key))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return dErrors.New(dErrors.CodeUnauthorized, "invalid api key")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "could not verify api key")
	}
}
