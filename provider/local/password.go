package local

import (
	"crypto/rand"
	"encoding/base64"
	"errors"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	// MinPasswordLength is the shortest password accepted.
	MinPasswordLength = 6
	// DefaultPasswordCost is the bcrypt cost used outside tests.
	DefaultPasswordCost = 12
)

var errEmptyPassword = errors.New("password must not be empty")

func hashPassword(password string, cost int) (string, error) {
	if password == "" {
		return "", errEmptyPassword
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	return string(h), err
}

// passwordMatches is false for accounts without a password, such as OAuth
// only accounts.
func passwordMatches(password, hash string) bool {
	if password == "" || hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// randomPasswordHash locks password sign-in for accounts created through
// OAuth until they go through recovery.
func randomPasswordHash(cost int) (string, error) {
	return hashPassword(uuid.NewString(), cost)
}

// newSecret returns a URL safe random secret for mailed links.
func newSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
