// Package crypto supplies the bridge's random token generation and client
// secret hashing.
package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// tokenBytes is the entropy of every generated token. Session cookie values
// and generated secrets share this size.
const tokenBytes = 32

// GenerateSecureToken returns a base64url-encoded random token used for
// session cookie values, state parameters, and generated secrets.
func GenerateSecureToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return base64.URLEncoding.EncodeToString(buf), nil
}

// HashClientSecret bcrypt-hashes a registered client's secret. Only the hash
// is handed to the engine; the plaintext never leaves config loading.
func HashClientSecret(secret string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
}
