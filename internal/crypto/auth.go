package crypto

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"

	"golang.org/x/crypto/pbkdf2"
)

var salt = []byte("studyblock-api-salt")

// HashAPIKey derives the value stored as api_key_hash in the config.
func HashAPIKey(key string) string {
	derived := pbkdf2.Key([]byte(key), salt, 10000, 32, sha256.New)
	return hex.EncodeToString(derived)
}

// ValidateAPIKey compares a presented key against a stored hash.
func ValidateAPIKey(key, expectedHash string) bool {
	if key == "" || expectedHash == "" {
		return false
	}
	generated := HashAPIKey(key)
	return subtle.ConstantTimeCompare([]byte(generated), []byte(expectedHash)) == 1
}
