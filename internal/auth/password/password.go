package password

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	iterations = 100_000
	saltLen    = 16
	keyLen     = 32
)

// Hash derives a PBKDF2-HMAC-SHA256 credential encoded as "salt:hash".
func Hash(password string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	saltHex := hex.EncodeToString(salt)
	key := pbkdf2.Key([]byte(password), []byte(saltHex), iterations, keyLen, sha256.New)
	return saltHex + ":" + hex.EncodeToString(key), nil
}

// Verify checks whether a password matches the encoded credential.
// A malformed credential verifies as false, never as an error.
func Verify(password, encoded string) bool {
	saltHex, hashHex, ok := strings.Cut(encoded, ":")
	if !ok || saltHex == "" || hashHex == "" {
		return false
	}

	stored, err := hex.DecodeString(hashHex)
	if err != nil {
		return false
	}

	check := pbkdf2.Key([]byte(password), []byte(saltHex), iterations, len(stored), sha256.New)
	return subtle.ConstantTimeCompare(stored, check) == 1
}
