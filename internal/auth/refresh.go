package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// RefreshTokenTTL bounds how long a session can be kept alive without
// re-entering credentials.
const RefreshTokenTTL = 30 * 24 * time.Hour

// NewRefreshToken mints an opaque refresh-token value. The plaintext
// goes to the client (HTTP-only cookie); only the hash is stored, so a
// leaked database dump cannot be replayed as live sessions.
func NewRefreshToken() (plaintext, hash string) {
	plaintext = uuid.New().String()
	return plaintext, HashRefreshToken(plaintext)
}

// HashRefreshToken maps a refresh-token value to its stored form.
func HashRefreshToken(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}
