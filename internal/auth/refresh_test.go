package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRefreshToken(t *testing.T) {
	plain, hash := NewRefreshToken()
	require.NotEmpty(t, plain)
	require.Len(t, hash, 64) // hex-encoded SHA-256

	// The stored form must be derivable from the plaintext and never
	// equal to it.
	assert.Equal(t, hash, HashRefreshToken(plain))
	assert.NotEqual(t, plain, hash)

	// Two tokens never collide.
	plain2, hash2 := NewRefreshToken()
	assert.NotEqual(t, plain, plain2)
	assert.NotEqual(t, hash, hash2)
}
