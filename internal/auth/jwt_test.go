package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidateToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "unit-test-secret")

	token, err := GenerateToken(42, "ADMIN")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	userID, role, err := ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), userID)
	assert.Equal(t, "ADMIN", role)
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	t.Setenv("JWT_SECRET", "unit-test-secret")

	claims := jwt.MapClaims{
		"sub":  int64(42),
		"role": "USER",
		"exp":  time.Now().Add(-time.Minute).Unix(),
		"iat":  time.Now().Add(-2 * time.Hour).Unix(),
	}
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).
		SignedString([]byte("unit-test-secret"))
	require.NoError(t, err)

	_, _, err = ValidateToken(expired)
	assert.Error(t, err)
}

func TestValidateTokenRejectsWrongKey(t *testing.T) {
	t.Setenv("JWT_SECRET", "unit-test-secret")
	token, err := GenerateToken(7, "USER")
	require.NoError(t, err)

	t.Setenv("JWT_SECRET", "a-different-secret")
	_, _, err = ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	t.Setenv("JWT_SECRET", "unit-test-secret")
	_, _, err := ValidateToken("not.a.token")
	assert.Error(t, err)
}
