// internal/auth/auth_test.go
package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAPIKey(t *testing.T) {
	key, err := GenerateAPIKey()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(key, APIKeyPrefix))
	// prefix + hex of 32 random bytes
	assert.Len(t, key, len(APIKeyPrefix)+64)
	assert.True(t, HasAPIKeyShape(key))

	// Two keys must never collide.
	other, err := GenerateAPIKey()
	require.NoError(t, err)
	assert.NotEqual(t, key, other)
}

func TestHasAPIKeyShape(t *testing.T) {
	assert.True(t, HasAPIKeyShape("nbs_abc123"))
	assert.False(t, HasAPIKeyShape("nbs_"))
	assert.False(t, HasAPIKeyShape("sk_live_abc123"))
	assert.False(t, HasAPIKeyShape(""))
}

func TestJWTRoundTrip(t *testing.T) {
	const secret = "test-secret-key"

	t.Run("Valid Token", func(t *testing.T) {
		token, err := GenerateJWT("user-123", "member", secret, time.Hour)
		require.NoError(t, err)

		userID, role, err := ValidateJWT(token, secret)
		require.NoError(t, err)
		assert.Equal(t, "user-123", userID)
		assert.Equal(t, "member", role)
	})

	t.Run("Admin Role Survives", func(t *testing.T) {
		token, err := GenerateJWT("user-admin", "admin", secret, time.Hour)
		require.NoError(t, err)

		_, role, err := ValidateJWT(token, secret)
		require.NoError(t, err)
		assert.Equal(t, "admin", role)
	})

	t.Run("Wrong Secret", func(t *testing.T) {
		token, err := GenerateJWT("user-123", "", secret, time.Hour)
		require.NoError(t, err)

		_, _, err = ValidateJWT(token, "a-different-secret")
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("Expired Token", func(t *testing.T) {
		token, err := GenerateJWT("user-123", "", secret, -time.Minute)
		require.NoError(t, err)

		_, _, err = ValidateJWT(token, secret)
		assert.ErrorIs(t, err, ErrTokenExpired)
	})

	t.Run("Malformed Token", func(t *testing.T) {
		_, _, err := ValidateJWT("not.a.jwt", secret)
		assert.ErrorIs(t, err, ErrTokenMalformed)
	})
}
