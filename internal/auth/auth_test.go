package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	token, err := GenerateToken("user-1", "test-secret", time.Hour)
	require.NoError(t, err)

	userID, err := ParseToken(token, "test-secret")
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
}

func TestParseTokenWrongSecret(t *testing.T) {
	token, err := GenerateToken("user-1", "test-secret", time.Hour)
	require.NoError(t, err)

	_, err = ParseToken(token, "other-secret")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestParseTokenExpired(t *testing.T) {
	token, err := GenerateToken("user-1", "test-secret", -time.Minute)
	require.NoError(t, err)

	_, err = ParseToken(token, "test-secret")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestParseTokenGarbage(t *testing.T) {
	_, err := ParseToken("not-a-token", "test-secret")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter2hunter2")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter2hunter2", hash)

	assert.True(t, CheckPassword("hunter2hunter2", hash))
	assert.False(t, CheckPassword("wrong", hash))
}
