package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("secret123")
	require.NoError(t, err)
	assert.NotEqual(t, "secret123", hash)

	assert.True(t, VerifyPassword("secret123", hash))
	assert.False(t, VerifyPassword("wrong", hash))
	assert.False(t, VerifyPassword("secret123", "not-a-hash"))
}

func TestAccessTokenRoundTrip(t *testing.T) {
	secret := "test-secret"
	token, err := GenerateAccessToken(42, "alice", 30*time.Minute, secret)
	require.NoError(t, err)

	userID, claims, err := VerifyAccessToken(token, secret)
	require.NoError(t, err)
	assert.Equal(t, int32(42), userID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, Issuer, claims.Issuer)
}

func TestVerifyAccessTokenRejections(t *testing.T) {
	secret := "test-secret"

	_, _, err := VerifyAccessToken("not-a-token", secret)
	assert.Error(t, err)

	// Wrong secret.
	token, err := GenerateAccessToken(1, "alice", 30*time.Minute, secret)
	require.NoError(t, err)
	_, _, err = VerifyAccessToken(token, "other-secret")
	assert.Error(t, err)

	// Expired token.
	expired, err := GenerateAccessToken(1, "alice", -time.Minute, secret)
	require.NoError(t, err)
	_, _, err = VerifyAccessToken(expired, secret)
	assert.Error(t, err)
}
