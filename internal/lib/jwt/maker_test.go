package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaker_GenerateAndParse(t *testing.T) {
	maker := NewJWTMaker("test_secret", time.Hour)

	token, err := maker.GenerateToken("u1", "u1@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := maker.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserUID)
	assert.Equal(t, "u1@example.com", claims.Email)
	assert.True(t, claims.ExpiresAt.After(time.Now()))
}

func TestMaker_ParseToken_WrongSecret(t *testing.T) {
	maker := NewJWTMaker("secret_one", time.Hour)
	other := NewJWTMaker("secret_two", time.Hour)

	token, err := maker.GenerateToken("u1", "u1@example.com")
	require.NoError(t, err)

	_, err = other.ParseToken(token)
	assert.Error(t, err)
}

func TestMaker_ParseToken_Expired(t *testing.T) {
	maker := NewJWTMaker("test_secret", -time.Minute)

	token, err := maker.GenerateToken("u1", "u1@example.com")
	require.NoError(t, err)

	_, err = maker.ParseToken(token)
	assert.Error(t, err)
}

func TestMaker_ParseToken_Garbage(t *testing.T) {
	maker := NewJWTMaker("test_secret", time.Hour)

	_, err := maker.ParseToken("not-a-token")
	assert.Error(t, err)
}
