package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testJWTManager() *JWTManager {
	return NewJWTManager(JWTConfig{
		Secret:        "test-secret-key",
		Expiry:        time.Hour,
		RefreshExpiry: 24 * time.Hour,
		Issuer:        "coursevault-test",
	})
}

func TestAccessTokenRoundTrip(t *testing.T) {
	m := testJWTManager()

	token, jti, err := m.GenerateAccessToken(42, "user@example.com", "student", 3)
	require.NoError(t, err)
	require.NotEmpty(t, jti)

	claims, err := m.ValidateToken(token)
	require.NoError(t, err)

	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "user@example.com", claims.Email)
	assert.Equal(t, "student", claims.Role)
	assert.Equal(t, "access", claims.TokenType)
	assert.Equal(t, 3, claims.TokenVersion)
	assert.Equal(t, jti, claims.ID)
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	token, _, err := testJWTManager().GenerateAccessToken(1, "a@b.c", "student", 0)
	require.NoError(t, err)

	other := NewJWTManager(JWTConfig{Secret: "different-secret", Expiry: time.Hour})
	_, err = other.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	m := NewJWTManager(JWTConfig{Secret: "s", Expiry: -time.Minute})

	token, _, err := m.GenerateAccessToken(1, "a@b.c", "student", 0)
	require.NoError(t, err)

	_, err = m.ValidateToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestRefreshAccessToken(t *testing.T) {
	m := testJWTManager()

	refresh, _, err := m.GenerateRefreshToken(7, "r@example.com", "instructor", 1)
	require.NoError(t, err)

	access, _, err := m.RefreshAccessToken(refresh, 1)
	require.NoError(t, err)

	claims, err := m.ValidateToken(access)
	require.NoError(t, err)
	assert.Equal(t, "access", claims.TokenType)
	assert.Equal(t, uint(7), claims.UserID)
}

func TestRefreshAccessTokenRejectsAccessToken(t *testing.T) {
	m := testJWTManager()

	access, _, err := m.GenerateAccessToken(7, "r@example.com", "student", 0)
	require.NoError(t, err)

	_, _, err = m.RefreshAccessToken(access, 0)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse battery")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse battery", hash)

	assert.NoError(t, VerifyPassword(hash, "correct horse battery"))
	assert.Error(t, VerifyPassword(hash, "wrong password"))
}

func TestIsPasswordValid(t *testing.T) {
	assert.True(t, IsPasswordValid("12345678"))
	assert.False(t, IsPasswordValid("short"))
}
