package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTMaker_GenerateAndParseToken(t *testing.T) {
	maker := NewJWTMaker("test_secret_key_1234567890", 15*time.Minute, 24*time.Hour)

	tests := []struct {
		name      string
		userID    int64
		username  string
		role      string
		tokenType TokenType
		ttl       time.Duration
	}{
		{name: "admin access", userID: 1, username: "admin", role: "admin", tokenType: Access, ttl: 15 * time.Minute},
		{name: "member access", userID: 42, username: "anna", role: "member", tokenType: Access, ttl: 15 * time.Minute},
		{name: "user refresh", userID: 7, username: "user@domain.com", role: "user", tokenType: Refresh, ttl: 24 * time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := maker.GenerateToken(tt.userID, tt.username, tt.role, tt.tokenType)
			require.NoError(t, err)
			assert.NotEmpty(t, token)

			claims, err := maker.ParseToken(token)
			require.NoError(t, err)

			id, err := claims.UserID()
			require.NoError(t, err)
			assert.Equal(t, tt.userID, id)
			assert.Equal(t, tt.username, claims.Username)
			assert.Equal(t, tt.role, claims.Role)
			assert.Equal(t, tt.tokenType, claims.TokenType)
			assert.NotEmpty(t, claims.ID)
			assert.WithinDuration(t, time.Now().Add(tt.ttl), claims.ExpiresAt.Time, time.Second)
		})
	}
}

func TestJWTMaker_UniqueTokenIDs(t *testing.T) {
	maker := NewJWTMaker("secret", time.Minute, time.Hour)

	a, err := maker.GenerateToken(1, "u", "user", Refresh)
	require.NoError(t, err)
	b, err := maker.GenerateToken(1, "u", "user", Refresh)
	require.NoError(t, err)

	ca, err := maker.ParseToken(a)
	require.NoError(t, err)
	cb, err := maker.ParseToken(b)
	require.NoError(t, err)
	assert.NotEqual(t, ca.ID, cb.ID)
}

func TestJWTMaker_ParseToken_InvalidTokens(t *testing.T) {
	secretKey := "test_secret_key_1234567890"
	maker := NewJWTMaker(secretKey, 15*time.Minute, time.Hour)

	validToken, err := maker.GenerateToken(1, "testuser", "user", Access)
	require.NoError(t, err)

	expired, err := NewJWTMaker(secretKey, -time.Hour, -time.Hour).GenerateToken(1, "testuser", "user", Access)
	require.NoError(t, err)

	wrongSecret, err := NewJWTMaker("wrong_secret_key", time.Minute, time.Hour).GenerateToken(1, "testuser", "user", Access)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty token", token: ""},
		{name: "malformed token", token: "invalid.token.here"},
		{name: "expired token", token: expired},
		{name: "wrong secret key", token: wrongSecret},
		{name: "tampered token", token: validToken + "tampered"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := maker.ParseToken(tt.token)
			assert.Error(t, err)
			assert.Nil(t, claims)
		})
	}
}
