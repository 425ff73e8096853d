package utils

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	token, err := GenerateJWT(42, "secret")
	require.NoError(t, err)

	claims, err := ParseJWT(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "42", claims.Subject)
}

func TestParseJWTRejects(t *testing.T) {
	valid, err := GenerateJWT(7, "secret")
	require.NoError(t, err)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: 7,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})
	expiredStr, err := expired.SignedString([]byte("secret"))
	require.NoError(t, err)

	tests := []struct {
		name   string
		token  string
		secret string
	}{
		{"wrong secret", valid, "other"},
		{"expired", expiredStr, "secret"},
		{"garbage", "not-a-token", "secret"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseJWT(tt.token, tt.secret)
			assert.Error(t, err)
		})
	}
}

func TestCacheDisabledWithNilClient(t *testing.T) {
	ctx := context.Background()
	key, versionKey := AccountListCacheKey(1), AccountListVersionKey(1)

	version, err := CacheVersion(ctx, nil, versionKey)
	require.NoError(t, err)
	assert.Zero(t, version)

	stored, err := SetCacheIfVersion(ctx, nil, key, versionKey, version, map[string]int{"a": 1}, time.Minute)
	require.NoError(t, err)
	assert.False(t, stored)

	var dest map[string]int
	found, err := GetCache(ctx, nil, key, &dest)
	require.NoError(t, err)
	assert.False(t, found)

	assert.NoError(t, InvalidateCache(ctx, nil, versionKey, key))
}

func TestCacheKeys(t *testing.T) {
	assert.Equal(t, "account:user:12", AccountListCacheKey(12))
	assert.Equal(t, "account:user:12:version", AccountListVersionKey(12))
}
