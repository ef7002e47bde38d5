package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront/backend/internal/infrastructure/config"
)

func newTestJWTService() *JWTService {
	return NewJWTService(config.JWTConfig{
		Secret:                 "test-secret-key-at-least-32-chars",
		RefreshSecret:          "test-refresh-secret-key-32-chars",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: 7 * 24 * time.Hour,
		Issuer:                 "storefront-test",
		MaxRefreshCount:        2,
	})
}

func newTestSubject() Subject {
	return Subject{
		UserID:      uuid.New(),
		Email:       "shopper@example.com",
		Role:        "customer",
		Permissions: []string{"catalog:read", "cart:manage", "order:own"},
	}
}

func TestNewJWTService_RefreshSecretFallback(t *testing.T) {
	svc := NewJWTService(config.JWTConfig{Secret: "only-secret"})
	assert.Equal(t, []byte("only-secret"), svc.refreshSecret)
}

func TestJWTService_GenerateAndValidate(t *testing.T) {
	svc := newTestJWTService()
	subject := newTestSubject()

	pair, err := svc.GenerateTokenPair(subject)
	require.NoError(t, err)
	assert.Equal(t, "Bearer", pair.TokenType)
	assert.True(t, pair.RefreshTokenExpiresAt.After(pair.AccessTokenExpiresAt))

	t.Run("access token carries identity and permissions", func(t *testing.T) {
		claims, err := svc.ValidateAccessToken(pair.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, subject.UserID.String(), claims.UserID)
		assert.Equal(t, subject.Email, claims.Email)
		assert.Equal(t, "customer", claims.Role)
		assert.True(t, claims.HasPermission("cart:manage"))
		assert.False(t, claims.HasPermission("catalog:write"))
		assert.True(t, claims.HasAnyPermission("catalog:write", "order:own"))

		id, err := claims.UserUUID()
		require.NoError(t, err)
		assert.Equal(t, subject.UserID, id)
	})

	t.Run("refresh token has no permissions", func(t *testing.T) {
		claims, err := svc.ValidateRefreshToken(pair.RefreshToken)
		require.NoError(t, err)
		assert.Empty(t, claims.Permissions)
		assert.Equal(t, 0, claims.RefreshCount)
	})

	t.Run("token types are not interchangeable", func(t *testing.T) {
		_, err := svc.ValidateAccessToken(pair.RefreshToken)
		assert.Error(t, err)
		_, err = svc.ValidateRefreshToken(pair.AccessToken)
		assert.Error(t, err)
	})

	t.Run("garbage is rejected", func(t *testing.T) {
		_, err := svc.ValidateAccessToken("not-a-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestJWTService_Expired(t *testing.T) {
	svc := newTestJWTService()
	pair, err := svc.GenerateTokenPair(newTestSubject())
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(time.Hour) }
	_, err = svc.ValidateAccessToken(pair.AccessToken)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestJWTService_WrongSigningMethod(t *testing.T) {
	svc := newTestJWTService()
	token := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{Issuer: "storefront-test"},
		UserID:           uuid.NewString(),
		TokenType:        TokenTypeAccess,
	})
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTService_RotateTokenPair(t *testing.T) {
	svc := newTestJWTService()
	subject := newTestSubject()

	pair, err := svc.GenerateTokenPair(subject)
	require.NoError(t, err)

	for i := 1; i <= 2; i++ {
		claims, err := svc.ValidateRefreshToken(pair.RefreshToken)
		require.NoError(t, err)
		pair, err = svc.RotateTokenPair(claims, subject)
		require.NoError(t, err)

		rotated, err := svc.ValidateRefreshToken(pair.RefreshToken)
		require.NoError(t, err)
		assert.Equal(t, i, rotated.RefreshCount)
	}

	claims, err := svc.ValidateRefreshToken(pair.RefreshToken)
	require.NoError(t, err)
	_, err = svc.RotateTokenPair(claims, subject)
	assert.ErrorIs(t, err, ErrMaxRefreshExceeded)

	t.Run("subject must match", func(t *testing.T) {
		fresh, err := svc.GenerateTokenPair(subject)
		require.NoError(t, err)
		claims, err := svc.ValidateRefreshToken(fresh.RefreshToken)
		require.NoError(t, err)
		_, err = svc.RotateTokenPair(claims, newTestSubject())
		assert.ErrorIs(t, err, ErrInvalidClaims)
	})
}

func TestInMemoryTokenBlacklist(t *testing.T) {
	ctx := context.Background()
	b := NewInMemoryTokenBlacklist()

	t.Run("revoke token", func(t *testing.T) {
		require.NoError(t, b.Revoke(ctx, "jti-1", time.Minute))
		revoked, err := b.IsRevoked(ctx, "jti-1")
		require.NoError(t, err)
		assert.True(t, revoked)

		revoked, err = b.IsRevoked(ctx, "jti-2")
		require.NoError(t, err)
		assert.False(t, revoked)
	})

	t.Run("non-positive ttl is a no-op", func(t *testing.T) {
		require.NoError(t, b.Revoke(ctx, "jti-3", 0))
		revoked, err := b.IsRevoked(ctx, "jti-3")
		require.NoError(t, err)
		assert.False(t, revoked)
	})

	t.Run("revoke user", func(t *testing.T) {
		issued := time.Now().Add(-time.Minute)
		require.NoError(t, b.RevokeUser(ctx, "user-1", time.Hour))

		revoked, err := b.IsUserRevoked(ctx, "user-1", issued)
		require.NoError(t, err)
		assert.True(t, revoked)

		revoked, err = b.IsUserRevoked(ctx, "user-1", time.Now().Add(time.Minute))
		require.NoError(t, err)
		assert.False(t, revoked)

		revoked, err = b.IsUserRevoked(ctx, "user-2", issued)
		require.NoError(t, err)
		assert.False(t, revoked)
	})
}
