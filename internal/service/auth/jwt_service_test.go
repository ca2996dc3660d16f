package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/inkdraft/inkdraft-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSigningSecret = "test-secret-key-thats-long-enough-for-hs256"

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		JWTSecret:                   testSigningSecret,
		TokenLifetimeMinutes:        60,
		RefreshTokenLifetimeMinutes: 10080,
	}
}

// newFrozenJWTService returns a service whose clock is pinned to a fixed
// instant so expiry behavior is deterministic.
func newFrozenJWTService(t *testing.T, now time.Time) (*hmacJWTService, func(time.Time)) {
	t.Helper()

	svc, err := NewJWTService(testAuthConfig())
	require.NoError(t, err)

	impl, ok := svc.(*hmacJWTService)
	require.True(t, ok)

	current := now
	impl.timeFunc = func() time.Time { return current }
	return impl, func(at time.Time) { current = at }
}

func TestNewJWTServiceRejectsShortSecret(t *testing.T) {
	t.Parallel()

	cfg := testAuthConfig()
	cfg.JWTSecret = "too-short"
	_, err := NewJWTService(cfg)
	assert.Error(t, err)
}

func TestAccessTokenRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	svc, _ := newFrozenJWTService(t, now)
	userID := uuid.New()

	token, err := svc.GenerateToken(ctx, userID)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "access", claims.TokenType)
	assert.Equal(t, userID.String(), claims.Subject)
	assert.NotEmpty(t, claims.ID)
	assert.Equal(t, now.Add(time.Hour), claims.ExpiresAt)
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, _ := newFrozenJWTService(t, time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC))
	userID := uuid.New()

	token, err := svc.GenerateRefreshToken(ctx, userID)
	require.NoError(t, err)

	claims, err := svc.ValidateRefreshToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "refresh", claims.TokenType)
}

func TestValidateTokenExpired(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	svc, advance := newFrozenJWTService(t, now)

	token, err := svc.GenerateToken(ctx, uuid.New())
	require.NoError(t, err)

	// Past the lifetime plus the clock skew leeway.
	advance(now.Add(time.Hour + 3*time.Minute))

	_, err = svc.ValidateToken(ctx, token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestValidateTokenWithinClockSkew(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	svc, advance := newFrozenJWTService(t, now)

	token, err := svc.GenerateToken(ctx, uuid.New())
	require.NoError(t, err)

	// Expired by one minute, but inside the two-minute leeway.
	advance(now.Add(time.Hour + time.Minute))

	_, err = svc.ValidateToken(ctx, token)
	assert.NoError(t, err)
}

func TestValidateTokenWrongType(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, _ := newFrozenJWTService(t, time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC))
	userID := uuid.New()

	refreshToken, err := svc.GenerateRefreshToken(ctx, userID)
	require.NoError(t, err)
	accessToken, err := svc.GenerateToken(ctx, userID)
	require.NoError(t, err)

	_, err = svc.ValidateToken(ctx, refreshToken)
	assert.ErrorIs(t, err, ErrWrongTokenType)

	_, err = svc.ValidateRefreshToken(ctx, accessToken)
	assert.ErrorIs(t, err, ErrWrongTokenType)
}

func TestValidateTokenTampered(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, _ := newFrozenJWTService(t, time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC))

	token, err := svc.GenerateToken(ctx, uuid.New())
	require.NoError(t, err)

	_, err = svc.ValidateToken(ctx, token+"x")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateTokenWrongKey(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, _ := newFrozenJWTService(t, time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC))

	otherCfg := testAuthConfig()
	otherCfg.JWTSecret = "a-completely-different-secret-key-of-size"
	other, err := NewJWTService(otherCfg)
	require.NoError(t, err)

	token, err := other.GenerateToken(ctx, uuid.New())
	require.NoError(t, err)

	_, err = svc.ValidateToken(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateTokenGarbage(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, _ := newFrozenJWTService(t, time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC))

	_, err := svc.ValidateToken(ctx, "not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.ValidateRefreshToken(ctx, "not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}
