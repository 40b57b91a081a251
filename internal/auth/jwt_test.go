package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/ignition/internal/config"
)

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		JWTSecret:            "thisisasecretkeythatis32charslong!!",
		TokenLifetimeMinutes: 60,
	}
}

func TestNewJWTServiceRejectsShortSecret(t *testing.T) {
	t.Parallel()

	_, err := NewJWTService(config.AuthConfig{JWTSecret: "tooshort", TokenLifetimeMinutes: 60})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "32 characters")
}

func TestGenerateAndValidateToken(t *testing.T) {
	t.Parallel()

	svc, err := NewJWTService(testAuthConfig())
	require.NoError(t, err)

	subject := uuid.New()
	token, err := svc.GenerateToken(context.Background(), subject)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, subject, claims.Subject)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt, time.Minute)
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	t.Parallel()

	svc, err := NewJWTService(testAuthConfig())
	require.NoError(t, err)

	impl, ok := svc.(*hmacJWTService)
	require.True(t, ok)

	// Issue a token in the past, then validate at present.
	issued := time.Now().Add(-2 * time.Hour)
	impl.timeFunc = func() time.Time { return issued }
	token, err := svc.GenerateToken(context.Background(), uuid.New())
	require.NoError(t, err)

	impl.timeFunc = time.Now
	_, err = svc.ValidateToken(context.Background(), token)
	assert.Error(t, err)
}

func TestValidateTokenRejectsWrongKey(t *testing.T) {
	t.Parallel()

	first, err := NewJWTService(testAuthConfig())
	require.NoError(t, err)

	other, err := NewJWTService(config.AuthConfig{
		JWTSecret:            "adifferentsecretthatisalso32chars!!!",
		TokenLifetimeMinutes: 60,
	})
	require.NoError(t, err)

	token, err := first.GenerateToken(context.Background(), uuid.New())
	require.NoError(t, err)

	_, err = other.ValidateToken(context.Background(), token)
	assert.Error(t, err)
}
