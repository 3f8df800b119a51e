package authenticator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cosify/cosify/internal/config"
)

func newLocalAuthenticator(t *testing.T) *Authenticator {
	t.Helper()

	auth, err := New(&config.Config{
		JWT_SECRET:   "test-jwt-secret",
		STATE_SECRET: "test-state-secret",
	})
	require.NoError(t, err)
	require.True(t, auth.AuthEnabled())
	require.False(t, auth.Auth0Enabled())

	return auth
}

func TestLocalTokenRoundTrip(t *testing.T) {
	auth := newLocalAuthenticator(t)

	token, err := auth.GenerateToken(&UserClaims{
		UserID: "u1",
		Email:  "alex@cosify.app",
		Name:   "Alex",
		Role:   "admin",
	}, time.Hour)
	require.NoError(t, err)

	claims, err := auth.VerifyAccessToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "alex@cosify.app", claims.Email)
	assert.Equal(t, "Alex", claims.Name)
	assert.Equal(t, "admin", claims.Role)
}

func TestExpiredTokenRejected(t *testing.T) {
	auth := newLocalAuthenticator(t)

	token, err := auth.GenerateToken(&UserClaims{UserID: "u1"}, -time.Minute)
	require.NoError(t, err)

	_, err = auth.VerifyAccessToken(context.Background(), token)
	require.Error(t, err)
}

func TestTamperedTokenRejected(t *testing.T) {
	auth := newLocalAuthenticator(t)

	token, err := auth.GenerateToken(&UserClaims{UserID: "u1"}, time.Hour)
	require.NoError(t, err)

	_, err = auth.VerifyAccessToken(context.Background(), token+"x")
	require.Error(t, err)

	other, err := New(&config.Config{JWT_SECRET: "different-secret"})
	require.NoError(t, err)

	_, err = other.VerifyAccessToken(context.Background(), token)
	require.Error(t, err)
}

func TestSignedStateRoundTrip(t *testing.T) {
	auth := newLocalAuthenticator(t)

	state := OAuthState{
		CSRF:      "random-csrf",
		Redirect:  "http://localhost:3000",
		IssuedAt:  time.Now().Unix(),
		ExpiresAt: time.Now().Add(5 * time.Minute).Unix(),
	}

	encoded, err := auth.GetSignedState(state)
	require.NoError(t, err)

	decoded, err := auth.VerifySignedState(encoded)
	require.NoError(t, err)
	assert.Equal(t, state.CSRF, decoded.CSRF)
	assert.Equal(t, state.Redirect, decoded.Redirect)
}

func TestSignedStateTamperingRejected(t *testing.T) {
	auth := newLocalAuthenticator(t)

	encoded, err := auth.GetSignedState(OAuthState{
		CSRF:      "csrf",
		ExpiresAt: time.Now().Add(time.Minute).Unix(),
	})
	require.NoError(t, err)

	_, err = auth.VerifySignedState("AAAA" + encoded)
	require.Error(t, err)
}

func TestSignedStateExpiry(t *testing.T) {
	auth := newLocalAuthenticator(t)

	encoded, err := auth.GetSignedState(OAuthState{
		CSRF:      "csrf",
		ExpiresAt: time.Now().Add(-time.Minute).Unix(),
	})
	require.NoError(t, err)

	_, err = auth.VerifySignedState(encoded)
	require.Error(t, err)
}
