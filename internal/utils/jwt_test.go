package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenIssuer_RoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour)

	token, expiresAt, err := issuer.GenerateJWT("sub-1", "alice", []string{"admin", "editors"})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := issuer.ValidateJWT(token)
	require.NoError(t, err)
	assert.Equal(t, "sub-1", claims.Subject)
	assert.Equal(t, "alice", claims.Username)
	assert.True(t, claims.InGroup("admin"))
	assert.False(t, claims.InGroup("root"))
}

func TestTokenIssuer_RejectsWrongSecret(t *testing.T) {
	token, _, err := NewTokenIssuer("one", time.Hour).GenerateJWT("sub", "bob", nil)
	require.NoError(t, err)

	_, err = NewTokenIssuer("two", time.Hour).ValidateJWT(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenIssuer_RejectsExpired(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Minute)
	issuer.now = func() time.Time { return time.Now().Add(-time.Hour) }
	token, _, err := issuer.GenerateJWT("sub", "bob", nil)
	require.NoError(t, err)

	issuer.now = time.Now
	_, err = issuer.ValidateJWT(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenIssuer_RejectsGarbage(t *testing.T) {
	_, err := NewTokenIssuer("secret", time.Hour).ValidateJWT("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
