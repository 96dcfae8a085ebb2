package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greensmil/site_api/internal/security"
	"github.com/greensmil/site_api/internal/utils"
)

func newAuthService() (*AuthService, *fakeIDP, *security.Log, *utils.TokenIssuer) {
	idp := newFakeIDP()
	idp.passwords["alice"] = "correct horse"
	idp.groups["alice"] = []string{"admin"}
	events := security.NewLog(security.Config{})
	issuer := utils.NewTokenIssuer("secret", time.Hour)
	return NewAuthService(idp, issuer, events), idp, events, issuer
}

func TestAuthService_SignIn(t *testing.T) {
	svc, _, events, issuer := newAuthService()

	session, err := svc.SignIn(context.Background(), "alice", "correct horse", "1.1.1.1", "ua")
	require.NoError(t, err)
	assert.Equal(t, "sub-alice", session.User.Sub)
	assert.Equal(t, []string{"admin"}, session.User.Groups)

	claims, err := issuer.ValidateJWT(session.Token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Username)
	assert.True(t, claims.InGroup("admin"))
	assert.Zero(t, events.Len())
}

func TestAuthService_SignInFailureIsLogged(t *testing.T) {
	svc, _, events, _ := newAuthService()

	_, err := svc.SignIn(context.Background(), "alice", "wrong", "1.1.1.1", "ua")
	assert.ErrorIs(t, err, utils.ErrInvalidCredentials)

	_, err = svc.SignIn(context.Background(), "mallory", "whatever", "1.1.1.1", "ua")
	assert.ErrorIs(t, err, utils.ErrInvalidCredentials, "unknown users look like bad passwords")

	failures := events.ByType(security.EventAuthFailure, 10)
	require.Len(t, failures, 2)
	assert.Equal(t, "alice", failures[0].UserID)
	assert.Equal(t, security.AuthFailureDetails{Reason: "invalid credentials"}, failures[0].Details)
	assert.Empty(t, events.ByType(security.EventSuspiciousActivity, 10))
}

func TestAuthService_RepeatedFailuresAreSuspicious(t *testing.T) {
	svc, _, events, _ := newAuthService()

	for i := 0; i < 11; i++ {
		_, _ = svc.SignIn(context.Background(), "alice", "wrong", "6.6.6.6", "")
	}

	suspicious := events.ByType(security.EventSuspiciousActivity, 10)
	require.Len(t, suspicious, 1, "the eleventh failure crosses the threshold")
	assert.Equal(t, "6.6.6.6", suspicious[0].IP)

	_, _ = svc.SignIn(context.Background(), "alice", "wrong", "6.6.6.6", "")
	assert.Len(t, events.ByType(security.EventSuspiciousActivity, 10), 2)
}
