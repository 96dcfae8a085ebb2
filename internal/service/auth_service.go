package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/greensmil/site_api/internal/models"
	"github.com/greensmil/site_api/internal/security"
	"github.com/greensmil/site_api/internal/utils"
)

// AuthService signs users in against the identity provider and issues admin
// console sessions. Failures feed the security log.
type AuthService struct {
	idp    IdentityProvider
	issuer *utils.TokenIssuer
	events *security.Log
}

func NewAuthService(idp IdentityProvider, issuer *utils.TokenIssuer, events *security.Log) *AuthService {
	return &AuthService{idp: idp, issuer: issuer, events: events}
}

// SignIn verifies the credentials and returns a session carrying the user's
// groups. Every failure is recorded; an address that keeps failing is
// additionally flagged as suspicious.
func (s *AuthService) SignIn(ctx context.Context, username, password, ip, userAgent string) (*models.Session, error) {
	sub, err := s.idp.SignIn(ctx, username, password)
	if err != nil {
		reason := "sign-in failed"
		switch {
		case errors.Is(err, utils.ErrInvalidCredentials), errors.Is(err, utils.ErrUserNotFound):
			reason = "invalid credentials"
			err = utils.ErrInvalidCredentials
		case errors.Is(err, utils.ErrChallengeRequired):
			reason = "unsupported challenge"
		default:
			log.Error().Err(err).Msg("Identity provider sign-in error")
		}
		s.recordFailure(ip, reason, username, userAgent)
		return nil, err
	}

	groups, err := s.idp.GroupsForUser(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("load groups: %w", err)
	}

	token, expiresAt, err := s.issuer.GenerateJWT(sub, username, groups)
	if err != nil {
		return nil, err
	}

	log.Info().Str("user_hash", security.HashUserID(username)).Strs("groups", groups).Msg("User signed in")
	return &models.Session{
		Token:     token,
		ExpiresAt: expiresAt,
		User: models.SessionUser{
			Sub:      sub,
			Username: username,
			Groups:   groups,
		},
	}, nil
}

func (s *AuthService) recordFailure(ip, reason, username, userAgent string) {
	meta := security.Meta{UserAgent: userAgent, UserID: username}
	s.events.AuthFailure(ip, reason, meta)

	if s.events.DetectSuspiciousActivity(ip, 0) {
		recent := s.events.CountRecent(ip, 0)
		s.events.SuspiciousActivity(ip, "repeated authentication failures", map[string]string{
			"recentEvents": strconv.Itoa(recent),
		}, meta)
	}
}
