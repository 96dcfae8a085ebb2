package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greensmil/site_api/internal/config"
	"github.com/greensmil/site_api/internal/middleware"
	"github.com/greensmil/site_api/internal/models"
	"github.com/greensmil/site_api/internal/ratelimit"
	"github.com/greensmil/site_api/internal/security"
	"github.com/greensmil/site_api/internal/service"
	"github.com/greensmil/site_api/internal/sse"
	"github.com/greensmil/site_api/internal/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stubIDP answers the identity calls the routes below make; anything else
// panics through the nil embedded interface.
type stubIDP struct {
	service.IdentityProvider
	deleted []string
}

func (s *stubIDP) SignIn(_ context.Context, username, password string) (string, error) {
	if username == "alice" && password == "pw" {
		return "sub-alice", nil
	}
	return "", utils.ErrInvalidCredentials
}

func (s *stubIDP) GroupsForUser(_ context.Context, username string) ([]string, error) {
	if username == "alice" {
		return []string{"admin"}, nil
	}
	return []string{}, nil
}

func (s *stubIDP) ListUsers(_ context.Context, limit int, token string) ([]models.User, string, error) {
	return []models.User{{Username: "alice"}}, "", nil
}

func (s *stubIDP) DeleteUser(_ context.Context, username string) error {
	if username == "ghost" {
		return utils.ErrUserNotFound
	}
	s.deleted = append(s.deleted, username)
	return nil
}

type stubSender struct {
	err  error
	sent int
}

func (s *stubSender) Send(context.Context, service.EmailMessage) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.sent++
	return "msg", nil
}

type stubCaptcha struct{ result service.CaptchaResult }

func (s stubCaptcha) Verify(context.Context, string, string) service.CaptchaResult { return s.result }

type testServer struct {
	router *gin.Engine
	events *security.Log
	issuer *utils.TokenIssuer
	idp    *stubIDP
	sender *stubSender
}

func newTestServer(t *testing.T, siteKey string, captcha service.CaptchaVerifier) *testServer {
	t.Helper()

	events := security.NewLog(security.Config{})
	issuer := utils.NewTokenIssuer("test-secret", time.Hour)
	idp := &stubIDP{}
	sender := &stubSender{}

	contactLimiter := ratelimit.NewFixedWindowLimiter(ratelimit.Config{Name: "contact", Window: time.Minute, MaxRequests: 3, DisableSweep: true})
	t.Cleanup(contactLimiter.Destroy)

	contactSvc := service.NewContactService(sender, captcha, events,
		config.EmailConfig{From: "noreply@example.com", To: "owner@example.com"},
		config.RecaptchaConfig{SiteKey: siteKey},
	)
	jwtMw := middleware.NewJWTMiddleware(issuer, events)

	r := gin.New()
	r.Use(middleware.ClientIPMiddleware(false))
	r.POST("/v1/contact", middleware.RateLimitMiddleware(contactLimiter, events, "Too many messages"), NewContactHandler(contactSvc).Submit)

	auth := NewAuthHandler(service.NewAuthService(idp, issuer, events))
	r.POST("/v1/auth/sign-in", auth.SignIn)
	r.GET("/v1/auth/me", jwtMw.Handle(), auth.Me)

	users := NewUserHandler(service.NewUserService(idp, events))
	sec := NewSecurityHandler(service.NewSecurityService(events))
	admin := r.Group("/v1/admin", jwtMw.Handle(), jwtMw.RequireGroup("admin"))
	admin.GET("/users", users.ListUsers)
	admin.DELETE("/users/:username", users.DeleteUser)
	admin.GET("/security/dashboard", sec.Dashboard)
	admin.GET("/security/suspicious", sec.CheckIP)

	return &testServer{router: r, events: events, issuer: issuer, idp: idp, sender: sender}
}

func (s *testServer) do(method, path string, body any, token string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.RemoteAddr = "203.0.113.9:5555"
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) token(t *testing.T, username string, groups ...string) string {
	t.Helper()
	tok, _, err := s.issuer.GenerateJWT("sub-"+username, username, groups)
	require.NoError(t, err)
	return tok
}

func decode(t *testing.T, w *httptest.ResponseRecorder) utils.Response {
	t.Helper()
	var resp utils.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

var contactBody = gin.H{"name": "Eve", "email": "eve@example.org", "subject": "Hi", "message": "Hello there"}

func TestContact_Success(t *testing.T) {
	s := newTestServer(t, "", stubCaptcha{})

	w := s.do(http.MethodPost, "/v1/contact", contactBody, "")
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	assert.True(t, resp.Success)
	assert.Contains(t, resp.Message, "eve@example.org")
	assert.Equal(t, 2, s.sender.sent)
}

func TestContact_Validation(t *testing.T) {
	s := newTestServer(t, "", stubCaptcha{})

	w := s.do(http.MethodPost, "/v1/contact", gin.H{"name": "Eve", "email": "not-an-email"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REQUEST", decode(t, w).Error.Code)
	assert.Zero(t, s.sender.sent)
}

func TestContact_Captcha(t *testing.T) {
	s := newTestServer(t, "site-key", stubCaptcha{result: service.CaptchaResult{ErrorCodes: []string{"low-score"}}})

	w := s.do(http.MethodPost, "/v1/contact", contactBody, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "CAPTCHA_REQUIRED", decode(t, w).Error.Code)

	body := gin.H{"name": "Eve", "email": "eve@example.org", "subject": "Hi", "message": "Hello", "captchaToken": "tok"}
	w = s.do(http.MethodPost, "/v1/contact", body, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decode(t, w)
	assert.Equal(t, "CAPTCHA_FAILED", resp.Error.Code)
	assert.Contains(t, resp.Message, "low-score")
	assert.Len(t, s.events.ByType(security.EventRecaptchaFailure, 10), 1)
}

func TestContact_EmailFailureIsGeneric(t *testing.T) {
	s := newTestServer(t, "", stubCaptcha{})
	s.sender.err = errors.New("smtp: 535 authentication failed for relay.internal")

	w := s.do(http.MethodPost, "/v1/contact", contactBody, "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "relay.internal")
}

func TestContact_RateLimited(t *testing.T) {
	s := newTestServer(t, "", stubCaptcha{})

	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/v1/contact", contactBody, "").Code)
	}
	w := s.do(http.MethodPost, "/v1/contact", contactBody, "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, 6, s.sender.sent, "the fourth message is never sent")

	logged := s.events.ByType(security.EventRateLimitExceeded, 10)
	require.Len(t, logged, 1)
	assert.Equal(t, "203.0.113.9", logged[0].IP)
	assert.Equal(t, security.RateLimitDetails{Endpoint: "/v1/contact"}, logged[0].Details)
}

func TestSignInAndMe(t *testing.T) {
	s := newTestServer(t, "", stubCaptcha{})

	w := s.do(http.MethodPost, "/v1/auth/sign-in", gin.H{"username": "alice", "password": "pw"}, "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data models.Session `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []string{"admin"}, resp.Data.User.Groups)

	w = s.do(http.MethodGet, "/v1/auth/me", nil, resp.Data.Token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"username":"alice"`)

	w = s.do(http.MethodPost, "/v1/auth/sign-in", gin.H{"username": "alice", "password": "nope"}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "INVALID_CREDENTIALS", decode(t, w).Error.Code)
	assert.Len(t, s.events.ByType(security.EventAuthFailure, 10), 1)
}

func TestAdminRoutesRequireAdminGroup(t *testing.T) {
	s := newTestServer(t, "", stubCaptcha{})

	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/v1/admin/users", nil, "").Code)
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodGet, "/v1/admin/users", nil, s.token(t, "bob", "editors")).Code)

	w := s.do(http.MethodGet, "/v1/admin/users?limit=500", nil, s.token(t, "alice", "admin"))
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	require.NotNil(t, resp.Meta.Pagination)
	assert.Equal(t, service.MaxListUsersLimit, resp.Meta.Pagination.Limit)
	assert.False(t, resp.Meta.Pagination.HasMore)

	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/v1/admin/users?limit=abc", nil, s.token(t, "alice", "admin")).Code)
}

func TestAdminDeleteUser(t *testing.T) {
	s := newTestServer(t, "", stubCaptcha{})
	tok := s.token(t, "alice", "admin")

	assert.Equal(t, http.StatusOK, s.do(http.MethodDelete, "/v1/admin/users/bob", nil, tok).Code)
	assert.Equal(t, []string{"bob"}, s.idp.deleted)

	w := s.do(http.MethodDelete, "/v1/admin/users/ghost", nil, tok)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "USER_NOT_FOUND", decode(t, w).Error.Code)

	audit := s.events.ByType(security.EventAdminAccess, 10)
	require.Len(t, audit, 1)
	assert.Equal(t, "alice", audit[0].UserID)
}

func TestSecurityRoutes(t *testing.T) {
	s := newTestServer(t, "", stubCaptcha{})
	tok := s.token(t, "alice", "admin")
	for i := 0; i < 11; i++ {
		s.events.AuthFailure("198.51.100.7", "invalid credentials", security.Meta{})
	}

	w := s.do(http.MethodGet, "/v1/admin/security/suspicious?ip=198.51.100.7", nil, tok)
	require.Equal(t, http.StatusOK, w.Code)
	var report struct {
		Data service.SuspiciousReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.True(t, report.Data.Suspicious)
	assert.Equal(t, 11, report.Data.RecentEvents)

	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/v1/admin/security/suspicious?ip=nope", nil, tok).Code)

	w = s.do(http.MethodGet, "/v1/admin/security/dashboard", nil, tok)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"authFailures"`)
}

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealth(t *testing.T) {
	r := gin.New()
	healthy := NewHealthHandler("1.0.0", map[string]Pinger{"redis": pingFunc(func(context.Context) error { return nil })})
	degraded := NewHealthHandler("1.0.0", map[string]Pinger{"redis": pingFunc(func(context.Context) error { return errors.New("down") })})
	r.GET("/healthy", healthy.GetHealth)
	r.GET("/degraded", degraded.GetHealth)

	for path, want := range map[string]string{"/healthy": `"redis":"connected"`, "/degraded": `"redis":"disconnected"`} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), want)
	}
}

func TestSSEStreamRejections(t *testing.T) {
	events := security.NewLog(security.Config{})
	issuer := utils.NewTokenIssuer("test-secret", time.Hour)
	h := NewSSEHandler(sse.NewHub(), issuer, events, "admin")

	r := gin.New()
	r.GET("/stream", h.Stream)

	tok := func(groups ...string) string {
		s, _, err := issuer.GenerateJWT("sub", "bob", groups)
		require.NoError(t, err)
		return s
	}

	tests := []struct {
		name  string
		query string
		code  int
	}{
		{name: "missing token", query: "", code: http.StatusUnauthorized},
		{name: "bad token", query: "?token=garbage", code: http.StatusUnauthorized},
		{name: "not admin", query: "?token=" + tok("editors"), code: http.StatusForbidden},
		{name: "unknown type", query: "?token=" + tok("admin") + "&types=AUTH_FAILURE,NOPE", code: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/stream"+tt.query, nil))
			assert.Equal(t, tt.code, w.Code)
		})
	}

	assert.Len(t, events.ByType(security.EventAuthFailure, 10), 2, "bad token and missing group are recorded")
}

func TestParseEventTypes(t *testing.T) {
	topics, ok := parseEventTypes(" auth_failure , SUSPICIOUS_ACTIVITY,")
	require.True(t, ok)
	assert.Equal(t, []string{"AUTH_FAILURE", "SUSPICIOUS_ACTIVITY"}, topics)

	topics, ok = parseEventTypes("")
	assert.True(t, ok)
	assert.Nil(t, topics)
}
