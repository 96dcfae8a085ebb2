package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/greensmil/site_api/internal/security"
	"github.com/greensmil/site_api/internal/utils"
)

const claimsKey = "claims"

// JWTMiddleware authenticates admin console sessions. Rejected tokens are
// recorded in the security log.
type JWTMiddleware struct {
	issuer *utils.TokenIssuer
	events *security.Log
}

func NewJWTMiddleware(issuer *utils.TokenIssuer, events *security.Log) *JWTMiddleware {
	return &JWTMiddleware{issuer: issuer, events: events}
}

func (m *JWTMiddleware) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Missing authorization header")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			utils.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid authorization header")
			c.Abort()
			return
		}

		claims, err := m.issuer.ValidateJWT(parts[1])
		if err != nil {
			m.events.AuthFailure(ClientIP(c), "invalid session token", security.Meta{UserAgent: c.Request.UserAgent()})
			utils.Error(c, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired token")
			c.Abort()
			return
		}

		SetClaims(c, claims)
		c.Next()
	}
}

// RequireGroup rejects sessions that are not members of group. It must run
// after Handle.
func (m *JWTMiddleware) RequireGroup(group string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil || !claims.InGroup(group) {
			meta := security.Meta{UserAgent: c.Request.UserAgent()}
			if claims != nil {
				meta.UserID = claims.Username
			}
			m.events.AuthFailure(ClientIP(c), "missing "+group+" group", meta)
			utils.Error(c, http.StatusForbidden, "FORBIDDEN", "Insufficient privileges")
			c.Abort()
			return
		}
		c.Next()
	}
}

// SetClaims stores validated session claims on the request context.
func SetClaims(c *gin.Context, claims *utils.Claims) {
	c.Set(claimsKey, claims)
	c.Set("username", claims.Username)
}

// GetClaims returns the authenticated session, or nil.
func GetClaims(c *gin.Context) *utils.Claims {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*utils.Claims)
	return claims
}
