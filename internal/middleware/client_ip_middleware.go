package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/greensmil/site_api/internal/ratelimit"
)

const clientIPKey = "client_ip"

// ClientIPMiddleware resolves the caller's address once per request. Proxy
// headers are only honoured when trustProxy is set.
func ClientIPMiddleware(trustProxy bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(clientIPKey, ratelimit.ClientIPFromRequest(c.Request, trustProxy))
		c.Next()
	}
}

// ClientIP returns the address resolved by ClientIPMiddleware, falling back
// to the peer address.
func ClientIP(c *gin.Context) string {
	if ip := c.GetString(clientIPKey); ip != "" {
		return ip
	}
	return ratelimit.ClientIPFromRequest(c.Request, false)
}
