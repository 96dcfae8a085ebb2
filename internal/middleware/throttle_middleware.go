package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/greensmil/site_api/internal/metrics"
	"github.com/greensmil/site_api/internal/ratelimit"
	"github.com/greensmil/site_api/internal/utils"
)

// ThrottleLimiterName labels the global throttle in metrics.
const ThrottleLimiterName = "api"

// ThrottleMiddleware applies the API-wide per-IP token bucket.
func ThrottleMiddleware(th *ratelimit.Throttle) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := ClientIP(c)
		allowed := th.Allow(ip)
		metrics.ObserveRateLimit(ThrottleLimiterName, allowed)
		if !allowed {
			log.Debug().Str("ip", ip).Str("path", c.Request.URL.Path).Msg("Request throttled")
			c.Header("Retry-After", "1")
			utils.Error(c, http.StatusTooManyRequests, utils.ErrRateLimited.Error(), "Too many requests")
			c.Abort()
			return
		}
		c.Next()
	}
}
