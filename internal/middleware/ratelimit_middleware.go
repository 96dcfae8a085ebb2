package middleware

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/greensmil/site_api/internal/metrics"
	"github.com/greensmil/site_api/internal/ratelimit"
	"github.com/greensmil/site_api/internal/security"
	"github.com/greensmil/site_api/internal/utils"
)

type sizer interface {
	Len() int
}

// RateLimitMiddleware guards a route with limiter, keyed by client IP.
// Rejections are answered with 429 and recorded in the security log.
func RateLimitMiddleware(limiter ratelimit.Limiter, events *security.Log, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		ip := ClientIP(c)

		allowed := limiter.Allow(ctx, ip)
		metrics.ObserveRateLimit(limiter.Name(), allowed)
		if s, ok := limiter.(sizer); ok {
			metrics.SetTrackedIdentifiers(limiter.Name(), s.Len())
		}

		reset := limiter.ResetTime(ctx, ip)
		c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.Limit()))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(limiter.Remaining(ctx, ip)))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))

		if !allowed {
			events.RateLimitExceeded(ip, c.FullPath(), security.Meta{UserAgent: c.Request.UserAgent()})
			c.Header("Retry-After", strconv.Itoa(retryAfterSeconds(reset)))
			utils.Error(c, http.StatusTooManyRequests, utils.ErrRateLimited.Error(), message)
			c.Abort()
			return
		}
		c.Next()
	}
}

func retryAfterSeconds(reset time.Time) int {
	secs := int(math.Ceil(time.Until(reset).Seconds()))
	return max(1, secs)
}
