package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/greensmil/site_api/internal/security"
)

// quietPaths are probe endpoints logged at debug level only.
var quietPaths = map[string]bool{
	"/v1/health": true,
	"/metrics":   true,
}

// LoggingMiddleware assigns a request id and logs one line per request.
// Signed-in users appear as a hash, never by name.
func LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader("X-Request-Id")
		if requestID == "" || len(requestID) > 64 {
			requestID = uuid.New().String()[:8]
		}
		c.Set("request_id", requestID)
		c.Header("X-Request-Id", requestID)

		c.Next()

		status := c.Writer.Status()
		var event *zerolog.Event
		switch {
		case status >= 500:
			event = log.Error()
		case quietPaths[c.FullPath()]:
			event = log.Debug()
		case status == 429 || status == 401 || status == 403:
			event = log.Warn()
		default:
			event = log.Info()
		}

		if user := c.GetString("username"); user != "" {
			event = event.Str("user_hash", security.HashUserID(user))
		}
		event.
			Str("request_id", requestID).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("ip", ClientIP(c)).
			Msg("HTTP Request")
	}
}
