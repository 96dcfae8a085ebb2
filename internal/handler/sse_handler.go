package handler

import (
	"io"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/greensmil/site_api/internal/middleware"
	"github.com/greensmil/site_api/internal/security"
	"github.com/greensmil/site_api/internal/sse"
	"github.com/greensmil/site_api/internal/utils"
)

const pingInterval = 30 * time.Second

// SSEHandler streams security events to the admin console.
type SSEHandler struct {
	hub        *sse.Hub
	issuer     *utils.TokenIssuer
	events     *security.Log
	adminGroup string
}

// NewSSEHandler creates a new SSEHandler.
func NewSSEHandler(hub *sse.Hub, issuer *utils.TokenIssuer, events *security.Log, adminGroup string) *SSEHandler {
	return &SSEHandler{hub: hub, issuer: issuer, events: events, adminGroup: adminGroup}
}

// Stream handles GET /v1/admin/security/stream?token=<jwt>[&types=A,B]
// EventSource API cannot set custom headers, so JWT is passed via query param.
// types limits the stream to the listed security event types.
func (h *SSEHandler) Stream(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		utils.Error(c, 401, "UNAUTHORIZED", "Missing token query parameter")
		return
	}

	meta := security.Meta{UserAgent: c.Request.UserAgent()}
	claims, err := h.issuer.ValidateJWT(token)
	if err != nil {
		h.events.AuthFailure(middleware.ClientIP(c), "invalid session token", meta)
		utils.Error(c, 401, "INVALID_TOKEN", "Invalid or expired token")
		return
	}
	if !claims.InGroup(h.adminGroup) {
		meta.UserID = claims.Username
		h.events.AuthFailure(middleware.ClientIP(c), "missing "+h.adminGroup+" group", meta)
		utils.Error(c, 403, "FORBIDDEN", "Insufficient privileges")
		return
	}

	topics, ok := parseEventTypes(c.Query("types"))
	if !ok {
		utils.Error(c, 400, "INVALID_REQUEST", "Unknown security event type")
		return
	}

	clientID := "admin-" + uuid.NewString()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no") // Disable nginx buffering

	client := h.hub.Register(clientID, topics...)
	defer h.hub.Unregister(clientID)

	c.SSEvent("connected", gin.H{
		"clientId":  clientID,
		"message":   "SSE connection established",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
	c.Writer.Flush()

	log.Info().Str("client_id", clientID).Str("user_hash", security.HashUserID(claims.Username)).Msg("Security SSE stream started")

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case msg, ok := <-client.Events:
			if !ok {
				return false
			}
			c.SSEvent(msg.Event, string(msg.Data))
			return true
		case <-ticker.C:
			c.SSEvent("ping", gin.H{"timestamp": time.Now().UTC().Format(time.RFC3339)})
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

func parseEventTypes(raw string) ([]string, bool) {
	if raw == "" {
		return nil, true
	}
	var topics []string
	for _, t := range strings.Split(raw, ",") {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if !security.EventType(t).Valid() {
			return nil, false
		}
		topics = append(topics, t)
	}
	return topics, true
}
