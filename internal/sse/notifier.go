package sse

import (
	"github.com/greensmil/site_api/internal/security"
)

// SecurityEventName is the SSE event name used for security log entries.
const SecurityEventName = "security"

// SecurityNotifier forwards security log entries to connected admins.
type SecurityNotifier struct {
	hub *Hub
}

var _ security.Sink = (*SecurityNotifier)(nil)

// NewSecurityNotifier creates a notifier backed by the given Hub.
func NewSecurityNotifier(hub *Hub) *SecurityNotifier {
	return &SecurityNotifier{hub: hub}
}

func (n *SecurityNotifier) HandleSecurityEvent(e security.Event) {
	if n.hub.ClientCount() == 0 {
		return
	}
	n.hub.Publish(SecurityEventName, string(e.Type), e)
}
