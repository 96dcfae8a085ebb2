// Package security keeps an in-memory ledger of security-relevant events
// (throttling, failed sign-ins, admin actions, captcha rejections) and
// fans every event out to registered sinks.
package security

import (
	"time"
)

// EventType classifies a security event.
type EventType string

const (
	EventRateLimitExceeded  EventType = "RATE_LIMIT_EXCEEDED"
	EventAuthFailure        EventType = "AUTH_FAILURE"
	EventAdminAccess        EventType = "ADMIN_ACCESS"
	EventSuspiciousActivity EventType = "SUSPICIOUS_ACTIVITY"
	EventRecaptchaFailure   EventType = "RECAPTCHA_FAILURE"
)

// AllEventTypes lists every known event type in a stable order.
var AllEventTypes = []EventType{
	EventRateLimitExceeded,
	EventAuthFailure,
	EventAdminAccess,
	EventSuspiciousActivity,
	EventRecaptchaFailure,
}

// Valid reports whether t is one of the known event types.
func (t EventType) Valid() bool {
	for _, known := range AllEventTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Details is the type-specific payload of an event.
type Details interface {
	EventType() EventType
}

// RateLimitDetails describes a request rejected by a limiter.
type RateLimitDetails struct {
	Endpoint string `json:"endpoint"`
}

func (RateLimitDetails) EventType() EventType { return EventRateLimitExceeded }

// AuthFailureDetails describes a failed sign-in or token check.
type AuthFailureDetails struct {
	Reason string `json:"reason"`
}

func (AuthFailureDetails) EventType() EventType { return EventAuthFailure }

// AdminAccessDetails describes an action taken through the admin console.
type AdminAccessDetails struct {
	Action string `json:"action"`
}

func (AdminAccessDetails) EventType() EventType { return EventAdminAccess }

// CaptchaFailureDetails describes a rejected captcha verification. Score is
// nil when the verifier returned none.
type CaptchaFailureDetails struct {
	Score      *float64 `json:"score,omitempty"`
	ErrorCodes []string `json:"errorCodes,omitempty"`
}

func (CaptchaFailureDetails) EventType() EventType { return EventRecaptchaFailure }

// SuspiciousActivityDetails describes behaviour flagged as suspicious.
type SuspiciousActivityDetails struct {
	Activity string            `json:"activity"`
	Extra    map[string]string `json:"extra,omitempty"`
}

func (SuspiciousActivityDetails) EventType() EventType { return EventSuspiciousActivity }

// Meta carries the optional request attributes attached to an event.
type Meta struct {
	UserAgent string
	UserID    string
}

// Event is one entry of the security log. Events are values; the log never
// mutates an event after it is stored.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	IP        string    `json:"ip"`
	UserAgent string    `json:"userAgent,omitempty"`
	UserID    string    `json:"userId,omitempty"`
	Details   Details   `json:"details,omitempty"`
}
