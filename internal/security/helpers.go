package security

// RateLimitExceeded records a request rejected by a limiter on endpoint.
func (l *Log) RateLimitExceeded(ip, endpoint string, meta Meta) Event {
	return l.record(ip, meta, RateLimitDetails{Endpoint: endpoint})
}

// AuthFailure records a failed sign-in or token check. meta.UserID holds the
// attempted username when known.
func (l *Log) AuthFailure(ip, reason string, meta Meta) Event {
	return l.record(ip, meta, AuthFailureDetails{Reason: reason})
}

// AdminAccess records an action performed through the admin console.
func (l *Log) AdminAccess(ip, userID, action string, meta Meta) Event {
	meta.UserID = userID
	return l.record(ip, meta, AdminAccessDetails{Action: action})
}

// CaptchaFailure records a rejected captcha. score may be nil.
func (l *Log) CaptchaFailure(ip string, score *float64, errorCodes []string, meta Meta) Event {
	return l.record(ip, meta, CaptchaFailureDetails{Score: score, ErrorCodes: errorCodes})
}

// SuspiciousActivity records behaviour flagged as suspicious.
func (l *Log) SuspiciousActivity(ip, activity string, extra map[string]string, meta Meta) Event {
	return l.record(ip, meta, SuspiciousActivityDetails{Activity: activity, Extra: extra})
}

func (l *Log) record(ip string, meta Meta, d Details) Event {
	return l.Log(Event{
		Type:      d.EventType(),
		IP:        ip,
		UserAgent: meta.UserAgent,
		UserID:    meta.UserID,
		Details:   d,
	})
}
