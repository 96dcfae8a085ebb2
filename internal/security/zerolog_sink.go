package security

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/rs/zerolog"
)

// ZerologSink writes security events to the operational log. In development
// every event is logged at warn level; elsewhere only failed sign-ins and
// suspicious activity are, at error level. User ids are hashed.
type ZerologSink struct {
	logger      zerolog.Logger
	development bool
}

// NewZerologSink creates a sink writing to logger. Only env "development"
// enables the verbose mode.
func NewZerologSink(logger zerolog.Logger, env string) *ZerologSink {
	return &ZerologSink{logger: logger, development: env == "development"}
}

func (s *ZerologSink) HandleSecurityEvent(e Event) {
	var ev *zerolog.Event
	msg := "[SECURITY]"
	switch {
	case s.development:
		ev = s.logger.Warn()
		msg = "[SECURITY EVENT]"
	case e.Type == EventAuthFailure || e.Type == EventSuspiciousActivity:
		ev = s.logger.Error()
	default:
		return
	}

	ev = ev.Str("event_id", e.ID).
		Str("type", string(e.Type)).
		Str("ip", e.IP).
		Time("timestamp", e.Timestamp)
	if e.UserAgent != "" {
		ev = ev.Str("user_agent", e.UserAgent)
	}
	if e.UserID != "" {
		ev = ev.Str("user_hash", HashUserID(e.UserID))
	}
	if e.Details != nil {
		ev = ev.Interface("details", e.Details)
	}
	ev.Msg(msg)
}

// HashUserID returns a short stable digest of a user id for log correlation.
func HashUserID(userID string) string {
	sum := sha256.Sum256([]byte(userID))
	return hex.EncodeToString(sum[:])[:12]
}
