package security

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZerologSink_Development(t *testing.T) {
	var buf bytes.Buffer
	l, _ := newTestLog(10)
	l.AddSink(NewZerologSink(zerolog.New(&buf), "development"))

	l.AdminAccess("1.1.1.1", "alice", "delete-user", Meta{})

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "warn", line["level"])
	assert.Equal(t, "[SECURITY EVENT]", line["message"])
	assert.Equal(t, "ADMIN_ACCESS", line["type"])
	assert.Equal(t, HashUserID("alice"), line["user_hash"])
	assert.NotContains(t, buf.String(), "alice")
}

func TestZerologSink_NonDevelopmentOnlyLogsSevereEvents(t *testing.T) {
	for _, env := range []string{"production", "staging", "test", ""} {
		t.Run(env, func(t *testing.T) {
			var buf bytes.Buffer
			l, _ := newTestLog(10)
			l.AddSink(NewZerologSink(zerolog.New(&buf), env))

			l.RateLimitExceeded("1.1.1.1", "/contact", Meta{})
			l.AdminAccess("1.1.1.1", "alice", "list-users", Meta{})
			l.CaptchaFailure("1.1.1.1", nil, []string{"low-score"}, Meta{})
			assert.Zero(t, buf.Len())

			l.AuthFailure("1.1.1.1", "bad password", Meta{})
			l.SuspiciousActivity("1.1.1.1", "burst", nil, Meta{})

			lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
			require.Len(t, lines, 2)
			for _, raw := range lines {
				var line map[string]any
				require.NoError(t, json.Unmarshal([]byte(raw), &line))
				assert.Equal(t, "error", line["level"])
				assert.Equal(t, "[SECURITY]", line["message"])
			}
		})
	}
}

func TestHashUserID(t *testing.T) {
	assert.Len(t, HashUserID("bob"), 12)
	assert.Equal(t, HashUserID("bob"), HashUserID("bob"))
	assert.NotEqual(t, HashUserID("bob"), HashUserID("bobby"))
}
