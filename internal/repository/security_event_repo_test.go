package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greensmil/site_api/internal/security"
)

func TestToRow(t *testing.T) {
	ts := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	row, err := toRow(security.Event{
		ID:        "7d0c1d7e-8a1f-4b3c-9d2e-1f0a2b3c4d5e",
		Type:      security.EventRateLimitExceeded,
		Timestamp: ts,
		IP:        "203.0.113.1",
		Details:   security.RateLimitDetails{Endpoint: "/v1/contact"},
	})
	require.NoError(t, err)

	assert.Equal(t, "RATE_LIMIT_EXCEEDED", row.Type)
	assert.Equal(t, ts, row.OccurredAt)
	assert.Nil(t, row.UserAgent)
	assert.Nil(t, row.UserID)
	assert.JSONEq(t, `{"endpoint":"/v1/contact"}`, string(row.Details))
}

func TestToRowWithoutDetails(t *testing.T) {
	row, err := toRow(security.Event{ID: "x", Type: security.EventAuthFailure, UserID: "alice", UserAgent: "curl"})
	require.NoError(t, err)
	assert.Equal(t, "{}", string(row.Details))
	require.NotNil(t, row.UserID)
	assert.Equal(t, "alice", *row.UserID)
	assert.Equal(t, "curl", *row.UserAgent)
}
