package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/greensmil/site_api/internal/security"
)

// securityEventRow is one row of security_events.
type securityEventRow struct {
	ID         string    `db:"id"`
	Type       string    `db:"type"`
	OccurredAt time.Time `db:"occurred_at"`
	IP         string    `db:"ip"`
	UserAgent  *string   `db:"user_agent"`
	UserID     *string   `db:"user_id"`
	Details    []byte    `db:"details"`
}

// SecurityEventRepository archives security events to Postgres.
type SecurityEventRepository struct {
	db *sqlx.DB
}

// NewSecurityEventRepository creates a new SecurityEventRepository.
func NewSecurityEventRepository(db *sqlx.DB) *SecurityEventRepository {
	return &SecurityEventRepository{db: db}
}

// InsertBatch writes events in one statement. Already archived ids are
// skipped so a retried batch does not fail.
func (r *SecurityEventRepository) InsertBatch(ctx context.Context, events []security.Event) error {
	if len(events) == 0 {
		return nil
	}

	rows := make([]securityEventRow, 0, len(events))
	for _, e := range events {
		row, err := toRow(e)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}

	const q = `
		INSERT INTO security_events (id, type, occurred_at, ip, user_agent, user_id, details)
		VALUES (:id, :type, :occurred_at, :ip, :user_agent, :user_id, :details)
		ON CONFLICT (id) DO NOTHING`
	if _, err := r.db.NamedExecContext(ctx, q, rows); err != nil {
		return fmt.Errorf("insert security events: %w", err)
	}
	return nil
}

// Ping reports whether the archive database is reachable.
func (r *SecurityEventRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func toRow(e security.Event) (securityEventRow, error) {
	details := []byte("{}")
	if e.Details != nil {
		b, err := json.Marshal(e.Details)
		if err != nil {
			return securityEventRow{}, fmt.Errorf("marshal details of %s: %w", e.ID, err)
		}
		details = b
	}
	return securityEventRow{
		ID:         e.ID,
		Type:       string(e.Type),
		OccurredAt: e.Timestamp,
		IP:         e.IP,
		UserAgent:  nullable(e.UserAgent),
		UserID:     nullable(e.UserID),
		Details:    details,
	}, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
