package service

import (
	"github.com/rs/zerolog/log"

	"github.com/greensmil/site_api/internal/security"
)

// SuspiciousReport is the result of checking one address.
type SuspiciousReport struct {
	IP           string `json:"ip"`
	RecentEvents int    `json:"recentEvents"`
	Suspicious   bool   `json:"suspicious"`
}

// SecurityService is the admin read and purge surface of the security log.
type SecurityService struct {
	events *security.Log
}

func NewSecurityService(events *security.Log) *SecurityService {
	return &SecurityService{events: events}
}

// Dashboard returns the admin overview of recent events.
func (s *SecurityService) Dashboard() security.Dashboard {
	return s.events.Dashboard()
}

// ClearOld purges events past the retention period and records the purge.
func (s *SecurityService) ClearOld(actor Actor) int {
	removed := s.events.ClearOld()
	log.Info().Int("removed", removed).Str("user_hash", security.HashUserID(actor.Username)).Msg("Security events purged")
	s.events.AdminAccess(actor.IP, actor.Username, "clear-security-events", actor.meta())
	return removed
}

// CheckIP reports recent activity for ip against the suspicious threshold.
func (s *SecurityService) CheckIP(ip string) SuspiciousReport {
	return SuspiciousReport{
		IP:           ip,
		RecentEvents: s.events.CountRecent(ip, 0),
		Suspicious:   s.events.DetectSuspiciousActivity(ip, 0),
	}
}
