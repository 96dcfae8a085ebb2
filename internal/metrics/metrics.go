// Package metrics exposes Prometheus collectors for the rate limiters and
// the security event log.
package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/greensmil/site_api/internal/security"
)

var (
	rateLimitDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "site_ratelimit_decisions_total",
		Help: "Rate limiter decisions by limiter and outcome",
	}, []string{"limiter", "decision"})

	trackedIdentifiers = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "site_ratelimit_tracked_identifiers",
		Help: "Identifiers currently tracked by an in-memory limiter",
	}, []string{"limiter"})

	securityEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "site_security_events_total",
		Help: "Security events logged by type",
	}, []string{"type"})

	securityEventsRetained = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "site_security_events_retained",
		Help: "Security events currently held in memory",
	})
)

// ObserveRateLimit counts one limiter decision.
func ObserveRateLimit(limiter string, allowed bool) {
	decision := "denied"
	if allowed {
		decision = "allowed"
	}
	rateLimitDecisions.WithLabelValues(limiter, decision).Inc()
}

// SetTrackedIdentifiers records the size of a limiter's table.
func SetTrackedIdentifiers(limiter string, n int) {
	trackedIdentifiers.WithLabelValues(limiter).Set(float64(n))
}

// SetSecurityEventsRetained records the size of the security log.
func SetSecurityEventsRetained(n int) {
	securityEventsRetained.Set(float64(n))
}

// SecuritySink counts every logged event and tracks the log size.
func SecuritySink(l *security.Log) security.Sink {
	return security.SinkFunc(func(e security.Event) {
		securityEvents.WithLabelValues(string(e.Type)).Inc()
		securityEventsRetained.Set(float64(l.Len()))
	})
}

// Handler serves the default registry in the Prometheus text format.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
