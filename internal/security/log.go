package security

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultCapacity            = 1000
	DefaultSuspiciousThreshold = 10
	DefaultSuspiciousWindow    = 5 * time.Minute
	DefaultRetention           = 7 * 24 * time.Hour

	dashboardRecentLimit = 100
	dashboardTypeLimit   = 50
)

// Config tunes a Log. Zero values fall back to the defaults above.
type Config struct {
	Capacity            int
	SuspiciousThreshold int
	SuspiciousWindow    time.Duration
	Retention           time.Duration
	Now                 func() time.Time
}

// Sink receives every event after it has been stored.
type Sink interface {
	HandleSecurityEvent(Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event)

func (f SinkFunc) HandleSecurityEvent(e Event) { f(e) }

// Log is a bounded, append-only ledger of security events. When full the
// oldest events are evicted first.
type Log struct {
	mu        sync.RWMutex
	events    []Event
	capacity  int
	threshold int
	window    time.Duration
	retention time.Duration
	now       func() time.Time

	sinkMu sync.RWMutex
	sinks  []Sink
}

// NewLog creates an empty log.
func NewLog(cfg Config) *Log {
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultCapacity
	}
	if cfg.SuspiciousThreshold <= 0 {
		cfg.SuspiciousThreshold = DefaultSuspiciousThreshold
	}
	if cfg.SuspiciousWindow <= 0 {
		cfg.SuspiciousWindow = DefaultSuspiciousWindow
	}
	if cfg.Retention <= 0 {
		cfg.Retention = DefaultRetention
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Log{
		events:    make([]Event, 0, cfg.Capacity),
		capacity:  cfg.Capacity,
		threshold: cfg.SuspiciousThreshold,
		window:    cfg.SuspiciousWindow,
		retention: cfg.Retention,
		now:       cfg.Now,
	}
}

// AddSink registers a sink. Sinks are called in registration order.
func (l *Log) AddSink(s Sink) {
	l.sinkMu.Lock()
	l.sinks = append(l.sinks, s)
	l.sinkMu.Unlock()
}

// Capacity returns the maximum number of retained events.
func (l *Log) Capacity() int { return l.capacity }

// Retention returns the age past which ClearOld purges events.
func (l *Log) Retention() time.Duration { return l.retention }

// Log stamps the event with the current time, stores it and forwards it to
// every sink. A missing Type is taken from the details.
func (l *Log) Log(e Event) Event {
	e.Timestamp = l.now()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Type == "" && e.Details != nil {
		e.Type = e.Details.EventType()
	}

	l.mu.Lock()
	l.events = append(l.events, e)
	if over := len(l.events) - l.capacity; over > 0 {
		n := copy(l.events, l.events[over:])
		clear(l.events[n:])
		l.events = l.events[:n]
	}
	l.mu.Unlock()

	l.sinkMu.RLock()
	sinks := l.sinks
	l.sinkMu.RUnlock()
	for _, s := range sinks {
		s.HandleSecurityEvent(e)
	}
	return e
}

// Recent returns up to limit of the newest events, oldest first.
func (l *Log) Recent(limit int) []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return tail(l.events, limit)
}

// ByType returns up to limit of the newest events of type t, oldest first.
func (l *Log) ByType(t EventType, limit int) []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()

	matched := make([]Event, 0)
	for _, e := range l.events {
		if e.Type == t {
			matched = append(matched, e)
		}
	}
	return tail(matched, limit)
}

// DetectSuspiciousActivity reports whether ip produced more events than the
// threshold within window. A non-positive window uses the configured one.
func (l *Log) DetectSuspiciousActivity(ip string, window time.Duration) bool {
	return l.CountRecent(ip, window) > l.threshold
}

// CountRecent counts events from ip younger than window.
func (l *Log) CountRecent(ip string, window time.Duration) int {
	if window <= 0 {
		window = l.window
	}
	now := l.now()

	l.mu.RLock()
	defer l.mu.RUnlock()

	count := 0
	for _, e := range l.events {
		if e.IP == ip && now.Sub(e.Timestamp) < window {
			count++
		}
	}
	return count
}

// ClearOlderThan removes events stamped before now-maxAge and returns how
// many were removed.
func (l *Log) ClearOlderThan(maxAge time.Duration) int {
	cutoff := l.now().Add(-maxAge)

	l.mu.Lock()
	defer l.mu.Unlock()

	kept := l.events[:0]
	for _, e := range l.events {
		if !e.Timestamp.Before(cutoff) {
			kept = append(kept, e)
		}
	}
	removed := len(l.events) - len(kept)
	clear(l.events[len(kept):])
	l.events = kept
	return removed
}

// ClearOld purges events older than the configured retention.
func (l *Log) ClearOld() int {
	return l.ClearOlderThan(l.retention)
}

// Len returns the number of retained events.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.events)
}

// Stats counts retained events per type. Every known type is present.
func (l *Log) Stats() map[EventType]int {
	stats := make(map[EventType]int, len(AllEventTypes))
	for _, t := range AllEventTypes {
		stats[t] = 0
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, e := range l.events {
		stats[e.Type]++
	}
	return stats
}

// Dashboard is the admin overview of the log.
type Dashboard struct {
	Recent             []Event           `json:"recentEvents"`
	RateLimitEvents    []Event           `json:"rateLimitEvents"`
	AuthFailures       []Event           `json:"authFailures"`
	RecaptchaFailures  []Event           `json:"recaptchaFailures"`
	SuspiciousActivity []Event           `json:"suspiciousActivity"`
	Stats              map[EventType]int `json:"stats"`
	Total              int               `json:"total"`
	GeneratedAt        time.Time         `json:"generatedAt"`
}

// Dashboard returns the newest events overall plus the newest events of each
// abuse-related type.
func (l *Log) Dashboard() Dashboard {
	return Dashboard{
		Recent:             l.Recent(dashboardRecentLimit),
		RateLimitEvents:    l.ByType(EventRateLimitExceeded, dashboardTypeLimit),
		AuthFailures:       l.ByType(EventAuthFailure, dashboardTypeLimit),
		RecaptchaFailures:  l.ByType(EventRecaptchaFailure, dashboardTypeLimit),
		SuspiciousActivity: l.ByType(EventSuspiciousActivity, dashboardTypeLimit),
		Stats:              l.Stats(),
		Total:              l.Len(),
		GeneratedAt:        l.now(),
	}
}

func tail(events []Event, limit int) []Event {
	if limit <= 0 {
		return []Event{}
	}
	start := max(0, len(events)-limit)
	out := make([]Event, len(events)-start)
	copy(out, events[start:])
	return out
}
