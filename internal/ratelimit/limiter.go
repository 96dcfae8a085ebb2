// Package ratelimit provides per-identifier request throttling for the
// public endpoints (contact form, sign-in) and the client identifier
// extraction those limiters are keyed by.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

const (
	// DefaultWindow is the window length used when Config.Window is unset.
	DefaultWindow = 15 * time.Minute
	// DefaultMaxRequests is the allowance used when Config.MaxRequests is unset.
	DefaultMaxRequests = 5
	// DefaultCleanupInterval is the sweep period used when Config.CleanupInterval is unset.
	DefaultCleanupInterval = time.Minute
)

// Limiter decides whether a request from an identifier may proceed.
// Implementations never fail: a throttled caller is a false return, not an error.
type Limiter interface {
	Name() string
	Limit() int
	Allow(ctx context.Context, identifier string) bool
	Remaining(ctx context.Context, identifier string) int
	ResetTime(ctx context.Context, identifier string) time.Time
}

// Config configures a FixedWindowLimiter.
type Config struct {
	Name            string
	Window          time.Duration
	MaxRequests     int
	CleanupInterval time.Duration
	// DisableSweep skips the background cleanup goroutine. Expired entries
	// are still ignored on access; they just stay in memory until overwritten.
	DisableSweep bool
	// Now overrides the clock, mainly for tests.
	Now func() time.Time
}

// Entry is the state tracked for one identifier. Count is at least 1 for
// every stored entry because the request opening a window is itself counted.
type Entry struct {
	Count     int
	ResetTime time.Time
}

// FixedWindowLimiter allows MaxRequests per identifier per Window. A window
// starts on the first request and resets entirely once it has expired.
type FixedWindowLimiter struct {
	mu      sync.Mutex
	name    string
	window  time.Duration
	max     int
	entries map[string]*Entry
	now     func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

var _ Limiter = (*FixedWindowLimiter)(nil)

// NewFixedWindowLimiter constructs a limiter and, unless cfg.DisableSweep is
// set, starts its periodic sweep. Call Destroy to stop the sweep.
func NewFixedWindowLimiter(cfg Config) *FixedWindowLimiter {
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.MaxRequests <= 0 {
		cfg.MaxRequests = DefaultMaxRequests
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = DefaultCleanupInterval
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	l := &FixedWindowLimiter{
		name:    cfg.Name,
		window:  cfg.Window,
		max:     cfg.MaxRequests,
		entries: make(map[string]*Entry),
		now:     cfg.Now,
		stop:    make(chan struct{}),
	}
	if !cfg.DisableSweep {
		go l.sweepLoop(cfg.CleanupInterval)
	}
	return l
}

// Name returns the limiter's label, used in logs and metrics.
func (l *FixedWindowLimiter) Name() string { return l.name }

// Limit returns the number of requests allowed per window.
func (l *FixedWindowLimiter) Limit() int { return l.max }

// Window returns the configured window length.
func (l *FixedWindowLimiter) Window() time.Duration { return l.window }

// Allow reports whether identifier may make another request and counts it
// if so. A denied call leaves the entry untouched.
func (l *FixedWindowLimiter) Allow(_ context.Context, identifier string) bool {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[identifier]
	if !ok || now.After(entry.ResetTime) {
		l.entries[identifier] = &Entry{Count: 1, ResetTime: now.Add(l.window)}
		return true
	}

	if entry.Count >= l.max {
		return false
	}
	entry.Count++
	return true
}

// Remaining returns how many more requests identifier may make in its
// current window. It never creates or mutates an entry.
func (l *FixedWindowLimiter) Remaining(_ context.Context, identifier string) int {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[identifier]
	if !ok || now.After(entry.ResetTime) {
		return l.max
	}
	return max(0, l.max-entry.Count)
}

// ResetTime returns when identifier's allowance is restored. For an unknown
// or expired identifier that is a full window from now.
func (l *FixedWindowLimiter) ResetTime(_ context.Context, identifier string) time.Time {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[identifier]
	if !ok || now.After(entry.ResetTime) {
		return now.Add(l.window)
	}
	return entry.ResetTime
}

// Len returns the number of tracked identifiers, expired ones included
// until the next sweep.
func (l *FixedWindowLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Destroy stops the sweep and drops all entries. Safe to call more than once.
func (l *FixedWindowLimiter) Destroy() {
	l.stopOnce.Do(func() { close(l.stop) })

	l.mu.Lock()
	clear(l.entries)
	l.mu.Unlock()
}

func (l *FixedWindowLimiter) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.sweep()
		case <-l.stop:
			return
		}
	}
}

// sweep removes entries whose window has passed and returns how many were removed.
func (l *FixedWindowLimiter) sweep() int {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for id, entry := range l.entries {
		if now.After(entry.ResetTime) {
			delete(l.entries, id)
			removed++
		}
	}
	return removed
}
