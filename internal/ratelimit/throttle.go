package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type throttleEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// Throttle is a per-identifier token bucket used as a coarse guard on the
// whole API, in front of the stricter fixed-window limiters on individual
// endpoints. Idle buckets are dropped by a background cleanup.
type Throttle struct {
	mu       sync.Mutex
	buckets  map[string]*throttleEntry
	rate     rate.Limit
	burst    int
	maxIdle  time.Duration
	now      func() time.Time
	stop     chan struct{}
	stopOnce sync.Once
}

// NewThrottle creates a throttle allowing perSecond requests with the given
// burst per identifier. A non-positive perSecond disables throttling.
func NewThrottle(perSecond float64, burst int) *Throttle {
	if burst <= 0 {
		burst = 1
	}
	t := &Throttle{
		buckets: make(map[string]*throttleEntry),
		rate:    rate.Limit(perSecond),
		burst:   burst,
		maxIdle: 30 * time.Minute,
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	if perSecond <= 0 {
		t.rate = rate.Inf
	}
	go t.cleanupLoop(5 * time.Minute)
	return t
}

// Allow reports whether identifier has a token available and consumes it.
func (t *Throttle) Allow(identifier string) bool {
	now := t.now()

	t.mu.Lock()
	entry, ok := t.buckets[identifier]
	if !ok {
		entry = &throttleEntry{limiter: rate.NewLimiter(t.rate, t.burst)}
		t.buckets[identifier] = entry
	}
	entry.lastAccess = now
	t.mu.Unlock()

	return entry.limiter.AllowN(now, 1)
}

// Cleanup removes buckets idle for longer than maxIdle.
func (t *Throttle) Cleanup(maxIdle time.Duration) int {
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	removed := 0
	for id, entry := range t.buckets {
		if now.Sub(entry.lastAccess) > maxIdle {
			delete(t.buckets, id)
			removed++
		}
	}
	return removed
}

// Stop ends the cleanup goroutine.
func (t *Throttle) Stop() {
	t.stopOnce.Do(func() { close(t.stop) })
}

func (t *Throttle) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			t.Cleanup(t.maxIdle)
		case <-t.stop:
			return
		}
	}
}
