package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// allowScript counts a request unless the allowance is spent. The expiry is
// only set when the window opens, so the window is fixed like the in-memory
// limiter's. Returns {allowed, pttl}.
var allowScript = redis.NewScript(`
local current = redis.call('GET', KEYS[1])
if current and tonumber(current) >= tonumber(ARGV[1]) then
  return {0, redis.call('PTTL', KEYS[1])}
end
local count = redis.call('INCR', KEYS[1])
if count == 1 or redis.call('PTTL', KEYS[1]) < 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[2])
end
return {1, redis.call('PTTL', KEYS[1])}
`)

// RedisLimiter is a FixedWindowLimiter whose counters live in Redis, so
// several API instances share one allowance per identifier. Redis expiry
// replaces the sweep.
type RedisLimiter struct {
	client redis.Cmdable
	name   string
	window time.Duration
	max    int
	now    func() time.Time
}

var _ Limiter = (*RedisLimiter)(nil)

// NewRedisLimiter constructs a Redis-backed limiter. CleanupInterval and
// DisableSweep in cfg are ignored.
func NewRedisLimiter(client redis.Cmdable, cfg Config) *RedisLimiter {
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.MaxRequests <= 0 {
		cfg.MaxRequests = DefaultMaxRequests
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &RedisLimiter{
		client: client,
		name:   cfg.Name,
		window: cfg.Window,
		max:    cfg.MaxRequests,
		now:    cfg.Now,
	}
}

// Name returns the limiter's label.
func (l *RedisLimiter) Name() string { return l.name }

// Limit returns the number of requests allowed per window.
func (l *RedisLimiter) Limit() int { return l.max }

func (l *RedisLimiter) key(identifier string) string {
	return fmt.Sprintf("ratelimit:%s:%s", l.name, identifier)
}

// Allow counts the request and reports whether it may proceed. If Redis is
// unreachable the request is allowed and the error logged.
func (l *RedisLimiter) Allow(ctx context.Context, identifier string) bool {
	res, err := allowScript.Run(ctx, l.client, []string{l.key(identifier)}, l.max, l.window.Milliseconds()).Int64Slice()
	if err != nil || len(res) == 0 {
		log.Error().Err(err).Str("limiter", l.name).Msg("Redis rate limit check failed, allowing request")
		return true
	}
	return res[0] == 1
}

// Remaining returns the allowance left in the current window.
func (l *RedisLimiter) Remaining(ctx context.Context, identifier string) int {
	count, err := l.client.Get(ctx, l.key(identifier)).Int()
	if errors.Is(err, redis.Nil) {
		return l.max
	}
	if err != nil {
		log.Error().Err(err).Str("limiter", l.name).Msg("Redis rate limit lookup failed")
		return l.max
	}
	return max(0, l.max-count)
}

// ResetTime returns when the identifier's window ends.
func (l *RedisLimiter) ResetTime(ctx context.Context, identifier string) time.Time {
	now := l.now()
	ttl, err := l.client.PTTL(ctx, l.key(identifier)).Result()
	if err != nil || ttl <= 0 {
		return now.Add(l.window)
	}
	return now.Add(ttl)
}
