package security

import (
	"errors"
	"sync"
	"time"
)

// ErrRateLimited is returned when a client exceeds its request budget.
var ErrRateLimited = errors.New("rate limit exceeded")

// RateLimitConfig bounds requests per client key.
type RateLimitConfig struct {
	// PerMinute is the number of requests one key may make in any
	// sliding one-minute window.
	PerMinute int `yaml:"per_minute"`

	// MaxKeys caps tracked keys. When exceeded, idle keys are swept.
	MaxKeys int `yaml:"max_keys"`
}

func (c *RateLimitConfig) defaults() {
	if c.PerMinute <= 0 {
		c.PerMinute = 30
	}
	if c.MaxKeys <= 0 {
		c.MaxKeys = 10000
	}
}

// RateLimiter is a sliding-window limiter keyed by client (an IP address
// or a public chat code). Safe for concurrent use.
type RateLimiter struct {
	mu      sync.Mutex
	cfg     RateLimitConfig
	window  time.Duration
	windows map[string][]time.Time
	now     func() time.Time
}

// NewRateLimiter creates a limiter. Zero fields take defaults.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	cfg.defaults()
	return &RateLimiter{
		cfg:     cfg,
		window:  time.Minute,
		windows: make(map[string][]time.Time),
		now:     time.Now,
	}
}

// Allow records one request for key, or returns ErrRateLimited without
// recording it.
func (rl *RateLimiter) Allow(key string) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	events := evict(rl.windows[key], now.Add(-rl.window))
	if len(events) >= rl.cfg.PerMinute {
		rl.windows[key] = events
		return ErrRateLimited
	}
	rl.windows[key] = append(events, now)

	if len(rl.windows) > rl.cfg.MaxKeys {
		rl.sweepLocked(now)
	}
	return nil
}

// RetryAfter returns how long key must wait before its next request is
// allowed, or zero.
func (rl *RateLimiter) RetryAfter(key string) time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	events := evict(rl.windows[key], now.Add(-rl.window))
	if len(events) < rl.cfg.PerMinute {
		return 0
	}
	return events[0].Add(rl.window).Sub(now)
}

// Keys returns how many client keys are tracked.
func (rl *RateLimiter) Keys() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.windows)
}

// Sweep drops keys with no request inside the window.
func (rl *RateLimiter) Sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.sweepLocked(rl.now())
}

func (rl *RateLimiter) sweepLocked(now time.Time) {
	cutoff := now.Add(-rl.window)
	for key, events := range rl.windows {
		if events = evict(events, cutoff); len(events) == 0 {
			delete(rl.windows, key)
		} else {
			rl.windows[key] = events
		}
	}
}

// evict drops events at or before cutoff. Events are in time order.
func evict(events []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(events) && !events[i].After(cutoff) {
		i++
	}
	return events[i:]
}
