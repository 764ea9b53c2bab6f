package security

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func fixedClock(start time.Time) (func() time.Time, func(time.Duration)) {
	now := start
	var mu sync.Mutex
	return func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			return now
		}, func(d time.Duration) {
			mu.Lock()
			defer mu.Unlock()
			now = now.Add(d)
		}
}

func TestRateLimiter_AllowWithinLimit(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(RateLimitConfig{PerMinute: 5})
	for i := range 5 {
		if err := rl.Allow("10.0.0.1"); err != nil {
			t.Fatalf("Allow(%d): %v", i, err)
		}
	}
	if err := rl.Allow("10.0.0.1"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("6th Allow = %v, want ErrRateLimited", err)
	}
}

func TestRateLimiter_KeysAreIndependent(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(RateLimitConfig{PerMinute: 1})
	if err := rl.Allow("a"); err != nil {
		t.Fatal(err)
	}
	if err := rl.Allow("b"); err != nil {
		t.Fatalf("Allow(b) = %v, want nil", err)
	}
	if err := rl.Allow("a"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("Allow(a) = %v, want ErrRateLimited", err)
	}
}

func TestRateLimiter_SlidingWindow(t *testing.T) {
	t.Parallel()

	now, advance := fixedClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	rl := NewRateLimiter(RateLimitConfig{PerMinute: 2})
	rl.now = now

	_ = rl.Allow("ip")
	advance(30 * time.Second)
	_ = rl.Allow("ip")

	if err := rl.Allow("ip"); !errors.Is(err, ErrRateLimited) {
		t.Fatal("expected rate limit")
	}
	if got := rl.RetryAfter("ip"); got != 30*time.Second {
		t.Errorf("RetryAfter = %v, want 30s", got)
	}

	advance(30 * time.Second)
	if err := rl.Allow("ip"); err != nil {
		t.Fatalf("Allow after first event expired: %v", err)
	}
	if err := rl.Allow("ip"); !errors.Is(err, ErrRateLimited) {
		t.Fatal("second event should still be inside the window")
	}
}

func TestRateLimiter_RejectedRequestsNotCounted(t *testing.T) {
	t.Parallel()

	now, advance := fixedClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	rl := NewRateLimiter(RateLimitConfig{PerMinute: 1})
	rl.now = now

	_ = rl.Allow("ip")
	for range 10 {
		_ = rl.Allow("ip")
	}
	advance(time.Minute + time.Second)
	if err := rl.Allow("ip"); err != nil {
		t.Fatalf("Allow = %v, want nil", err)
	}
}

func TestRateLimiter_Sweep(t *testing.T) {
	t.Parallel()

	now, advance := fixedClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	rl := NewRateLimiter(RateLimitConfig{PerMinute: 5, MaxKeys: 3})
	rl.now = now

	for i := range 3 {
		_ = rl.Allow(fmt.Sprintf("old-%d", i))
	}
	advance(2 * time.Minute)
	_ = rl.Allow("new")

	if got := rl.Keys(); got != 1 {
		t.Errorf("Keys() = %d, want 1 after automatic sweep", got)
	}

	_ = rl.Allow("other")
	advance(2 * time.Minute)
	rl.Sweep()
	if got := rl.Keys(); got != 0 {
		t.Errorf("Keys() = %d, want 0", got)
	}
}

func TestRateLimiter_Defaults(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(RateLimitConfig{})
	if rl.cfg.PerMinute != 30 {
		t.Errorf("PerMinute = %d, want 30", rl.cfg.PerMinute)
	}
	if rl.cfg.MaxKeys != 10000 {
		t.Errorf("MaxKeys = %d, want 10000", rl.cfg.MaxKeys)
	}
}

func TestRateLimiter_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(RateLimitConfig{PerMinute: 50})

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if rl.Allow("shared") == nil {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if allowed != 50 {
		t.Errorf("allowed = %d, want 50", allowed)
	}
}
