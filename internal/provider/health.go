package provider

import (
	"sync"
	"time"
)

// healthState is the availability a backend has shown recently.
type healthState int

const (
	stateHealthy  healthState = iota
	stateDegraded             // recent transient failure
	stateDown                 // too many consecutive transient failures
)

// String returns a human-readable label for the health state.
func (s healthState) String() string {
	switch s {
	case stateHealthy:
		return "healthy"
	case stateDegraded:
		return "degraded"
	case stateDown:
		return "down"
	default:
		return "unknown"
	}
}

// HealthStates lists every state label reported by Registry.Health.
func HealthStates() []string {
	return []string{stateHealthy.String(), stateDegraded.String(), stateDown.String()}
}

// HealthConfig controls health reporting. Health never gates requests.
type HealthConfig struct {
	// MaxFailures is the number of consecutive transient failures before
	// a backend is reported down. Default: 5.
	MaxFailures int `yaml:"max_failures"`

	// RecoverAfter is how long a degraded backend stays degraded without
	// further failures before it is reported healthy again. Default: 60s.
	RecoverAfter time.Duration `yaml:"recover_after"`
}

func (c *HealthConfig) defaults() {
	if c.MaxFailures <= 0 {
		c.MaxFailures = 5
	}
	if c.RecoverAfter <= 0 {
		c.RecoverAfter = 60 * time.Second
	}
}

// healthTracker follows the recent outcomes of a single backend.
type healthTracker struct {
	cfg HealthConfig

	// onStateChange is called outside the lock on every transition.
	onStateChange func(from, to healthState)

	mu          sync.Mutex
	state       healthState
	failures    int
	lastFailure time.Time

	now func() time.Time
}

func newHealthTracker(cfg HealthConfig) *healthTracker {
	cfg.defaults()
	return &healthTracker{cfg: cfg, state: stateHealthy, now: time.Now}
}

// RecordSuccess resets the tracker to healthy.
func (h *healthTracker) RecordSuccess() {
	h.mu.Lock()
	prev := h.state
	h.state = stateHealthy
	h.failures = 0
	h.mu.Unlock()

	if prev != stateHealthy && h.onStateChange != nil {
		h.onStateChange(prev, stateHealthy)
	}
}

// RecordFailure counts a transient failure.
func (h *healthTracker) RecordFailure() {
	h.mu.Lock()
	prev := h.state
	h.failures++
	h.lastFailure = h.now()
	if h.failures >= h.cfg.MaxFailures {
		h.state = stateDown
	} else {
		h.state = stateDegraded
	}
	next := h.state
	h.mu.Unlock()

	if prev != next && h.onStateChange != nil {
		h.onStateChange(prev, next)
	}
}

// State returns the current state. A degraded or down backend with no
// failure for RecoverAfter reads as healthy.
func (h *healthTracker) State() healthState {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state != stateHealthy && h.now().Sub(h.lastFailure) >= h.cfg.RecoverAfter {
		return stateHealthy
	}
	return h.state
}

// Failures returns the consecutive failure count.
func (h *healthTracker) Failures() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.failures
}
