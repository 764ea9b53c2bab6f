package provider

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// RegistryService is the AppContext service name of the shared Registry.
const RegistryService = "provider.registry"

// Registry maps backend kinds to generators and tracks their health.
// It is safe for concurrent use.
type Registry struct {
	logger *slog.Logger

	mu         sync.RWMutex
	generators map[Kind]Generator
	health     map[Kind]*healthTracker
	healthCfg  HealthConfig
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger, cfg HealthConfig) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	cfg.defaults()
	return &Registry{
		logger:     logger,
		generators: make(map[Kind]Generator),
		health:     make(map[Kind]*healthTracker),
		healthCfg:  cfg,
	}
}

// Register binds gen to kind, replacing any previous binding.
func (r *Registry) Register(kind Kind, gen Generator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.generators[kind] = gen
	if _, ok := r.health[kind]; !ok {
		h := newHealthTracker(r.healthCfg)
		h.onStateChange = func(from, to healthState) {
			r.logger.Warn("provider: health changed", "provider", kind, "from", from, "to", to)
		}
		r.health[kind] = h
	}
}

// Generator returns the generator bound to kind.
func (r *Registry) Generator(kind Kind) (Generator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	gen, ok := r.generators[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q is not enabled", ErrUnsupportedProvider, kind)
	}
	return gen, nil
}

// Generate dispatches req to its backend. The call is attempted exactly
// once; the outcome only feeds health reporting.
func (r *Registry) Generate(ctx context.Context, req Request) (Result, error) {
	gen, err := r.Generator(req.Provider)
	if err != nil {
		return Result{}, err
	}
	if req.APIKey == "" {
		return Result{}, MissingCredentialError(req.Provider)
	}

	res, err := gen.Generate(ctx, req)

	r.mu.RLock()
	h := r.health[req.Provider]
	r.mu.RUnlock()
	switch {
	case err == nil:
		h.RecordSuccess()
	case IsTransient(err):
		h.RecordFailure()
	}
	return res, err
}

// Health returns the health label of every registered backend.
func (r *Registry) Health() map[Kind]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[Kind]string, len(r.health))
	for k, h := range r.health {
		out[k] = h.State().String()
	}
	return out
}

// Healthy reports whether no registered backend is marked down.
func (r *Registry) Healthy() bool {
	for _, state := range r.Health() {
		if state == stateDown.String() {
			return false
		}
	}
	return true
}
