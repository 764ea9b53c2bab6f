package tenant

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// DefaultCacheTTL bounds how long a cached settings record may be served.
const DefaultCacheTTL = 5 * time.Minute

// Compile-time interface guards.
var (
	_ PreferenceStore = (*CachedStore)(nil)
	_ CredentialStore = (*CachedStore)(nil)
	_ SettingsStore   = (*CachedStore)(nil)
)

// CachedStore serves preferences and credentials through an optional
// Cache in front of a SettingsStore. Every write goes to the store first
// and then deletes the cached entry, so a reader never sees a value older
// than the last completed write. A nil cache reads straight through.
//
// Each key carries a write generation. A read that loaded from the store
// only fills the cache when no write to the key landed during the load.
type CachedStore struct {
	store  SettingsStore
	cache  Cache
	ttl    time.Duration
	logger *slog.Logger

	mu  sync.Mutex
	gen map[string]uint64

	// OnSecrets, when set, receives every key read from a setup record.
	// The process wires it to the log redactor.
	OnSecrets func(secrets ...string)
}

// NewCachedStore wraps store with cache. A non-positive ttl uses
// DefaultCacheTTL.
func NewCachedStore(store SettingsStore, cache Cache, ttl time.Duration, logger *slog.Logger) *CachedStore {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedStore{store: store, cache: cache, ttl: ttl, logger: logger, gen: make(map[string]uint64)}
}

func preferencesKey(tenantID string) string { return "tenant:" + tenantID + ":preferences" }
func setupKey(tenantID string) string       { return "tenant:" + tenantID + ":setup" }

// cached is the cache envelope. Found distinguishes a cached "no record"
// from a cached zero value.
type cached[T any] struct {
	Found bool `json:"found"`
	Value T    `json:"value"`
}

// Preferences implements PreferenceStore.
func (s *CachedStore) Preferences(ctx context.Context, tenantID string) (Preferences, bool, error) {
	return readThrough(ctx, s, preferencesKey(tenantID), func() (Preferences, bool, error) {
		return s.store.Preferences(ctx, tenantID)
	})
}

// SavePreferences writes p and invalidates the cached entry.
func (s *CachedStore) SavePreferences(ctx context.Context, tenantID string, p Preferences) error {
	if err := s.store.SavePreferences(ctx, tenantID, p); err != nil {
		return err
	}
	return s.invalidate(ctx, preferencesKey(tenantID))
}

// Setup returns the tenant's setup record.
func (s *CachedStore) Setup(ctx context.Context, tenantID string) (Setup, bool, error) {
	setup, ok, err := readThrough(ctx, s, setupKey(tenantID), func() (Setup, bool, error) {
		return s.store.Setup(ctx, tenantID)
	})
	if err == nil && ok && s.OnSecrets != nil {
		if secrets := setup.Secrets(); len(secrets) > 0 {
			s.OnSecrets(secrets...)
		}
	}
	return setup, ok, err
}

// SaveSetup writes setup and invalidates the cached entry.
func (s *CachedStore) SaveSetup(ctx context.Context, tenantID string, setup Setup) error {
	if err := s.store.SaveSetup(ctx, tenantID, setup); err != nil {
		return err
	}
	if s.OnSecrets != nil {
		if secrets := setup.Secrets(); len(secrets) > 0 {
			s.OnSecrets(secrets...)
		}
	}
	return s.invalidate(ctx, setupKey(tenantID))
}

// GenerationCredential implements CredentialStore.
func (s *CachedStore) GenerationCredential(ctx context.Context, tenantID string) (Credential, bool, error) {
	setup, ok, err := s.Setup(ctx, tenantID)
	if err != nil {
		return Credential{}, false, err
	}
	return setup.Generation(), ok, nil
}

// RoutingCredential implements CredentialStore.
func (s *CachedStore) RoutingCredential(ctx context.Context, tenantID string) (RoutingCredential, bool, error) {
	setup, ok, err := s.Setup(ctx, tenantID)
	if err != nil {
		return RoutingCredential{}, false, err
	}
	return setup.Routing(), ok, nil
}

// RetrievalKey implements CredentialStore.
func (s *CachedStore) RetrievalKey(ctx context.Context, tenantID string) (string, bool, error) {
	setup, ok, err := s.Setup(ctx, tenantID)
	if err != nil {
		return "", false, err
	}
	return setup.RetrievalKey, ok && setup.RetrievalKey != "", nil
}

func (s *CachedStore) invalidate(ctx context.Context, key string) error {
	if s.cache == nil {
		return nil
	}
	s.mu.Lock()
	s.gen[key]++
	s.mu.Unlock()
	if err := s.cache.Delete(ctx, key); err != nil {
		return fmt.Errorf("tenant: invalidate %s: %w", key, err)
	}
	return nil
}

// readThrough serves key from the cache, loading and storing it on a
// miss. Cache failures are logged and degrade to a direct store read;
// store errors are never cached.
func readThrough[T any](ctx context.Context, s *CachedStore, key string, load func() (T, bool, error)) (T, bool, error) {
	if s.cache != nil {
		raw, hit, err := s.cache.Get(ctx, key)
		switch {
		case err != nil:
			s.logger.Warn("tenant: cache read failed", "key", key, "error", err)
		case hit:
			var entry cached[T]
			if err := json.Unmarshal(raw, &entry); err == nil {
				return entry.Value, entry.Found, nil
			}
			s.logger.Warn("tenant: discarding malformed cache entry", "key", key)
		}
	}

	start := s.generation(key)
	value, found, err := load()
	if err != nil {
		var zero T
		return zero, false, err
	}

	if s.cache != nil {
		s.fill(ctx, key, start, cached[T]{Found: found, Value: value})
	}
	return value, found, nil
}

func (s *CachedStore) generation(key string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen[key]
}

// fill stores entry unless key was written since start. The check and the
// Set share the lock with the generation bump, so a Set that wins the race
// is always followed by the writer's Delete.
func (s *CachedStore) fill(ctx context.Context, key string, start uint64, entry any) {
	raw, err := json.Marshal(entry)
	if err != nil {
		s.logger.Warn("tenant: cache write failed", "key", key, "error", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen[key] != start {
		s.logger.Debug("tenant: skipping cache fill after concurrent write", "key", key)
		return
	}
	if err := s.cache.Set(ctx, key, raw, s.ttl); err != nil {
		s.logger.Warn("tenant: cache write failed", "key", key, "error", err)
	}
}
