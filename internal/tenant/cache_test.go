package tenant_test

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/flemzord/ragraft/internal/tenant"
	"github.com/flemzord/ragraft/internal/tenant/tenanttest"
)

func newCached(t *testing.T) (*tenant.CachedStore, *tenanttest.MemoryStore, *tenanttest.MemoryCache) {
	t.Helper()
	store := tenanttest.NewMemoryStore()
	cache := tenanttest.NewMemoryCache()
	return tenant.NewCachedStore(store, cache, 0, nil), store, cache
}

func TestCachedStore_ReadThrough(t *testing.T) {
	ctx := context.Background()
	cs, store, cache := newCached(t)
	if err := store.SaveSetup(ctx, "t1", tenant.Setup{APIKey: "gsk_1"}); err != nil {
		t.Fatal(err)
	}

	for range 3 {
		cred, ok, err := cs.GenerationCredential(ctx, "t1")
		if err != nil || !ok || cred.APIKey != "gsk_1" {
			t.Fatalf("GenerationCredential() = %+v, %v, %v", cred, ok, err)
		}
	}
	if n := store.SetupReads(); n != 1 {
		t.Errorf("store reads = %d, want 1", n)
	}
	if !cache.Has("tenant:t1:setup") {
		t.Error("setup not cached")
	}
}

func TestCachedStore_CachesAbsence(t *testing.T) {
	ctx := context.Background()
	cs, store, _ := newCached(t)

	for range 2 {
		_, ok, err := cs.Setup(ctx, "missing")
		if err != nil || ok {
			t.Fatalf("Setup() ok = %v, err = %v", ok, err)
		}
	}
	if n := store.SetupReads(); n != 1 {
		t.Errorf("store reads = %d, want 1", n)
	}
}

func TestCachedStore_WriteInvalidates(t *testing.T) {
	ctx := context.Background()
	cs, _, cache := newCached(t)

	if err := cs.SaveSetup(ctx, "t1", tenant.Setup{APIKey: "old"}); err != nil {
		t.Fatal(err)
	}
	if _, _, err := cs.Setup(ctx, "t1"); err != nil {
		t.Fatal(err)
	}
	if err := cs.SaveSetup(ctx, "t1", tenant.Setup{APIKey: "new"}); err != nil {
		t.Fatal(err)
	}

	key, _, err := cs.RetrievalKey(ctx, "t1")
	if err != nil {
		t.Fatal(err)
	}
	if key != "" {
		t.Errorf("RetrievalKey() = %q, want empty", key)
	}
	cred, _, _ := cs.GenerationCredential(ctx, "t1")
	if cred.APIKey != "new" {
		t.Errorf("APIKey = %q, want new value after write", cred.APIKey)
	}

	p := tenant.Preferences{Name: "Nara"}
	if err := cs.SavePreferences(ctx, "t1", p); err != nil {
		t.Fatal(err)
	}
	if !slices.Contains(cache.Deleted(), "tenant:t1:preferences") {
		t.Errorf("deleted keys = %v, want preferences key", cache.Deleted())
	}
	got, ok, err := cs.Preferences(ctx, "t1")
	if err != nil || !ok || got.Name != "Nara" {
		t.Errorf("Preferences() = %+v, %v, %v", got, ok, err)
	}
}

// rotatingStore runs during once, right after the first Setup read.
type rotatingStore struct {
	*tenanttest.MemoryStore
	during func()
}

func (s *rotatingStore) Setup(ctx context.Context, id string) (tenant.Setup, bool, error) {
	setup, ok, err := s.MemoryStore.Setup(ctx, id)
	if s.during != nil {
		during := s.during
		s.during = nil
		during()
	}
	return setup, ok, err
}

func TestCachedStore_RotationDuringLoadNotCached(t *testing.T) {
	ctx := context.Background()
	store := &rotatingStore{MemoryStore: tenanttest.NewMemoryStore()}
	cache := tenanttest.NewMemoryCache()
	cs := tenant.NewCachedStore(store, cache, 0, nil)
	if err := store.SaveSetup(ctx, "t1", tenant.Setup{APIKey: "old"}); err != nil {
		t.Fatal(err)
	}
	store.during = func() {
		if err := cs.SaveSetup(ctx, "t1", tenant.Setup{APIKey: "new"}); err != nil {
			t.Error(err)
		}
	}

	cred, _, err := cs.GenerationCredential(ctx, "t1")
	if err != nil {
		t.Fatal(err)
	}
	if cred.APIKey != "old" {
		t.Fatalf("first read = %q, want the value loaded before the write", cred.APIKey)
	}
	if cache.Has("tenant:t1:setup") {
		t.Error("value loaded before the write was cached")
	}

	cred, _, _ = cs.GenerationCredential(ctx, "t1")
	if cred.APIKey != "new" {
		t.Errorf("APIKey = %q, want rotated key", cred.APIKey)
	}
}

func TestCachedStore_CacheFailureReadsStore(t *testing.T) {
	ctx := context.Background()
	store := tenanttest.NewMemoryStore()
	cache := tenanttest.NewMemoryCache()
	cache.GetErr = errors.New("connection refused")
	cs := tenant.NewCachedStore(store, cache, 0, nil)

	_ = store.SaveSetup(ctx, "t1", tenant.Setup{RetrievalKey: "sm_1"})
	key, ok, err := cs.RetrievalKey(ctx, "t1")
	if err != nil || !ok || key != "sm_1" {
		t.Errorf("RetrievalKey() = %q, %v, %v", key, ok, err)
	}
}

func TestCachedStore_StoreErrorNotCached(t *testing.T) {
	ctx := context.Background()
	cs, store, cache := newCached(t)
	store.SetupErr = errors.New("db locked")

	if _, _, err := cs.RoutingCredential(ctx, "t1"); err == nil {
		t.Fatal("expected error")
	}
	if cache.Has("tenant:t1:setup") {
		t.Error("error result was cached")
	}
}

func TestCachedStore_NilCache(t *testing.T) {
	ctx := context.Background()
	store := tenanttest.NewMemoryStore()
	cs := tenant.NewCachedStore(store, nil, 0, nil)

	if err := cs.SavePreferences(ctx, "t1", tenant.Preferences{Tone: "formal"}); err != nil {
		t.Fatal(err)
	}
	p, ok, err := cs.Preferences(ctx, "t1")
	if err != nil || !ok || p.Tone != "formal" {
		t.Errorf("Preferences() = %+v, %v, %v", p, ok, err)
	}
}

func TestCachedStore_OnSecrets(t *testing.T) {
	ctx := context.Background()
	cs, _, _ := newCached(t)
	var got []string
	cs.OnSecrets = func(secrets ...string) { got = append(got, secrets...) }

	if err := cs.SaveSetup(ctx, "t1", tenant.Setup{APIKey: "gsk_a", RoutingAPIKey: "gsk_b"}); err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(got, []string{"gsk_a", "gsk_b"}) {
		t.Errorf("secrets = %v", got)
	}
}
