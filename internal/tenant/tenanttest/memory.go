// Package tenanttest provides in-memory implementations of the tenant
// store contracts for tests.
package tenanttest

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/flemzord/ragraft/internal/rules"
	"github.com/flemzord/ragraft/internal/tenant"
)

// Compile-time interface guards.
var (
	_ tenant.Store = (*MemoryStore)(nil)
	_ tenant.Cache = (*MemoryCache)(nil)
)

// MemoryStore is an in-memory tenant.Store. The Err fields, when set,
// are returned by the matching reads. Safe for concurrent use.
type MemoryStore struct {
	PreferencesErr error
	SetupErr       error
	RulesErr       error
	TagsErr        error
	RecordErr      error

	mu          sync.Mutex
	tenants     map[string]tenant.Tenant
	preferences map[string]tenant.Preferences
	setups      map[string]tenant.Setup
	rules       map[string][]rules.Rule
	knowledge   map[string][]tenant.KnowledgeItem
	questions   []tenant.Question
	setupReads  int
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tenants:     make(map[string]tenant.Tenant),
		preferences: make(map[string]tenant.Preferences),
		setups:      make(map[string]tenant.Setup),
		rules:       make(map[string][]rules.Rule),
		knowledge:   make(map[string][]tenant.KnowledgeItem),
	}
}

// CreateTenant implements tenant.Directory.
func (s *MemoryStore) CreateTenant(_ context.Context, t tenant.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tenants[t.ID] = t
	return nil
}

// Tenant implements tenant.Directory.
func (s *MemoryStore) Tenant(_ context.Context, id string) (tenant.Tenant, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tenants[id]
	return t, ok, nil
}

// TenantByCode implements tenant.Directory.
func (s *MemoryStore) TenantByCode(_ context.Context, code string) (tenant.Tenant, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tenants {
		if t.PublicCode == code {
			return t, true, nil
		}
	}
	return tenant.Tenant{}, false, nil
}

// Preferences implements tenant.SettingsStore.
func (s *MemoryStore) Preferences(_ context.Context, id string) (tenant.Preferences, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.PreferencesErr != nil {
		return tenant.Preferences{}, false, s.PreferencesErr
	}
	p, ok := s.preferences[id]
	return p, ok, nil
}

// SavePreferences implements tenant.SettingsStore.
func (s *MemoryStore) SavePreferences(_ context.Context, id string, p tenant.Preferences) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.preferences[id] = p
	return nil
}

// Setup implements tenant.SettingsStore.
func (s *MemoryStore) Setup(_ context.Context, id string) (tenant.Setup, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setupReads++
	if s.SetupErr != nil {
		return tenant.Setup{}, false, s.SetupErr
	}
	v, ok := s.setups[id]
	return v, ok, nil
}

// SaveSetup implements tenant.SettingsStore.
func (s *MemoryStore) SaveSetup(_ context.Context, id string, v tenant.Setup) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setups[id] = v
	return nil
}

// SetupReads returns how many times Setup was called.
func (s *MemoryStore) SetupReads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setupReads
}

// EnabledRules implements tenant.RuleStore.
func (s *MemoryStore) EnabledRules(_ context.Context, id string) ([]rules.Rule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.RulesErr != nil {
		return nil, s.RulesErr
	}
	return rules.Enabled(s.rules[id]), nil
}

// Rules implements tenant.RuleWriter.
func (s *MemoryStore) Rules(_ context.Context, id string) ([]rules.Rule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.RulesErr != nil {
		return nil, s.RulesErr
	}
	return rules.Sort(s.rules[id]), nil
}

// SaveRule implements tenant.RuleWriter. A rule with an existing ID
// replaces it.
func (s *MemoryStore) SaveRule(_ context.Context, id string, r rules.Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.rules[id]
	if i := slices.IndexFunc(list, func(x rules.Rule) bool { return x.ID == r.ID }); i >= 0 {
		list[i] = r
		return nil
	}
	s.rules[id] = append(list, r)
	return nil
}

// DeleteRule implements tenant.RuleWriter.
func (s *MemoryStore) DeleteRule(_ context.Context, id, ruleID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.rules[id]
	i := slices.IndexFunc(list, func(x rules.Rule) bool { return x.ID == ruleID })
	if i < 0 {
		return tenant.ErrNotFound
	}
	s.rules[id] = slices.Delete(list, i, i+1)
	return nil
}

// AddKnowledge implements tenant.KnowledgeStore.
func (s *MemoryStore) AddKnowledge(_ context.Context, id string, item tenant.KnowledgeItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.knowledge[id] = append(s.knowledge[id], item)
	return nil
}

// Knowledge implements tenant.KnowledgeStore.
func (s *MemoryStore) Knowledge(_ context.Context, id string) ([]tenant.KnowledgeItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.knowledge[id]), nil
}

// RemoveTag implements tenant.KnowledgeStore.
func (s *MemoryStore) RemoveTag(_ context.Context, id, tag string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	found := false
	for i, item := range s.knowledge[id] {
		if !slices.Contains(item.Tags, tag) {
			continue
		}
		found = true
		s.knowledge[id][i].Tags = slices.DeleteFunc(slices.Clone(item.Tags), func(t string) bool { return t == tag })
	}
	if !found {
		return tenant.ErrNotFound
	}
	return nil
}

// Tags implements tenant.TagRegistry, in first-filed order.
func (s *MemoryStore) Tags(_ context.Context, id string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.TagsErr != nil {
		return nil, s.TagsErr
	}
	var tags []string
	for _, item := range s.knowledge[id] {
		for _, tag := range item.Tags {
			if !slices.Contains(tags, tag) {
				tags = append(tags, tag)
			}
		}
	}
	return tags, nil
}

// RecordQuestion implements tenant.QuestionLog.
func (s *MemoryStore) RecordQuestion(_ context.Context, q tenant.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.RecordErr != nil {
		return s.RecordErr
	}
	s.questions = append(s.questions, q)
	return nil
}

// PruneQuestions implements tenant.QuestionLog.
func (s *MemoryStore) PruneQuestions(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.questions[:0]
	var n int64
	for _, q := range s.questions {
		if q.AskedAt.Before(before) {
			n++
			continue
		}
		kept = append(kept, q)
	}
	s.questions = kept
	return n, nil
}

// Questions returns a copy of every recorded question.
func (s *MemoryStore) Questions() []tenant.Question {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.questions)
}

// MemoryCache is an in-memory tenant.Cache that ignores expiry. GetErr,
// when set, is returned by Get.
type MemoryCache struct {
	GetErr error

	mu      sync.Mutex
	entries map[string][]byte
	deletes []string
}

// NewMemoryCache returns an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string][]byte)}
}

// Get implements tenant.Cache.
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.GetErr != nil {
		return nil, false, c.GetErr
	}
	v, ok := c.entries[key]
	return v, ok, nil
}

// Set implements tenant.Cache.
func (c *MemoryCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = slices.Clone(value)
	return nil
}

// Delete implements tenant.Cache.
func (c *MemoryCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.entries, k)
	}
	c.deletes = append(c.deletes, keys...)
	return nil
}

// Has reports whether key is cached.
func (c *MemoryCache) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok
}

// Deleted returns every key passed to Delete, in order.
func (c *MemoryCache) Deleted() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.deletes)
}
