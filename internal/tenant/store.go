package tenant

import (
	"context"
	"time"

	"github.com/flemzord/ragraft/internal/rules"
)

// Service names under which the persistence modules publish themselves.
const (
	StoreService = "tenant.store"
	CacheService = "tenant.cache"

	// SettingsService is the cache-fronted settings view. Writers go
	// through it so cached entries are invalidated.
	SettingsService = "tenant.settings"
)

// PreferenceStore reads tenant preferences. The bool is false when the
// tenant has never saved preferences.
type PreferenceStore interface {
	Preferences(ctx context.Context, tenantID string) (Preferences, bool, error)
}

// CredentialStore reads the credentials the pipeline needs. A missing
// key is reported as an empty APIKey, not an error.
type CredentialStore interface {
	GenerationCredential(ctx context.Context, tenantID string) (Credential, bool, error)
	RoutingCredential(ctx context.Context, tenantID string) (RoutingCredential, bool, error)
	RetrievalKey(ctx context.Context, tenantID string) (string, bool, error)
}

// RuleStore lists a tenant's enabled response rules in evaluation order.
type RuleStore interface {
	EnabledRules(ctx context.Context, tenantID string) ([]rules.Rule, error)
}

// TagRegistry lists every knowledge tag a tenant has filed items under.
type TagRegistry interface {
	Tags(ctx context.Context, tenantID string) ([]string, error)
}

// QuestionLog records answered questions.
type QuestionLog interface {
	RecordQuestion(ctx context.Context, q Question) error
	PruneQuestions(ctx context.Context, before time.Time) (int64, error)
}

// SettingsStore persists preferences and setup records.
type SettingsStore interface {
	Preferences(ctx context.Context, tenantID string) (Preferences, bool, error)
	SavePreferences(ctx context.Context, tenantID string, p Preferences) error
	Setup(ctx context.Context, tenantID string) (Setup, bool, error)
	SaveSetup(ctx context.Context, tenantID string, s Setup) error
}

// Directory creates and resolves tenants.
type Directory interface {
	CreateTenant(ctx context.Context, t Tenant) error
	Tenant(ctx context.Context, tenantID string) (Tenant, bool, error)
	TenantByCode(ctx context.Context, code string) (Tenant, bool, error)
}

// RuleWriter manages a tenant's rule list.
type RuleWriter interface {
	Rules(ctx context.Context, tenantID string) ([]rules.Rule, error)
	SaveRule(ctx context.Context, tenantID string, r rules.Rule) error
	DeleteRule(ctx context.Context, tenantID, ruleID string) error
}

// KnowledgeStore records uploaded knowledge items and their tags.
type KnowledgeStore interface {
	AddKnowledge(ctx context.Context, tenantID string, item KnowledgeItem) error
	Knowledge(ctx context.Context, tenantID string) ([]KnowledgeItem, error)
	// RemoveTag drops tag from every item of the tenant. Items are kept.
	// Returns ErrNotFound when no item carries the tag.
	RemoveTag(ctx context.Context, tenantID, tag string) error
	TagRegistry
}

// Store is the full persistence contract implemented by storage modules.
type Store interface {
	Directory
	SettingsStore
	RuleStore
	RuleWriter
	KnowledgeStore
	QuestionLog
}

// Cache is a byte-oriented key/value cache with expiry.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}
