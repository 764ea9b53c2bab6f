// Package config handles YAML configuration loading, environment variable
// expansion, and structural validation for ragraft.
package config

import (
	"time"

	"github.com/flemzord/ragraft/internal/provider"
	"github.com/flemzord/ragraft/internal/security"
	"github.com/flemzord/ragraft/internal/telemetry"
	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration structure.
type Config struct {
	// Version is the config format version. Only "1" is supported.
	Version string `yaml:"version"`

	// Modules maps module IDs to their raw YAML configuration.
	// Keys must match registered module IDs (e.g. "provider.groq").
	Modules map[string]yaml.Node `yaml:"modules"`

	Pipeline  PipelineConfig   `yaml:"pipeline"`
	Security  SecurityConfig   `yaml:"security"`
	Telemetry telemetry.Config `yaml:"telemetry"`
}

// PipelineConfig tunes the shared response pipeline.
type PipelineConfig struct {
	// CacheTTL bounds how long tenant settings stay in the cache module.
	// Default: 5m.
	CacheTTL time.Duration `yaml:"cache_ttl"`

	// QuestionRetention is how long the question log keeps entries.
	// Default: 90 days.
	QuestionRetention time.Duration `yaml:"question_retention"`

	// ProviderHealth controls backend health reporting.
	ProviderHealth provider.HealthConfig `yaml:"provider_health"`
}

// SecurityConfig holds gateway protection settings.
type SecurityConfig struct {
	// PublicRateLimit bounds public chat requests per client address.
	PublicRateLimit security.RateLimitConfig `yaml:"public_rate_limit"`

	// AuditLog is the JSONL audit file. Relative paths are resolved
	// against the data directory. Empty disables the file.
	AuditLog string `yaml:"audit_log"`
}

// DefaultQuestionRetention applies when pipeline.question_retention is unset.
const DefaultQuestionRetention = 90 * 24 * time.Hour

func (c *Config) defaults() {
	if c.Pipeline.QuestionRetention <= 0 {
		c.Pipeline.QuestionRetention = DefaultQuestionRetention
	}
}
