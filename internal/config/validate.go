package config

import (
	"errors"
	"fmt"

	"github.com/flemzord/ragraft/internal/core"
)

// Validate checks the structural validity of a Config: the version, that
// every module ID is registered, that at most one module is configured
// per singleton namespace, and the pipeline and telemetry sections.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Version == "" {
		errs = append(errs, errors.New("config: version field is required"))
	} else if cfg.Version != "1" {
		errs = append(errs, fmt.Errorf("config: unsupported version %q (supported: \"1\")", cfg.Version))
	}

	if len(cfg.Modules) == 0 {
		errs = append(errs, errors.New("config: at least one module must be configured"))
	}

	seen := make(map[string]string)
	for _, id := range Resolve(cfg) {
		if _, ok := core.GetModule(id); !ok {
			errs = append(errs, fmt.Errorf("config: unknown module %q", id))
			continue
		}
		ns := core.ModuleID(id).Namespace()
		if !core.IsSingletonNamespace(ns) {
			continue
		}
		if prev, dup := seen[ns]; dup {
			errs = append(errs, fmt.Errorf("config: modules %q and %q both configured; only one %s module is allowed", prev, id, ns))
			continue
		}
		seen[ns] = id
	}

	if cfg.Pipeline.CacheTTL < 0 {
		errs = append(errs, fmt.Errorf("config: pipeline.cache_ttl must not be negative, got %s", cfg.Pipeline.CacheTTL))
	}
	if cfg.Pipeline.QuestionRetention < 0 {
		errs = append(errs, fmt.Errorf("config: pipeline.question_retention must not be negative, got %s", cfg.Pipeline.QuestionRetention))
	}
	if err := cfg.Telemetry.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("config: %w", err))
	}

	return errors.Join(errs...)
}
