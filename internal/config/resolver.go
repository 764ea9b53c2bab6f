package config

import (
	"cmp"
	"slices"

	"github.com/flemzord/ragraft/internal/core"
)

// loadOrder ranks module namespaces: storage and caches come up before
// the backends and the gateway that consume them.
var loadOrder = map[string]int{
	"store":     0,
	"cache":     1,
	"provider":  2,
	"retrieval": 3,
}

// Resolve returns the configured module IDs in load order: by namespace
// rank, then by ID. Namespaces without a rank load last.
func Resolve(cfg *Config) []string {
	ids := make([]string, 0, len(cfg.Modules))
	for id := range cfg.Modules {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b string) int {
		return cmp.Or(
			cmp.Compare(rank(a), rank(b)),
			cmp.Compare(a, b),
		)
	})
	return ids
}

func rank(id string) int {
	if r, ok := loadOrder[core.ModuleID(id).Namespace()]; ok {
		return r
	}
	return len(loadOrder)
}
