package core

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"sync"
)

// Namespaces with a fixed meaning in the pipeline. The backends in a
// singleton namespace are exclusive: a process runs at most one store, one
// settings cache and one retrieval backend, while any number of provider
// modules may serve generation.
const (
	NamespaceProvider  = "provider"
	NamespaceRetrieval = "retrieval"
	NamespaceStore     = "store"
	NamespaceCache     = "cache"
	NamespaceGateway   = "gateway"
)

var singletonNamespaces = []string{NamespaceStore, NamespaceCache, NamespaceRetrieval}

// IsSingletonNamespace reports whether at most one module of namespace ns
// may be configured.
func IsSingletonNamespace(ns string) bool {
	return slices.Contains(singletonNamespaces, ns)
}

var (
	modules   = make(map[ModuleID]ModuleInfo)
	modulesMu sync.RWMutex
)

// RegisterModule records a compiled module under its "namespace.name" ID.
// It panics on a duplicate ID, an ID without both parts, or a nil
// constructor. Called from the init function of each module package.
func RegisterModule(instance Module) {
	info := instance.ModuleInfo()
	ns, name, ok := strings.Cut(string(info.ID), ".")
	if !ok || ns == "" || name == "" {
		panic(fmt.Sprintf("module ID %q must have the form namespace.name", info.ID))
	}
	if info.New == nil {
		panic(fmt.Sprintf("module %s: New function must not be nil", info.ID))
	}

	modulesMu.Lock()
	defer modulesMu.Unlock()

	if _, exists := modules[info.ID]; exists {
		panic(fmt.Sprintf("module already registered: %s", info.ID))
	}
	modules[info.ID] = info
}

// GetModule returns the ModuleInfo for the given ID, or false if not found.
func GetModule(id string) (ModuleInfo, bool) {
	modulesMu.RLock()
	defer modulesMu.RUnlock()
	info, ok := modules[ModuleID(id)]
	return info, ok
}

// GetModules returns all registered modules sorted by ID.
func GetModules() []ModuleInfo {
	return collect(func(ModuleID) bool { return true })
}

// GetModulesByNamespace returns the modules of one namespace sorted by ID,
// for example every "provider.*" backend.
func GetModulesByNamespace(namespace string) []ModuleInfo {
	return collect(func(id ModuleID) bool { return id.Namespace() == namespace })
}

// Namespaces returns the distinct namespaces of the registered modules,
// sorted.
func Namespaces() []string {
	modulesMu.RLock()
	defer modulesMu.RUnlock()

	var out []string
	for id := range modules {
		if ns := id.Namespace(); !slices.Contains(out, ns) {
			out = append(out, ns)
		}
	}
	slices.Sort(out)
	return out
}

func collect(keep func(ModuleID) bool) []ModuleInfo {
	modulesMu.RLock()
	defer modulesMu.RUnlock()

	var result []ModuleInfo
	for id, info := range modules {
		if keep(id) {
			result = append(result, info)
		}
	}
	slices.SortFunc(result, func(a, b ModuleInfo) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return result
}

// resetRegistry clears the registry. Only for testing.
func resetRegistry() {
	modulesMu.Lock()
	defer modulesMu.Unlock()
	modules = make(map[ModuleID]ModuleInfo)
}
