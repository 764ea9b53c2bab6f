package core

import "strings"

// ModuleID is a dotted module identifier such as "provider.groq" or
// "store.sqlite". The part before the first dot is the namespace.
type ModuleID string

// Namespace returns the namespace prefix of the ID ("provider" for
// "provider.groq"). IDs without a dot are their own namespace.
func (id ModuleID) Namespace() string {
	ns, _, _ := strings.Cut(string(id), ".")
	return ns
}

// Name returns the part of the ID after the namespace.
func (id ModuleID) Name() string {
	_, name, found := strings.Cut(string(id), ".")
	if !found {
		return string(id)
	}
	return name
}

// ModuleInfo describes a registered module.
type ModuleInfo struct {
	ID  ModuleID
	New func() Module
}

// Module is implemented by every pluggable component. Optional lifecycle
// hooks are expressed through the interfaces in lifecycle.go.
type Module interface {
	ModuleInfo() ModuleInfo
}
