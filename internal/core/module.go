// Package core provides the module system shared by every tdsta component:
// a registry of module constructors, the AppContext handed to modules during
// provisioning, and the App that drives their lifecycle.
package core

import "strings"

// ModuleID identifies a module as "<namespace>.<name>" (e.g. "ingest.corpus").
type ModuleID string

// Namespace returns the part of the ID before the first dot.
func (id ModuleID) Namespace() string {
	ns, _, _ := strings.Cut(string(id), ".")
	return ns
}

// ModuleInfo describes a registered module.
type ModuleInfo struct {
	ID  ModuleID
	New func() Module
}

// Module is implemented by every component that participates in the App lifecycle.
type Module interface {
	ModuleInfo() ModuleInfo
}
