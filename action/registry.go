// Package action implements the action dispatcher (C5, §4.5): name
// resolution against a registry of configured types.ActionDef values,
// the find_uid/users precedence chain, and routing between in-child
// delivery and a privileged-parent IPC round-trip.
package action

import "github.com/mailshim/mailshim/types"

// Registry maps configured action names to their definitions (§3
// ActionDef). Built once from configuration; read-only during a run.
type Registry struct {
	defs map[string]types.ActionDef
}

// NewRegistry builds a Registry from an ordered list of definitions.
// A duplicate Name overwrites the earlier entry, matching "last one
// configured wins" for simple config-file layering.
func NewRegistry(defs []types.ActionDef) *Registry {
	r := &Registry{defs: make(map[string]types.ActionDef, len(defs))}
	for _, d := range defs {
		r.defs[d.Name] = d
	}
	return r
}

// Lookup returns the named action definition.
func (r *Registry) Lookup(name string) (types.ActionDef, bool) {
	d, ok := r.defs[name]
	return d, ok
}
