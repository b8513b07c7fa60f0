package step

import (
	"fmt"
	"sort"
)

// Registry maps step kinds to their definitions. Dispatch everywhere in the
// pipeline goes through the registry by kind tag.
type Registry struct {
	defs map[string]*Definition
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]*Definition)}
}

// Register adds a definition. Registering the same kind twice is a
// programmer error and panics at startup, matching how handler registries
// treat duplicate registration.
func (r *Registry) Register(def *Definition) {
	if def.Kind == "" {
		panic("step: definition with empty kind")
	}
	if _, dup := r.defs[def.Kind]; dup {
		panic(fmt.Sprintf("step: duplicate definition for kind %q", def.Kind))
	}
	if def.Class == Abstract && def.Expand == nil {
		panic(fmt.Sprintf("step: abstract kind %q has no Expand", def.Kind))
	}
	r.defs[def.Kind] = def
}

// Get returns the definition for a kind.
func (r *Registry) Get(kind string) (*Definition, bool) {
	d, ok := r.defs[kind]
	return d, ok
}

// Kinds returns all registered kinds sorted.
func (r *Registry) Kinds() []string {
	out := make([]string, 0, len(r.defs))
	for k := range r.defs {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
