package step

import (
	"time"

	"github.com/zclconf/go-cty/cty"

	"github.com/mcrav/xdl/internal/graph"
)

// PropSpec declares one property of a step kind.
//
// Internal properties are filled by the resolver during compilation, never
// supplied by users and never written back to plain procedure files (frozen
// artifacts carry them, which is what makes an artifact replayable without
// re-resolution).
type PropSpec struct {
	Name       string
	Type       cty.Type // cty.String, cty.Number, cty.Bool or cty.List(cty.String)
	Quantity   bool     // string values like "5 mL" parse to canonical floats
	Required   bool     // must be non-nil after resolution
	Default    any      // canonical value applied when the user omits the prop
	Internal   bool
	VesselRef  bool // value must name a node in the hardware graph
	ReagentRef bool // value must name a declared reagent
}

// Check is one declarative sanity predicate: a condition that must hold and
// the message shown when it does not. All checks run; violations are
// collected, not fail-fast.
type Check struct {
	OK  bool
	Msg string
}

// ResolveContext is what a kind's Resolve hook gets to query. The graph is
// read-only; Reagents maps declared reagent names to their metadata.
type ResolveContext struct {
	Graph    *graph.Graph
	Reagents map[string]map[string]string
}

// Definition declares a step kind: its schema plus the capability hooks the
// pipeline dispatches on. Hooks other than those required by the class may
// be nil.
type Definition struct {
	Kind  string
	Class Class

	// AllowBlock marks kinds whose procedure blocks may contain nested
	// step blocks (Repeat, Async).
	AllowBlock bool

	Props []PropSpec

	// Resolve fills internal properties from graph queries. It must be
	// idempotent: a property that is already set is never recomputed.
	Resolve func(rc *ResolveContext, s *Step) error

	// Expand produces the step's substep sequence. Required for Abstract
	// kinds; must be a pure function of the step's resolved properties
	// and the graph.
	Expand func(s *Step, g *graph.Graph) ([]*Step, error)

	// Checks returns the kind's sanity checks for the resolved step.
	Checks func(s *Step, g *graph.Graph) []Check

	// EstimateDuration returns the scheduling duration estimate. Required
	// for leaf classes (Base, Dynamic, Async).
	EstimateDuration func(s *Step) time.Duration

	// Resources returns the hardware node ids the step exclusively
	// occupies while executing. Required for leaf classes.
	Resources func(s *Step) []string

	// Describe renders a one-line human-readable description.
	Describe func(s *Step) string
}

// Prop returns the spec for the named property.
func (d *Definition) Prop(name string) (PropSpec, bool) {
	for _, p := range d.Props {
		if p.Name == name {
			return p, true
		}
	}
	return PropSpec{}, false
}
