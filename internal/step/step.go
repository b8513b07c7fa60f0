// Package step defines the step data model: a tagged-union step value whose
// behaviour (expansion, resolution, sanity checks, duration, resources) is
// declared per kind in a Definition and dispatched through a Registry.
package step

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Class is the closed set of step classifications.
type Class int

const (
	// Abstract steps expand into other steps and are never executed
	// directly.
	Abstract Class = iota
	// Base steps are leaf device commands dispatched to the driver.
	Base
	// Dynamic steps re-evaluate against live sensor state at execution
	// time, bounded by a mandatory timeout.
	Dynamic
	// Async steps run logically concurrent with the main sequence and
	// need an explicit matching join or shutdown.
	Async
	// Unimplemented steps are declared placeholders that always fail
	// compilation.
	Unimplemented
)

func (c Class) String() string {
	switch c {
	case Abstract:
		return "abstract"
	case Base:
		return "base"
	case Dynamic:
		return "dynamic"
	case Async:
		return "async"
	case Unimplemented:
		return "unimplemented"
	}
	return fmt.Sprintf("Class(%d)", int(c))
}

// Step is one node of a procedure tree. Props hold canonical-unit values
// only; unit strings are parsed once at ingestion and never re-parsed.
//
// Block holds user-declared nested steps (Repeat and Async bodies).
// Children holds the expansion output and is only populated by the
// compiler or by loading a frozen artifact.
type Step struct {
	Kind     string
	UUID     string
	Props    map[string]any
	Block    []*Step
	Children []*Step

	def *Definition
}

// New creates a step of the given definition with no properties set.
// Callers normally go through Registry.Ingest instead.
func New(def *Definition) *Step {
	return &Step{
		Kind:  def.Kind,
		UUID:  uuid.NewString(),
		Props: make(map[string]any),
		def:   def,
	}
}

// Def returns the step's definition.
func (s *Step) Def() *Definition {
	return s.def
}

// Class returns the step's classification.
func (s *Step) Class() Class {
	return s.def.Class
}

// Has reports whether the named property has a value.
func (s *Step) Has(name string) bool {
	v, ok := s.Props[name]
	return ok && v != nil
}

// Set assigns a property value. Mutating a property invalidates any cached
// expansion, so the compiler discards Children on Set; re-expansion is
// always explicit, never triggered by assignment.
func (s *Step) Set(name string, v any) {
	s.Props[name] = v
	s.Children = nil
}

// Float returns the named property as float64, or 0 when unset.
func (s *Step) Float(name string) float64 {
	switch v := s.Props[name].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}

// Int returns the named property as int, or 0 when unset.
func (s *Step) Int(name string) int {
	switch v := s.Props[name].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}

// Str returns the named property as a string, or "" when unset.
func (s *Step) Str(name string) string {
	if v, ok := s.Props[name].(string); ok {
		return v
	}
	return ""
}

// Bool returns the named property as a bool, or false when unset.
func (s *Step) Bool(name string) bool {
	if v, ok := s.Props[name].(bool); ok {
		return v
	}
	return false
}

// Strings returns the named property as a string slice, or nil when unset.
func (s *Step) Strings(name string) []string {
	if v, ok := s.Props[name].([]string); ok {
		return v
	}
	return nil
}

// Duration interprets the named property (canonical seconds) as a
// time.Duration.
func (s *Step) Duration(name string) time.Duration {
	return time.Duration(s.Float(name) * float64(time.Second))
}

// Copy returns a deep copy of the step with fresh UUIDs throughout.
// Used by Repeat expansion so every iteration owns its own steps.
func (s *Step) Copy() *Step {
	c := &Step{
		Kind:  s.Kind,
		UUID:  uuid.NewString(),
		Props: make(map[string]any, len(s.Props)),
		def:   s.def,
	}
	for k, v := range s.Props {
		if ss, ok := v.([]string); ok {
			v = append([]string(nil), ss...)
		}
		c.Props[k] = v
	}
	for _, b := range s.Block {
		c.Block = append(c.Block, b.Copy())
	}
	for _, ch := range s.Children {
		c.Children = append(c.Children, ch.Copy())
	}
	return c
}

// Describe renders the step's one-line human-readable description, falling
// back to the kind name for kinds without a describer.
func (s *Step) Describe() string {
	if s.def.Describe != nil {
		return s.def.Describe(s)
	}
	return s.Kind
}
