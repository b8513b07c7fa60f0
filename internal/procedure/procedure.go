// Package procedure defines the procedure document model and its HCL
// serialization: plain sources written by chemists and frozen artifacts
// written by the compiler.
package procedure

import (
	"github.com/mcrav/xdl/internal/step"
)

// Component is one entry of a procedure's hardware section: an abstract
// vessel name the steps refer to, with the role it must be mapped to.
type Component struct {
	Name string
	Role string
}

// Procedure is a parsed procedure document. Steps hold canonical-unit
// property values; unit strings were parsed at load time.
//
// GraphHash is empty for plain sources. A loaded frozen artifact carries
// the hash of the graph it was compiled against, and the executor refuses
// to run it on any other graph.
type Procedure struct {
	Name       string
	Components []Component
	Reagents   map[string]map[string]string
	Steps      []*step.Step
	GraphHash  string
}

// Frozen reports whether the procedure is a compiled artifact rather than
// a plain source.
func (p *Procedure) Frozen() bool {
	return p.GraphHash != ""
}

// Component returns the hardware component with the given name.
func (p *Procedure) Component(name string) (Component, bool) {
	for _, c := range p.Components {
		if c.Name == name {
			return c, true
		}
	}
	return Component{}, false
}
