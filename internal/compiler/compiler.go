// Package compiler orchestrates the compilation pipeline: resolve the
// procedure tree against the hardware graph, expand abstract steps to a
// fixed point, run the sanity battery, and freeze the result into a
// replayable artifact stamped with the graph hash.
package compiler

import (
	"context"
	"fmt"

	"github.com/mcrav/xdl/internal/ctxlog"
	"github.com/mcrav/xdl/internal/errs"
	"github.com/mcrav/xdl/internal/graph"
	"github.com/mcrav/xdl/internal/procedure"
	"github.com/mcrav/xdl/internal/resolver"
	"github.com/mcrav/xdl/internal/sanity"
	"github.com/mcrav/xdl/internal/step"
)

// maxExpansionRounds bounds the resolve/expand loop. The deepest tree any
// registered kind can produce is a handful of levels; hitting the bound
// means an expansion hook is emitting abstract steps indefinitely.
const maxExpansionRounds = 32

// Compiler compiles procedures against one hardware graph.
type Compiler struct {
	g   *graph.Graph
	reg *step.Registry
}

// New creates a compiler for the given graph and step registry.
func New(g *graph.Graph, reg *step.Registry) *Compiler {
	return &Compiler{g: g, reg: reg}
}

// Compile runs the full pipeline on a procedure and returns the frozen
// artifact. The input procedure is never mutated; any failure discards all
// intermediate state, so a partially compiled tree is never observable.
//
// Compiling an artifact that is already frozen against the same graph is a
// cheap no-op pass. Frozen against a different graph, the stale expansion
// is discarded and the procedure recompiles from scratch.
func (c *Compiler) Compile(ctx context.Context, p *procedure.Procedure) (*procedure.Procedure, error) {
	log := ctxlog.FromContext(ctx)
	log.Info("▶️ compiling procedure", "name", p.Name, "steps", len(p.Steps))

	work := &procedure.Procedure{
		Name:       p.Name,
		Components: append([]procedure.Component(nil), p.Components...),
		Reagents:   p.Reagents,
	}
	for _, s := range p.Steps {
		work.Steps = append(work.Steps, s.Copy())
	}
	if p.Frozen() && p.GraphHash != c.g.Hash() {
		log.Warn("artifact was frozen against a different graph, recompiling",
			"name", p.Name)
		for _, s := range work.Steps {
			discardExpansion(s)
		}
	}

	res := resolver.New(c.g, work.Reagents)
	for round := 0; ; round++ {
		if round == maxExpansionRounds {
			return nil, &errs.StepExpansionError{
				Step:   p.Name,
				Detail: fmt.Sprintf("expansion did not converge after %d rounds", round),
			}
		}
		if err := res.Resolve(ctx, work.Steps); err != nil {
			return nil, err
		}
		changed, err := c.expandPass(work.Steps, "")
		if err != nil {
			return nil, err
		}
		if !changed {
			break
		}
	}

	if err := sanity.New(c.g).Check(ctx, work.Steps); err != nil {
		return nil, err
	}

	work.GraphHash = c.g.Hash()
	log.Info("✅ compiled", "name", p.Name, "leaves", countLeaves(work.Steps))
	return work, nil
}

// expandPass expands every unexpanded abstract step one level and reports
// whether anything changed. Newly produced children are resolved by the
// caller before the next pass, so expansions that depend on internal
// properties see them filled.
func (c *Compiler) expandPass(steps []*step.Step, prefix string) (bool, error) {
	changed := false
	for i, s := range steps {
		path := prefix + fmt.Sprintf("%s[%d]", s.Kind, i)
		fresh := false

		switch s.Class() {
		case step.Unimplemented:
			return false, &errs.StepExpansionError{
				Step:   path,
				Detail: fmt.Sprintf("step kind %q is not implemented", s.Kind),
			}
		case step.Abstract:
			if len(s.Children) == 0 {
				kids, err := s.Def().Expand(s, c.g)
				if err != nil {
					return false, &errs.StepExpansionError{Step: path, Detail: err.Error()}
				}
				if len(kids) == 0 {
					return false, &errs.StepExpansionError{Step: path, Detail: "expansion produced no steps"}
				}
				s.Children = kids
				changed = true
				fresh = true
			}
		}

		if len(s.Block) > 0 && s.Class() == step.Async {
			ch, err := c.expandPass(s.Block, path+"/")
			if err != nil {
				return false, err
			}
			changed = changed || ch
		}
		// Children created in this pass still carry unresolved internal
		// properties; they are expanded on the next round, after resolution.
		if len(s.Children) > 0 && !fresh {
			ch, err := c.expandPass(s.Children, path+"/")
			if err != nil {
				return false, err
			}
			changed = changed || ch
		}
	}
	return changed, nil
}

func discardExpansion(s *step.Step) {
	s.Children = nil
	for _, b := range s.Block {
		discardExpansion(b)
	}
}

func countLeaves(steps []*step.Step) int {
	n := 0
	for _, s := range steps {
		switch {
		case len(s.Children) > 0:
			n += countLeaves(s.Children)
		case s.Class() == step.Async && len(s.Block) > 0:
			n += countLeaves(s.Block)
		default:
			n++
		}
	}
	return n
}
