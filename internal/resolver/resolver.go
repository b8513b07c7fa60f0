// Package resolver fills internal step properties from hardware graph
// queries and validates every vessel and reagent reference in a procedure
// tree before expansion runs.
package resolver

import (
	"context"
	"fmt"

	"github.com/mcrav/xdl/internal/ctxlog"
	"github.com/mcrav/xdl/internal/errs"
	"github.com/mcrav/xdl/internal/graph"
	"github.com/mcrav/xdl/internal/step"
)

// Resolver binds a procedure tree to a concrete rig. It walks the tree
// depth-first, parents before children, so an abstract step's Resolve hook
// runs before the substeps it produced are visited.
type Resolver struct {
	rc *step.ResolveContext
}

// New creates a resolver for the given graph and reagent declarations.
func New(g *graph.Graph, reagents map[string]map[string]string) *Resolver {
	return &Resolver{rc: &step.ResolveContext{Graph: g, Reagents: reagents}}
}

// Resolve resolves every step in the sequence. Resolution is idempotent:
// internal properties already filled (for example by a loaded frozen
// artifact) are left untouched, so resolving twice is a no-op.
func (r *Resolver) Resolve(ctx context.Context, steps []*step.Step) error {
	log := ctxlog.FromContext(ctx)
	for i, s := range steps {
		if err := r.resolveStep(ctx, s, label(s, i)); err != nil {
			return err
		}
	}
	log.Debug("resolution complete", "steps", len(steps))
	return nil
}

func (r *Resolver) resolveStep(ctx context.Context, s *step.Step, path string) error {
	if err := r.checkRefs(s, path); err != nil {
		return err
	}
	if resolve := s.Def().Resolve; resolve != nil {
		if err := resolve(r.rc, s); err != nil {
			return &errs.ResolutionError{Step: path, Detail: err.Error()}
		}
	}
	for i, b := range s.Block {
		if err := r.resolveStep(ctx, b, path+"/"+label(b, i)); err != nil {
			return err
		}
	}
	for i, c := range s.Children {
		if err := r.resolveStep(ctx, c, path+"/"+label(c, i)); err != nil {
			return err
		}
	}
	return nil
}

// checkRefs validates every set VesselRef property against the graph and
// every set ReagentRef property against the declared reagents.
func (r *Resolver) checkRefs(s *step.Step, path string) error {
	for _, spec := range s.Def().Props {
		if !s.Has(spec.Name) {
			continue
		}
		switch {
		case spec.VesselRef:
			v := s.Str(spec.Name)
			if _, ok := r.rc.Graph.Node(v); !ok {
				return &errs.UnknownVesselError{Step: path, Prop: spec.Name, Vessel: v}
			}
		case spec.ReagentRef:
			reagent := s.Str(spec.Name)
			if _, ok := r.rc.Reagents[reagent]; !ok {
				return &errs.UnknownReagentError{Step: path, Prop: spec.Name, Reagent: reagent}
			}
		}
	}
	return nil
}

// label names a step by kind and sibling position, e.g. "Add[2]".
func label(s *step.Step, i int) string {
	return fmt.Sprintf("%s[%d]", s.Kind, i)
}
