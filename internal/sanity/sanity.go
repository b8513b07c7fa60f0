// Package sanity runs the declarative check pass of compilation: every
// step's kind-level checks, required-property presence, placeholder kinds
// and async join matching. All violations in a pass are collected and
// reported together.
package sanity

import (
	"context"
	"fmt"

	"github.com/mcrav/xdl/internal/ctxlog"
	"github.com/mcrav/xdl/internal/errs"
	"github.com/mcrav/xdl/internal/graph"
	"github.com/mcrav/xdl/internal/step"
)

// Checker validates a resolved, expanded procedure tree against a graph.
type Checker struct {
	g *graph.Graph
}

// New creates a checker for the given graph.
func New(g *graph.Graph) *Checker {
	return &Checker{g: g}
}

// Check runs every sanity check on the tree and returns a SanityError
// carrying all violations, or nil when the tree is clean.
func (c *Checker) Check(ctx context.Context, steps []*step.Step) error {
	log := ctxlog.FromContext(ctx)

	var violations []errs.Violation
	for i, s := range steps {
		violations = append(violations, c.checkStep(s, label(s, i))...)
	}
	violations = append(violations, checkAsyncJoins(steps)...)

	if len(violations) > 0 {
		log.Warn("sanity checks failed", "violations", len(violations))
		return &errs.SanityError{Violations: violations}
	}
	log.Debug("sanity checks passed")
	return nil
}

func (c *Checker) checkStep(s *step.Step, path string) []errs.Violation {
	var out []errs.Violation

	if s.Class() == step.Unimplemented {
		out = append(out, errs.Violation{
			Step: path,
			Msg:  fmt.Sprintf("step kind %q is not implemented", s.Kind),
		})
	}

	for _, spec := range s.Def().Props {
		if spec.Required && !s.Has(spec.Name) {
			out = append(out, errs.Violation{
				Step: path,
				Msg:  fmt.Sprintf("required property %q is not set", spec.Name),
			})
		}
	}

	if checks := s.Def().Checks; checks != nil {
		for _, ch := range checks(s, c.g) {
			if !ch.OK {
				out = append(out, errs.Violation{Step: path, Msg: ch.Msg})
			}
		}
	}

	for i, b := range s.Block {
		out = append(out, c.checkStep(b, path+"/"+label(b, i))...)
	}
	for i, child := range s.Children {
		out = append(out, c.checkStep(child, path+"/"+label(child, i))...)
	}
	return out
}

// checkAsyncJoins verifies that every Async pid started anywhere in the
// executed sequence is joined by a later Await with the same pid or
// covered by a later Shutdown, and that no Await names a pid that was
// never started. The walk follows execution order: children of expanded
// steps run inline in the parent sequence and share its joins, while an
// Async body runs under its own joins and is checked as a separate scope.
func checkAsyncJoins(steps []*step.Step) []errs.Violation {
	return checkJoinScope(steps, "")
}

func checkJoinScope(steps []*step.Step, prefix string) []errs.Violation {
	j := &joinScope{
		open:    map[string]string{},
		started: map[string]bool{},
	}
	out := j.walk(steps, prefix)
	for pid, path := range j.open {
		out = append(out, errs.Violation{
			Step: path,
			Msg:  fmt.Sprintf("async pid %q is never awaited or shut down", pid),
		})
	}
	return out
}

// joinScope tracks the async pids of one sequential execution scope.
type joinScope struct {
	open    map[string]string // pid -> path of the Async that opened it
	started map[string]bool
}

func (j *joinScope) walk(steps []*step.Step, prefix string) []errs.Violation {
	var out []errs.Violation
	for i, s := range steps {
		path := prefix + label(s, i)
		switch s.Kind {
		case "Async":
			pid := s.Str("pid")
			if _, running := j.open[pid]; running {
				out = append(out, errs.Violation{
					Step: path,
					Msg:  fmt.Sprintf("duplicate async pid %q", pid),
				})
			} else {
				j.started[pid] = true
				j.open[pid] = path
			}
			out = append(out, checkJoinScope(s.Block, path+"/")...)
		case "Await":
			pid := s.Str("pid")
			if !j.started[pid] {
				out = append(out, errs.Violation{
					Step: path,
					Msg:  fmt.Sprintf("await for pid %q with no preceding async", pid),
				})
				continue
			}
			delete(j.open, pid)
		case "Shutdown":
			// Shutdown joins everything still running.
			j.open = map[string]string{}
		default:
			if len(s.Children) > 0 {
				out = append(out, j.walk(s.Children, path+"/")...)
			} else if len(s.Block) > 0 {
				out = append(out, j.walk(s.Block, path+"/")...)
			}
		}
	}
	return out
}

func label(s *step.Step, i int) string {
	return fmt.Sprintf("%s[%d]", s.Kind, i)
}
