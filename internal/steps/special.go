package steps

import (
	"fmt"
	"time"

	"github.com/zclconf/go-cty/cty"

	"github.com/mcrav/xdl/internal/graph"
	"github.com/mcrav/xdl/internal/step"
)

// Wait is the user-facing wrapper around the CWait device command.
var waitDef = &step.Definition{
	Kind:  "Wait",
	Class: step.Abstract,
	Props: []step.PropSpec{
		{Name: "time", Type: cty.Number, Quantity: true, Required: true},
	},
	Expand: func(s *step.Step, g *graph.Graph) ([]*step.Step, error) {
		return []*step.Step{
			mk(cWaitDef, map[string]any{"time": s.Float("time")}),
		}, nil
	},
	Checks: func(s *step.Step, g *graph.Graph) []step.Check {
		return []step.Check{
			{OK: s.Float("time") > 0, Msg: "wait time must be positive"},
		}
	},
	Describe: func(s *step.Step) string {
		return fmt.Sprintf("Wait %.4g s", s.Float("time"))
	},
}

// Repeat expands its child block the given number of times. Every
// iteration gets its own copies, so later resolution fills each copy
// independently.
var repeatDef = &step.Definition{
	Kind:       "Repeat",
	Class:      step.Abstract,
	AllowBlock: true,
	Props: []step.PropSpec{
		{Name: "repeats", Type: cty.Number, Required: true},
	},
	Expand: func(s *step.Step, g *graph.Graph) ([]*step.Step, error) {
		n := s.Int("repeats")
		if n < 1 {
			return nil, fmt.Errorf("repeats must be at least 1, got %d", n)
		}
		if len(s.Block) == 0 {
			return nil, fmt.Errorf("repeat block is empty")
		}
		var out []*step.Step
		for i := 0; i < n; i++ {
			for _, child := range s.Block {
				out = append(out, child.Copy())
			}
		}
		return out, nil
	},
	Describe: func(s *step.Step) string {
		return fmt.Sprintf("Repeat %d times", s.Int("repeats"))
	},
}

// Async runs its child block on a background goroutine under an explicit
// pid. The block must be joined later with an Await (or covered by a
// Shutdown); the sanity checker enforces the match statically.
var asyncDef = &step.Definition{
	Kind:       "Async",
	Class:      step.Async,
	AllowBlock: true,
	Props: []step.PropSpec{
		{Name: "pid", Type: cty.String, Required: true},
	},
	EstimateDuration: func(s *step.Step) time.Duration {
		var total time.Duration
		for _, leaf := range Leaves(s.Block) {
			if d := leaf.Def().EstimateDuration; d != nil {
				total += d(leaf)
			}
		}
		return total
	},
	Resources: func(s *step.Step) []string {
		seen := map[string]bool{}
		var out []string
		for _, leaf := range Leaves(s.Block) {
			if r := leaf.Def().Resources; r != nil {
				for _, id := range r(leaf) {
					if !seen[id] {
						seen[id] = true
						out = append(out, id)
					}
				}
			}
		}
		return out
	},
	Describe: func(s *step.Step) string {
		return fmt.Sprintf("Run %d step(s) in background as %q",
			len(s.Block), s.Str("pid"))
	},
}

// Await blocks until the Async step with the matching pid has finished.
var awaitDef = &step.Definition{
	Kind:  "Await",
	Class: step.Async,
	Props: []step.PropSpec{
		{Name: "pid", Type: cty.String, Required: true},
	},
	EstimateDuration: func(s *step.Step) time.Duration { return time.Second },
	Resources:        func(s *step.Step) []string { return nil },
	Describe: func(s *step.Step) string {
		return fmt.Sprintf("Await background steps %q", s.Str("pid"))
	},
}

// Shutdown is the teardown step: it stops stirring, heating, rotation and
// vacuum on every vessel it names, according to what each vessel's kind
// supports. It also discharges any Async pids still running, so the
// async-release sanity check accepts it as a join point.
var shutdownDef = &step.Definition{
	Kind:  "Shutdown",
	Class: step.Abstract,
	Props: []step.PropSpec{
		{Name: "vessels", Type: cty.List(cty.String), Required: true},
	},
	Expand: func(s *step.Step, g *graph.Graph) ([]*step.Step, error) {
		var out []*step.Step
		for _, v := range s.Strings("vessels") {
			n, ok := g.Node(v)
			if !ok {
				return nil, fmt.Errorf("unknown vessel %q", v)
			}
			switch n.Kind {
			case graph.KindRotavap:
				out = append(out,
					mk(cStopVacuumDef, map[string]any{"vessel": v}),
					mk(cRotateStopDef, map[string]any{"vessel": v}),
					mk(cStopHeatDef, map[string]any{"vessel": v}),
				)
			case graph.KindReactor, graph.KindSeparator:
				out = append(out,
					mk(cStopStirDef, map[string]any{"vessel": v}),
					mk(cStopHeatDef, map[string]any{"vessel": v}),
				)
			default:
				out = append(out, mk(cStopStirDef, map[string]any{"vessel": v}))
			}
		}
		return out, nil
	},
	Checks: func(s *step.Step, g *graph.Graph) []step.Check {
		return []step.Check{
			{OK: len(s.Strings("vessels")) > 0, Msg: "no vessels to shut down"},
		}
	},
	Describe: func(s *step.Step) string {
		return fmt.Sprintf("Shut down %v", s.Strings("vessels"))
	},
}

// Recrystallize is declared but not implemented on this rig generation;
// compiling a procedure that uses it always fails.
var recrystallizeDef = &step.Definition{
	Kind:  "Recrystallize",
	Class: step.Unimplemented,
	Props: []step.PropSpec{
		{Name: "vessel", Type: cty.String, VesselRef: true},
		{Name: "solvent", Type: cty.String, ReagentRef: true},
	},
	Describe: func(s *step.Step) string { return "Recrystallize (unimplemented)" },
}

// Leaves returns the leaf steps (base, dynamic, async) under the given
// steps, in execution order. Steps with children descend into the
// expansion; unexpanded abstract steps count as their own leaf so callers
// can still walk partially-compiled trees.
func Leaves(list []*step.Step) []*step.Step {
	var out []*step.Step
	for _, s := range list {
		switch {
		case len(s.Children) > 0 && s.Class() == step.Abstract:
			out = append(out, Leaves(s.Children)...)
		default:
			out = append(out, s)
		}
	}
	return out
}
