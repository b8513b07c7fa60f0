package steps

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"

	"github.com/mcrav/xdl/internal/graph"
	"github.com/mcrav/xdl/internal/step"
)

var startStirDef = &step.Definition{
	Kind:  "StartStir",
	Class: step.Abstract,
	Props: []step.PropSpec{
		{Name: "vessel", Type: cty.String, Required: true, VesselRef: true},
		{Name: "stir_speed", Type: cty.Number, Quantity: true, Default: DefaultStirSpeed},
	},
	Expand: func(s *step.Step, g *graph.Graph) ([]*step.Step, error) {
		return []*step.Step{
			mk(cStartStirDef, map[string]any{
				"vessel":     s.Str("vessel"),
				"stir_speed": s.Float("stir_speed"),
			}),
		}, nil
	},
	Checks: func(s *step.Step, g *graph.Graph) []step.Check {
		return []step.Check{
			{OK: s.Float("stir_speed") > 0, Msg: "stir_speed must be positive"},
		}
	},
	Describe: func(s *step.Step) string {
		return fmt.Sprintf("Start stirring %s at %.4g RPM",
			s.Str("vessel"), s.Float("stir_speed"))
	},
}

var stopStirDef = &step.Definition{
	Kind:  "StopStir",
	Class: step.Abstract,
	Props: []step.PropSpec{
		{Name: "vessel", Type: cty.String, Required: true, VesselRef: true},
	},
	Expand: func(s *step.Step, g *graph.Graph) ([]*step.Step, error) {
		return []*step.Step{
			mk(cStopStirDef, map[string]any{"vessel": s.Str("vessel")}),
		}, nil
	},
	Describe: func(s *step.Step) string {
		return "Stop stirring " + s.Str("vessel")
	},
}

// Stir stirs a vessel for a fixed time, then stops.
var stirDef = &step.Definition{
	Kind:  "Stir",
	Class: step.Abstract,
	Props: []step.PropSpec{
		{Name: "vessel", Type: cty.String, Required: true, VesselRef: true},
		{Name: "time", Type: cty.Number, Quantity: true, Required: true},
		{Name: "stir_speed", Type: cty.Number, Quantity: true, Default: DefaultStirSpeed},
	},
	Expand: func(s *step.Step, g *graph.Graph) ([]*step.Step, error) {
		return []*step.Step{
			mk(cStartStirDef, map[string]any{
				"vessel":     s.Str("vessel"),
				"stir_speed": s.Float("stir_speed"),
			}),
			mk(cWaitDef, map[string]any{"time": s.Float("time")}),
			mk(cStopStirDef, map[string]any{"vessel": s.Str("vessel")}),
		}, nil
	},
	Checks: func(s *step.Step, g *graph.Graph) []step.Check {
		return []step.Check{
			{OK: s.Float("time") > 0, Msg: "stir time must be positive"},
			{OK: s.Float("stir_speed") > 0, Msg: "stir_speed must be positive"},
		}
	},
	Describe: func(s *step.Step) string {
		return fmt.Sprintf("Stir %s for %.4g s", s.Str("vessel"), s.Float("time"))
	},
}
