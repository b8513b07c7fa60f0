package steps

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"

	"github.com/mcrav/xdl/internal/graph"
	"github.com/mcrav/xdl/internal/step"
)

// Evaporate removes solvent on a rotary evaporator: heat the bath, spin the
// flask, pull vacuum for the evaporation time, then release everything in
// reverse order.
var evaporateDef = &step.Definition{
	Kind:  "Evaporate",
	Class: step.Abstract,
	Props: []step.PropSpec{
		{Name: "vessel", Type: cty.String, Required: true, VesselRef: true},
		{Name: "temp", Type: cty.Number, Quantity: true, Default: 50.0},
		{Name: "pressure", Type: cty.Number, Quantity: true, Default: 50.0},
		{Name: "time", Type: cty.Number, Quantity: true, Required: true},
		{Name: "rotation_speed", Type: cty.Number, Quantity: true, Default: 150.0},
	},
	Expand: func(s *step.Step, g *graph.Graph) ([]*step.Step, error) {
		n, ok := g.Node(s.Str("vessel"))
		if !ok || n.Kind != graph.KindRotavap {
			return nil, fmt.Errorf("vessel %q is not a rotavap", s.Str("vessel"))
		}
		v := s.Str("vessel")
		return []*step.Step{
			mk(cStartHeatDef, map[string]any{"vessel": v, "temp": s.Float("temp")}),
			mk(cRotateStartDef, map[string]any{
				"vessel":         v,
				"rotation_speed": s.Float("rotation_speed"),
			}),
			mk(cStartVacuumDef, map[string]any{
				"vessel":   v,
				"pressure": s.Float("pressure"),
			}),
			mk(cWaitDef, map[string]any{"time": s.Float("time")}),
			mk(cStopVacuumDef, map[string]any{"vessel": v}),
			mk(cRotateStopDef, map[string]any{"vessel": v}),
			mk(cStopHeatDef, map[string]any{"vessel": v}),
		}, nil
	},
	Checks: func(s *step.Step, g *graph.Graph) []step.Check {
		return []step.Check{
			{OK: s.Float("time") > 0, Msg: "evaporation time must be positive"},
			{OK: s.Float("pressure") > 0, Msg: "pressure must be positive"},
		}
	},
	Describe: func(s *step.Step) string {
		return fmt.Sprintf("Evaporate %s at %.4g °C / %.4g mbar for %.4g s",
			s.Str("vessel"), s.Float("temp"), s.Float("pressure"), s.Float("time"))
	},
}
