package steps

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"

	"github.com/mcrav/xdl/internal/graph"
	"github.com/mcrav/xdl/internal/step"
)

// Transfer moves liquid between two vessels already on the backbone.
var transferDef = &step.Definition{
	Kind:  "Transfer",
	Class: step.Abstract,
	Props: []step.PropSpec{
		{Name: "from_vessel", Type: cty.String, Required: true, VesselRef: true},
		{Name: "to_vessel", Type: cty.String, Required: true, VesselRef: true},
		{Name: "volume", Type: cty.Number, Quantity: true, Required: true},
		{Name: "from_port", Type: cty.String},
		{Name: "to_port", Type: cty.String},
		{Name: "through", Type: cty.String, VesselRef: true},
		{Name: "move_speed", Type: cty.Number, Quantity: true, Default: DefaultMoveSpeed},
		{Name: "aspiration_speed", Type: cty.Number, Quantity: true, Default: DefaultAspirationSpeed},
		{Name: "dispense_speed", Type: cty.Number, Quantity: true, Default: DefaultDispenseSpeed},
	},
	Expand: func(s *step.Step, g *graph.Graph) ([]*step.Step, error) {
		return []*step.Step{
			mk(cMoveDef, map[string]any{
				"from_vessel":      s.Str("from_vessel"),
				"to_vessel":        s.Str("to_vessel"),
				"from_port":        s.Props["from_port"],
				"to_port":          s.Props["to_port"],
				"through":          s.Props["through"],
				"volume":           s.Float("volume"),
				"move_speed":       s.Float("move_speed"),
				"aspiration_speed": s.Float("aspiration_speed"),
				"dispense_speed":   s.Float("dispense_speed"),
			}),
		}, nil
	},
	Checks: func(s *step.Step, g *graph.Graph) []step.Check {
		checks := []step.Check{
			{OK: s.Float("volume") > 0, Msg: "volume must be positive"},
			{OK: s.Str("from_vessel") != s.Str("to_vessel"),
				Msg: "from_vessel and to_vessel are the same"},
		}
		if target, ok := g.Node(s.Str("to_vessel")); ok && target.MaxVolume > 0 {
			checks = append(checks, step.Check{
				OK: s.Float("volume") <= target.MaxVolume,
				Msg: fmt.Sprintf("volume %.4g mL exceeds %s max volume %.4g mL",
					s.Float("volume"), target.ID, target.MaxVolume),
			})
		}
		return checks
	},
	Describe: func(s *step.Step) string {
		return fmt.Sprintf("Transfer %.4g mL from %s to %s",
			s.Float("volume"), s.Str("from_vessel"), s.Str("to_vessel"))
	},
}
