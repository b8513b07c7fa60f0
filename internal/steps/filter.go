package steps

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"

	"github.com/mcrav/xdl/internal/graph"
	"github.com/mcrav/xdl/internal/step"
)

// Filter pulls the liquid phase out of a filter vessel's bottom to waste
// under vacuum, leaving the solid on the frit. Expansion requires the
// vessel to declare filter capability; a Filter on a plain vessel aborts
// compilation.
var filterDef = &step.Definition{
	Kind:  "Filter",
	Class: step.Abstract,
	Props: []step.PropSpec{
		{Name: "vessel", Type: cty.String, Required: true, VesselRef: true},
		{Name: "volume", Type: cty.Number, Quantity: true},
		{Name: "aspiration_speed", Type: cty.Number, Quantity: true, Default: DefaultAspirationSpeed},

		{Name: "waste_vessel", Type: cty.String, Internal: true},
		{Name: "dead_volume", Type: cty.Number, Internal: true},
	},
	Resolve: func(rc *step.ResolveContext, s *step.Step) error {
		if !s.Has("waste_vessel") {
			w, err := rc.Graph.NearestOfKind(s.Str("vessel"), graph.KindWaste)
			if err != nil {
				return err
			}
			s.Props["waste_vessel"] = w
		}
		if !s.Has("dead_volume") {
			var dead float64
			if n, ok := rc.Graph.Node(s.Str("vessel")); ok {
				dead = n.DeadVolume
			}
			s.Props["dead_volume"] = dead
		}
		return nil
	},
	Expand: func(s *step.Step, g *graph.Graph) ([]*step.Step, error) {
		n, ok := g.Node(s.Str("vessel"))
		if !ok || !n.CanFilter {
			return nil, fmt.Errorf("vessel %q has no filter capability", s.Str("vessel"))
		}
		// Pull the declared volume plus the frit dead volume so nothing
		// is left sitting below the frit.
		volume := s.Float("volume") + s.Float("dead_volume")
		if volume <= 0 {
			volume = s.Float("dead_volume")
		}
		return []*step.Step{
			mk(cStartVacuumDef, map[string]any{"vessel": s.Str("vessel")}),
			mk(cMoveDef, map[string]any{
				"from_vessel":      s.Str("vessel"),
				"from_port":        "bottom",
				"to_vessel":        s.Str("waste_vessel"),
				"volume":           volume,
				"aspiration_speed": s.Float("aspiration_speed"),
			}),
			mk(cStopVacuumDef, map[string]any{"vessel": s.Str("vessel")}),
		}, nil
	},
	Checks: func(s *step.Step, g *graph.Graph) []step.Check {
		return []step.Check{
			{OK: !s.Has("volume") || s.Float("volume") >= 0,
				Msg: "filter volume is negative"},
		}
	},
	Describe: func(s *step.Step) string {
		return "Filter contents of " + s.Str("vessel")
	},
}
