package steps

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"

	"github.com/mcrav/xdl/internal/graph"
	"github.com/mcrav/xdl/internal/step"
)

// Separate runs a liquid-liquid separation: move the mixture into the
// separator, optionally add extraction solvent, stir, settle, then draw the
// lower phase to its destination and send the remainder on.
var separateDef = &step.Definition{
	Kind:  "Separate",
	Class: step.Abstract,
	Props: []step.PropSpec{
		{Name: "from_vessel", Type: cty.String, Required: true, VesselRef: true},
		{Name: "separation_vessel", Type: cty.String, Required: true, VesselRef: true},
		{Name: "to_vessel", Type: cty.String, Required: true, VesselRef: true},
		{Name: "volume", Type: cty.Number, Quantity: true, Required: true},
		{Name: "solvent", Type: cty.String, ReagentRef: true},
		{Name: "solvent_volume", Type: cty.Number, Quantity: true},
		{Name: "stir_time", Type: cty.Number, Quantity: true, Default: 60.0},
		{Name: "settle_time", Type: cty.Number, Quantity: true, Default: DefaultSettleTime},

		{Name: "waste_vessel", Type: cty.String, Internal: true},
		{Name: "solvent_vessel", Type: cty.String, Internal: true},
		{Name: "dead_volume", Type: cty.Number, Internal: true},
	},
	Resolve: func(rc *step.ResolveContext, s *step.Step) error {
		if !s.Has("waste_vessel") {
			w, err := rc.Graph.NearestOfKind(s.Str("separation_vessel"), graph.KindWaste)
			if err != nil {
				return err
			}
			s.Props["waste_vessel"] = w
		}
		if s.Has("solvent") && !s.Has("solvent_vessel") {
			v, err := rc.Graph.ReagentVessel(s.Str("solvent"))
			if err != nil {
				return err
			}
			s.Props["solvent_vessel"] = v
		}
		if !s.Has("dead_volume") {
			var dead float64
			if n, ok := rc.Graph.Node(s.Str("separation_vessel")); ok {
				dead = n.DeadVolume
			}
			s.Props["dead_volume"] = dead
		}
		return nil
	},
	Expand: func(s *step.Step, g *graph.Graph) ([]*step.Step, error) {
		sep := s.Str("separation_vessel")
		if n, ok := g.Node(sep); !ok || n.Kind != graph.KindSeparator {
			return nil, fmt.Errorf("separation_vessel %q is not a separator", sep)
		}

		out := []*step.Step{}
		if s.Str("from_vessel") != sep {
			out = append(out, mk(cMoveDef, map[string]any{
				"from_vessel": s.Str("from_vessel"),
				"to_vessel":   sep,
				"volume":      s.Float("volume"),
			}))
		}
		mixVolume := s.Float("volume")
		if s.Has("solvent") {
			out = append(out, mk(addDef, map[string]any{
				"reagent": s.Str("solvent"),
				"vessel":  sep,
				"volume":  s.Float("solvent_volume"),
			}))
			mixVolume += s.Float("solvent_volume")
		}
		out = append(out,
			mk(stirDef, map[string]any{
				"vessel": sep,
				"time":   s.Float("stir_time"),
			}),
			mk(cWaitDef, map[string]any{"time": s.Float("settle_time")}),
			// Lower phase out of the bottom port, plus the cone dead
			// volume so the interface clears the tap.
			mk(cMoveDef, map[string]any{
				"from_vessel": sep,
				"from_port":   "bottom",
				"to_vessel":   s.Str("to_vessel"),
				"volume":      s.Float("volume")/2 + s.Float("dead_volume"),
			}),
			mk(cMoveDef, map[string]any{
				"from_vessel": sep,
				"from_port":   "bottom",
				"to_vessel":   s.Str("waste_vessel"),
				"volume":      mixVolume - s.Float("volume")/2,
			}),
		)
		return out, nil
	},
	Checks: func(s *step.Step, g *graph.Graph) []step.Check {
		checks := []step.Check{
			{OK: s.Float("volume") > 0, Msg: "volume must be positive"},
			{OK: !s.Has("solvent") || s.Float("solvent_volume") > 0,
				Msg: "solvent given without a positive solvent_volume"},
		}
		if n, ok := g.Node(s.Str("separation_vessel")); ok && n.MaxVolume > 0 {
			total := s.Float("volume") + s.Float("solvent_volume")
			checks = append(checks, step.Check{
				OK: total <= n.MaxVolume,
				Msg: fmt.Sprintf("combined volume %.4g mL exceeds separator capacity %.4g mL",
					total, n.MaxVolume),
			})
		}
		return checks
	},
	Describe: func(s *step.Step) string {
		return fmt.Sprintf("Separate %.4g mL from %s via %s into %s",
			s.Float("volume"), s.Str("from_vessel"),
			s.Str("separation_vessel"), s.Str("to_vessel"))
	},
}
