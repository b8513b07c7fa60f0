package steps

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"

	"github.com/mcrav/xdl/internal/graph"
	"github.com/mcrav/xdl/internal/step"
)

// Add moves a reagent into a vessel: stop or start stirring, prime the
// delivery pump to waste, move the liquid, flush the line with inert gas
// when the rig has one, then wait for the line to settle. A mass-only Add
// is a solid addition and collapses to a confirmation prompt.
var addDef = &step.Definition{
	Kind:  "Add",
	Class: step.Abstract,
	Props: []step.PropSpec{
		{Name: "reagent", Type: cty.String, Required: true, ReagentRef: true},
		{Name: "vessel", Type: cty.String, Required: true, VesselRef: true},
		{Name: "volume", Type: cty.Number, Quantity: true},
		{Name: "mass", Type: cty.Number, Quantity: true},
		{Name: "port", Type: cty.String},
		{Name: "time", Type: cty.Number, Quantity: true},
		{Name: "move_speed", Type: cty.Number, Quantity: true, Default: DefaultMoveSpeed},
		{Name: "aspiration_speed", Type: cty.Number, Quantity: true, Default: DefaultAspirationSpeed},
		{Name: "dispense_speed", Type: cty.Number, Quantity: true, Default: DefaultDispenseSpeed},
		{Name: "viscous", Type: cty.Bool, Default: false},
		{Name: "stir", Type: cty.Bool, Default: false},
		{Name: "stir_speed", Type: cty.Number, Quantity: true, Default: DefaultStirSpeed},

		{Name: "reagent_vessel", Type: cty.String, Internal: true},
		{Name: "waste_vessel", Type: cty.String, Internal: true},
		{Name: "flush_tube_vessel", Type: cty.String, Internal: true},
	},
	Resolve: func(rc *step.ResolveContext, s *step.Step) error {
		if !s.Has("reagent_vessel") {
			v, err := rc.Graph.ReagentVessel(s.Str("reagent"))
			if err != nil {
				return err
			}
			s.Props["reagent_vessel"] = v
		}
		if !s.Has("waste_vessel") {
			w, err := rc.Graph.NearestOfKind(s.Str("vessel"), graph.KindWaste)
			if err != nil {
				return err
			}
			s.Props["waste_vessel"] = w
		}
		if !s.Has("flush_tube_vessel") {
			if f := rc.Graph.FlushVessel(); f != "" {
				s.Props["flush_tube_vessel"] = f
			}
		}
		return nil
	},
	Expand: func(s *step.Step, g *graph.Graph) ([]*step.Step, error) {
		// Solid addition: nothing to pump, just confirm.
		if !s.Has("volume") && s.Has("mass") {
			return []*step.Step{
				mk(cConfirmDef, map[string]any{
					"msg": fmt.Sprintf("Is %s (%.4g g) in %s?",
						s.Str("reagent"), s.Float("mass"), s.Str("vessel")),
				}),
			}, nil
		}
		if !s.Has("volume") {
			return nil, fmt.Errorf("neither volume nor mass given")
		}

		aspiration := s.Float("aspiration_speed")
		if s.Bool("viscous") {
			aspiration = DefaultViscousAspirationSpeed
		}

		out := []*step.Step{
			mk(primePumpDef, map[string]any{
				"reagent":      s.Str("reagent"),
				"waste_vessel": s.Props["waste_vessel"],
			}),
			mk(cMoveDef, map[string]any{
				"from_vessel":      s.Str("reagent_vessel"),
				"to_vessel":        s.Str("vessel"),
				"to_port":          s.Props["port"],
				"volume":           s.Float("volume"),
				"move_speed":       s.Float("move_speed"),
				"aspiration_speed": aspiration,
				"dispense_speed":   dispenseSpeed(s),
			}),
			mk(cWaitDef, map[string]any{"time": DefaultAfterAddWait}),
		}

		if s.Has("flush_tube_vessel") {
			out = append(out, mk(cMoveDef, map[string]any{
				"from_vessel": s.Str("flush_tube_vessel"),
				"to_vessel":   s.Str("vessel"),
				"to_port":     s.Props["port"],
				"volume":      DefaultAirFlushVolume,
			}))
		}

		var head *step.Step
		if s.Bool("stir") {
			head = mk(startStirDef, map[string]any{
				"vessel":     s.Str("vessel"),
				"stir_speed": s.Float("stir_speed"),
			})
		} else {
			head = mk(stopStirDef, map[string]any{"vessel": s.Str("vessel")})
		}
		return append([]*step.Step{head}, out...), nil
	},
	Checks: func(s *step.Step, g *graph.Graph) []step.Check {
		checks := []step.Check{
			{OK: s.Has("volume") || s.Has("mass"),
				Msg: "either volume or mass must be given"},
		}
		if s.Has("volume") {
			vol := s.Float("volume")
			checks = append(checks, step.Check{
				OK: vol > 0, Msg: "volume must be positive"})
			if target, ok := g.Node(s.Str("vessel")); ok && target.MaxVolume > 0 {
				checks = append(checks, step.Check{
					OK: vol <= target.MaxVolume,
					Msg: fmt.Sprintf("volume %.4g mL exceeds %s max volume %.4g mL",
						vol, target.ID, target.MaxVolume),
				})
			}
			if src, ok := g.Node(s.Str("reagent_vessel")); ok && src.MaxVolume > 0 {
				checks = append(checks, step.Check{
					OK: vol <= src.MaxVolume,
					Msg: fmt.Sprintf("volume %.4g mL exceeds source flask %s capacity %.4g mL",
						vol, src.ID, src.MaxVolume),
				})
			}
		}
		return checks
	},
	Describe: func(s *step.Step) string {
		if !s.Has("volume") && s.Has("mass") {
			return fmt.Sprintf("Add %s (%.4g g) to %s",
				s.Str("reagent"), s.Float("mass"), s.Str("vessel"))
		}
		return fmt.Sprintf("Add %s (%.4g mL) to %s",
			s.Str("reagent"), s.Float("volume"), s.Str("vessel"))
	},
}

// dispenseSpeed honours an explicit addition time by deriving the speed
// from it: speed (mL/min) = volume (mL) / time (min).
func dispenseSpeed(s *step.Step) float64 {
	if t := s.Float("time"); t > 0 {
		return s.Float("volume") / (t / 60)
	}
	return s.Float("dispense_speed")
}

// PrimePump pushes a small reagent volume through the line to waste so the
// subsequent move delivers full strength from the first drop.
var primePumpDef = &step.Definition{
	Kind:  "PrimePump",
	Class: step.Abstract,
	Props: []step.PropSpec{
		{Name: "reagent", Type: cty.String, Required: true, ReagentRef: true},
		{Name: "volume", Type: cty.Number, Quantity: true, Default: DefaultPrimeVolume},

		{Name: "reagent_vessel", Type: cty.String, Internal: true},
		{Name: "waste_vessel", Type: cty.String, Internal: true},
	},
	Resolve: func(rc *step.ResolveContext, s *step.Step) error {
		if !s.Has("reagent_vessel") {
			v, err := rc.Graph.ReagentVessel(s.Str("reagent"))
			if err != nil {
				return err
			}
			s.Props["reagent_vessel"] = v
		}
		if !s.Has("waste_vessel") {
			w, err := rc.Graph.NearestOfKind(s.Str("reagent_vessel"), graph.KindWaste)
			if err != nil {
				return err
			}
			s.Props["waste_vessel"] = w
		}
		return nil
	},
	Expand: func(s *step.Step, g *graph.Graph) ([]*step.Step, error) {
		return []*step.Step{
			mk(cMoveDef, map[string]any{
				"from_vessel": s.Str("reagent_vessel"),
				"to_vessel":   s.Str("waste_vessel"),
				"volume":      s.Float("volume"),
			}),
		}, nil
	},
	Checks: func(s *step.Step, g *graph.Graph) []step.Check {
		return []step.Check{
			{OK: s.Float("volume") > 0, Msg: "priming volume must be positive"},
		}
	},
	Describe: func(s *step.Step) string {
		return fmt.Sprintf("Prime pump with %.4g mL of %s",
			s.Float("volume"), s.Str("reagent"))
	},
}
