package steps

import (
	"fmt"
	"time"

	"github.com/zclconf/go-cty/cty"

	"github.com/mcrav/xdl/internal/graph"
	"github.com/mcrav/xdl/internal/step"
)

// Base steps are the leaf device commands. Each declares the resources it
// exclusively occupies and a duration estimate for the scheduler; the
// executor maps each kind 1:1 to a device-driver call.

// secs converts canonical seconds to a time.Duration with a 1s floor, so
// zero-volume moves still occupy their resources for a schedulable slot.
func secs(f float64) time.Duration {
	if f < 1 {
		f = 1
	}
	return time.Duration(f * float64(time.Second))
}

var cMoveDef = &step.Definition{
	Kind:  "CMove",
	Class: step.Base,
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
		{Name: "route", Type: cty.List(cty.String), Internal: true},
		{Name: "pumps", Type: cty.List(cty.String), Internal: true},
	},
	Resolve: func(rc *step.ResolveContext, s *step.Step) error {
		if s.Has("route") {
			return nil
		}
		route, err := rc.Graph.BackboneRoute(s.Str("from_vessel"), s.Str("to_vessel"))
		if err != nil {
			return err
		}
		s.Props["route"] = route
		s.Props["pumps"] = rc.Graph.ServicePumps(route)
		return nil
	},
	Checks: func(s *step.Step, _ *graph.Graph) []step.Check {
		return []step.Check{
			{OK: s.Float("volume") >= 0, Msg: "move volume is negative"},
			{OK: s.Str("from_vessel") != s.Str("to_vessel"),
				Msg: "from_vessel and to_vessel are the same"},
		}
	},
	EstimateDuration: func(s *step.Step) time.Duration {
		speed := s.Float("move_speed")
		if speed <= 0 {
			speed = DefaultMoveSpeed
		}
		return secs(s.Float("volume") / speed * 60)
	},
	Resources: func(s *step.Step) []string {
		res := append([]string(nil), s.Strings("route")...)
		if len(res) == 0 {
			res = []string{s.Str("from_vessel"), s.Str("to_vessel")}
		}
		res = append(res, s.Strings("pumps")...)
		if t := s.Str("through"); t != "" {
			res = append(res, t)
		}
		return res
	},
	Describe: func(s *step.Step) string {
		return fmt.Sprintf("Move %.4g mL from %s to %s",
			s.Float("volume"), s.Str("from_vessel"), s.Str("to_vessel"))
	},
}

var cWaitDef = &step.Definition{
	Kind:  "CWait",
	Class: step.Base,
	Props: []step.PropSpec{
		{Name: "time", Type: cty.Number, Quantity: true, Required: true},
	},
	Checks: func(s *step.Step, _ *graph.Graph) []step.Check {
		return []step.Check{
			{OK: s.Float("time") >= 0, Msg: "wait time is negative"},
		}
	},
	EstimateDuration: func(s *step.Step) time.Duration { return secs(s.Float("time")) },
	Resources:        func(s *step.Step) []string { return nil },
	Describe: func(s *step.Step) string {
		return fmt.Sprintf("Wait %.4g s", s.Float("time"))
	},
}

var cConfirmDef = &step.Definition{
	Kind:  "CConfirm",
	Class: step.Base,
	Props: []step.PropSpec{
		{Name: "msg", Type: cty.String, Required: true},
	},
	EstimateDuration: func(s *step.Step) time.Duration { return 5 * time.Second },
	Resources:        func(s *step.Step) []string { return nil },
	Describe:         func(s *step.Step) string { return "Confirm: " + s.Str("msg") },
}

// vesselCommand builds the definition for a simple one-vessel device
// command; they differ only in kind, extra props and description.
func vesselCommand(kind, verb string, extra ...step.PropSpec) *step.Definition {
	props := append([]step.PropSpec{
		{Name: "vessel", Type: cty.String, Required: true, VesselRef: true},
	}, extra...)
	return &step.Definition{
		Kind:             kind,
		Class:            step.Base,
		Props:            props,
		EstimateDuration: func(s *step.Step) time.Duration { return time.Second },
		Resources:        func(s *step.Step) []string { return []string{s.Str("vessel")} },
		Describe: func(s *step.Step) string {
			return fmt.Sprintf("%s %s", verb, s.Str("vessel"))
		},
	}
}

var cStartStirDef = vesselCommand("CStartStir", "Start stirring",
	step.PropSpec{Name: "stir_speed", Type: cty.Number, Quantity: true, Default: DefaultStirSpeed})

var cStopStirDef = vesselCommand("CStopStir", "Stop stirring")

var cSetStirRateDef = vesselCommand("CSetStirRate", "Set stir rate on",
	step.PropSpec{Name: "stir_speed", Type: cty.Number, Quantity: true, Required: true})

var cStartHeatDef = vesselCommand("CStartHeat", "Start heating",
	step.PropSpec{Name: "temp", Type: cty.Number, Quantity: true, Required: true})

var cStopHeatDef = vesselCommand("CStopHeat", "Stop heating")

var cStartVacuumDef = vesselCommand("CStartVacuum", "Start vacuum on",
	step.PropSpec{Name: "pressure", Type: cty.Number, Quantity: true, Default: 50.0})

var cStopVacuumDef = vesselCommand("CStopVacuum", "Stop vacuum on")

var cRotateStartDef = vesselCommand("CRotateStart", "Start rotation on",
	step.PropSpec{Name: "rotation_speed", Type: cty.Number, Quantity: true, Default: 150.0})

var cRotateStopDef = vesselCommand("CRotateStop", "Stop rotation on")
