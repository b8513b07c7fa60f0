package steps

import (
	"fmt"
	"time"

	"github.com/zclconf/go-cty/cty"

	"github.com/mcrav/xdl/internal/graph"
	"github.com/mcrav/xdl/internal/step"
)

// HeatChill brings a vessel to temperature, holds it there for a fixed
// time, then stops heating. The temperature approach is a dynamic wait: the
// leaf WaitForTemp step polls the vessel's sensor at execution time.
var heatChillDef = &step.Definition{
	Kind:  "HeatChill",
	Class: step.Abstract,
	Props: []step.PropSpec{
		{Name: "vessel", Type: cty.String, Required: true, VesselRef: true},
		{Name: "temp", Type: cty.Number, Quantity: true, Required: true},
		{Name: "time", Type: cty.Number, Quantity: true, Required: true},
		{Name: "temp_timeout", Type: cty.Number, Quantity: true, Default: 3600.0},
		{Name: "stir", Type: cty.Bool, Default: true},
		{Name: "stir_speed", Type: cty.Number, Quantity: true, Default: DefaultStirSpeed},
	},
	Expand: func(s *step.Step, g *graph.Graph) ([]*step.Step, error) {
		var out []*step.Step
		if s.Bool("stir") {
			out = append(out, mk(cStartStirDef, map[string]any{
				"vessel":     s.Str("vessel"),
				"stir_speed": s.Float("stir_speed"),
			}))
		}
		out = append(out,
			mk(cStartHeatDef, map[string]any{
				"vessel": s.Str("vessel"),
				"temp":   s.Float("temp"),
			}),
			mk(waitForTempDef, map[string]any{
				"vessel":  s.Str("vessel"),
				"temp":    s.Float("temp"),
				"timeout": s.Float("temp_timeout"),
			}),
			mk(cWaitDef, map[string]any{"time": s.Float("time")}),
			mk(cStopHeatDef, map[string]any{"vessel": s.Str("vessel")}),
		)
		if s.Bool("stir") {
			out = append(out, mk(cStopStirDef, map[string]any{
				"vessel": s.Str("vessel"),
			}))
		}
		return out, nil
	},
	Checks: func(s *step.Step, g *graph.Graph) []step.Check {
		return []step.Check{
			{OK: s.Float("time") > 0, Msg: "hold time must be positive"},
			{OK: s.Float("temp") >= -100 && s.Float("temp") <= 400,
				Msg: fmt.Sprintf("temperature %.4g °C outside plausible range", s.Float("temp"))},
		}
	},
	Describe: func(s *step.Step) string {
		return fmt.Sprintf("Heat/chill %s to %.4g °C for %.4g s",
			s.Str("vessel"), s.Float("temp"), s.Float("time"))
	},
}

// WaitForTemp blocks until the vessel's temperature sensor reads within
// tolerance of target, re-evaluated against live sensor state. The timeout
// is mandatory: a dynamic step with no bound could hang a procedure
// forever.
var waitForTempDef = &step.Definition{
	Kind:  "WaitForTemp",
	Class: step.Dynamic,
	Props: []step.PropSpec{
		{Name: "vessel", Type: cty.String, Required: true, VesselRef: true},
		{Name: "temp", Type: cty.Number, Quantity: true, Required: true},
		{Name: "timeout", Type: cty.Number, Quantity: true, Required: true},
		{Name: "tolerance", Type: cty.Number, Quantity: true, Default: DefaultTempTolerance},
	},
	Checks: func(s *step.Step, g *graph.Graph) []step.Check {
		return []step.Check{
			{OK: s.Float("timeout") > 0, Msg: "timeout must be positive"},
			{OK: s.Float("tolerance") > 0, Msg: "tolerance must be positive"},
		}
	},
	// The wait can finish any time before the timeout; the timeout is the
	// only static bound available, so the scheduler reserves it in full.
	EstimateDuration: func(s *step.Step) time.Duration {
		return time.Duration(s.Float("timeout") * float64(time.Second))
	},
	Resources: func(s *step.Step) []string { return []string{s.Str("vessel")} },
	Describe: func(s *step.Step) string {
		return fmt.Sprintf("Wait for %s to reach %.4g °C",
			s.Str("vessel"), s.Float("temp"))
	},
}
