// Package testutil holds shared fixtures: a context with a test logger and
// the standard benchmark rig used across package tests.
package testutil

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/mcrav/xdl/internal/ctxlog"
	"github.com/mcrav/xdl/internal/graph"
	"github.com/mcrav/xdl/internal/procedure"
	"github.com/mcrav/xdl/internal/step"
)

// Ctx returns a context carrying a discard logger, satisfying the
// pipeline's logger requirement without noisy test output.
func Ctx(t *testing.T) context.Context {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return ctxlog.WithLogger(context.Background(), logger)
}

// RigHCL is the standard test rig as HCL source: three reagent flasks and
// all liquid targets hanging off a two-valve backbone with one pump.
const RigHCL = `
node "flask_water" {
  kind     = "flask"
  volume   = "500 mL"
  chemical = "water"
}
node "flask_ether" {
  kind     = "flask"
  volume   = "500 mL"
  chemical = "ether"
}
node "flask_air" {
  kind     = "flask"
  chemical = "air"
}
node "reactor" {
  kind       = "reactor"
  volume     = "250 mL"
  can_filter = true
}
node "separator" {
  kind        = "separator"
  volume      = "200 mL"
  dead_volume = "2 mL"
}
node "rotavap" {
  kind   = "rotavap"
  volume = "100 mL"
}
node "waste" { kind = "waste" }
node "valve1" { kind = "valve" }
node "valve2" { kind = "valve" }
node "pump" { kind = "pump" }

edge {
  from = "flask_water"
  to   = "valve1"
}
edge {
  from = "valve1"
  to   = "flask_water"
}
edge {
  from = "flask_ether"
  to   = "valve1"
}
edge {
  from = "valve1"
  to   = "flask_ether"
}
edge {
  from = "flask_air"
  to   = "valve1"
}
edge {
  from = "valve1"
  to   = "flask_air"
}
edge {
  from = "valve1"
  to   = "pump"
}
edge {
  from = "pump"
  to   = "valve1"
}
edge {
  from = "valve1"
  to   = "valve2"
}
edge {
  from = "valve2"
  to   = "valve1"
}
edge {
  from = "valve2"
  to   = "reactor"
}
edge {
  from = "reactor"
  to   = "valve2"
}
edge {
  from = "valve2"
  to   = "separator"
}
edge {
  from = "separator"
  to   = "valve2"
}
edge {
  from = "valve2"
  to   = "rotavap"
}
edge {
  from = "rotavap"
  to   = "valve2"
}
edge {
  from = "valve2"
  to   = "waste"
}
edge {
  from = "waste"
  to   = "valve2"
}
`

// Rig loads the standard test rig.
func Rig(t *testing.T) *graph.Graph {
	t.Helper()
	g, err := graph.Load([]byte(RigHCL), "rig.hcl")
	if err != nil {
		t.Fatalf("loading test rig: %v", err)
	}
	return g
}

// LoadProcedure parses procedure HCL source, failing the test on error.
func LoadProcedure(t *testing.T, reg *step.Registry, src string) *procedure.Procedure {
	t.Helper()
	p, err := procedure.Load([]byte(src), "test.hcl", reg)
	if err != nil {
		t.Fatalf("loading test procedure: %v", err)
	}
	return p
}
