package compiler_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcrav/xdl/internal/compiler"
	"github.com/mcrav/xdl/internal/errs"
	"github.com/mcrav/xdl/internal/procedure"
	"github.com/mcrav/xdl/internal/step"
	"github.com/mcrav/xdl/internal/steps"
	"github.com/mcrav/xdl/internal/testutil"
)

const addSource = `
reagents {
  reagent "water" {}
}

procedure {
  step "Add" {
    reagent = "water"
    vessel  = "reactor"
    volume  = "50 mL"
  }
}
`

func compile(t *testing.T, src string) (*procedure.Procedure, error) {
	t.Helper()
	reg := steps.NewRegistry()
	p := testutil.LoadProcedure(t, reg, src)
	c := compiler.New(testutil.Rig(t), reg)
	return c.Compile(testutil.Ctx(t), p)
}

// leafKinds flattens the frozen tree to its leaf kind sequence.
func leafKinds(list []*step.Step) []string {
	var out []string
	for _, s := range list {
		if s.Class() == step.Abstract && len(s.Children) > 0 {
			out = append(out, leafKinds(s.Children)...)
			continue
		}
		out = append(out, s.Kind)
	}
	return out
}

func TestCompileAdd(t *testing.T) {
	frozen, err := compile(t, addSource)
	require.NoError(t, err)

	assert.True(t, frozen.Frozen())
	assert.Equal(t, testutil.Rig(t).Hash(), frozen.GraphHash)

	// Full leaf sequence of a liquid addition: stop stirring, prime the
	// pump to waste, deliver, settle, flush the line with air.
	assert.Equal(t,
		[]string{"CStopStir", "CMove", "CMove", "CWait", "CMove"},
		leafKinds(frozen.Steps))
}

func TestCompileResolvesNestedExpansions(t *testing.T) {
	frozen, err := compile(t, addSource)
	require.NoError(t, err)

	// PrimePump only exists after Add expands, and its own move can only
	// resolve once the resolver has filled the priming vessels in a later
	// round. Its leaf must carry real vessel names, not empty strings.
	add := frozen.Steps[0]
	prime := add.Children[1]
	require.Equal(t, "PrimePump", prime.Kind)
	require.Len(t, prime.Children, 1)

	move := prime.Children[0]
	assert.Equal(t, "CMove", move.Kind)
	assert.Equal(t, "flask_water", move.Str("from_vessel"))
	assert.Equal(t, "waste", move.Str("to_vessel"))
}

func TestCompileDoesNotMutateInput(t *testing.T) {
	reg := steps.NewRegistry()
	p := testutil.LoadProcedure(t, reg, addSource)
	c := compiler.New(testutil.Rig(t), reg)

	_, err := c.Compile(testutil.Ctx(t), p)
	require.NoError(t, err)

	assert.False(t, p.Frozen())
	assert.Nil(t, p.Steps[0].Children)
	assert.False(t, p.Steps[0].Has("waste_vessel"))
}

func TestCompileDeterministic(t *testing.T) {
	a, err := compile(t, addSource)
	require.NoError(t, err)
	b, err := compile(t, addSource)
	require.NoError(t, err)

	// Identical input and graph give an identical tree; UUIDs are the
	// only allowed difference.
	diff := cmp.Diff(a, b,
		cmpopts.IgnoreFields(step.Step{}, "UUID"),
		cmpopts.IgnoreUnexported(step.Step{}),
	)
	assert.Empty(t, diff)

	// Serialized artifacts are byte-identical.
	assert.Equal(t, string(procedure.Marshal(a)), string(procedure.Marshal(b)))
}

func TestCompileSanityFailureReturnsNoArtifact(t *testing.T) {
	frozen, err := compile(t, `
reagents {
  reagent "water" {}
}

procedure {
  step "Add" {
    reagent = "water"
    vessel  = "reactor"
    volume  = "300 mL"
  }
}
`)
	var se *errs.SanityError
	require.ErrorAs(t, err, &se)
	assert.Nil(t, frozen)
}

func TestCompileUnknownVessel(t *testing.T) {
	_, err := compile(t, `
reagents {
  reagent "water" {}
}

procedure {
  step "Add" {
    reagent = "water"
    vessel  = "ghost"
    volume  = "10 mL"
  }
}
`)
	var uv *errs.UnknownVesselError
	require.ErrorAs(t, err, &uv)
}

func TestCompileExpansionFailure(t *testing.T) {
	// Filter on a vessel without filter capability aborts compilation.
	_, err := compile(t, `
procedure {
  step "Filter" { vessel = "separator" }
}
`)
	var ee *errs.StepExpansionError
	require.ErrorAs(t, err, &ee)
	assert.Contains(t, ee.Detail, "filter capability")
}

func TestCompileUnimplementedStep(t *testing.T) {
	_, err := compile(t, `
reagents {
  reagent "water" {}
}

procedure {
  step "Recrystallize" { vessel = "reactor" }
}
`)
	var ee *errs.StepExpansionError
	require.ErrorAs(t, err, &ee)
	assert.Contains(t, ee.Detail, "not implemented")
}

func TestCompileRepeat(t *testing.T) {
	frozen, err := compile(t, `
procedure {
  step "Repeat" {
    repeats = 3
    step "Wait" { time = "5 s" }
  }
}
`)
	require.NoError(t, err)
	assert.Equal(t, []string{"CWait", "CWait", "CWait"}, leafKinds(frozen.Steps))
}

func TestCompileRepeatedAsyncPid(t *testing.T) {
	// Repeat expansion copies its block, so the second copy of the Async
	// starts a pid that is still running.
	_, err := compile(t, `
procedure {
  step "Repeat" {
    repeats = 2
    step "Async" {
      pid = "bg"
      step "CWait" { time = "5 s" }
    }
  }
  step "Await" { pid = "bg" }
}
`)
	var se *errs.SanityError
	require.ErrorAs(t, err, &se)
	assert.Contains(t, se.Violations[0].Msg, "duplicate async pid")
}

func TestCompileFrozenRoundTrip(t *testing.T) {
	frozen, err := compile(t, addSource)
	require.NoError(t, err)

	reg := steps.NewRegistry()
	back, err := procedure.Load(procedure.Marshal(frozen), "frozen.xdlexe", reg)
	require.NoError(t, err)
	require.True(t, back.Frozen())

	// Recompiling a frozen artifact against the same graph is a no-op.
	c := compiler.New(testutil.Rig(t), reg)
	again, err := c.Compile(testutil.Ctx(t), back)
	require.NoError(t, err)
	assert.Equal(t, string(procedure.Marshal(frozen)), string(procedure.Marshal(again)))
}

func TestCompileHeatChillProducesDynamicLeaf(t *testing.T) {
	frozen, err := compile(t, `
procedure {
  step "HeatChill" {
    vessel = "reactor"
    temp   = "80 °C"
    time   = "10 min"
  }
}
`)
	require.NoError(t, err)
	assert.Contains(t, leafKinds(frozen.Steps), "WaitForTemp")
}
