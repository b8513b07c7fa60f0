package steps

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcrav/xdl/internal/resolver"
	"github.com/mcrav/xdl/internal/step"
	"github.com/mcrav/xdl/internal/testutil"
)

var testReagents = map[string]map[string]string{
	"water": {},
	"ether": {},
}

// resolve runs the resolver over a single step against the standard rig.
func resolve(t *testing.T, s *step.Step) {
	t.Helper()
	g := testutil.Rig(t)
	r := resolver.New(g, testReagents)
	require.NoError(t, r.Resolve(testutil.Ctx(t), []*step.Step{s}))
}

func kinds(steps []*step.Step) []string {
	out := make([]string, len(steps))
	for i, s := range steps {
		out[i] = s.Kind
	}
	return out
}

func TestRegisterAllKinds(t *testing.T) {
	r := NewRegistry()
	for _, kind := range []string{
		"Add", "Transfer", "Stir", "HeatChill", "Filter", "Separate",
		"Evaporate", "Wait", "Repeat", "Async", "Await", "Shutdown",
		"CMove", "CWait", "WaitForTemp", "Recrystallize",
	} {
		_, ok := r.Get(kind)
		assert.True(t, ok, "kind %s not registered", kind)
	}
}

func TestAddResolve(t *testing.T) {
	s := mk(addDef, map[string]any{
		"reagent": "water",
		"vessel":  "reactor",
		"volume":  50.0,
	})
	resolve(t, s)

	assert.Equal(t, "flask_water", s.Str("reagent_vessel"))
	assert.Equal(t, "waste", s.Str("waste_vessel"))
	assert.Equal(t, "flask_air", s.Str("flush_tube_vessel"))

	t.Run("idempotent", func(t *testing.T) {
		s.Props["waste_vessel"] = "custom_waste"
		resolve(t, s)
		assert.Equal(t, "custom_waste", s.Str("waste_vessel"))
	})
}

func TestAddExpand(t *testing.T) {
	g := testutil.Rig(t)

	t.Run("liquid addition", func(t *testing.T) {
		s := mk(addDef, map[string]any{
			"reagent": "water",
			"vessel":  "reactor",
			"volume":  50.0,
		})
		resolve(t, s)

		children, err := addDef.Expand(s, g)
		require.NoError(t, err)
		assert.Equal(t,
			[]string{"StopStir", "PrimePump", "CMove", "CWait", "CMove"},
			kinds(children))

		move := children[2]
		assert.Equal(t, "flask_water", move.Str("from_vessel"))
		assert.Equal(t, "reactor", move.Str("to_vessel"))
		assert.Equal(t, 50.0, move.Float("volume"))

		flush := children[4]
		assert.Equal(t, "flask_air", flush.Str("from_vessel"))
		assert.Equal(t, DefaultAirFlushVolume, flush.Float("volume"))
	})

	t.Run("stirring addition starts the stirrer", func(t *testing.T) {
		s := mk(addDef, map[string]any{
			"reagent": "water",
			"vessel":  "reactor",
			"volume":  50.0,
			"stir":    true,
		})
		resolve(t, s)

		children, err := addDef.Expand(s, g)
		require.NoError(t, err)
		assert.Equal(t, "StartStir", children[0].Kind)
	})

	t.Run("solid addition collapses to a confirmation", func(t *testing.T) {
		s := mk(addDef, map[string]any{
			"reagent": "water",
			"vessel":  "reactor",
			"mass":    5.0,
		})
		resolve(t, s)

		children, err := addDef.Expand(s, g)
		require.NoError(t, err)
		require.Len(t, children, 1)
		assert.Equal(t, "CConfirm", children[0].Kind)
	})

	t.Run("explicit time derives dispense speed", func(t *testing.T) {
		s := mk(addDef, map[string]any{
			"reagent": "water",
			"vessel":  "reactor",
			"volume":  30.0,
			"time":    120.0,
		})
		resolve(t, s)

		children, err := addDef.Expand(s, g)
		require.NoError(t, err)
		move := children[2]
		assert.InDelta(t, 15.0, move.Float("dispense_speed"), 1e-9)
	})

	t.Run("deterministic", func(t *testing.T) {
		expandOnce := func() []string {
			s := mk(addDef, map[string]any{
				"reagent": "water",
				"vessel":  "reactor",
				"volume":  50.0,
			})
			resolve(t, s)
			children, err := addDef.Expand(s, g)
			require.NoError(t, err)
			return kinds(children)
		}
		assert.Equal(t, expandOnce(), expandOnce())
	})
}

func TestAddChecks(t *testing.T) {
	g := testutil.Rig(t)

	t.Run("volume above vessel capacity flagged", func(t *testing.T) {
		s := mk(addDef, map[string]any{
			"reagent": "water",
			"vessel":  "reactor",
			"volume":  300.0, // reactor holds 250
		})
		resolve(t, s)

		var msgs []string
		for _, c := range addDef.Checks(s, g) {
			if !c.OK {
				msgs = append(msgs, c.Msg)
			}
		}
		require.Len(t, msgs, 1)
		assert.Contains(t, msgs[0], "exceeds reactor max volume")
	})

	t.Run("neither volume nor mass flagged", func(t *testing.T) {
		s := mk(addDef, map[string]any{
			"reagent": "water",
			"vessel":  "reactor",
		})
		violated := false
		for _, c := range addDef.Checks(s, g) {
			if !c.OK {
				violated = true
			}
		}
		assert.True(t, violated)
	})
}

func TestTransferExpand(t *testing.T) {
	g := testutil.Rig(t)
	s := mk(transferDef, map[string]any{
		"from_vessel": "reactor",
		"to_vessel":   "separator",
		"volume":      40.0,
	})
	children, err := transferDef.Expand(s, g)
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, "CMove", children[0].Kind)
	assert.Equal(t, 40.0, children[0].Float("volume"))
}

func TestStirExpand(t *testing.T) {
	g := testutil.Rig(t)
	s := mk(stirDef, map[string]any{
		"vessel": "reactor",
		"time":   60.0,
	})
	children, err := stirDef.Expand(s, g)
	require.NoError(t, err)
	assert.Equal(t, []string{"CStartStir", "CWait", "CStopStir"}, kinds(children))
}

func TestHeatChillExpand(t *testing.T) {
	g := testutil.Rig(t)

	s := mk(heatChillDef, map[string]any{
		"vessel": "reactor",
		"temp":   80.0,
		"time":   600.0,
	})
	children, err := heatChillDef.Expand(s, g)
	require.NoError(t, err)
	assert.Equal(t,
		[]string{"CStartStir", "CStartHeat", "WaitForTemp", "CWait", "CStopHeat", "CStopStir"},
		kinds(children))

	wait := children[2]
	assert.Equal(t, 80.0, wait.Float("temp"))
	assert.Equal(t, 3600.0, wait.Float("timeout"))

	t.Run("without stirring", func(t *testing.T) {
		s := mk(heatChillDef, map[string]any{
			"vessel": "reactor",
			"temp":   80.0,
			"time":   600.0,
			"stir":   false,
		})
		children, err := heatChillDef.Expand(s, g)
		require.NoError(t, err)
		assert.Equal(t,
			[]string{"CStartHeat", "WaitForTemp", "CWait", "CStopHeat"},
			kinds(children))
	})
}

func TestFilterExpand(t *testing.T) {
	g := testutil.Rig(t)

	t.Run("filter-capable vessel", func(t *testing.T) {
		s := mk(filterDef, map[string]any{"vessel": "reactor", "volume": 20.0})
		resolve(t, s)
		children, err := filterDef.Expand(s, g)
		require.NoError(t, err)
		assert.Equal(t, []string{"CStartVacuum", "CMove", "CStopVacuum"}, kinds(children))
		assert.Equal(t, "bottom", children[1].Str("from_port"))
	})

	t.Run("plain vessel fails", func(t *testing.T) {
		s := mk(filterDef, map[string]any{"vessel": "separator"})
		resolve(t, s)
		_, err := filterDef.Expand(s, g)
		assert.ErrorContains(t, err, "no filter capability")
	})
}

func TestSeparateExpand(t *testing.T) {
	g := testutil.Rig(t)
	s := mk(separateDef, map[string]any{
		"from_vessel":       "reactor",
		"separation_vessel": "separator",
		"to_vessel":         "rotavap",
		"volume":            60.0,
		"solvent":           "ether",
		"solvent_volume":    30.0,
	})
	resolve(t, s)

	children, err := separateDef.Expand(s, g)
	require.NoError(t, err)
	assert.Equal(t,
		[]string{"CMove", "Add", "Stir", "CWait", "CMove", "CMove"},
		kinds(children))

	// Lower phase: half the mixture plus the separator's cone dead volume.
	lower := children[4]
	assert.Equal(t, "rotavap", lower.Str("to_vessel"))
	assert.InDelta(t, 32.0, lower.Float("volume"), 1e-9)

	rest := children[5]
	assert.Equal(t, "waste", rest.Str("to_vessel"))
	assert.InDelta(t, 60.0, rest.Float("volume"), 1e-9)
}

func TestEvaporateExpand(t *testing.T) {
	g := testutil.Rig(t)

	s := mk(evaporateDef, map[string]any{
		"vessel": "rotavap",
		"time":   1200.0,
	})
	children, err := evaporateDef.Expand(s, g)
	require.NoError(t, err)
	assert.Equal(t,
		[]string{"CStartHeat", "CRotateStart", "CStartVacuum", "CWait",
			"CStopVacuum", "CRotateStop", "CStopHeat"},
		kinds(children))

	t.Run("non-rotavap vessel fails", func(t *testing.T) {
		s := mk(evaporateDef, map[string]any{"vessel": "reactor", "time": 60.0})
		_, err := evaporateDef.Expand(s, g)
		assert.ErrorContains(t, err, "not a rotavap")
	})
}

func TestRepeatExpand(t *testing.T) {
	g := testutil.Rig(t)

	inner := mk(waitDef, map[string]any{"time": 5.0})
	s := mk(repeatDef, map[string]any{"repeats": 3})
	s.Block = []*step.Step{inner}

	children, err := repeatDef.Expand(s, g)
	require.NoError(t, err)
	require.Len(t, children, 3)
	for _, c := range children {
		assert.Equal(t, "Wait", c.Kind)
		assert.NotEqual(t, inner.UUID, c.UUID)
	}

	t.Run("zero repeats fails", func(t *testing.T) {
		s := mk(repeatDef, map[string]any{"repeats": 0})
		s.Block = []*step.Step{mk(waitDef, map[string]any{"time": 1.0})}
		_, err := repeatDef.Expand(s, g)
		assert.Error(t, err)
	})

	t.Run("empty block fails", func(t *testing.T) {
		s := mk(repeatDef, map[string]any{"repeats": 2})
		_, err := repeatDef.Expand(s, g)
		assert.Error(t, err)
	})
}

func TestShutdownExpand(t *testing.T) {
	g := testutil.Rig(t)

	s := mk(shutdownDef, map[string]any{
		"vessels": []string{"reactor", "rotavap"},
	})
	children, err := shutdownDef.Expand(s, g)
	require.NoError(t, err)
	assert.Equal(t,
		[]string{"CStopStir", "CStopHeat", "CStopVacuum", "CRotateStop", "CStopHeat"},
		kinds(children))

	t.Run("unknown vessel fails", func(t *testing.T) {
		s := mk(shutdownDef, map[string]any{"vessels": []string{"ghost"}})
		_, err := shutdownDef.Expand(s, g)
		assert.Error(t, err)
	})
}

func TestAsyncAggregation(t *testing.T) {
	s := mk(asyncDef, map[string]any{"pid": "stirring"})
	s.Block = []*step.Step{
		mk(cStartStirDef, map[string]any{"vessel": "reactor"}),
		mk(cWaitDef, map[string]any{"time": 30.0}),
		mk(cStopStirDef, map[string]any{"vessel": "reactor"}),
	}

	assert.Equal(t, 32*time.Second, asyncDef.EstimateDuration(s))
	assert.Equal(t, []string{"reactor"}, asyncDef.Resources(s))
}

func TestDurationEstimates(t *testing.T) {
	move := mk(cMoveDef, map[string]any{
		"from_vessel": "flask_water",
		"to_vessel":   "reactor",
		"volume":      80.0,
		"move_speed":  40.0,
	})
	assert.Equal(t, 2*time.Minute, cMoveDef.EstimateDuration(move))

	wait := mk(cWaitDef, map[string]any{"time": 90.0})
	assert.Equal(t, 90*time.Second, cWaitDef.EstimateDuration(wait))

	t.Run("floor of one second", func(t *testing.T) {
		tiny := mk(cMoveDef, map[string]any{
			"from_vessel": "a", "to_vessel": "b", "volume": 0.0,
		})
		assert.Equal(t, time.Second, cMoveDef.EstimateDuration(tiny))
	})
}

func TestMoveResources(t *testing.T) {
	s := mk(cMoveDef, map[string]any{
		"from_vessel": "flask_water",
		"to_vessel":   "reactor",
		"volume":      10.0,
	})
	resolve(t, s)

	// The pump driving the move sits off valve1, not on the route itself,
	// but the move occupies it all the same.
	assert.Equal(t,
		[]string{"flask_water", "valve1", "valve2", "reactor", "pump"},
		cMoveDef.Resources(s))
}
