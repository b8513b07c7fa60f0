package executor_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcrav/xdl/internal/compiler"
	"github.com/mcrav/xdl/internal/device"
	"github.com/mcrav/xdl/internal/errs"
	"github.com/mcrav/xdl/internal/executor"
	"github.com/mcrav/xdl/internal/procedure"
	"github.com/mcrav/xdl/internal/steps"
	"github.com/mcrav/xdl/internal/testutil"
)

func compile(t *testing.T, src string) *procedure.Procedure {
	t.Helper()
	reg := steps.NewRegistry()
	p := testutil.LoadProcedure(t, reg, src)
	frozen, err := compiler.New(testutil.Rig(t), reg).Compile(testutil.Ctx(t), p)
	require.NoError(t, err)
	return frozen
}

func TestExecuteAdd(t *testing.T) {
	frozen := compile(t, `
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
`)
	sim := device.NewSim()
	exec := executor.New(testutil.Rig(t), sim)
	require.NoError(t, exec.Execute(testutil.Ctx(t), frozen))

	assert.Equal(t, []string{
		"stop_stir reactor",
		"move flask_water->waste 3",
		"move flask_water->reactor 50",
		"wait 10s",
		"move flask_air->reactor 5",
	}, sim.Commands())
}

func TestExecuteRequiresCompiledArtifact(t *testing.T) {
	reg := steps.NewRegistry()
	p := testutil.LoadProcedure(t, reg, `
procedure {
  step "Wait" { time = "5 s" }
}
`)
	exec := executor.New(testutil.Rig(t), device.NewSim())
	err := exec.Execute(testutil.Ctx(t), p)
	assert.ErrorContains(t, err, "not compiled")
}

func TestExecuteStaleArtifact(t *testing.T) {
	frozen := compile(t, `
procedure {
  step "Wait" { time = "5 s" }
}
`)
	frozen.GraphHash = "0000000000000000"

	exec := executor.New(testutil.Rig(t), device.NewSim())
	err := exec.Execute(testutil.Ctx(t), frozen)

	var sa *errs.StaleArtifactError
	require.ErrorAs(t, err, &sa)
}

func TestExecuteWaitForTemp(t *testing.T) {
	src := `
procedure {
  step "WaitForTemp" {
    vessel  = "reactor"
    temp    = "80 °C"
    timeout = "1 s"
  }
}
`
	t.Run("sensor at target", func(t *testing.T) {
		frozen := compile(t, src)
		sim := device.NewSim()
		sim.SetTemp("reactor", 80)

		exec := executor.New(testutil.Rig(t), sim)
		assert.NoError(t, exec.Execute(testutil.Ctx(t), frozen))
	})

	t.Run("within tolerance", func(t *testing.T) {
		frozen := compile(t, src)
		sim := device.NewSim()
		sim.SetTemp("reactor", 79.5)

		exec := executor.New(testutil.Rig(t), sim)
		assert.NoError(t, exec.Execute(testutil.Ctx(t), frozen))
	})

	t.Run("times out at ambient", func(t *testing.T) {
		frozen := compile(t, src)
		exec := executor.New(testutil.Rig(t), device.NewSim())

		err := exec.Execute(testutil.Ctx(t), frozen)
		var te *errs.TimeoutError
		require.ErrorAs(t, err, &te)
	})
}

func TestExecuteAsyncAwait(t *testing.T) {
	frozen := compile(t, `
procedure {
  step "Async" {
    pid = "stirring"
    step "CStartStir" { vessel = "reactor" }
  }
  step "Wait" { time = "1 s" }
  step "Await" { pid = "stirring" }
  step "CStopStir" { vessel = "reactor" }
}
`)
	sim := device.NewSim()
	exec := executor.New(testutil.Rig(t), sim)
	require.NoError(t, exec.Execute(testutil.Ctx(t), frozen))

	cmds := sim.Commands()
	require.Len(t, cmds, 3)
	// The async block runs concurrently with the wait, but the await
	// guarantees it finished before the final stop.
	assert.Contains(t, cmds, "start_stir reactor 250")
	assert.Equal(t, "stop_stir reactor", cmds[2])
}

func TestExecuteShutdownJoinsAsync(t *testing.T) {
	frozen := compile(t, `
procedure {
  step "Async" {
    pid = "bg"
    step "CWait" { time = "1 s" }
  }
  step "Shutdown" { vessels = ["reactor"] }
}
`)
	sim := device.NewSim()
	exec := executor.New(testutil.Rig(t), sim)
	require.NoError(t, exec.Execute(testutil.Ctx(t), frozen))

	assert.Contains(t, sim.Commands(), "wait 1s")
	assert.Contains(t, sim.Commands(), "stop_stir reactor")
}

func TestExecuteRepeat(t *testing.T) {
	frozen := compile(t, `
procedure {
  step "Repeat" {
    repeats = 2
    step "Wait" { time = "1 s" }
  }
}
`)
	sim := device.NewSim()
	exec := executor.New(testutil.Rig(t), sim)
	require.NoError(t, exec.Execute(testutil.Ctx(t), frozen))

	var waits int
	for _, c := range sim.Commands() {
		if strings.HasPrefix(c, "wait ") {
			waits++
		}
	}
	assert.Equal(t, 2, waits)
}
