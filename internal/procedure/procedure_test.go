package procedure_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcrav/xdl/internal/procedure"
	"github.com/mcrav/xdl/internal/steps"
)

const sourceHCL = `
hardware {
  component "reactor" { role = "reactor" }
}

reagents {
  reagent "water" {
    cas = "7732-18-5"
  }
}

procedure {
  step "Add" {
    reagent = "water"
    vessel  = "reactor"
    volume  = "100 mL"
  }
  step "Wait" { time = "2 min" }
}
`

func TestLoad(t *testing.T) {
	reg := steps.NewRegistry()
	p, err := procedure.Load([]byte(sourceHCL), "test.hcl", reg)
	require.NoError(t, err)

	assert.False(t, p.Frozen())

	c, ok := p.Component("reactor")
	require.True(t, ok)
	assert.Equal(t, "reactor", c.Role)

	require.Contains(t, p.Reagents, "water")
	assert.Equal(t, "7732-18-5", p.Reagents["water"]["cas"])

	require.Len(t, p.Steps, 2)
	add := p.Steps[0]
	assert.Equal(t, "Add", add.Kind)
	assert.Equal(t, 100.0, add.Float("volume"))
	// Unit strings are canonicalised at load.
	assert.Equal(t, 120.0, p.Steps[1].Float("time"))
}

func TestLoadErrors(t *testing.T) {
	reg := steps.NewRegistry()

	t.Run("unknown step kind", func(t *testing.T) {
		_, err := procedure.Load([]byte(`
procedure {
  step "Teleport" { vessel = "reactor" }
}
`), "test.hcl", reg)
		assert.ErrorContains(t, err, "unknown step kind")
	})

	t.Run("unknown property", func(t *testing.T) {
		_, err := procedure.Load([]byte(`
procedure {
  step "Wait" { minutes = 5 }
}
`), "test.hcl", reg)
		assert.ErrorContains(t, err, "unknown property")
	})

	t.Run("internal property in plain source", func(t *testing.T) {
		_, err := procedure.Load([]byte(`
procedure {
  step "Add" {
    reagent      = "water"
    vessel       = "reactor"
    volume       = 10
    waste_vessel = "waste"
  }
}
`), "test.hcl", reg)
		assert.ErrorContains(t, err, "internal")
	})

	t.Run("children block in plain source", func(t *testing.T) {
		_, err := procedure.Load([]byte(`
procedure {
  step "Wait" {
    time = 5
    children {
      step "CWait" { time = 5 }
    }
  }
}
`), "test.hcl", reg)
		assert.ErrorContains(t, err, "frozen")
	})

	t.Run("nested step on non-block kind", func(t *testing.T) {
		_, err := procedure.Load([]byte(`
procedure {
  step "Wait" {
    time = 5
    step "CWait" { time = 5 }
  }
}
`), "test.hcl", reg)
		assert.ErrorContains(t, err, "nested steps are not allowed")
	})

	t.Run("no procedure block", func(t *testing.T) {
		_, err := procedure.Load([]byte(`reagents {}`), "test.hcl", reg)
		assert.ErrorContains(t, err, "no procedure block")
	})
}

func TestLoadNestedBlocks(t *testing.T) {
	reg := steps.NewRegistry()
	p, err := procedure.Load([]byte(`
procedure {
  step "Repeat" {
    repeats = 3
    step "Wait" { time = "10 s" }
    step "Wait" { time = "20 s" }
  }
}
`), "test.hcl", reg)
	require.NoError(t, err)

	repeat := p.Steps[0]
	require.Len(t, repeat.Block, 2)
	assert.Equal(t, 10.0, repeat.Block[0].Float("time"))
	assert.Equal(t, 20.0, repeat.Block[1].Float("time"))
}

func TestMarshalRoundTrip(t *testing.T) {
	reg := steps.NewRegistry()
	p, err := procedure.Load([]byte(sourceHCL), "test.hcl", reg)
	require.NoError(t, err)

	// Simulate a frozen artifact: internal props set, children attached,
	// hash stamped.
	add := p.Steps[0]
	add.Props["waste_vessel"] = "waste"
	cw, err := reg.Ingest("CWait", nil, true)
	require.NoError(t, err)
	cw.Props["time"] = 10.0
	add.Children = append(add.Children, cw)
	p.GraphHash = "deadbeef"

	out := procedure.Marshal(p)
	back, err := procedure.Load(out, "frozen.hcl", reg)
	require.NoError(t, err)

	assert.True(t, back.Frozen())
	assert.Equal(t, "deadbeef", back.GraphHash)

	addBack := back.Steps[0]
	assert.Equal(t, "waste", addBack.Str("waste_vessel"))
	require.Len(t, addBack.Children, 1)
	assert.Equal(t, "CWait", addBack.Children[0].Kind)
	assert.Equal(t, 10.0, addBack.Children[0].Float("time"))

	// Marshalling the reloaded procedure reproduces the same bytes;
	// UUIDs are never serialized so the output is stable.
	assert.Equal(t, string(out), string(procedure.Marshal(back)))
}
