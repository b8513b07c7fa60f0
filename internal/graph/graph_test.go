package graph_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcrav/xdl/internal/graph"
	"github.com/mcrav/xdl/internal/testutil"
)

func TestLoad(t *testing.T) {
	g := testutil.Rig(t)

	n, ok := g.Node("flask_water")
	require.True(t, ok)
	assert.Equal(t, graph.KindFlask, n.Kind)
	assert.Equal(t, 500.0, n.MaxVolume)
	assert.Equal(t, "water", n.Chemical)

	sep, ok := g.Node("separator")
	require.True(t, ok)
	assert.Equal(t, 2.0, sep.DeadVolume)

	reactor, ok := g.Node("reactor")
	require.True(t, ok)
	assert.True(t, reactor.CanFilter)
}

func TestLoadErrors(t *testing.T) {
	t.Run("unknown kind", func(t *testing.T) {
		_, err := graph.Load([]byte(`node "x" { kind = "teapot" }`), "bad.hcl")
		assert.Error(t, err)
	})
	t.Run("edge to unknown node", func(t *testing.T) {
		src := `
node "a" { kind = "flask" }
edge {
  from = "a"
  to   = "ghost"
}
`
		_, err := graph.Load([]byte(src), "bad.hcl")
		assert.Error(t, err)
	})
	t.Run("malformed source", func(t *testing.T) {
		_, err := graph.Load([]byte(`node "x" {`), "bad.hcl")
		assert.Error(t, err)
	})
}

func TestNearestOfKind(t *testing.T) {
	g := testutil.Rig(t)

	w, err := g.NearestOfKind("reactor", graph.KindWaste)
	require.NoError(t, err)
	assert.Equal(t, "waste", w)

	t.Run("no such kind reachable", func(t *testing.T) {
		_, err := g.NearestOfKind("reactor", graph.KindChiller)
		assert.Error(t, err)
	})

	t.Run("tie breaks on smaller id", func(t *testing.T) {
		nodes := []*graph.Node{
			{ID: "v", Kind: graph.KindValve},
			{ID: "waste_b", Kind: graph.KindWaste},
			{ID: "waste_a", Kind: graph.KindWaste},
		}
		edges := []graph.Edge{
			{From: "v", To: "waste_b"},
			{From: "v", To: "waste_a"},
		}
		tg, err := graph.New(nodes, edges)
		require.NoError(t, err)
		w, err := tg.NearestOfKind("v", graph.KindWaste)
		require.NoError(t, err)
		assert.Equal(t, "waste_a", w)
	})
}

func TestBackboneRoute(t *testing.T) {
	g := testutil.Rig(t)

	route, err := g.BackboneRoute("flask_water", "reactor")
	require.NoError(t, err)
	assert.Equal(t, []string{"flask_water", "valve1", "valve2", "reactor"}, route)

	t.Run("same node", func(t *testing.T) {
		route, err := g.BackboneRoute("reactor", "reactor")
		require.NoError(t, err)
		assert.Equal(t, []string{"reactor"}, route)
	})

	t.Run("special ports excluded", func(t *testing.T) {
		nodes := []*graph.Node{
			{ID: "a", Kind: graph.KindFlask},
			{ID: "b", Kind: graph.KindReactor},
		}
		edges := []graph.Edge{
			{From: "a", To: "b", Ports: [2]string{"0", "evaporate"}},
		}
		tg, err := graph.New(nodes, edges)
		require.NoError(t, err)
		_, err = tg.BackboneRoute("a", "b")
		assert.Error(t, err)
	})
}

func TestServicePumps(t *testing.T) {
	g := testutil.Rig(t)

	route, err := g.BackboneRoute("flask_water", "reactor")
	require.NoError(t, err)
	assert.Equal(t, []string{"pump"}, g.ServicePumps(route))

	t.Run("no valves on route", func(t *testing.T) {
		assert.Empty(t, g.ServicePumps([]string{"flask_water"}))
	})
}

func TestReagentAndFlushVessels(t *testing.T) {
	g := testutil.Rig(t)

	v, err := g.ReagentVessel("water")
	require.NoError(t, err)
	assert.Equal(t, "flask_water", v)

	_, err = g.ReagentVessel("unobtainium")
	assert.Error(t, err)

	assert.Equal(t, "flask_air", g.FlushVessel())
}

func TestValidate(t *testing.T) {
	t.Run("reactor without pump access fails", func(t *testing.T) {
		src := `
node "reactor" { kind = "reactor" }
node "valve1" { kind = "valve" }
`
		_, err := graph.Load([]byte(src), "bad.hcl")
		assert.Error(t, err)
	})

	t.Run("no liquid targets passes without pump", func(t *testing.T) {
		src := `
node "flask_a" { kind = "flask" }
node "waste" { kind = "waste" }
`
		_, err := graph.Load([]byte(src), "ok.hcl")
		assert.NoError(t, err)
	})
}

func TestHash(t *testing.T) {
	a := testutil.Rig(t)
	b := testutil.Rig(t)
	assert.Equal(t, a.Hash(), b.Hash())

	src := testutil.RigHCL + `
node "flask_extra" { kind = "flask" }
`
	c, err := graph.Load([]byte(src), "rig.hcl")
	require.NoError(t, err)
	assert.NotEqual(t, a.Hash(), c.Hash())
}
