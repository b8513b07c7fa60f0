// Package graph models the physical hardware topology: vessels, valves,
// pumps and the directed tubing connections between them. The graph is
// read-only after load and safe to share across concurrent compilations.
package graph

import (
	"fmt"
	"sort"
)

// Kind classifies a hardware node.
type Kind string

const (
	KindFlask     Kind = "flask"
	KindReactor   Kind = "reactor"
	KindSeparator Kind = "separator"
	KindRotavap   Kind = "rotavap"
	KindValve     Kind = "valve"
	KindPump      Kind = "pump"
	KindWaste     Kind = "waste"
	KindCartridge Kind = "cartridge"
	KindSensor    Kind = "sensor"
	KindStirrer   Kind = "stirrer"
	KindHeater    Kind = "heater"
	KindChiller   Kind = "chiller"
	KindVacuum    Kind = "vacuum"
)

var validKinds = map[Kind]bool{
	KindFlask: true, KindReactor: true, KindSeparator: true,
	KindRotavap: true, KindValve: true, KindPump: true, KindWaste: true,
	KindCartridge: true, KindSensor: true, KindStirrer: true,
	KindHeater: true, KindChiller: true, KindVacuum: true,
}

// Node is a single piece of hardware.
type Node struct {
	ID         string
	Kind       Kind
	MaxVolume  float64 // mL; 0 means unbounded
	DeadVolume float64 // mL
	Chemical   string  // flasks only: what the flask holds
	CanFilter  bool
	Address    string // device bus address, opaque to the core
	Port       int
}

// Edge is a directed tubing connection. Ports holds the connector labels at
// the source and target ends; numeric labels are ordinary valve positions,
// symbolic labels like "top" or "evaporate" mark dedicated device ports.
type Edge struct {
	From  string
	To    string
	Ports [2]string
}

// Backbone reports whether the edge is part of the general liquid-routing
// backbone, i.e. carries no symbolic port label at either end.
func (e Edge) Backbone() bool {
	return !special(e.Ports[0]) && !special(e.Ports[1])
}

func special(port string) bool {
	if port == "" {
		return false
	}
	for _, r := range port {
		if (r < '0' || r > '9') && r != '-' {
			return true
		}
	}
	return false
}

// Graph is the full topology. Construct with New or Load; never mutate
// after construction.
type Graph struct {
	nodes map[string]*Node
	edges []Edge
	adj   map[string][]string // undirected adjacency over all edges
}

// New builds a Graph from nodes and edges, validating referential
// integrity. Edges are directional; a bidirectional physical connection is
// two opposite edges.
func New(nodes []*Node, edges []Edge) (*Graph, error) {
	g := &Graph{
		nodes: make(map[string]*Node, len(nodes)),
		edges: edges,
		adj:   make(map[string][]string),
	}
	for _, n := range nodes {
		if n.ID == "" {
			return nil, fmt.Errorf("graph: node with empty id")
		}
		if !validKinds[n.Kind] {
			return nil, fmt.Errorf("graph: node %q has unknown kind %q", n.ID, n.Kind)
		}
		if _, dup := g.nodes[n.ID]; dup {
			return nil, fmt.Errorf("graph: duplicate node id %q", n.ID)
		}
		g.nodes[n.ID] = n
	}
	for _, e := range edges {
		if _, ok := g.nodes[e.From]; !ok {
			return nil, fmt.Errorf("graph: edge references unknown node %q", e.From)
		}
		if _, ok := g.nodes[e.To]; !ok {
			return nil, fmt.Errorf("graph: edge references unknown node %q", e.To)
		}
		g.adj[e.From] = append(g.adj[e.From], e.To)
		g.adj[e.To] = append(g.adj[e.To], e.From)
	}
	for id, ns := range g.adj {
		sort.Strings(ns)
		g.adj[id] = dedup(ns)
	}
	return g, nil
}

func dedup(sorted []string) []string {
	out := sorted[:0]
	for i, s := range sorted {
		if i == 0 || s != sorted[i-1] {
			out = append(out, s)
		}
	}
	return out
}

// Node returns the node with the given id.
func (g *Graph) Node(id string) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Has reports whether a node with the given id exists.
func (g *Graph) Has(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

// Nodes returns all nodes sorted by id.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Edges returns the edge list in load order.
func (g *Graph) Edges() []Edge {
	return g.edges
}

// OfKind returns all nodes of the given kind sorted by id.
func (g *Graph) OfKind(k Kind) []*Node {
	var out []*Node
	for _, n := range g.Nodes() {
		if n.Kind == k {
			out = append(out, n)
		}
	}
	return out
}
