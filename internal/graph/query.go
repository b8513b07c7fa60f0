package graph

import (
	"fmt"
	"sort"
)

// Flush-gas chemicals recognised by FlushVessel.
var flushGases = map[string]bool{"air": true, "nitrogen": true, "argon": true}

// NearestOfKind returns the id of the node of the given kind closest to
// from, measured in hops over the undirected topology. As long as every
// vessel hangs off a valve that also reaches a waste, hop count matches the
// liquid path closely enough. Ties break on the smaller node id so repeated
// resolution is deterministic.
func (g *Graph) NearestOfKind(from string, k Kind) (string, error) {
	if !g.Has(from) {
		return "", fmt.Errorf("graph: unknown node %q", from)
	}
	dist := g.bfsDistances(from)
	best := ""
	bestDist := -1
	for _, n := range g.OfKind(k) { // sorted by id, so first hit wins ties
		d, reachable := dist[n.ID]
		if !reachable || n.ID == from {
			continue
		}
		if bestDist == -1 || d < bestDist {
			best, bestDist = n.ID, d
		}
	}
	if best == "" {
		return "", fmt.Errorf("graph: no %s reachable from %q", k, from)
	}
	return best, nil
}

// bfsDistances returns hop counts from src over the undirected adjacency.
func (g *Graph) bfsDistances(src string) map[string]int {
	dist := map[string]int{src: 0}
	queue := []string{src}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range g.adj[cur] {
			if _, seen := dist[next]; !seen {
				dist[next] = dist[cur] + 1
				queue = append(queue, next)
			}
		}
	}
	return dist
}

// BackboneRoute returns the shortest directed path from a to b using only
// backbone edges (no symbolic ports). Among equal-length paths the
// lexicographically smallest node sequence is returned, so route-derived
// resource sets are stable across runs.
func (g *Graph) BackboneRoute(a, b string) ([]string, error) {
	if !g.Has(a) {
		return nil, fmt.Errorf("graph: unknown node %q", a)
	}
	if !g.Has(b) {
		return nil, fmt.Errorf("graph: unknown node %q", b)
	}
	if a == b {
		return []string{a}, nil
	}

	// Directed backbone adjacency, sorted so BFS discovers the
	// lexicographically least parent first.
	next := make(map[string][]string)
	for _, e := range g.edges {
		if e.Backbone() {
			next[e.From] = append(next[e.From], e.To)
		}
	}
	for id := range next {
		sort.Strings(next[id])
		next[id] = dedup(next[id])
	}

	parent := map[string]string{a: ""}
	queue := []string{a}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur == b {
			break
		}
		for _, n := range next[cur] {
			if _, seen := parent[n]; !seen {
				parent[n] = cur
				queue = append(queue, n)
			}
		}
	}
	if _, ok := parent[b]; !ok {
		return nil, fmt.Errorf("graph: no backbone route from %q to %q", a, b)
	}
	var route []string
	for cur := b; cur != ""; cur = parent[cur] {
		route = append(route, cur)
	}
	for i, j := 0, len(route)-1; i < j; i, j = i+1, j-1 {
		route[i], route[j] = route[j], route[i]
	}
	return route, nil
}

// ServicePumps returns the ids of the pumps attached to any valve on the
// given route, sorted. A liquid move occupies these pumps for its whole
// duration even though they are not themselves on the path.
func (g *Graph) ServicePumps(route []string) []string {
	seen := map[string]bool{}
	var pumps []string
	for _, id := range route {
		n, ok := g.Node(id)
		if !ok || n.Kind != KindValve {
			continue
		}
		for _, adj := range g.adj[id] {
			if other, ok := g.Node(adj); ok && other.Kind == KindPump && !seen[other.ID] {
				seen[other.ID] = true
				pumps = append(pumps, other.ID)
			}
		}
	}
	sort.Strings(pumps)
	return pumps
}

// ReagentVessel returns the id of the flask holding the given chemical.
// With several matching flasks the smallest id wins.
func (g *Graph) ReagentVessel(chemical string) (string, error) {
	for _, n := range g.OfKind(KindFlask) {
		if n.Chemical == chemical {
			return n.ID, nil
		}
	}
	return "", fmt.Errorf("graph: no flask holds %q", chemical)
}

// FlushVessel returns the id of a flask holding an inert flush gas, or ""
// when the rig has none. Line flushing is skipped in that case rather than
// failing compilation.
func (g *Graph) FlushVessel() string {
	for _, n := range g.OfKind(KindFlask) {
		if flushGases[n.Chemical] {
			return n.ID
		}
	}
	return ""
}

// liquidTargets are kinds that receive liquid during a procedure and
// therefore must be plumbed into the backbone.
var liquidTargets = map[Kind]bool{
	KindReactor: true, KindSeparator: true, KindRotavap: true,
	KindCartridge: true,
}

// Validate checks the topology invariant: every liquid-handling target must
// be reachable from at least one pump-bearing valve via backbone edges.
// Violations are compile-time errors, caught at graph load.
func (g *Graph) Validate() error {
	// Collect valves with a pump attached.
	var pumpValves []string
	for _, n := range g.OfKind(KindValve) {
		for _, adj := range g.adj[n.ID] {
			if other, ok := g.Node(adj); ok && other.Kind == KindPump {
				pumpValves = append(pumpValves, n.ID)
				break
			}
		}
	}
	if len(pumpValves) == 0 {
		has := false
		for k := range liquidTargets {
			if len(g.OfKind(k)) > 0 {
				has = true
				break
			}
		}
		if !has {
			return nil
		}
		return fmt.Errorf("graph: no pump-bearing valve present")
	}

	// Flood fill over undirected backbone edges from every pump valve.
	backboneAdj := make(map[string][]string)
	for _, e := range g.edges {
		if e.Backbone() {
			backboneAdj[e.From] = append(backboneAdj[e.From], e.To)
			backboneAdj[e.To] = append(backboneAdj[e.To], e.From)
		}
	}
	reached := make(map[string]bool)
	queue := append([]string(nil), pumpValves...)
	for _, v := range pumpValves {
		reached[v] = true
	}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, n := range backboneAdj[cur] {
			if !reached[n] {
				reached[n] = true
				queue = append(queue, n)
			}
		}
	}

	var unreachable []string
	for _, n := range g.Nodes() {
		if liquidTargets[n.Kind] && !reached[n.ID] {
			unreachable = append(unreachable, n.ID)
		}
	}
	if len(unreachable) > 0 {
		return fmt.Errorf(
			"graph: node(s) %v not reachable from any pump-bearing valve via backbone edges",
			unreachable)
	}
	return nil
}
