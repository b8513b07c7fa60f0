package graph

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Hash returns a SHA-256 content hash of the graph over a canonical
// serialization (sorted nodes, then edges in load order). Frozen artifacts
// record it so that executing against a different rig than the one compiled
// for is detected before the first command is issued.
func (g *Graph) Hash() string {
	var b strings.Builder
	for _, n := range g.Nodes() {
		fmt.Fprintf(&b, "n|%s|%s|%g|%g|%s|%t|%s|%d\n",
			n.ID, n.Kind, n.MaxVolume, n.DeadVolume, n.Chemical,
			n.CanFilter, n.Address, n.Port)
	}
	for _, e := range g.edges {
		fmt.Fprintf(&b, "e|%s|%s|%s|%s\n", e.From, e.To, e.Ports[0], e.Ports[1])
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
