package graph

import (
	"fmt"
	"math"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"

	"github.com/mcrav/xdl/internal/errs"
	"github.com/mcrav/xdl/internal/units"
)

// graphFile mirrors the HCL structure of a hardware graph document.
type graphFile struct {
	Nodes []*nodeBlock `hcl:"node,block"`
	Edges []*edgeBlock `hcl:"edge,block"`
}

type nodeBlock struct {
	ID   string   `hcl:"id,label"`
	Kind string   `hcl:"kind"`
	Rest hcl.Body `hcl:",remain"`
}

type edgeBlock struct {
	From  string    `hcl:"from"`
	To    string    `hcl:"to"`
	Ports *[]string `hcl:"ports"`
}

// Load parses a hardware graph from HCL source and validates the topology
// invariant. Attribute names the loader does not know are ignored; graph
// files come out of a rig editor that records presentation attributes too.
func Load(src []byte, filename string) (*Graph, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, &errs.ParseError{File: filename, Detail: diags.Error()}
	}

	var gf graphFile
	if diags := gohcl.DecodeBody(file.Body, nil, &gf); diags.HasErrors() {
		return nil, &errs.ParseError{File: filename, Detail: diags.Error()}
	}

	nodes := make([]*Node, 0, len(gf.Nodes))
	for _, nb := range gf.Nodes {
		n, err := decodeNode(nb)
		if err != nil {
			return nil, &errs.ParseError{File: filename, Detail: err.Error()}
		}
		nodes = append(nodes, n)
	}

	edges := make([]Edge, 0, len(gf.Edges))
	for _, eb := range gf.Edges {
		e := Edge{From: eb.From, To: eb.To}
		if eb.Ports != nil {
			p := *eb.Ports
			if len(p) != 2 {
				return nil, &errs.ParseError{
					File:   filename,
					Detail: fmt.Sprintf("edge %s -> %s: ports must have exactly two entries", eb.From, eb.To),
				}
			}
			e.Ports = [2]string{p[0], p[1]}
		}
		edges = append(edges, e)
	}

	g, err := New(nodes, edges)
	if err != nil {
		return nil, &errs.ParseError{File: filename, Detail: err.Error()}
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

func decodeNode(nb *nodeBlock) (*Node, error) {
	n := &Node{ID: nb.ID, Kind: Kind(nb.Kind)}

	attrs, diags := nb.Rest.JustAttributes()
	if diags.HasErrors() {
		return nil, fmt.Errorf("node %q: %s", nb.ID, diags.Error())
	}
	for name, attr := range attrs {
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return nil, fmt.Errorf("node %q, attribute %q: %s", nb.ID, name, diags.Error())
		}
		var err error
		switch name {
		case "volume", "max_volume":
			n.MaxVolume, err = quantityAttr(val)
		case "dead_volume":
			n.DeadVolume, err = quantityAttr(val)
		case "chemical":
			err = stringAttr(val, &n.Chemical)
		case "can_filter":
			err = boolAttr(val, &n.CanFilter)
		case "address":
			err = stringAttr(val, &n.Address)
		case "port":
			var f float64
			if f, err = quantityAttr(val); err == nil {
				n.Port = int(math.Round(f))
			}
		}
		if err != nil {
			return nil, fmt.Errorf("node %q, attribute %q: %w", nb.ID, name, err)
		}
	}
	return n, nil
}

// quantityAttr accepts either a bare number or a unit string like "500 mL".
func quantityAttr(val cty.Value) (float64, error) {
	if val.Type() == cty.String {
		return units.Parse(val.AsString())
	}
	num, err := convert.Convert(val, cty.Number)
	if err != nil {
		return 0, err
	}
	f, _ := num.AsBigFloat().Float64()
	return f, nil
}

func stringAttr(val cty.Value, dst *string) error {
	s, err := convert.Convert(val, cty.String)
	if err != nil {
		return err
	}
	*dst = s.AsString()
	return nil
}

func boolAttr(val cty.Value, dst *bool) error {
	b, err := convert.Convert(val, cty.Bool)
	if err != nil {
		return err
	}
	*dst = b.True()
	return nil
}
