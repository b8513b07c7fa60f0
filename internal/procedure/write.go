package procedure

import (
	"sort"

	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"

	"github.com/mcrav/xdl/internal/step"
)

// Marshal renders a procedure back to HCL. A procedure with a GraphHash
// renders as a frozen artifact: the hash on the procedure block, internal
// properties written out and every expansion serialized as a children
// block, so loading the output reproduces the compiled tree without
// re-resolution. Step UUIDs are never serialized; they are assigned fresh
// on load.
func Marshal(p *Procedure) []byte {
	f := hclwrite.NewEmptyFile()
	root := f.Body()

	if len(p.Components) > 0 {
		hw := root.AppendNewBlock("hardware", nil).Body()
		for _, c := range p.Components {
			cb := hw.AppendNewBlock("component", []string{c.Name}).Body()
			if c.Role != "" {
				cb.SetAttributeValue("role", cty.StringVal(c.Role))
			}
		}
		root.AppendNewline()
	}

	if len(p.Reagents) > 0 {
		rg := root.AppendNewBlock("reagents", nil).Body()
		names := make([]string, 0, len(p.Reagents))
		for name := range p.Reagents {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			rb := rg.AppendNewBlock("reagent", []string{name}).Body()
			meta := p.Reagents[name]
			keys := make([]string, 0, len(meta))
			for k := range meta {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				rb.SetAttributeValue(k, cty.StringVal(meta[k]))
			}
		}
		root.AppendNewline()
	}

	pb := root.AppendNewBlock("procedure", nil).Body()
	if p.GraphHash != "" {
		pb.SetAttributeValue("graph_hash", cty.StringVal(p.GraphHash))
	}
	writeSteps(pb, p.Steps)

	return f.Bytes()
}

func writeSteps(body *hclwrite.Body, steps []*step.Step) {
	for _, s := range steps {
		writeStep(body, s)
	}
}

func writeStep(body *hclwrite.Body, s *step.Step) {
	sb := body.AppendNewBlock("step", []string{s.Kind}).Body()

	// Properties go out in schema declaration order so marshalling is
	// deterministic and diffs stay readable.
	for _, spec := range s.Def().Props {
		if !s.Has(spec.Name) {
			continue
		}
		sb.SetAttributeValue(spec.Name, propValue(s.Props[spec.Name]))
	}

	for _, b := range s.Block {
		writeStep(sb, b)
	}
	if len(s.Children) > 0 {
		cb := sb.AppendNewBlock("children", nil).Body()
		writeSteps(cb, s.Children)
	}
}

func propValue(v any) cty.Value {
	switch val := v.(type) {
	case float64:
		return cty.NumberFloatVal(val)
	case int:
		return cty.NumberIntVal(int64(val))
	case string:
		return cty.StringVal(val)
	case bool:
		return cty.BoolVal(val)
	case []string:
		if len(val) == 0 {
			return cty.ListValEmpty(cty.String)
		}
		elems := make([]cty.Value, len(val))
		for i, s := range val {
			elems[i] = cty.StringVal(s)
		}
		return cty.ListVal(elems)
	}
	return cty.NullVal(cty.DynamicPseudoType)
}
