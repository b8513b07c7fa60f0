package procedure

import (
	"fmt"

	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"

	"github.com/mcrav/xdl/internal/errs"
	"github.com/mcrav/xdl/internal/step"
)

// Load parses a procedure document. The same loader handles plain sources
// and frozen artifacts; a graph_hash attribute on the procedure block marks
// the document as frozen and unlocks internal properties and children
// blocks.
func Load(src []byte, filename string, reg *step.Registry) (*Procedure, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, &errs.ParseError{File: filename, Detail: diags.Error()}
	}
	body, ok := file.Body.(*hclsyntax.Body)
	if !ok {
		return nil, &errs.ParseError{File: filename, Detail: "not native HCL syntax"}
	}

	p := &Procedure{
		Name:     filename,
		Reagents: map[string]map[string]string{},
	}

	for _, blk := range body.Blocks {
		var err error
		switch blk.Type {
		case "hardware":
			err = loadHardware(p, blk)
		case "reagents":
			err = loadReagents(p, blk)
		case "procedure":
			err = loadSteps(p, blk, reg)
		default:
			err = fmt.Errorf("unknown block type %q", blk.Type)
		}
		if err != nil {
			return nil, &errs.ParseError{File: filename, Detail: err.Error()}
		}
	}
	if p.Steps == nil {
		return nil, &errs.ParseError{File: filename, Detail: "no procedure block"}
	}
	return p, nil
}

func loadHardware(p *Procedure, blk *hclsyntax.Block) error {
	for _, cb := range blk.Body.Blocks {
		if cb.Type != "component" || len(cb.Labels) != 1 {
			return fmt.Errorf("hardware: expected component blocks with one label")
		}
		c := Component{Name: cb.Labels[0]}
		for name, attr := range cb.Body.Attributes {
			if name != "role" {
				return fmt.Errorf("component %q: unknown attribute %q", c.Name, name)
			}
			v, err := stringValue(attr)
			if err != nil {
				return fmt.Errorf("component %q: %w", c.Name, err)
			}
			c.Role = v
		}
		p.Components = append(p.Components, c)
	}
	return nil
}

func loadReagents(p *Procedure, blk *hclsyntax.Block) error {
	for _, rb := range blk.Body.Blocks {
		if rb.Type != "reagent" || len(rb.Labels) != 1 {
			return fmt.Errorf("reagents: expected reagent blocks with one label")
		}
		name := rb.Labels[0]
		if _, dup := p.Reagents[name]; dup {
			return fmt.Errorf("reagent %q declared twice", name)
		}
		meta := map[string]string{}
		for attrName, attr := range rb.Body.Attributes {
			v, err := stringValue(attr)
			if err != nil {
				return fmt.Errorf("reagent %q: %w", name, err)
			}
			meta[attrName] = v
		}
		p.Reagents[name] = meta
	}
	return nil
}

func loadSteps(p *Procedure, blk *hclsyntax.Block, reg *step.Registry) error {
	for name, attr := range blk.Body.Attributes {
		if name != "graph_hash" {
			return fmt.Errorf("procedure: unknown attribute %q", name)
		}
		v, err := stringValue(attr)
		if err != nil {
			return err
		}
		p.GraphHash = v
	}

	frozen := p.GraphHash != ""
	steps, err := loadStepList(blk.Body.Blocks, reg, frozen)
	if err != nil {
		return err
	}
	p.Steps = steps
	return nil
}

func loadStepList(blocks []*hclsyntax.Block, reg *step.Registry, frozen bool) ([]*step.Step, error) {
	out := make([]*step.Step, 0, len(blocks))
	for _, blk := range blocks {
		if blk.Type != "step" || len(blk.Labels) != 1 {
			return nil, fmt.Errorf("expected step blocks with one label, got %q", blk.Type)
		}
		s, err := loadStep(blk, reg, frozen)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func loadStep(blk *hclsyntax.Block, reg *step.Registry, frozen bool) (*step.Step, error) {
	kind := blk.Labels[0]

	raw := map[string]cty.Value{}
	for name, attr := range blk.Body.Attributes {
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return nil, fmt.Errorf("%s: attribute %q: %s", kind, name, diags.Error())
		}
		raw[name] = val
	}

	s, err := reg.Ingest(kind, raw, frozen)
	if err != nil {
		return nil, err
	}

	for _, nb := range blk.Body.Blocks {
		switch nb.Type {
		case "step":
			if !s.Def().AllowBlock {
				return nil, fmt.Errorf("%s: nested steps are not allowed", kind)
			}
			child, err := loadStep(nb, reg, frozen)
			if err != nil {
				return nil, err
			}
			s.Block = append(s.Block, child)
		case "children":
			if !frozen {
				return nil, fmt.Errorf("%s: children blocks only appear in frozen artifacts", kind)
			}
			children, err := loadStepList(nb.Body.Blocks, reg, frozen)
			if err != nil {
				return nil, err
			}
			s.Children = children
		default:
			return nil, fmt.Errorf("%s: unknown block type %q", kind, nb.Type)
		}
	}
	return s, nil
}

func stringValue(attr *hclsyntax.Attribute) (string, error) {
	val, diags := attr.Expr.Value(nil)
	if diags.HasErrors() {
		return "", fmt.Errorf("attribute %q: %s", attr.Name, diags.Error())
	}
	if val.Type() != cty.String {
		return "", fmt.Errorf("attribute %q: expected a string", attr.Name)
	}
	return val.AsString(), nil
}
