package step

import (
	"fmt"
	"sort"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"

	"github.com/mcrav/xdl/internal/units"
)

// Ingest creates a step of the given kind from raw property values, applying
// type conversion, unit canonicalisation and declared defaults.
//
// allowInternal permits internal properties in the input; only the frozen
// artifact loader sets it. In plain procedure sources an internal property
// is a user error.
func (r *Registry) Ingest(kind string, raw map[string]cty.Value, allowInternal bool) (*Step, error) {
	def, ok := r.Get(kind)
	if !ok {
		return nil, fmt.Errorf("unknown step kind %q", kind)
	}
	s := New(def)

	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		spec, ok := def.Prop(name)
		if !ok {
			return nil, fmt.Errorf("%s: unknown property %q", kind, name)
		}
		if spec.Internal && !allowInternal {
			return nil, fmt.Errorf("%s: property %q is internal and cannot be set", kind, name)
		}
		v, err := coerce(spec, raw[name])
		if err != nil {
			return nil, fmt.Errorf("%s: property %q: %w", kind, name, err)
		}
		s.Props[name] = v
	}

	for _, spec := range def.Props {
		if !s.Has(spec.Name) && spec.Default != nil {
			s.Props[spec.Name] = spec.Default
		}
	}
	return s, nil
}

// coerce converts a raw cty value to the canonical Go value for a prop.
func coerce(spec PropSpec, val cty.Value) (any, error) {
	if val.IsNull() {
		return nil, nil
	}
	if spec.Quantity {
		return quantity(val)
	}
	switch {
	case spec.Type == cty.String:
		c, err := convert.Convert(val, cty.String)
		if err != nil {
			return nil, err
		}
		return c.AsString(), nil
	case spec.Type == cty.Number:
		c, err := convert.Convert(val, cty.Number)
		if err != nil {
			return nil, err
		}
		f, _ := c.AsBigFloat().Float64()
		return f, nil
	case spec.Type == cty.Bool:
		c, err := convert.Convert(val, cty.Bool)
		if err != nil {
			return nil, err
		}
		return c.True(), nil
	case spec.Type.IsListType() || spec.Type.IsTupleType():
		c, err := convert.Convert(val, cty.List(cty.String))
		if err != nil {
			return nil, err
		}
		var out []string
		for it := c.ElementIterator(); it.Next(); {
			_, ev := it.Element()
			out = append(out, ev.AsString())
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported property type %s", spec.Type.FriendlyName())
}

// quantity accepts a bare number (already canonical) or a unit string.
func quantity(val cty.Value) (float64, error) {
	if val.Type() == cty.String {
		return units.Parse(val.AsString())
	}
	c, err := convert.Convert(val, cty.Number)
	if err != nil {
		return 0, err
	}
	f, _ := c.AsBigFloat().Float64()
	return f, nil
}
