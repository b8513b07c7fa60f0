package scheduler

import (
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"

	"github.com/mcrav/xdl/internal/errs"
)

// Marshal renders a schedule as an HCL artifact, one entry block per
// placed task with start and end in seconds.
func Marshal(s *Schedule) []byte {
	f := hclwrite.NewEmptyFile()
	root := f.Body()
	for _, e := range s.Entries {
		eb := root.AppendNewBlock("entry", nil).Body()
		eb.SetAttributeValue("procedure", cty.StringVal(e.Procedure))
		eb.SetAttributeValue("step_index", cty.NumberIntVal(int64(e.StepIndex)))
		eb.SetAttributeValue("start", cty.NumberFloatVal(e.Start.Seconds()))
		eb.SetAttributeValue("end", cty.NumberFloatVal(e.End.Seconds()))
		elems := make([]cty.Value, len(e.Resources))
		for i, r := range e.Resources {
			elems[i] = cty.StringVal(r)
		}
		if len(elems) == 0 {
			eb.SetAttributeValue("resources", cty.ListValEmpty(cty.String))
		} else {
			eb.SetAttributeValue("resources", cty.ListVal(elems))
		}
	}
	return f.Bytes()
}

type scheduleFile struct {
	Entries []*entryBlock `hcl:"entry,block"`
}

type entryBlock struct {
	Procedure string   `hcl:"procedure"`
	StepIndex int      `hcl:"step_index"`
	Start     float64  `hcl:"start"`
	End       float64  `hcl:"end"`
	Resources []string `hcl:"resources"`
}

// Parse loads a schedule artifact back into memory.
func Parse(src []byte, filename string) (*Schedule, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, &errs.ParseError{File: filename, Detail: diags.Error()}
	}
	var sf scheduleFile
	if diags := gohcl.DecodeBody(file.Body, nil, &sf); diags.HasErrors() {
		return nil, &errs.ParseError{File: filename, Detail: diags.Error()}
	}

	s := &Schedule{}
	for _, eb := range sf.Entries {
		e := Entry{
			Procedure: eb.Procedure,
			StepIndex: eb.StepIndex,
			Start:     time.Duration(eb.Start * float64(time.Second)),
			End:       time.Duration(eb.End * float64(time.Second)),
			Resources: eb.Resources,
		}
		s.Entries = append(s.Entries, e)
		if e.End > s.Makespan {
			s.Makespan = e.End
		}
	}
	return s, nil
}
