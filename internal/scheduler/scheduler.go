// Package scheduler assigns time slots and hardware resources to the leaf
// steps of several frozen procedures at once, so they can run on one rig
// without two steps ever holding the same device at overlapping times.
//
// Candidates are interleaving orders of the per-procedure step sequences.
// A greedy decoder turns any order into a valid schedule; the pluggable
// strategies only differ in how they search the order space.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/mcrav/xdl/internal/ctxlog"
	"github.com/mcrav/xdl/internal/errs"
	"github.com/mcrav/xdl/internal/graph"
	"github.com/mcrav/xdl/internal/procedure"
	"github.com/mcrav/xdl/internal/step"
)

// Task is one schedulable unit: a leaf step of a frozen procedure with its
// static duration estimate and the resources it occupies.
type Task struct {
	Procedure string
	Index     int
	Duration  time.Duration
	Resources []string
	Desc      string
}

// Entry is one placed task in a schedule.
type Entry struct {
	Procedure string
	StepIndex int
	Start     time.Duration
	End       time.Duration
	Resources []string
}

// Schedule is a complete placement of every task of every procedure.
type Schedule struct {
	Entries  []Entry
	Makespan time.Duration
}

// Validate checks the two schedule invariants: per-procedure precedence
// (entries ordered by step index with non-decreasing starts) and resource
// exclusivity (no two time-overlapping entries share a resource).
func (s *Schedule) Validate() error {
	last := map[string]Entry{}
	for _, e := range s.Entries {
		if prev, ok := last[e.Procedure]; ok {
			if e.StepIndex <= prev.StepIndex {
				return fmt.Errorf("procedure %s: step %d scheduled after step %d",
					e.Procedure, e.StepIndex, prev.StepIndex)
			}
			if e.Start < prev.End {
				return fmt.Errorf("procedure %s: step %d starts at %s before step %d ends at %s",
					e.Procedure, e.StepIndex, e.Start, prev.StepIndex, prev.End)
			}
		}
		last[e.Procedure] = e
	}
	for i := 0; i < len(s.Entries); i++ {
		for j := i + 1; j < len(s.Entries); j++ {
			a, b := s.Entries[i], s.Entries[j]
			if a.Start < b.End && b.Start < a.End && sharesResource(a.Resources, b.Resources) {
				return fmt.Errorf("%s step %d and %s step %d overlap on a shared resource",
					a.Procedure, a.StepIndex, b.Procedure, b.StepIndex)
			}
		}
	}
	return nil
}

func sharesResource(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}

// Problem is the scheduling input: the tasks of every procedure keyed by
// procedure name, with names kept in input order.
type Problem struct {
	Procedures []string
	Tasks      map[string][]Task
}

// NewProblem extracts the task list of every frozen procedure. Procedure
// names must be unique; they key the schedule entries.
func NewProblem(procs []*procedure.Procedure) (*Problem, error) {
	p := &Problem{Tasks: map[string][]Task{}}
	for _, proc := range procs {
		if !proc.Frozen() {
			return nil, fmt.Errorf("procedure %s is not compiled", proc.Name)
		}
		if _, dup := p.Tasks[proc.Name]; dup {
			return nil, fmt.Errorf("duplicate procedure name %s", proc.Name)
		}
		p.Procedures = append(p.Procedures, proc.Name)
		p.Tasks[proc.Name] = extractTasks(proc)
	}
	return p, nil
}

// TotalTasks returns the number of tasks across all procedures.
func (p *Problem) TotalTasks() int {
	n := 0
	for _, ts := range p.Tasks {
		n += len(ts)
	}
	return n
}

// baseOrder is the canonical interleaving: every procedure's tasks in
// input order, procedures concatenated.
func (p *Problem) baseOrder() []string {
	var out []string
	for _, name := range p.Procedures {
		for range p.Tasks[name] {
			out = append(out, name)
		}
	}
	return out
}

// extractTasks walks the frozen tree and emits one task per leaf. Async
// steps count as a single task with aggregate duration and resources;
// their internal block is not interleaved with other procedures.
func extractTasks(proc *procedure.Procedure) []Task {
	var tasks []Task
	for _, leaf := range leaves(proc.Steps) {
		d := time.Second
		if hook := leaf.Def().EstimateDuration; hook != nil {
			d = hook(leaf)
		}
		var res []string
		if hook := leaf.Def().Resources; hook != nil {
			res = append([]string(nil), hook(leaf)...)
			sort.Strings(res)
		}
		tasks = append(tasks, Task{
			Procedure: proc.Name,
			Index:     len(tasks),
			Duration:  d,
			Resources: res,
			Desc:      leaf.Describe(),
		})
	}
	return tasks
}

func leaves(list []*step.Step) []*step.Step {
	var out []*step.Step
	for _, s := range list {
		if s.Class() == step.Abstract && len(s.Children) > 0 {
			out = append(out, leaves(s.Children)...)
			continue
		}
		out = append(out, s)
	}
	return out
}

// Options selects and parameterizes a strategy run.
type Options struct {
	Strategy    string
	Generations int
	Seed        int64
	Workers     int
}

// Run schedules the given frozen procedures on the graph they were
// compiled against and returns a validated schedule.
func Run(ctx context.Context, procs []*procedure.Procedure, g *graph.Graph, opts Options) (*Schedule, error) {
	log := ctxlog.FromContext(ctx)

	if len(procs) == 0 {
		return nil, &errs.SchedulingError{Strategy: opts.Strategy, Detail: "no procedures to schedule"}
	}
	hash := g.Hash()
	for _, proc := range procs {
		if proc.GraphHash != hash {
			return nil, &errs.SchedulingError{
				Strategy: opts.Strategy,
				Detail:   fmt.Sprintf("procedure %s was compiled against a different graph", proc.Name),
			}
		}
	}

	problem, err := NewProblem(procs)
	if err != nil {
		return nil, &errs.SchedulingError{Strategy: opts.Strategy, Detail: err.Error()}
	}

	strat, ok := Lookup(opts.Strategy)
	if !ok {
		return nil, &errs.SchedulingError{Strategy: opts.Strategy, Detail: "unknown strategy"}
	}

	log.Info("▶️ scheduling", "strategy", opts.Strategy,
		"procedures", len(procs), "tasks", problem.TotalTasks())

	order, err := strat.Run(ctx, problem, opts)
	if err != nil {
		return nil, err
	}

	sched := problem.decode(order)
	if err := sched.Validate(); err != nil {
		// The greedy decoder can only emit valid schedules; an invalid
		// one is a scheduler bug, not a user error.
		panic(fmt.Sprintf("scheduler produced an invalid schedule: %v", err))
	}
	log.Info("🏁 scheduled", "makespan", sched.Makespan, "entries", len(sched.Entries))
	return sched, nil
}
