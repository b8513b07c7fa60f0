package scheduler

import (
	"context"

	"github.com/mcrav/xdl/internal/errs"
)

// maxGridCandidates caps exhaustive enumeration. The number of
// interleavings is the multinomial coefficient over per-procedure task
// counts and explodes quickly; past the cap the user is told to pick a
// sampling strategy instead.
const maxGridCandidates = 250_000

func init() { register(gridSearch{}) }

// gridSearch enumerates every interleaving and keeps the best makespan.
// Optimal, and exponential; only usable for small inputs.
type gridSearch struct{}

func (gridSearch) Name() string { return "grid_search" }

func (gs gridSearch) Run(ctx context.Context, p *Problem, opts Options) ([]string, error) {
	if n := countInterleavings(p); n > maxGridCandidates {
		return nil, &errs.SchedulingError{
			Strategy: gs.Name(),
			Detail: "too many interleavings for exhaustive search, " +
				"use random_search or genetic_algorithm",
		}
	}

	var candidates [][]string
	counts := map[string]int{}
	for _, name := range p.Procedures {
		counts[name] = len(p.Tasks[name])
	}
	// Procedures are visited in input order at every position, so the
	// enumeration order is deterministic.
	var build func(prefix []string, remaining int)
	build = func(prefix []string, remaining int) {
		if remaining == 0 {
			candidates = append(candidates, append([]string(nil), prefix...))
			return
		}
		for _, name := range p.Procedures {
			if counts[name] == 0 {
				continue
			}
			counts[name]--
			build(append(prefix, name), remaining-1)
			counts[name]++
		}
	}
	build(nil, p.TotalTasks())

	best, err := evaluateBest(ctx, candidates, p.cost, opts.Workers)
	if err != nil {
		return nil, err
	}
	return best.order, nil
}

// countInterleavings computes the multinomial coefficient, saturating at
// maxGridCandidates+1 to avoid overflow.
func countInterleavings(p *Problem) int {
	total := 0
	count := 1
	for _, name := range p.Procedures {
		for i := 1; i <= len(p.Tasks[name]); i++ {
			total++
			count = count * total / i
			if count > maxGridCandidates {
				return maxGridCandidates + 1
			}
		}
	}
	return count
}
