package scheduler

import (
	"context"
	"math/rand"

	"github.com/mcrav/xdl/internal/errs"
)

func init() { register(randomSearch{}) }

// randomSearch samples uniform random interleavings and keeps the best.
// All candidates are drawn from a single seeded source before evaluation,
// so a fixed seed gives a fixed schedule no matter how many workers score
// the candidates.
type randomSearch struct{}

func (randomSearch) Name() string { return "random_search" }

func (rs randomSearch) Run(ctx context.Context, p *Problem, opts Options) ([]string, error) {
	if opts.Generations <= 0 {
		return nil, &errs.SchedulingError{
			Strategy: rs.Name(),
			Detail:   "generations must be positive",
		}
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	base := p.baseOrder()

	candidates := make([][]string, 0, opts.Generations)
	for i := 0; i < opts.Generations; i++ {
		cand := append([]string(nil), base...)
		rng.Shuffle(len(cand), func(a, b int) {
			cand[a], cand[b] = cand[b], cand[a]
		})
		candidates = append(candidates, cand)
	}

	best, err := evaluateBest(ctx, candidates, p.cost, opts.Workers)
	if err != nil {
		return nil, err
	}
	return best.order, nil
}
