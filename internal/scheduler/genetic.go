package scheduler

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/mcrav/xdl/internal/errs"
)

// Genetic algorithm parameters. Tuned on the bundled benchmark rigs; the
// search is robust to moderate changes in any of them.
const (
	gaPopulation = 40
	gaTournament = 3
	gaCrossover  = 0.9
	gaMutation   = 0.15
	gaElitism    = 1
)

func init() { register(genetic{}) }

// genetic evolves a population of interleaving orders. Fitness during the
// search is the relaxed decode cost, so near-miss orderings score close to
// their conflict-free neighbours; the final winner is strictly re-decoded
// by the caller.
type genetic struct{}

func (genetic) Name() string { return "genetic_algorithm" }

func (ga genetic) Run(ctx context.Context, p *Problem, opts Options) ([]string, error) {
	if opts.Generations <= 0 {
		return nil, &errs.SchedulingError{
			Strategy: ga.Name(),
			Detail:   "generations must be positive",
		}
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	base := p.baseOrder()

	pop := make([][]string, gaPopulation)
	pop[0] = append([]string(nil), base...)
	for i := 1; i < gaPopulation; i++ {
		cand := append([]string(nil), base...)
		rng.Shuffle(len(cand), func(a, b int) {
			cand[a], cand[b] = cand[b], cand[a]
		})
		pop[i] = cand
	}

	var best evaluated
	for gen := 0; gen < opts.Generations; gen++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		costs := scorePopulation(p, pop, opts.Workers)
		for i, cand := range pop {
			if best.order == nil || less(costs[i], cand, best.cost, best.order) {
				best = evaluated{order: append([]string(nil), cand...), cost: costs[i]}
			}
		}

		next := make([][]string, 0, gaPopulation)
		next = append(next, elite(pop, costs, gaElitism)...)
		for len(next) < gaPopulation {
			a := tournament(rng, pop, costs)
			b := tournament(rng, pop, costs)
			child := append([]string(nil), a...)
			if rng.Float64() < gaCrossover {
				child = crossover(rng, a, b)
			}
			if rng.Float64() < gaMutation {
				mutate(rng, child)
			}
			next = append(next, child)
		}
		pop = next
	}

	return best.order, nil
}

// scorePopulation evaluates relaxed costs for the whole population on a
// worker pool. Index-addressed results keep scoring deterministic.
func scorePopulation(p *Problem, pop [][]string, workers int) []time.Duration {
	if workers <= 0 {
		workers = 4
	}
	costs := make([]time.Duration, len(pop))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				costs[i] = p.relaxedCost(pop[i])
			}
		}()
	}
	for i := range pop {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	return costs
}

// elite returns copies of the n best individuals.
func elite(pop [][]string, costs []time.Duration, n int) [][]string {
	out := make([][]string, 0, n)
	taken := make([]bool, len(pop))
	for len(out) < n {
		bestIdx := -1
		for i := range pop {
			if taken[i] {
				continue
			}
			if bestIdx == -1 || less(costs[i], pop[i], costs[bestIdx], pop[bestIdx]) {
				bestIdx = i
			}
		}
		taken[bestIdx] = true
		out = append(out, append([]string(nil), pop[bestIdx]...))
	}
	return out
}

// tournament picks the best of gaTournament random individuals.
func tournament(rng *rand.Rand, pop [][]string, costs []time.Duration) []string {
	bestIdx := rng.Intn(len(pop))
	for i := 1; i < gaTournament; i++ {
		idx := rng.Intn(len(pop))
		if less(costs[idx], pop[idx], costs[bestIdx], pop[bestIdx]) {
			bestIdx = idx
		}
	}
	return pop[bestIdx]
}

// crossover splices two orders: the child takes a random slice of parent a
// verbatim and fills the remaining positions with parent b's genes in
// order, consuming per-procedure counts. Per-procedure precedence is
// inherent in the gene encoding, so every child is a legal order.
func crossover(rng *rand.Rand, a, b []string) []string {
	n := len(a)
	lo := rng.Intn(n)
	hi := lo + rng.Intn(n-lo)

	child := make([]string, n)
	remaining := map[string]int{}
	for _, g := range a {
		remaining[g]++
	}
	for i := lo; i <= hi; i++ {
		child[i] = a[i]
		remaining[a[i]]--
	}

	bi := 0
	for i := 0; i < n; i++ {
		if i >= lo && i <= hi {
			continue
		}
		for remaining[b[bi]] == 0 {
			bi++
		}
		child[i] = b[bi]
		remaining[b[bi]]--
		bi++
	}
	return child
}

// mutate swaps two positions holding genes of different procedures.
func mutate(rng *rand.Rand, order []string) {
	if len(order) < 2 {
		return
	}
	for try := 0; try < 8; try++ {
		i := rng.Intn(len(order))
		j := rng.Intn(len(order))
		if order[i] != order[j] {
			order[i], order[j] = order[j], order[i]
			return
		}
	}
}
