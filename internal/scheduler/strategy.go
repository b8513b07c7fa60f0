package scheduler

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"
)

// Strategy searches the interleaving-order space and returns the best
// order it found. Strategies are registered by name at init time.
type Strategy interface {
	Name() string
	Run(ctx context.Context, p *Problem, opts Options) ([]string, error)
}

var strategies = map[string]Strategy{}

// register adds a strategy. Duplicate names are a programmer error.
func register(s Strategy) {
	if _, dup := strategies[s.Name()]; dup {
		panic(fmt.Sprintf("scheduler: duplicate strategy %q", s.Name()))
	}
	strategies[s.Name()] = s
}

// Lookup returns the named strategy.
func Lookup(name string) (Strategy, bool) {
	s, ok := strategies[name]
	return s, ok
}

// Strategies returns the registered strategy names sorted.
func Strategies() []string {
	out := make([]string, 0, len(strategies))
	for name := range strategies {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// evaluated pairs a candidate order with its cost.
type evaluated struct {
	order []string
	cost  time.Duration
}

// evaluateBest scores every candidate on a worker pool and returns the
// winner. Each worker owns its own running best; the reduction at the end
// is deterministic regardless of worker interleaving because ties break
// lexicographically.
func evaluateBest(ctx context.Context, candidates [][]string, costFn func([]string) time.Duration, workers int) (evaluated, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(candidates) {
		workers = len(candidates)
	}

	jobs := make(chan []string)
	bests := make([]evaluated, workers)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			best := evaluated{}
			for order := range jobs {
				c := costFn(order)
				if best.order == nil || less(c, order, best.cost, best.order) {
					best = evaluated{order: order, cost: c}
				}
			}
			bests[w] = best
		}(w)
	}

feed:
	for _, cand := range candidates {
		select {
		case jobs <- cand:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return evaluated{}, err
	}

	best := evaluated{}
	for _, b := range bests {
		if b.order == nil {
			continue
		}
		if best.order == nil || less(b.cost, b.order, best.cost, best.order) {
			best = b
		}
	}
	if best.order == nil {
		return evaluated{}, fmt.Errorf("no candidates evaluated")
	}
	return best, nil
}
