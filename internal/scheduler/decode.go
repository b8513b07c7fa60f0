package scheduler

import (
	"time"
)

// decode turns an interleaving order into a schedule with the greedy
// strict decoder: each task starts at the earliest instant that respects
// both its procedure's previous task and the availability of every
// resource it needs. Any order decodes to a valid schedule.
func (p *Problem) decode(order []string) *Schedule {
	next := map[string]int{}
	procAvail := map[string]time.Duration{}
	resAvail := map[string]time.Duration{}

	sched := &Schedule{Entries: make([]Entry, 0, len(order))}
	for _, name := range order {
		t := p.Tasks[name][next[name]]
		next[name]++

		start := procAvail[name]
		for _, r := range t.Resources {
			if resAvail[r] > start {
				start = resAvail[r]
			}
		}
		end := start + t.Duration

		procAvail[name] = end
		for _, r := range t.Resources {
			resAvail[r] = end
		}
		sched.Entries = append(sched.Entries, Entry{
			Procedure: name,
			StepIndex: t.Index,
			Start:     start,
			End:       end,
			Resources: t.Resources,
		})
		if end > sched.Makespan {
			sched.Makespan = end
		}
	}
	return sched
}

// cost is the strict decoder's makespan for an order, as the fitness unit
// the strategies compare on.
func (p *Problem) cost(order []string) time.Duration {
	return p.decode(order).Makespan
}

// relaxedCost decodes an order honouring only per-procedure precedence and
// charges resource contention as a penalty instead of delaying the task.
// The genetic strategy searches on this relaxed fitness so that orderings
// one swap away from a good one stay close in cost; the winning order is
// always strictly re-decoded before a schedule leaves the package.
func (p *Problem) relaxedCost(order []string) time.Duration {
	next := map[string]int{}
	procAvail := map[string]time.Duration{}
	resAvail := map[string]time.Duration{}

	var makespan, penalty time.Duration
	for _, name := range order {
		t := p.Tasks[name][next[name]]
		next[name]++

		start := procAvail[name]
		end := start + t.Duration
		for _, r := range t.Resources {
			if overlap := resAvail[r] - start; overlap > 0 {
				if overlap > t.Duration {
					overlap = t.Duration
				}
				penalty += overlap
			}
			if end > resAvail[r] {
				resAvail[r] = end
			}
		}
		procAvail[name] = end
		if end > makespan {
			makespan = end
		}
	}
	return makespan + penalty
}

// less orders candidates for deterministic tie-breaking: lower cost wins,
// equal costs fall back to lexicographic order comparison.
func less(aCost time.Duration, a []string, bCost time.Duration, b []string) bool {
	if aCost != bCost {
		return aCost < bCost
	}
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}
