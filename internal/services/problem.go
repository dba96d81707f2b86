package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"rebalance-route-service/internal/ports"
)

type Phase string

const (
	PhaseInitialized  Phase = "initialized"
	PhaseConstructing Phase = "constructing"
	PhaseLocalSearch  Phase = "local_search_refining"
	PhaseFinalized    Phase = "finalized"
)

var phaseTransitions = map[Phase][]Phase{
	PhaseInitialized:  {PhaseConstructing},
	PhaseConstructing: {PhaseLocalSearch, PhaseFinalized},
	PhaseLocalSearch:  {PhaseFinalized},
}

// Visit is one served station in a route order. Quantity is signed:
// positive picks bikes up, negative drops them off.
type Visit struct {
	Node     int
	Quantity int
}

// Problem is the solver's view of one instance: the depot at node 0 and the
// reachable stations with a non-zero imbalance at nodes 1..N. Strategies read
// it and report their effort through Iterations and BudgetExhausted.
type Problem struct {
	Capacity int
	Options  SolverOptions

	ids      []string
	demand   []int
	cost     [][]float64
	dist     [][]ports.DistanceResult
	minOut   []float64
	totalAbs int

	phase    Phase
	deadline time.Time

	Iterations      int
	BudgetExhausted bool
}

// newMatrixProblem builds a problem from a full cost matrix; node 0 is the
// depot and +Inf marks a missing edge. dist may be nil.
func newMatrixProblem(ids []string, demand []int, cost [][]float64, dist [][]ports.DistanceResult, capacity int, opts SolverOptions) *Problem {
	p := &Problem{
		Capacity: capacity,
		Options:  opts.withDefaults(),
		ids:      ids,
		demand:   demand,
		cost:     cost,
		dist:     dist,
		minOut:   make([]float64, len(ids)),
		phase:    PhaseInitialized,
	}
	for i := range ids {
		p.totalAbs += abs(demand[i])
		best := math.Inf(1)
		for j := range ids {
			if j != i && cost[i][j] < best {
				best = cost[i][j]
			}
		}
		p.minOut[i] = best
	}
	return p
}

// N is the number of stations; nodes run from 1 to N.
func (p *Problem) N() int { return len(p.ids) - 1 }

func (p *Problem) ID(i int) string { return p.ids[i] }

func (p *Problem) Demand(i int) int { return p.demand[i] }

func (p *Problem) Cost(i, j int) float64 { return p.cost[i][j] }

func (p *Problem) Phase() Phase { return p.phase }

func (p *Problem) advance(next Phase) error {
	if p.phase == next {
		return nil
	}
	for _, allowed := range phaseTransitions[p.phase] {
		if allowed == next {
			p.phase = next
			return nil
		}
	}
	return fmt.Errorf("solver: invalid phase transition %s -> %s", p.phase, next)
}

func (p *Problem) startClock(now time.Time) {
	if p.Options.TimeBudget > 0 {
		p.deadline = now.Add(p.Options.TimeBudget)
	}
}

// expired reports a cancelled context or a spent time budget.
func (p *Problem) expired(ctx context.Context) bool {
	if ctx.Err() != nil {
		return true
	}
	return !p.deadline.IsZero() && time.Now().After(p.deadline)
}

// Assign applies the shared feasibility rule to a visit order. A forward pass
// picks up min(surplus, free space) and drops min(deficit, load); a backward
// pass then trims the latest pickups until the truck ends empty. Visits left
// with nothing to do are removed and the rule is re-applied until stable, so
// Assign(nodes(Assign(o))) == Assign(o).
func (p *Problem) Assign(order []int) []Visit {
	cur := append([]int(nil), order...)
	for {
		qs := p.forward(cur)
		trimToEmpty(qs)

		kept := make([]Visit, 0, len(cur))
		for k, q := range qs {
			if q != 0 {
				kept = append(kept, Visit{Node: cur[k], Quantity: q})
			}
		}
		if len(kept) == len(cur) {
			return kept
		}
		cur = nodesOf(kept)
	}
}

func (p *Problem) forward(order []int) []int {
	rem := append([]int(nil), p.demand...)
	load := 0
	qs := make([]int, len(order))
	for k, i := range order {
		switch d := rem[i]; {
		case d > 0:
			q := min(d, p.Capacity-load)
			load += q
			rem[i] -= q
			qs[k] = q
		case d < 0:
			q := min(-d, load)
			load -= q
			rem[i] += q
			qs[k] = -q
		}
	}
	return qs
}

// trimToEmpty lowers pickups from the back so the final load is zero while
// every intermediate load stays non-negative.
func trimToEmpty(qs []int) {
	loads := make([]int, len(qs))
	load := 0
	for k, q := range qs {
		load += q
		loads[k] = load
	}
	for k := len(qs) - 1; k >= 0 && load > 0; k-- {
		if qs[k] <= 0 {
			continue
		}
		floor := loads[k]
		for _, l := range loads[k+1:] {
			floor = min(floor, l)
		}
		d := min(load, qs[k], floor)
		qs[k] -= d
		load -= d
		for j := k; j < len(loads); j++ {
			loads[j] -= d
		}
	}
}

// normalize assigns quantities and drops visits until every leg, including
// the closing one, has a finite cost.
func (p *Problem) normalize(order []int) []Visit {
	vs := p.Assign(order)
	for {
		k := p.brokenLeg(vs)
		if k < 0 {
			return vs
		}
		if k == len(vs) {
			k--
		}
		nodes := nodesOf(vs)
		vs = p.Assign(append(nodes[:k], nodes[k+1:]...))
	}
}

// brokenLeg returns the index of the first visit reached through an infinite
// leg, len(vs) when only the closing leg is infinite, or -1.
func (p *Problem) brokenLeg(vs []Visit) int {
	prev := 0
	for k, v := range vs {
		if math.IsInf(p.cost[prev][v.Node], 1) {
			return k
		}
		prev = v.Node
	}
	if len(vs) > 0 && math.IsInf(p.cost[prev][0], 1) {
		return len(vs)
	}
	return -1
}

// travel is the cost of depot -> visits -> depot; an empty route costs nothing.
func (p *Problem) travel(vs []Visit) float64 {
	if len(vs) == 0 {
		return 0
	}
	total := 0.0
	prev := 0
	for _, v := range vs {
		total += p.cost[prev][v.Node]
		prev = v.Node
	}
	return total + p.cost[prev][0]
}

func (p *Problem) unresolved(vs []Visit) int {
	served := 0
	for _, v := range vs {
		served += abs(v.Quantity)
	}
	return p.totalAbs - served
}

// objective is travel cost plus the penalty for every unresolved bike.
func (p *Problem) objective(vs []Visit) float64 {
	return p.travel(vs) + p.Options.UnresolvedPenalty*float64(p.unresolved(vs))
}

func nodesOf(vs []Visit) []int {
	out := make([]int, len(vs))
	for k, v := range vs {
		out[k] = v.Node
	}
	return out
}
