package services

import "context"

const improveEps = 1e-6

// LocalSearch improves the route of a base strategy with 2-opt reversals,
// Or-opt relocations of one to three stops and pairwise swaps.
type LocalSearch struct {
	Base Strategy
}

func (LocalSearch) Name() Algorithm { return LocalSearchImprovement }

func (ls LocalSearch) Construct(ctx context.Context, p *Problem) ([]int, error) {
	base := ls.Base
	if base == nil {
		base = NearestNeighbor{}
	}
	order, err := base.Construct(ctx, p)
	if err != nil {
		return nil, err
	}
	return Improve(ctx, p, order)
}

// Improve runs first-improvement local search on any order. A move is kept
// only when it lowers the objective without raising travel cost, so the
// returned route never costs more than the normalized input. The search stops
// when a full pass finds nothing, after Options.MaxIterations passes, or when
// the time budget or ctx runs out; the best route so far is returned.
func Improve(ctx context.Context, p *Problem, order []int) ([]int, error) {
	if err := p.advance(PhaseLocalSearch); err != nil {
		return nil, err
	}

	best := p.normalize(order)
	bestCost := p.travel(best)
	bestObj := p.objective(best)

	evals := 0
	stopped := false
	try := func(cand []int) bool {
		evals++
		if evals%256 == 0 && p.expired(ctx) {
			stopped = true
			return true
		}
		vs := p.normalize(cand)
		c := p.travel(vs)
		obj := p.objective(vs)
		if obj < bestObj-improveEps && c <= bestCost {
			best, bestCost, bestObj = vs, c, obj
			return true
		}
		return false
	}

	for pass := 0; ; pass++ {
		if pass >= p.Options.MaxIterations || p.expired(ctx) {
			p.BudgetExhausted = true
			break
		}
		p.Iterations++
		improved := scanMoves(nodesOf(best), try)
		if stopped {
			p.BudgetExhausted = true
			break
		}
		if !improved {
			break
		}
	}

	return nodesOf(best), nil
}

// scanMoves offers every neighbour of order to try and stops at the first one
// try accepts.
func scanMoves(order []int, try func([]int) bool) bool {
	m := len(order)

	// 2-opt: reverse order[i..k]
	for i := 0; i < m-1; i++ {
		for k := i + 1; k < m; k++ {
			cand := append([]int(nil), order...)
			for a, b := i, k; a < b; a, b = a+1, b-1 {
				cand[a], cand[b] = cand[b], cand[a]
			}
			if try(cand) {
				return true
			}
		}
	}

	// Or-opt: move a segment of length 1..3 elsewhere
	for l := 1; l <= 3 && l < m; l++ {
		for i := 0; i+l <= m; i++ {
			seg := order[i : i+l]
			rest := make([]int, 0, m-l)
			rest = append(rest, order[:i]...)
			rest = append(rest, order[i+l:]...)
			for j := 0; j <= len(rest); j++ {
				if j == i {
					continue
				}
				cand := make([]int, 0, m)
				cand = append(cand, rest[:j]...)
				cand = append(cand, seg...)
				cand = append(cand, rest[j:]...)
				if try(cand) {
					return true
				}
			}
		}
	}

	// swap two non-adjacent stops
	for i := 0; i < m; i++ {
		for j := i + 2; j < m; j++ {
			cand := append([]int(nil), order...)
			cand[i], cand[j] = cand[j], cand[i]
			if try(cand) {
				return true
			}
		}
	}
	return false
}
