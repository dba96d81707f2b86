package services

import (
	"context"
	"math"
	"sort"

	"github.com/rs/zerolog"
)

// Exact searches every visit order depth-first with branch-and-bound. Revisits
// are allowed, so partial service under a tight capacity is covered. The
// incumbent starts from local search; above Options.ExactThreshold stations
// the local-search route is returned as is.
type Exact struct{}

func (Exact) Name() Algorithm { return ExactSmall }

func (Exact) Construct(ctx context.Context, p *Problem) ([]int, error) {
	seed, err := LocalSearch{Base: NearestNeighbor{}}.Construct(ctx, p)
	if err != nil {
		return nil, err
	}

	if p.N() > p.Options.ExactThreshold {
		zerolog.Ctx(ctx).Info().
			Int("stations", p.N()).
			Int("threshold", p.Options.ExactThreshold).
			Msg("instance above exact threshold, falling back to local search")
		return seed, nil
	}

	s := &exactSearch{ctx: ctx, p: p, rem: append([]int(nil), p.demand...)}
	s.best = p.normalize(seed)
	s.bestObj = p.objective(s.best)
	if empty := p.objective(nil); empty < s.bestObj {
		s.best, s.bestObj = nil, empty
	}
	for _, d := range p.demand {
		if d > 0 {
			s.remSurplus += d
		} else {
			s.remDeficit -= d
		}
	}

	// the seed's iteration budget is not the exact search's
	p.BudgetExhausted = false
	s.dfs(0)
	p.Iterations += s.steps
	if s.stopped {
		p.BudgetExhausted = true
	}
	return nodesOf(s.best), nil
}

type exactSearch struct {
	ctx context.Context
	p   *Problem

	best    []Visit
	bestObj float64

	path       []int
	prefixCost float64
	rem        []int
	load       int
	drops      int
	remSurplus int
	remDeficit int

	steps   int
	stopped bool
}

func (s *exactSearch) dfs(last int) {
	s.steps++
	if s.steps%4096 == 0 && s.p.expired(s.ctx) {
		s.stopped = true
	}
	if s.stopped {
		return
	}

	if len(s.path) > 0 {
		vs := s.p.normalize(s.path)
		if obj := s.p.objective(vs); obj < s.bestObj-improveEps {
			s.best, s.bestObj = vs, obj
		}
	}

	// Every completion pays at least one more edge out of last, and can drop
	// no more than the bikes it holds or can still collect.
	future := min(s.remDeficit, s.load+s.remSurplus)
	unavoidable := s.p.totalAbs - 2*(s.drops+future)
	bound := s.prefixCost + s.p.minOut[last] + s.p.Options.UnresolvedPenalty*float64(unavoidable)
	if bound >= s.bestObj-improveEps {
		return
	}

	for _, j := range s.branches(last) {
		q := feasibleQuantity(s.rem[j], s.load, s.p.Capacity)
		c := s.p.cost[last][j]
		pickup := s.rem[j] > 0

		s.path = append(s.path, j)
		s.prefixCost += c
		if pickup {
			s.rem[j] -= q
			s.load += q
			s.remSurplus -= q
		} else {
			s.rem[j] += q
			s.load -= q
			s.drops += q
			s.remDeficit -= q
		}

		s.dfs(j)

		if pickup {
			s.rem[j] += q
			s.load -= q
			s.remSurplus += q
		} else {
			s.rem[j] -= q
			s.load += q
			s.drops -= q
			s.remDeficit += q
		}
		s.prefixCost -= c
		s.path = s.path[:len(s.path)-1]

		if s.stopped {
			return
		}
	}
}

// branches lists the stations where the truck can move bikes next, cheapest
// first, then by id.
func (s *exactSearch) branches(last int) []int {
	out := make([]int, 0, s.p.N())
	for j := 1; j <= s.p.N(); j++ {
		if feasibleQuantity(s.rem[j], s.load, s.p.Capacity) == 0 || math.IsInf(s.p.cost[last][j], 1) {
			continue
		}
		out = append(out, j)
	}
	sort.Slice(out, func(a, b int) bool {
		ca, cb := s.p.cost[last][out[a]], s.p.cost[last][out[b]]
		if ca != cb {
			return ca < cb
		}
		return s.p.ids[out[a]] < s.p.ids[out[b]]
	})
	return out
}
