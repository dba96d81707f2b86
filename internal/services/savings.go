package services

import (
	"context"
	"math"
	"sort"
)

// Savings adapts the Clarke-Wright savings construction to pickup and
// delivery. Every station starts on its own depot round trip; round trips are
// merged tail-to-head by descending saving c(i,0)+c(0,j)-c(i,j) whenever the
// merged segment can be fully served within the truck capacity. Segments are
// then chained from the depot, nearest serviceable head first.
type Savings struct{}

func (Savings) Name() Algorithm { return SavingsHeuristic }

type saving struct {
	i, j  int
	value float64
}

type segment struct {
	nodes     []int
	minPrefix int
	maxPrefix int
}

func (s *segment) head() int { return s.nodes[0] }
func (s *segment) tail() int { return s.nodes[len(s.nodes)-1] }

func (Savings) Construct(ctx context.Context, p *Problem) ([]int, error) {
	n := p.N()
	if n == 0 {
		return nil, nil
	}

	savings := make([]saving, 0, n*(n-1))
	for i := 1; i <= n; i++ {
		for j := 1; j <= n; j++ {
			if i == j || math.IsInf(p.cost[i][j], 1) {
				continue
			}
			savings = append(savings, saving{i: i, j: j, value: p.cost[i][0] + p.cost[0][j] - p.cost[i][j]})
		}
	}
	sort.SliceStable(savings, func(a, b int) bool {
		if savings[a].value != savings[b].value {
			return savings[a].value > savings[b].value
		}
		if p.ids[savings[a].i] != p.ids[savings[b].i] {
			return p.ids[savings[a].i] < p.ids[savings[b].i]
		}
		return p.ids[savings[a].j] < p.ids[savings[b].j]
	})

	owner := make([]*segment, n+1)
	for i := 1; i <= n; i++ {
		owner[i] = newSegment(p, []int{i})
	}

	for k, s := range savings {
		if k%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		a, b := owner[s.i], owner[s.j]
		if a == b || a.tail() != s.i || b.head() != s.j {
			continue
		}
		merged := newSegment(p, append(append([]int(nil), a.nodes...), b.nodes...))
		if merged.maxPrefix-merged.minPrefix > p.Capacity {
			continue
		}
		for _, v := range merged.nodes {
			owner[v] = merged
		}
	}

	segs := make([]*segment, 0, n)
	seen := make(map[*segment]bool, n)
	for i := 1; i <= n; i++ {
		if !seen[owner[i]] {
			seen[owner[i]] = true
			segs = append(segs, owner[i])
		}
	}

	return chainSegments(p, segs), nil
}

// newSegment records the cumulative demand swing of serving nodes in full.
func newSegment(p *Problem, nodes []int) *segment {
	s := &segment{nodes: nodes}
	sum := 0
	for _, v := range nodes {
		sum += p.demand[v]
		s.minPrefix = min(s.minPrefix, sum)
		s.maxPrefix = max(s.maxPrefix, sum)
	}
	return s
}

// chainSegments orders segments from the depot. A segment the truck can serve
// in full from its current load wins over one it can only serve in part;
// within a class the cheapest head wins, then the smaller head id.
func chainSegments(p *Problem, segs []*segment) []int {
	rem := append([]int(nil), p.demand...)
	load, cur := 0, 0
	order := make([]int, 0, p.N())

	for len(segs) > 0 {
		best := -1
		bestFull := false
		for k, s := range segs {
			c := p.cost[cur][s.head()]
			if math.IsInf(c, 1) || !servesAny(p, rem, load, s.nodes) {
				continue
			}
			full := load+s.minPrefix >= 0 && load+s.maxPrefix <= p.Capacity
			if best < 0 || (full && !bestFull) {
				best, bestFull = k, full
				continue
			}
			if full != bestFull {
				continue
			}
			bc := p.cost[cur][segs[best].head()]
			if c < bc || (c == bc && p.ids[s.head()] < p.ids[segs[best].head()]) {
				best = k
			}
		}
		if best < 0 {
			break
		}

		s := segs[best]
		for _, v := range s.nodes {
			q := feasibleQuantity(rem[v], load, p.Capacity)
			if rem[v] > 0 {
				load += q
				rem[v] -= q
			} else {
				load -= q
				rem[v] += q
			}
		}
		order = append(order, s.nodes...)
		cur = s.tail()
		segs = append(segs[:best], segs[best+1:]...)
	}
	return order
}

// servesAny reports whether the truck can move a bike at any node from load.
func servesAny(p *Problem, rem []int, load int, nodes []int) bool {
	for _, v := range nodes {
		if feasibleQuantity(rem[v], load, p.Capacity) > 0 {
			return true
		}
	}
	return false
}
