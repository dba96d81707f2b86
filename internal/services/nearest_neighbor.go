package services

import (
	"context"
	"math"
)

// NearestNeighbor builds a route with a greedy nearest-neighbor rule.
//
// From the current position it moves to the cheapest station that still has
// work the truck can do right now: a surplus while there is free space, or a
// deficit while bikes are on board. Ties prefer the larger remaining
// imbalance, then the smaller station id, so runs are deterministic. It does
// not attempt global optimization.
type NearestNeighbor struct{}

func (NearestNeighbor) Name() Algorithm { return NearestNeighborGreedy }

func (NearestNeighbor) Construct(ctx context.Context, p *Problem) ([]int, error) {
	rem := append([]int(nil), p.demand...)
	load := 0
	cur := 0
	order := make([]int, 0, p.N())

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		best := -1
		bestCost := math.Inf(1)
		for j := 1; j <= p.N(); j++ {
			if feasibleQuantity(rem[j], load, p.Capacity) == 0 {
				continue
			}
			c := p.cost[cur][j]
			if math.IsInf(c, 1) {
				continue
			}
			if best < 0 || c < bestCost || (c == bestCost && nearerTie(p, rem, j, best)) {
				best, bestCost = j, c
			}
		}
		if best < 0 {
			return order, nil
		}

		q := feasibleQuantity(rem[best], load, p.Capacity)
		if rem[best] > 0 {
			load += q
			rem[best] -= q
		} else {
			load -= q
			rem[best] += q
		}
		order = append(order, best)
		cur = best
	}
}

// nearerTie breaks equal-cost ties: larger remaining |imbalance|, then id.
func nearerTie(p *Problem, rem []int, j, best int) bool {
	if abs(rem[j]) != abs(rem[best]) {
		return abs(rem[j]) > abs(rem[best])
	}
	return p.ids[j] < p.ids[best]
}

// feasibleQuantity is how many bikes the truck can move at a station with
// remaining imbalance d given its current load.
func feasibleQuantity(d, load, capacity int) int {
	switch {
	case d > 0:
		return min(d, capacity-load)
	case d < 0:
		return min(-d, load)
	}
	return 0
}
