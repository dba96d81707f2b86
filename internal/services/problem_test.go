package services

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unitProblem has every edge cost 1 except the ones listed as broken.
func unitProblem(demand []int, capacity int, broken ...[2]int) *Problem {
	n := len(demand)
	ids := make([]string, n)
	cost := make([][]float64, n)
	for i := range cost {
		ids[i] = string(rune('a' + i - 1))
		cost[i] = make([]float64, n)
		for j := range cost[i] {
			if i != j {
				cost[i][j] = 1
			}
		}
	}
	ids[0] = defaultDepotID
	for _, b := range broken {
		cost[b[0]][b[1]] = math.Inf(1)
	}
	return newMatrixProblem(ids, demand, cost, nil, capacity, SolverOptions{})
}

func TestAssignTrimsToEmptyTruck(t *testing.T) {
	p := unitProblem([]int{0, 5, -3}, 10)

	got := p.Assign([]int{1, 2})
	assert.Equal(t, []Visit{{Node: 1, Quantity: 3}, {Node: 2, Quantity: -3}}, got)
}

func TestAssignDropsUselessVisits(t *testing.T) {
	p := unitProblem([]int{0, 5, -3}, 10)

	// nothing on board at the deficit, and nothing to deliver the pickup to
	assert.Empty(t, p.Assign([]int{2, 1}))
}

func TestAssignRevisitsUnderTightCapacity(t *testing.T) {
	p := unitProblem([]int{0, 5, -3, 2, -4}, 3)

	single := p.Assign([]int{1, 2, 3, 4})
	assert.Equal(t, []Visit{{1, 3}, {2, -3}, {3, 2}, {4, -2}}, single)
	assert.Equal(t, 4, p.unresolved(single))

	revisit := p.Assign([]int{1, 2, 1, 4, 3, 4})
	assert.Equal(t, []Visit{{1, 3}, {2, -3}, {1, 2}, {4, -2}, {3, 2}, {4, -2}}, revisit)
	assert.Zero(t, p.unresolved(revisit))
}

func TestAssignIsAFixedPoint(t *testing.T) {
	p := unitProblem([]int{0, 4, -6, 3, -2, 5, -4}, 5)

	orders := [][]int{
		{1, 2, 3, 4, 5, 6},
		{6, 5, 4, 3, 2, 1},
		{2, 1, 4, 3, 6, 5, 2},
		{5, 1, 3, 2, 6, 4},
	}
	for _, o := range orders {
		vs := p.Assign(o)
		assert.Equal(t, vs, p.Assign(nodesOf(vs)), "order %v", o)

		load := 0
		for _, v := range vs {
			require.NotZero(t, v.Quantity)
			load += v.Quantity
			require.GreaterOrEqual(t, load, 0)
			require.LessOrEqual(t, load, 5)
		}
		assert.Zero(t, load)
	}
}

func TestTrimToEmpty(t *testing.T) {
	qs := []int{4, -1, 2}
	trimToEmpty(qs)
	assert.Equal(t, []int{1, -1, 0}, qs)

	balanced := []int{2, -2}
	trimToEmpty(balanced)
	assert.Equal(t, []int{2, -2}, balanced)
}

func TestNormalizeAvoidsBrokenLegs(t *testing.T) {
	p := unitProblem([]int{0, 2, -2, 1, -1}, 10, [2]int{1, 2})

	vs := p.normalize([]int{1, 2, 3, 4})
	assert.Equal(t, []Visit{{1, 1}, {4, -1}}, vs)
	assert.Equal(t, -1, p.brokenLeg(vs))
	assert.Equal(t, 3.0, p.travel(vs))
}

func TestNormalizeBrokenReturnLeg(t *testing.T) {
	p := unitProblem([]int{0, 2, -2}, 10, [2]int{2, 0})

	assert.Empty(t, p.normalize([]int{1, 2}))
}

func TestObjective(t *testing.T) {
	p := unitProblem([]int{0, 2, -2}, 10)

	assert.Zero(t, p.travel(nil))
	assert.Equal(t, 4*p.Options.UnresolvedPenalty, p.objective(nil))

	vs := p.Assign([]int{1, 2})
	assert.Equal(t, 3.0, p.objective(vs))
}

func TestPhaseTransitions(t *testing.T) {
	p := unitProblem([]int{0, 1, -1}, 2)
	assert.Equal(t, PhaseInitialized, p.Phase())

	require.Error(t, p.advance(PhaseFinalized))
	require.NoError(t, p.advance(PhaseConstructing))
	require.NoError(t, p.advance(PhaseConstructing))
	require.NoError(t, p.advance(PhaseLocalSearch))
	require.Error(t, p.advance(PhaseConstructing))
	require.NoError(t, p.advance(PhaseFinalized))
	require.Error(t, p.advance(PhaseLocalSearch))
	assert.Equal(t, PhaseFinalized, p.Phase())
}
