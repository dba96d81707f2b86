package services

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Algorithm names a route-construction strategy.
type Algorithm string

const (
	NearestNeighborGreedy  Algorithm = "nearest_neighbor"
	SavingsHeuristic       Algorithm = "savings"
	LocalSearchImprovement Algorithm = "local_search"
	ExactSmall             Algorithm = "exact"
)

// Algorithms lists every strategy in a stable order.
func Algorithms() []Algorithm {
	return []Algorithm{NearestNeighborGreedy, SavingsHeuristic, LocalSearchImprovement, ExactSmall}
}

var algorithmAliases = map[string]Algorithm{
	"nearest_neighbor":       NearestNeighborGreedy,
	"nearestneighborgreedy":  NearestNeighborGreedy,
	"nn":                     NearestNeighborGreedy,
	"greedy":                 NearestNeighborGreedy,
	"savings":                SavingsHeuristic,
	"savingsheuristic":       SavingsHeuristic,
	"local_search":           LocalSearchImprovement,
	"localsearchimprovement": LocalSearchImprovement,
	"ls":                     LocalSearchImprovement,
	"exact":                  ExactSmall,
	"exactsmall":             ExactSmall,
	"branch_and_bound":       ExactSmall,
}

func ParseAlgorithm(s string) (Algorithm, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.ReplaceAll(key, "-", "_")
	if a, ok := algorithmAliases[key]; ok {
		return a, nil
	}
	return "", fmt.Errorf("unknown algorithm %q", s)
}

// Strategy builds a visit order over the problem's station nodes. Orders may
// revisit a station; quantities are assigned afterwards by Problem.Assign.
type Strategy interface {
	Name() Algorithm
	Construct(ctx context.Context, p *Problem) ([]int, error)
}

func NewStrategy(a Algorithm) (Strategy, error) {
	switch a {
	case NearestNeighborGreedy:
		return NearestNeighbor{}, nil
	case SavingsHeuristic:
		return Savings{}, nil
	case LocalSearchImprovement:
		return LocalSearch{Base: NearestNeighbor{}}, nil
	case ExactSmall:
		return Exact{}, nil
	}
	return nil, fmt.Errorf("new strategy: unknown algorithm %q", a)
}

type SolverOptions struct {
	// MaxIterations bounds local-search improvement passes.
	MaxIterations int
	// TimeBudget bounds local search and the exact search together.
	TimeBudget time.Duration
	// ExactThreshold is the largest station count the exact search accepts.
	ExactThreshold int
	// UnresolvedPenalty is the objective cost of one unresolved bike.
	UnresolvedPenalty float64
}

func DefaultSolverOptions() SolverOptions {
	return SolverOptions{
		MaxIterations:     1000,
		TimeBudget:        5 * time.Second,
		ExactThreshold:    12,
		UnresolvedPenalty: 1e6,
	}
}

func (o SolverOptions) withDefaults() SolverOptions {
	d := DefaultSolverOptions()
	if o.MaxIterations <= 0 {
		o.MaxIterations = d.MaxIterations
	}
	if o.TimeBudget <= 0 {
		o.TimeBudget = d.TimeBudget
	}
	if o.ExactThreshold <= 0 {
		o.ExactThreshold = d.ExactThreshold
	}
	if o.UnresolvedPenalty <= 0 {
		o.UnresolvedPenalty = d.UnresolvedPenalty
	}
	return o
}
