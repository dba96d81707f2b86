package distance

import (
	"context"

	"go.uber.org/atomic"

	"rebalance-route-service/internal/domain"
	"rebalance-route-service/internal/ports"
)

type MockPair struct {
	From, To string
	Meters   int
	Seconds  int
}

// MockDistanceProvider serves fixed distances keyed by point id.
type MockDistanceProvider struct {
	m     map[string]ports.DistanceResult
	calls atomic.Int64
}

func NewMockDistanceProvider(pairs []MockPair) *MockDistanceProvider {
	m := make(map[string]ports.DistanceResult, len(pairs))
	for _, p := range pairs {
		m[pairKey(p.From, p.To)] = ports.DistanceResult{DistanceMeters: p.Meters, DurationSeconds: p.Seconds}
	}
	return &MockDistanceProvider{m: m}
}

// Symmetric returns pairs in both directions for each given pair.
func Symmetric(pairs ...MockPair) []MockPair {
	out := make([]MockPair, 0, 2*len(pairs))
	for _, p := range pairs {
		out = append(out, p, MockPair{From: p.To, To: p.From, Meters: p.Meters, Seconds: p.Seconds})
	}
	return out
}

func (p *MockDistanceProvider) GetDistance(ctx context.Context, origin, destination domain.Point) (ports.DistanceResult, error) {
	p.calls.Inc()
	r, ok := p.m[pairKey(origin.ID, destination.ID)]
	if !ok {
		return ports.DistanceResult{}, &domain.UnreachableError{From: origin.ID, To: destination.ID, Reason: "missing pair"}
	}

	return r, nil
}

// Calls reports how many lookups reached the provider.
func (p *MockDistanceProvider) Calls() int { return int(p.calls.Load()) }
