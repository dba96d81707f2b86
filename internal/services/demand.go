package services

import (
	"math"

	"rebalance-route-service/internal/domain"
)

// DefaultMinimumThreshold is the smallest |imbalance| worth a stop.
const DefaultMinimumThreshold = 2

// TargetFillPolicy sets the desired fill fraction of each station.
type TargetFillPolicy struct {
	Uniform   float64
	Overrides map[string]float64
	// MinimumThreshold excludes stations whose |imbalance| is below it.
	// Zero means DefaultMinimumThreshold.
	MinimumThreshold int
}

func UniformPolicy(fill float64) TargetFillPolicy {
	return TargetFillPolicy{Uniform: fill}
}

func (p TargetFillPolicy) Validate() error {
	if !validFraction(p.Uniform) {
		return &domain.DataValidationError{Field: "target_fill", Reason: "must be within [0,1]"}
	}
	for id, f := range p.Overrides {
		if !validFraction(f) {
			return &domain.DataValidationError{StationID: id, Field: "target_fill", Reason: "must be within [0,1]"}
		}
	}
	if p.MinimumThreshold < 0 {
		return &domain.DataValidationError{Field: "minimum_threshold", Reason: "must be >= 0"}
	}
	return nil
}

// FillFor returns the target fill of one station.
func (p TargetFillPolicy) FillFor(id string) float64 {
	if f, ok := p.Overrides[id]; ok {
		return f
	}
	return p.Uniform
}

func (p TargetFillPolicy) threshold() int {
	if p.MinimumThreshold <= 0 {
		return DefaultMinimumThreshold
	}
	return p.MinimumThreshold
}

// ComputeImbalances returns the signed imbalance of every station that needs a
// visit: positive is a surplus to pick up, negative a deficit to fill.
// Invalid stations are reported, never patched.
func ComputeImbalances(stations []domain.Station, policy TargetFillPolicy) (map[string]int, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	snap := domain.Snapshot{Stations: stations}
	if err := snap.Validate(); err != nil {
		return nil, err
	}

	threshold := policy.threshold()
	out := make(map[string]int, len(stations))
	for _, st := range stations {
		imb := Imbalance(st, policy.FillFor(st.ID))
		if abs(imb) < threshold {
			continue
		}
		out[st.ID] = imb
	}
	return out, nil
}

// Imbalance is round(bikes - fill*capacity), halves rounded away from zero.
func Imbalance(st domain.Station, fill float64) int {
	return int(math.Round(float64(st.Bikes) - fill*float64(st.Capacity)))
}

func validFraction(f float64) bool {
	return !math.IsNaN(f) && f >= 0 && f <= 1
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
