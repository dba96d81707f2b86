package distance

import (
	"context"
	"math"

	"rebalance-route-service/internal/domain"
	"rebalance-route-service/internal/ports"
)

const earthRadiusMeters = 6371000.0

// HaversineProvider computes great-circle distances between coordinates and
// derives the duration from a constant speed. Factor and Block add directional
// overrides so asymmetric or broken networks can be modelled offline.
type HaversineProvider struct {
	SpeedKph float64

	factors map[string]float64
	blocked map[string]struct{}
}

func NewHaversineProvider(speedKph float64) *HaversineProvider {
	if speedKph <= 0 {
		speedKph = 25
	}
	return &HaversineProvider{
		SpeedKph: speedKph,
		factors:  map[string]float64{},
		blocked:  map[string]struct{}{},
	}
}

// Factor scales the distance of the directed pair from -> to.
// Overrides must be set before the provider is shared.
func (h *HaversineProvider) Factor(from, to string, f float64) {
	h.factors[pairKey(from, to)] = f
}

// Block makes the directed pair from -> to unreachable.
func (h *HaversineProvider) Block(from, to string) {
	h.blocked[pairKey(from, to)] = struct{}{}
}

func (h *HaversineProvider) GetDistance(ctx context.Context, origin, destination domain.Point) (ports.DistanceResult, error) {
	if err := ctx.Err(); err != nil {
		return ports.DistanceResult{}, err
	}
	if origin.Location == nil || destination.Location == nil {
		return ports.DistanceResult{}, &domain.UnreachableError{From: origin.ID, To: destination.ID, Reason: "missing coordinates"}
	}
	key := pairKey(origin.ID, destination.ID)
	if _, ok := h.blocked[key]; ok {
		return ports.DistanceResult{}, &domain.UnreachableError{From: origin.ID, To: destination.ID, Reason: "blocked"}
	}

	meters := HaversineMeters(*origin.Location, *destination.Location)
	if f, ok := h.factors[key]; ok {
		meters *= f
	}
	mps := h.SpeedKph * 1000 / 3600

	return ports.DistanceResult{
		DistanceMeters:  int(math.Round(meters)),
		DurationSeconds: int(math.Round(meters / mps)),
	}, nil
}

// HaversineMeters returns the great-circle distance between two coordinates.
func HaversineMeters(a, b domain.Coordinates) float64 {
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180
	s := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(a.Lat*math.Pi/180)*math.Cos(b.Lat*math.Pi/180)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(s), math.Sqrt(1-s))
	return earthRadiusMeters * c
}

func pairKey(from, to string) string { return from + "|" + to }
