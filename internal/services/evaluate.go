package services

import (
	"sort"

	"rebalance-route-service/internal/domain"
)

// Evaluate measures a route against the imbalances it was meant to serve.
// Only service in the direction of a station's imbalance counts as resolved,
// capped at the imbalance itself. It is a pure function of its inputs.
func Evaluate(route *domain.Route, imbalances map[string]int) domain.Metrics {
	m := domain.Metrics{Unresolved: map[string]int{}, UnresolvedStations: []string{}}
	if route != nil {
		m.Algorithm = route.Algorithm
	}

	picked := map[string]int{}
	dropped := map[string]int{}
	visited := map[string]struct{}{}
	if route != nil {
		for _, l := range route.Legs {
			m.TotalCost += l.Cost
			m.TotalDistanceMeters += l.DistanceMeters
			m.TotalDurationSeconds += l.DurationSeconds
		}
		load := 0
		for _, s := range route.Stops {
			visited[s.StationID] = struct{}{}
			switch s.Action {
			case domain.ActionPickup:
				m.PickedUp += s.Quantity
				picked[s.StationID] += s.Quantity
			case domain.ActionDropoff:
				m.DroppedOff += s.Quantity
				dropped[s.StationID] += s.Quantity
			}
			load += s.Signed()
			m.MaxLoad = max(m.MaxLoad, load)
		}
		m.StopsCount = len(route.Stops)
		m.StationsVisited = len(visited)
		m.FinalLoad = load
		if route.VehicleCapacity > 0 {
			m.CapacityUtilization = float64(m.MaxLoad) / float64(route.VehicleCapacity)
		}
	}

	for id, imb := range imbalances {
		m.ImbalanceTotal += abs(imb)
		served := 0
		switch {
		case imb > 0:
			served = min(imb, picked[id])
		case imb < 0:
			served = min(-imb, dropped[id])
		}
		m.ImbalanceResolved += served
		if left := abs(imb) - served; left > 0 {
			if imb < 0 {
				left = -left
			}
			m.Unresolved[id] = left
			m.UnresolvedStations = append(m.UnresolvedStations, id)
		}
	}
	sort.Strings(m.UnresolvedStations)

	m.ImbalanceResolvedFraction = 1
	if m.ImbalanceTotal > 0 {
		m.ImbalanceResolvedFraction = float64(m.ImbalanceResolved) / float64(m.ImbalanceTotal)
	}
	return m
}
