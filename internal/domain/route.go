package domain

import "fmt"

type Action string

const (
	ActionPickup  Action = "pickup"
	ActionDropoff Action = "dropoff"
)

// Represents a single stop in a rebalancing route.
// Quantity is always positive; LoadAfter is the truck load once the stop is done.
type Stop struct {
	StationID string
	Action    Action
	Quantity  int
	LoadAfter int
}

// Signed returns the load change caused by the stop.
func (s Stop) Signed() int {
	if s.Action == ActionDropoff {
		return -s.Quantity
	}
	return s.Quantity
}

// Leg is one directed hop between consecutive route points.
type Leg struct {
	From            string
	To              string
	DistanceMeters  int
	DurationSeconds int
	Cost            float64
}

// Represents the planned rebalancing route for the truck.
// The route starts and ends at the depot: a non-empty route has one more leg than
// it has stops, an empty route has no legs. It is immutable planning data.
type Route struct {
	ID              string
	Algorithm       string
	Depot           Point
	VehicleCapacity int
	Stops           []Stop
	Legs            []Leg
}

// Loads returns the truck load after each stop.
func (r *Route) Loads() []int {
	out := make([]int, len(r.Stops))
	load := 0
	for i, s := range r.Stops {
		load += s.Signed()
		out[i] = load
	}
	return out
}

// Sequence returns the visited point ids including the depot at both ends.
func (r *Route) Sequence() []string {
	seq := make([]string, 0, len(r.Stops)+2)
	seq = append(seq, r.Depot.ID)
	for _, s := range r.Stops {
		seq = append(seq, s.StationID)
	}
	return append(seq, r.Depot.ID)
}

// CheckCapacity verifies that the running load stays within [0, capacity]
// and that the truck comes back empty.
func (r *Route) CheckCapacity() error {
	load := 0
	for i, s := range r.Stops {
		if s.Quantity <= 0 {
			return fmt.Errorf("check route: stop %d (%s) has non-positive quantity %d", i, s.StationID, s.Quantity)
		}
		load += s.Signed()
		if load < 0 || load > r.VehicleCapacity {
			return fmt.Errorf("check route: load %d after stop %d (%s) outside [0,%d]", load, i, s.StationID, r.VehicleCapacity)
		}
	}
	if load != 0 {
		return fmt.Errorf("check route: truck returns to depot with %d bikes", load)
	}
	return nil
}
