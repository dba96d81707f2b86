package domain

import "fmt"

// Rebalancing truck: fixed capacity in bike slots, a depot it starts from and
// returns to, and the number of bikes currently on board.
type Vehicle struct {
	ID       string
	Capacity int
	Depot    Point
	Load     int
}

func NewVehicle(id string, capacity int, depot Point) *Vehicle {
	return &Vehicle{
		ID:       id,
		Capacity: capacity,
		Depot:    depot,
	}
}

// Free returns the number of empty slots on the truck.
func (v *Vehicle) Free() int { return v.Capacity - v.Load }

// Pickup loads q bikes onto the truck.
func (v *Vehicle) Pickup(q int) error {
	if q <= 0 {
		return fmt.Errorf("pickup: vehicle %s: quantity must be positive (q=%d)", v.ID, q)
	}
	if v.Load+q > v.Capacity {
		return fmt.Errorf("pickup: vehicle %s: load %d + %d exceeds capacity %d", v.ID, v.Load, q, v.Capacity)
	}
	v.Load += q
	return nil
}

// Dropoff unloads q bikes from the truck.
func (v *Vehicle) Dropoff(q int) error {
	if q <= 0 {
		return fmt.Errorf("dropoff: vehicle %s: quantity must be positive (q=%d)", v.ID, q)
	}
	if q > v.Load {
		return fmt.Errorf("dropoff: vehicle %s: quantity %d exceeds load %d", v.ID, q, v.Load)
	}
	v.Load -= q
	return nil
}

// Apply performs a stop against the truck load.
func (v *Vehicle) Apply(s Stop) error {
	switch s.Action {
	case ActionPickup:
		return v.Pickup(s.Quantity)
	case ActionDropoff:
		return v.Dropoff(s.Quantity)
	}
	return fmt.Errorf("apply stop: unknown action %q", s.Action)
}

// Reset empties the truck.
func (v *Vehicle) Reset() {
	v.Load = 0
}
