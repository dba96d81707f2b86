package domain

import "fmt"

// UnreachableError reports that no travel cost exists for an ordered pair of points.
type UnreachableError struct {
	From   string
	To     string
	Reason string
}

func (e *UnreachableError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("unreachable: %q -> %q", e.From, e.To)
	}
	return fmt.Sprintf("unreachable: %q -> %q: %s", e.From, e.To, e.Reason)
}

// DistanceUnavailableError is the name the solver uses for an UnreachableError
// surfaced while building a route segment.
type DistanceUnavailableError = UnreachableError

// InfeasibleInstanceError is returned when no valid route exists for the vehicle.
type InfeasibleInstanceError struct {
	Reason string
}

func (e *InfeasibleInstanceError) Error() string {
	return fmt.Sprintf("infeasible instance: %s", e.Reason)
}

// DataValidationError reports a malformed or inconsistent snapshot value.
type DataValidationError struct {
	StationID string
	Field     string
	Reason    string
}

func (e *DataValidationError) Error() string {
	switch {
	case e.StationID != "" && e.Field != "":
		return fmt.Sprintf("invalid data: station %q field %s: %s", e.StationID, e.Field, e.Reason)
	case e.StationID != "":
		return fmt.Sprintf("invalid data: station %q: %s", e.StationID, e.Reason)
	case e.Field != "":
		return fmt.Sprintf("invalid data: field %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid data: %s", e.Reason)
}
