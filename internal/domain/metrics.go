package domain

// Metrics summarises the quality of a route against the imbalances it served.
type Metrics struct {
	Algorithm                 string
	TotalCost                 float64
	TotalDistanceMeters       int
	TotalDurationSeconds      int
	StationsVisited           int
	StopsCount                int
	PickedUp                  int
	DroppedOff                int
	FinalLoad                 int
	MaxLoad                   int
	CapacityUtilization       float64
	ImbalanceTotal            int
	ImbalanceResolved         int
	ImbalanceResolvedFraction float64
	// Unresolved maps station id to its remaining signed imbalance.
	Unresolved         map[string]int
	UnresolvedStations []string

	// Filled by the solver, not by evaluation.
	Objective       float64
	Iterations      int
	BudgetExhausted bool
	Phase           string
}
