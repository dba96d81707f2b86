package dto

type PlanRequest struct {
	SnapshotID      string   `json:"snapshot_id"`
	Algorithm       string   `json:"algorithm"`
	VehicleID       string   `json:"vehicle_id"`
	VehicleCapacity int      `json:"vehicle_capacity"`
	TargetFill      *float64 `json:"target_fill_fraction"`
	DepotStationID  string   `json:"depot_station_id"`
	DepotLon        *float64 `json:"depot_lon"`
	DepotLat        *float64 `json:"depot_lat"`
}

type StopResponse struct {
	StationID string `json:"station_id"`
	Action    string `json:"action"`
	Quantity  int    `json:"quantity"`
	LoadAfter int    `json:"load_after"`
}

type LegResponse struct {
	From            string  `json:"from"`
	To              string  `json:"to"`
	DistanceMeters  int     `json:"distance_meters"`
	DurationSeconds int     `json:"duration_seconds"`
	Cost            float64 `json:"cost"`
}

type MetricsResponse struct {
	TotalCost                 float64        `json:"total_cost"`
	TotalDistanceMeters       int            `json:"total_distance_meters"`
	TotalDurationSeconds      int            `json:"total_duration_seconds"`
	StationsVisited           int            `json:"stations_visited"`
	PickedUp                  int            `json:"picked_up"`
	DroppedOff                int            `json:"dropped_off"`
	MaxLoad                   int            `json:"max_load"`
	CapacityUtilization       float64        `json:"capacity_utilization"`
	ImbalanceTotal            int            `json:"imbalance_total"`
	ImbalanceResolved         int            `json:"imbalance_resolved"`
	ImbalanceResolvedFraction float64        `json:"imbalance_resolved_fraction"`
	Unresolved                map[string]int `json:"unresolved"`
	UnresolvedStations        []string       `json:"unresolved_stations"`
	Objective                 float64        `json:"objective"`
	Iterations                int            `json:"iterations"`
	BudgetExhausted           bool           `json:"budget_exhausted"`
}

type PlanResponse struct {
	RouteID         string          `json:"route_id"`
	SnapshotID      string          `json:"snapshot_id"`
	Algorithm       string          `json:"algorithm"`
	VehicleCapacity int             `json:"vehicle_capacity"`
	Depot           []float64       `json:"depot"`
	Stops           []StopResponse  `json:"stops"`
	Legs            []LegResponse   `json:"legs"`
	Imbalances      map[string]int  `json:"imbalances"`
	Metrics         MetricsResponse `json:"metrics"`
}
