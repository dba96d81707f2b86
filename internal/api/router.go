package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"rebalance-route-service/internal/api/handlers"
	"rebalance-route-service/internal/platform/metrics"
	"rebalance-route-service/internal/ports"
)

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// This is the API composition root (handlers stay unaware of concrete adapters).
func NewRouter(
	logger zerolog.Logger,
	repo ports.SnapshotRepository,
	provider ports.DistanceProvider,
	defaults handlers.PlanDefaults,
) http.Handler {
	metrics.RegisterDefault()
	mux := http.NewServeMux()

	stationHandler := &handlers.StationHandler{Repo: repo, Policy: defaults.Policy}
	planHandler := &handlers.PlanHandler{
		Repo:     repo,
		Provider: provider,
		Defaults: defaults,
	}

	mux.HandleFunc("/health", handlers.Health)
	mux.HandleFunc("/stations", stationHandler.List)
	mux.HandleFunc("/plans", planHandler.Plan)
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	return requestMiddleware(logger, mux)
}
