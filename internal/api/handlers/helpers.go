package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"rebalance-route-service/internal/domain"
	"rebalance-route-service/internal/ports"
)

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("encode response failed")
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, map[string]string{"error": msg})
}

// writeServiceError maps typed service errors to HTTP statuses. Anything
// unrecognised is logged and hidden behind a 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var (
		ve *domain.DataValidationError
		ie *domain.InfeasibleInstanceError
	)
	switch {
	case errors.Is(err, ports.ErrSnapshotNotFound):
		writeError(w, r, http.StatusNotFound, "snapshot not found")
	case errors.As(err, &ve):
		writeError(w, r, http.StatusBadRequest, ve.Error())
	case errors.As(err, &ie):
		writeError(w, r, http.StatusUnprocessableEntity, ie.Error())
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Str("op", op).Msg("request failed")
		writeError(w, r, http.StatusInternalServerError, "internal server error")
	}
}

func latestOr(r *http.Request, repo ports.SnapshotRepository, id string) (*domain.Snapshot, error) {
	if id == "" {
		return repo.LatestSnapshot(r.Context())
	}
	return repo.Snapshot(r.Context(), id)
}

func allowOnly(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
	return false
}
