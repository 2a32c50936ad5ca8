package handler

import (
	"net/http"

	"github.com/bcnelson/ioc-dashboard/internal/service"
	"github.com/bcnelson/ioc-dashboard/internal/validation"
)

// StatsHandler serves the aggregated chart views.
type StatsHandler struct {
	svc *service.RefreshService
}

// NewStatsHandler creates a new StatsHandler.
func NewStatsHandler(svc *service.RefreshService) *StatsHandler {
	return &StatsHandler{svc: svc}
}

// Get returns trend, changes, totals and distribution for the filtered
// records.
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	filter, errs := validation.ParseFilter(r.URL.Query())
	if errs.HasErrors() {
		respondValidationErrors(w, errs)
		return
	}

	if serveCached(w, r, "stats", h.svc.AppliedSequence()) {
		return
	}

	agg, err := h.svc.Stats(r.Context(), filter)
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, agg)
}
