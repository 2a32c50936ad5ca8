package handler

import (
	"net/http"

	"github.com/bcnelson/ioc-dashboard/internal/domain"
	"github.com/bcnelson/ioc-dashboard/internal/service"
	"github.com/bcnelson/ioc-dashboard/internal/validation"
)

// IOCHandler handles record listing endpoints.
type IOCHandler struct {
	svc *service.RefreshService
}

// NewIOCHandler creates a new IOCHandler.
func NewIOCHandler(svc *service.RefreshService) *IOCHandler {
	return &IOCHandler{svc: svc}
}

// List returns the records matching the query filter.
func (h *IOCHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, errs := validation.ParseFilter(r.URL.Query())
	if errs.HasErrors() {
		respondValidationErrors(w, errs)
		return
	}

	if serveCached(w, r, "iocs", h.svc.AppliedSequence()) {
		return
	}

	records, err := h.svc.Query(r.Context(), filter)
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, &domain.IOCListResponse{
		Count: len(records),
		IOCs:  records,
	})
}

// Sources returns the distinct sources present in the dataset.
func (h *IOCHandler) Sources(w http.ResponseWriter, r *http.Request) {
	if serveCached(w, r, "sources", h.svc.AppliedSequence()) {
		return
	}

	sources, err := h.svc.Sources(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"sources": sources,
	})
}
