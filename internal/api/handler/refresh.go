package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bcnelson/ioc-dashboard/internal/domain"
	"github.com/bcnelson/ioc-dashboard/internal/service"
)

// RefreshHandler handles refresh control endpoints.
type RefreshHandler struct {
	svc *service.RefreshService
}

// NewRefreshHandler creates a new RefreshHandler.
func NewRefreshHandler(svc *service.RefreshService) *RefreshHandler {
	return &RefreshHandler{svc: svc}
}

// Refresh runs a manual refresh and returns the recorded run.
func (h *RefreshHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	run, err := h.svc.Refresh(r.Context(), domain.TriggerManual)
	switch {
	case err == nil:
		respondJSON(w, http.StatusOK, run)
	case errors.Is(err, domain.ErrStaleRefresh):
		respondStandardError(w, http.StatusConflict, domain.ErrCodeStaleRefresh,
			"a newer refresh was applied first", "", map[string]any{"run": run})
	case errors.Is(err, domain.ErrFetchFailed):
		respondStandardError(w, http.StatusBadGateway, domain.ErrCodeFetchFailed,
			err.Error(), "", map[string]any{"run": run})
	default:
		handleError(w, err)
	}
}

// Status returns the schedule and applied dataset state.
func (h *RefreshHandler) Status(w http.ResponseWriter, r *http.Request) {
	status, err := h.svc.Status(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, status)
}

// SetInterval changes the automatic refresh interval. Zero or a negative
// value disables automatic refresh.
func (h *RefreshHandler) SetInterval(w http.ResponseWriter, r *http.Request) {
	var req domain.SetIntervalRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	interval := time.Duration(max(req.IntervalMS, 0)) * time.Millisecond
	if err := h.svc.SetInterval(interval); err != nil {
		handleError(w, err)
		return
	}

	h.Status(w, r)
}

// ListRuns lists refresh runs, newest first.
func (h *RefreshHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 20
	offset := 0

	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if o := r.URL.Query().Get("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	runs, err := h.svc.ListRuns(r.Context(), limit, offset)
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, runs)
}

// GetRun returns a single refresh run.
func (h *RefreshHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "id is required")
		return
	}

	run, err := h.svc.GetRun(r.Context(), id)
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, run)
}
