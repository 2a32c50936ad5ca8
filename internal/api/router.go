package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bcnelson/ioc-dashboard/internal/api/handler"
	"github.com/bcnelson/ioc-dashboard/internal/api/middleware"
	"github.com/bcnelson/ioc-dashboard/internal/service"
)

// NewRouter creates a new HTTP router with all routes configured.
// A nil gatherer leaves /metrics unmounted.
func NewRouter(refreshService *service.RefreshService, gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Logging)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.ContentType)

		// Records
		iocHandler := handler.NewIOCHandler(refreshService)
		r.Get("/iocs", iocHandler.List)
		r.Get("/iocs/sources", iocHandler.Sources)

		// Chart views
		statsHandler := handler.NewStatsHandler(refreshService)
		r.Get("/stats", statsHandler.Get)

		// Refresh control
		refreshHandler := handler.NewRefreshHandler(refreshService)
		r.Post("/refresh", refreshHandler.Refresh)
		r.Get("/refresh/status", refreshHandler.Status)
		r.Put("/refresh/interval", refreshHandler.SetInterval)
		r.Get("/refresh/runs", refreshHandler.ListRuns)
		r.Get("/refresh/runs/{id}", refreshHandler.GetRun)
	})

	return r
}
