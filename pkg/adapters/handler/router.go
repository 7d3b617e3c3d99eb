package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter creates and configures the main application router
func NewRouter(h *HTTPHandler, requestTimeout time.Duration, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(Metrics)

	// Operational routes
	r.Get("/healthz", h.Health)
	r.Handle("/metrics", promhttp.Handler())

	// API routes, bounded per request
	r.Route("/api", func(r chi.Router) {
		if requestTimeout > 0 {
			r.Use(middleware.Timeout(requestTimeout))
		}
		r.Post("/snippets", h.Create)
		r.Get("/snippets/{id}", h.Get)
		r.Get("/stats", h.Stats)
	})

	return r
}
