package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter creates and configures the Chi router
func NewRouter(h *Handlers) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(RequestLogger(h.log))
	r.Use(CORS)

	r.Get("/healthz", h.Health)

	// API routes
	r.Route("/api", func(r chi.Router) {
		// a live run waits on every source, so it gets a longer budget than lookups
		r.With(middleware.Timeout(3*time.Minute)).Get("/rentals", h.SearchRentals)
		r.Get("/areas", h.ListAreas)
		r.Get("/areas/{name}/commute", h.AreaCommute)
		r.Get("/estimate", h.Estimate)
		r.Get("/locate", h.Locate)
		r.Get("/runs", h.ListRuns)
		r.Get("/runs/{id}", h.GetRun)
		r.Get("/runs/{id}/listings", h.RunListings)
	})

	return r
}
