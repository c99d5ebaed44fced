// Package api implements the refile REST API using chi.
package api

import (
	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes mounted under /api.
func NewRouter(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(RequestLogger())

	r.Route("/api", func(r chi.Router) {
		r.Post("/scan", h.Scan)
		r.Post("/execute", h.Execute)
		r.Post("/undo", h.Undo)

		r.Get("/history", h.History)

		r.Get("/settings", h.GetSettings)
		r.Post("/settings", h.UpdateSettings)

		r.Get("/templates", h.Templates)
	})

	return r
}
