// Package api implements the cold cases REST API using chi.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/coldcases/internal/caseservice"
)

// NewRouter creates a chi router with all API routes mounted.
// sseHandler, if non-nil, is mounted at GET /events.
func NewRouter(svc *caseservice.Service, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()

	// Cases.
	r.Get("/cases", h.ListCases)
	r.Post("/cases", h.CreateCase)
	r.Get("/cases/{id}", h.GetCase)
	r.Put("/cases/{id}", h.UpdateCase)

	// View model state.
	r.Get("/view", h.GetView)
	r.Put("/view/search", h.SetSearch)

	// Admin mode.
	r.Post("/admin/toggle", h.ToggleAdmin)
	r.Post("/admin/edit/{id}", h.BeginEdit)
	r.Delete("/admin/edit", h.CancelEdit)

	r.Post("/reload", h.Reload)
	r.Get("/search", h.Search)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
