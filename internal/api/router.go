package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/starford/raido/internal/directiveservice"
	"github.com/starford/raido/internal/importer"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
func NewRouter(svc *directiveservice.Service, imp *importer.Importer, authEnabled bool, token string) chi.Router {
	h := NewHandler(svc, imp)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Directives CRUD.
	r.Get("/directives", h.ListDirectives)
	r.Post("/directives", h.CreateDirective)
	r.Delete("/directives", h.DeleteAllDirectives)
	r.Get("/directives/{id}", h.GetDirective)
	r.Put("/directives/{id}", h.UpdateDirective)
	r.Delete("/directives/{id}", h.DeleteDirective)

	// Reminders.
	r.Post("/directives/{id}/remind", h.RemindDirective)
	r.Post("/reminders/sweep", h.Sweep)
	r.Get("/reminder-settings", h.GetSettings)
	r.Put("/reminder-settings", h.UpdateSettings)

	// Reports.
	r.Get("/reports/stats", h.Stats)
	r.Get("/reports/non-responsive", h.NonResponsive)

	// Lookups.
	r.Get("/owners", h.Owners)
	r.Get("/sheets", h.Sheets)

	// CSV import.
	r.Post("/import", h.Import)

	return r
}
