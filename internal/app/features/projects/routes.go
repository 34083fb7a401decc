// internal/app/features/projects/routes.go
package projects

import "github.com/go-chi/chi/v5"

// Routes serves /api/projects.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeList)
	r.Post("/", h.HandleCreate)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.ServeGet)
		r.Put("/", h.HandleUpdate)
		r.Delete("/", h.HandleDelete)
		r.Post("/members", h.HandleAddMember)
		r.Delete("/members/{userID}", h.HandleRemoveMember)
	})
	return r
}
