// internal/app/features/admin/routes.go
package admin

import "github.com/go-chi/chi/v5"

// Routes serves /api/admin.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/dashboard", h.ServeDashboard)

	r.Get("/users", h.ServeUsers)
	r.Put("/users/{id}", h.HandleUpdateUser)
	r.Delete("/users/{id}", h.HandleDeleteUser)

	r.Get("/projects", h.ServeProjects)
	r.Put("/projects/{id}", h.HandleUpdateProject)
	r.Delete("/projects/{id}", h.HandleDeleteProject)

	r.Get("/tasks", h.ServeTasks)
	r.Put("/tasks/{id}", h.HandleUpdateTask)
	r.Delete("/tasks/{id}", h.HandleDeleteTask)
	return r
}
