// internal/app/features/login/routes.go
package login

import "github.com/go-chi/chi/v5"

// Routes serves /api/auth.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/register", h.HandleRegister)
	r.Post("/login", h.HandleLogin)
	r.Get("/verify", h.ServeVerify)
	r.Post("/refresh", h.HandleRefresh)
	return r
}
