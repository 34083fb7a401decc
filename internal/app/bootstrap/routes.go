// internal/app/bootstrap/routes.go
package bootstrap

import (
	"errors"
	"net/http"

	adminfeature "github.com/dalemusser/trackhub/internal/app/features/admin"
	errorsfeature "github.com/dalemusser/trackhub/internal/app/features/errors"
	healthfeature "github.com/dalemusser/trackhub/internal/app/features/health"
	loginfeature "github.com/dalemusser/trackhub/internal/app/features/login"
	profilefeature "github.com/dalemusser/trackhub/internal/app/features/profile"
	projectsfeature "github.com/dalemusser/trackhub/internal/app/features/projects"
	tasksfeature "github.com/dalemusser/trackhub/internal/app/features/tasks"
	"github.com/dalemusser/trackhub/internal/app/system/auth"
	"github.com/dalemusser/trackhub/internal/app/system/metrics"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// Startup have completed. Every /api route reads the bearer credential from
// the Authorization header; the coordinator decides what the caller may do.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	if deps.Services == nil || deps.Services.Coordinator == nil {
		return nil, errors.New("startup did not build the coordinator")
	}
	svc := deps.Services

	errorsHandler := errorsfeature.NewHandler(logger)

	r := chi.NewRouter()
	r.Use(corsMiddleware(appCfg.CORSOrigins))
	r.Use(auth.LoadCredential)

	// Set before mounting so feature subrouters inherit them.
	r.NotFound(errorsHandler.NotFound)
	r.MethodNotAllowed(errorsHandler.MethodNotAllowed)

	// Health check endpoint for load balancers and orchestrators
	var pinger healthfeature.Pinger
	if deps.MongoClient != nil {
		pinger = healthfeature.MongoPinger{Client: deps.MongoClient}
	}
	r.Mount("/health", healthfeature.Routes(healthfeature.NewHandler(pinger, deps.Backend, logger)))
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(api chi.Router) {
		loginHandler := loginfeature.NewHandler(svc.Coordinator, svc.Limiter, svc.Audit, logger)
		api.Mount("/auth", loginfeature.Routes(loginHandler))

		profileHandler := profilefeature.NewHandler(svc.Coordinator, logger)
		api.Mount("/users", profilefeature.Routes(profileHandler))

		projectsHandler := projectsfeature.NewHandler(svc.Coordinator, logger)
		api.Mount("/projects", projectsfeature.Routes(projectsHandler))

		tasksHandler := tasksfeature.NewHandler(svc.Coordinator, logger)
		api.Mount("/tasks", tasksfeature.Routes(tasksHandler))

		adminHandler := adminfeature.NewHandler(svc.Coordinator, logger)
		api.Mount("/admin", adminfeature.Routes(adminHandler))
	})

	return r, nil
}
