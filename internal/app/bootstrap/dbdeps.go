// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/dalemusser/trackhub/internal/app/coordinator"
	"github.com/dalemusser/trackhub/internal/app/store/repo"
	"github.com/dalemusser/trackhub/internal/app/system/auditlog"
	"github.com/dalemusser/trackhub/internal/app/system/ratelimit"
	"github.com/dalemusser/trackhub/internal/app/system/workers"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database/back-end dependencies for the app.
//
// Mongo fields are nil on the memory backend. Services is filled by
// Startup and read by BuildHandler and Shutdown.
type DBDeps struct {
	Backend       string
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database
	Stores        repo.Stores

	Services *Services
}

// Services are the long-lived objects built once in Startup.
type Services struct {
	Coordinator *coordinator.Coordinator
	Audit       *auditlog.Logger
	Limiter     *ratelimit.LoginLimiter
	Runner      *workers.Runner
}
