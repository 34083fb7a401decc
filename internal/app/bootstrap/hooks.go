// internal/app/bootstrap/hooks.go
package bootstrap

import (
	"github.com/dalemusser/waffle/app"
)

// Hooks hands the trackhub server to waffle: config, storage, schema,
// services, HTTP handler and shutdown, in that order.
var Hooks = app.Hooks[AppConfig, DBDeps]{
	Name:           "trackhub",
	LoadConfig:     LoadConfig,
	ValidateConfig: ValidateConfig,
	ConnectDB:      ConnectDB,
	EnsureSchema:   EnsureSchema,
	Startup:        Startup,
	BuildHandler:   BuildHandler,
	Shutdown:       Shutdown,
}
