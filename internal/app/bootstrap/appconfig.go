// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// Store backends.
const (
	BackendMongo  = "mongo"
	BackendMemory = "memory"
)

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// WAFFLE's CoreConfig covers ports, TLS, logging level and request limits.
// Everything below is specific to TrackHub and is passed to every
// lifecycle hook.
type AppConfig struct {
	// Store selection. "memory" keeps all data in process and is meant for
	// demos and tests.
	StoreBackend string

	// MongoDB connection configuration
	MongoURI         string
	MongoDatabase    string
	MongoMaxPoolSize uint64

	// Bearer credentials
	JWTSecret string
	JWTIssuer string
	TokenTTL  time.Duration

	// Browser origins allowed in addition to private-LAN origins.
	CORSOrigins []string

	// Login throttling
	LoginRatePerMinute int
	LoginBurst         int

	// Store call deadlines
	TimeoutShort  time.Duration
	TimeoutMedium time.Duration
	TimeoutLong   time.Duration

	// Audit logging: "all", "db", "log" or "off"
	AuditLogAuth  string
	AuditLogAdmin string

	// Who becomes reporter of a deleted user's tasks: "deleting_admin" or "system".
	ReporterSuccessor string
	SystemUserID      string

	// Admin account created or promoted on startup (optional).
	BootstrapAdminEmail    string
	BootstrapAdminPassword string
}
