// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/trackhub/internal/app/coordinator"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const minSecretLen = 32

// appConfigKeys defines the configuration keys for TrackHub.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, jwt_secret, etc.
//   - Environment variables: TRACKHUB_MONGO_URI, TRACKHUB_JWT_SECRET, etc.
//   - Command-line flags: --mongo_uri, --jwt_secret, etc.
var appConfigKeys = []config.AppKey{
	{Name: "store_backend", Default: BackendMongo, Desc: "Store backend: 'mongo' or 'memory'"},
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "trackhub", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},

	{Name: "jwt_secret", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Credential signing secret (at least 32 characters)"},
	{Name: "jwt_issuer", Default: "trackhub", Desc: "Credential issuer claim"},
	{Name: "token_ttl", Default: "24h", Desc: "Credential lifetime (e.g., 24h, 90m)"},

	{Name: "cors_origins", Default: "http://localhost:5173,http://localhost:5177", Desc: "Comma-separated browser origins allowed in addition to private LAN addresses"},

	{Name: "login_rate_per_minute", Default: 10, Desc: "Login attempts per minute per client IP"},
	{Name: "login_burst", Default: 5, Desc: "Login attempt burst per client IP"},

	{Name: "timeout_short", Default: "5s", Desc: "Deadline for single-document store calls"},
	{Name: "timeout_medium", Default: "10s", Desc: "Deadline for lists and single writes"},
	{Name: "timeout_long", Default: "30s", Desc: "Deadline for multi-collection deletes"},

	// Audit logging settings
	{Name: "audit_log_auth", Default: "all", Desc: "Auth event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_admin", Default: "all", Desc: "Admin event logging: 'all' (db+log), 'db', 'log', or 'off'"},

	{Name: "reporter_successor", Default: coordinator.SuccessorDeletingAdmin, Desc: "Reporter of a deleted user's tasks: 'deleting_admin' or 'system'"},
	{Name: "system_user_id", Default: "", Desc: "User id used as reporter successor in 'system' mode (blank creates a system user)"},

	// Admin bootstrap
	{Name: "bootstrap_admin_email", Default: "", Desc: "Email of an admin user to create or promote on startup"},
	{Name: "bootstrap_admin_password", Default: "", Desc: "Password for a newly created bootstrap admin"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, TRACKHUB_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "TRACKHUB", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		StoreBackend:     strings.ToLower(strings.TrimSpace(appValues.String("store_backend"))),
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),

		JWTSecret: appValues.String("jwt_secret"),
		JWTIssuer: appValues.String("jwt_issuer"),
		TokenTTL:  appValues.Duration("token_ttl", 24*time.Hour),

		CORSOrigins: splitList(appValues.String("cors_origins")),

		LoginRatePerMinute: appValues.Int("login_rate_per_minute"),
		LoginBurst:         appValues.Int("login_burst"),

		TimeoutShort:  appValues.Duration("timeout_short", 5*time.Second),
		TimeoutMedium: appValues.Duration("timeout_medium", 10*time.Second),
		TimeoutLong:   appValues.Duration("timeout_long", 30*time.Second),

		AuditLogAuth:  appValues.String("audit_log_auth"),
		AuditLogAdmin: appValues.String("audit_log_admin"),

		ReporterSuccessor: appValues.String("reporter_successor"),
		SystemUserID:      strings.TrimSpace(appValues.String("system_user_id")),

		BootstrapAdminEmail:    appValues.String("bootstrap_admin_email"),
		BootstrapAdminPassword: appValues.String("bootstrap_admin_password"),
	}

	return coreCfg, appCfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func oneOf(v string, allowed ...string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if !oneOf(appCfg.StoreBackend, BackendMongo, BackendMemory) {
		return fmt.Errorf("store_backend must be %q or %q, got %q", BackendMongo, BackendMemory, appCfg.StoreBackend)
	}
	if appCfg.StoreBackend == BackendMongo {
		if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
			logger.Error("invalid MongoDB URI", zap.Error(err))
			return fmt.Errorf("invalid MongoDB URI: %w", err)
		}
	}

	if len(appCfg.JWTSecret) < minSecretLen {
		return fmt.Errorf("jwt_secret must be at least %d characters", minSecretLen)
	}
	if appCfg.TokenTTL <= 0 {
		return fmt.Errorf("token_ttl must be positive")
	}

	if !oneOf(appCfg.AuditLogAuth, "all", "db", "log", "off") {
		return fmt.Errorf("audit_log_auth must be one of all, db, log, off; got %q", appCfg.AuditLogAuth)
	}
	if !oneOf(appCfg.AuditLogAdmin, "all", "db", "log", "off") {
		return fmt.Errorf("audit_log_admin must be one of all, db, log, off; got %q", appCfg.AuditLogAdmin)
	}

	if !oneOf(appCfg.ReporterSuccessor, coordinator.SuccessorDeletingAdmin, coordinator.SuccessorSystem) {
		return fmt.Errorf("reporter_successor must be %q or %q, got %q",
			coordinator.SuccessorDeletingAdmin, coordinator.SuccessorSystem, appCfg.ReporterSuccessor)
	}
	if appCfg.SystemUserID != "" {
		if _, err := primitive.ObjectIDFromHex(appCfg.SystemUserID); err != nil {
			return fmt.Errorf("system_user_id is not a valid id: %w", err)
		}
	}

	if appCfg.BootstrapAdminEmail != "" && len(appCfg.BootstrapAdminPassword) < 6 {
		logger.Warn("bootstrap_admin_password is shorter than 6 characters; an existing account will only be promoted")
	}
	return nil
}
