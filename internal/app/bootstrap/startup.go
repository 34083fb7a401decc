// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/trackhub/internal/app/coordinator"
	"github.com/dalemusser/trackhub/internal/app/store/audit"
	"github.com/dalemusser/trackhub/internal/app/store/repo"
	"github.com/dalemusser/trackhub/internal/app/system/auditlog"
	"github.com/dalemusser/trackhub/internal/app/system/auth"
	"github.com/dalemusser/trackhub/internal/app/system/authz"
	"github.com/dalemusser/trackhub/internal/app/system/normalize"
	"github.com/dalemusser/trackhub/internal/app/system/ratelimit"
	"github.com/dalemusser/trackhub/internal/app/system/timeouts"
	"github.com/dalemusser/trackhub/internal/app/system/workers"
	"github.com/dalemusser/trackhub/internal/domain/models"
	"github.com/dalemusser/waffle/config"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// SystemUserEmail identifies the account that inherits reporter duty in
// "system" successor mode when no system_user_id is configured.
const SystemUserEmail = "system@trackhub.local"

const (
	limiterSweepInterval = 5 * time.Minute
	limiterIdle          = 15 * time.Minute
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built. It builds
// the credential store, the access evaluator and the coordinator, ensures the
// bootstrap accounts exist and starts the background jobs.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	timeouts.Configure(timeouts.Config{
		Short:  appCfg.TimeoutShort,
		Medium: appCfg.TimeoutMedium,
		Long:   appCfg.TimeoutLong,
	})
	cur := timeouts.Current()
	logger.Info("store timeouts configured",
		zap.Duration("short", cur.Short), zap.Duration("medium", cur.Medium), zap.Duration("long", cur.Long))

	authSvc, err := auth.NewService(deps.Stores.Users, auth.Config{
		Secret: appCfg.JWTSecret,
		Issuer: appCfg.JWTIssuer,
		TTL:    appCfg.TokenTTL,
	}, logger)
	if err != nil {
		return fmt.Errorf("auth service: %w", err)
	}

	ev, err := authz.New()
	if err != nil {
		return fmt.Errorf("authz evaluator: %w", err)
	}

	var auditLog *auditlog.Logger
	auditCfg := auditlog.Config{Auth: appCfg.AuditLogAuth, Admin: appCfg.AuditLogAdmin}
	if deps.MongoDatabase != nil {
		auditLog = auditlog.New(audit.New(deps.MongoDatabase), logger, auditCfg)
	} else {
		auditLog = auditlog.New(nil, logger, auditCfg)
	}

	coordCfg := coordinator.Config{ReporterSuccessor: appCfg.ReporterSuccessor}
	if appCfg.ReporterSuccessor == coordinator.SuccessorSystem {
		id, err := systemUser(ctx, deps.Stores.Users, authSvc, appCfg.SystemUserID, logger)
		if err != nil {
			return err
		}
		coordCfg.SystemUserID = id
	}

	if appCfg.BootstrapAdminEmail != "" {
		if err := ensureAdmin(ctx, deps.Stores.Users, authSvc, appCfg.BootstrapAdminEmail, appCfg.BootstrapAdminPassword, logger); err != nil {
			return err
		}
	}

	limiter := ratelimit.NewLoginLimiter(appCfg.LoginRatePerMinute, appCfg.LoginBurst)
	runner := workers.NewRunner(logger,
		workers.LimiterSweepJob(limiter, logger, limiterSweepInterval, limiterIdle),
	)
	runner.Start()

	*deps.Services = Services{
		Coordinator: coordinator.New(deps.Stores, authSvc, ev, auditLog, coordCfg, logger),
		Audit:       auditLog,
		Limiter:     limiter,
		Runner:      runner,
	}
	return nil
}

// ensureAdmin promotes the account with the given email to admin, creating
// it first when it does not exist and a password is available.
func ensureAdmin(ctx context.Context, users repo.Users, authSvc *auth.Service, email, password string, logger *zap.Logger) error {
	email = normalize.Email(email)
	sctx, cancel := context.WithTimeout(ctx, timeouts.Medium())
	defer cancel()

	u, err := users.GetByEmail(sctx, email)
	switch {
	case err == nil:
		if u.Role == models.RoleAdmin && u.IsActive {
			return nil
		}
		role, active := models.RoleAdmin, true
		if _, err := users.Update(sctx, u.ID, repo.UserUpdate{Role: &role, IsActive: &active}); err != nil {
			return fmt.Errorf("promote bootstrap admin: %w", err)
		}
		logger.Info("promoted bootstrap admin", zap.String("email", email))
		return nil
	case !errors.Is(err, repo.ErrNotFound):
		return fmt.Errorf("look up bootstrap admin: %w", err)
	}

	if len(password) < 6 {
		return fmt.Errorf("bootstrap admin %s does not exist and bootstrap_admin_password is too short", email)
	}
	hash, err := authSvc.Hash(password)
	if err != nil {
		return err
	}
	if _, err := users.Create(sctx, models.User{
		Name:         "Administrator",
		Email:        email,
		Role:         models.RoleAdmin,
		IsActive:     true,
		PasswordHash: hash,
	}); err != nil {
		return fmt.Errorf("create bootstrap admin: %w", err)
	}
	logger.Info("created bootstrap admin", zap.String("email", email))
	return nil
}

// systemUser resolves the reporter successor for "system" mode. A configured
// id must name an existing user; otherwise an inactive system account is
// found or created.
func systemUser(ctx context.Context, users repo.Users, authSvc *auth.Service, hexID string, logger *zap.Logger) (primitive.ObjectID, error) {
	sctx, cancel := context.WithTimeout(ctx, timeouts.Medium())
	defer cancel()

	if hexID != "" {
		id, err := primitive.ObjectIDFromHex(hexID)
		if err != nil {
			return primitive.NilObjectID, fmt.Errorf("system_user_id: %w", err)
		}
		if _, err := users.GetByID(sctx, id); err != nil {
			return primitive.NilObjectID, fmt.Errorf("system_user_id %s: %w", hexID, err)
		}
		return id, nil
	}

	u, err := users.GetByEmail(sctx, SystemUserEmail)
	if err == nil {
		return u.ID, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return primitive.NilObjectID, fmt.Errorf("look up system user: %w", err)
	}

	// Nobody knows this password; the account is inactive anyway.
	hash, err := authSvc.Hash(uuid.NewString())
	if err != nil {
		return primitive.NilObjectID, err
	}
	u, err = users.Create(sctx, models.User{
		Name:         "System",
		Email:        SystemUserEmail,
		Role:         models.RoleUser,
		IsActive:     false,
		PasswordHash: hash,
	})
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("create system user: %w", err)
	}
	logger.Info("created system user", zap.String("id", u.ID.Hex()))
	return u.ID, nil
}
