// Package coordinator is the only write path into the stores. Every
// operation authenticates the caller, loads the target, asks the authz
// evaluator, validates input, applies the change and returns a
// denormalized view.
package coordinator

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/trackhub/internal/app/store/repo"
	"github.com/dalemusser/trackhub/internal/app/system/apperr"
	"github.com/dalemusser/trackhub/internal/app/system/auditlog"
	"github.com/dalemusser/trackhub/internal/app/system/auth"
	"github.com/dalemusser/trackhub/internal/app/system/authz"
	"github.com/dalemusser/trackhub/internal/app/system/inputval"
	"github.com/dalemusser/trackhub/internal/app/system/metrics"
	"github.com/dalemusser/trackhub/internal/app/system/timeouts"
	"github.com/dalemusser/trackhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Reporter successor policies for user deletion.
const (
	SuccessorDeletingAdmin = "deleting_admin"
	SuccessorSystem        = "system"
)

// Config holds coordinator policy settings.
type Config struct {
	// ReporterSuccessor decides who becomes reporter of a deleted user's
	// tasks and owner of their projects: SuccessorDeletingAdmin (default)
	// or SuccessorSystem.
	ReporterSuccessor string
	// SystemUserID is the reporter used with SuccessorSystem.
	SystemUserID primitive.ObjectID
	// Now is the clock; nil means time.Now.
	Now func() time.Time
}

// Coordinator runs every mutation and read on behalf of a caller.
type Coordinator struct {
	users    repo.Users
	projects repo.Projects
	tasks    repo.Tasks
	auth     *auth.Service
	authz    *authz.Evaluator
	audit    *auditlog.Logger
	log      *zap.Logger
	cfg      Config
}

// New builds a Coordinator. audit may be nil.
func New(stores repo.Stores, authSvc *auth.Service, ev *authz.Evaluator, audit *auditlog.Logger, cfg Config, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.ReporterSuccessor == "" {
		cfg.ReporterSuccessor = SuccessorDeletingAdmin
	}
	return &Coordinator{
		users:    stores.Users,
		projects: stores.Projects,
		tasks:    stores.Tasks,
		auth:     authSvc,
		authz:    ev,
		audit:    audit,
		log:      logger,
		cfg:      cfg,
	}
}

func (c *Coordinator) now() time.Time { return c.cfg.Now().UTC() }

// observe records an operation's outcome. Use as
//
//	defer c.observe("create_project", time.Now(), &err)
func (c *Coordinator) observe(op string, started time.Time, errp *error) {
	outcome := "ok"
	if errp != nil && *errp != nil {
		outcome = string(apperr.KindOf(*errp))
		if apperr.KindOf(*errp) == "" {
			outcome = "internal"
			c.log.Error("operation failed", zap.String("operation", op), zap.Error(*errp))
		}
	}
	metrics.Observe(op, outcome, started)
}

// storeCtx bounds a single-document read.
func (c *Coordinator) storeCtx(ctx context.Context, op string) (context.Context, context.CancelFunc) {
	return timeouts.WithTimeout(ctx, timeouts.Short(), c.log, op)
}

// writeCtx bounds a write or a multi-document read.
func (c *Coordinator) writeCtx(ctx context.Context, op string) (context.Context, context.CancelFunc) {
	return timeouts.WithTimeout(ctx, timeouts.Medium(), c.log, op)
}

// storeErr maps repo sentinel errors to caller-facing kinds. what names
// the resource for NotFound messages.
func storeErr(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repo.ErrNotFound):
		return apperr.NotFoundf("%s not found", what)
	case errors.Is(err, repo.ErrDuplicateKey):
		return apperr.ErrDuplicateKey
	case errors.Is(err, repo.ErrDuplicateEmail):
		return apperr.ErrDuplicateEmail
	}
	return timeouts.Classify(err)
}

// parseID turns a hex id into an ObjectID. Malformed ids cannot name an
// existing resource, so they are reported as NotFound.
func parseID(hex, what string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, apperr.NotFoundf("%s not found", what)
	}
	return id, nil
}

// authenticate verifies cred and reloads the user so a deleted or
// deactivated account loses access immediately. The role comes from the
// stored user, not the token.
func (c *Coordinator) authenticate(ctx context.Context, cred auth.Credential) (models.User, error) {
	id, err := c.auth.Verify(cred)
	if err != nil {
		return models.User{}, err
	}
	sctx, cancel := c.storeCtx(ctx, "load caller")
	defer cancel()
	u, err := c.users.GetByID(sctx, id.UserID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return models.User{}, apperr.ErrInvalidCredential
		}
		return models.User{}, timeouts.Classify(err)
	}
	if !u.IsActive {
		return models.User{}, apperr.ErrInvalidCredential
	}
	return u, nil
}

func subjectOf(u models.User) authz.Subject {
	return authz.Subject{UserID: u.ID, Role: u.Role}
}

// authorize maps the evaluator's decision to an error.
func (c *Coordinator) authorize(ctx context.Context, caller models.User, t authz.Target, act authz.Action) error {
	switch c.authz.Decide(subjectOf(caller), t, act) {
	case authz.Allow:
		return nil
	case authz.DenySelfProtection:
		what := "delete"
		if act == authz.UpdateAny {
			what = "deactivate or demote"
		}
		c.audit.SelfProtectionDenied(ctx, caller.ID, what)
		return apperr.ErrSelfProtection
	}
	c.log.Debug("access denied",
		zap.String("user_id", caller.ID.Hex()),
		zap.String("resource", string(t.Resource)),
		zap.String("action", string(act)))
	return apperr.ErrForbidden
}

// admin authenticates cred and requires the admin scope for act.
func (c *Coordinator) admin(ctx context.Context, cred auth.Credential, act authz.Action) (models.User, error) {
	caller, err := c.authenticate(ctx, cred)
	if err != nil {
		return models.User{}, err
	}
	if err := c.authorize(ctx, caller, authz.Target{Resource: authz.ResourceAdmin}, act); err != nil {
		return models.User{}, err
	}
	return caller, nil
}

// validate runs struct-tag validation and reports every failure.
func validate(in any) error {
	if res := inputval.Validate(in); res.HasErrors() {
		return apperr.Invalidf("%s", res.All())
	}
	return nil
}
