// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"strconv"
	"strings"

	"github.com/dalemusser/trackhub/internal/app/store/audit"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Config holds audit logging configuration.
type Config struct {
	// Auth controls logging for authentication events (register, login, password).
	// Values: "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only), "off" (disabled)
	Auth string
	// Admin controls logging for privileged mutations (user/project/task deletes, membership changes).
	// Values: "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only), "off" (disabled)
	Admin string
}

// Recorder persists audit events. *audit.Store satisfies it.
type Recorder interface {
	Log(ctx context.Context, event audit.Event) error
}

// Logger provides convenience methods for logging audit events.
// It logs to a Recorder (normally MongoDB) and to structured logs (via zap).
type Logger struct {
	store  Recorder
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger. A nil store disables the "db" destination.
func New(store Recorder, zapLog *zap.Logger, config Config) *Logger {
	if zapLog == nil {
		zapLog = zap.NewNop()
	}
	return &Logger{
		store:  store,
		zapLog: zapLog,
		config: config,
	}
}

// logToZap logs the event to zap with consistent structure.
func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
	}

	if event.UserID != nil {
		fields = append(fields, zap.String("user_id", event.UserID.Hex()))
	}
	if event.ActorID != nil {
		fields = append(fields, zap.String("actor_id", event.ActorID.Hex()))
	}
	if event.ResourceID != nil {
		fields = append(fields,
			zap.String("resource_kind", event.ResourceKind),
			zap.String("resource_id", event.ResourceID.Hex()))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records an audit event based on configuration.
// If the logger is nil, this is a no-op (allows tests to use nil audit logger).
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	var setting string
	switch event.Category {
	case audit.CategoryAuth:
		setting = l.config.Auth
	case audit.CategoryAdmin:
		setting = l.config.Admin
	default:
		setting = "all"
	}

	if setting == "off" {
		return
	}

	if setting == "all" || setting == "log" {
		l.logToZap(event)
	}

	if (setting == "all" || setting == "db") && l.store != nil {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

// --- Authentication Events ---

// Registered logs a new self-registered account.
func (l *Logger) Registered(ctx context.Context, userID primitive.ObjectID, email string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventRegistered,
		UserID:    &userID,
		Success:   true,
		Details:   map[string]string{"email": email},
	})
}

// LoginSuccess logs a successful login.
func (l *Logger) LoginSuccess(ctx context.Context, userID primitive.ObjectID, email string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLoginSuccess,
		UserID:    &userID,
		Success:   true,
		Details:   map[string]string{"email": email},
	})
}

// LoginFailed logs a rejected login. The reason is never returned to the caller.
func (l *Logger) LoginFailed(ctx context.Context, attemptedEmail, reason string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventLoginFailed,
		Success:       false,
		FailureReason: reason,
		Details:       map[string]string{"attempted_email": attemptedEmail},
	})
}

// LoginFailedRateLimit logs a login refused by the rate limiter.
func (l *Logger) LoginFailedRateLimit(ctx context.Context, attemptedEmail, limitType string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventLoginFailedRateLimit,
		Success:       false,
		FailureReason: "rate limit exceeded",
		Details: map[string]string{
			"attempted_email": attemptedEmail,
			"limit_type":      limitType,
		},
	})
}

// PasswordChanged logs a password change.
func (l *Logger) PasswordChanged(ctx context.Context, userID primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventPasswordChanged,
		UserID:    &userID,
		Success:   true,
	})
}

// PasswordChangeFailed logs a password change rejected because the
// current password did not match.
func (l *Logger) PasswordChangeFailed(ctx context.Context, userID primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventPasswordChangeFailed,
		UserID:        &userID,
		Success:       false,
		FailureReason: "wrong current password",
	})
}

// --- Admin Events ---

// UserUpdated logs a change to another user's account.
func (l *Logger) UserUpdated(ctx context.Context, actorID, targetUserID primitive.ObjectID, fieldsChanged []string) {
	l.Log(ctx, audit.Event{
		Category:     audit.CategoryAdmin,
		EventType:    audit.EventUserUpdated,
		UserID:       &targetUserID,
		ActorID:      &actorID,
		ResourceKind: "user",
		ResourceID:   &targetUserID,
		Success:      true,
		Details:      map[string]string{"fields_changed": strings.Join(fieldsChanged, ",")},
	})
}

// UserDeleted logs a user removal together with its cascade counts.
func (l *Logger) UserDeleted(ctx context.Context, actorID, targetUserID primitive.ObjectID, details map[string]string) {
	l.Log(ctx, audit.Event{
		Category:     audit.CategoryAdmin,
		EventType:    audit.EventUserDeleted,
		UserID:       &targetUserID,
		ActorID:      &actorID,
		ResourceKind: "user",
		ResourceID:   &targetUserID,
		Success:      true,
		Details:      details,
	})
}

// ProjectUpdated logs an admin change to a project.
func (l *Logger) ProjectUpdated(ctx context.Context, actorID, projectID primitive.ObjectID, fieldsChanged []string) {
	l.Log(ctx, audit.Event{
		Category:     audit.CategoryAdmin,
		EventType:    audit.EventProjectUpdated,
		ActorID:      &actorID,
		ResourceKind: "project",
		ResourceID:   &projectID,
		Success:      true,
		Details:      map[string]string{"fields_changed": strings.Join(fieldsChanged, ",")},
	})
}

// ProjectDeleted logs a project removal.
func (l *Logger) ProjectDeleted(ctx context.Context, actorID, projectID primitive.ObjectID, key string, tasksDeleted int64) {
	l.Log(ctx, audit.Event{
		Category:     audit.CategoryAdmin,
		EventType:    audit.EventProjectDeleted,
		ActorID:      &actorID,
		ResourceKind: "project",
		ResourceID:   &projectID,
		Success:      true,
		Details: map[string]string{
			"key":           key,
			"tasks_deleted": int64ToString(tasksDeleted),
		},
	})
}

// TaskUpdated logs an admin change to a task.
func (l *Logger) TaskUpdated(ctx context.Context, actorID, taskID primitive.ObjectID, fieldsChanged []string) {
	l.Log(ctx, audit.Event{
		Category:     audit.CategoryAdmin,
		EventType:    audit.EventTaskUpdated,
		ActorID:      &actorID,
		ResourceKind: "task",
		ResourceID:   &taskID,
		Success:      true,
		Details:      map[string]string{"fields_changed": strings.Join(fieldsChanged, ",")},
	})
}

// TaskDeleted logs a task removal.
func (l *Logger) TaskDeleted(ctx context.Context, actorID, taskID, projectID primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:     audit.CategoryAdmin,
		EventType:    audit.EventTaskDeleted,
		ActorID:      &actorID,
		ResourceKind: "task",
		ResourceID:   &taskID,
		Success:      true,
		Details:      map[string]string{"project_id": projectID.Hex()},
	})
}

// MemberAdded logs a user joining a project.
func (l *Logger) MemberAdded(ctx context.Context, actorID, userID, projectID primitive.ObjectID, role string) {
	l.Log(ctx, audit.Event{
		Category:     audit.CategoryAdmin,
		EventType:    audit.EventMemberAdded,
		UserID:       &userID,
		ActorID:      &actorID,
		ResourceKind: "project",
		ResourceID:   &projectID,
		Success:      true,
		Details:      map[string]string{"member_role": role},
	})
}

// MemberRemoved logs a user leaving or being removed from a project.
func (l *Logger) MemberRemoved(ctx context.Context, actorID, userID, projectID primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:     audit.CategoryAdmin,
		EventType:    audit.EventMemberRemoved,
		UserID:       &userID,
		ActorID:      &actorID,
		ResourceKind: "project",
		ResourceID:   &projectID,
		Success:      true,
	})
}

// SelfProtectionDenied logs an admin's refused attempt to delete,
// deactivate or demote their own account.
func (l *Logger) SelfProtectionDenied(ctx context.Context, actorID primitive.ObjectID, action string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAdmin,
		EventType:     audit.EventSelfProtection,
		UserID:        &actorID,
		ActorID:       &actorID,
		ResourceKind:  "user",
		ResourceID:    &actorID,
		Success:       false,
		FailureReason: "admins cannot " + action + " their own account",
	})
}

// CascadePartial logs a multi-step delete that stopped part way.
func (l *Logger) CascadePartial(ctx context.Context, actorID primitive.ObjectID, kind string, resourceID primitive.ObjectID, completed []string, failed string, cause error) {
	reason := failed
	if cause != nil {
		reason = failed + ": " + cause.Error()
	}
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAdmin,
		EventType:     audit.EventCascadePartial,
		ActorID:       &actorID,
		ResourceKind:  kind,
		ResourceID:    &resourceID,
		Success:       false,
		FailureReason: reason,
		Details: map[string]string{
			"completed": strings.Join(completed, ","),
			"failed":    failed,
		},
	})
}

func int64ToString(i int64) string {
	return strconv.FormatInt(i, 10)
}
