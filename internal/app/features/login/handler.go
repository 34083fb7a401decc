// internal/app/features/login/handler.go
package login

import (
	"net/http"

	"github.com/dalemusser/trackhub/internal/app/coordinator"
	"github.com/dalemusser/trackhub/internal/app/features/shared/respond"
	"github.com/dalemusser/trackhub/internal/app/system/auditlog"
	"github.com/dalemusser/trackhub/internal/app/system/auth"
	"github.com/dalemusser/trackhub/internal/app/system/ratelimit"
	"go.uber.org/zap"
)

// Handler serves registration, login and credential checks.
type Handler struct {
	C        *coordinator.Coordinator
	Log      *zap.Logger
	AuditLog *auditlog.Logger
	Limiter  *ratelimit.LoginLimiter // nil disables login throttling
}

func NewHandler(c *coordinator.Coordinator, limiter *ratelimit.LoginLimiter, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{C: c, Log: logger, AuditLog: audit, Limiter: limiter}
}

// HandleRegister creates an account and returns a session.
// POST /api/auth/register
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var in coordinator.RegisterInput
	if err := respond.Decode(w, r, &in); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	s, err := h.C.Register(r.Context(), in)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.Created(w, s)
}

// HandleLogin exchanges email and password for a session.
// POST /api/auth/login
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var in coordinator.LoginInput
	if err := respond.Decode(w, r, &in); err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	if h.Limiter != nil {
		if ok, msg := h.Limiter.Check(r, in.Email); !ok {
			limitType := "ip"
			if msg == ratelimit.MsgEmailLimited {
				limitType = "email"
			}
			h.AuditLog.LoginFailedRateLimit(r.Context(), in.Email, limitType)
			h.Log.Warn("login rate limited", zap.String("ip", ratelimit.ClientIP(r)))
			respond.TooManyRequests(w, msg)
			return
		}
	}

	s, err := h.C.Login(r.Context(), in)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if h.Limiter != nil {
		h.Limiter.ResetEmail(in.Email)
	}
	respond.OK(w, s)
}

// ServeVerify returns the user behind the bearer credential.
// GET /api/auth/verify
func (h *Handler) ServeVerify(w http.ResponseWriter, r *http.Request) {
	u, err := h.C.VerifyCredential(r.Context(), auth.CredentialFrom(r.Context()))
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.OK(w, struct {
		User any `json:"user"`
	}{u})
}

// HandleRefresh swaps a valid credential for a fresh one.
// POST /api/auth/refresh
func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	s, err := h.C.RefreshCredential(r.Context(), auth.CredentialFrom(r.Context()))
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.OK(w, s)
}
