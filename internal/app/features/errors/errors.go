// internal/app/features/errors/errors.go
package errors

import (
	"net/http"

	"github.com/dalemusser/trackhub/internal/app/features/shared/respond"
	"github.com/dalemusser/trackhub/internal/app/system/apperr"
	"go.uber.org/zap"
)

// Handler answers requests no route matched. No DB needed.
type Handler struct {
	Log *zap.Logger
}

// NewHandler constructs an errors Handler.
func NewHandler(logger *zap.Logger) *Handler {
	return &Handler{Log: logger}
}

// NotFound answers unknown paths with a NotFound envelope.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.Log.Debug("no route", zap.String("method", r.Method), zap.String("path", r.URL.Path))
	respond.Error(w, h.Log, apperr.NotFoundf("route %s not found", r.URL.Path))
}

// MethodNotAllowed answers a known path with the wrong method.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	respond.Error(w, h.Log, apperr.Invalidf("method %s is not allowed on %s", r.Method, r.URL.Path))
}
