// internal/app/features/profile/handler.go
package profile

import (
	"github.com/dalemusser/trackhub/internal/app/coordinator"
	"go.uber.org/zap"
)

// Handler owns the caller's own-account endpoints.
type Handler struct {
	C   *coordinator.Coordinator
	Log *zap.Logger
}

// NewHandler constructs a Handler bound to the coordinator and logger.
func NewHandler(c *coordinator.Coordinator, logger *zap.Logger) *Handler {
	return &Handler{C: c, Log: logger}
}
