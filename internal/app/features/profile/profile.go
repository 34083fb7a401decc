// internal/app/features/profile/profile.go
package profile

import (
	"net/http"

	"github.com/dalemusser/trackhub/internal/app/coordinator"
	"github.com/dalemusser/trackhub/internal/app/features/shared/respond"
	"github.com/dalemusser/trackhub/internal/app/system/auth"
)

// ServeProfile returns the caller's account.
// GET /api/users/profile
func (h *Handler) ServeProfile(w http.ResponseWriter, r *http.Request) {
	u, err := h.C.VerifyCredential(r.Context(), auth.CredentialFrom(r.Context()))
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.OK(w, u)
}

// HandleUpdateProfile changes name, email or avatar.
// PUT /api/users/profile
func (h *Handler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var in coordinator.ProfileInput
	if err := respond.Decode(w, r, &in); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	u, err := h.C.UpdateProfile(r.Context(), auth.CredentialFrom(r.Context()), in)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.OK(w, u)
}

// HandleChangePassword replaces the caller's password.
// PUT /api/users/password
func (h *Handler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	var in coordinator.ChangePasswordInput
	if err := respond.Decode(w, r, &in); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if err := h.C.ChangePassword(r.Context(), auth.CredentialFrom(r.Context()), in); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.Done(w, "Password updated successfully")
}
