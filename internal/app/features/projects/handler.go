// internal/app/features/projects/handler.go
package projects

import (
	"net/http"

	"github.com/dalemusser/trackhub/internal/app/coordinator"
	"github.com/dalemusser/trackhub/internal/app/features/shared/listquery"
	"github.com/dalemusser/trackhub/internal/app/features/shared/respond"
	"github.com/dalemusser/trackhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler serves project and membership endpoints.
type Handler struct {
	C   *coordinator.Coordinator
	Log *zap.Logger
}

func NewHandler(c *coordinator.Coordinator, logger *zap.Logger) *Handler {
	return &Handler{C: c, Log: logger}
}

// ServeList lists the caller's projects.
// GET /api/projects?page=&limit=&search=&status=
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	res, err := h.C.ListProjects(r.Context(), auth.CredentialFrom(r.Context()), listquery.Parse(r))
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.OK(w, res)
}

// ServeGet returns one project.
// GET /api/projects/{id}
func (h *Handler) ServeGet(w http.ResponseWriter, r *http.Request) {
	v, err := h.C.GetProject(r.Context(), auth.CredentialFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.OK(w, v)
}

// HandleCreate creates a project owned by the caller.
// POST /api/projects
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in coordinator.CreateProjectInput
	if err := respond.Decode(w, r, &in); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	v, err := h.C.CreateProject(r.Context(), auth.CredentialFrom(r.Context()), in)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.Created(w, v)
}

// HandleUpdate edits a project.
// PUT /api/projects/{id}
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var in coordinator.UpdateProjectInput
	if err := respond.Decode(w, r, &in); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	v, err := h.C.UpdateProject(r.Context(), auth.CredentialFrom(r.Context()), chi.URLParam(r, "id"), in)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.OK(w, v)
}

// HandleDelete removes a project and its tasks.
// DELETE /api/projects/{id}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.C.DeleteProject(r.Context(), auth.CredentialFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.Done(w, "Project deleted successfully")
}

// HandleAddMember adds or re-roles a member.
// POST /api/projects/{id}/members
func (h *Handler) HandleAddMember(w http.ResponseWriter, r *http.Request) {
	var in coordinator.AddMemberInput
	if err := respond.Decode(w, r, &in); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	v, err := h.C.AddMember(r.Context(), auth.CredentialFrom(r.Context()), chi.URLParam(r, "id"), in)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.OK(w, v)
}

// HandleRemoveMember removes a member.
// DELETE /api/projects/{id}/members/{userID}
func (h *Handler) HandleRemoveMember(w http.ResponseWriter, r *http.Request) {
	v, err := h.C.RemoveMember(r.Context(), auth.CredentialFrom(r.Context()), chi.URLParam(r, "id"), chi.URLParam(r, "userID"))
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.OK(w, v)
}
