// internal/app/features/admin/handler.go
package admin

import (
	"net/http"

	"github.com/dalemusser/trackhub/internal/app/coordinator"
	"github.com/dalemusser/trackhub/internal/app/features/shared/listquery"
	"github.com/dalemusser/trackhub/internal/app/features/shared/respond"
	"github.com/dalemusser/trackhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler serves the site-wide admin endpoints. Every coordinator call
// checks the admin role itself.
type Handler struct {
	C   *coordinator.Coordinator
	Log *zap.Logger
}

func NewHandler(c *coordinator.Coordinator, logger *zap.Logger) *Handler {
	return &Handler{C: c, Log: logger}
}

// ServeDashboard returns site counts and recent activity.
// GET /api/admin/dashboard
func (h *Handler) ServeDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.C.AdminDashboard(r.Context(), auth.CredentialFrom(r.Context()))
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.OK(w, d)
}

// ServeUsers lists users.
// GET /api/admin/users?search=&role=&page=&limit=
func (h *Handler) ServeUsers(w http.ResponseWriter, r *http.Request) {
	res, err := h.C.AdminListUsers(r.Context(), auth.CredentialFrom(r.Context()), listquery.Parse(r))
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.OK(w, res)
}

// HandleUpdateUser edits a user.
// PUT /api/admin/users/{id}
func (h *Handler) HandleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var in coordinator.AdminUserInput
	if err := respond.Decode(w, r, &in); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	u, err := h.C.AdminUpdateUser(r.Context(), auth.CredentialFrom(r.Context()), chi.URLParam(r, "id"), in)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.OK(w, u)
}

// HandleDeleteUser deletes a user and detaches their work.
// DELETE /api/admin/users/{id}
func (h *Handler) HandleDeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.C.AdminDeleteUser(r.Context(), auth.CredentialFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.Done(w, "User deleted successfully")
}

// ServeProjects lists all projects.
// GET /api/admin/projects?search=&status=&page=&limit=
func (h *Handler) ServeProjects(w http.ResponseWriter, r *http.Request) {
	res, err := h.C.AdminListProjects(r.Context(), auth.CredentialFrom(r.Context()), listquery.Parse(r))
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.OK(w, res)
}

// HandleUpdateProject edits any project.
// PUT /api/admin/projects/{id}
func (h *Handler) HandleUpdateProject(w http.ResponseWriter, r *http.Request) {
	var in coordinator.UpdateProjectInput
	if err := respond.Decode(w, r, &in); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	v, err := h.C.AdminUpdateProject(r.Context(), auth.CredentialFrom(r.Context()), chi.URLParam(r, "id"), in)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.OK(w, v)
}

// HandleDeleteProject deletes any project and its tasks.
// DELETE /api/admin/projects/{id}
func (h *Handler) HandleDeleteProject(w http.ResponseWriter, r *http.Request) {
	if err := h.C.AdminDeleteProject(r.Context(), auth.CredentialFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.Done(w, "Project and associated tasks deleted successfully")
}

// ServeTasks lists all tasks.
// GET /api/admin/tasks?status=&priority=&type=&search=&page=&limit=
func (h *Handler) ServeTasks(w http.ResponseWriter, r *http.Request) {
	res, err := h.C.AdminListTasks(r.Context(), auth.CredentialFrom(r.Context()), listquery.Parse(r))
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.OK(w, res)
}

// HandleUpdateTask edits any task.
// PUT /api/admin/tasks/{id}
func (h *Handler) HandleUpdateTask(w http.ResponseWriter, r *http.Request) {
	var in coordinator.UpdateTaskInput
	if err := respond.Decode(w, r, &in); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	v, err := h.C.AdminUpdateTask(r.Context(), auth.CredentialFrom(r.Context()), chi.URLParam(r, "id"), in)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.OK(w, v)
}

// HandleDeleteTask deletes any task.
// DELETE /api/admin/tasks/{id}
func (h *Handler) HandleDeleteTask(w http.ResponseWriter, r *http.Request) {
	if err := h.C.AdminDeleteTask(r.Context(), auth.CredentialFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.Done(w, "Task deleted successfully")
}
