// internal/app/features/tasks/handler.go
package tasks

import (
	"net/http"

	"github.com/dalemusser/trackhub/internal/app/coordinator"
	"github.com/dalemusser/trackhub/internal/app/features/shared/listquery"
	"github.com/dalemusser/trackhub/internal/app/features/shared/respond"
	"github.com/dalemusser/trackhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler serves task and comment endpoints.
type Handler struct {
	C   *coordinator.Coordinator
	Log *zap.Logger
}

func NewHandler(c *coordinator.Coordinator, logger *zap.Logger) *Handler {
	return &Handler{C: c, Log: logger}
}

// ServeList lists tasks visible to the caller.
// GET /api/tasks?project=&status=&priority=&type=&search=&page=&limit=
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	res, err := h.C.ListTasks(r.Context(), auth.CredentialFrom(r.Context()), listquery.Parse(r))
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.OK(w, res)
}

// ServeGet returns one task with its comments.
// GET /api/tasks/{id}
func (h *Handler) ServeGet(w http.ResponseWriter, r *http.Request) {
	v, err := h.C.GetTask(r.Context(), auth.CredentialFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.OK(w, v)
}

// HandleCreate adds a task.
// POST /api/tasks
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in coordinator.CreateTaskInput
	if err := respond.Decode(w, r, &in); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	v, err := h.C.CreateTask(r.Context(), auth.CredentialFrom(r.Context()), in)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.Created(w, v)
}

// HandleUpdate edits a task.
// PUT /api/tasks/{id}
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var in coordinator.UpdateTaskInput
	if err := respond.Decode(w, r, &in); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	v, err := h.C.UpdateTask(r.Context(), auth.CredentialFrom(r.Context()), chi.URLParam(r, "id"), in)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.OK(w, v)
}

// HandleDelete removes a task.
// DELETE /api/tasks/{id}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.C.DeleteTask(r.Context(), auth.CredentialFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.Done(w, "Task deleted successfully")
}

// HandleComment appends a comment.
// POST /api/tasks/{id}/comments
func (h *Handler) HandleComment(w http.ResponseWriter, r *http.Request) {
	var in coordinator.CommentInput
	if err := respond.Decode(w, r, &in); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	v, err := h.C.AddComment(r.Context(), auth.CredentialFrom(r.Context()), chi.URLParam(r, "id"), in)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.Created(w, v)
}
