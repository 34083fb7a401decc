package coordinator

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/trackhub/internal/app/store/repo"
	"github.com/dalemusser/trackhub/internal/app/system/apperr"
	"github.com/dalemusser/trackhub/internal/app/system/auth"
	"github.com/dalemusser/trackhub/internal/app/system/authz"
	"github.com/dalemusser/trackhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/trackhub/internal/app/system/normalize"
	"github.com/dalemusser/trackhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func taskTarget(t *models.Task, p *models.Project) authz.Target {
	return authz.Target{Resource: authz.ResourceTask, Task: t, Project: p}
}

// loadTask returns a task and its parent project. A task whose project no
// longer exists is treated as gone.
func (c *Coordinator) loadTask(ctx context.Context, hex string) (models.Task, models.Project, error) {
	id, err := parseID(hex, "task")
	if err != nil {
		return models.Task{}, models.Project{}, err
	}
	sctx, cancel := c.storeCtx(ctx, "load task")
	defer cancel()
	t, err := c.tasks.GetByID(sctx, id)
	if err != nil {
		return models.Task{}, models.Project{}, storeErr(err, "task")
	}
	p, err := c.projects.GetByID(sctx, t.ProjectID)
	if err != nil {
		return models.Task{}, models.Project{}, storeErr(err, "task")
	}
	return t, p, nil
}

// referencedUser resolves a user id named in input. Unknown or malformed
// ids are UnknownReference, not NotFound: the request itself was found.
func (c *Coordinator) referencedUser(ctx context.Context, hex, what string) (models.User, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return models.User{}, apperr.UnknownRef("%s does not exist", what)
	}
	sctx, cancel := c.storeCtx(ctx, "resolve "+what)
	defer cancel()
	u, err := c.users.GetByID(sctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return models.User{}, apperr.UnknownRef("%s does not exist", what)
	}
	if err != nil {
		return models.User{}, storeErr(err, what)
	}
	return u, nil
}

// memberRef checks that hex names an existing member of p. label is the
// field name used in the message.
func (c *Coordinator) memberRef(ctx context.Context, p models.Project, hex, what, label string) (primitive.ObjectID, error) {
	u, err := c.referencedUser(ctx, hex, what)
	if err != nil {
		return primitive.NilObjectID, err
	}
	if !p.HasMember(u.ID) {
		return primitive.NilObjectID, apperr.Invalidf("%s must be a member of the project.", label)
	}
	return u.ID, nil
}

func (c *Coordinator) assignable(ctx context.Context, p models.Project, hex string) (primitive.ObjectID, error) {
	return c.memberRef(ctx, p, hex, "assignee", "Assignee")
}

func validTaskStatus(s string) error {
	if s != "" && !models.OneOf(s, models.TaskStatuses) {
		return apperr.Invalidf("Status must be one of: todo, in-progress, review, done.")
	}
	return nil
}

// ListTasks pages through tasks of the projects the caller belongs to.
// With lp.Project set, only that project's tasks are listed, and the caller
// must be able to read it.
func (c *Coordinator) ListTasks(ctx context.Context, cred auth.Credential, lp ListParams) (res PageResult[models.TaskView], err error) {
	defer c.observe("list_tasks", time.Now(), &err)

	caller, err := c.authenticate(ctx, cred)
	if err != nil {
		return res, err
	}
	if err := validate(lp); err != nil {
		return res, err
	}
	if err := validTaskStatus(lp.Status); err != nil {
		return res, err
	}

	q := repo.ListQuery{Search: lp.Search, Status: lp.Status, Priority: lp.Priority, Type: lp.Type}
	var known []models.Project
	if lp.Project != "" {
		p, err := c.loadProject(ctx, lp.Project)
		if err != nil {
			return res, err
		}
		if err := c.authorize(ctx, caller, projectTarget(&p), authz.Read); err != nil {
			return res, err
		}
		q.ProjectID = &p.ID
		known = append(known, p)
	} else {
		sctx, cancel := c.writeCtx(ctx, "member projects")
		ids, err := c.projects.IDsForMember(sctx, caller.ID)
		cancel()
		if err != nil {
			return res, storeErr(err, "project")
		}
		q.ProjectIn = ids
		if q.ProjectIn == nil {
			q.ProjectIn = []primitive.ObjectID{}
		}
	}

	pg := lp.paging()
	q.Offset, q.Limit = pg.Offset(), pg.Limit
	sctx, cancel := c.writeCtx(ctx, "list tasks")
	defer cancel()
	page, err := c.tasks.List(sctx, q)
	if err != nil {
		return res, storeErr(err, "task")
	}
	views, err := c.taskViews(ctx, page.Items, known...)
	if err != nil {
		return res, err
	}
	return PageResult[models.TaskView]{Items: views, Pagination: pg.InfoFor(page.Total)}, nil
}

// GetTask returns one task the caller may read.
func (c *Coordinator) GetTask(ctx context.Context, cred auth.Credential, id string) (v models.TaskView, err error) {
	defer c.observe("get_task", time.Now(), &err)

	caller, err := c.authenticate(ctx, cred)
	if err != nil {
		return v, err
	}
	t, p, err := c.loadTask(ctx, id)
	if err != nil {
		return v, err
	}
	if err := c.authorize(ctx, caller, taskTarget(&t, &p), authz.Read); err != nil {
		return v, err
	}
	return c.taskViewOne(ctx, t, p)
}

// CreateTask adds a task to a project the caller belongs to.
func (c *Coordinator) CreateTask(ctx context.Context, cred auth.Credential, in CreateTaskInput) (v models.TaskView, err error) {
	defer c.observe("create_task", time.Now(), &err)

	caller, err := c.authenticate(ctx, cred)
	if err != nil {
		return v, err
	}
	in.Title = normalize.Name(in.Title)
	in.Labels = normalize.List(in.Labels)
	if err := validate(in); err != nil {
		return v, err
	}

	p, err := c.loadProject(ctx, in.Project)
	if apperr.Is(err, apperr.NotFound) {
		return v, apperr.UnknownRef("project does not exist")
	}
	if err != nil {
		return v, err
	}
	if err := c.authorize(ctx, caller, taskTarget(nil, &p), authz.Create); err != nil {
		return v, err
	}

	t := models.Task{
		Title:          in.Title,
		Description:    htmlsanitize.Sanitize(in.Description),
		Status:         in.Status,
		Priority:       in.Priority,
		Type:           in.Type,
		ProjectID:      p.ID,
		ReporterID:     caller.ID,
		DueDate:        in.DueDate,
		EstimatedHours: in.EstimatedHours,
		Labels:         in.Labels,
		Comments:       []models.Comment{},
	}
	if t.Status == "" {
		t.Status = models.TaskTodo
	}
	if t.Priority == "" {
		t.Priority = models.PriorityMedium
	}
	if t.Type == "" {
		t.Type = models.TypeTask
	}
	if in.Assignee != "" {
		id, err := c.assignable(ctx, p, in.Assignee)
		if err != nil {
			return v, err
		}
		t.AssigneeID = &id
	}
	if in.Reporter != "" {
		id, err := c.memberRef(ctx, p, in.Reporter, "reporter", "Reporter")
		if err != nil {
			return v, err
		}
		t.ReporterID = id
	}

	sctx, cancel := c.writeCtx(ctx, "create task")
	defer cancel()
	created, err := c.tasks.Create(sctx, t)
	if err != nil {
		return v, storeErr(err, "task")
	}
	if err := c.confirmTaskRefs(ctx, created); err != nil {
		return v, err
	}
	return c.taskViewOne(ctx, created, p)
}

// confirmTaskRefs removes a just-created task whose project, reporter or
// assignee was deleted while it was being written.
func (c *Coordinator) confirmTaskRefs(ctx context.Context, t models.Task) error {
	revert := func(ctx context.Context) error {
		_, err := c.tasks.Delete(ctx, t.ID)
		return err
	}
	ok, err := c.projectExists(ctx, t.ProjectID)
	if err != nil {
		return err
	}
	if !ok {
		return c.undo(ctx, "create task", revert, apperr.UnknownRef("project does not exist"))
	}
	ids := []primitive.ObjectID{t.ReporterID}
	if t.AssigneeID != nil {
		ids = append(ids, *t.AssigneeID)
	}
	ok, err = c.usersExist(ctx, ids...)
	if err != nil {
		return err
	}
	if !ok {
		return c.undo(ctx, "create task", revert, apperr.UnknownRef("reporter or assignee does not exist"))
	}
	return nil
}

// taskUpdate converts input into a store update. The assignee is checked
// against p's membership.
func (c *Coordinator) taskUpdate(ctx context.Context, p models.Project, in UpdateTaskInput) (repo.TaskUpdate, []string, error) {
	upd := repo.TaskUpdate{
		Status:         in.Status,
		Priority:       in.Priority,
		Type:           in.Type,
		DueDate:        in.DueDate,
		ClearDueDate:   in.ClearDueDate,
		EstimatedHours: in.EstimatedHours,
		ActualHours:    in.ActualHours,
	}
	var changed []string
	if in.Title != nil {
		title := normalize.Name(*in.Title)
		if title == "" {
			return upd, nil, apperr.Invalidf("Title is required.")
		}
		upd.Title = &title
		changed = append(changed, "title")
	}
	if in.Description != nil {
		d := htmlsanitize.Sanitize(*in.Description)
		upd.Description = &d
		changed = append(changed, "description")
	}
	for _, f := range []struct {
		name string
		set  bool
	}{
		{"status", in.Status != nil},
		{"priority", in.Priority != nil},
		{"type", in.Type != nil},
		{"dueDate", in.DueDate != nil || in.ClearDueDate},
		{"estimatedHours", in.EstimatedHours != nil},
		{"actualHours", in.ActualHours != nil},
	} {
		if f.set {
			changed = append(changed, f.name)
		}
	}
	if in.Labels != nil {
		labels := normalize.List(*in.Labels)
		upd.Labels = &labels
		changed = append(changed, "labels")
	}
	if in.Assignee != nil {
		if *in.Assignee == "" {
			upd.ClearAssignee = true
		} else {
			id, err := c.assignable(ctx, p, *in.Assignee)
			if err != nil {
				return upd, nil, err
			}
			upd.AssigneeID = &id
		}
		changed = append(changed, "assignee")
	}
	return upd, changed, nil
}

func (c *Coordinator) applyTaskUpdate(ctx context.Context, t models.Task, p models.Project, in UpdateTaskInput) (models.Task, []string, error) {
	if err := validate(in); err != nil {
		return models.Task{}, nil, err
	}
	upd, changed, err := c.taskUpdate(ctx, p, in)
	if err != nil {
		return models.Task{}, nil, err
	}
	sctx, cancel := c.writeCtx(ctx, "update task")
	defer cancel()
	updated, err := c.tasks.Update(sctx, t.ID, upd)
	if err != nil {
		return models.Task{}, nil, storeErr(err, "task")
	}
	if upd.AssigneeID != nil {
		uid := *upd.AssigneeID
		ok, err := c.usersExist(ctx, uid)
		if err != nil {
			return models.Task{}, nil, err
		}
		if !ok {
			return models.Task{}, nil, c.undo(ctx, "assign task", func(ctx context.Context) error {
				_, err := c.tasks.ClearAssignee(ctx, uid)
				return err
			}, apperr.UnknownRef("assignee does not exist"))
		}
	}
	return updated, changed, nil
}

// UpdateTask edits a task. The assignee, the reporter, a project manager
// or an admin may update it; the project never changes.
func (c *Coordinator) UpdateTask(ctx context.Context, cred auth.Credential, id string, in UpdateTaskInput) (v models.TaskView, err error) {
	defer c.observe("update_task", time.Now(), &err)

	caller, err := c.authenticate(ctx, cred)
	if err != nil {
		return v, err
	}
	t, p, err := c.loadTask(ctx, id)
	if err != nil {
		return v, err
	}
	if err := c.authorize(ctx, caller, taskTarget(&t, &p), authz.Update); err != nil {
		return v, err
	}
	updated, _, err := c.applyTaskUpdate(ctx, t, p, in)
	if err != nil {
		return v, err
	}
	return c.taskViewOne(ctx, updated, p)
}

// DeleteTask removes a task.
func (c *Coordinator) DeleteTask(ctx context.Context, cred auth.Credential, id string) (err error) {
	defer c.observe("delete_task", time.Now(), &err)

	caller, err := c.authenticate(ctx, cred)
	if err != nil {
		return err
	}
	t, p, err := c.loadTask(ctx, id)
	if err != nil {
		return err
	}
	if err := c.authorize(ctx, caller, taskTarget(&t, &p), authz.Delete); err != nil {
		return err
	}
	return c.deleteTask(ctx, t)
}

func (c *Coordinator) deleteTask(ctx context.Context, t models.Task) error {
	sctx, cancel := c.writeCtx(ctx, "delete task")
	defer cancel()
	n, err := c.tasks.Delete(sctx, t.ID)
	if err != nil {
		return storeErr(err, "task")
	}
	if n == 0 {
		return apperr.NotFoundf("task not found")
	}
	return nil
}

// AddComment appends a comment by the caller. Comments cannot be edited
// or removed.
func (c *Coordinator) AddComment(ctx context.Context, cred auth.Credential, taskID string, in CommentInput) (v models.TaskView, err error) {
	defer c.observe("add_comment", time.Now(), &err)

	caller, err := c.authenticate(ctx, cred)
	if err != nil {
		return v, err
	}
	t, p, err := c.loadTask(ctx, taskID)
	if err != nil {
		return v, err
	}
	if err := c.authorize(ctx, caller, taskTarget(&t, &p), authz.Comment); err != nil {
		return v, err
	}
	in.Content = htmlsanitize.Sanitize(in.Content)
	if err := validate(in); err != nil {
		return v, err
	}

	now := c.now()
	sctx, cancel := c.writeCtx(ctx, "add comment")
	defer cancel()
	updated, err := c.tasks.AppendComment(sctx, t.ID, models.Comment{
		ID:        primitive.NewObjectID(),
		Content:   in.Content,
		AuthorID:  caller.ID,
		TaskID:    t.ID,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return v, storeErr(err, "task")
	}
	return c.taskViewOne(ctx, updated, p)
}
