package coordinator

import (
	"context"
	"strconv"
	"time"

	"github.com/dalemusser/trackhub/internal/app/store/repo"
	"github.com/dalemusser/trackhub/internal/app/system/apperr"
	"github.com/dalemusser/trackhub/internal/app/system/auth"
	"github.com/dalemusser/trackhub/internal/app/system/authz"
	"github.com/dalemusser/trackhub/internal/app/system/normalize"
	"github.com/dalemusser/trackhub/internal/domain/models"
	"golang.org/x/sync/errgroup"
)

// Recent item counts on the dashboard.
const (
	dashboardRecentUsers    = 5
	dashboardRecentProjects = 5
	dashboardRecentTasks    = 10
)

// AdminListUsers pages through every user, filtered by search and role.
func (c *Coordinator) AdminListUsers(ctx context.Context, cred auth.Credential, lp ListParams) (res PageResult[models.User], err error) {
	defer c.observe("admin_list_users", time.Now(), &err)

	if _, err := c.admin(ctx, cred, authz.List); err != nil {
		return res, err
	}
	if err := validate(lp); err != nil {
		return res, err
	}
	pg := lp.paging()
	sctx, cancel := c.writeCtx(ctx, "admin list users")
	defer cancel()
	page, err := c.users.List(sctx, repo.ListQuery{Search: lp.Search, Role: lp.Role, Offset: pg.Offset(), Limit: pg.Limit})
	if err != nil {
		return res, storeErr(err, "user")
	}
	return PageResult[models.User]{Items: page.Items, Pagination: pg.InfoFor(page.Total)}, nil
}

func (c *Coordinator) loadUser(ctx context.Context, hex string) (models.User, error) {
	id, err := parseID(hex, "user")
	if err != nil {
		return models.User{}, err
	}
	sctx, cancel := c.storeCtx(ctx, "load user")
	defer cancel()
	u, err := c.users.GetByID(sctx, id)
	if err != nil {
		return models.User{}, storeErr(err, "user")
	}
	return u, nil
}

// AdminUpdateUser edits another user's name, email, role or active flag.
// An admin cannot deactivate or demote themselves.
func (c *Coordinator) AdminUpdateUser(ctx context.Context, cred auth.Credential, id string, in AdminUserInput) (u models.User, err error) {
	defer c.observe("admin_update_user", time.Now(), &err)

	caller, err := c.admin(ctx, cred, authz.Update)
	if err != nil {
		return u, err
	}
	target, err := c.loadUser(ctx, id)
	if err != nil {
		return u, err
	}
	t := authz.Target{
		Resource:   authz.ResourceUser,
		UserID:     target.ID,
		Deactivate: in.IsActive != nil && !*in.IsActive,
		Demote:     in.Role != nil && *in.Role != models.RoleAdmin && target.IsAdmin(),
	}
	if err := c.authorize(ctx, caller, t, authz.UpdateAny); err != nil {
		return u, err
	}

	upd := repo.UserUpdate{Role: in.Role, IsActive: in.IsActive}
	var changed []string
	if in.Name != nil {
		n := normalize.Name(*in.Name)
		in.Name, upd.Name = &n, &n
		changed = append(changed, "name")
	}
	if in.Email != nil {
		e := normalize.Email(*in.Email)
		in.Email, upd.Email = &e, &e
		changed = append(changed, "email")
	}
	if in.Role != nil {
		changed = append(changed, "role")
	}
	if in.IsActive != nil {
		changed = append(changed, "isActive")
	}
	if err := validate(in); err != nil {
		return u, err
	}

	sctx, cancel := c.writeCtx(ctx, "admin update user")
	defer cancel()
	u, err = c.users.Update(sctx, target.ID, upd)
	if err != nil {
		return u, storeErr(err, "user")
	}
	c.audit.UserUpdated(ctx, caller.ID, target.ID, changed)
	return u, nil
}

// AdminDeleteUser removes a user after detaching them from projects and
// tasks. Their projects and reported tasks go to the configured successor.
func (c *Coordinator) AdminDeleteUser(ctx context.Context, cred auth.Credential, id string) (err error) {
	defer c.observe("admin_delete_user", time.Now(), &err)

	caller, err := c.admin(ctx, cred, authz.Delete)
	if err != nil {
		return err
	}
	target, err := c.loadUser(ctx, id)
	if err != nil {
		return err
	}
	if err := c.authorize(ctx, caller, authz.Target{Resource: authz.ResourceUser, UserID: target.ID}, authz.Delete); err != nil {
		return err
	}

	successor := caller.ID
	if c.cfg.ReporterSuccessor == SuccessorSystem && !c.cfg.SystemUserID.IsZero() {
		successor = c.cfg.SystemUserID
	}
	if target.ID == successor {
		return apperr.Invalidf("This account receives the projects and tasks of deleted users and cannot be deleted.")
	}
	plan := userDeletePlan(c.users, c.projects, c.tasks, target.ID, successor)
	res, err := c.runPlan(ctx, caller, plan, "user", target.ID)
	if err != nil {
		return err
	}
	if res.Count(stepDeleteUser) == 0 {
		return apperr.NotFoundf("user not found")
	}
	c.audit.UserDeleted(ctx, caller.ID, target.ID, map[string]string{
		"email":                target.Email,
		"successor_id":         successor.Hex(),
		"projects_transferred": strconv.FormatInt(res.Count(stepTransferOwnership), 10),
		"projects_left":        strconv.FormatInt(res.Count(stepPullMemberships), 10),
		"tasks_unassigned":     strconv.FormatInt(res.Count(stepClearAssignee), 10),
		"tasks_reassigned":     strconv.FormatInt(res.Count(stepReassignReporter), 10),
	})
	return nil
}

// AdminListProjects pages through every project, filtered by search and
// status.
func (c *Coordinator) AdminListProjects(ctx context.Context, cred auth.Credential, lp ListParams) (res PageResult[models.ProjectView], err error) {
	defer c.observe("admin_list_projects", time.Now(), &err)

	if _, err := c.admin(ctx, cred, authz.List); err != nil {
		return res, err
	}
	if err := validate(lp); err != nil {
		return res, err
	}
	if err := validProjectStatus(lp.Status); err != nil {
		return res, err
	}
	pg := lp.paging()
	sctx, cancel := c.writeCtx(ctx, "admin list projects")
	defer cancel()
	page, err := c.projects.List(sctx, repo.ListQuery{Search: lp.Search, Status: lp.Status, Offset: pg.Offset(), Limit: pg.Limit})
	if err != nil {
		return res, storeErr(err, "project")
	}
	views, err := c.projectViews(ctx, page.Items)
	if err != nil {
		return res, err
	}
	return PageResult[models.ProjectView]{Items: views, Pagination: pg.InfoFor(page.Total)}, nil
}

// AdminUpdateProject edits any project.
func (c *Coordinator) AdminUpdateProject(ctx context.Context, cred auth.Credential, id string, in UpdateProjectInput) (v models.ProjectView, err error) {
	defer c.observe("admin_update_project", time.Now(), &err)

	caller, err := c.admin(ctx, cred, authz.Update)
	if err != nil {
		return v, err
	}
	p, err := c.loadProject(ctx, id)
	if err != nil {
		return v, err
	}
	updated, changed, err := c.applyProjectUpdate(ctx, p, in)
	if err != nil {
		return v, err
	}
	c.audit.ProjectUpdated(ctx, caller.ID, p.ID, changed)
	return c.projectViewOne(ctx, updated)
}

// AdminDeleteProject removes any project and its tasks.
func (c *Coordinator) AdminDeleteProject(ctx context.Context, cred auth.Credential, id string) (err error) {
	defer c.observe("admin_delete_project", time.Now(), &err)

	caller, err := c.admin(ctx, cred, authz.Delete)
	if err != nil {
		return err
	}
	p, err := c.loadProject(ctx, id)
	if err != nil {
		return err
	}
	return c.deleteProject(ctx, caller, p)
}

// AdminListTasks pages through every task, filtered by status, priority,
// type and search.
func (c *Coordinator) AdminListTasks(ctx context.Context, cred auth.Credential, lp ListParams) (res PageResult[models.TaskView], err error) {
	defer c.observe("admin_list_tasks", time.Now(), &err)

	if _, err := c.admin(ctx, cred, authz.List); err != nil {
		return res, err
	}
	if err := validate(lp); err != nil {
		return res, err
	}
	if err := validTaskStatus(lp.Status); err != nil {
		return res, err
	}
	pg := lp.paging()
	sctx, cancel := c.writeCtx(ctx, "admin list tasks")
	defer cancel()
	page, err := c.tasks.List(sctx, repo.ListQuery{
		Search:   lp.Search,
		Status:   lp.Status,
		Priority: lp.Priority,
		Type:     lp.Type,
		Offset:   pg.Offset(),
		Limit:    pg.Limit,
	})
	if err != nil {
		return res, storeErr(err, "task")
	}
	views, err := c.taskViews(ctx, page.Items)
	if err != nil {
		return res, err
	}
	return PageResult[models.TaskView]{Items: views, Pagination: pg.InfoFor(page.Total)}, nil
}

// AdminUpdateTask edits any task.
func (c *Coordinator) AdminUpdateTask(ctx context.Context, cred auth.Credential, id string, in UpdateTaskInput) (v models.TaskView, err error) {
	defer c.observe("admin_update_task", time.Now(), &err)

	caller, err := c.admin(ctx, cred, authz.Update)
	if err != nil {
		return v, err
	}
	t, p, err := c.loadTask(ctx, id)
	if err != nil {
		return v, err
	}
	updated, changed, err := c.applyTaskUpdate(ctx, t, p, in)
	if err != nil {
		return v, err
	}
	c.audit.TaskUpdated(ctx, caller.ID, t.ID, changed)
	return c.taskViewOne(ctx, updated, p)
}

// AdminDeleteTask removes any task.
func (c *Coordinator) AdminDeleteTask(ctx context.Context, cred auth.Credential, id string) (err error) {
	defer c.observe("admin_delete_task", time.Now(), &err)

	caller, err := c.admin(ctx, cred, authz.Delete)
	if err != nil {
		return err
	}
	t, _, err := c.loadTask(ctx, id)
	if err != nil {
		return err
	}
	if err := c.deleteTask(ctx, t); err != nil {
		return err
	}
	c.audit.TaskDeleted(ctx, caller.ID, t.ID, t.ProjectID)
	return nil
}

// AdminDashboard gathers site-wide counts and the newest users, projects
// and tasks. The queries run concurrently.
func (c *Coordinator) AdminDashboard(ctx context.Context, cred auth.Credential) (d models.Dashboard, err error) {
	defer c.observe("admin_dashboard", time.Now(), &err)

	if _, err := c.admin(ctx, cred, authz.Dashboard); err != nil {
		return d, err
	}

	now := c.now()
	var recentTasks []models.Task
	g, gctx := errgroup.WithContext(ctx)
	run := func(op string, fn func(ctx context.Context) error) {
		g.Go(func() error {
			sctx, cancel := c.writeCtx(gctx, op)
			defer cancel()
			return fn(sctx)
		})
	}

	run("count users", func(ctx context.Context) (err error) {
		d.TotalUsers, err = c.users.Count(ctx, "")
		return err
	})
	run("count admins", func(ctx context.Context) (err error) {
		d.AdminUsers, err = c.users.Count(ctx, models.RoleAdmin)
		return err
	})
	run("count projects", func(ctx context.Context) (err error) {
		d.TotalProjects, err = c.projects.Count(ctx)
		return err
	})
	run("count tasks", func(ctx context.Context) (err error) {
		d.TotalTasks, err = c.tasks.Count(ctx, repo.TaskCount{})
		return err
	})
	run("count completed tasks", func(ctx context.Context) (err error) {
		d.CompletedTasks, err = c.tasks.Count(ctx, repo.TaskCount{Status: models.TaskDone})
		return err
	})
	run("count overdue tasks", func(ctx context.Context) (err error) {
		d.OverdueTasks, err = c.tasks.Count(ctx, repo.TaskCount{OverdueAt: &now})
		return err
	})
	run("recent users", func(ctx context.Context) error {
		page, err := c.users.List(ctx, repo.ListQuery{Limit: dashboardRecentUsers})
		d.RecentUsers = page.Items
		return err
	})
	run("recent projects", func(ctx context.Context) error {
		page, err := c.projects.List(ctx, repo.ListQuery{Limit: dashboardRecentProjects})
		d.RecentProjects = page.Items
		return err
	})
	run("recent tasks", func(ctx context.Context) error {
		page, err := c.tasks.List(ctx, repo.ListQuery{Limit: dashboardRecentTasks})
		recentTasks = page.Items
		return err
	})
	if err := g.Wait(); err != nil {
		return models.Dashboard{}, storeErr(err, "dashboard")
	}

	if d.RecentUsers == nil {
		d.RecentUsers = []models.User{}
	}
	if d.RecentProjects == nil {
		d.RecentProjects = []models.Project{}
	}
	d.RecentTasks, err = c.taskViews(ctx, recentTasks)
	if err != nil {
		return models.Dashboard{}, err
	}
	return d, nil
}
