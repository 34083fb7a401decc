package coordinator

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/trackhub/internal/app/store/repo"
	"github.com/dalemusser/trackhub/internal/app/system/apperr"
	"github.com/dalemusser/trackhub/internal/app/system/auth"
	"github.com/dalemusser/trackhub/internal/app/system/authz"
	"github.com/dalemusser/trackhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/trackhub/internal/app/system/normalize"
	"github.com/dalemusser/trackhub/internal/domain/models"
	"github.com/dalemusser/trackhub/internal/domain/projectkey"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func projectTarget(p *models.Project) authz.Target {
	return authz.Target{Resource: authz.ResourceProject, Project: p}
}

func (c *Coordinator) loadProject(ctx context.Context, hex string) (models.Project, error) {
	id, err := parseID(hex, "project")
	if err != nil {
		return models.Project{}, err
	}
	sctx, cancel := c.storeCtx(ctx, "load project")
	defer cancel()
	p, err := c.projects.GetByID(sctx, id)
	if err != nil {
		return models.Project{}, storeErr(err, "project")
	}
	return p, nil
}

func validProjectStatus(s string) error {
	if s != "" && !models.OneOf(s, models.ProjectStatuses) {
		return apperr.Invalidf("Status must be one of: %s.", strings.Join(models.ProjectStatuses, ", "))
	}
	return nil
}

// ListProjects pages through the projects the caller owns or belongs to.
func (c *Coordinator) ListProjects(ctx context.Context, cred auth.Credential, lp ListParams) (res PageResult[models.ProjectView], err error) {
	defer c.observe("list_projects", time.Now(), &err)

	caller, err := c.authenticate(ctx, cred)
	if err != nil {
		return res, err
	}
	if err := validate(lp); err != nil {
		return res, err
	}
	if err := validProjectStatus(lp.Status); err != nil {
		return res, err
	}
	pg := lp.paging()

	sctx, cancel := c.writeCtx(ctx, "list projects")
	defer cancel()
	page, err := c.projects.List(sctx, repo.ListQuery{
		Search:   lp.Search,
		Status:   lp.Status,
		MemberOf: &caller.ID,
		Offset:   pg.Offset(),
		Limit:    pg.Limit,
	})
	if err != nil {
		return res, storeErr(err, "project")
	}
	views, err := c.projectViews(ctx, page.Items)
	if err != nil {
		return res, err
	}
	return PageResult[models.ProjectView]{Items: views, Pagination: pg.InfoFor(page.Total)}, nil
}

// GetProject returns one project the caller may read.
func (c *Coordinator) GetProject(ctx context.Context, cred auth.Credential, id string) (v models.ProjectView, err error) {
	defer c.observe("get_project", time.Now(), &err)

	caller, err := c.authenticate(ctx, cred)
	if err != nil {
		return v, err
	}
	p, err := c.loadProject(ctx, id)
	if err != nil {
		return v, err
	}
	if err := c.authorize(ctx, caller, projectTarget(&p), authz.Read); err != nil {
		return v, err
	}
	return c.projectViewOne(ctx, p)
}

// CreateProject stores a new project owned by the caller. An empty key is
// derived from the name. A taken key fails with DuplicateKey; choosing a
// suffixed key is left to the caller.
func (c *Coordinator) CreateProject(ctx context.Context, cred auth.Credential, in CreateProjectInput) (v models.ProjectView, err error) {
	defer c.observe("create_project", time.Now(), &err)

	caller, err := c.authenticate(ctx, cred)
	if err != nil {
		return v, err
	}
	if err := c.authorize(ctx, caller, authz.Target{Resource: authz.ResourceProject}, authz.Create); err != nil {
		return v, err
	}

	in.Name = normalize.Name(in.Name)
	in.Key = projectkey.Resolve(in.Key, in.Name)
	in.Tags = normalize.List(in.Tags)
	if err := validate(in); err != nil {
		return v, err
	}
	if in.Status == "" {
		in.Status = models.ProjectActive
	}
	if in.Visibility == "" {
		in.Visibility = models.VisibilityPrivate
	}

	now := c.now()
	sctx, cancel := c.writeCtx(ctx, "create project")
	defer cancel()
	p, err := c.projects.Create(sctx, models.Project{
		Key:         in.Key,
		Name:        in.Name,
		Description: htmlsanitize.Sanitize(in.Description),
		Status:      in.Status,
		Visibility:  in.Visibility,
		Tags:        in.Tags,
		OwnerID:     caller.ID,
		Members:     []models.Member{{UserID: caller.ID, Role: models.MemberManager, JoinedAt: now}},
	})
	if err != nil {
		return v, storeErr(err, "project")
	}
	// The owner may have been deleted after authenticating.
	ok, err := c.usersExist(ctx, caller.ID)
	if err != nil {
		return v, err
	}
	if !ok {
		return v, c.undo(ctx, "create project", func(ctx context.Context) error {
			_, err := c.projects.Delete(ctx, p.ID)
			return err
		}, apperr.ErrInvalidCredential)
	}
	return c.projectViewOne(ctx, p)
}

func projectUpdate(in UpdateProjectInput) (repo.ProjectUpdate, []string) {
	upd := repo.ProjectUpdate{}
	var changed []string
	if in.Key != nil {
		upd.Key = in.Key
		changed = append(changed, "key")
	}
	if in.Name != nil {
		upd.Name = in.Name
		changed = append(changed, "name")
	}
	if in.Description != nil {
		d := htmlsanitize.Sanitize(*in.Description)
		upd.Description = &d
		changed = append(changed, "description")
	}
	if in.Status != nil {
		upd.Status = in.Status
		changed = append(changed, "status")
	}
	if in.Visibility != nil {
		upd.Visibility = in.Visibility
		changed = append(changed, "visibility")
	}
	if in.Tags != nil {
		tags := normalize.List(*in.Tags)
		upd.Tags = &tags
		changed = append(changed, "tags")
	}
	return upd, changed
}

// normalizeProjectInput uppercases the key before validation and the
// uniqueness check.
func normalizeProjectInput(in *UpdateProjectInput) {
	if in.Key != nil {
		k := projectkey.Normalize(*in.Key)
		in.Key = &k
	}
	if in.Name != nil {
		n := normalize.Name(*in.Name)
		in.Name = &n
	}
}

func (c *Coordinator) applyProjectUpdate(ctx context.Context, p models.Project, in UpdateProjectInput) (models.Project, []string, error) {
	normalizeProjectInput(&in)
	if err := validate(in); err != nil {
		return models.Project{}, nil, err
	}
	upd, changed := projectUpdate(in)
	sctx, cancel := c.writeCtx(ctx, "update project")
	defer cancel()
	updated, err := c.projects.Update(sctx, p.ID, upd)
	if err != nil {
		return models.Project{}, nil, storeErr(err, "project")
	}
	return updated, changed, nil
}

// UpdateProject edits a project's fields. Owner or admin only.
func (c *Coordinator) UpdateProject(ctx context.Context, cred auth.Credential, id string, in UpdateProjectInput) (v models.ProjectView, err error) {
	defer c.observe("update_project", time.Now(), &err)

	caller, err := c.authenticate(ctx, cred)
	if err != nil {
		return v, err
	}
	p, err := c.loadProject(ctx, id)
	if err != nil {
		return v, err
	}
	if err := c.authorize(ctx, caller, projectTarget(&p), authz.Update); err != nil {
		return v, err
	}
	updated, _, err := c.applyProjectUpdate(ctx, p, in)
	if err != nil {
		return v, err
	}
	return c.projectViewOne(ctx, updated)
}

// DeleteProject removes a project and its tasks. Owner or admin only.
func (c *Coordinator) DeleteProject(ctx context.Context, cred auth.Credential, id string) (err error) {
	defer c.observe("delete_project", time.Now(), &err)

	caller, err := c.authenticate(ctx, cred)
	if err != nil {
		return err
	}
	p, err := c.loadProject(ctx, id)
	if err != nil {
		return err
	}
	if err := c.authorize(ctx, caller, projectTarget(&p), authz.Delete); err != nil {
		return err
	}
	return c.deleteProject(ctx, caller, p)
}

func (c *Coordinator) deleteProject(ctx context.Context, caller models.User, p models.Project) error {
	plan := projectDeletePlan(c.tasks, c.projects, p.ID)
	res, err := c.runPlan(ctx, caller, plan, "project", p.ID)
	if err != nil {
		return err
	}
	if res.Count(stepDeleteProject) == 0 {
		// Someone else removed it between load and delete.
		return apperr.NotFoundf("project not found")
	}
	c.audit.ProjectDeleted(ctx, caller.ID, p.ID, p.Key, res.Count(stepDeleteTasks)+res.Count(stepSweepTasks))
	return nil
}

// AddMember adds a user to a project, by id or by email. Owner or admin
// only. Adding an existing member changes their role.
func (c *Coordinator) AddMember(ctx context.Context, cred auth.Credential, projectID string, in AddMemberInput) (v models.ProjectView, err error) {
	defer c.observe("add_member", time.Now(), &err)

	caller, err := c.authenticate(ctx, cred)
	if err != nil {
		return v, err
	}
	p, err := c.loadProject(ctx, projectID)
	if err != nil {
		return v, err
	}
	if err := c.authorize(ctx, caller, projectTarget(&p), authz.ManageMembers); err != nil {
		return v, err
	}
	in.Email = normalize.Email(in.Email)
	if err := validate(in); err != nil {
		return v, err
	}
	if in.UserID == "" && in.Email == "" {
		return v, apperr.Invalidf("User or Email is required.")
	}
	if in.Role == "" {
		in.Role = models.MemberMember
	}

	u, err := c.findMemberCandidate(ctx, in)
	if err != nil {
		return v, err
	}
	sctx, cancel := c.writeCtx(ctx, "add member")
	defer cancel()
	updated, err := c.projects.PutMember(sctx, p.ID, models.Member{UserID: u.ID, Role: in.Role, JoinedAt: c.now()})
	if errors.Is(err, repo.ErrOwnerMember) {
		return v, apperr.Invalidf("The project owner is always a manager.")
	}
	if err != nil {
		return v, storeErr(err, "project")
	}
	ok, err := c.usersExist(ctx, u.ID)
	if err != nil {
		return v, err
	}
	if !ok {
		return v, c.undo(ctx, "add member", func(ctx context.Context) error {
			_, err := c.projects.RemoveMember(ctx, p.ID, u.ID)
			if errors.Is(err, repo.ErrNotMember) {
				return nil
			}
			return err
		}, apperr.UnknownRef("user does not exist"))
	}
	c.audit.MemberAdded(ctx, caller.ID, u.ID, p.ID, in.Role)
	return c.projectViewOne(ctx, updated)
}

func (c *Coordinator) findMemberCandidate(ctx context.Context, in AddMemberInput) (models.User, error) {
	sctx, cancel := c.storeCtx(ctx, "find member")
	defer cancel()
	var (
		u   models.User
		err error
	)
	if in.UserID != "" {
		id, _ := primitive.ObjectIDFromHex(in.UserID)
		u, err = c.users.GetByID(sctx, id)
	} else {
		u, err = c.users.GetByEmail(sctx, in.Email)
	}
	if errors.Is(err, repo.ErrNotFound) {
		return models.User{}, apperr.UnknownRef("user does not exist")
	}
	if err != nil {
		return models.User{}, storeErr(err, "user")
	}
	return u, nil
}

// RemoveMember takes a user off a project. The owner cannot be removed.
func (c *Coordinator) RemoveMember(ctx context.Context, cred auth.Credential, projectID, userID string) (v models.ProjectView, err error) {
	defer c.observe("remove_member", time.Now(), &err)

	caller, err := c.authenticate(ctx, cred)
	if err != nil {
		return v, err
	}
	p, err := c.loadProject(ctx, projectID)
	if err != nil {
		return v, err
	}
	if err := c.authorize(ctx, caller, projectTarget(&p), authz.ManageMembers); err != nil {
		return v, err
	}
	uid, err := parseID(userID, "member")
	if err != nil {
		return v, err
	}
	sctx, cancel := c.writeCtx(ctx, "remove member")
	defer cancel()
	updated, err := c.projects.RemoveMember(sctx, p.ID, uid)
	switch {
	case errors.Is(err, repo.ErrOwnerMember):
		return v, apperr.Invalidf("The project owner cannot be removed.")
	case errors.Is(err, repo.ErrNotMember):
		return v, apperr.NotFoundf("member not found")
	case err != nil:
		return v, storeErr(err, "project")
	}
	c.audit.MemberRemoved(ctx, caller.ID, uid, p.ID)
	return c.projectViewOne(ctx, updated)
}
