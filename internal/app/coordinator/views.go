package coordinator

import (
	"context"
	"errors"

	"github.com/dalemusser/trackhub/internal/app/store/repo"
	"github.com/dalemusser/trackhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// userIndex resolves user ids to refs. Ids with no stored user resolve to
// a ref carrying only the id.
type userIndex map[primitive.ObjectID]models.UserRef

func (ix userIndex) ref(id primitive.ObjectID) models.UserRef {
	if r, ok := ix[id]; ok {
		return r
	}
	return models.UserRef{ID: id}
}

func (c *Coordinator) loadUsers(ctx context.Context, ids map[primitive.ObjectID]struct{}) (userIndex, error) {
	ix := userIndex{}
	if len(ids) == 0 {
		return ix, nil
	}
	list := make([]primitive.ObjectID, 0, len(ids))
	for id := range ids {
		list = append(list, id)
	}
	sctx, cancel := c.writeCtx(ctx, "resolve users")
	defer cancel()
	users, err := c.users.GetMany(sctx, list)
	if err != nil {
		return nil, storeErr(err, "user")
	}
	for _, u := range users {
		ix[u.ID] = u.Ref()
	}
	return ix, nil
}

func projectUserIDs(ids map[primitive.ObjectID]struct{}, p models.Project) {
	ids[p.OwnerID] = struct{}{}
	for _, m := range p.Members {
		ids[m.UserID] = struct{}{}
	}
}

func taskUserIDs(ids map[primitive.ObjectID]struct{}, t models.Task) {
	ids[t.ReporterID] = struct{}{}
	if t.AssigneeID != nil {
		ids[*t.AssigneeID] = struct{}{}
	}
	for _, cm := range t.Comments {
		ids[cm.AuthorID] = struct{}{}
	}
}

func projectView(p models.Project, ix userIndex) models.ProjectView {
	members := make([]models.MemberView, 0, len(p.Members))
	for _, m := range p.Members {
		members = append(members, models.MemberView{User: ix.ref(m.UserID), Role: m.Role, JoinedAt: m.JoinedAt})
	}
	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}
	return models.ProjectView{
		ID:          p.ID,
		Key:         p.Key,
		Name:        p.Name,
		Description: p.Description,
		Status:      p.Status,
		Visibility:  p.Visibility,
		Tags:        tags,
		Owner:       ix.ref(p.OwnerID),
		Members:     members,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func taskView(t models.Task, project models.ProjectRef, ix userIndex) models.TaskView {
	v := models.TaskView{
		ID:             t.ID,
		Title:          t.Title,
		Description:    t.Description,
		Status:         t.Status,
		Priority:       t.Priority,
		Type:           t.Type,
		Project:        project,
		Reporter:       ix.ref(t.ReporterID),
		DueDate:        t.DueDate,
		EstimatedHours: t.EstimatedHours,
		ActualHours:    t.ActualHours,
		Labels:         t.Labels,
		Comments:       make([]models.CommentView, 0, len(t.Comments)),
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
	if v.Labels == nil {
		v.Labels = []string{}
	}
	if t.AssigneeID != nil {
		r := ix.ref(*t.AssigneeID)
		v.Assignee = &r
	}
	for _, cm := range t.Comments {
		v.Comments = append(v.Comments, models.CommentView{
			ID:        cm.ID,
			Content:   cm.Content,
			Author:    ix.ref(cm.AuthorID),
			CreatedAt: cm.CreatedAt,
			UpdatedAt: cm.UpdatedAt,
		})
	}
	return v
}

// projectViews denormalizes projects with one user lookup.
func (c *Coordinator) projectViews(ctx context.Context, ps []models.Project) ([]models.ProjectView, error) {
	ids := map[primitive.ObjectID]struct{}{}
	for _, p := range ps {
		projectUserIDs(ids, p)
	}
	ix, err := c.loadUsers(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]models.ProjectView, 0, len(ps))
	for _, p := range ps {
		out = append(out, projectView(p, ix))
	}
	return out, nil
}

// taskViews denormalizes tasks. known supplies projects already loaded;
// the rest are fetched. Tasks whose project has vanished get a ref with
// only the id.
func (c *Coordinator) taskViews(ctx context.Context, ts []models.Task, known ...models.Project) ([]models.TaskView, error) {
	refs := map[primitive.ObjectID]models.ProjectRef{}
	for _, p := range known {
		refs[p.ID] = p.Ref()
	}
	ids := map[primitive.ObjectID]struct{}{}
	for _, t := range ts {
		taskUserIDs(ids, t)
		if _, ok := refs[t.ProjectID]; ok {
			continue
		}
		sctx, cancel := c.storeCtx(ctx, "resolve project")
		p, err := c.projects.GetByID(sctx, t.ProjectID)
		cancel()
		switch {
		case err == nil:
			refs[p.ID] = p.Ref()
		case errors.Is(err, repo.ErrNotFound):
			refs[t.ProjectID] = models.ProjectRef{ID: t.ProjectID}
		default:
			return nil, storeErr(err, "project")
		}
	}
	ix, err := c.loadUsers(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]models.TaskView, 0, len(ts))
	for _, t := range ts {
		out = append(out, taskView(t, refs[t.ProjectID], ix))
	}
	return out, nil
}

func (c *Coordinator) taskViewOne(ctx context.Context, t models.Task, p models.Project) (models.TaskView, error) {
	vs, err := c.taskViews(ctx, []models.Task{t}, p)
	if err != nil {
		return models.TaskView{}, err
	}
	return vs[0], nil
}

func (c *Coordinator) projectViewOne(ctx context.Context, p models.Project) (models.ProjectView, error) {
	vs, err := c.projectViews(ctx, []models.Project{p})
	if err != nil {
		return models.ProjectView{}, err
	}
	return vs[0], nil
}
