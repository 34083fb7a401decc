package coordinator

import (
	"context"
	"errors"
	"testing"

	"github.com/dalemusser/trackhub/internal/app/store/memory"
	"github.com/dalemusser/trackhub/internal/app/store/repo"
	"github.com/dalemusser/trackhub/internal/app/system/apperr"
	"github.com/dalemusser/trackhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// racingTasks runs a hook right after a task write lands, standing in for
// a delete that commits between the reference check and the write.
type racingTasks struct {
	repo.Tasks
	after func(ctx context.Context, t models.Task)
}

func (r *racingTasks) Create(ctx context.Context, t models.Task) (models.Task, error) {
	created, err := r.Tasks.Create(ctx, t)
	if err == nil && r.after != nil {
		r.after(ctx, created)
	}
	return created, err
}

func (r *racingTasks) Update(ctx context.Context, id primitive.ObjectID, upd repo.TaskUpdate) (models.Task, error) {
	updated, err := r.Tasks.Update(ctx, id, upd)
	if err == nil && r.after != nil {
		r.after(ctx, updated)
	}
	return updated, err
}

type racingProjects struct {
	repo.Projects
	after func(ctx context.Context, p models.Project)
}

func (r *racingProjects) Create(ctx context.Context, p models.Project) (models.Project, error) {
	created, err := r.Projects.Create(ctx, p)
	if err == nil && r.after != nil {
		r.after(ctx, created)
	}
	return created, err
}

func (r *racingProjects) PutMember(ctx context.Context, id primitive.ObjectID, m models.Member) (models.Project, error) {
	updated, err := r.Projects.PutMember(ctx, id, m)
	if err == nil && r.after != nil {
		r.after(ctx, updated)
	}
	return updated, err
}

func racingEnv(t *testing.T) (*testEnv, *racingTasks, *racingProjects) {
	st := memory.New().Stores()
	rt := &racingTasks{Tasks: st.Tasks}
	rp := &racingProjects{Projects: st.Projects}
	st.Tasks, st.Projects = rt, rp
	return newEnvWith(t, st, Config{}), rt, rp
}

func (e *testEnv) deleteUser(t *testing.T, id primitive.ObjectID) func(context.Context) {
	return func(ctx context.Context) {
		if _, err := e.stores.Users.Delete(ctx, id); err != nil {
			t.Errorf("delete user: %v", err)
		}
	}
}

func TestCreateTask_ProjectDeletedDuringWrite(t *testing.T) {
	env, rt, rp := racingEnv(t)
	ctx := context.Background()
	ann := env.register(t, "Ann", "ann@example.com")
	p := env.project(t, ann, "Alpha")

	var created primitive.ObjectID
	rt.after = func(ctx context.Context, task models.Task) {
		created = task.ID
		if _, err := rp.Projects.Delete(ctx, task.ProjectID); err != nil {
			t.Errorf("delete project: %v", err)
		}
	}
	_, err := env.c.CreateTask(ctx, ann.Credential, CreateTaskInput{Title: "orphan", Project: p.ID.Hex()})
	if !apperr.IsSub(err, apperr.UnknownReference) {
		t.Fatalf("err = %v, want UnknownReference", err)
	}
	if _, err := env.stores.Tasks.GetByID(ctx, created); !errors.Is(err, repo.ErrNotFound) {
		t.Errorf("orphan task still stored: %v", err)
	}
}

func TestCreateTask_AssigneeDeletedDuringWrite(t *testing.T) {
	env, rt, _ := racingEnv(t)
	ctx := context.Background()
	ann := env.register(t, "Ann", "ann@example.com")
	bob := env.register(t, "Bob", "bob@example.com")
	p := env.project(t, ann, "Alpha")
	env.addMember(t, ann, p, bob)

	var created primitive.ObjectID
	del := env.deleteUser(t, bob.User.ID)
	rt.after = func(ctx context.Context, task models.Task) {
		created = task.ID
		del(ctx)
	}
	_, err := env.c.CreateTask(ctx, ann.Credential, CreateTaskInput{Title: "x", Project: p.ID.Hex(), Assignee: bob.User.ID.Hex()})
	if !apperr.IsSub(err, apperr.UnknownReference) {
		t.Fatalf("err = %v, want UnknownReference", err)
	}
	if _, err := env.stores.Tasks.GetByID(ctx, created); !errors.Is(err, repo.ErrNotFound) {
		t.Errorf("task naming a deleted assignee still stored: %v", err)
	}
}

func TestUpdateTask_AssigneeDeletedDuringWrite(t *testing.T) {
	env, rt, _ := racingEnv(t)
	ctx := context.Background()
	ann := env.register(t, "Ann", "ann@example.com")
	bob := env.register(t, "Bob", "bob@example.com")
	p := env.project(t, ann, "Alpha")
	env.addMember(t, ann, p, bob)
	task := env.task(t, ann, p, "x")

	rt.after = func(ctx context.Context, _ models.Task) { env.deleteUser(t, bob.User.ID)(ctx) }
	assignee := bob.User.ID.Hex()
	_, err := env.c.UpdateTask(ctx, ann.Credential, task.ID.Hex(), UpdateTaskInput{Assignee: &assignee})
	if !apperr.IsSub(err, apperr.UnknownReference) {
		t.Fatalf("err = %v, want UnknownReference", err)
	}
	got, err := env.stores.Tasks.GetByID(ctx, task.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.AssigneeID != nil {
		t.Errorf("AssigneeID = %s, want cleared", got.AssigneeID.Hex())
	}
}

func TestAddMember_UserDeletedDuringWrite(t *testing.T) {
	env, _, rp := racingEnv(t)
	ctx := context.Background()
	ann := env.register(t, "Ann", "ann@example.com")
	bob := env.register(t, "Bob", "bob@example.com")
	p := env.project(t, ann, "Alpha")

	rp.after = func(ctx context.Context, _ models.Project) { env.deleteUser(t, bob.User.ID)(ctx) }
	_, err := env.c.AddMember(ctx, ann.Credential, p.ID.Hex(), AddMemberInput{UserID: bob.User.ID.Hex()})
	if !apperr.IsSub(err, apperr.UnknownReference) {
		t.Fatalf("err = %v, want UnknownReference", err)
	}
	stored, _ := env.stores.Projects.GetByID(ctx, p.ID)
	if stored.HasMember(bob.User.ID) {
		t.Error("deleted user left in the member list")
	}
}

func TestCreateProject_OwnerDeletedDuringWrite(t *testing.T) {
	env, _, rp := racingEnv(t)
	ctx := context.Background()
	ann := env.register(t, "Ann", "ann@example.com")

	var created primitive.ObjectID
	del := env.deleteUser(t, ann.User.ID)
	rp.after = func(ctx context.Context, p models.Project) {
		created = p.ID
		del(ctx)
	}
	_, err := env.c.CreateProject(ctx, ann.Credential, CreateProjectInput{Name: "Alpha"})
	if !apperr.Is(err, apperr.Unauthenticated) {
		t.Fatalf("err = %v, want Unauthenticated", err)
	}
	if _, err := env.stores.Projects.GetByID(ctx, created); !errors.Is(err, repo.ErrNotFound) {
		t.Errorf("project owned by a deleted user still stored: %v", err)
	}
}
