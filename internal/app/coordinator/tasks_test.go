package coordinator

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/dalemusser/trackhub/internal/app/system/apperr"
	"github.com/dalemusser/trackhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestCreateTask_DefaultsAndReporter(t *testing.T) {
	env := newEnv(t)
	ann := env.register(t, "Ann", "ann@example.com")
	p := env.project(t, ann, "Alpha")

	v := env.task(t, ann, p, "  Write   docs ")
	if v.Title != "Write docs" {
		t.Errorf("Title = %q", v.Title)
	}
	if v.Status != models.TaskTodo || v.Priority != models.PriorityMedium || v.Type != models.TypeTask {
		t.Errorf("defaults = %s/%s/%s", v.Status, v.Priority, v.Type)
	}
	if v.Reporter.ID != ann.User.ID || v.Reporter.Name != "Ann" {
		t.Errorf("Reporter = %+v", v.Reporter)
	}
	if v.Project.ID != p.ID || v.Project.Key != p.Key {
		t.Errorf("Project = %+v", v.Project)
	}
	if v.Assignee != nil {
		t.Errorf("Assignee = %+v, want none", v.Assignee)
	}
}

func TestCreateTask_References(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	ann := env.register(t, "Ann", "ann@example.com")
	bob := env.register(t, "Bob", "bob@example.com")
	p := env.project(t, ann, "Alpha")

	_, err := env.c.CreateTask(ctx, ann.Credential, CreateTaskInput{Title: "x", Project: primitive.NewObjectID().Hex()})
	if !apperr.IsSub(err, apperr.UnknownReference) {
		t.Errorf("unknown project err = %v, want UnknownReference", err)
	}
	_, err = env.c.CreateTask(ctx, ann.Credential, CreateTaskInput{Title: "x", Project: p.ID.Hex(), Assignee: primitive.NewObjectID().Hex()})
	if !apperr.IsSub(err, apperr.UnknownReference) {
		t.Errorf("unknown assignee err = %v, want UnknownReference", err)
	}
	_, err = env.c.CreateTask(ctx, ann.Credential, CreateTaskInput{Title: "x", Project: p.ID.Hex(), Assignee: bob.User.ID.Hex()})
	if !apperr.Is(err, apperr.InvalidInput) {
		t.Errorf("non-member assignee err = %v, want InvalidInput", err)
	}
	_, err = env.c.CreateTask(ctx, bob.Credential, CreateTaskInput{Title: "x", Project: p.ID.Hex()})
	if !apperr.Is(err, apperr.Forbidden) {
		t.Errorf("non-member create err = %v, want Forbidden", err)
	}

	_, err = env.c.CreateTask(ctx, ann.Credential, CreateTaskInput{Title: "x", Project: p.ID.Hex(), Reporter: bob.User.ID.Hex()})
	if !apperr.Is(err, apperr.InvalidInput) {
		t.Errorf("non-member reporter err = %v, want InvalidInput", err)
	}

	env.addMember(t, ann, p, bob)
	v, err := env.c.CreateTask(ctx, ann.Credential, CreateTaskInput{Title: "x", Project: p.ID.Hex(), Assignee: bob.User.ID.Hex(), Reporter: bob.User.ID.Hex()})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if v.Assignee == nil || v.Assignee.ID != bob.User.ID || v.Assignee.Email != "bob@example.com" {
		t.Errorf("Assignee = %+v", v.Assignee)
	}
	if v.Reporter.ID != bob.User.ID {
		t.Errorf("Reporter = %+v, want bob", v.Reporter)
	}
}

func TestUpdateTask_NonMemberChangingAssigneeIsForbidden(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	ann := env.register(t, "Ann", "ann@example.com")
	x := env.register(t, "Xavier", "x@example.com")
	p := env.project(t, ann, "Alpha")
	task := env.task(t, ann, p, "Ship it")

	before, err := env.stores.Tasks.GetByID(ctx, task.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	assignee := x.User.ID.Hex()
	_, err = env.c.UpdateTask(ctx, x.Credential, task.ID.Hex(), UpdateTaskInput{Assignee: &assignee})
	if !apperr.Is(err, apperr.Forbidden) {
		t.Fatalf("err = %v, want Forbidden", err)
	}
	after, err := env.stores.Tasks.GetByID(ctx, task.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !reflect.DeepEqual(before, after) {
		t.Errorf("task changed after forbidden update:\nbefore %+v\nafter  %+v", before, after)
	}

	if _, err := env.c.GetTask(ctx, x.Credential, task.ID.Hex()); !apperr.Is(err, apperr.Forbidden) {
		t.Errorf("GetTask err = %v, want Forbidden", err)
	}
	if err := env.c.DeleteTask(ctx, x.Credential, task.ID.Hex()); !apperr.Is(err, apperr.Forbidden) {
		t.Errorf("DeleteTask err = %v, want Forbidden", err)
	}
	if _, err := env.c.AddComment(ctx, x.Credential, task.ID.Hex(), CommentInput{Content: "hi"}); !apperr.Is(err, apperr.Forbidden) {
		t.Errorf("AddComment err = %v, want Forbidden", err)
	}
}

func TestUpdateTask_RolesAndAssignee(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	ann := env.register(t, "Ann", "ann@example.com")
	bob := env.register(t, "Bob", "bob@example.com")
	cal := env.register(t, "Cal", "cal@example.com")
	p := env.project(t, ann, "Alpha")
	env.addMember(t, ann, p, bob)
	env.addMember(t, ann, p, cal)
	task := env.task(t, ann, p, "Ship it")

	// A plain developer who is neither assignee nor reporter cannot edit.
	status := models.TaskInProgress
	if _, err := env.c.UpdateTask(ctx, cal.Credential, task.ID.Hex(), UpdateTaskInput{Status: &status}); !apperr.Is(err, apperr.Forbidden) {
		t.Fatalf("developer update err = %v, want Forbidden", err)
	}

	assignee := cal.User.ID.Hex()
	v, err := env.c.UpdateTask(ctx, ann.Credential, task.ID.Hex(), UpdateTaskInput{Assignee: &assignee})
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if v.Assignee == nil || v.Assignee.ID != cal.User.ID {
		t.Fatalf("Assignee = %+v", v.Assignee)
	}

	// Now the assignee may edit.
	due := time.Date(2030, 1, 2, 0, 0, 0, 0, time.UTC)
	v, err = env.c.UpdateTask(ctx, cal.Credential, task.ID.Hex(), UpdateTaskInput{Status: &status, DueDate: &due})
	if err != nil {
		t.Fatalf("assignee update: %v", err)
	}
	if v.Status != models.TaskInProgress || v.DueDate == nil || !v.DueDate.Equal(due) || v.Title != "Ship it" {
		t.Errorf("after update = %+v", v)
	}

	outsider := primitive.NewObjectID().Hex()
	if _, err := env.c.UpdateTask(ctx, ann.Credential, task.ID.Hex(), UpdateTaskInput{Assignee: &outsider}); !apperr.IsSub(err, apperr.UnknownReference) {
		t.Errorf("unknown assignee err = %v, want UnknownReference", err)
	}

	none := ""
	v, err = env.c.UpdateTask(ctx, ann.Credential, task.ID.Hex(), UpdateTaskInput{Assignee: &none, ClearDueDate: true})
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if v.Assignee != nil || v.DueDate != nil {
		t.Errorf("after clear assignee=%+v due=%v", v.Assignee, v.DueDate)
	}

	bad := "blocked"
	if _, err := env.c.UpdateTask(ctx, ann.Credential, task.ID.Hex(), UpdateTaskInput{Status: &bad}); !apperr.Is(err, apperr.InvalidInput) {
		t.Errorf("bad status err = %v, want InvalidInput", err)
	}
}

func TestListTasks_ScopedToMembership(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	ann := env.register(t, "Ann", "ann@example.com")
	bob := env.register(t, "Bob", "bob@example.com")
	alpha := env.project(t, ann, "Alpha")
	beta := env.project(t, bob, "Beta")
	env.task(t, ann, alpha, "a1")
	env.task(t, ann, alpha, "a2")
	env.task(t, bob, beta, "b1")

	list, err := env.c.ListTasks(ctx, ann.Credential, ListParams{})
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if list.Pagination.Total != 2 {
		t.Errorf("ann sees %d tasks, want 2", list.Pagination.Total)
	}
	for _, v := range list.Items {
		if v.Project.ID != alpha.ID {
			t.Errorf("task %s from project %s leaked", v.Title, v.Project.Key)
		}
	}

	if _, err := env.c.ListTasks(ctx, ann.Credential, ListParams{Project: beta.ID.Hex()}); !apperr.Is(err, apperr.Forbidden) {
		t.Errorf("foreign project filter err = %v, want Forbidden", err)
	}

	carl := env.register(t, "Carl", "carl@example.com")
	list, err = env.c.ListTasks(ctx, carl.Credential, ListParams{})
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if len(list.Items) != 0 {
		t.Errorf("user without projects sees %d tasks", len(list.Items))
	}
}

func TestDeleteTask_Twice(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	ann := env.register(t, "Ann", "ann@example.com")
	p := env.project(t, ann, "Alpha")
	task := env.task(t, ann, p, "gone")

	if err := env.c.DeleteTask(ctx, ann.Credential, task.ID.Hex()); err != nil {
		t.Fatalf("DeleteTask: %v", err)
	}
	if err := env.c.DeleteTask(ctx, ann.Credential, task.ID.Hex()); !apperr.Is(err, apperr.NotFound) {
		t.Fatalf("second delete err = %v, want NotFound", err)
	}
}

func TestAddComment_SanitizesAndAppends(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	ann := env.register(t, "Ann", "ann@example.com")
	bob := env.register(t, "Bob", "bob@example.com")
	p := env.project(t, ann, "Alpha")
	env.addMember(t, ann, p, bob)
	task := env.task(t, ann, p, "discuss")

	if _, err := env.c.AddComment(ctx, ann.Credential, task.ID.Hex(), CommentInput{Content: "first"}); err != nil {
		t.Fatalf("AddComment: %v", err)
	}
	v, err := env.c.AddComment(ctx, bob.Credential, task.ID.Hex(), CommentInput{Content: `<b>ok</b><script>alert(1)</script>`})
	if err != nil {
		t.Fatalf("AddComment: %v", err)
	}
	if len(v.Comments) != 2 {
		t.Fatalf("Comments = %d, want 2", len(v.Comments))
	}
	second := v.Comments[1]
	if second.Author.ID != bob.User.ID || second.Content != "<b>ok</b>" || second.ID.IsZero() {
		t.Errorf("second comment = %+v", second)
	}

	if _, err := env.c.AddComment(ctx, ann.Credential, task.ID.Hex(), CommentInput{Content: "   "}); !apperr.Is(err, apperr.InvalidInput) {
		t.Errorf("blank comment err = %v, want InvalidInput", err)
	}
}
