package taskstore_test

import (
	"errors"
	"testing"
	"time"

	"github.com/dalemusser/trackhub/internal/app/store/repo"
	taskstore "github.com/dalemusser/trackhub/internal/app/store/tasks"
	"github.com/dalemusser/trackhub/internal/app/system/indexes"
	"github.com/dalemusser/trackhub/internal/domain/models"
	"github.com/dalemusser/trackhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func setup(t *testing.T) (*taskstore.Store, *mongo.Database) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
	return taskstore.New(db), db
}

func TestStore_CreateGetUpdate(t *testing.T) {
	store, _ := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	reporter, assignee := primitive.NewObjectID(), primitive.NewObjectID()
	due := time.Now().UTC().Add(48 * time.Hour).Truncate(time.Millisecond)

	task, err := store.Create(ctx, models.Task{
		Title:      "Write docs",
		Status:     models.TaskTodo,
		Priority:   models.PriorityHigh,
		Type:       models.TypeTask,
		ReporterID: reporter,
		ProjectID:  primitive.NewObjectID(),
		AssigneeID: &assignee,
		DueDate:    &due,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if task.Labels == nil || task.Comments == nil {
		t.Error("expected empty slices")
	}

	status := models.TaskInProgress
	got, err := store.Update(ctx, task.ID, repo.TaskUpdate{Status: &status, ClearAssignee: true, ClearDueDate: true})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if got.Status != models.TaskInProgress || got.AssigneeID != nil || got.DueDate != nil {
		t.Errorf("update not applied: %+v", got)
	}
	if got.Title != "Write docs" || got.Priority != models.PriorityHigh {
		t.Error("unset fields changed")
	}

	if _, err := store.Update(ctx, primitive.NewObjectID(), repo.TaskUpdate{Status: &status}); !errors.Is(err, repo.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_List_Filters(t *testing.T) {
	store, db := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)
	reporter, dev := primitive.NewObjectID(), primitive.NewObjectID()
	p1, p2, p3 := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()

	fx.CreateTask(ctx, "Login page", p1, reporter, &dev)
	fx.CreateTask(ctx, "Logout bug", p1, reporter, nil)
	fx.CreateTask(ctx, "Dashboard", p2, reporter, &dev)
	fx.CreateTask(ctx, "Hidden", p3, reporter, &dev)

	page, err := store.List(ctx, repo.ListQuery{ProjectIn: []primitive.ObjectID{p1, p2}})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if page.Total != 3 {
		t.Errorf("ProjectIn: got %d, want 3", page.Total)
	}

	page, _ = store.List(ctx, repo.ListQuery{ProjectIn: []primitive.ObjectID{p1, p2}, Search: "log"})
	if page.Total != 2 {
		t.Errorf("search: got %d, want 2", page.Total)
	}

	page, _ = store.List(ctx, repo.ListQuery{ProjectID: &p3, ProjectIn: []primitive.ObjectID{p1}})
	if page.Total != 0 {
		t.Errorf("ProjectID outside ProjectIn leaked %d tasks", page.Total)
	}

	page, _ = store.List(ctx, repo.ListQuery{AssigneeID: &dev, Limit: 2})
	if page.Total != 3 || len(page.Items) != 2 {
		t.Errorf("assignee+limit: total %d items %d", page.Total, len(page.Items))
	}

	page, _ = store.List(ctx, repo.ListQuery{ProjectIn: []primitive.ObjectID{}})
	if page.Total != 0 {
		t.Errorf("empty ProjectIn should match nothing, got %d", page.Total)
	}
}

func TestStore_AppendComment(t *testing.T) {
	store, db := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	task := testutil.NewFixtures(t, db).CreateTask(ctx, "Chat", primitive.NewObjectID(), primitive.NewObjectID(), nil)

	c := models.Comment{ID: primitive.NewObjectID(), Content: "hi", AuthorID: primitive.NewObjectID(), TaskID: task.ID, CreatedAt: time.Now().UTC()}
	got, err := store.AppendComment(ctx, task.ID, c)
	if err != nil {
		t.Fatalf("AppendComment failed: %v", err)
	}
	if len(got.Comments) != 1 || got.Comments[0].Content != "hi" {
		t.Errorf("comments: %+v", got.Comments)
	}
	if _, err := store.AppendComment(ctx, primitive.NewObjectID(), c); !errors.Is(err, repo.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_CascadeHelpers(t *testing.T) {
	store, db := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)
	gone, admin := primitive.NewObjectID(), primitive.NewObjectID()
	p1, p2 := primitive.NewObjectID(), primitive.NewObjectID()

	a := fx.CreateTask(ctx, "A", p1, gone, &gone)
	fx.CreateTask(ctx, "B", p1, admin, &gone)
	c := fx.CreateTask(ctx, "C", p2, gone, nil)

	n, err := store.ClearAssignee(ctx, gone)
	if err != nil || n != 2 {
		t.Fatalf("ClearAssignee: %v %d", err, n)
	}
	n, err = store.ReassignReporter(ctx, gone, admin)
	if err != nil || n != 2 {
		t.Fatalf("ReassignReporter: %v %d", err, n)
	}
	got, _ := store.GetByID(ctx, a.ID)
	if got.AssigneeID != nil || got.ReporterID != admin || got.Title != "A" {
		t.Errorf("task A after cascade: %+v", got)
	}

	n, err = store.DeleteByProject(ctx, p1)
	if err != nil || n != 2 {
		t.Fatalf("DeleteByProject: %v %d", err, n)
	}
	if _, err := store.GetByID(ctx, c.ID); err != nil {
		t.Error("task in another project was deleted")
	}
}

func TestStore_Count(t *testing.T) {
	store, _ := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	now := time.Now().UTC()
	past := now.Add(-time.Hour)
	reporter, project := primitive.NewObjectID(), primitive.NewObjectID()

	for _, tc := range []struct {
		status string
		due    *time.Time
	}{
		{models.TaskTodo, &past},
		{models.TaskDone, &past},
		{models.TaskDone, nil},
		{models.TaskReview, nil},
	} {
		if _, err := store.Create(ctx, models.Task{Title: "t", Status: tc.status, ReporterID: reporter, ProjectID: project, DueDate: tc.due}); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	done, _ := store.Count(ctx, repo.TaskCount{Status: models.TaskDone})
	overdue, _ := store.Count(ctx, repo.TaskCount{OverdueAt: &now})
	all, _ := store.Count(ctx, repo.TaskCount{})
	if done != 2 || overdue != 1 || all != 4 {
		t.Errorf("counts: done %d overdue %d all %d", done, overdue, all)
	}
}
