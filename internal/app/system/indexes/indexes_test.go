package indexes_test

import (
	"context"
	"testing"

	"github.com/dalemusser/trackhub/internal/app/system/indexes"
	"github.com/dalemusser/trackhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func indexNames(t *testing.T, ctx context.Context, c *mongo.Collection) map[string]bool {
	t.Helper()
	cur, err := c.Indexes().List(ctx)
	if err != nil {
		t.Fatalf("List indexes failed: %v", err)
	}
	defer cur.Close(ctx)

	names := make(map[string]bool)
	for cur.Next(ctx) {
		var idx bson.M
		if err := cur.Decode(&idx); err != nil {
			continue
		}
		if name, ok := idx["name"].(string); ok {
			names[name] = true
		}
	}
	return names
}

func TestEnsureAll_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("First EnsureAll failed: %v", err)
	}
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("Second EnsureAll failed: %v", err)
	}
}

func TestEnsureAll_CreatesIndexes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	want := map[string][]string{
		"users":    {"uniq_users_email", "idx_users_role_created", "idx_users_created"},
		"projects": {"uniq_projects_key", "idx_projects_members_user", "idx_projects_owner", "idx_projects_status_created"},
		"tasks":    {"idx_tasks_project_created", "idx_tasks_assignee", "idx_tasks_reporter", "idx_tasks_status_due"},
	}
	for coll, names := range want {
		got := indexNames(t, ctx, db.Collection(coll))
		for _, name := range names {
			if !got[name] {
				t.Errorf("expected index %q on %s", name, coll)
			}
		}
	}
}

func TestEnsureAll_RenamesMisnamedIndex(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, err := db.Collection("tasks").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "assignee_id", Value: 1}},
		Options: options.Index().SetName("legacy_assignee"),
	})
	if err != nil {
		t.Fatalf("seed index: %v", err)
	}

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
	got := indexNames(t, ctx, db.Collection("tasks"))
	if got["legacy_assignee"] || !got["idx_tasks_assignee"] {
		t.Errorf("expected legacy index renamed, got %v", got)
	}
}

func TestEnsureAll_UniqueIndexEnforced(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	if _, err := db.Collection("projects").InsertOne(ctx, bson.M{"key": "DEMO"}); err != nil {
		t.Fatalf("Insert project failed: %v", err)
	}
	if _, err := db.Collection("projects").InsertOne(ctx, bson.M{"key": "DEMO"}); err == nil {
		t.Error("expected duplicate key error for unique index on projects.key")
	}
}

func TestEnsureAll_ReportsDuplicates(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	users := db.Collection("users")
	_, _ = users.InsertOne(ctx, bson.M{"email": "dup@example.com"})
	_, _ = users.InsertOne(ctx, bson.M{"email": "dup@example.com"})

	if err := indexes.EnsureAll(ctx, db); err == nil {
		t.Fatal("expected EnsureAll to fail while duplicate emails exist")
	}
}
