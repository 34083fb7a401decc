package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/trackhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures inserts documents directly into a test database,
// bypassing the stores under test.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateUser creates an active user with the given role and no password.
func (f *Fixtures) CreateUser(ctx context.Context, name, email, role string) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	u := models.User{
		ID:        primitive.NewObjectID(),
		Name:      name,
		NameCI:    text.Fold(name),
		Email:     email,
		Role:      role,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := f.db.Collection("users").InsertOne(ctx, u); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return u
}

// CreateAdmin creates an admin user.
func (f *Fixtures) CreateAdmin(ctx context.Context, name, email string) models.User {
	f.t.Helper()
	return f.CreateUser(ctx, name, email, models.RoleAdmin)
}

// CreateProject creates an active private project owned by owner.
// Extra members are added with the developer role.
func (f *Fixtures) CreateProject(ctx context.Context, key, name string, owner primitive.ObjectID, members ...primitive.ObjectID) models.Project {
	f.t.Helper()

	now := time.Now().UTC()
	p := models.Project{
		ID:         primitive.NewObjectID(),
		Key:        key,
		Name:       name,
		NameCI:     text.Fold(name),
		Status:     models.ProjectActive,
		Visibility: models.VisibilityPrivate,
		Tags:       []string{},
		OwnerID:    owner,
		Members:    []models.Member{{UserID: owner, Role: models.MemberManager, JoinedAt: now}},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	for _, m := range members {
		p.Members = append(p.Members, models.Member{UserID: m, Role: models.MemberDeveloper, JoinedAt: now})
	}
	if _, err := f.db.Collection("projects").InsertOne(ctx, p); err != nil {
		f.t.Fatalf("failed to create test project: %v", err)
	}
	return p
}

// CreateTask creates a todo task in the given project.
func (f *Fixtures) CreateTask(ctx context.Context, title string, projectID, reporterID primitive.ObjectID, assigneeID *primitive.ObjectID) models.Task {
	f.t.Helper()

	now := time.Now().UTC()
	task := models.Task{
		ID:         primitive.NewObjectID(),
		Title:      title,
		TitleCI:    text.Fold(title),
		Status:     models.TaskTodo,
		Priority:   models.PriorityMedium,
		Type:       models.TypeTask,
		AssigneeID: assigneeID,
		ReporterID: reporterID,
		ProjectID:  projectID,
		Labels:     []string{},
		Comments:   []models.Comment{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if _, err := f.db.Collection("tasks").InsertOne(ctx, task); err != nil {
		f.t.Fatalf("failed to create test task: %v", err)
	}
	return task
}
