package api_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/trackhub/internal/app/bootstrap"
	"github.com/dalemusser/trackhub/internal/app/coordinator"
	"github.com/dalemusser/trackhub/internal/app/system/apperr"
	"github.com/dalemusser/trackhub/internal/client/api"
	"go.uber.org/zap"
)

// newServer runs the full HTTP stack on the memory backend with one admin
// account, root@example.com / secret123.
func newServer(t *testing.T) *api.Client {
	t.Helper()
	ctx := context.Background()
	cfg := bootstrap.AppConfig{
		StoreBackend:           bootstrap.BackendMemory,
		JWTSecret:              strings.Repeat("k", 32),
		JWTIssuer:              "trackhub",
		TokenTTL:               time.Hour,
		LoginRatePerMinute:     1000,
		LoginBurst:             1000,
		AuditLogAuth:           "off",
		AuditLogAdmin:          "off",
		ReporterSuccessor:      coordinator.SuccessorDeletingAdmin,
		BootstrapAdminEmail:    "root@example.com",
		BootstrapAdminPassword: "secret123",
	}
	log := zap.NewNop()
	deps, err := bootstrap.ConnectDB(ctx, nil, cfg, log)
	if err != nil {
		t.Fatalf("ConnectDB: %v", err)
	}
	if err := bootstrap.Startup(ctx, nil, cfg, deps, log); err != nil {
		t.Fatalf("Startup: %v", err)
	}
	h, err := bootstrap.BuildHandler(nil, cfg, deps, log)
	if err != nil {
		t.Fatalf("BuildHandler: %v", err)
	}
	srv := httptest.NewServer(h)
	t.Cleanup(func() {
		srv.Close()
		_ = bootstrap.Shutdown(context.Background(), nil, cfg, deps, log)
	})

	c, err := api.New(srv.URL, srv.Client(), log)
	if err != nil {
		t.Fatalf("api.New: %v", err)
	}
	return c
}

func TestNewRejectsBadURL(t *testing.T) {
	for _, u := range []string{"", "localhost", "://x"} {
		if _, err := api.New(u, nil, nil); err == nil {
			t.Errorf("New(%q) succeeded", u)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	c := newServer(t)
	ctx := context.Background()

	if err := c.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}

	s, err := c.Register(ctx, coordinator.RegisterInput{Name: "Ann", Email: "ann@example.com", Password: "secret123"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	u, err := c.VerifyCredential(ctx, s.Credential)
	if err != nil || u.ID != s.User.ID {
		t.Fatalf("VerifyCredential = %+v, %v", u, err)
	}

	p, err := c.CreateProject(ctx, s.Credential, coordinator.CreateProjectInput{Name: "Demo App"})
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	if p.Key != "DEMO" || p.Owner.ID != s.User.ID {
		t.Errorf("project = %+v", p)
	}

	_, err = c.CreateProject(ctx, s.Credential, coordinator.CreateProjectInput{Name: "Demo App"})
	if !apperr.IsSub(err, apperr.DuplicateKey) {
		t.Errorf("duplicate create error = %v, want DuplicateKey", err)
	}

	task, err := c.CreateTask(ctx, s.Credential, coordinator.CreateTaskInput{Title: "Ship", Project: p.ID.Hex()})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	task, err = c.AddComment(ctx, s.Credential, task.ID.Hex(), coordinator.CommentInput{Content: "first"})
	if err != nil || len(task.Comments) != 1 {
		t.Fatalf("AddComment = %+v, %v", task.Comments, err)
	}

	list, err := c.ListTasks(ctx, s.Credential, coordinator.ListParams{Project: p.ID.Hex()})
	if err != nil || len(list.Items) != 1 {
		t.Fatalf("ListTasks = %+v, %v", list, err)
	}

	if err := c.DeleteProject(ctx, s.Credential, p.ID.Hex()); err != nil {
		t.Fatalf("DeleteProject: %v", err)
	}
	if _, err := c.GetTask(ctx, s.Credential, task.ID.Hex()); !apperr.Is(err, apperr.NotFound) {
		t.Errorf("GetTask after cascade = %v, want NotFound", err)
	}
}

func TestErrorsKeepTheirKind(t *testing.T) {
	c := newServer(t)
	ctx := context.Background()

	_, err := c.ListProjects(ctx, "", coordinator.ListParams{})
	if !apperr.Is(err, apperr.Unauthenticated) {
		t.Errorf("anonymous = %v, want Unauthenticated", err)
	}

	admin, err := c.Login(ctx, coordinator.LoginInput{Email: "root@example.com", Password: "secret123"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	off := false
	_, err = c.AdminUpdateUser(ctx, admin.Credential, admin.User.ID.Hex(), coordinator.AdminUserInput{IsActive: &off})
	if !apperr.Is(err, apperr.SelfProtectionViolation) {
		t.Errorf("self deactivate = %v, want SelfProtectionViolation", err)
	}

	ann, err := c.Register(ctx, coordinator.RegisterInput{Name: "Ann", Email: "ann@example.com", Password: "secret123"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.AdminDashboard(ctx, ann.Credential); !apperr.Is(err, apperr.Forbidden) {
		t.Errorf("dashboard as user = %v, want Forbidden", err)
	}
	d, err := c.AdminDashboard(ctx, admin.Credential)
	if err != nil || d.TotalUsers != 2 {
		t.Errorf("dashboard = %+v, %v", d, err)
	}
}

func TestUnreachableIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := api.New(url, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	_, err = c.ListProjects(context.Background(), "tok", coordinator.ListParams{})
	if !apperr.Is(err, apperr.Unavailable) || !apperr.Retryable(err) {
		t.Errorf("err = %v, want retryable Unavailable", err)
	}
}

func TestNonEnvelopeErrorFallsBackOnStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	c, _ := api.New(srv.URL, srv.Client(), nil)
	err := c.DeleteTask(context.Background(), "tok", "abc")
	var e *apperr.Error
	if !errors.As(err, &e) || e.Kind != apperr.Forbidden {
		t.Errorf("err = %v, want Forbidden", err)
	}
}
