package admin_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/dalemusser/trackhub/internal/app/coordinator"
	"github.com/dalemusser/trackhub/internal/app/features/admin"
	"github.com/dalemusser/trackhub/internal/app/system/auth"
	"github.com/dalemusser/trackhub/internal/domain/models"
	"github.com/dalemusser/trackhub/internal/testutil"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func newRouter(t *testing.T) (http.Handler, *testutil.App) {
	app := testutil.NewApp(t)
	r := chi.NewRouter()
	r.Use(auth.LoadCredential)
	r.Mount("/api/admin", admin.Routes(admin.NewHandler(app.C, zap.NewNop())))
	return r, app
}

func do(t *testing.T, router http.Handler, method, path string, body any, s coordinator.Session) *testutil.ResponseRecorder {
	t.Helper()
	rec := testutil.NewRecorder()
	router.ServeHTTP(rec, testutil.NewJSONRequest(t, method, path, body, testutil.Token(s)))
	return rec
}

func TestNonAdminForbidden(t *testing.T) {
	router, app := newRouter(t)
	ann := app.Register(t, "Ann", "ann@example.com")

	for _, path := range []string{"/api/admin/dashboard", "/api/admin/users", "/api/admin/projects", "/api/admin/tasks"} {
		do(t, router, "GET", path, nil, ann).AssertStatus(t, http.StatusForbidden)
	}
}

func TestSelfProtection(t *testing.T) {
	router, app := newRouter(t)
	root := app.RegisterAdmin(t, "Root", "root@example.com")
	self := "/api/admin/users/" + root.User.ID.Hex()

	rec := do(t, router, "PUT", self, map[string]any{"isActive": false}, root)
	rec.AssertStatus(t, http.StatusUnprocessableEntity)
	if env := rec.Envelope(t); env.Error == nil || env.Error.Kind != "SelfProtectionViolation" {
		t.Errorf("envelope = %s", rec.Body.String())
	}
	do(t, router, "DELETE", self, nil, root).AssertStatus(t, http.StatusUnprocessableEntity)
}

func TestUsersLifecycle(t *testing.T) {
	router, app := newRouter(t)
	root := app.RegisterAdmin(t, "Root", "root@example.com")
	ann := app.Register(t, "Ann", "ann@example.com")

	rec := do(t, router, "GET", "/api/admin/users?role=user", nil, root)
	rec.AssertStatus(t, http.StatusOK)
	var list struct {
		Items []models.User `json:"items"`
	}
	rec.Data(t, &list)
	if len(list.Items) != 1 || list.Items[0].ID != ann.User.ID {
		t.Errorf("users = %+v", list.Items)
	}

	rec = do(t, router, "PUT", "/api/admin/users/"+ann.User.ID.Hex(), map[string]any{"role": "admin"}, root)
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"role":"admin"`)

	do(t, router, "DELETE", "/api/admin/users/"+ann.User.ID.Hex(), nil, root).AssertStatus(t, http.StatusOK)
	do(t, router, "DELETE", "/api/admin/users/"+ann.User.ID.Hex(), nil, root).AssertStatus(t, http.StatusNotFound)
}

func TestDashboardAndProjects(t *testing.T) {
	router, app := newRouter(t)
	root := app.RegisterAdmin(t, "Root", "root@example.com")
	ann := app.Register(t, "Ann", "ann@example.com")
	p, err := app.C.CreateProject(context.Background(), ann.Credential, coordinator.CreateProjectInput{Name: "Alpha"})
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}

	rec := do(t, router, "GET", "/api/admin/dashboard", nil, root)
	rec.AssertStatus(t, http.StatusOK)
	var d models.Dashboard
	rec.Data(t, &d)
	if d.TotalUsers != 2 || d.AdminUsers != 1 || d.TotalProjects != 1 {
		t.Errorf("dashboard = %+v", d)
	}

	rec = do(t, router, "PUT", "/api/admin/projects/"+p.ID.Hex(), map[string]any{"key": "zed"}, root)
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"key":"ZED"`)

	do(t, router, "DELETE", "/api/admin/projects/"+p.ID.Hex(), nil, root).AssertStatus(t, http.StatusOK)
}
