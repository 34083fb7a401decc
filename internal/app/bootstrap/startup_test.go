package bootstrap

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/trackhub/internal/app/coordinator"
	"github.com/dalemusser/trackhub/internal/app/store/memory"
	"github.com/dalemusser/trackhub/internal/app/system/auth"
	"github.com/dalemusser/trackhub/internal/domain/models"
	"github.com/dalemusser/trackhub/internal/testutil"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func testLogger() *zap.Logger {
	return zap.NewNop()
}

func validConfig() AppConfig {
	return AppConfig{
		StoreBackend:       BackendMemory,
		MongoURI:           "mongodb://localhost:27017",
		MongoDatabase:      "trackhub_test",
		JWTSecret:          strings.Repeat("s", minSecretLen),
		JWTIssuer:          "trackhub",
		TokenTTL:           time.Hour,
		CORSOrigins:        []string{"http://localhost:5173"},
		LoginRatePerMinute: 100,
		LoginBurst:         50,
		AuditLogAuth:       "log",
		AuditLogAdmin:      "log",
		ReporterSuccessor:  coordinator.SuccessorDeletingAdmin,
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*AppConfig)
		wantErr bool
	}{
		{"valid", func(*AppConfig) {}, false},
		{"unknown backend", func(c *AppConfig) { c.StoreBackend = "redis" }, true},
		{"short secret", func(c *AppConfig) { c.JWTSecret = "short" }, true},
		{"zero ttl", func(c *AppConfig) { c.TokenTTL = 0 }, true},
		{"bad audit mode", func(c *AppConfig) { c.AuditLogAdmin = "loud" }, true},
		{"bad successor", func(c *AppConfig) { c.ReporterSuccessor = "nobody" }, true},
		{"bad system id", func(c *AppConfig) { c.SystemUserID = "xyz" }, true},
		{"system successor", func(c *AppConfig) { c.ReporterSuccessor = coordinator.SuccessorSystem }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := ValidateConfig(nil, cfg, testLogger())
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSplitList(t *testing.T) {
	got := splitList(" http://a , ,http://b,")
	if len(got) != 2 || got[0] != "http://a" || got[1] != "http://b" {
		t.Errorf("splitList = %q", got)
	}
}

func TestOriginAllowed(t *testing.T) {
	allow := []string{"http://localhost:5173", "https://tracker.example.com"}
	tests := []struct {
		origin string
		want   bool
	}{
		{"http://localhost:5173", true},
		{"https://tracker.example.com", true},
		{"http://10.0.0.7:5173", true},
		{"http://192.168.1.20", true},
		{"https://172.20.3.4:8443", true},
		{"http://172.32.0.1", false},
		{"http://localhost:9999", false},
		{"https://evil.example.com", false},
	}
	for _, tt := range tests {
		if got := originAllowed(allow, tt.origin); got != tt.want {
			t.Errorf("originAllowed(%q) = %v, want %v", tt.origin, got, tt.want)
		}
	}
}

func newAuth(t *testing.T, db *memory.DB) *auth.Service {
	t.Helper()
	svc, err := auth.NewService(db.Stores().Users, auth.Config{Secret: "test-secret", BcryptCost: bcrypt.MinCost}, testLogger())
	if err != nil {
		t.Fatalf("auth.NewService: %v", err)
	}
	return svc
}

func TestEnsureAdmin_CreatesNew(t *testing.T) {
	db := memory.New()
	users := db.Stores().Users
	ctx := context.Background()

	if err := ensureAdmin(ctx, users, newAuth(t, db), "Root@Example.com", "secret123", testLogger()); err != nil {
		t.Fatalf("ensureAdmin: %v", err)
	}
	u, err := users.GetByEmail(ctx, "root@example.com")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if u.Role != models.RoleAdmin || !u.IsActive {
		t.Errorf("user = %+v", u)
	}
	if !auth.CheckPassword(u.PasswordHash, "secret123") {
		t.Error("password was not set")
	}
}

func TestEnsureAdmin_PromotesExisting(t *testing.T) {
	db := memory.New()
	users := db.Stores().Users
	ctx := context.Background()

	existing, err := users.Create(ctx, models.User{Name: "Ann", Email: "ann@example.com", Role: models.RoleUser, IsActive: false, PasswordHash: "x"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := ensureAdmin(ctx, users, newAuth(t, db), "ann@example.com", "", testLogger()); err != nil {
		t.Fatalf("ensureAdmin: %v", err)
	}
	u, _ := users.GetByID(ctx, existing.ID)
	if u.Role != models.RoleAdmin || !u.IsActive {
		t.Errorf("user = %+v", u)
	}
	if u.PasswordHash != "x" {
		t.Error("promotion must not touch the password")
	}
}

func TestEnsureAdmin_MissingWithoutPassword(t *testing.T) {
	db := memory.New()
	if err := ensureAdmin(context.Background(), db.Stores().Users, newAuth(t, db), "ghost@example.com", "", testLogger()); err == nil {
		t.Fatal("expected an error when the admin does not exist and no password is set")
	}
}

func TestSystemUser(t *testing.T) {
	db := memory.New()
	users := db.Stores().Users
	svc := newAuth(t, db)
	ctx := context.Background()

	id, err := systemUser(ctx, users, svc, "", testLogger())
	if err != nil {
		t.Fatalf("systemUser: %v", err)
	}
	again, err := systemUser(ctx, users, svc, "", testLogger())
	if err != nil || again != id {
		t.Fatalf("second call = %v, %v; want %v", again, err, id)
	}
	u, _ := users.GetByID(ctx, id)
	if u.Email != SystemUserEmail || u.IsActive {
		t.Errorf("system user = %+v", u)
	}

	if _, err := systemUser(ctx, users, svc, "0123456789abcdef01234567", testLogger()); err == nil {
		t.Error("expected an error for an unknown configured id")
	}
	if got, err := systemUser(ctx, users, svc, id.Hex(), testLogger()); err != nil || got != id {
		t.Errorf("configured id = %v, %v", got, err)
	}
}

func startMemoryApp(t *testing.T) (http.Handler, DBDeps) {
	t.Helper()
	ctx := context.Background()
	cfg := validConfig()
	cfg.BootstrapAdminEmail = "root@example.com"
	cfg.BootstrapAdminPassword = "secret123"

	deps, err := ConnectDB(ctx, nil, cfg, testLogger())
	if err != nil {
		t.Fatalf("ConnectDB: %v", err)
	}
	if err := EnsureSchema(ctx, nil, cfg, deps, testLogger()); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	if err := Startup(ctx, nil, cfg, deps, testLogger()); err != nil {
		t.Fatalf("Startup: %v", err)
	}
	t.Cleanup(func() { _ = Shutdown(context.Background(), nil, cfg, deps, testLogger()) })

	h, err := BuildHandler(nil, cfg, deps, testLogger())
	if err != nil {
		t.Fatalf("BuildHandler: %v", err)
	}
	return h, deps
}

func call(t *testing.T, h http.Handler, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestBuildHandler_MemoryBackend(t *testing.T) {
	h, _ := startMemoryApp(t)

	if rec := call(t, h, "GET", "/health", nil, ""); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"backend":"memory"`) {
		t.Errorf("health = %d %s", rec.Code, rec.Body.String())
	}

	rec := call(t, h, "POST", "/api/auth/login", map[string]string{"email": "root@example.com", "password": "secret123"}, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login = %d %s", rec.Code, rec.Body.String())
	}
	var env struct {
		Data coordinator.Session `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatal(err)
	}
	token := string(env.Data.Credential)

	rec = call(t, h, "POST", "/api/projects", map[string]string{"name": "Demo App"}, token)
	if rec.Code != http.StatusCreated || !strings.Contains(rec.Body.String(), `"key":"DEMO"`) {
		t.Errorf("create project = %d %s", rec.Code, rec.Body.String())
	}

	if rec := call(t, h, "GET", "/api/admin/dashboard", nil, token); rec.Code != http.StatusOK {
		t.Errorf("dashboard = %d %s", rec.Code, rec.Body.String())
	}
	if rec := call(t, h, "GET", "/api/projects", nil, ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous list = %d", rec.Code)
	}
	if rec := call(t, h, "GET", "/api/nowhere", nil, token); rec.Code != http.StatusNotFound || !strings.Contains(rec.Body.String(), `"kind":"NotFound"`) {
		t.Errorf("unknown route = %d %s", rec.Code, rec.Body.String())
	}
}

func TestBuildHandler_CORS(t *testing.T) {
	h, _ := startMemoryApp(t)

	req := httptest.NewRequest("OPTIONS", "/api/projects", nil)
	req.Header.Set("Origin", "http://192.168.1.5:5173")
	req.Header.Set("Access-Control-Request-Method", "GET")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://192.168.1.5:5173" {
		t.Errorf("Allow-Origin = %q", got)
	}

	req = httptest.NewRequest("OPTIONS", "/api/projects", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	req.Header.Set("Access-Control-Request-Method", "GET")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Allow-Origin for foreign origin = %q", got)
	}
}

func TestEnsureSchema_Mongo(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	deps := DBDeps{Backend: BackendMongo, MongoClient: db.Client(), MongoDatabase: db}
	if err := EnsureSchema(ctx, nil, validConfig(), deps, testLogger()); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	// Idempotent.
	if err := EnsureSchema(ctx, nil, validConfig(), deps, testLogger()); err != nil {
		t.Fatalf("EnsureSchema (second run): %v", err)
	}
}
