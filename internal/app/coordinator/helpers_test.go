package coordinator

import (
	"context"
	"sync"
	"testing"

	"github.com/dalemusser/trackhub/internal/app/store/audit"
	"github.com/dalemusser/trackhub/internal/app/store/memory"
	"github.com/dalemusser/trackhub/internal/app/store/repo"
	"github.com/dalemusser/trackhub/internal/app/system/auditlog"
	"github.com/dalemusser/trackhub/internal/app/system/auth"
	"github.com/dalemusser/trackhub/internal/app/system/authz"
	"github.com/dalemusser/trackhub/internal/domain/models"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// recorder keeps audit events in memory.
type recorder struct {
	mu     sync.Mutex
	events []audit.Event
}

func (r *recorder) Log(_ context.Context, e audit.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) ofType(eventType string) []audit.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []audit.Event
	for _, e := range r.events {
		if e.EventType == eventType {
			out = append(out, e)
		}
	}
	return out
}

type testEnv struct {
	c      *Coordinator
	stores repo.Stores
	audit  *recorder
}

func newEnv(t *testing.T) *testEnv {
	return newEnvWith(t, memory.New().Stores(), Config{})
}

func newEnvWith(t *testing.T, stores repo.Stores, cfg Config) *testEnv {
	t.Helper()
	authSvc, err := auth.NewService(stores.Users, auth.Config{Secret: "test-secret", BcryptCost: bcrypt.MinCost}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	rec := &recorder{}
	al := auditlog.New(rec, zap.NewNop(), auditlog.Config{Auth: "db", Admin: "db"})
	return &testEnv{
		c:      New(stores, authSvc, authz.MustNew(), al, cfg, zap.NewNop()),
		stores: stores,
		audit:  rec,
	}
}

func (e *testEnv) register(t *testing.T, name, email string) Session {
	t.Helper()
	s, err := e.c.Register(context.Background(), RegisterInput{Name: name, Email: email, Password: "secret123"})
	if err != nil {
		t.Fatalf("Register(%s): %v", email, err)
	}
	return s
}

func (e *testEnv) registerAdmin(t *testing.T, name, email string) Session {
	t.Helper()
	s := e.register(t, name, email)
	role := models.RoleAdmin
	u, err := e.stores.Users.Update(context.Background(), s.User.ID, repo.UserUpdate{Role: &role})
	if err != nil {
		t.Fatalf("promote %s: %v", email, err)
	}
	s.User = u
	return s
}

func (e *testEnv) project(t *testing.T, owner Session, name string) models.ProjectView {
	t.Helper()
	p, err := e.c.CreateProject(context.Background(), owner.Credential, CreateProjectInput{Name: name})
	if err != nil {
		t.Fatalf("CreateProject(%s): %v", name, err)
	}
	return p
}

func (e *testEnv) addMember(t *testing.T, owner Session, p models.ProjectView, member Session) {
	t.Helper()
	_, err := e.c.AddMember(context.Background(), owner.Credential, p.ID.Hex(), AddMemberInput{UserID: member.User.ID.Hex(), Role: models.MemberDeveloper})
	if err != nil {
		t.Fatalf("AddMember: %v", err)
	}
}

func (e *testEnv) task(t *testing.T, s Session, p models.ProjectView, title string) models.TaskView {
	t.Helper()
	v, err := e.c.CreateTask(context.Background(), s.Credential, CreateTaskInput{Title: title, Project: p.ID.Hex()})
	if err != nil {
		t.Fatalf("CreateTask(%s): %v", title, err)
	}
	return v
}
