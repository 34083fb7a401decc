package testutil

import (
	"context"
	"testing"

	"github.com/dalemusser/trackhub/internal/app/coordinator"
	"github.com/dalemusser/trackhub/internal/app/store/memory"
	"github.com/dalemusser/trackhub/internal/app/store/repo"
	"github.com/dalemusser/trackhub/internal/app/system/auth"
	"github.com/dalemusser/trackhub/internal/app/system/authz"
	"github.com/dalemusser/trackhub/internal/domain/models"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// App is a coordinator over an in-memory store, for handler tests.
type App struct {
	C      *coordinator.Coordinator
	Stores repo.Stores
}

// NewApp builds an App with cheap password hashing and no audit sink.
func NewApp(t *testing.T) *App {
	t.Helper()
	stores := memory.New().Stores()
	svc, err := auth.NewService(stores.Users, auth.Config{Secret: "test-secret", BcryptCost: bcrypt.MinCost}, zap.NewNop())
	if err != nil {
		t.Fatalf("auth.NewService: %v", err)
	}
	c := coordinator.New(stores, svc, authz.MustNew(), nil, coordinator.Config{}, zap.NewNop())
	return &App{C: c, Stores: stores}
}

// Register creates a user with password "secret123" and returns its session.
func (a *App) Register(t *testing.T, name, email string) coordinator.Session {
	t.Helper()
	s, err := a.C.Register(context.Background(), coordinator.RegisterInput{Name: name, Email: email, Password: "secret123"})
	if err != nil {
		t.Fatalf("Register(%s): %v", email, err)
	}
	return s
}

// RegisterAdmin is Register followed by promotion to admin.
func (a *App) RegisterAdmin(t *testing.T, name, email string) coordinator.Session {
	t.Helper()
	s := a.Register(t, name, email)
	role := models.RoleAdmin
	u, err := a.Stores.Users.Update(context.Background(), s.User.ID, repo.UserUpdate{Role: &role})
	if err != nil {
		t.Fatalf("promote %s: %v", email, err)
	}
	s.User = u
	return s
}

// Token returns the session's credential as a string for NewJSONRequest.
func Token(s coordinator.Session) string { return string(s.Credential) }
