package state

import (
	"context"

	"github.com/dalemusser/trackhub/internal/app/coordinator"
	"github.com/dalemusser/trackhub/internal/app/system/auth"
	"github.com/dalemusser/trackhub/internal/client/api"
	"github.com/dalemusser/trackhub/internal/client/credfile"
	"github.com/dalemusser/trackhub/internal/domain/models"
)

// Backend is what a Session reads from and writes through. *api.Client
// talks to a server; CoordinatorBackend runs in process.
type Backend interface {
	Login(ctx context.Context, in coordinator.LoginInput) (coordinator.Session, error)
	VerifyCredential(ctx context.Context, cred auth.Credential) (models.User, error)

	ListProjects(ctx context.Context, cred auth.Credential, lp coordinator.ListParams) (coordinator.PageResult[models.ProjectView], error)
	CreateProject(ctx context.Context, cred auth.Credential, in coordinator.CreateProjectInput) (models.ProjectView, error)
	UpdateProject(ctx context.Context, cred auth.Credential, id string, in coordinator.UpdateProjectInput) (models.ProjectView, error)
	DeleteProject(ctx context.Context, cred auth.Credential, id string) error
	AddMember(ctx context.Context, cred auth.Credential, projectID string, in coordinator.AddMemberInput) (models.ProjectView, error)
	RemoveMember(ctx context.Context, cred auth.Credential, projectID, userID string) (models.ProjectView, error)

	ListTasks(ctx context.Context, cred auth.Credential, lp coordinator.ListParams) (coordinator.PageResult[models.TaskView], error)
	CreateTask(ctx context.Context, cred auth.Credential, in coordinator.CreateTaskInput) (models.TaskView, error)
	UpdateTask(ctx context.Context, cred auth.Credential, id string, in coordinator.UpdateTaskInput) (models.TaskView, error)
	DeleteTask(ctx context.Context, cred auth.Credential, id string) error
	AddComment(ctx context.Context, cred auth.Credential, taskID string, in coordinator.CommentInput) (models.TaskView, error)

	AdminDashboard(ctx context.Context, cred auth.Credential) (models.Dashboard, error)
	AdminListUsers(ctx context.Context, cred auth.Credential, lp coordinator.ListParams) (coordinator.PageResult[models.User], error)
	AdminUpdateUser(ctx context.Context, cred auth.Credential, id string, in coordinator.AdminUserInput) (models.User, error)
	AdminDeleteUser(ctx context.Context, cred auth.Credential, id string) error
	AdminListProjects(ctx context.Context, cred auth.Credential, lp coordinator.ListParams) (coordinator.PageResult[models.ProjectView], error)
	AdminUpdateProject(ctx context.Context, cred auth.Credential, id string, in coordinator.UpdateProjectInput) (models.ProjectView, error)
	AdminDeleteProject(ctx context.Context, cred auth.Credential, id string) error
	AdminListTasks(ctx context.Context, cred auth.Credential, lp coordinator.ListParams) (coordinator.PageResult[models.TaskView], error)
	AdminUpdateTask(ctx context.Context, cred auth.Credential, id string, in coordinator.UpdateTaskInput) (models.TaskView, error)
	AdminDeleteTask(ctx context.Context, cred auth.Credential, id string) error
}

// CoordinatorBackend serves a Session straight from an in-process
// coordinator, with no HTTP hop.
type CoordinatorBackend struct {
	*coordinator.Coordinator
}

var (
	_ Backend = CoordinatorBackend{}
	_ Backend = (*api.Client)(nil)
)

// CredentialStore persists the credential and selected project.
// credfile.Store is the on-disk implementation.
type CredentialStore interface {
	Load() (credfile.File, error)
	Save(credfile.File) error
	Clear() error
}

var _ CredentialStore = credfile.Store{}
