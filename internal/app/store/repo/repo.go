// Package repo declares the persistence contract shared by the MongoDB and
// in-memory stores. The coordinator depends only on these interfaces.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/trackhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	// ErrNotFound is returned when a lookup or targeted write matches nothing.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateEmail is returned when a write would store an email that
	// another user already has.
	ErrDuplicateEmail = errors.New("a user with this email already exists")
	// ErrDuplicateKey is returned when a write would store a project key that
	// another project already has.
	ErrDuplicateKey = errors.New("a project with this key already exists")
	// ErrNotMember is returned when a membership write names a user who is
	// not on the project.
	ErrNotMember = errors.New("user is not a member of the project")
	// ErrOwnerMember is returned when a write would remove the project
	// owner's membership or give the owner a role other than manager.
	ErrOwnerMember = errors.New("the project owner must stay a manager")
)

// ListQuery is an offset/limit page request with a case-insensitive
// substring search and equality filters.
type ListQuery struct {
	Search string
	Offset int
	Limit  int // 0 means no limit

	Role     string // users
	Status   string // projects, tasks
	Priority string // tasks
	Type     string // tasks

	ProjectID  *primitive.ObjectID  // tasks of one project
	ProjectIn  []primitive.ObjectID // tasks of any of these projects; nil means no scoping
	AssigneeID *primitive.ObjectID  // tasks assigned to one user
	MemberOf   *primitive.ObjectID  // projects where this user is owner or member
}

// Page is one page of results plus the total number of matches.
type Page[T any] struct {
	Items []T
	Total int64
}

// UserUpdate lists the user fields a write may change. Nil means unchanged.
type UserUpdate struct {
	Name     *string
	Email    *string
	Avatar   *string
	Role     *string
	IsActive *bool
}

// ProjectUpdate lists the project fields a write may change.
type ProjectUpdate struct {
	Key         *string
	Name        *string
	Description *string
	Status      *string
	Visibility  *string
	Tags        *[]string
}

// TaskUpdate lists the task fields a write may change. The project is
// immutable and therefore absent.
type TaskUpdate struct {
	Title          *string
	Description    *string
	Status         *string
	Priority       *string
	Type           *string
	AssigneeID     *primitive.ObjectID
	ClearAssignee  bool
	DueDate        *time.Time
	ClearDueDate   bool
	EstimatedHours *float64
	ActualHours    *float64
	Labels         *[]string
}

// TaskCount narrows a task count.
type TaskCount struct {
	Status    string
	OverdueAt *time.Time // due before this instant and not done
}

type Users interface {
	Create(ctx context.Context, u models.User) (models.User, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (models.User, error)
	GetByEmail(ctx context.Context, email string) (models.User, error)
	GetMany(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error)
	Update(ctx context.Context, id primitive.ObjectID, upd UserUpdate) (models.User, error)
	SetPasswordHash(ctx context.Context, id primitive.ObjectID, hash string) error
	Delete(ctx context.Context, id primitive.ObjectID) (int64, error)
	List(ctx context.Context, q ListQuery) (Page[models.User], error)
	Count(ctx context.Context, role string) (int64, error)
}

type Projects interface {
	Create(ctx context.Context, p models.Project) (models.Project, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (models.Project, error)
	Update(ctx context.Context, id primitive.ObjectID, upd ProjectUpdate) (models.Project, error)
	// PutMember adds m to the project, or changes m.Role when the user is
	// already a member. The change is a single atomic update of that one
	// entry; concurrent writes to other members are never lost.
	PutMember(ctx context.Context, id primitive.ObjectID, m models.Member) (models.Project, error)
	// RemoveMember takes userID off the project, atomically.
	RemoveMember(ctx context.Context, id, userID primitive.ObjectID) (models.Project, error)
	// TransferOwnership makes to the owner of every project from owns and
	// ensures to is a manager member of each.
	TransferOwnership(ctx context.Context, from, to primitive.ObjectID) (int64, error)
	Delete(ctx context.Context, id primitive.ObjectID) (int64, error)
	List(ctx context.Context, q ListQuery) (Page[models.Project], error)
	IDsForMember(ctx context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error)
	PullMember(ctx context.Context, userID primitive.ObjectID) (int64, error)
	Count(ctx context.Context) (int64, error)
}

type Tasks interface {
	Create(ctx context.Context, t models.Task) (models.Task, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (models.Task, error)
	Update(ctx context.Context, id primitive.ObjectID, upd TaskUpdate) (models.Task, error)
	Delete(ctx context.Context, id primitive.ObjectID) (int64, error)
	List(ctx context.Context, q ListQuery) (Page[models.Task], error)
	AppendComment(ctx context.Context, taskID primitive.ObjectID, c models.Comment) (models.Task, error)
	DeleteByProject(ctx context.Context, projectID primitive.ObjectID) (int64, error)
	ClearAssignee(ctx context.Context, userID primitive.ObjectID) (int64, error)
	ReassignReporter(ctx context.Context, from, to primitive.ObjectID) (int64, error)
	Count(ctx context.Context, c TaskCount) (int64, error)
}

// Stores bundles one implementation of each collection.
type Stores struct {
	Users    Users
	Projects Projects
	Tasks    Tasks
}
