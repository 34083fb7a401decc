// Package authz is the access control evaluator.
//
// A decision is a pure function of the subject, a snapshot of the target
// and the action. The evaluator first works out which relationships the
// subject has to the target (owner, member, assignee, ...) and then looks
// each one up in a single policy table. The table is a casbin model and
// CSV policy embedded in the binary; it is expanded into an in-memory
// lookup once at construction and never changes afterwards.
package authz

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/casbin/casbin/v3"
	"github.com/dalemusser/trackhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

//go:embed model.conf policy.csv
var embedFS embed.FS

type Resource string

const (
	ResourceProject Resource = "project"
	ResourceTask    Resource = "task"
	ResourceUser    Resource = "user"
	ResourceAdmin   Resource = "admin"
)

type Action string

const (
	Create        Action = "create"
	Read          Action = "read"
	Update        Action = "update"
	Delete        Action = "delete"
	ManageMembers Action = "manage_members"
	Comment       Action = "comment"
	UpdateProfile Action = "update_profile"
	UpdateAny     Action = "update_any"
	List          Action = "list"
	Dashboard     Action = "dashboard"
)

// Relationship is one way a subject can relate to a target.
type Relationship string

const (
	RelAuthenticated Relationship = "authenticated"
	RelAdmin         Relationship = "admin"
	RelOwner         Relationship = "owner"
	RelMember        Relationship = "member"
	RelManager       Relationship = "manager"
	RelAssignee      Relationship = "assignee"
	RelReporter      Relationship = "reporter"
	RelSelf          Relationship = "self"
)

var (
	allRelationships = []Relationship{RelAuthenticated, RelAdmin, RelOwner, RelMember, RelManager, RelAssignee, RelReporter, RelSelf}
	allResources     = []Resource{ResourceProject, ResourceTask, ResourceUser, ResourceAdmin}
	allActions       = []Action{Create, Read, Update, Delete, ManageMembers, Comment, UpdateProfile, UpdateAny, List, Dashboard}
)

// Decision is the evaluator's answer.
type Decision int

const (
	Deny Decision = iota
	Allow
	DenySelfProtection
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case DenySelfProtection:
		return "deny_self_protection"
	}
	return "deny"
}

// Subject is the requester.
type Subject struct {
	UserID primitive.ObjectID
	Role   string
}

// Target is a snapshot of what the subject wants to act on. Project is set
// for project and task targets (the task's parent); Task for task targets;
// UserID for user targets.
type Target struct {
	Resource Resource
	Project  *models.Project
	Task     *models.Task
	UserID   primitive.ObjectID

	// Deactivate and Demote describe a user update_any request that would
	// set isActive=false or drop the admin role.
	Deactivate bool
	Demote     bool
}

type tableKey struct {
	rel Relationship
	obj Resource
	act Action
}

// Evaluator answers access questions. It is safe for concurrent use.
type Evaluator struct {
	table map[tableKey]bool
}

// New loads the embedded policy through casbin and expands it into a
// lookup table.
func New() (*Evaluator, error) {
	dir, err := os.MkdirTemp("", "trackhub-authz-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	for _, name := range []string{"model.conf", "policy.csv"} {
		data, err := embedFS.ReadFile(name)
		if err != nil {
			return nil, err
		}
		if err := os.WriteFile(filepath.Join(dir, name), data, 0600); err != nil {
			return nil, err
		}
	}

	e, err := casbin.NewEnforcer(filepath.Join(dir, "model.conf"), filepath.Join(dir, "policy.csv"))
	if err != nil {
		return nil, fmt.Errorf("load access policy: %w", err)
	}

	table := make(map[tableKey]bool)
	for _, rel := range allRelationships {
		for _, obj := range allResources {
			for _, act := range allActions {
				ok, err := e.Enforce(string(rel), string(obj), string(act))
				if err != nil {
					return nil, fmt.Errorf("evaluate %s/%s/%s: %w", rel, obj, act, err)
				}
				if ok {
					table[tableKey{rel, obj, act}] = true
				}
			}
		}
	}
	return &Evaluator{table: table}, nil
}

// MustNew is New that panics; for tests and package-level wiring.
func MustNew() *Evaluator {
	ev, err := New()
	if err != nil {
		panic(err)
	}
	return ev
}

// Relationships lists every relationship sub has to t.
func Relationships(sub Subject, t Target) []Relationship {
	if sub.UserID.IsZero() {
		return nil
	}
	rels := []Relationship{RelAuthenticated}
	if sub.Role == models.RoleAdmin {
		rels = append(rels, RelAdmin)
	}
	if t.Project != nil {
		if t.Project.OwnerID == sub.UserID {
			rels = append(rels, RelOwner)
		}
		if role, ok := t.Project.MemberRole(sub.UserID); ok {
			rels = append(rels, RelMember)
			if role == models.MemberManager {
				rels = append(rels, RelManager)
			}
		}
	}
	if t.Task != nil {
		if t.Task.AssigneeID != nil && *t.Task.AssigneeID == sub.UserID {
			rels = append(rels, RelAssignee)
		}
		if t.Task.ReporterID == sub.UserID {
			rels = append(rels, RelReporter)
		}
	}
	if t.Resource == ResourceUser && t.UserID == sub.UserID {
		rels = append(rels, RelSelf)
	}
	return rels
}

// Decide returns Allow when any relationship of sub to t is granted act on
// t's resource. An admin deleting, deactivating or demoting their own
// account gets DenySelfProtection before the table is consulted.
func (e *Evaluator) Decide(sub Subject, t Target, act Action) Decision {
	if selfProtected(sub, t, act) {
		return DenySelfProtection
	}
	for _, rel := range Relationships(sub, t) {
		if e.table[tableKey{rel, t.Resource, act}] {
			return Allow
		}
	}
	return Deny
}

// Allowed reports whether rel alone grants act on obj.
func (e *Evaluator) Allowed(rel Relationship, obj Resource, act Action) bool {
	return e.table[tableKey{rel, obj, act}]
}

func selfProtected(sub Subject, t Target, act Action) bool {
	if t.Resource != ResourceUser || sub.UserID.IsZero() || t.UserID != sub.UserID {
		return false
	}
	if sub.Role != models.RoleAdmin {
		return false
	}
	switch act {
	case Delete:
		return true
	case UpdateAny:
		return t.Deactivate || t.Demote
	}
	return false
}
