package authz

import (
	"testing"
	"time"

	"github.com/dalemusser/trackhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// expected is the access matrix written out by hand. Every tuple not
// listed must be denied.
var expected = map[Resource]map[Action][]Relationship{
	ResourceProject: {
		Create:        {RelAuthenticated},
		Read:          {RelMember, RelOwner, RelAdmin},
		Update:        {RelOwner, RelAdmin},
		Delete:        {RelOwner, RelAdmin},
		ManageMembers: {RelOwner, RelAdmin},
	},
	ResourceTask: {
		Create:  {RelMember, RelOwner},
		Read:    {RelMember, RelOwner, RelAdmin},
		Update:  {RelAssignee, RelReporter, RelManager, RelAdmin},
		Delete:  {RelAssignee, RelReporter, RelManager, RelAdmin},
		Comment: {RelMember, RelOwner, RelAdmin},
	},
	ResourceUser: {
		UpdateProfile: {RelSelf},
		UpdateAny:     {RelAdmin},
		Delete:        {RelAdmin},
	},
	ResourceAdmin: {
		List:      {RelAdmin},
		Update:    {RelAdmin},
		Delete:    {RelAdmin},
		Dashboard: {RelAdmin},
	},
}

func TestPolicyTable_MatchesMatrix(t *testing.T) {
	ev := MustNew()

	for _, obj := range allResources {
		for _, act := range allActions {
			want := map[Relationship]bool{}
			for _, rel := range expected[obj][act] {
				want[rel] = true
			}
			for _, rel := range allRelationships {
				if got := ev.Allowed(rel, obj, act); got != want[rel] {
					t.Errorf("Allowed(%s, %s, %s) = %v, want %v", rel, obj, act, got, want[rel])
				}
			}
		}
	}
}

type fixture struct {
	owner, manager, dev, outsider, admin primitive.ObjectID
	project                              models.Project
}

func newFixture() fixture {
	f := fixture{
		owner:    primitive.NewObjectID(),
		manager:  primitive.NewObjectID(),
		dev:      primitive.NewObjectID(),
		outsider: primitive.NewObjectID(),
		admin:    primitive.NewObjectID(),
	}
	now := time.Now()
	f.project = models.Project{
		ID:      primitive.NewObjectID(),
		OwnerID: f.owner,
		Members: []models.Member{
			{UserID: f.owner, Role: models.MemberManager, JoinedAt: now},
			{UserID: f.manager, Role: models.MemberManager, JoinedAt: now},
			{UserID: f.dev, Role: models.MemberDeveloper, JoinedAt: now},
		},
	}
	return f
}

func user(id primitive.ObjectID) Subject  { return Subject{UserID: id, Role: models.RoleUser} }
func admin(id primitive.ObjectID) Subject { return Subject{UserID: id, Role: models.RoleAdmin} }

func TestDecide_Projects(t *testing.T) {
	ev := MustNew()
	f := newFixture()
	target := Target{Resource: ResourceProject, Project: &f.project}

	tests := []struct {
		name string
		sub  Subject
		act  Action
		want Decision
	}{
		{"anyone creates", user(f.outsider), Create, Allow},
		{"member reads", user(f.dev), Read, Allow},
		{"outsider cannot read", user(f.outsider), Read, Deny},
		{"admin reads", admin(f.admin), Read, Allow},
		{"owner updates", user(f.owner), Update, Allow},
		{"manager member cannot update", user(f.manager), Update, Deny},
		{"member cannot delete", user(f.dev), Delete, Deny},
		{"admin deletes", admin(f.admin), Delete, Allow},
		{"unauthenticated denied", Subject{}, Read, Deny},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ev.Decide(tt.sub, target, tt.act); got != tt.want {
				t.Errorf("Decide = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDecide_Tasks(t *testing.T) {
	ev := MustNew()
	f := newFixture()
	reporter := f.dev
	assignee := primitive.NewObjectID()
	// the assignee was removed from the project but is still on the task
	task := models.Task{ID: primitive.NewObjectID(), ProjectID: f.project.ID, ReporterID: reporter, AssigneeID: &assignee}
	target := Target{Resource: ResourceTask, Project: &f.project, Task: &task}

	tests := []struct {
		name string
		sub  Subject
		act  Action
		want Decision
	}{
		{"member creates", user(f.dev), Create, Allow},
		{"outsider cannot create", user(f.outsider), Create, Deny},
		{"admin cannot create outside membership", admin(f.admin), Create, Deny},
		{"outsider cannot read", user(f.outsider), Read, Deny},
		{"reporter updates", user(reporter), Update, Allow},
		{"assignee updates", user(assignee), Update, Allow},
		{"manager updates", user(f.manager), Update, Allow},
		{"owner updates as manager", user(f.owner), Update, Allow},
		{"outsider cannot update", user(f.outsider), Update, Deny},
		{"admin deletes", admin(f.admin), Delete, Allow},
		{"member comments", user(f.dev), Comment, Allow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ev.Decide(tt.sub, target, tt.act); got != tt.want {
				t.Errorf("Decide = %v, want %v", got, tt.want)
			}
		})
	}

	// a plain developer who is neither reporter nor assignee
	other := primitive.NewObjectID()
	f.project.Members = append(f.project.Members, models.Member{UserID: other, Role: models.MemberMember})
	if got := ev.Decide(user(other), target, Update); got != Deny {
		t.Errorf("plain member update = %v, want deny", got)
	}
}

func TestDecide_SelfProtection(t *testing.T) {
	ev := MustNew()
	a, b := primitive.NewObjectID(), primitive.NewObjectID()

	self := Target{Resource: ResourceUser, UserID: a}
	if got := ev.Decide(admin(a), self, Delete); got != DenySelfProtection {
		t.Errorf("admin self-delete = %v, want self-protection", got)
	}
	deactivate := Target{Resource: ResourceUser, UserID: a, Deactivate: true}
	if got := ev.Decide(admin(a), deactivate, UpdateAny); got != DenySelfProtection {
		t.Errorf("admin self-deactivate = %v, want self-protection", got)
	}
	demote := Target{Resource: ResourceUser, UserID: a, Demote: true}
	if got := ev.Decide(admin(a), demote, UpdateAny); got != DenySelfProtection {
		t.Errorf("admin self-demote = %v, want self-protection", got)
	}
	if got := ev.Decide(admin(a), self, UpdateAny); got != Allow {
		t.Errorf("admin renaming self = %v, want allow", got)
	}

	other := Target{Resource: ResourceUser, UserID: b, Deactivate: true}
	if got := ev.Decide(admin(a), other, UpdateAny); got != Allow {
		t.Errorf("admin deactivating other = %v, want allow", got)
	}
	if got := ev.Decide(admin(a), Target{Resource: ResourceUser, UserID: b}, Delete); got != Allow {
		t.Errorf("admin deleting other = %v, want allow", got)
	}
	if got := ev.Decide(user(b), Target{Resource: ResourceUser, UserID: a}, Delete); got != Deny {
		t.Errorf("user deleting other = %v, want deny", got)
	}
	if got := ev.Decide(user(b), Target{Resource: ResourceUser, UserID: b}, UpdateProfile); got != Allow {
		t.Errorf("self profile update = %v, want allow", got)
	}
}

func TestRelationships_Pure(t *testing.T) {
	f := newFixture()
	before := len(f.project.Members)
	_ = Relationships(user(f.dev), Target{Resource: ResourceProject, Project: &f.project})
	if len(f.project.Members) != before {
		t.Error("Relationships must not modify the target")
	}
}
