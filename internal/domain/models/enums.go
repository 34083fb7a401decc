// internal/domain/models/enums.go
package models

// Global user roles.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Project roles held by members.
const (
	MemberManager   = "manager"
	MemberDeveloper = "developer"
	MemberMember    = "member"
)

// Project statuses.
const (
	ProjectActive    = "active"
	ProjectArchived  = "archived"
	ProjectCompleted = "completed"
)

// Project visibilities.
const (
	VisibilityPrivate = "private"
	VisibilityTeam    = "team"
	VisibilityPublic  = "public"
)

// Task workflow statuses, in order.
const (
	TaskTodo       = "todo"
	TaskInProgress = "in-progress"
	TaskReview     = "review"
	TaskDone       = "done"
)

// Task priorities.
const (
	PriorityLowest  = "lowest"
	PriorityLow     = "low"
	PriorityMedium  = "medium"
	PriorityHigh    = "high"
	PriorityHighest = "highest"
)

// Task types.
const (
	TypeStory = "story"
	TypeTask  = "task"
	TypeBug   = "bug"
	TypeEpic  = "epic"
)

// Allowed values per enum field, used by validation and list filters.
var (
	UserRoles         = []string{RoleAdmin, RoleUser}
	MemberRoles       = []string{MemberManager, MemberDeveloper, MemberMember}
	ProjectStatuses   = []string{ProjectActive, ProjectArchived, ProjectCompleted}
	ProjectVisibility = []string{VisibilityPrivate, VisibilityTeam, VisibilityPublic}
	TaskStatuses      = []string{TaskTodo, TaskInProgress, TaskReview, TaskDone}
	TaskPriorities    = []string{PriorityLowest, PriorityLow, PriorityMedium, PriorityHigh, PriorityHighest}
	TaskTypes         = []string{TypeStory, TypeTask, TypeBug, TypeEpic}
)

// OneOf reports whether v is one of allowed.
func OneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}
