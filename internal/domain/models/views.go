// internal/domain/models/views.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// The view types below are the outbound shapes: references are resolved
// to name/email so callers never need a second lookup.

// UserRef is the short form of a user embedded in other views.
type UserRef struct {
	ID     primitive.ObjectID `json:"id"`
	Name   string             `json:"name"`
	Email  string             `json:"email"`
	Avatar string             `json:"avatar,omitempty"`
}

// ProjectRef is the short form of a project embedded in task views.
type ProjectRef struct {
	ID   primitive.ObjectID `json:"id"`
	Name string             `json:"name"`
	Key  string             `json:"key"`
}

type MemberView struct {
	User     UserRef   `json:"user"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joinedAt"`
}

type ProjectView struct {
	ID          primitive.ObjectID `json:"id"`
	Key         string             `json:"key"`
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Status      string             `json:"status"`
	Visibility  string             `json:"visibility"`
	Tags        []string           `json:"tags"`
	Owner       UserRef            `json:"owner"`
	Members     []MemberView       `json:"members"`
	CreatedAt   time.Time          `json:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt"`
}

type CommentView struct {
	ID        primitive.ObjectID `json:"id"`
	Content   string             `json:"content"`
	Author    UserRef            `json:"author"`
	CreatedAt time.Time          `json:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

type TaskView struct {
	ID             primitive.ObjectID `json:"id"`
	Title          string             `json:"title"`
	Description    string             `json:"description"`
	Status         string             `json:"status"`
	Priority       string             `json:"priority"`
	Type           string             `json:"type"`
	Project        ProjectRef         `json:"project"`
	Assignee       *UserRef           `json:"assignee,omitempty"`
	Reporter       UserRef            `json:"reporter"`
	DueDate        *time.Time         `json:"dueDate,omitempty"`
	EstimatedHours *float64           `json:"estimatedHours,omitempty"`
	ActualHours    *float64           `json:"actualHours,omitempty"`
	Labels         []string           `json:"labels"`
	Comments       []CommentView      `json:"comments"`
	CreatedAt      time.Time          `json:"createdAt"`
	UpdatedAt      time.Time          `json:"updatedAt"`
}

// Ref returns the short form of u.
func (u User) Ref() UserRef {
	return UserRef{ID: u.ID, Name: u.Name, Email: u.Email, Avatar: u.Avatar}
}

// Ref returns the short form of p.
func (p Project) Ref() ProjectRef {
	return ProjectRef{ID: p.ID, Name: p.Name, Key: p.Key}
}

// Dashboard is the admin overview.
type Dashboard struct {
	TotalUsers     int64      `json:"totalUsers"`
	AdminUsers     int64      `json:"adminUsers"`
	TotalProjects  int64      `json:"totalProjects"`
	TotalTasks     int64      `json:"totalTasks"`
	CompletedTasks int64      `json:"completedTasks"`
	OverdueTasks   int64      `json:"overdueTasks"`
	RecentUsers    []User     `json:"recentUsers"`
	RecentProjects []Project  `json:"recentProjects"`
	RecentTasks    []TaskView `json:"recentTasks"`
}
