// internal/domain/models/task.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Task is a unit of work inside a project. Comments are embedded and
// append-only.
type Task struct {
	ID             primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Title          string              `bson:"title" json:"title"`
	TitleCI        string              `bson:"title_ci" json:"-"`
	Description    string              `bson:"description" json:"description"`
	Status         string              `bson:"status" json:"status"`     // todo | in-progress | review | done
	Priority       string              `bson:"priority" json:"priority"` // lowest | low | medium | high | highest
	Type           string              `bson:"type" json:"type"`         // story | task | bug | epic
	AssigneeID     *primitive.ObjectID `bson:"assignee_id" json:"assigneeId,omitempty"`
	ReporterID     primitive.ObjectID  `bson:"reporter_id" json:"reporterId"`
	ProjectID      primitive.ObjectID  `bson:"project_id" json:"projectId"`
	DueDate        *time.Time          `bson:"due_date,omitempty" json:"dueDate,omitempty"`
	EstimatedHours *float64            `bson:"estimated_hours,omitempty" json:"estimatedHours,omitempty"`
	ActualHours    *float64            `bson:"actual_hours,omitempty" json:"actualHours,omitempty"`
	Labels         []string            `bson:"labels" json:"labels"`
	Comments       []Comment           `bson:"comments" json:"comments"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// Comment is a note appended to a task.
type Comment struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	Content   string             `bson:"content" json:"content"`
	AuthorID  primitive.ObjectID `bson:"author_id" json:"authorId"`
	TaskID    primitive.ObjectID `bson:"task_id" json:"taskId"`
	CreatedAt time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updatedAt"`
}

// IsOverdue reports whether the task has a due date before now and is not done.
func (t Task) IsOverdue(now time.Time) bool {
	return t.DueDate != nil && t.DueDate.Before(now) && t.Status != TaskDone
}
