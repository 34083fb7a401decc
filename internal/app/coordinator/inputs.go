package coordinator

import (
	"time"

	"github.com/dalemusser/trackhub/internal/app/system/paging"
)

// Inputs mirror the JSON request bodies. Pointer fields are optional on
// update: nil leaves the stored value unchanged.

type RegisterInput struct {
	Name     string `json:"name" validate:"required,max=100" label:"Name"`
	Email    string `json:"email" validate:"required,email,max=254" label:"Email"`
	Password string `json:"password" validate:"required,min=6,max=128" label:"Password"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required" label:"Email"`
	Password string `json:"password" validate:"required" label:"Password"`
}

type ProfileInput struct {
	Name   *string `json:"name" validate:"omitempty,min=1,max=100" label:"Name"`
	Email  *string `json:"email" validate:"omitempty,email,max=254" label:"Email"`
	Avatar *string `json:"avatar" validate:"omitempty,max=500" label:"Avatar"`
}

type ChangePasswordInput struct {
	CurrentPassword string `json:"currentPassword" validate:"required" label:"Current password"`
	NewPassword     string `json:"newPassword" validate:"required,min=6,max=128" label:"New password"`
}

type CreateProjectInput struct {
	Name        string   `json:"name" validate:"required,max=100" label:"Name"`
	Key         string   `json:"key" validate:"omitempty,projectkey" label:"Key"`
	Description string   `json:"description" validate:"max=2000" label:"Description"`
	Status      string   `json:"status" validate:"omitempty,oneof=active archived completed" label:"Status"`
	Visibility  string   `json:"visibility" validate:"omitempty,oneof=private team public" label:"Visibility"`
	Tags        []string `json:"tags" validate:"max=20,dive,max=30" label:"Tags"`
}

type UpdateProjectInput struct {
	Name        *string   `json:"name" validate:"omitempty,min=1,max=100" label:"Name"`
	Key         *string   `json:"key" validate:"omitempty,projectkey" label:"Key"`
	Description *string   `json:"description" validate:"omitempty,max=2000" label:"Description"`
	Status      *string   `json:"status" validate:"omitempty,oneof=active archived completed" label:"Status"`
	Visibility  *string   `json:"visibility" validate:"omitempty,oneof=private team public" label:"Visibility"`
	Tags        *[]string `json:"tags" validate:"omitempty,max=20,dive,max=30" label:"Tags"`
}

// AddMemberInput names the new member by id or by email.
type AddMemberInput struct {
	UserID string `json:"userId" validate:"omitempty,objectid" label:"User"`
	Email  string `json:"email" validate:"omitempty,email" label:"Email"`
	Role   string `json:"role" validate:"omitempty,oneof=manager developer member" label:"Role"`
}

type CreateTaskInput struct {
	Title          string     `json:"title" validate:"required,max=200" label:"Title"`
	Description    string     `json:"description" validate:"max=5000" label:"Description"`
	Project        string     `json:"project" validate:"required,objectid" label:"Project"`
	Status         string     `json:"status" validate:"omitempty,oneof=todo in-progress review done" label:"Status"`
	Priority       string     `json:"priority" validate:"omitempty,oneof=lowest low medium high highest" label:"Priority"`
	Type           string     `json:"type" validate:"omitempty,oneof=story task bug epic" label:"Type"`
	Assignee       string     `json:"assignee" validate:"omitempty,objectid" label:"Assignee"`
	Reporter       string     `json:"reporter" validate:"omitempty,objectid" label:"Reporter"`
	DueDate        *time.Time `json:"dueDate" label:"Due date"`
	EstimatedHours *float64   `json:"estimatedHours" validate:"omitempty,gte=0" label:"Estimated hours"`
	Labels         []string   `json:"labels" validate:"max=20,dive,max=30" label:"Labels"`
}

// UpdateTaskInput has no project field: a task never moves.
// Assignee "" clears the assignee; nil leaves it alone. ClearDueDate
// removes the due date.
type UpdateTaskInput struct {
	Title          *string    `json:"title" validate:"omitempty,min=1,max=200" label:"Title"`
	Description    *string    `json:"description" validate:"omitempty,max=5000" label:"Description"`
	Status         *string    `json:"status" validate:"omitempty,oneof=todo in-progress review done" label:"Status"`
	Priority       *string    `json:"priority" validate:"omitempty,oneof=lowest low medium high highest" label:"Priority"`
	Type           *string    `json:"type" validate:"omitempty,oneof=story task bug epic" label:"Type"`
	Assignee       *string    `json:"assignee" label:"Assignee"`
	DueDate        *time.Time `json:"dueDate" label:"Due date"`
	ClearDueDate   bool       `json:"clearDueDate"`
	EstimatedHours *float64   `json:"estimatedHours" validate:"omitempty,gte=0" label:"Estimated hours"`
	ActualHours    *float64   `json:"actualHours" validate:"omitempty,gte=0" label:"Actual hours"`
	Labels         *[]string  `json:"labels" validate:"omitempty,max=20,dive,max=30" label:"Labels"`
}

type CommentInput struct {
	Content string `json:"content" validate:"required,max=5000" label:"Comment"`
}

// AdminUserInput is the admin-side user edit.
type AdminUserInput struct {
	Name     *string `json:"name" validate:"omitempty,min=1,max=100" label:"Name"`
	Email    *string `json:"email" validate:"omitempty,email,max=254" label:"Email"`
	Role     *string `json:"role" validate:"omitempty,oneof=admin user" label:"Role"`
	IsActive *bool   `json:"isActive" label:"Active"`
}

// ListParams carries paging, search and enum filters for list operations.
// Filters that do not apply to the listed kind are ignored.
type ListParams struct {
	Page     int    `json:"page"`
	Limit    int    `json:"limit"`
	Search   string `json:"search" validate:"max=100" label:"Search"`
	Role     string `json:"role" validate:"omitempty,oneof=admin user" label:"Role"`
	Status   string `json:"status" label:"Status"`
	Priority string `json:"priority" validate:"omitempty,oneof=lowest low medium high highest" label:"Priority"`
	Type     string `json:"type" validate:"omitempty,oneof=story task bug epic" label:"Type"`
	Project  string `json:"project" validate:"omitempty,objectid" label:"Project"`
}

func (p ListParams) paging() paging.Params { return paging.Clamp(p.Page, p.Limit) }

// PageResult is one page of views plus its pagination block.
type PageResult[T any] struct {
	Items      []T         `json:"items"`
	Pagination paging.Info `json:"pagination"`
}
