// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is an account that can sign in, own projects and be assigned tasks.
//
// NOTE:
//   - Email is stored lowercased; a unique index on it enforces
//     case-insensitive uniqueness.
//   - PasswordHash never leaves the server (json:"-").
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string             `bson:"name" json:"name"`
	NameCI       string             `bson:"name_ci" json:"-"` // lowercase, diacritics-stripped
	Email        string             `bson:"email" json:"email"`
	Avatar       string             `bson:"avatar,omitempty" json:"avatar,omitempty"`
	Role         string             `bson:"role" json:"role"` // admin | user
	IsActive     bool               `bson:"is_active" json:"isActive"`
	PasswordHash string             `bson:"password_hash" json:"-"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// IsAdmin reports whether the user carries the global admin role.
func (u User) IsAdmin() bool { return u.Role == RoleAdmin }
