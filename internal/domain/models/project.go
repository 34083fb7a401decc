// internal/domain/models/project.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Project groups tasks under a short uppercase key (e.g. "DEMO").
//
// The owner is always present in Members with the manager role.
type Project struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Key         string             `bson:"key" json:"key"`
	Name        string             `bson:"name" json:"name"`
	NameCI      string             `bson:"name_ci" json:"-"`
	Description string             `bson:"description" json:"description"`
	Status      string             `bson:"status" json:"status"`         // active | archived | completed
	Visibility  string             `bson:"visibility" json:"visibility"` // private | team | public
	Tags        []string           `bson:"tags" json:"tags"`
	OwnerID     primitive.ObjectID `bson:"owner_id" json:"ownerId"`
	Members     []Member           `bson:"members" json:"members"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// Member is one entry of a project's membership list.
type Member struct {
	UserID   primitive.ObjectID `bson:"user_id" json:"userId"`
	Role     string             `bson:"role" json:"role"` // manager | developer | member
	JoinedAt time.Time          `bson:"joined_at" json:"joinedAt"`
}

// MemberRole returns the project role of userID and whether they belong
// to the project at all. The owner counts as a manager even if the
// members list was written without them.
func (p Project) MemberRole(userID primitive.ObjectID) (string, bool) {
	for _, m := range p.Members {
		if m.UserID == userID {
			return m.Role, true
		}
	}
	if p.OwnerID == userID {
		return MemberManager, true
	}
	return "", false
}

// HasMember reports whether userID is the owner or listed as a member.
func (p Project) HasMember(userID primitive.ObjectID) bool {
	_, ok := p.MemberRole(userID)
	return ok
}
