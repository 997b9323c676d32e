// Package models defines the documents persisted in MongoDB.
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is a member of the network. Followers and Following hold the ids of
// related users as hex strings so they can be returned to clients unchanged.
type User struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Name       string             `bson:"name" json:"name"`
	Email      string             `bson:"email" json:"email"`
	Username   string             `bson:"username" json:"username"`
	Password   string             `bson:"password" json:"-"`
	ProfilePic string             `bson:"profilePic" json:"profilePic"`
	Followers  []string           `bson:"followers" json:"followers"`
	Following  []string           `bson:"following" json:"following"`
	Bio        string             `bson:"bio" json:"bio"`
	IsFrozen   bool               `bson:"isFrozen" json:"isFrozen"`
	CreatedAt  time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Public returns a copy safe to send to clients (no password hash).
// The json tag on Password already hides it; this exists for callers that
// re-marshal the user through interface{} paths.
func (u User) Public() User {
	u.Password = ""
	return u
}
