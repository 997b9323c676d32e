package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MaxPostTextLength caps the text of posts and replies.
const MaxPostTextLength = 500

// Reply is embedded in a post. It denormalizes the replier's username and
// profile picture so the feed can render without extra lookups; username
// changes are propagated by the user update flow.
type Reply struct {
	UserID         primitive.ObjectID `bson:"userId" json:"userId"`
	Text           string             `bson:"text" json:"text"`
	UserProfilePic string             `bson:"userProfilePic" json:"userProfilePic"`
	Username       string             `bson:"username" json:"username"`
}

// Post is a text/image post. Likes holds the ids of users who liked it.
type Post struct {
	ID        primitive.ObjectID   `bson:"_id,omitempty" json:"_id"`
	PostedBy  primitive.ObjectID   `bson:"postedBy" json:"postedBy"`
	Text      string               `bson:"text" json:"text"`
	Img       string               `bson:"img,omitempty" json:"img,omitempty"`
	Likes     []primitive.ObjectID `bson:"likes" json:"likes"`
	Replies   []Reply              `bson:"replies" json:"replies"`
	CreatedAt time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time            `bson:"updatedAt" json:"updatedAt"`
}
