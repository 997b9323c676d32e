package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// LastMessage is the conversation's embedded preview of its newest message.
// Seen here drives the unread indicator in conversation lists.
type LastMessage struct {
	Text   string             `bson:"text" json:"text"`
	Sender primitive.ObjectID `bson:"sender" json:"sender"`
	Seen   bool               `bson:"seen" json:"seen"`
}

// Conversation links exactly two participants. Participant entries are user
// ids; the REST layer joins usernames and profile pictures when listing.
type Conversation struct {
	ID           primitive.ObjectID   `bson:"_id,omitempty" json:"_id"`
	Participants []primitive.ObjectID `bson:"participants" json:"participants"`
	LastMessage  LastMessage          `bson:"lastMessage" json:"lastMessage"`
	CreatedAt    time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time            `bson:"updatedAt" json:"updatedAt"`
}

// OtherParticipant returns the participant that is not the given user.
// ok is false when the user is not part of the conversation.
func (c *Conversation) OtherParticipant(userID primitive.ObjectID) (primitive.ObjectID, bool) {
	var other primitive.ObjectID
	found := false
	for _, p := range c.Participants {
		if p == userID {
			found = true
		} else {
			other = p
		}
	}
	if !found || other.IsZero() {
		return primitive.NilObjectID, false
	}
	return other, true
}

// Message is one direct message. A message starts unseen and transitions to
// seen exactly once, triggered by the recipient's seen-mark request.
type Message struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	ConversationID primitive.ObjectID `bson:"conversationId" json:"conversationId"`
	Sender         primitive.ObjectID `bson:"sender" json:"sender"`
	Text           string             `bson:"text" json:"text"`
	Seen           bool               `bson:"seen" json:"seen"`
	Img            string             `bson:"img,omitempty" json:"img,omitempty"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time          `bson:"updatedAt" json:"updatedAt"`
}
