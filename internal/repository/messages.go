package repository

import (
	"context"
	"time"

	"github.com/Ebunwadi/SoftwareDevelopmentProject/internal/database"
	"github.com/Ebunwadi/SoftwareDevelopmentProject/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type messageStore struct {
	coll *mongo.Collection
}

// NewMessageStore creates a message store backed by the shared database.
func NewMessageStore() MessageStore {
	return &messageStore{coll: database.DB.Collection(database.CollMessages)}
}

func (s *messageStore) Insert(ctx context.Context, msg *models.Message) error {
	if msg == nil {
		return ErrInvalidInput
	}
	now := time.Now().UTC()
	msg.CreatedAt = now
	msg.UpdatedAt = now

	start := time.Now()
	res, err := s.coll.InsertOne(ctx, msg)
	observe(start, "messages", "insert", err)
	if err != nil {
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		msg.ID = oid
	}
	return nil
}

func (s *messageStore) ListByConversation(ctx context.Context, conversationID primitive.ObjectID) ([]models.Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	start := time.Now()
	cur, err := s.coll.Find(ctx, bson.M{"conversationId": conversationID}, opts)
	observe(start, "messages", "find", err)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	msgs := []models.Message{}
	if err := cur.All(ctx, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// MarkConversationSeen marks every unseen message in the conversation
// that the requester did not send. One UpdateMany, never per-message.
func (s *messageStore) MarkConversationSeen(ctx context.Context, conversationID, requesterID primitive.ObjectID) (int64, error) {
	start := time.Now()
	res, err := s.coll.UpdateMany(ctx,
		bson.M{
			"conversationId": conversationID,
			"seen":           false,
			"sender":         bson.M{"$ne": requesterID},
		},
		bson.M{"$set": bson.M{"seen": true, "updatedAt": time.Now().UTC()}},
	)
	observe(start, "messages", "update_many", err)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}
