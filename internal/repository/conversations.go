package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Ebunwadi/SoftwareDevelopmentProject/internal/database"
	"github.com/Ebunwadi/SoftwareDevelopmentProject/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type conversationStore struct {
	coll *mongo.Collection
}

// NewConversationStore creates a conversation store backed by the shared database.
func NewConversationStore() ConversationStore {
	return &conversationStore{coll: database.DB.Collection(database.CollConversations)}
}

func (s *conversationStore) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Conversation, error) {
	var conv models.Conversation
	start := time.Now()
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&conv)
	observe(start, "conversations", "find_one", err)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (s *conversationStore) FindByParticipants(ctx context.Context, a, b primitive.ObjectID) (*models.Conversation, error) {
	var conv models.Conversation
	start := time.Now()
	err := s.coll.FindOne(ctx, bson.M{
		"participants": bson.M{"$all": bson.A{a, b}},
	}).Decode(&conv)
	observe(start, "conversations", "find_one", err)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (s *conversationStore) Create(ctx context.Context, conv *models.Conversation) error {
	if conv == nil || len(conv.Participants) != 2 {
		return ErrInvalidInput
	}
	now := time.Now().UTC()
	conv.CreatedAt = now
	conv.UpdatedAt = now

	start := time.Now()
	res, err := s.coll.InsertOne(ctx, conv)
	observe(start, "conversations", "insert", err)
	if err != nil {
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		conv.ID = oid
	}
	return nil
}

func (s *conversationStore) UpdateLastMessage(ctx context.Context, id primitive.ObjectID, last models.LastMessage) error {
	start := time.Now()
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"lastMessage": last, "updatedAt": time.Now().UTC()}},
	)
	observe(start, "conversations", "update", err)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkLastMessageSeen flips only the seen flag on the conversation
// preview, leaving text and sender untouched.
func (s *conversationStore) MarkLastMessageSeen(ctx context.Context, id primitive.ObjectID) error {
	start := time.Now()
	_, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"lastMessage.seen": true}},
	)
	observe(start, "conversations", "update", err)
	return err
}

func (s *conversationStore) ListForUser(ctx context.Context, userID primitive.ObjectID) ([]models.Conversation, error) {
	opts := options.Find().SetSort(bson.D{{Key: "updatedAt", Value: -1}})
	start := time.Now()
	cur, err := s.coll.Find(ctx, bson.M{"participants": userID}, opts)
	observe(start, "conversations", "find", err)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	convs := []models.Conversation{}
	if err := cur.All(ctx, &convs); err != nil {
		return nil, err
	}
	return convs, nil
}
