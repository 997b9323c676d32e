// Package repository implements the persistence layer on top of MongoDB.
// Handlers and the realtime layer depend on the interfaces declared here so
// tests can substitute in-memory fakes.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Ebunwadi/SoftwareDevelopmentProject/internal/metrics"
	"github.com/Ebunwadi/SoftwareDevelopmentProject/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
)

// observe records a store call's latency and outcome against the
// database query metrics.
func observe(start time.Time, collection, operation string, err error) {
	metrics.RecordDatabaseQuery(collection, operation, time.Since(start), err)
}

// UserRepository handles all database operations for users
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByEmailOrUsername(ctx context.Context, email, username string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	SetFrozen(ctx context.Context, id primitive.ObjectID, frozen bool) error

	// Follow updates both sides of the relationship; Unfollow reverses it.
	Follow(ctx context.Context, followerID, followedID primitive.ObjectID) error
	Unfollow(ctx context.Context, followerID, followedID primitive.ObjectID) error

	// Suggested returns up to limit users the given user does not already
	// follow, excluding the user themselves.
	Suggested(ctx context.Context, userID primitive.ObjectID, following []string, limit int) ([]models.User, error)
}

// PostRepository handles all database operations for posts
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Post, error)
	Update(ctx context.Context, post *models.Post) error
	Delete(ctx context.Context, id primitive.ObjectID) error

	Like(ctx context.Context, postID, userID primitive.ObjectID) error
	Unlike(ctx context.Context, postID, userID primitive.ObjectID) error
	AddReply(ctx context.Context, postID primitive.ObjectID, reply models.Reply) error

	// Feed returns posts authored by the given users, newest first. The
	// ids come in as hex strings straight from User.Following.
	Feed(ctx context.Context, following []string) ([]models.Post, error)
	ByAuthor(ctx context.Context, authorID primitive.ObjectID) ([]models.Post, error)

	// UpdateReplyIdentity rewrites the denormalized username/profile picture
	// on every reply the user has made. Called when a profile changes.
	UpdateReplyIdentity(ctx context.Context, userID primitive.ObjectID, username, profilePic string) error
}

// ConversationStore handles conversation documents. The realtime seen-receipt
// flow uses MarkLastMessageSeen and GetByID; the REST layer uses the rest.
type ConversationStore interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Conversation, error)
	FindByParticipants(ctx context.Context, a, b primitive.ObjectID) (*models.Conversation, error)
	Create(ctx context.Context, conv *models.Conversation) error
	UpdateLastMessage(ctx context.Context, id primitive.ObjectID, last models.LastMessage) error
	MarkLastMessageSeen(ctx context.Context, id primitive.ObjectID) error
	ListForUser(ctx context.Context, userID primitive.ObjectID) ([]models.Conversation, error)
}

// MessageStore handles message documents. MarkConversationSeen is the bulk
// update behind the seen-receipt flow: one UpdateMany, never per-message.
type MessageStore interface {
	Insert(ctx context.Context, msg *models.Message) error
	ListByConversation(ctx context.Context, conversationID primitive.ObjectID) ([]models.Message, error)
	MarkConversationSeen(ctx context.Context, conversationID, requesterID primitive.ObjectID) (int64, error)
}
