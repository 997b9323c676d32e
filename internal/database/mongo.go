// Package database manages the MongoDB connection shared by the repositories.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/Ebunwadi/SoftwareDevelopmentProject/internal/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Collection names
const (
	CollUsers         = "users"
	CollPosts         = "posts"
	CollConversations = "conversations"
	CollMessages      = "messages"
)

// DB holds the connected database handle
var DB *mongo.Database

var client *mongo.Client

// Initialize connects to MongoDB and pings it. The URI may carry auth and
// options (?authSource=admin etc).
func Initialize(ctx context.Context, uri, dbName string) error {
	opts := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(100).
		SetServerSelectionTimeout(10 * time.Second)

	connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	cli, err := mongo.Connect(connectCtx, opts)
	if err != nil {
		return fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := cli.Ping(connectCtx, nil); err != nil {
		return fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	client = cli
	DB = cli.Database(dbName)

	logger.Log.Info("Database connected",
		zap.String("database", dbName),
	)
	return nil
}

// Close disconnects from MongoDB
func Close(ctx context.Context) error {
	if client == nil {
		return nil
	}
	return client.Disconnect(ctx)
}

// EnsureIndexes creates the indexes the query paths rely on. Safe to run on
// every startup; Mongo treats existing identical indexes as a no-op.
func EnsureIndexes(ctx context.Context) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	userIdx := []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
	}
	if _, err := DB.Collection(CollUsers).Indexes().CreateMany(ctx, userIdx); err != nil {
		return fmt.Errorf("failed to create user indexes: %w", err)
	}

	postIdx := []mongo.IndexModel{
		{Keys: bson.D{{Key: "postedBy", Value: 1}, {Key: "createdAt", Value: -1}}},
	}
	if _, err := DB.Collection(CollPosts).Indexes().CreateMany(ctx, postIdx); err != nil {
		return fmt.Errorf("failed to create post indexes: %w", err)
	}

	convIdx := []mongo.IndexModel{
		{Keys: bson.D{{Key: "participants", Value: 1}}},
	}
	if _, err := DB.Collection(CollConversations).Indexes().CreateMany(ctx, convIdx); err != nil {
		return fmt.Errorf("failed to create conversation indexes: %w", err)
	}

	msgIdx := []mongo.IndexModel{
		{Keys: bson.D{{Key: "conversationId", Value: 1}, {Key: "createdAt", Value: 1}}},
		{Keys: bson.D{{Key: "conversationId", Value: 1}, {Key: "seen", Value: 1}, {Key: "sender", Value: 1}}},
	}
	if _, err := DB.Collection(CollMessages).Indexes().CreateMany(ctx, msgIdx); err != nil {
		return fmt.Errorf("failed to create message indexes: %w", err)
	}

	logger.Log.Info("Database indexes ensured")
	return nil
}
