// Package seed fills the database with realistic development data.
package seed

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/Ebunwadi/SoftwareDevelopmentProject/internal/database"
	"github.com/Ebunwadi/SoftwareDevelopmentProject/internal/logger"
	"github.com/Ebunwadi/SoftwareDevelopmentProject/internal/models"
	"github.com/Ebunwadi/SoftwareDevelopmentProject/internal/repository"
)

// DefaultPassword is the password every seeded account gets.
const DefaultPassword = "password1"

// Seeder creates fake users, posts and conversations.
type Seeder struct {
	users         repository.UserRepository
	posts         repository.PostRepository
	conversations repository.ConversationStore
	messages      repository.MessageStore
}

// NewSeeder creates a seeder over the given repositories.
func NewSeeder(
	users repository.UserRepository,
	posts repository.PostRepository,
	conversations repository.ConversationStore,
	messages repository.MessageStore,
) *Seeder {
	_ = gofakeit.Seed(time.Now().UnixNano())
	return &Seeder{
		users:         users,
		posts:         posts,
		conversations: conversations,
		messages:      messages,
	}
}

// SeedDev fills the database with a realistic development data set.
func (s *Seeder) SeedDev(ctx context.Context) error {
	users, err := s.seedUsers(ctx, 20)
	if err != nil {
		return fmt.Errorf("seed users: %w", err)
	}

	if err := s.seedFollows(ctx, users); err != nil {
		return fmt.Errorf("seed follows: %w", err)
	}

	if err := s.seedPosts(ctx, users, 60); err != nil {
		return fmt.Errorf("seed posts: %w", err)
	}

	if err := s.seedConversations(ctx, users, 15); err != nil {
		return fmt.Errorf("seed conversations: %w", err)
	}

	logger.Log.Info("Development seed complete", zap.Int("users", len(users)))
	return nil
}

// SeedTest creates a minimal data set for integration tests.
func (s *Seeder) SeedTest(ctx context.Context) error {
	users, err := s.seedUsers(ctx, 3)
	if err != nil {
		return fmt.Errorf("seed users: %w", err)
	}
	if err := s.seedPosts(ctx, users, 5); err != nil {
		return fmt.Errorf("seed posts: %w", err)
	}
	return nil
}

// Clean removes everything from the seeded collections.
func (s *Seeder) Clean(ctx context.Context) error {
	for _, coll := range []string{
		database.CollUsers,
		database.CollPosts,
		database.CollConversations,
		database.CollMessages,
	} {
		if _, err := database.DB.Collection(coll).DeleteMany(ctx, bson.M{}); err != nil {
			return fmt.Errorf("clean %s: %w", coll, err)
		}
	}
	logger.Log.Info("Seed data removed")
	return nil
}

func (s *Seeder) seedUsers(ctx context.Context, count int) ([]*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcrypt.MinCost)
	if err != nil {
		return nil, err
	}

	users := make([]*models.User, 0, count)
	for i := 0; i < count; i++ {
		username := strings.ToLower(gofakeit.Username())
		user := &models.User{
			Name:       gofakeit.Name(),
			Email:      fmt.Sprintf("%s%d@coventry.ac.uk", username, i),
			Username:   fmt.Sprintf("%s%d", username, i),
			Password:   string(hash),
			Bio:        gofakeit.HipsterSentence(),
			ProfilePic: fmt.Sprintf("https://i.pravatar.cc/150?u=%s%d", username, i),
		}
		if err := s.users.Create(ctx, user); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

func (s *Seeder) seedFollows(ctx context.Context, users []*models.User) error {
	for _, u := range users {
		// Each user follows a few random others
		for i := 0; i < 3; i++ {
			target := users[rand.Intn(len(users))]
			if target.ID == u.ID {
				continue
			}
			if err := s.users.Follow(ctx, u.ID, target.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Seeder) seedPosts(ctx context.Context, users []*models.User, count int) error {
	for i := 0; i < count; i++ {
		author := users[rand.Intn(len(users))]
		post := &models.Post{
			PostedBy: author.ID,
			Text:     truncate(gofakeit.HipsterParagraph(), models.MaxPostTextLength),
		}
		if err := s.posts.Create(ctx, post); err != nil {
			return err
		}

		for j := 0; j < rand.Intn(4); j++ {
			liker := users[rand.Intn(len(users))]
			if err := s.posts.Like(ctx, post.ID, liker.ID); err != nil {
				return err
			}
		}

		if rand.Intn(3) == 0 {
			replier := users[rand.Intn(len(users))]
			err := s.posts.AddReply(ctx, post.ID, models.Reply{
				UserID:         replier.ID,
				Text:           gofakeit.HipsterSentence(),
				Username:       replier.Username,
				UserProfilePic: replier.ProfilePic,
			})
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Seeder) seedConversations(ctx context.Context, users []*models.User, count int) error {
	for i := 0; i < count; i++ {
		a := users[rand.Intn(len(users))]
		b := users[rand.Intn(len(users))]
		if a.ID == b.ID {
			continue
		}
		if _, err := s.conversations.FindByParticipants(ctx, a.ID, b.ID); err == nil {
			continue
		}

		conv := &models.Conversation{
			Participants: []primitive.ObjectID{a.ID, b.ID},
		}
		if err := s.conversations.Create(ctx, conv); err != nil {
			return err
		}

		var lastText string
		var lastSender primitive.ObjectID
		for j := 0; j < 2+rand.Intn(6); j++ {
			sender := a
			if j%2 == 1 {
				sender = b
			}
			msg := &models.Message{
				ConversationID: conv.ID,
				Sender:         sender.ID,
				Text:           gofakeit.HipsterSentence(),
				Seen:           rand.Intn(2) == 0,
			}
			if err := s.messages.Insert(ctx, msg); err != nil {
				return err
			}
			lastText = msg.Text
			lastSender = sender.ID
		}

		err := s.conversations.UpdateLastMessage(ctx, conv.ID, models.LastMessage{
			Text:   lastText,
			Sender: lastSender,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
