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

type postRepository struct {
	coll *mongo.Collection
}

// NewPostRepository creates a post repository backed by the shared database.
func NewPostRepository() PostRepository {
	return &postRepository{coll: database.DB.Collection(database.CollPosts)}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	if post == nil {
		return ErrInvalidInput
	}
	now := time.Now().UTC()
	post.CreatedAt = now
	post.UpdatedAt = now
	if post.Likes == nil {
		post.Likes = []primitive.ObjectID{}
	}
	if post.Replies == nil {
		post.Replies = []models.Reply{}
	}

	start := time.Now()
	res, err := r.coll.InsertOne(ctx, post)
	observe(start, "posts", "insert", err)
	if err != nil {
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		post.ID = oid
	}
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Post, error) {
	var post models.Post
	start := time.Now()
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&post)
	observe(start, "posts", "find_one", err)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	if post == nil || post.ID.IsZero() {
		return ErrInvalidInput
	}
	post.UpdatedAt = time.Now().UTC()
	start := time.Now()
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": post.ID}, post)
	observe(start, "posts", "replace", err)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *postRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	start := time.Now()
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	observe(start, "posts", "delete", err)
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *postRepository) Like(ctx context.Context, postID, userID primitive.ObjectID) error {
	start := time.Now()
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": postID},
		bson.M{"$addToSet": bson.M{"likes": userID}},
	)
	observe(start, "posts", "update", err)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *postRepository) Unlike(ctx context.Context, postID, userID primitive.ObjectID) error {
	start := time.Now()
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": postID},
		bson.M{"$pull": bson.M{"likes": userID}},
	)
	observe(start, "posts", "update", err)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *postRepository) AddReply(ctx context.Context, postID primitive.ObjectID, reply models.Reply) error {
	start := time.Now()
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": postID},
		bson.M{"$push": bson.M{"replies": reply}},
	)
	observe(start, "posts", "update", err)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Feed returns posts authored by anyone in the following list,
// newest first.
func (r *postRepository) Feed(ctx context.Context, following []string) ([]models.Post, error) {
	ids := make([]primitive.ObjectID, 0, len(following))
	for _, raw := range following {
		oid, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			continue
		}
		ids = append(ids, oid)
	}
	if len(ids) == 0 {
		return []models.Post{}, nil
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	start := time.Now()
	cur, err := r.coll.Find(ctx, bson.M{"postedBy": bson.M{"$in": ids}}, opts)
	observe(start, "posts", "find", err)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	posts := []models.Post{}
	if err := cur.All(ctx, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (r *postRepository) ByAuthor(ctx context.Context, authorID primitive.ObjectID) ([]models.Post, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	start := time.Now()
	cur, err := r.coll.Find(ctx, bson.M{"postedBy": authorID}, opts)
	observe(start, "posts", "find", err)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	posts := []models.Post{}
	if err := cur.All(ctx, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// UpdateReplyIdentity rewrites the denormalized username and profile
// picture on every reply the user ever left, across all posts.
func (r *postRepository) UpdateReplyIdentity(ctx context.Context, userID primitive.ObjectID, username, profilePic string) error {
	arrayFilters := options.ArrayFilters{
		Filters: bson.A{bson.M{"reply.userId": userID}},
	}
	start := time.Now()
	_, err := r.coll.UpdateMany(ctx,
		bson.M{"replies.userId": userID},
		bson.M{"$set": bson.M{
			"replies.$[reply].username":       username,
			"replies.$[reply].userProfilePic": profilePic,
		}},
		options.Update().SetArrayFilters(arrayFilters),
	)
	observe(start, "posts", "update_many", err)
	return err
}
