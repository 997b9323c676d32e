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
)

// userRepository implements UserRepository on MongoDB
type userRepository struct {
	coll *mongo.Collection
}

// NewUserRepository creates a user repository backed by the shared database.
func NewUserRepository() UserRepository {
	return &userRepository{coll: database.DB.Collection(database.CollUsers)}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if user == nil {
		return ErrInvalidInput
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.Followers == nil {
		user.Followers = []string{}
	}
	if user.Following == nil {
		user.Following = []string{}
	}

	start := time.Now()
	res, err := r.coll.InsertOne(ctx, user)
	observe(start, "users", "insert", err)
	if err != nil {
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		user.ID = oid
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"username": username})
}

func (r *userRepository) GetByEmailOrUsername(ctx context.Context, email, username string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"$or": bson.A{
		bson.M{"email": email},
		bson.M{"username": username},
	}})
}

func (r *userRepository) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var user models.User
	start := time.Now()
	err := r.coll.FindOne(ctx, filter).Decode(&user)
	observe(start, "users", "find_one", err)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	if user == nil || user.ID.IsZero() {
		return ErrInvalidInput
	}
	user.UpdatedAt = time.Now().UTC()
	start := time.Now()
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": user.ID}, user)
	observe(start, "users", "replace", err)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *userRepository) SetFrozen(ctx context.Context, id primitive.ObjectID, frozen bool) error {
	start := time.Now()
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"isFrozen": frozen, "updatedAt": time.Now().UTC()}},
	)
	observe(start, "users", "update", err)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *userRepository) Follow(ctx context.Context, followerID, followedID primitive.ObjectID) error {
	start := time.Now()
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": followerID},
		bson.M{"$addToSet": bson.M{"following": followedID.Hex()}},
	)
	if err == nil {
		_, err = r.coll.UpdateOne(ctx,
			bson.M{"_id": followedID},
			bson.M{"$addToSet": bson.M{"followers": followerID.Hex()}},
		)
	}
	observe(start, "users", "update", err)
	return err
}

func (r *userRepository) Unfollow(ctx context.Context, followerID, followedID primitive.ObjectID) error {
	start := time.Now()
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": followerID},
		bson.M{"$pull": bson.M{"following": followedID.Hex()}},
	)
	if err == nil {
		_, err = r.coll.UpdateOne(ctx,
			bson.M{"_id": followedID},
			bson.M{"$pull": bson.M{"followers": followerID.Hex()}},
		)
	}
	observe(start, "users", "update", err)
	return err
}

func (r *userRepository) Suggested(ctx context.Context, userID primitive.ObjectID, following []string, limit int) ([]models.User, error) {
	if limit <= 0 {
		limit = 4
	}

	// Sample a wider pool than needed, then filter out already-followed
	// users client side. Matches the behavior of sampling before filtering.
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"_id": bson.M{"$ne": userID}}}},
		{{Key: "$sample", Value: bson.M{"size": 10}}},
	}
	start := time.Now()
	cur, err := r.coll.Aggregate(ctx, pipeline)
	observe(start, "users", "aggregate", err)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	followed := make(map[string]struct{}, len(following))
	for _, id := range following {
		followed[id] = struct{}{}
	}

	var out []models.User
	for cur.Next(ctx) {
		var u models.User
		if err := cur.Decode(&u); err != nil {
			return nil, err
		}
		if _, ok := followed[u.ID.Hex()]; ok {
			continue
		}
		u.Password = ""
		out = append(out, u)
		if len(out) >= limit {
			break
		}
	}
	return out, cur.Err()
}
