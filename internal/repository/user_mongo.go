package repository

import (
	"context"
	"errors"
	"time"

	"inkwell/internal/database"
	"inkwell/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type mongoUserRepository struct {
	users *mongo.Collection
}

// NewMongoUserRepository returns a UserRepository backed by the users collection.
func NewMongoUserRepository(db *mongo.Database) UserRepository {
	return &mongoUserRepository{users: db.Collection(database.UsersCollection)}
}

func (r *mongoUserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = models.NewID()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	_, err := r.users.InsertOne(ctx, user)
	return translateMongoError(err)
}

func (r *mongoUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"_id": id}, id)
}

func (r *mongoUserRepository) GetByIDs(ctx context.Context, ids []string) ([]*models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cur, err := r.users.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	var users []*models.User
	if err := cur.All(ctx, &users); err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

func (r *mongoUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": email}, email)
}

func (r *mongoUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"username": username}, username)
}

func (r *mongoUserRepository) Update(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now().UTC()
	res, err := r.users.UpdateByID(ctx, user.ID, bson.M{"$set": bson.M{
		"username":  user.Username,
		"email":     user.Email,
		"password":  user.Password,
		"bio":       user.Bio,
		"avatar":    user.Avatar,
		"isActive":  user.IsActive,
		"updatedAt": user.UpdatedAt,
	}})
	if err != nil {
		return translateMongoError(err)
	}
	if res.MatchedCount == 0 {
		return models.NewNotFoundError("User", user.ID)
	}
	return nil
}

func (r *mongoUserRepository) findOne(ctx context.Context, filter bson.M, label string) (*models.User, error) {
	var user models.User
	if err := r.users.FindOne(ctx, filter).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.NewNotFoundError("User", label)
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}
