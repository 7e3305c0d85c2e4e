package repository

import (
	"context"
	"errors"
	"time"

	"inkwell/internal/database"
	"inkwell/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// mongoPostRepository keeps likes and comments embedded in the post document.
type mongoPostRepository struct {
	posts *mongo.Collection
}

// NewMongoPostRepository returns a PostRepository backed by the posts collection.
func NewMongoPostRepository(db *mongo.Database) PostRepository {
	return &mongoPostRepository{posts: db.Collection(database.PostsCollection)}
}

func (r *mongoPostRepository) Create(ctx context.Context, post *models.Post) error {
	if post.ID == "" {
		post.ID = models.NewID()
	}
	now := time.Now().UTC()
	if post.CreatedAt.IsZero() {
		post.CreatedAt = now
	}
	post.UpdatedAt = post.CreatedAt
	post.Normalize()
	_, err := r.posts.InsertOne(ctx, post)
	return translateMongoError(err)
}

func (r *mongoPostRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	if err := r.posts.FindOne(ctx, bson.M{"_id": id}).Decode(&post); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.NewNotFoundError("Post", id)
		}
		return nil, models.NewInternalError(err)
	}
	post.Normalize()
	return &post, nil
}

func (r *mongoPostRepository) List(ctx context.Context, filter PostFilter, limit, offset int) ([]*models.Post, int64, error) {
	query := postListFilter(filter)

	total, err := r.posts.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))
	cur, err := r.posts.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	var posts []*models.Post
	if err := cur.All(ctx, &posts); err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	for _, p := range posts {
		p.Normalize()
	}
	return posts, total, nil
}

func (r *mongoPostRepository) Update(ctx context.Context, post *models.Post) error {
	post.UpdatedAt = time.Now().UTC()
	res, err := r.posts.UpdateByID(ctx, post.ID, postUpdateDoc(post))
	if err != nil {
		return models.NewInternalError(err)
	}
	if res.MatchedCount == 0 {
		return models.NewNotFoundError("Post", post.ID)
	}
	return nil
}

func (r *mongoPostRepository) Delete(ctx context.Context, id string) error {
	res, err := r.posts.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return models.NewInternalError(err)
	}
	if res.DeletedCount == 0 {
		return models.NewNotFoundError("Post", id)
	}
	return nil
}

func (r *mongoPostRepository) IncrementViews(ctx context.Context, id string) error {
	res, err := r.posts.UpdateByID(ctx, id, bson.M{"$inc": bson.M{"views": 1}})
	if err != nil {
		return models.NewInternalError(err)
	}
	if res.MatchedCount == 0 {
		return models.NewNotFoundError("Post", id)
	}
	return nil
}

func (r *mongoPostRepository) ToggleLike(ctx context.Context, postID, userID string) (bool, error) {
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"likes": 1})

	var updated models.Post
	err := r.posts.FindOneAndUpdate(ctx, bson.M{"_id": postID}, toggleLikePipeline(userID), opts).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return false, models.NewNotFoundError("Post", postID)
		}
		return false, models.NewInternalError(err)
	}
	return updated.HasLike(userID), nil
}

func (r *mongoPostRepository) AddComment(ctx context.Context, postID string, comment *models.Comment) error {
	if comment.ID == "" {
		comment.ID = models.NewID()
	}
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = time.Now().UTC()
	}
	comment.PostID = postID
	res, err := r.posts.UpdateByID(ctx, postID, bson.M{"$push": bson.M{"comments": comment}})
	if err != nil {
		return models.NewInternalError(err)
	}
	if res.MatchedCount == 0 {
		return models.NewNotFoundError("Post", postID)
	}
	return nil
}

func postListFilter(filter PostFilter) bson.M {
	query := bson.M{}
	if filter.AuthorID != "" {
		query["author"] = filter.AuthorID
	}
	if filter.PublishedOnly {
		query["isPublished"] = true
	}
	return query
}

func postUpdateDoc(post *models.Post) bson.M {
	tags := post.Tags
	if tags == nil {
		tags = []string{}
	}
	return bson.M{"$set": bson.M{
		"title":       post.Title,
		"content":     post.Content,
		"tags":        tags,
		"isPublished": post.IsPublished,
		"updatedAt":   post.UpdatedAt,
	}}
}

// toggleLikePipeline removes userID from likes when present and appends it otherwise,
// in one server-side update.
func toggleLikePipeline(userID string) mongo.Pipeline {
	likes := bson.M{"$ifNull": bson.A{"$likes", bson.A{}}}
	return mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"likes": bson.M{"$cond": bson.M{
				"if": bson.M{"$in": bson.A{userID, likes}},
				"then": bson.M{"$filter": bson.M{
					"input": likes,
					"as":    "id",
					"cond":  bson.M{"$ne": bson.A{"$$id", userID}},
				}},
				"else": bson.M{"$concatArrays": bson.A{likes, bson.A{userID}}},
			}},
		}}},
	}
}

// NewMongoStore wires the MongoDB repositories around db.
func NewMongoStore(client *mongo.Client, db *mongo.Database) *Store {
	return &Store{
		Users:  NewMongoUserRepository(db),
		Posts:  NewMongoPostRepository(db),
		driver: "mongo",
		ping: func(ctx context.Context) error {
			return client.Ping(ctx, nil)
		},
		close: func() error {
			return database.DisconnectMongo(client)
		},
	}
}
