package repository

import (
	"context"
	"errors"
	"time"

	"inkwell/internal/database"
	"inkwell/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// postRepository implements PostRepository on GORM; likes live in post_likes
// and comments in their own table.
type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	if post.ID == "" {
		post.ID = models.NewID()
	}
	post.Normalize()
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(post).Error; err != nil {
		return translateSQLError(err)
	}
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	err := r.db.WithContext(ctx).
		Preload("Comments", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Where("id = ?", id).
		First(&post).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post", id)
		}
		return nil, models.NewInternalError(err)
	}

	if err := r.attachLikes(ctx, []*models.Post{&post}); err != nil {
		return nil, err
	}
	post.Normalize()
	return &post, nil
}

func (r *postRepository) List(ctx context.Context, filter PostFilter, limit, offset int) ([]*models.Post, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Post{})
	if filter.AuthorID != "" {
		query = query.Where("author_id = ?", filter.AuthorID)
	}
	if filter.PublishedOnly {
		query = query.Where("is_published = ?", true)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	var posts []*models.Post
	err := query.
		Preload("Comments", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	if err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	if err := r.attachLikes(ctx, posts); err != nil {
		return nil, 0, err
	}
	for _, p := range posts {
		p.Normalize()
	}
	return posts, total, nil
}

func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	post.UpdatedAt = time.Now().UTC()
	result := r.db.WithContext(ctx).
		Model(post).
		Select("Title", "Content", "Tags", "IsPublished", "UpdatedAt").
		Updates(post)
	if result.Error != nil {
		return translateSQLError(result.Error)
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("Post", post.ID)
	}
	return nil
}

func (r *postRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("id = ?", id).Delete(&models.Post{})
		if result.Error != nil {
			return models.NewInternalError(result.Error)
		}
		if result.RowsAffected == 0 {
			return models.NewNotFoundError("Post", id)
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.PostLike{}).Error; err != nil {
			return models.NewInternalError(err)
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})
}

func (r *postRepository) IncrementViews(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("id = ?", id).
		UpdateColumn("views", gorm.Expr("views + ?", 1))
	if result.Error != nil {
		return models.NewInternalError(result.Error)
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("Post", id)
	}
	return nil
}

func (r *postRepository) ToggleLike(ctx context.Context, postID, userID string) (bool, error) {
	liked := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		removed := tx.Where("post_id = ? AND user_id = ?", postID, userID).Delete(&models.PostLike{})
		if removed.Error != nil {
			return models.NewInternalError(removed.Error)
		}
		if removed.RowsAffected > 0 {
			return nil
		}

		if err := r.ensurePost(tx, postID); err != nil {
			return err
		}
		like := models.PostLike{PostID: postID, UserID: userID, CreatedAt: time.Now().UTC()}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&like).Error; err != nil {
			return models.NewInternalError(err)
		}
		liked = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return liked, nil
}

func (r *postRepository) AddComment(ctx context.Context, postID string, comment *models.Comment) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.ensurePost(tx, postID); err != nil {
			return err
		}
		if comment.ID == "" {
			comment.ID = models.NewID()
		}
		if comment.CreatedAt.IsZero() {
			comment.CreatedAt = time.Now().UTC()
		}
		comment.PostID = postID
		if err := tx.Create(comment).Error; err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})
}

func (r *postRepository) ensurePost(tx *gorm.DB, postID string) error {
	var count int64
	if err := tx.Model(&models.Post{}).Where("id = ?", postID).Count(&count).Error; err != nil {
		return models.NewInternalError(err)
	}
	if count == 0 {
		return models.NewNotFoundError("Post", postID)
	}
	return nil
}

// attachLikes fills Likes for every post with one query, oldest like first.
func (r *postRepository) attachLikes(ctx context.Context, posts []*models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	ids := make([]string, 0, len(posts))
	byID := make(map[string]*models.Post, len(posts))
	for _, p := range posts {
		ids = append(ids, p.ID)
		byID[p.ID] = p
		p.Likes = []string{}
	}

	var likes []models.PostLike
	err := r.db.WithContext(ctx).
		Where("post_id IN ?", ids).
		Order("created_at ASC").
		Find(&likes).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	for _, like := range likes {
		if p, ok := byID[like.PostID]; ok {
			p.Likes = append(p.Likes, like.UserID)
		}
	}
	return nil
}

// NewGormStore wires the GORM repositories around db.
func NewGormStore(db *gorm.DB, driver string) *Store {
	return &Store{
		Users:  NewUserRepository(db),
		Posts:  NewPostRepository(db),
		driver: driver,
		ping: func(ctx context.Context) error {
			return database.Ping(ctx, db)
		},
		close: func() error {
			return database.Close(db)
		},
	}
}
