// Package repository provides data access layer implementations for the application.
// Every interface has a GORM implementation (postgres, sqlite) and a MongoDB implementation.
package repository

import (
	"context"

	"inkwell/internal/models"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByIDs(ctx context.Context, ids []string) ([]*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
}

// PostFilter narrows a post listing.
type PostFilter struct {
	AuthorID      string
	PublishedOnly bool
}

// PostRepository defines persistence operations for posts and their embedded interactions.
// Likes and comments are single store operations so concurrent callers never overwrite each other.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id string) (*models.Post, error)
	// List returns one page of posts, newest first, and the total matching the filter.
	List(ctx context.Context, filter PostFilter, limit, offset int) ([]*models.Post, int64, error)
	// Update writes title, content, tags and the published flag.
	Update(ctx context.Context, post *models.Post) error
	Delete(ctx context.Context, id string) error
	IncrementViews(ctx context.Context, id string) error
	// ToggleLike adds userID to the post's likes if absent, removes it otherwise,
	// and reports whether the user likes the post afterwards.
	ToggleLike(ctx context.Context, postID, userID string) (bool, error)
	AddComment(ctx context.Context, postID string, comment *models.Comment) error
}

// Store bundles the repositories backed by one database.
type Store struct {
	Users UserRepository
	Posts PostRepository

	driver string
	ping   func(ctx context.Context) error
	close  func() error
}

// Driver names the backing database.
func (s *Store) Driver() string {
	return s.driver
}

// Ping checks the backing database.
func (s *Store) Ping(ctx context.Context) error {
	if s.ping == nil {
		return nil
	}
	return s.ping(ctx)
}

// Close releases the backing database connection.
func (s *Store) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}
