package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"inkwell/internal/media"
	"inkwell/internal/models"
	"inkwell/internal/observability"
	"inkwell/internal/repository"

	"golang.org/x/crypto/bcrypt"
)

// DefaultPassword is the password given to every generated user.
const DefaultPassword = "password123"

// Options configuration for the seeder
type Options struct {
	NumUsers int
	NumPosts int
	// MaxLikes and MaxComments bound the interactions added to each post.
	MaxLikes    int
	MaxComments int
	// Covers uploads a generated cover image through the media relay for gallery posts.
	Covers bool
	// Seed makes the generated content reproducible; zero picks a random seed.
	Seed    int64
	MaxDays int
	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost   int
	Distribution *Distribution
}

// Summary counts what a seeding run wrote.
type Summary struct {
	Users    int `json:"users"`
	Posts    int `json:"posts"`
	Likes    int `json:"likes"`
	Comments int `json:"comments"`
	Media    int `json:"media"`
}

// Seeder writes generated users, posts and interactions to a store.
type Seeder struct {
	store   *repository.Store
	relay   media.Relay
	factory *Factory
	opts    Options

	uploaded []media.Object
}

// NewSeeder returns a Seeder. relay may be nil when Options.Covers is false.
func NewSeeder(store *repository.Store, relay media.Relay, opts Options) *Seeder {
	return &Seeder{
		store:   store,
		relay:   relay,
		factory: NewFactory(opts.Seed, opts.MaxDays),
		opts:    opts,
	}
}

// Run seeds users, then posts, then likes and comments. If a step fails, media
// uploaded during the run is deleted from the host before the error is returned.
func (s *Seeder) Run(ctx context.Context) (Summary, error) {
	var summary Summary
	if s.opts.Covers && s.relay == nil {
		return summary, errors.New("cover uploads need a media relay")
	}

	observability.Logger.InfoContext(ctx, "starting seed",
		slog.Int("users", s.opts.NumUsers),
		slog.Int("posts", s.opts.NumPosts),
		slog.String("driver", s.store.Driver()),
	)

	summary, err := s.run(ctx)
	if err != nil {
		if cleanupErr := s.Cleanup(ctx); cleanupErr != nil {
			err = errors.Join(err, cleanupErr)
		}
		return summary, err
	}

	observability.Logger.InfoContext(ctx, "seed completed",
		slog.Int("users", summary.Users),
		slog.Int("posts", summary.Posts),
		slog.Int("likes", summary.Likes),
		slog.Int("comments", summary.Comments),
		slog.Int("media", summary.Media),
	)
	return summary, nil
}

func (s *Seeder) run(ctx context.Context) (Summary, error) {
	var summary Summary

	users, err := s.createUsers(ctx)
	if err != nil {
		return summary, fmt.Errorf("failed to create users: %w", err)
	}
	summary.Users = len(users)
	if len(users) == 0 {
		return summary, nil
	}

	posts, err := s.createPosts(ctx, users)
	summary.Media = len(s.uploaded)
	if err != nil {
		return summary, fmt.Errorf("failed to create posts: %w", err)
	}
	summary.Posts = len(posts)

	for _, post := range posts {
		likes, comments, err := s.interact(ctx, post, users)
		summary.Likes += likes
		summary.Comments += comments
		if err != nil {
			return summary, fmt.Errorf("failed to add interactions: %w", err)
		}
	}
	return summary, nil
}

func (s *Seeder) createUsers(ctx context.Context) ([]*models.User, error) {
	hash, err := hashPassword(DefaultPassword, s.opts.BcryptCost)
	if err != nil {
		return nil, err
	}

	users := make([]*models.User, 0, s.opts.NumUsers)
	for len(users) < s.opts.NumUsers {
		user := s.factory.BuildUser()
		user.Password = hash
		if err := s.store.Users.Create(ctx, user); err != nil {
			var appErr *models.AppError
			if errors.As(err, &appErr) && appErr.Code == models.CodeDuplicate {
				continue // generated name collided, draw again
			}
			return users, err
		}
		users = append(users, user)
	}
	return users, nil
}

func (s *Seeder) createPosts(ctx context.Context, users []*models.User) ([]*models.Post, error) {
	dist := defaultDistribution
	if s.opts.Distribution != nil {
		dist = *s.opts.Distribution
	}
	text, gallery, linked, document := computeCounts(s.opts.NumPosts, dist)

	kinds := make([]string, 0, s.opts.NumPosts)
	kinds = appendKind(kinds, KindText, text)
	kinds = appendKind(kinds, KindGallery, gallery)
	kinds = appendKind(kinds, KindLinked, linked)
	kinds = appendKind(kinds, KindDocument, document)

	posts := make([]*models.Post, 0, len(kinds))
	for _, kind := range kinds {
		author := users[s.factory.Pick(len(users))]
		post := s.factory.BuildPost(author, kind)
		if kind == KindGallery && s.opts.Covers {
			url, err := s.uploadCover(ctx, post)
			if err != nil {
				return posts, err
			}
			post.Images = append([]string{url}, post.Images...)
		}
		if err := s.store.Posts.Create(ctx, post); err != nil {
			return posts, err
		}
		posts = append(posts, post)
	}
	return posts, nil
}

func (s *Seeder) interact(ctx context.Context, post *models.Post, users []*models.User) (int, int, error) {
	likes := 0
	if s.opts.MaxLikes > 0 {
		n := s.factory.Pick(min(s.opts.MaxLikes, len(users)) + 1)
		// Consecutive users from a random offset give n distinct likers.
		offset := s.factory.Pick(len(users))
		for i := 0; i < n; i++ {
			user := users[(offset+i)%len(users)]
			if _, err := s.store.Posts.ToggleLike(ctx, post.ID, user.ID); err != nil {
				return likes, 0, err
			}
			likes++
		}
	}

	comments := 0
	if s.opts.MaxComments > 0 {
		n := s.factory.Pick(s.opts.MaxComments + 1)
		for i := 0; i < n; i++ {
			comment := s.factory.BuildComment(users[s.factory.Pick(len(users))])
			if err := s.store.Posts.AddComment(ctx, post.ID, comment); err != nil {
				return likes, comments, err
			}
			comments++
		}
	}
	return likes, comments, nil
}

func appendKind(kinds []string, kind string, n int) []string {
	for i := 0; i < n; i++ {
		kinds = append(kinds, kind)
	}
	return kinds
}

func hashPassword(password string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash seed password: %w", err)
	}
	return string(hash), nil
}
