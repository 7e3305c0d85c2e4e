package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"inkwell/internal/models"
	"inkwell/internal/repository"
	"inkwell/internal/validation"

	"gopkg.in/yaml.v3"
)

// Fixtures is a hand-written data set, usually loaded from a YAML file.
type Fixtures struct {
	Users []UserFixture `yaml:"users"`
	Posts []PostFixture `yaml:"posts"`
}

// UserFixture describes one account. Users are matched by email, so applying
// the same file twice does not duplicate them.
type UserFixture struct {
	Username string `yaml:"username"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	Bio      string `yaml:"bio"`
	Avatar   string `yaml:"avatar"`
}

// PostFixture describes a post and its interactions. Author, Likes and comment
// authors refer to usernames.
type PostFixture struct {
	Author    string            `yaml:"author"`
	Title     string            `yaml:"title"`
	Content   string            `yaml:"content"`
	Tags      []string          `yaml:"tags"`
	Images    []string          `yaml:"images"`
	Links     []models.Link     `yaml:"links"`
	Published *bool             `yaml:"published"`
	DaysAgo   int               `yaml:"daysAgo"`
	Likes     []string          `yaml:"likes"`
	Comments  []CommentFixture  `yaml:"comments"`
	Documents []DocumentFixture `yaml:"documents"`
}

// CommentFixture is a comment on a fixture post.
type CommentFixture struct {
	Author  string `yaml:"author"`
	Content string `yaml:"content"`
}

// DocumentFixture references an already hosted document.
type DocumentFixture struct {
	Name     string `yaml:"name"`
	URL      string `yaml:"url"`
	Mimetype string `yaml:"mimetype"`
	Size     int64  `yaml:"size"`
}

// LoadFixtures reads a YAML fixture file.
func LoadFixtures(path string) (*Fixtures, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open fixtures: %w", err)
	}
	defer f.Close()
	return ParseFixtures(f)
}

// ParseFixtures decodes YAML fixtures and checks that every reference resolves.
func ParseFixtures(r io.Reader) (*Fixtures, error) {
	var fx Fixtures
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&fx); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode fixtures: %w", err)
	}
	if err := fx.validate(); err != nil {
		return nil, err
	}
	return &fx, nil
}

func (fx *Fixtures) validate() error {
	known := make(map[string]bool, len(fx.Users))
	for i, u := range fx.Users {
		if strings.TrimSpace(u.Username) == "" || strings.TrimSpace(u.Email) == "" {
			return fmt.Errorf("users[%d]: username and email are required", i)
		}
		if err := validation.ValidateUsername(u.Username); err != nil {
			return fmt.Errorf("users[%d]: %w", i, err)
		}
		known[u.Username] = true
	}
	for i, p := range fx.Posts {
		if strings.TrimSpace(p.Title) == "" || strings.TrimSpace(p.Content) == "" {
			return fmt.Errorf("posts[%d]: title and content are required", i)
		}
		refs := append([]string{p.Author}, p.Likes...)
		for _, c := range p.Comments {
			refs = append(refs, c.Author)
		}
		for _, ref := range refs {
			if !known[ref] {
				return fmt.Errorf("posts[%d]: unknown user %q", i, ref)
			}
		}
	}
	return nil
}

// Apply writes fx to store. Existing users (by email) are reused; posts are always created.
func (fx *Fixtures) Apply(ctx context.Context, store *repository.Store, bcryptCost int) (Summary, error) {
	var summary Summary
	byUsername := make(map[string]*models.User, len(fx.Users))

	for _, uf := range fx.Users {
		user, created, err := ensureUser(ctx, store, uf, bcryptCost)
		if err != nil {
			return summary, fmt.Errorf("user %s: %w", uf.Username, err)
		}
		if created {
			summary.Users++
		}
		byUsername[uf.Username] = user
	}

	for _, pf := range fx.Posts {
		post := pf.build(byUsername[pf.Author].ID)
		if err := store.Posts.Create(ctx, post); err != nil {
			return summary, fmt.Errorf("post %q: %w", pf.Title, err)
		}
		summary.Posts++

		for _, username := range pf.Likes {
			if _, err := store.Posts.ToggleLike(ctx, post.ID, byUsername[username].ID); err != nil {
				return summary, fmt.Errorf("like on %q: %w", pf.Title, err)
			}
			summary.Likes++
		}
		for _, cf := range pf.Comments {
			comment := &models.Comment{AuthorID: byUsername[cf.Author].ID, Content: cf.Content}
			if err := store.Posts.AddComment(ctx, post.ID, comment); err != nil {
				return summary, fmt.Errorf("comment on %q: %w", pf.Title, err)
			}
			summary.Comments++
		}
	}
	return summary, nil
}

func ensureUser(ctx context.Context, store *repository.Store, uf UserFixture, bcryptCost int) (*models.User, bool, error) {
	email := strings.ToLower(strings.TrimSpace(uf.Email))
	existing, err := store.Users.GetByEmail(ctx, email)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, false, err
	}

	password := uf.Password
	if password == "" {
		password = DefaultPassword
	}
	hash, err := hashPassword(password, bcryptCost)
	if err != nil {
		return nil, false, err
	}
	user := &models.User{
		Username: uf.Username,
		Email:    email,
		Password: hash,
		Bio:      uf.Bio,
		Avatar:   uf.Avatar,
		IsActive: true,
	}
	if err := store.Users.Create(ctx, user); err != nil {
		return nil, false, err
	}
	return user, true, nil
}

func (pf PostFixture) build(authorID string) *models.Post {
	published := true
	if pf.Published != nil {
		published = *pf.Published
	}
	createdAt := time.Now().UTC().Add(-time.Duration(pf.DaysAgo) * 24 * time.Hour)

	docs := make([]models.Document, 0, len(pf.Documents))
	for _, d := range pf.Documents {
		docs = append(docs, models.Document{
			Filename:     d.Name,
			OriginalName: d.Name,
			Mimetype:     d.Mimetype,
			Size:         d.Size,
			URL:          d.URL,
			UploadedAt:   createdAt,
		})
	}

	return &models.Post{
		Title:       pf.Title,
		Content:     pf.Content,
		AuthorID:    authorID,
		Tags:        pf.Tags,
		Images:      pf.Images,
		Links:       pf.Links,
		Documents:   docs,
		IsPublished: published,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
}
