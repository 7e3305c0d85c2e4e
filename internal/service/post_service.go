package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"inkwell/internal/media"
	"inkwell/internal/models"
	"inkwell/internal/notifications"
	"inkwell/internal/observability"
	"inkwell/internal/repository"
	"inkwell/internal/validation"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// ActivityPublisher receives post activity for the live stream.
type ActivityPublisher interface {
	Publish(ctx context.Context, event notifications.Event)
}

type PostService struct {
	posts             repository.PostRepository
	users             repository.UserRepository
	relay             media.Relay
	events            ActivityPublisher
	uploadConcurrency int
}

type CreatePostInput struct {
	AuthorID    string         `json:"-" validate:"required"`
	Title       string         `json:"title" validate:"notblank,max=200"`
	Content     string         `json:"content" validate:"notblank,max=5000"`
	Tags        []string       `json:"tags" validate:"max=20,dive,max=50"`
	Links       []models.Link  `json:"links" validate:"dive"`
	IsPublished *bool          `json:"isPublished"`
	Images      []media.Object `json:"-" validate:"max=5"`
	Documents   []media.Object `json:"-" validate:"max=5"`
}

type UpdatePostInput struct {
	UserID      string    `json:"-"`
	PostID      string    `json:"-"`
	Title       *string   `json:"title" validate:"omitnil,notblank,max=200"`
	Content     *string   `json:"content" validate:"omitnil,notblank,max=5000"`
	Tags        *[]string `json:"tags" validate:"omitnil,max=20,dive,max=50"`
	IsPublished *bool     `json:"isPublished"`
}

type AddCommentInput struct {
	UserID  string `json:"-"`
	PostID  string `json:"-"`
	Content string `json:"content" validate:"notblank,max=1000"`
}

func NewPostService(
	posts repository.PostRepository,
	users repository.UserRepository,
	relay media.Relay,
	events ActivityPublisher,
	uploadConcurrency int,
) *PostService {
	return &PostService{
		posts:             posts,
		users:             users,
		relay:             relay,
		events:            events,
		uploadConcurrency: uploadConcurrency,
	}
}

// CreatePost validates the input, uploads attachments, persists the post and
// returns it with its author populated. A failed upload persists nothing.
func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Content = strings.TrimSpace(in.Content)
	in.Links = FilterLinks(in.Links)
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}

	ctx, span := observability.StartSpan(ctx, "post.create")
	post, err := s.createPost(ctx, in)
	observability.EndSpan(span, err)
	if err != nil {
		return nil, err
	}

	observability.PostsCreatedTotal.Inc()
	s.publish(ctx, notifications.EventPostCreated, post.ID, in.AuthorID)
	return post, nil
}

func (s *PostService) createPost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	// Images then documents; each batch runs concurrently.
	imageResults, err := s.uploadAll(ctx, in.Images, media.KindImage)
	if err != nil {
		return nil, err
	}
	documentResults, err := s.uploadAll(ctx, in.Documents, media.KindDocument)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	images := make([]string, 0, len(imageResults))
	for _, res := range imageResults {
		images = append(images, res.URL)
	}
	documents := documentsFrom(in.Documents, documentResults, now)

	published := true
	if in.IsPublished != nil {
		published = *in.IsPublished
	}

	post := &models.Post{
		Title:       in.Title,
		Content:     in.Content,
		AuthorID:    in.AuthorID,
		Images:      images,
		Documents:   documents,
		Links:       in.Links,
		Tags:        NormalizeTags(in.Tags),
		IsPublished: published,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, err
	}
	if err := s.populate(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

func (s *PostService) uploadAll(ctx context.Context, objects []media.Object, kind media.Kind) ([]media.Result, error) {
	for i := range objects {
		objects[i].Kind = kind
	}
	results, err := media.UploadBatch(ctx, s.relay, objects, s.uploadConcurrency)
	if err != nil {
		return nil, upstreamError(err)
	}
	return results, nil
}

// ListPublished returns one page of the public feed.
func (s *PostService) ListPublished(ctx context.Context, page, limit int) (*models.PostPage, error) {
	page, limit = NormalizePage(page, limit)
	posts, total, err := s.posts.List(ctx, repository.PostFilter{PublishedOnly: true}, limit, (page-1)*limit)
	if err != nil {
		return nil, err
	}
	if err := s.populate(ctx, posts...); err != nil {
		return nil, err
	}
	if posts == nil {
		posts = []*models.Post{}
	}
	return &models.PostPage{Posts: posts, Pagination: models.NewPagination(page, limit, total)}, nil
}

// ListByAuthor returns one page of authorID's posts, drafts included.
func (s *PostService) ListByAuthor(ctx context.Context, authorID string, page, limit int) ([]*models.Post, error) {
	page, limit = NormalizePage(page, limit)
	posts, _, err := s.posts.List(ctx, repository.PostFilter{AuthorID: authorID}, limit, (page-1)*limit)
	if err != nil {
		return nil, err
	}
	if err := s.populate(ctx, posts...); err != nil {
		return nil, err
	}
	if posts == nil {
		posts = []*models.Post{}
	}
	return posts, nil
}

// GetPost counts a view and returns the post.
func (s *PostService) GetPost(ctx context.Context, postID string) (*models.Post, error) {
	if !models.ValidID(postID) {
		return nil, models.NewNotFoundError("Post", postID)
	}
	if err := s.posts.IncrementViews(ctx, postID); err != nil {
		return nil, err
	}
	observability.PostInteractionsTotal.WithLabelValues("view").Inc()
	return s.load(ctx, postID)
}

// UpdatePost changes the supplied fields. Ownership is checked before the payload.
func (s *PostService) UpdatePost(ctx context.Context, in UpdatePostInput) (*models.Post, error) {
	post, err := s.AuthorizeUpdate(ctx, in.UserID, in.PostID)
	if err != nil {
		return nil, err
	}
	return s.ApplyUpdate(ctx, post, in)
}

// AuthorizeUpdate loads the post and fails with 403 unless userID wrote it.
// Callers that decode the payload themselves run it first, so a non-author
// never learns whether their payload was valid.
func (s *PostService) AuthorizeUpdate(ctx context.Context, userID, postID string) (*models.Post, error) {
	return s.ownedPost(ctx, userID, postID, "update")
}

// ApplyUpdate validates in and writes the supplied fields to post, which must
// come from AuthorizeUpdate.
func (s *PostService) ApplyUpdate(ctx context.Context, post *models.Post, in UpdatePostInput) (*models.Post, error) {
	if in.Title != nil {
		trimmed := strings.TrimSpace(*in.Title)
		in.Title = &trimmed
	}
	if in.Content != nil {
		trimmed := strings.TrimSpace(*in.Content)
		in.Content = &trimmed
	}
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}

	if in.Title != nil {
		post.Title = *in.Title
	}
	if in.Content != nil {
		post.Content = *in.Content
	}
	if in.Tags != nil {
		post.Tags = NormalizeTags(*in.Tags)
	}
	if in.IsPublished != nil {
		post.IsPublished = *in.IsPublished
	}

	if err := s.posts.Update(ctx, post); err != nil {
		return nil, err
	}
	if err := s.populate(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

// DeletePost removes the post with its comments and likes. Hosted media stays in place.
func (s *PostService) DeletePost(ctx context.Context, userID, postID string) error {
	if _, err := s.ownedPost(ctx, userID, postID, "delete"); err != nil {
		return err
	}
	if err := s.posts.Delete(ctx, postID); err != nil {
		return err
	}
	s.publish(ctx, notifications.EventPostDeleted, postID, userID)
	return nil
}

// ToggleLike likes the post for userID, or removes the like if present, and
// reports whether the post is liked afterwards.
func (s *PostService) ToggleLike(ctx context.Context, userID, postID string) (*models.Post, bool, error) {
	if !models.ValidID(postID) {
		return nil, false, models.NewNotFoundError("Post", postID)
	}
	liked, err := s.posts.ToggleLike(ctx, postID, userID)
	if err != nil {
		return nil, false, err
	}

	action, event := "unlike", notifications.EventPostUnliked
	if liked {
		action, event = "like", notifications.EventPostLiked
	}
	observability.PostInteractionsTotal.WithLabelValues(action).Inc()
	s.publish(ctx, event, postID, userID)

	post, err := s.load(ctx, postID)
	if err != nil {
		return nil, false, err
	}
	return post, liked, nil
}

// AddComment appends a comment and returns the post with every comment author populated.
func (s *PostService) AddComment(ctx context.Context, in AddCommentInput) (*models.Post, error) {
	if !models.ValidID(in.PostID) {
		return nil, models.NewNotFoundError("Post", in.PostID)
	}
	in.Content = strings.TrimSpace(in.Content)
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}

	comment := &models.Comment{AuthorID: in.UserID, Content: in.Content}
	if err := s.posts.AddComment(ctx, in.PostID, comment); err != nil {
		return nil, err
	}
	observability.PostInteractionsTotal.WithLabelValues("comment").Inc()
	s.publish(ctx, notifications.EventPostCommented, in.PostID, in.UserID)
	return s.load(ctx, in.PostID)
}

func (s *PostService) load(ctx context.Context, postID string) (*models.Post, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if err := s.populate(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

func (s *PostService) ownedPost(ctx context.Context, userID, postID, action string) (*models.Post, error) {
	if !models.ValidID(postID) {
		return nil, models.NewNotFoundError("Post", postID)
	}
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.AuthorID != userID {
		return nil, models.NewForbiddenError(fmt.Sprintf("not authorized to %s this post", action))
	}
	return post, nil
}

// populate resolves the author of every post and comment with one user lookup.
func (s *PostService) populate(ctx context.Context, posts ...*models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	seen := make(map[string]struct{})
	var ids []string
	add := func(id string) {
		if _, ok := seen[id]; ok || id == "" {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	for _, p := range posts {
		add(p.AuthorID)
		for _, c := range p.Comments {
			add(c.AuthorID)
		}
	}

	users, err := s.users.GetByIDs(ctx, ids)
	if err != nil {
		return err
	}
	authors := make(map[string]*models.Author, len(users))
	for _, u := range users {
		authors[u.ID] = u.Author()
	}

	for _, p := range posts {
		p.Normalize()
		p.Author = authors[p.AuthorID]
		for i := range p.Comments {
			p.Comments[i].Author = authors[p.Comments[i].AuthorID]
		}
	}
	return nil
}

func (s *PostService) publish(ctx context.Context, eventType, postID, actorID string) {
	if s.events == nil {
		return
	}
	s.events.Publish(ctx, notifications.NewEvent(eventType, postID, actorID))
}

// FilterLinks trims links and drops any without a title or an http(s) URL.
func FilterLinks(links []models.Link) []models.Link {
	out := make([]models.Link, 0, len(links))
	for _, l := range links {
		l.Title = strings.TrimSpace(l.Title)
		l.URL = strings.TrimSpace(l.URL)
		l.Description = strings.TrimSpace(l.Description)
		if l.Title == "" || !validation.ValidLinkURL(l.URL) {
			continue
		}
		out = append(out, l)
	}
	return out
}

// NormalizeTags lower-cases and trims tags, dropping blanks and duplicates.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// NormalizePage applies defaults to non-positive values and caps limit.
func NormalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return page, limit
}

func upstreamError(err error) error {
	var uploadErr *media.UploadError
	if errors.As(err, &uploadErr) {
		return models.NewUpstreamError(
			fmt.Sprintf("failed to upload %s %s", uploadErr.Kind, uploadErr.Filename),
			uploadErr.Err,
		)
	}
	return models.NewUpstreamError("media upload failed", err)
}
