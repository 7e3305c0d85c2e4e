package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"mime/multipart"
	"strconv"
	"strings"

	"inkwell/internal/media"
	"inkwell/internal/models"
	"inkwell/internal/observability"
	"inkwell/internal/service"

	"github.com/gofiber/fiber/v2"
)

const (
	maxPostImages    = 5
	maxPostDocuments = 5
)

// createPostRequest is the JSON form of POST /api/posts.
type createPostRequest struct {
	Title       string        `json:"title"`
	Content     string        `json:"content"`
	Tags        []string      `json:"tags"`
	Links       []models.Link `json:"links"`
	IsPublished *bool         `json:"isPublished"`
}

// GetPosts handles GET /api/posts
// @Summary Published posts feed
// @Tags posts
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Page size (max 100)" default(10)
// @Success 200 {object} models.PostPage
// @Router /posts [get]
func (s *Server) GetPosts(c *fiber.Ctx) error {
	page, limit := parsePagination(c)

	result, err := s.postService.ListPublished(c.UserContext(), page, limit)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(result)
}

// GetMyPosts handles GET /api/posts/user
// @Summary Posts written by the caller, drafts included
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Page size (max 100)" default(10)
// @Success 200 {array} models.Post
// @Router /posts/user [get]
func (s *Server) GetMyPosts(c *fiber.Ctx) error {
	page, limit := parsePagination(c)

	posts, err := s.postService.ListByAuthor(c.UserContext(), currentUserID(c), page, limit)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(posts)
}

// CreatePost handles POST /api/posts
// @Summary Create a post
// @Description Accepts multipart/form-data with images and documents, or a JSON body without files.
// @Tags posts
// @Accept multipart/form-data,json
// @Produce json
// @Security BearerAuth
// @Param title formData string true "Title"
// @Param content formData string true "Content"
// @Param tags formData string false "JSON array or comma separated list"
// @Param links formData string false "JSON array of {title,url,description}"
// @Param images formData file false "Up to 5 images"
// @Param documents formData file false "Up to 5 documents"
// @Success 201 {object} object{message=string,post=models.Post}
// @Failure 400 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /posts [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	in, err := s.createPostInput(c)
	if err != nil {
		return respondError(c, err)
	}

	post, err := s.postService.CreatePost(c.UserContext(), in)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Post created successfully",
		"post":    post,
	})
}

func (s *Server) createPostInput(c *fiber.Ctx) (service.CreatePostInput, error) {
	in := service.CreatePostInput{AuthorID: currentUserID(c)}

	if !isMultipart(c) {
		var req createPostRequest
		if err := c.BodyParser(&req); err != nil {
			return in, models.NewValidationError("Invalid request body")
		}
		in.Title = req.Title
		in.Content = req.Content
		in.Tags = req.Tags
		in.Links = req.Links
		in.IsPublished = req.IsPublished
		return in, nil
	}

	form, err := c.MultipartForm()
	if err != nil {
		return in, models.NewValidationError("Invalid multipart form")
	}

	in.Title = formValue(form, "title")
	in.Content = formValue(form, "content")
	in.Tags = parseTags(formValue(form, "tags"))
	in.Links = decodeLinks(c.UserContext(), formValue(form, "links"))
	if raw := formValue(form, "isPublished"); raw != "" {
		published, err := strconv.ParseBool(raw)
		if err != nil {
			return in, models.NewFieldValidationError([]models.FieldError{
				{Field: "isPublished", Message: "isPublished must be a boolean"},
			})
		}
		in.IsPublished = &published
	}

	files, err := s.uploadPolicy.Collect(form,
		media.Field{Name: "images", Kind: media.KindImage, MaxCount: maxPostImages},
		media.Field{Name: "documents", Kind: media.KindDocument, MaxCount: maxPostDocuments},
	)
	if err != nil {
		return in, err
	}
	in.Images = files["images"]
	in.Documents = files["documents"]
	return in, nil
}

// GetPost handles GET /api/posts/:id
// @Summary Get a post and count the view
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Post ID"
// @Success 200 {object} models.Post
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id} [get]
func (s *Server) GetPost(c *fiber.Ctx) error {
	post, err := s.postService.GetPost(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(post)
}

// UpdatePost handles PUT /api/posts/:id
// @Summary Update a post (author only)
// @Tags posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Post ID"
// @Param request body service.UpdatePostInput true "Fields to change"
// @Success 200 {object} object{message=string,post=models.Post}
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id} [put]
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	// Ownership first: a non-author gets 403 whatever the body holds.
	post, err := s.postService.AuthorizeUpdate(c.UserContext(), currentUserID(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}

	var req service.UpdatePostInput
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}
	req.UserID = post.AuthorID
	req.PostID = post.ID

	post, err = s.postService.ApplyUpdate(c.UserContext(), post, req)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Post updated successfully",
		"post":    post,
	})
}

// DeletePost handles DELETE /api/posts/:id
// @Summary Delete a post (author only)
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Post ID"
// @Success 200 {object} object{message=string}
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id} [delete]
func (s *Server) DeletePost(c *fiber.Ctx) error {
	if err := s.postService.DeletePost(c.UserContext(), currentUserID(c), c.Params("id")); err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{"message": "Post deleted successfully"})
}

// ToggleLike handles POST /api/posts/:id/like
// @Summary Like or unlike a post
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Post ID"
// @Success 200 {object} object{message=string,action=string,post=models.Post}
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id}/like [post]
func (s *Server) ToggleLike(c *fiber.Ctx) error {
	post, liked, err := s.postService.ToggleLike(c.UserContext(), currentUserID(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}

	message, action := "Post unliked", "unliked"
	if liked {
		message, action = "Post liked", "liked"
	}
	return c.JSON(fiber.Map{
		"message": message,
		"action":  action,
		"post":    post,
	})
}

// AddComment handles POST /api/posts/:id/comment
// @Summary Comment on a post
// @Tags posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Post ID"
// @Param request body service.AddCommentInput true "Comment"
// @Success 201 {object} object{message=string,post=models.Post}
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id}/comment [post]
func (s *Server) AddComment(c *fiber.Ctx) error {
	var req service.AddCommentInput
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}
	req.UserID = currentUserID(c)
	req.PostID = c.Params("id")

	post, err := s.postService.AddComment(c.UserContext(), req)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Comment added successfully",
		"post":    post,
	})
}

func isMultipart(c *fiber.Ctx) bool {
	return strings.HasPrefix(string(c.Request().Header.ContentType()), fiber.MIMEMultipartForm)
}

func formValue(form *multipart.Form, key string) string {
	if values := form.Value[key]; len(values) > 0 {
		return values[0]
	}
	return ""
}

// decodeLinks reads the links form field. A malformed payload is logged and
// treated as no links rather than failing the post.
func decodeLinks(ctx context.Context, raw string) []models.Link {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var links []models.Link
	if err := json.Unmarshal([]byte(raw), &links); err != nil {
		observability.Logger.WarnContext(ctx, "ignoring malformed links payload",
			slog.String("error", err.Error()))
		return nil
	}
	return links
}

// parseTags accepts a JSON array or a comma separated list.
func parseTags(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if strings.HasPrefix(raw, "[") {
		var tags []string
		if err := json.Unmarshal([]byte(raw), &tags); err == nil {
			return tags
		}
	}
	return strings.Split(raw, ",")
}
