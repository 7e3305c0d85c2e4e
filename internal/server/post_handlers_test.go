package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"inkwell/internal/models"
	"inkwell/internal/repository"
	"inkwell/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func (e *testEnv) createPost(t *testing.T, token, title string, published bool) string {
	t.Helper()
	resp, body := e.doJSON(t, http.MethodPost, "/api/posts", token, map[string]any{
		"title":       title,
		"content":     "Body of " + title,
		"isPublished": published,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	return body["post"].(map[string]any)["id"].(string)
}

func TestCreatePost_JSON(t *testing.T) {
	env := newTestEnv(t)
	token, userID := env.signup(t, "alice")

	resp, body := env.doJSON(t, http.MethodPost, "/api/posts", token, map[string]any{
		"title":   "Hello",
		"content": "First post",
		"tags":    []string{"go", " fiber "},
		"links": []map[string]string{
			{"title": "Go", "url": "https://go.dev"},
			{"title": "", "url": "https://dropped.example.com"},
		},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	assert.Equal(t, "Post created successfully", body["message"])

	post := body["post"].(map[string]any)
	assert.Equal(t, "Hello", post["title"])
	assert.Equal(t, true, post["isPublished"])
	assert.Equal(t, []any{"go", "fiber"}, post["tags"])
	assert.Len(t, post["links"], 1)
	assert.Empty(t, post["images"])
	author := post["author"].(map[string]any)
	assert.Equal(t, userID, author["id"])
	assert.Equal(t, "alice", author["username"])
	assert.NotContains(t, author, "password")
}

func TestCreatePost_Multipart(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.signup(t, "alice")

	resp, body := env.doMultipart(t, "/api/posts", token,
		map[string]string{
			"title":       "With files",
			"content":     "Has attachments",
			"tags":        "travel, photos",
			"links":       `[{"title":"Docs","url":"https://example.com/docs","description":"reference"}]`,
			"isPublished": "false",
		},
		testutil.File{Field: "images", Name: "a.png", ContentType: "image/png", Data: testutil.TinyPNG(t, 4, 4)},
		testutil.File{Field: "images", Name: "b.png", ContentType: "image/png", Data: testutil.TinyPNG(t, 2, 2)},
		testutil.File{Field: "documents", Name: "notes.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.4 test")},
	)
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)

	post := body["post"].(map[string]any)
	assert.Equal(t, false, post["isPublished"])
	assert.Equal(t, []any{"travel", "photos"}, post["tags"])
	assert.Len(t, post["images"], 2)
	docs := post["documents"].([]any)
	require.Len(t, docs, 1)
	doc := docs[0].(map[string]any)
	assert.Equal(t, "notes.pdf", doc["originalName"])
	assert.Equal(t, "application/pdf", doc["mimetype"])
	assert.EqualValues(t, 13, doc["size"])
	links := post["links"].([]any)
	require.Len(t, links, 1)
	assert.Equal(t, "reference", links[0].(map[string]any)["description"])
	assert.Equal(t, 3, env.relay.Len())
}

func TestCreatePost_MalformedLinksIgnored(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.signup(t, "alice")

	resp, body := env.doMultipart(t, "/api/posts", token, map[string]string{
		"title":   "Links",
		"content": "Broken links payload",
		"links":   "[not json",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	assert.Empty(t, body["post"].(map[string]any)["links"])
}

func TestCreatePost_NonHTTPLinksDropped(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.signup(t, "alice")

	resp, body := env.doJSON(t, http.MethodPost, "/api/posts", token, map[string]any{
		"title":   "Mixed links",
		"content": "One good, two not",
		"links": []map[string]string{
			{"title": "FTP mirror", "url": "ftp://x"},
			{"title": "Go", "url": "https://go.dev"},
			{"title": "Bare host", "url": "go.dev"},
		},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	links := body["post"].(map[string]any)["links"].([]any)
	require.Len(t, links, 1)
	assert.Equal(t, "https://go.dev", links[0].(map[string]any)["url"])
}

func TestCreatePost_UploadFailure(t *testing.T) {
	env := newTestEnv(t, "bad.png")
	token, _ := env.signup(t, "alice")

	resp, body := env.doMultipart(t, "/api/posts", token,
		map[string]string{"title": "Doomed", "content": "Upload fails"},
		testutil.File{Field: "images", Name: "bad.png", ContentType: "image/png", Data: testutil.TinyPNG(t, 2, 2)},
	)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, models.CodeUpstream, body["code"])
	assert.Equal(t, "failed to upload image bad.png", body["error"])
	assert.Equal(t, testutil.ErrRelayFailure.Error(), body["details"])

	resp, body = env.doJSON(t, http.MethodGet, "/api/posts", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, body["posts"])
}

func TestCreatePost_RejectsFiles(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.signup(t, "alice")
	fields := map[string]string{"title": "Files", "content": "Rejected"}
	png := testutil.TinyPNG(t, 2, 2)

	tooMany := make([]testutil.File, 0, 6)
	for i := 0; i < 6; i++ {
		tooMany = append(tooMany, testutil.File{
			Field: "images", Name: fmt.Sprintf("%d.png", i), ContentType: "image/png", Data: png,
		})
	}

	tests := []struct {
		name    string
		files   []testutil.File
		message string
	}{
		{"too many images", tooMany, "too many files"},
		{"unexpected field", []testutil.File{{Field: "avatar", Name: "a.png", ContentType: "image/png", Data: png}}, "unexpected field avatar"},
		{"disallowed type", []testutil.File{{Field: "documents", Name: "run.exe", ContentType: "application/octet-stream", Data: []byte("MZ")}}, "file type not allowed"},
		{"wrong mime", []testutil.File{{Field: "images", Name: "a.png", ContentType: "video/mp4", Data: png}}, "file type not allowed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := env.doMultipart(t, "/api/posts", token, fields, tt.files...)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, tt.message, body["error"])
		})
	}
	assert.Empty(t, env.relay.Attempts())
}

func TestCreatePost_Validation(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.signup(t, "alice")

	resp, body := env.doJSON(t, http.MethodPost, "/api/posts", token, map[string]any{"title": "  ", "content": "x"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, models.CodeValidation, body["code"])
	fields := body["fields"].([]any)
	assert.Equal(t, "title", fields[0].(map[string]any)["field"])

	resp, body = env.doMultipart(t, "/api/posts", token, map[string]string{
		"title": "ok", "content": "ok", "isPublished": "maybe",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "isPublished must be a boolean", body["error"])

	resp, _ = env.doJSON(t, http.MethodPost, "/api/posts", "", map[string]any{"title": "t", "content": "c"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestGetPosts_FeedAndPagination(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.signup(t, "alice")
	env.createPost(t, token, "one", true)
	env.createPost(t, token, "two", true)
	env.createPost(t, token, "three", true)
	env.createPost(t, token, "draft", false)

	resp, body := env.doJSON(t, http.MethodGet, "/api/posts?limit=2", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	posts := body["posts"].([]any)
	require.Len(t, posts, 2)
	assert.Equal(t, "three", posts[0].(map[string]any)["title"])
	assert.Equal(t, map[string]any{"current": float64(1), "pages": float64(2), "total": float64(3)}, body["pagination"])

	resp, body = env.doJSON(t, http.MethodGet, "/api/posts?page=2&limit=2", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	posts = body["posts"].([]any)
	require.Len(t, posts, 1)
	assert.Equal(t, "one", posts[0].(map[string]any)["title"])
}

func TestGetMyPosts(t *testing.T) {
	env := newTestEnv(t)
	alice, _ := env.signup(t, "alice")
	bob, _ := env.signup(t, "bob")
	env.createPost(t, alice, "published", true)
	env.createPost(t, alice, "draft", false)
	env.createPost(t, bob, "not mine", true)

	req := httptest.NewRequest(http.MethodGet, "/api/posts/user", nil)
	req.Header.Set("Authorization", "Bearer "+alice)
	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var posts []map[string]any
	require.NoError(t, json.Unmarshal(raw, &posts))
	require.Len(t, posts, 2)
	assert.Equal(t, "draft", posts[0]["title"])
	assert.Equal(t, "published", posts[1]["title"])
}

func TestGetPost(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.signup(t, "alice")
	id := env.createPost(t, token, "viewed", true)

	env.doJSON(t, http.MethodGet, "/api/posts/"+id, token, nil)
	resp, body := env.doJSON(t, http.MethodGet, "/api/posts/"+id, token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 2, body["views"])
	assert.Equal(t, "alice", body["author"].(map[string]any)["username"])

	for _, missing := range []string{"not-a-uuid", models.NewID()} {
		resp, body = env.doJSON(t, http.MethodGet, "/api/posts/"+missing, token, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, missing)
		assert.Equal(t, models.CodeNotFound, body["code"])
		assert.NotContains(t, body, "details")
	}
}

func TestUpdatePost(t *testing.T) {
	env := newTestEnv(t)
	alice, _ := env.signup(t, "alice")
	bob, _ := env.signup(t, "bob")
	id := env.createPost(t, alice, "before", true)

	resp, body := env.doJSON(t, http.MethodPut, "/api/posts/"+id, alice, map[string]any{
		"title":       "after",
		"tags":        []string{"edited"},
		"isPublished": false,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, "Post updated successfully", body["message"])
	post := body["post"].(map[string]any)
	assert.Equal(t, "after", post["title"])
	assert.Equal(t, "Body of before", post["content"])
	assert.Equal(t, false, post["isPublished"])

	// Ownership is checked before the payload is validated.
	resp, body = env.doJSON(t, http.MethodPut, "/api/posts/"+id, bob, map[string]any{"title": ""})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "not authorized to update this post", body["error"])

	resp, _ = env.doJSON(t, http.MethodPut, "/api/posts/"+id, alice, map[string]any{"title": "   "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = env.doJSON(t, http.MethodPut, "/api/posts/"+models.NewID(), alice, map[string]any{"title": "x"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUpdatePost_NonAuthorForbiddenWhateverTheBody(t *testing.T) {
	env := newTestEnv(t)
	alice, _ := env.signup(t, "alice")
	bob, _ := env.signup(t, "bob")
	id := env.createPost(t, alice, "guarded", true)

	for _, raw := range []string{`{"title":`, `{"title":123}`, `not json at all`} {
		t.Run(raw, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPut, "/api/posts/"+id, strings.NewReader(raw))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Authorization", "Bearer "+bob)
			resp, body := env.do(t, req)
			assert.Equal(t, http.StatusForbidden, resp.StatusCode, body)
			assert.Equal(t, models.CodeForbidden, body["code"])
		})
	}

	// The author still gets 400 for the same malformed body.
	req := httptest.NewRequest(http.MethodPut, "/api/posts/"+id, strings.NewReader(`{"title":`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+alice)
	resp, body := env.do(t, req)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Invalid request body", body["error"])
}

func TestDeletePost(t *testing.T) {
	env := newTestEnv(t)
	alice, _ := env.signup(t, "alice")
	bob, _ := env.signup(t, "bob")
	id := env.createPost(t, alice, "short lived", true)

	resp, body := env.doJSON(t, http.MethodDelete, "/api/posts/"+id, bob, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "not authorized to delete this post", body["error"])

	resp, body = env.doJSON(t, http.MethodDelete, "/api/posts/"+id, alice, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Post deleted successfully", body["message"])

	resp, _ = env.doJSON(t, http.MethodGet, "/api/posts/"+id, alice, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestToggleLike(t *testing.T) {
	env := newTestEnv(t)
	alice, _ := env.signup(t, "alice")
	bob, bobID := env.signup(t, "bob")
	id := env.createPost(t, alice, "likeable", true)

	resp, body := env.doJSON(t, http.MethodPost, "/api/posts/"+id+"/like", bob, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Post liked", body["message"])
	assert.Equal(t, "liked", body["action"])
	post := body["post"].(map[string]any)
	assert.Equal(t, []any{bobID}, post["likes"])
	assert.EqualValues(t, 1, post["likesCount"])

	resp, body = env.doJSON(t, http.MethodPost, "/api/posts/"+id+"/like", bob, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Post unliked", body["message"])
	assert.Equal(t, "unliked", body["action"])
	assert.Empty(t, body["post"].(map[string]any)["likes"])

	resp, _ = env.doJSON(t, http.MethodPost, "/api/posts/"+models.NewID()+"/like", bob, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAddComment(t *testing.T) {
	env := newTestEnv(t)
	alice, _ := env.signup(t, "alice")
	bob, _ := env.signup(t, "bob")
	id := env.createPost(t, alice, "discussed", true)

	resp, body := env.doJSON(t, http.MethodPost, "/api/posts/"+id+"/comment", bob, map[string]string{
		"content": "  Nice post  ",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	assert.Equal(t, "Comment added successfully", body["message"])
	comments := body["post"].(map[string]any)["comments"].([]any)
	require.Len(t, comments, 1)
	comment := comments[0].(map[string]any)
	assert.Equal(t, "Nice post", comment["content"])
	assert.Equal(t, "bob", comment["author"].(map[string]any)["username"])

	resp, body = env.doJSON(t, http.MethodPost, "/api/posts/"+id+"/comment", bob, map[string]string{"content": "   "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, models.CodeValidation, body["code"])

	resp, _ = env.doJSON(t, http.MethodPost, "/api/posts/"+models.NewID()+"/comment", bob, map[string]string{"content": "hi"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestParseTags(t *testing.T) {
	tests := []struct {
		raw  string
		want []string
	}{
		{"", nil},
		{"   ", nil},
		{`["a","b"]`, []string{"a", "b"}},
		{"a, b,c", []string{"a", " b", "c"}},
		{"[broken", []string{"[broken"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseTags(tt.raw), tt.raw)
	}
}

func TestDecodeLinks(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, decodeLinks(ctx, ""))
	assert.Nil(t, decodeLinks(ctx, "{oops"))
	assert.Nil(t, decodeLinks(ctx, `{"title":"not an array"}`))

	links := decodeLinks(ctx, `[{"title":"Go","url":"https://go.dev"}]`)
	assert.Equal(t, []models.Link{{Title: "Go", URL: "https://go.dev"}}, links)
}

type mockPostRepository struct {
	mock.Mock
	repository.PostRepository
}

func (m *mockPostRepository) List(ctx context.Context, filter repository.PostFilter, limit, offset int) ([]*models.Post, int64, error) {
	args := m.Called(ctx, filter, limit, offset)
	posts, _ := args.Get(0).([]*models.Post)
	return posts, args.Get(1).(int64), args.Error(2)
}

func TestGetPosts_StoreFailureHidesCause(t *testing.T) {
	sqlStore := testutil.NewSQLiteStore(t)
	posts := &mockPostRepository{}
	posts.On("List", mock.Anything, repository.PostFilter{PublishedOnly: true}, 10, 0).
		Return(nil, int64(0), models.NewInternalError(errors.New("connection reset by peer")))

	srv, err := NewServerWithDeps(testConfig(), &repository.Store{Users: sqlStore.Users, Posts: posts}, nil, testutil.NewMemoryRelay())
	require.NoError(t, err)
	env := &testEnv{server: srv, app: srv.App()}

	resp, body := env.doJSON(t, http.MethodGet, "/api/posts", "", nil)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, models.CodeInternal, body["code"])
	assert.Equal(t, "Internal server error", body["error"])
	assert.NotContains(t, body, "details")
	posts.AssertExpectations(t)
}
