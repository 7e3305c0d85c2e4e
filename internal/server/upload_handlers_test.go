package server

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"inkwell/internal/models"
	"inkwell/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadImage(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.signup(t, "alice")

	resp, body := env.doMultipart(t, "/api/upload/image", token, nil,
		testutil.File{Field: "image", Name: "cover.png", ContentType: "image/png", Data: testutil.TinyPNG(t, 3, 3)},
	)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, "Image uploaded successfully", body["message"])
	publicID := body["publicId"].(string)
	assert.True(t, strings.HasPrefix(body["url"].(string), "memory://blog-images/"))
	_, stored := env.relay.Get(publicID)
	assert.True(t, stored)
}

func TestUploadDocument(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.signup(t, "alice")

	resp, body := env.doMultipart(t, "/api/upload/document", token, nil,
		testutil.File{Field: "document", Name: "slides.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.7")},
	)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, "Document uploaded successfully", body["message"])
	doc := body["document"].(map[string]any)
	assert.Equal(t, "slides.pdf", doc["originalName"])
	assert.EqualValues(t, 8, doc["size"])
	assert.True(t, strings.HasPrefix(doc["url"].(string), "memory://blog-documents/"))
}

func TestUploadMultiple(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.signup(t, "alice")

	resp, body := env.doMultipart(t, "/api/upload/multiple", token, nil,
		testutil.File{Field: "images", Name: "a.png", ContentType: "image/png", Data: testutil.TinyPNG(t, 2, 2)},
		testutil.File{Field: "images", Name: "b.gif", ContentType: "image/gif", Data: []byte("GIF89a")},
		testutil.File{Field: "documents", Name: "c.txt", ContentType: "text/plain", Data: []byte("hello")},
	)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, "Files uploaded successfully", body["message"])
	results := body["results"].(map[string]any)
	assert.Len(t, results["images"], 2)
	assert.Len(t, results["documents"], 1)
	assert.Equal(t, 3, env.relay.Len())
}

func TestUploadRejections(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.signup(t, "alice")
	oversized := bytes.Repeat([]byte{0x1}, 1<<20+1)

	tests := []struct {
		name    string
		path    string
		files   []testutil.File
		message string
	}{
		{"missing image", "/api/upload/image", nil, "no file uploaded"},
		{"missing document", "/api/upload/document", nil, "no file uploaded"},
		{"empty multiple", "/api/upload/multiple", nil, "no file uploaded"},
		{
			"too large", "/api/upload/image",
			[]testutil.File{{Field: "image", Name: "huge.png", ContentType: "image/png", Data: oversized}},
			"file too large",
		},
		{
			"second image", "/api/upload/image",
			[]testutil.File{
				{Field: "image", Name: "a.png", ContentType: "image/png", Data: []byte("a")},
				{Field: "image", Name: "b.png", ContentType: "image/png", Data: []byte("b")},
			},
			"too many files",
		},
		{
			"wrong field", "/api/upload/document",
			[]testutil.File{{Field: "image", Name: "a.pdf", ContentType: "application/pdf", Data: []byte("a")}},
			"unexpected field image",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := env.doMultipart(t, tt.path, token, map[string]string{"note": "x"}, tt.files...)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, tt.message, body["error"])
			assert.Equal(t, models.CodeValidation, body["code"])
		})
	}
	assert.Zero(t, env.relay.Len())
}

func TestUploadTooManyFullSizeFiles(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.signup(t, "alice")

	// Ten files at the size cap plus one more: the body is just over
	// MaxFiles*MaxFileBytes but the policy, not the body limit, rejects it.
	full := bytes.Repeat([]byte{0x1}, 1<<20)
	files := make([]testutil.File, 0, 11)
	for i := range 10 {
		files = append(files, testutil.File{Field: "image", Name: fmt.Sprintf("%d.png", i), ContentType: "image/png", Data: full})
	}
	files = append(files, testutil.File{Field: "image", Name: "extra.png", ContentType: "image/png", Data: []byte("x")})

	resp, body := env.doMultipart(t, "/api/upload/image", token, nil, files...)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "too many files", body["error"])
	assert.Zero(t, env.relay.Len())
}

func TestUploadFailureIsUpstream(t *testing.T) {
	env := newTestEnv(t, "broken.pdf")
	token, _ := env.signup(t, "alice")

	resp, body := env.doMultipart(t, "/api/upload/document", token, nil,
		testutil.File{Field: "document", Name: "broken.pdf", ContentType: "application/pdf", Data: []byte("x")},
	)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, models.CodeUpstream, body["code"])
	assert.Equal(t, "failed to upload document broken.pdf", body["error"])
}

func TestUploadRequiresAuth(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.doMultipart(t, "/api/upload/image", "", nil,
		testutil.File{Field: "image", Name: "a.png", ContentType: "image/png", Data: []byte("a")},
	)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
