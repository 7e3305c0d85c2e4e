package testutil

import (
	"bytes"
	"mime"
	"mime/multipart"
	"net/textproto"
	"testing"

	"github.com/stretchr/testify/require"
)

// File is one part of a multipart test body.
type File struct {
	Field       string
	Name        string
	ContentType string
	Data        []byte
}

// MultipartBody encodes fields and files and returns the body with its content type.
func MultipartBody(t *testing.T, fields map[string]string, files ...File) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+f.Field+`"; filename="`+f.Name+`"`)
		h.Set("Content-Type", f.ContentType)
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(f.Data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

// MultipartForm parses an encoded body back into a form, as a server would see it.
func MultipartForm(t *testing.T, fields map[string]string, files ...File) *multipart.Form {
	t.Helper()
	body, contentType := MultipartBody(t, fields, files...)
	_, params, err := mime.ParseMediaType(contentType)
	require.NoError(t, err)
	form, err := multipart.NewReader(body, params["boundary"]).ReadForm(32 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })
	return form
}
