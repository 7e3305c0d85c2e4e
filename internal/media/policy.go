package media

import (
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"

	"inkwell/internal/models"
)

// Upload policy messages.
const (
	MsgFileTooLarge   = "file too large"
	MsgTooManyFiles   = "too many files"
	MsgTypeNotAllowed = "file type not allowed"
	MsgNoFile         = "no file uploaded"
)

var (
	imageExtensions = map[string]bool{
		".jpeg": true, ".jpg": true, ".png": true, ".gif": true, ".webp": true,
	}
	documentExtensions = map[string]bool{
		".pdf": true, ".doc": true, ".docx": true, ".txt": true,
		".xlsx": true, ".xls": true, ".pptx": true, ".ppt": true,
	}
)

// Field is a multipart file field accepted by an endpoint.
type Field struct {
	Name     string
	Kind     Kind
	MaxCount int
}

// Policy bounds what a single request may upload.
type Policy struct {
	MaxFileBytes int64
	MaxFiles     int
}

// Collect checks every file in form against the policy and reads the accepted ones.
// The returned map is keyed by field name and keeps submission order.
func (p Policy) Collect(form *multipart.Form, fields ...Field) (map[string][]Object, error) {
	out := make(map[string][]Object, len(fields))
	if form == nil {
		return out, nil
	}

	allowed := make(map[string]Field, len(fields))
	for _, f := range fields {
		allowed[f.Name] = f
	}

	total := 0
	for name, headers := range form.File {
		field, ok := allowed[name]
		if !ok {
			return nil, models.NewValidationError("unexpected field " + name)
		}
		if field.MaxCount > 0 && len(headers) > field.MaxCount {
			return nil, models.NewValidationError(MsgTooManyFiles)
		}
		total += len(headers)
	}
	if p.MaxFiles > 0 && total > p.MaxFiles {
		return nil, models.NewValidationError(MsgTooManyFiles)
	}

	for _, field := range fields {
		for _, fh := range form.File[field.Name] {
			obj, err := p.Read(fh, field.Kind)
			if err != nil {
				return nil, err
			}
			out[field.Name] = append(out[field.Name], obj)
		}
	}
	return out, nil
}

// Read validates one file header and loads its contents.
func (p Policy) Read(fh *multipart.FileHeader, kind Kind) (Object, error) {
	if fh == nil {
		return Object{}, models.NewValidationError(MsgNoFile)
	}
	if p.MaxFileBytes > 0 && fh.Size > p.MaxFileBytes {
		return Object{}, models.NewValidationError(MsgFileTooLarge)
	}
	contentType := fh.Header.Get("Content-Type")
	if !AllowedFile(fh.Filename, contentType) {
		return Object{}, models.NewValidationError(MsgTypeNotAllowed)
	}

	f, err := fh.Open()
	if err != nil {
		return Object{}, models.NewInternalError(fmt.Errorf("open upload %s: %w", fh.Filename, err))
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, fh.Size+1))
	if err != nil {
		return Object{}, models.NewInternalError(fmt.Errorf("read upload %s: %w", fh.Filename, err))
	}
	if p.MaxFileBytes > 0 && int64(len(data)) > p.MaxFileBytes {
		return Object{}, models.NewValidationError(MsgFileTooLarge)
	}

	return Object{
		Kind:        kind,
		Filename:    fh.Filename,
		ContentType: contentType,
		Data:        data,
	}, nil
}

// AllowedFile applies the extension and MIME filter shared by all upload endpoints.
func AllowedFile(filename, contentType string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	if !imageExtensions[ext] && !documentExtensions[ext] {
		return false
	}
	mimeType := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	return strings.HasPrefix(mimeType, "image/") ||
		strings.HasPrefix(mimeType, "application/") ||
		mimeType == "text/plain"
}
