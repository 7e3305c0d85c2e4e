// Package testutil provides shared test doubles and fixtures for backend tests.
package testutil

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"sync"

	"inkwell/internal/media"
)

// ErrRelayFailure is returned by MemoryRelay for filenames marked as failing.
var ErrRelayFailure = errors.New("simulated media host failure")

// MemoryRelay is a media relay backed by memory that can be told to fail specific files.
type MemoryRelay struct {
	*media.MemoryRelay

	mu       sync.Mutex
	failing  map[string]bool
	attempts []string
}

// NewMemoryRelay returns a relay using the default blog folders. Uploads of any
// filename in failing return ErrRelayFailure.
func NewMemoryRelay(failing ...string) *MemoryRelay {
	r := &MemoryRelay{
		MemoryRelay: media.NewMemoryRelay(media.Config{
			ImageFolder:    "blog-images",
			DocumentFolder: "blog-documents",
		}),
		failing: make(map[string]bool, len(failing)),
	}
	for _, name := range failing {
		r.failing[name] = true
	}
	return r
}

// Upload records the attempt and stores obj unless its filename is marked as failing.
func (r *MemoryRelay) Upload(ctx context.Context, obj media.Object) (media.Result, error) {
	r.mu.Lock()
	r.attempts = append(r.attempts, obj.Filename)
	fail := r.failing[obj.Filename]
	r.mu.Unlock()

	if fail {
		return media.Result{}, ErrRelayFailure
	}
	return r.MemoryRelay.Upload(ctx, obj)
}

// Attempts lists the filenames passed to Upload, in call order.
func (r *MemoryRelay) Attempts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.attempts...)
}

// TinyPNG returns an in-memory PNG byte slice with the requested dimensions.
func TinyPNG(t interface {
	Helper()
	Fatalf(string, ...any)
}, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	buf := bytes.NewBuffer(nil)
	if err := png.Encode(buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}
