package seed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log/slog"

	"inkwell/internal/media"
	"inkwell/internal/models"
	"inkwell/internal/observability"
)

const (
	coverWidth  = 64
	coverHeight = 40
)

// uploadCover renders a two-tone cover and relays it, remembering the object for Cleanup.
func (s *Seeder) uploadCover(ctx context.Context, post *models.Post) (string, error) {
	data, err := s.factory.CoverPNG(coverWidth, coverHeight)
	if err != nil {
		return "", err
	}
	obj := media.Object{
		Kind:        media.KindImage,
		Filename:    fmt.Sprintf("cover-%d.png", post.CreatedAt.UnixNano()),
		ContentType: "image/png",
		Data:        data,
	}
	res, err := s.relay.Upload(ctx, obj)
	if err != nil {
		return "", fmt.Errorf("upload cover: %w", err)
	}
	obj.PublicID = res.PublicID
	s.uploaded = append(s.uploaded, obj)
	return res.URL, nil
}

// Cleanup deletes every object this seeder uploaded. Deleted objects are
// forgotten, so calling it twice is safe.
func (s *Seeder) Cleanup(ctx context.Context) error {
	var errs []error
	remaining := s.uploaded[:0]
	for _, obj := range s.uploaded {
		if err := s.relay.Delete(ctx, obj.PublicID, obj.Kind); err != nil {
			observability.Logger.WarnContext(ctx, "failed to delete seeded media",
				slog.String("public_id", obj.PublicID),
				slog.String("error", err.Error()),
			)
			errs = append(errs, err)
			remaining = append(remaining, obj)
		}
	}
	s.uploaded = remaining
	return errors.Join(errs...)
}

// CoverPNG draws a w by h PNG split into two random colours.
func (f *Factory) CoverPNG(w, h int) ([]byte, error) {
	top := f.rgb()
	bottom := f.rgb()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		c := top
		if y >= h/2 {
			c = bottom
		}
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode cover: %w", err)
	}
	return buf.Bytes(), nil
}

func (f *Factory) rgb() color.RGBA {
	return color.RGBA{
		R: uint8(f.faker.Number(0, 255)),
		G: uint8(f.faker.Number(0, 255)),
		B: uint8(f.faker.Number(0, 255)),
		A: 255,
	}
}
