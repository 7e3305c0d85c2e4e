package media

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// UploadError names the object whose upload failed.
type UploadError struct {
	Kind     Kind
	Filename string
	Err      error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("failed to upload %s %s: %v", e.Kind, e.Filename, e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// UploadBatch uploads objects concurrently, at most limit at a time, and returns the
// results in submission order. The first failure cancels the uploads still running
// and is returned as an *UploadError.
func UploadBatch(ctx context.Context, relay Relay, objects []Object, limit int) ([]Result, error) {
	if len(objects) == 0 {
		return []Result{}, nil
	}

	results := make([]Result, len(objects))
	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, obj := range objects {
		g.Go(func() error {
			res, err := relay.Upload(gctx, obj)
			if err != nil {
				return &UploadError{Kind: obj.Kind, Filename: obj.Filename, Err: err}
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
