package service

import (
	"context"
	"time"

	"inkwell/internal/media"
	"inkwell/internal/models"
)

// UploadService exposes the media relay directly, outside of post creation.
type UploadService struct {
	relay       media.Relay
	concurrency int
}

// UploadResults groups the outcome of a mixed upload.
type UploadResults struct {
	Images    []media.Result    `json:"images"`
	Documents []models.Document `json:"documents"`
}

func NewUploadService(relay media.Relay, concurrency int) *UploadService {
	return &UploadService{relay: relay, concurrency: concurrency}
}

// UploadImage relays one image.
func (s *UploadService) UploadImage(ctx context.Context, obj media.Object) (media.Result, error) {
	obj.Kind = media.KindImage
	results, err := media.UploadBatch(ctx, s.relay, []media.Object{obj}, 1)
	if err != nil {
		return media.Result{}, upstreamError(err)
	}
	return results[0], nil
}

// UploadDocument relays one document and returns its metadata.
func (s *UploadService) UploadDocument(ctx context.Context, obj media.Object) (models.Document, error) {
	docs, err := s.uploadDocuments(ctx, []media.Object{obj})
	if err != nil {
		return models.Document{}, err
	}
	return docs[0], nil
}

// UploadMultiple relays images then documents; any failure fails the whole call.
func (s *UploadService) UploadMultiple(ctx context.Context, images, documents []media.Object) (*UploadResults, error) {
	for i := range images {
		images[i].Kind = media.KindImage
	}
	imageResults, err := media.UploadBatch(ctx, s.relay, images, s.concurrency)
	if err != nil {
		return nil, upstreamError(err)
	}
	docs, err := s.uploadDocuments(ctx, documents)
	if err != nil {
		return nil, err
	}
	return &UploadResults{Images: imageResults, Documents: docs}, nil
}

func (s *UploadService) uploadDocuments(ctx context.Context, objects []media.Object) ([]models.Document, error) {
	for i := range objects {
		objects[i].Kind = media.KindDocument
	}
	results, err := media.UploadBatch(ctx, s.relay, objects, s.concurrency)
	if err != nil {
		return nil, upstreamError(err)
	}
	return documentsFrom(objects, results, time.Now().UTC()), nil
}

// documentsFrom pairs uploaded objects with their results, in order.
func documentsFrom(objects []media.Object, results []media.Result, uploadedAt time.Time) []models.Document {
	docs := make([]models.Document, 0, len(results))
	for i, res := range results {
		docs = append(docs, models.Document{
			Filename:     res.PublicID,
			OriginalName: objects[i].Filename,
			Mimetype:     objects[i].ContentType,
			Size:         int64(len(objects[i].Data)),
			URL:          res.URL,
			UploadedAt:   uploadedAt,
		})
	}
	return docs
}
