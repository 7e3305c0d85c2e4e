package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

const (
	cloudinaryImageTransformation = "q_auto:good,f_auto"
	cloudinaryImageResource       = "image"
	cloudinaryRawResource         = "raw"
)

// cloudinaryUploader is the slice of the Cloudinary upload API the relay uses.
type cloudinaryUploader interface {
	Upload(ctx context.Context, file interface{}, params uploader.UploadParams) (*uploader.UploadResult, error)
	Destroy(ctx context.Context, params uploader.DestroyParams) (*uploader.DestroyResult, error)
}

// CloudinaryRelay hosts images and documents on Cloudinary.
type CloudinaryRelay struct {
	api cloudinaryUploader
	cfg Config
	now func() time.Time
}

// NewCloudinaryRelay authenticates with CloudinaryURL when set, otherwise with the
// cloud name and key pair.
func NewCloudinaryRelay(cfg Config) (*CloudinaryRelay, error) {
	var (
		cld *cloudinary.Cloudinary
		err error
	)
	if cfg.CloudinaryURL != "" {
		cld, err = cloudinary.NewFromURL(cfg.CloudinaryURL)
	} else {
		cld, err = cloudinary.NewFromParams(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
	}
	if err != nil {
		return nil, fmt.Errorf("cloudinary configuration error: %w", err)
	}
	return newCloudinaryRelay(&cld.Upload, cfg), nil
}

func newCloudinaryRelay(api cloudinaryUploader, cfg Config) *CloudinaryRelay {
	return &CloudinaryRelay{api: api, cfg: cfg, now: time.Now}
}

// Upload sends obj to Cloudinary. Images are transcoded by the host; documents are stored raw.
func (r *CloudinaryRelay) Upload(ctx context.Context, obj Object) (Result, error) {
	publicID := PublicIDFor(obj, r.now())
	params := cloudinaryUploadParams(obj.Kind, r.cfg.Folder(obj.Kind), publicID)

	res, err := r.api.Upload(ctx, bytes.NewReader(obj.Data), params)
	if err != nil {
		return Result{}, err
	}
	if res == nil {
		return Result{}, errors.New("cloudinary returned an empty response")
	}
	if res.Error.Message != "" {
		return Result{}, errors.New(res.Error.Message)
	}
	size := int64(res.Bytes)
	if size == 0 {
		size = int64(len(obj.Data))
	}
	return Result{
		URL:         res.SecureURL,
		PublicID:    res.PublicID,
		Size:        size,
		ContentType: obj.ContentType,
	}, nil
}

// Delete destroys the hosted object; kind picks the Cloudinary resource type.
func (r *CloudinaryRelay) Delete(ctx context.Context, publicID string, kind Kind) error {
	res, err := r.api.Destroy(ctx, uploader.DestroyParams{
		PublicID:     publicID,
		ResourceType: cloudinaryResourceType(kind),
	})
	if err != nil {
		return err
	}
	if res != nil && res.Error.Message != "" {
		return errors.New(res.Error.Message)
	}
	return nil
}

func cloudinaryUploadParams(kind Kind, folder, publicID string) uploader.UploadParams {
	params := uploader.UploadParams{
		Folder:       folder,
		PublicID:     publicID,
		ResourceType: cloudinaryResourceType(kind),
	}
	if kind == KindImage {
		params.Transformation = cloudinaryImageTransformation
	}
	return params
}

func cloudinaryResourceType(kind Kind) string {
	if kind == KindDocument {
		return cloudinaryRawResource
	}
	return cloudinaryImageResource
}
