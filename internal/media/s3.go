package media

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// s3ObjectAPI is the slice of the S3 client the relay uses.
type s3ObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Relay hosts objects in an S3-compatible bucket. Images are converted to WebP before upload.
type S3Relay struct {
	client s3ObjectAPI
	cfg    Config
	now    func() time.Time
}

// NewS3Relay builds an S3 client from cfg. Static credentials are used when a key pair is
// configured; otherwise the default AWS credential chain applies.
func NewS3Relay(ctx context.Context, cfg Config) (*S3Relay, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.S3Region),
	}
	if cfg.S3AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.S3AccessKeyID,
			cfg.S3SecretAccessKey,
			"",
		)))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load s3 configuration: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.S3ForcePathStyle
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
		}
	})
	return newS3Relay(client, cfg), nil
}

func newS3Relay(client s3ObjectAPI, cfg Config) *S3Relay {
	return &S3Relay{client: client, cfg: cfg, now: time.Now}
}

// Upload stores obj under <folder>/<public id>.
func (r *S3Relay) Upload(ctx context.Context, obj Object) (Result, error) {
	publicID := PublicIDFor(obj, r.now())
	body, contentType := obj.Data, obj.ContentType
	if obj.Kind == KindImage {
		if converted, ok := TranscodeWebP(obj.Data); ok {
			body, contentType = converted, "image/webp"
		}
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := r.key(obj.Kind, publicID)
	_, err := r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(r.cfg.S3Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(body))),
	})
	if err != nil {
		return Result{}, err
	}

	return Result{
		URL:         r.publicURL(key),
		PublicID:    key,
		Size:        int64(len(body)),
		ContentType: contentType,
	}, nil
}

// Delete removes the object. publicID is the key returned by Upload.
func (r *S3Relay) Delete(ctx context.Context, publicID string, _ Kind) error {
	_, err := r.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(r.cfg.S3Bucket),
		Key:    aws.String(publicID),
	})
	return err
}

func (r *S3Relay) key(kind Kind, publicID string) string {
	folder := r.cfg.Folder(kind)
	if folder == "" {
		return publicID
	}
	return path.Join(folder, publicID)
}

func (r *S3Relay) publicURL(key string) string {
	base := strings.TrimRight(r.cfg.S3PublicBaseURL, "/")
	if base == "" {
		base = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", r.cfg.S3Bucket, r.cfg.S3Region)
	}
	return base + "/" + key
}
