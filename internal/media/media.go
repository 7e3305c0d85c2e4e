// Package media relays uploaded files to an external host and hands back public URLs.
package media

import (
	"context"
	"fmt"

	"inkwell/internal/config"
)

// Kind selects the host-side treatment of an object.
type Kind string

const (
	KindImage    Kind = "image"
	KindDocument Kind = "document"
)

// Object is one file to relay.
type Object struct {
	Kind        Kind
	Filename    string
	ContentType string
	Data        []byte
	// PublicID is generated from Kind and Filename when empty.
	PublicID string
}

// Result describes an object stored by the host.
type Result struct {
	URL         string `json:"url"`
	PublicID    string `json:"publicId"`
	Size        int64  `json:"-"`
	ContentType string `json:"-"`
}

// Relay forwards objects to a media host.
type Relay interface {
	Upload(ctx context.Context, obj Object) (Result, error)
	Delete(ctx context.Context, publicID string, kind Kind) error
}

// Config is the explicit configuration handed to a relay at startup.
type Config struct {
	Provider string

	CloudinaryURL       string
	CloudinaryCloudName string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string

	S3Bucket          string
	S3Region          string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3PublicBaseURL   string
	S3ForcePathStyle  bool

	ImageFolder    string
	DocumentFolder string
	Concurrency    int
}

// ConfigFrom copies the media settings out of the application configuration.
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		Provider:            cfg.MediaProvider,
		CloudinaryURL:       cfg.CloudinaryURL,
		CloudinaryCloudName: cfg.CloudinaryCloudName,
		CloudinaryAPIKey:    cfg.CloudinaryAPIKey,
		CloudinaryAPISecret: cfg.CloudinaryAPISecret,
		S3Bucket:            cfg.S3Bucket,
		S3Region:            cfg.S3Region,
		S3Endpoint:          cfg.S3Endpoint,
		S3AccessKeyID:       cfg.S3AccessKeyID,
		S3SecretAccessKey:   cfg.S3SecretAccessKey,
		S3PublicBaseURL:     cfg.S3PublicBaseURL,
		S3ForcePathStyle:    cfg.S3ForcePathStyle,
		ImageFolder:         cfg.ImageFolder,
		DocumentFolder:      cfg.DocumentFolder,
		Concurrency:         cfg.UploadConcurrency,
	}
}

// Folder returns the host folder objects of kind are placed in.
func (c Config) Folder(kind Kind) string {
	if kind == KindDocument {
		return c.DocumentFolder
	}
	return c.ImageFolder
}

// New builds the relay selected by cfg.Provider, instrumented with metrics and spans.
func New(ctx context.Context, cfg Config) (Relay, error) {
	var (
		relay Relay
		err   error
	)
	switch cfg.Provider {
	case config.MediaCloudinary:
		relay, err = NewCloudinaryRelay(cfg)
	case config.MediaS3:
		relay, err = NewS3Relay(ctx, cfg)
	case config.MediaMemory:
		relay = NewMemoryRelay(cfg)
	default:
		return nil, fmt.Errorf("unknown media provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	return Instrument(relay), nil
}
