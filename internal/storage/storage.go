package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/yukikurage/taskboard-api/internal/config"
)

// Storage persists attachment contents under an opaque key.
type Storage interface {
	// Save writes r under key and returns the location recorded on the attachment
	Save(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)

	// Delete removes the object stored under key. Missing objects are not an error.
	Delete(ctx context.Context, key string) error
}

// New builds the Storage selected by cfg.StorageDriver.
func New(ctx context.Context, cfg *config.Config) (Storage, error) {
	switch cfg.StorageDriver {
	case "local":
		return NewLocalStorage(cfg.UploadDir)
	case "s3":
		return NewS3Storage(ctx, S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}
}
