package store

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/yuanying/epubreader/internal/config"
)

// ErrNotFound is returned when a key or blob does not exist.
var ErrNotFound = errors.New("not found")

// BlobAdapter stores large payloads outside the database.
type BlobAdapter interface {
	// Put stores data at the given path
	Put(ctx context.Context, path string, data io.Reader) error

	// Get retrieves data from the given path
	Get(ctx context.Context, path string) (io.ReadCloser, error)

	// Delete removes data at the given path
	Delete(ctx context.Context, path string) error

	// Exists checks if data exists at the given path
	Exists(ctx context.Context, path string) (bool, error)

	// List returns paths matching the given prefix
	List(ctx context.Context, prefix string) ([]string, error)

	Close() error
}

// NewBlobAdapter creates the blob adapter selected by cfg.
func NewBlobAdapter(cfg config.BlobConfig) (BlobAdapter, error) {
	switch cfg.Adapter {
	case "local":
		return NewLocalBlobs(cfg.Local.BasePath)
	case "s3":
		return NewS3Blobs(context.Background(), cfg.S3)
	default:
		return nil, fmt.Errorf("unknown blob adapter: %s", cfg.Adapter)
	}
}
