// Package storage stores tag cloud datasets and rendered clouds as blobs.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/nuages/nuages/pkg/config"
)

// ErrNotFound is returned when a blob does not exist.
var ErrNotFound = errors.New("blob not found")

// Client abstracts blob storage for datasets and computed clouds.
type Client interface {
	PutDataset(ctx context.Context, collection, id string, data []byte) error
	GetDataset(ctx context.Context, collection, id string) ([]byte, error)
	PutCloud(ctx context.Context, collection, id string, data []byte) error
	GetCloud(ctx context.Context, collection, id string) ([]byte, error)
	// GetObject reads a blob by its raw key.
	GetObject(ctx context.Context, key string) ([]byte, error)
}

// New creates the Client selected by cfg.Backend.
func New(ctx context.Context, cfg config.StorageConfig) (Client, error) {
	switch cfg.Backend {
	case "", "local":
		if cfg.BaseDir == "" {
			return nil, fmt.Errorf("local storage requires base_dir")
		}
		return NewLocalStorage(cfg.BaseDir), nil
	case "s3":
		if cfg.Bucket == "" {
			return nil, fmt.Errorf("s3 storage requires bucket")
		}
		return NewS3Storage(ctx, S3Config{
			Bucket:    cfg.Bucket,
			Region:    cfg.Region,
			Endpoint:  cfg.Endpoint,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
		})
	case "gcs":
		if cfg.Bucket == "" {
			return nil, fmt.Errorf("gcs storage requires bucket")
		}
		return NewGCSStorage(ctx, cfg.Bucket)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// Close releases c if its backend holds resources. Only the GCS client does.
func Close(c Client) error {
	if closer, ok := c.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// objectKey is the layout shared by every backend.
func objectKey(collection, kind, id string) string {
	return collection + "/" + kind + "/" + id + ".json"
}

// LocalStorage implements Client using the local filesystem.
// Useful for development and testing.
type LocalStorage struct {
	BaseDir string
}

// NewLocalStorage creates a LocalStorage rooted at the given directory.
func NewLocalStorage(baseDir string) *LocalStorage {
	return &LocalStorage{BaseDir: baseDir}
}

func (s *LocalStorage) path(key string) string {
	return filepath.Join(s.BaseDir, filepath.FromSlash(key))
}

func (s *LocalStorage) put(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func (s *LocalStorage) get(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	return data, err
}

// PutDataset stores a dataset blob.
func (s *LocalStorage) PutDataset(ctx context.Context, collection, id string, data []byte) error {
	return s.put(s.path(objectKey(collection, "datasets", id)), data)
}

// GetDataset retrieves a dataset blob.
func (s *LocalStorage) GetDataset(ctx context.Context, collection, id string) ([]byte, error) {
	return s.get(s.path(objectKey(collection, "datasets", id)))
}

// PutCloud stores a computed cloud blob.
func (s *LocalStorage) PutCloud(ctx context.Context, collection, id string, data []byte) error {
	return s.put(s.path(objectKey(collection, "clouds", id)), data)
}

// GetCloud retrieves a computed cloud blob.
func (s *LocalStorage) GetCloud(ctx context.Context, collection, id string) ([]byte, error) {
	return s.get(s.path(objectKey(collection, "clouds", id)))
}

// GetObject reads the file at key relative to BaseDir.
func (s *LocalStorage) GetObject(ctx context.Context, key string) ([]byte, error) {
	return s.get(s.path(key))
}
