package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	gcs "cloud.google.com/go/storage"
)

// GCSStorage implements Client using Google Cloud Storage.
type GCSStorage struct {
	client *gcs.Client
	bucket string
}

// NewGCSStorage creates a GCS-backed Client.
// It uses Application Default Credentials (works with Workload Identity, SA keys, gcloud auth).
func NewGCSStorage(ctx context.Context, bucket string) (*GCSStorage, error) {
	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}
	return &GCSStorage{client: client, bucket: bucket}, nil
}

func (s *GCSStorage) put(ctx context.Context, key string, data []byte) error {
	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	w.ContentType = "application/json"
	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("gcs write %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("gcs close %s: %w", key, err)
	}
	return nil
}

func (s *GCSStorage) get(ctx context.Context, key string) ([]byte, error) {
	r, err := s.client.Bucket(s.bucket).Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return nil, fmt.Errorf("gcs read %s: %w", key, ErrNotFound)
		}
		return nil, fmt.Errorf("gcs read %s: %w", key, err)
	}
	defer r.Close()
	return io.ReadAll(r)
}

func (s *GCSStorage) PutDataset(ctx context.Context, collection, id string, data []byte) error {
	return s.put(ctx, objectKey(collection, "datasets", id), data)
}

func (s *GCSStorage) GetDataset(ctx context.Context, collection, id string) ([]byte, error) {
	return s.get(ctx, objectKey(collection, "datasets", id))
}

func (s *GCSStorage) PutCloud(ctx context.Context, collection, id string, data []byte) error {
	return s.put(ctx, objectKey(collection, "clouds", id), data)
}

func (s *GCSStorage) GetCloud(ctx context.Context, collection, id string) ([]byte, error) {
	return s.get(ctx, objectKey(collection, "clouds", id))
}

func (s *GCSStorage) GetObject(ctx context.Context, key string) ([]byte, error) {
	return s.get(ctx, key)
}

// Close releases the underlying GCS client.
func (s *GCSStorage) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}
