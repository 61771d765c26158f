// Package gcsuploader stores raw statements in Google Cloud Storage and reads
// them back for ingestion.
package gcsuploader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/storage"
)

// MaxObjectSize bounds how much of an object Fetch will read.
const MaxObjectSize = 10 << 20

// ErrTooLarge is returned when an object exceeds MaxObjectSize.
var ErrTooLarge = errors.New("object exceeds size limit")

// Storage uploads and fetches statement objects.
type Storage interface {
	Upload(ctx context.Context, bucket, object, contentType string, r io.Reader) error
	Fetch(ctx context.Context, uri string) ([]byte, error)
}

// GCSStorage implements Storage with a shared storage client.
// It assumes Application Default Credentials are configured.
type GCSStorage struct {
	client *storage.Client
}

func NewGCSStorage(ctx context.Context) (*GCSStorage, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("NewGCSStorage: create storage client: %w", err)
	}
	return &GCSStorage{client: client}, nil
}

func (s *GCSStorage) Close() error {
	return s.client.Close()
}

// Upload streams r into bucket/object.
func (s *GCSStorage) Upload(ctx context.Context, bucket, object, contentType string, r io.Reader) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := s.client.Bucket(bucket).Object(object).NewWriter(ctx)
	if contentType != "" {
		w.ContentType = contentType
	}

	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return fmt.Errorf("Upload: copy to GCS writer: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("Upload: finalize upload: %w", err)
	}
	return nil
}

// Fetch downloads the object named by a gs:// URI.
func (s *GCSStorage) Fetch(ctx context.Context, uri string) ([]byte, error) {
	bucket, object, err := ParseURI(uri)
	if err != nil {
		return nil, fmt.Errorf("Fetch: %w", err)
	}

	rc, err := s.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("Fetch: reading object %s/%s: %w", bucket, object, err)
	}
	defer rc.Close()

	return readLimited(rc, MaxObjectSize)
}

func readLimited(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("readLimited: reading bytes: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, ErrTooLarge
	}
	return data, nil
}
