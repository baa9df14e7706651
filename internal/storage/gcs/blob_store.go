// Package gcs stores attachment blobs in a Google Cloud Storage bucket.
package gcs

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/storage"
)

const defaultSignedTTL = 15 * time.Minute

// Config names the target bucket.
type Config struct {
	Bucket string
}

// BlobStore implements catalog.BlobStore on a GCS bucket. Object paths
// follow attachments/<announcement_id>/<sha256>-<file_name>.
type BlobStore struct {
	client *storage.Client
	bucket string
}

// New validates the config and returns a BlobStore.
func New(client *storage.Client, cfg Config) (*BlobStore, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	return &BlobStore{client: client, bucket: cfg.Bucket}, nil
}

// PutObject writes data under path and returns its gs:// URI.
func (s *BlobStore) PutObject(ctx context.Context, path, contentType string, data []byte) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("path is required")
	}
	w := s.client.Bucket(s.bucket).Object(path).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("write object %s: %w", path, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finish object %s: %w", path, err)
	}
	return fmt.Sprintf("gs://%s/%s", s.bucket, path), nil
}

// GetObject reads the stored bytes back.
func (s *BlobStore) GetObject(ctx context.Context, path string) ([]byte, error) {
	r, err := s.client.Bucket(s.bucket).Object(path).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("open object %s: %w", path, err)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read object %s: %w", path, err)
	}
	return data, nil
}

// SignedURL returns a V4 signed GET link valid for ttl.
func (s *BlobStore) SignedURL(_ context.Context, path string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = defaultSignedTTL
	}
	url, err := s.client.Bucket(s.bucket).SignedURL(path, &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV4,
		Method:  http.MethodGet,
		Expires: time.Now().Add(ttl),
	})
	if err != nil {
		return "", fmt.Errorf("sign url for %s: %w", path, err)
	}
	return url, nil
}
