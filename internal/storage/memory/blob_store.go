package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// BlobStore keeps uploaded objects in process memory. Useful for tests
// and for running the pipeline without external storage.
type BlobStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewBlobStore constructs a BlobStore.
func NewBlobStore() *BlobStore {
	return &BlobStore{objects: make(map[string][]byte)}
}

// PutObject stores the bytes and returns a mem:// URI.
func (s *BlobStore) PutObject(_ context.Context, path string, _ string, data []byte) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("path is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[path] = append([]byte(nil), data...)
	return "mem://" + path, nil
}

// SignedURL returns the mem:// URI; in-memory objects need no signing.
func (s *BlobStore) SignedURL(_ context.Context, path string, _ time.Duration) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.objects[path]; !ok {
		return "", ErrNotFound
	}
	return "mem://" + path, nil
}

// GetObject returns a copy of the stored bytes.
func (s *BlobStore) GetObject(_ context.Context, path string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[path]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

// Len reports how many objects are stored (test helper).
func (s *BlobStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
