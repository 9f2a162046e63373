// Package memory is an in-process storage backend for tests and local runs.
package memory

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pilacorp/go-bnb-identity/storage"
)

type object struct {
	data    []byte
	receipt storage.Receipt
}

// Store keeps objects in a map.
type Store struct {
	mu      sync.RWMutex
	baseURL string
	objects map[string]object
}

// New creates an empty Store. Retrieval URLs are rooted at baseURL,
// "memory://" when empty.
func New(baseURL string) *Store {
	if baseURL == "" {
		baseURL = "memory://"
	}

	return &Store{
		baseURL: strings.TrimRight(baseURL, "/"),
		objects: make(map[string]object),
	}
}

// Put stores a copy of data. An existing object is left untouched.
func (s *Store) Put(ctx context.Context, bucket, name string, data []byte, contentType string) (*storage.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := storage.ValidatePath(bucket, name); err != nil {
		return nil, err
	}

	sum := sha256.Sum256(data)
	receipt := storage.Receipt{
		Bucket:      bucket,
		Object:      name,
		ContentID:   hex.EncodeToString(sum[:]),
		ContentType: contentType,
		Size:        len(data),
		StoredAt:    time.Now().UTC(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	k := key(bucket, name)
	if _, ok := s.objects[k]; ok {
		return nil, fmt.Errorf("%s: %w", k, storage.ErrExists)
	}
	s.objects[k] = object{data: append([]byte(nil), data...), receipt: receipt}

	return &receipt, nil
}

// RetrievalURL returns the URL of a stored object.
func (s *Store) RetrievalURL(_ context.Context, bucket, name string) (string, error) {
	s.mu.RLock()
	_, ok := s.objects[key(bucket, name)]
	s.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%s/%s: %w", bucket, name, storage.ErrNotFound)
	}

	return s.baseURL + "/" + bucket + "/" + name, nil
}

// Get returns a copy of a stored object.
func (s *Store) Get(_ context.Context, bucket, name string) ([]byte, error) {
	s.mu.RLock()
	obj, ok := s.objects[key(bucket, name)]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%s/%s: %w", bucket, name, storage.ErrNotFound)
	}

	return append([]byte(nil), obj.data...), nil
}

// Len returns the number of stored objects.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.objects)
}

func key(bucket, name string) string {
	return bucket + "/" + name
}
