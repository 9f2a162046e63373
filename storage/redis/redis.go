// Package redis stores artifacts in Redis under <prefix>:<bucket>/<object>.
package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pilacorp/go-bnb-identity/storage"
)

const defaultKeyPrefix = "identity"

// Store is a Redis-backed storage backend.
// Retrieval URLs are built on a public base URL served by a separate gateway.
type Store struct {
	client    redis.UniversalClient
	prefix    string
	publicURL string
	ttl       time.Duration
	owned     bool
}

// Option configures a Store.
type Option func(*Store)

// WithKeyPrefix overrides the key prefix.
func WithKeyPrefix(prefix string) Option {
	return func(s *Store) { s.prefix = prefix }
}

// WithTTL expires objects after ttl. Zero keeps them forever.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) { s.ttl = ttl }
}

// New constructs a Redis-backed store. The client lifecycle is managed by the caller.
func New(client redis.UniversalClient, publicURL string, opts ...Option) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if strings.TrimSpace(publicURL) == "" {
		return nil, fmt.Errorf("public URL is required")
	}

	s := &Store{
		client:    client,
		prefix:    defaultKeyPrefix,
		publicURL: strings.TrimRight(publicURL, "/"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	return s, nil
}

// NewFromURL parses a redis:// URL and constructs a store with its own client.
func NewFromURL(redisURL, publicURL string, opts ...Option) (*Store, error) {
	o, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	s, err := New(redis.NewClient(o), publicURL, opts...)
	if err != nil {
		return nil, err
	}
	s.owned = true

	return s, nil
}

// Close closes the client when the store created it.
func (s *Store) Close() error {
	if !s.owned {
		return nil
	}

	return s.client.Close()
}

// Put stores data and then its content type. The data key is written with NX,
// so an existing object is never replaced.
func (s *Store) Put(ctx context.Context, bucket, object string, data []byte, contentType string) (*storage.Receipt, error) {
	if err := storage.ValidatePath(bucket, object); err != nil {
		return nil, err
	}

	key := s.key(bucket, object)
	stored, err := s.client.SetNX(ctx, key, data, s.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to store %s: %w", key, err)
	}
	if !stored {
		return nil, fmt.Errorf("%s: %w", key, storage.ErrExists)
	}
	if err := s.client.Set(ctx, key+":content-type", contentType, s.ttl).Err(); err != nil {
		s.client.Del(context.WithoutCancel(ctx), key)
		return nil, fmt.Errorf("failed to store content type of %s: %w", key, err)
	}

	sum := sha256.Sum256(data)

	return &storage.Receipt{
		Bucket:      bucket,
		Object:      object,
		ContentID:   hex.EncodeToString(sum[:]),
		ContentType: contentType,
		Size:        len(data),
		StoredAt:    time.Now().UTC(),
	}, nil
}

// RetrievalURL returns the public URL of a stored object.
func (s *Store) RetrievalURL(ctx context.Context, bucket, object string) (string, error) {
	if err := storage.ValidatePath(bucket, object); err != nil {
		return "", err
	}

	n, err := s.client.Exists(ctx, s.key(bucket, object)).Result()
	if err != nil {
		return "", fmt.Errorf("failed to look up %s/%s: %w", bucket, object, err)
	}
	if n == 0 {
		return "", fmt.Errorf("%s/%s: %w", bucket, object, storage.ErrNotFound)
	}

	return s.publicURL + "/" + bucket + "/" + object, nil
}

// Get returns a stored object.
func (s *Store) Get(ctx context.Context, bucket, object string) ([]byte, error) {
	if err := storage.ValidatePath(bucket, object); err != nil {
		return nil, err
	}

	data, err := s.client.Get(ctx, s.key(bucket, object)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%s/%s: %w", bucket, object, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s/%s: %w", bucket, object, err)
	}

	return data, nil
}

func (s *Store) key(bucket, object string) string {
	return s.prefix + ":" + bucket + "/" + object
}
