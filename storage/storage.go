// Package storage defines the collaborator that persists signed credentials
// and presentations and hands out retrieval URLs for them.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

//go:generate mockgen -source=storage.go -destination=mocks/mocks.go -package=mocks Store,Reader

// ContentTypeJSON is the content type of every artifact written by the engines.
const ContentTypeJSON = "application/json"

// Backend errors.
var (
	// ErrNotFound is returned by Get and RetrievalURL when the object does not exist.
	ErrNotFound = errors.New("object not found")
	// ErrExists is returned by Put when the object name is already taken.
	// Stored artifacts are never replaced.
	ErrExists = errors.New("object already exists")
)

// Receipt describes a stored object.
type Receipt struct {
	Bucket      string    `json:"bucket"`
	Object      string    `json:"object"`
	ContentID   string    `json:"contentId,omitempty"`
	ContentType string    `json:"contentType"`
	Size        int       `json:"size"`
	StoredAt    time.Time `json:"storedAt"`
}

// Store persists artifacts and resolves their retrieval URLs. Put fails with
// ErrExists rather than overwrite an object.
type Store interface {
	Put(ctx context.Context, bucket, object string, data []byte, contentType string) (*Receipt, error)
	RetrievalURL(ctx context.Context, bucket, object string) (string, error)
}

// Reader is implemented by stores that can read objects back.
type Reader interface {
	Get(ctx context.Context, bucket, object string) ([]byte, error)
}

// ObjectName returns the deterministic object name of an artifact of the
// given kind ("vc" or "vp") written for address at t.
//
// Two artifacts of one kind written for the same address within the same
// millisecond share a name; the second Put fails with ErrExists.
func ObjectName(kind, address string, t time.Time) string {
	return fmt.Sprintf("%s/%s/%d.json", kind, strings.ToLower(address), t.UnixMilli())
}

// ValidatePath checks bucket and object names before a backend uses them.
func ValidatePath(bucket, object string) error {
	if strings.TrimSpace(bucket) == "" {
		return fmt.Errorf("bucket is required")
	}
	if strings.ContainsAny(bucket, "/\\") {
		return fmt.Errorf("invalid bucket name %q", bucket)
	}
	if strings.TrimSpace(object) == "" {
		return fmt.Errorf("object name is required")
	}
	for _, part := range strings.Split(object, "/") {
		if part == "" || part == "." || part == ".." {
			return fmt.Errorf("invalid object name %q", object)
		}
	}

	return nil
}
