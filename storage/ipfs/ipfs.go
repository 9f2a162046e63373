// Package ipfs stores artifacts in the mutable file system of an IPFS node.
//
// Objects are written to /<bucket>/<object>; retrieval URLs point at the
// content hash on the configured gateway.
package ipfs

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	shell "github.com/ipfs/go-ipfs-api"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/pilacorp/go-bnb-identity/storage"
)

// Store is an IPFS MFS-backed storage backend.
type Store struct {
	sh      *shell.Shell
	gateway string
}

// Option configures a Store.
type Option func(*options)

type options struct {
	client *http.Client
}

// WithHTTPClient overrides the HTTP client used to reach the IPFS API.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) { o.client = client }
}

// New creates a Store talking to the IPFS HTTP API at apiURL and building
// retrieval URLs on gateway.
func New(apiURL, gateway string, opts ...Option) (*Store, error) {
	if strings.TrimSpace(apiURL) == "" {
		return nil, fmt.Errorf("IPFS API URL is required")
	}
	if strings.TrimSpace(gateway) == "" {
		return nil, fmt.Errorf("IPFS gateway URL is required")
	}

	o := options{
		client: &http.Client{
			Timeout:   time.Minute,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	for _, opt := range opts {
		opt(&o)
	}

	return &Store{
		sh:      shell.NewShellWithClient(apiURL, o.client),
		gateway: strings.TrimRight(gateway, "/"),
	}, nil
}

// Put writes data to /<bucket>/<object>. It fails with storage.ErrExists when
// the path is already taken.
func (s *Store) Put(ctx context.Context, bucket, object string, data []byte, contentType string) (*storage.Receipt, error) {
	if err := storage.ValidatePath(bucket, object); err != nil {
		return nil, err
	}

	path := mfsPath(bucket, object)
	if _, err := s.sh.FilesStat(ctx, path); err == nil {
		return nil, fmt.Errorf("%s: %w", path, storage.ErrExists)
	} else if !isNotExist(err) {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	err := s.sh.FilesWrite(ctx, path, bytes.NewReader(data),
		shell.FilesWrite.Create(true),
		shell.FilesWrite.Parents(true),
		shell.FilesWrite.Truncate(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", path, err)
	}

	cid, err := s.cid(ctx, path)
	if err != nil {
		return nil, err
	}

	return &storage.Receipt{
		Bucket:      bucket,
		Object:      object,
		ContentID:   cid,
		ContentType: contentType,
		Size:        len(data),
		StoredAt:    time.Now().UTC(),
	}, nil
}

// RetrievalURL returns the gateway URL of the object's current content.
func (s *Store) RetrievalURL(ctx context.Context, bucket, object string) (string, error) {
	if err := storage.ValidatePath(bucket, object); err != nil {
		return "", err
	}

	cid, err := s.cid(ctx, mfsPath(bucket, object))
	if err != nil {
		return "", err
	}

	return s.gateway + "/ipfs/" + cid, nil
}

// Get reads the object back from MFS.
func (s *Store) Get(ctx context.Context, bucket, object string) ([]byte, error) {
	if err := storage.ValidatePath(bucket, object); err != nil {
		return nil, err
	}

	rc, err := s.sh.FilesRead(ctx, mfsPath(bucket, object))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s/%s: %w", bucket, object, err)
	}
	defer rc.Close()

	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(rc); err != nil {
		return nil, fmt.Errorf("failed to read %s/%s: %w", bucket, object, err)
	}

	return buf.Bytes(), nil
}

func (s *Store) cid(ctx context.Context, path string) (string, error) {
	stat, err := s.sh.FilesStat(ctx, path)
	if err != nil {
		return "", fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if stat.Hash == "" {
		return "", fmt.Errorf("IPFS returned no hash for %s", path)
	}

	return stat.Hash, nil
}

// isNotExist reports whether err is the node's answer for a missing MFS path.
func isNotExist(err error) bool {
	return strings.Contains(err.Error(), "does not exist")
}

func mfsPath(bucket, object string) string {
	return "/" + bucket + "/" + object
}
