package ipfs

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pilacorp/go-bnb-identity/storage"
)

// fakeNode implements the subset of the IPFS MFS HTTP API the store uses.
type fakeNode struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newFakeNode(t *testing.T) *httptest.Server {
	t.Helper()
	node := &fakeNode{files: make(map[string][]byte)}
	server := httptest.NewServer(http.HandlerFunc(node.serve))
	t.Cleanup(server.Close)

	return server
}

func (n *fakeNode) serve(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("arg")

	n.mu.Lock()
	defer n.mu.Unlock()

	switch r.URL.Path {
	case "/api/v0/files/write":
		if r.URL.Query().Get("create") != "true" || r.URL.Query().Get("parents") != "true" {
			writeError(w, "create and parents flags required")
			return
		}
		mr, err := r.MultipartReader()
		if err != nil {
			writeError(w, err.Error())
			return
		}
		part, err := mr.NextPart()
		if err != nil {
			writeError(w, err.Error())
			return
		}
		data, err := io.ReadAll(part)
		if err != nil {
			writeError(w, err.Error())
			return
		}
		n.files[path] = data
		w.WriteHeader(http.StatusOK)
	case "/api/v0/files/stat":
		data, ok := n.files[path]
		if !ok {
			writeError(w, "file does not exist")
			return
		}
		sum := sha256.Sum256(data)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"Hash":           "bafk" + hex.EncodeToString(sum[:8]),
			"Size":           len(data),
			"CumulativeSize": len(data),
			"Blocks":         0,
			"Type":           "file",
		})
	case "/api/v0/files/read":
		data, ok := n.files[path]
		if !ok {
			writeError(w, "file does not exist")
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write(data)
	default:
		http.NotFound(w, r)
	}
}

func writeError(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	_ = json.NewEncoder(w).Encode(map[string]any{"Message": msg, "Code": 0, "Type": "error"})
}

func TestStoreRoundTrip(t *testing.T) {
	server := newFakeNode(t)
	s, err := New(server.URL, "https://gateway.example.com/", WithHTTPClient(server.Client()))
	require.NoError(t, err)

	ctx := context.Background()
	data := []byte(`{"type":["VerifiableCredential"]}`)

	receipt, err := s.Put(ctx, "credentials", "vc/0xabc/1.json", data, storage.ContentTypeJSON)
	require.NoError(t, err)
	assert.Equal(t, "credentials", receipt.Bucket)
	assert.NotEmpty(t, receipt.ContentID)
	assert.Equal(t, len(data), receipt.Size)

	url, err := s.RetrievalURL(ctx, "credentials", "vc/0xabc/1.json")
	require.NoError(t, err)
	assert.Equal(t, "https://gateway.example.com/ipfs/"+receipt.ContentID, url)

	got, err := s.Get(ctx, "credentials", "vc/0xabc/1.json")
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestStoreMissingObject(t *testing.T) {
	server := newFakeNode(t)
	s, err := New(server.URL, "https://gateway.example.com", WithHTTPClient(server.Client()))
	require.NoError(t, err)

	_, err = s.RetrievalURL(context.Background(), "credentials", "missing.json")
	assert.ErrorContains(t, err, "file does not exist")
}

func TestNewRequiresURLs(t *testing.T) {
	_, err := New("", "https://gateway.example.com")
	assert.Error(t, err)

	_, err = New("http://127.0.0.1:5001", "")
	assert.Error(t, err)
}

func TestStoreRefusesOverwrite(t *testing.T) {
	server := newFakeNode(t)
	s, err := New(server.URL, "https://gateway.example.com", WithHTTPClient(server.Client()))
	require.NoError(t, err)

	ctx := context.Background()
	first, err := s.Put(ctx, "credentials", "vc/0xabc/1.json", []byte(`{"n":1}`), storage.ContentTypeJSON)
	require.NoError(t, err)

	_, err = s.Put(ctx, "credentials", "vc/0xabc/1.json", []byte(`{"n":2}`), storage.ContentTypeJSON)
	assert.ErrorIs(t, err, storage.ErrExists)

	url, err := s.RetrievalURL(ctx, "credentials", "vc/0xabc/1.json")
	require.NoError(t, err)
	assert.Equal(t, "https://gateway.example.com/ipfs/"+first.ContentID, url)
}
