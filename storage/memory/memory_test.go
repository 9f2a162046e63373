package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pilacorp/go-bnb-identity/storage"
)

func TestPutGetURL(t *testing.T) {
	ctx := context.Background()
	s := New("https://files.example.com/")

	data := []byte(`{"a":1}`)
	receipt, err := s.Put(ctx, "credentials", "vc/0xabc/1.json", data, storage.ContentTypeJSON)
	require.NoError(t, err)
	assert.Equal(t, 7, receipt.Size)
	assert.Len(t, receipt.ContentID, 64)

	data[0] = 'X'
	got, err := s.Get(ctx, "credentials", "vc/0xabc/1.json")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(got))

	url, err := s.RetrievalURL(ctx, "credentials", "vc/0xabc/1.json")
	require.NoError(t, err)
	assert.Equal(t, "https://files.example.com/credentials/vc/0xabc/1.json", url)
	assert.Equal(t, 1, s.Len())
}

func TestMissingObject(t *testing.T) {
	s := New("")

	_, err := s.Get(context.Background(), "credentials", "nope.json")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = s.RetrievalURL(context.Background(), "credentials", "nope.json")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestPutRejects(t *testing.T) {
	s := New("")

	_, err := s.Put(context.Background(), "", "a.json", nil, storage.ContentTypeJSON)
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Put(ctx, "credentials", "a.json", nil, storage.ContentTypeJSON)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPutRefusesOverwrite(t *testing.T) {
	ctx := context.Background()
	s := New("")

	_, err := s.Put(ctx, "credentials", "vc/0xabc/1.json", []byte(`{"n":1}`), storage.ContentTypeJSON)
	require.NoError(t, err)

	_, err = s.Put(ctx, "credentials", "vc/0xabc/1.json", []byte(`{"n":2}`), storage.ContentTypeJSON)
	assert.ErrorIs(t, err, storage.ErrExists)

	got, err := s.Get(ctx, "credentials", "vc/0xabc/1.json")
	require.NoError(t, err)
	assert.Equal(t, `{"n":1}`, string(got))

	_, err = s.Put(ctx, "presentations", "vc/0xabc/1.json", []byte(`{"n":3}`), storage.ContentTypeJSON)
	assert.NoError(t, err)
	assert.Equal(t, 2, s.Len())
}
