package redis

import (
	"context"
	"testing"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pilacorp/go-bnb-identity/storage"
)

func TestNewValidates(t *testing.T) {
	_, err := New(nil, "https://files.example.com")
	assert.Error(t, err)

	client := goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:0"})
	defer client.Close()

	_, err = New(client, " ")
	assert.Error(t, err)

	s, err := New(client, "https://files.example.com/", WithKeyPrefix("test"))
	require.NoError(t, err)
	assert.Equal(t, "test:credentials/vc/a.json", s.key("credentials", "vc/a.json"))
}

func TestNewFromURLRejectsBadURL(t *testing.T) {
	_, err := NewFromURL("http://not-redis", "https://files.example.com")
	assert.Error(t, err)
}

func TestPutRejectsInvalidPath(t *testing.T) {
	client := goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:0"})
	defer client.Close()

	s, err := New(client, "https://files.example.com")
	require.NoError(t, err)

	_, err = s.Put(context.Background(), "credentials", "../escape", nil, storage.ContentTypeJSON)
	assert.Error(t, err)
}
