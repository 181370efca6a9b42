package storage

import (
	"context"
	"strings"
	"testing"
	"time"

	"murmur/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewKey(t *testing.T) {
	t.Parallel()

	key := NewKey("/posts/", 42, ".MP4")
	assert.True(t, strings.HasPrefix(key, "posts/42/"), key)
	assert.True(t, strings.HasSuffix(key, ".mp4"), key)

	assert.True(t, strings.HasSuffix(NewKey("avatars", 1, "webp"), ".webp"))
	assert.NotEqual(t, NewKey("posts", 1, ".png"), NewKey("posts", 1, ".png"))
}

func TestMemoryStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemoryStore("https://blobs.example.com/")

	target, err := s.PresignPut(ctx, "posts/1/a.png", "image/png", 15*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "PUT", target.Method)
	assert.Equal(t, "https://blobs.example.com/posts/1/a.png", target.PublicURL)
	assert.Equal(t, "image/png", target.Headers["Content-Type"])
	assert.True(t, strings.HasPrefix(target.URL, target.PublicURL+"?expires="))

	require.NoError(t, s.Put(ctx, "posts/1/a.png", strings.NewReader("png"), "image/png"))
	obj, ok := s.Get("posts/1/a.png")
	require.True(t, ok)
	assert.Equal(t, []byte("png"), obj.Data)

	key, ok := s.KeyFromURL(target.PublicURL + "?v=2")
	require.True(t, ok)
	assert.Equal(t, "posts/1/a.png", key)

	_, ok = s.KeyFromURL("https://elsewhere.example.com/posts/1/a.png")
	assert.False(t, ok)
	_, ok = s.KeyFromURL("https://blobs.example.com/")
	assert.False(t, ok)

	require.NoError(t, s.Delete(ctx, key))
	assert.Equal(t, 0, s.Len())
}

func TestOSSStoreURLs(t *testing.T) {
	t.Parallel()

	s, err := NewOSSStore(OSSConfig{
		Endpoint:        "https://oss-ap-southeast-1.aliyuncs.com",
		AccessKeyID:     "ak",
		AccessKeySecret: "sk",
		Bucket:          "murmur-media",
	})
	require.NoError(t, err)

	u := s.PublicURL("posts/1/a.png")
	assert.Equal(t, "https://murmur-media.oss-ap-southeast-1.aliyuncs.com/posts/1/a.png", u)

	key, ok := s.KeyFromURL(u)
	require.True(t, ok)
	assert.Equal(t, "posts/1/a.png", key)

	target, err := s.PresignPut(context.Background(), "posts/1/a.png", "image/png", time.Minute)
	require.NoError(t, err)
	assert.Contains(t, target.URL, "murmur-media")
	assert.Contains(t, target.URL, "Signature=")

	_, err = NewOSSStore(OSSConfig{Endpoint: "https://oss.example.com"})
	assert.Error(t, err)
}

func TestNewFromConfig(t *testing.T) {
	t.Parallel()

	s, err := New(&config.Config{StorageDriver: "memory", Port: "8375"})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8375/blobs/k", s.PublicURL("k"))

	_, err = New(&config.Config{StorageDriver: "s3"})
	assert.Error(t, err)
}
