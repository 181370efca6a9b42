// Package storage abstracts the object store that holds post media,
// cover images and avatars.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"murmur/internal/config"

	"github.com/google/uuid"
)

// UploadTarget describes a signed direct upload.
type UploadTarget struct {
	URL       string            `json:"upload_url"`
	Method    string            `json:"method"`
	Headers   map[string]string `json:"headers"`
	PublicURL string            `json:"public_url"`
	Key       string            `json:"key"`
	ExpiresAt time.Time         `json:"expires_at"`
}

// BlobStore is the object store contract.
type BlobStore interface {
	PresignPut(ctx context.Context, key, contentType string, ttl time.Duration) (*UploadTarget, error)
	Put(ctx context.Context, key string, r io.Reader, contentType string) error
	Delete(ctx context.Context, key string) error
	PublicURL(key string) string
	// KeyFromURL reports the object key of a URL this store serves, and
	// false for foreign URLs.
	KeyFromURL(url string) (string, bool)
}

// NewKey builds "<prefix>/<userID>/<uuid><ext>". ext includes the dot.
func NewKey(prefix string, userID uint, ext string) string {
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return path.Join(strings.Trim(prefix, "/"), fmt.Sprint(userID), uuid.NewString()+ext)
}

// New builds the store selected by STORAGE_DRIVER.
func New(cfg *config.Config) (BlobStore, error) {
	switch cfg.StorageDriver {
	case "oss":
		return NewOSSStore(OSSConfig{
			Endpoint:        cfg.OSSEndpoint,
			AccessKeyID:     cfg.OSSAccessKeyID,
			AccessKeySecret: cfg.OSSAccessKeySecret,
			Bucket:          cfg.OSSBucket,
			PublicBaseURL:   cfg.OSSPublicBaseURL,
		})
	case "", "memory":
		base := cfg.OSSPublicBaseURL
		if base == "" {
			base = "http://localhost:" + cfg.Port + "/blobs"
		}
		return NewMemoryStore(base), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

func keyUnder(base, rawURL string) (string, bool) {
	base = strings.TrimRight(base, "/") + "/"
	if base == "/" || !strings.HasPrefix(rawURL, base) {
		return "", false
	}
	key := strings.TrimPrefix(rawURL, base)
	if i := strings.IndexAny(key, "?#"); i >= 0 {
		key = key[:i]
	}
	if key == "" {
		return "", false
	}
	return key, true
}
