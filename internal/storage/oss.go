package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
)

type OSSConfig struct {
	Endpoint        string
	AccessKeyID     string
	AccessKeySecret string
	Bucket          string
	PublicBaseURL   string
}

// OSSStore stores blobs in an Aliyun OSS bucket.
type OSSStore struct {
	bucket  *oss.Bucket
	baseURL string
}

func NewOSSStore(cfg OSSConfig) (*OSSStore, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, errors.New("oss: endpoint and bucket are required")
	}
	client, err := oss.New(cfg.Endpoint, cfg.AccessKeyID, cfg.AccessKeySecret)
	if err != nil {
		return nil, fmt.Errorf("oss.New: %w", err)
	}
	bkt, err := client.Bucket(cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("client.Bucket: %w", err)
	}

	base := strings.TrimRight(cfg.PublicBaseURL, "/")
	if base == "" {
		end := strings.TrimPrefix(strings.TrimPrefix(cfg.Endpoint, "https://"), "http://")
		base = fmt.Sprintf("https://%s.%s", cfg.Bucket, end)
	}
	return &OSSStore{bucket: bkt, baseURL: base}, nil
}

func (s *OSSStore) PresignPut(ctx context.Context, key, contentType string, ttl time.Duration) (*UploadTarget, error) {
	signed, err := s.bucket.SignURL(key, oss.HTTPPut, int64(ttl.Seconds()), oss.ContentType(contentType))
	if err != nil {
		return nil, fmt.Errorf("sign upload url: %w", err)
	}
	return &UploadTarget{
		URL:       signed,
		Method:    http.MethodPut,
		Headers:   map[string]string{"Content-Type": contentType},
		PublicURL: s.PublicURL(key),
		Key:       key,
		ExpiresAt: time.Now().Add(ttl).UTC(),
	}, nil
}

func (s *OSSStore) Put(ctx context.Context, key string, r io.Reader, contentType string) error {
	opts := []oss.Option{
		oss.WithContext(ctx),
		oss.ContentType(contentType),
		oss.ContentDisposition("inline"),
		oss.CacheControl("public, max-age=31536000, immutable"),
	}
	if err := s.bucket.PutObject(key, r, opts...); err != nil {
		return fmt.Errorf("put object %s: %w", key, err)
	}
	return nil
}

func (s *OSSStore) Delete(ctx context.Context, key string) error {
	err := s.bucket.DeleteObject(key, oss.WithContext(ctx))
	var se oss.ServiceError
	if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
		return nil
	}
	return err
}

func (s *OSSStore) PublicURL(key string) string {
	if key == "" {
		return ""
	}
	return s.baseURL + "/" + key
}

func (s *OSSStore) KeyFromURL(rawURL string) (string, bool) {
	return keyUnder(s.baseURL, rawURL)
}
