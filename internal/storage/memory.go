package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// Object is a blob held by MemoryStore.
type Object struct {
	ContentType string
	Data        []byte
}

// MemoryStore keeps blobs in process. It backs local development and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]Object
	baseURL string
}

func NewMemoryStore(baseURL string) *MemoryStore {
	return &MemoryStore{
		objects: make(map[string]Object),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

func (s *MemoryStore) PresignPut(ctx context.Context, key, contentType string, ttl time.Duration) (*UploadTarget, error) {
	expires := time.Now().Add(ttl).UTC()
	q := url.Values{}
	q.Set("expires", fmt.Sprint(expires.Unix()))
	return &UploadTarget{
		URL:       s.PublicURL(key) + "?" + q.Encode(),
		Method:    http.MethodPut,
		Headers:   map[string]string{"Content-Type": contentType},
		PublicURL: s.PublicURL(key),
		Key:       key,
		ExpiresAt: expires,
	}, nil
}

func (s *MemoryStore) Put(ctx context.Context, key string, r io.Reader, contentType string) error {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return err
	}
	s.mu.Lock()
	s.objects[key] = Object{ContentType: contentType, Data: buf.Bytes()}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	delete(s.objects, key)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) PublicURL(key string) string {
	return s.baseURL + "/" + key
}

func (s *MemoryStore) KeyFromURL(rawURL string) (string, bool) {
	return keyUnder(s.baseURL, rawURL)
}

// Get returns a stored blob.
func (s *MemoryStore) Get(key string) (Object, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	return obj, ok
}

// Len reports the number of stored blobs.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
