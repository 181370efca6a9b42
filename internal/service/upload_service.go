package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path"
	"strings"
	"time"

	"murmur/internal/config"
	"murmur/internal/middleware"
	"murmur/internal/models"
	"murmur/internal/observability"
	"murmur/internal/repository"
	"murmur/internal/storage"

	"github.com/chai2010/webp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	AvatarMaxSize = 512
	WebPQuality   = 80

	defaultUploadTTL        = 15 * time.Minute
	defaultMaxVideoUploadMB = 200
	defaultMaxAvatarMB      = 5
)

// Key prefixes in the blob store.
const (
	PrefixPosts   = "posts"
	PrefixCovers  = "covers"
	PrefixAvatars = "avatars"
)

type UploadService struct {
	blobs          storage.BlobStore
	users          repository.UserRepository
	ttl            time.Duration
	maxVideoBytes  int64
	maxAvatarBytes int64
}

// SignUploadInput is a request for a direct upload URL.
type SignUploadInput struct {
	UserID      uint   `validate:"-"`
	Filename    string `validate:"required,max=255"`
	ContentType string `validate:"required"`
}

// SignedUpload is a signed target plus the media type of the object.
type SignedUpload struct {
	storage.UploadTarget
	MediaType models.MediaType `json:"media_type"`
}

// StoredObject describes a blob the server wrote itself.
type StoredObject struct {
	URL       string           `json:"url"`
	Key       string           `json:"key"`
	MediaType models.MediaType `json:"media_type"`
}

func NewUploadService(blobs storage.BlobStore, users repository.UserRepository, cfg *config.Config) *UploadService {
	s := &UploadService{
		blobs:          blobs,
		users:          users,
		ttl:            defaultUploadTTL,
		maxVideoBytes:  defaultMaxVideoUploadMB << 20,
		maxAvatarBytes: defaultMaxAvatarMB << 20,
	}
	if cfg != nil {
		if cfg.UploadURLTTLSeconds > 0 {
			s.ttl = time.Duration(cfg.UploadURLTTLSeconds) * time.Second
		}
		if cfg.MaxVideoUploadSizeMB > 0 {
			s.maxVideoBytes = int64(cfg.MaxVideoUploadSizeMB) << 20
		}
		if cfg.MaxAvatarUploadMB > 0 {
			s.maxAvatarBytes = int64(cfg.MaxAvatarUploadMB) << 20
		}
	}
	return s
}

// MaxAvatarBytes is the largest avatar body accepted.
func (s *UploadService) MaxAvatarBytes() int64 { return s.maxAvatarBytes }

func normalizeContentType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}

func mediaTypeOf(contentType string) (models.MediaType, bool) {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return models.MediaImage, true
	case strings.HasPrefix(contentType, "video/"):
		return models.MediaVideo, true
	default:
		return "", false
	}
}

// extensionFor prefers the filename's extension and falls back to the
// registered extension of the content type.
func extensionFor(filename, contentType string) string {
	if ext := path.Ext(path.Base(strings.ReplaceAll(filename, "\\", "/"))); ext != "" && len(ext) <= 6 {
		return ext
	}
	if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ""
}

func (s *UploadService) sign(ctx context.Context, prefix string, in SignUploadInput, allowVideo bool) (*SignedUpload, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	ct := normalizeContentType(in.ContentType)
	mt, ok := mediaTypeOf(ct)
	if !ok || (mt == models.MediaVideo && !allowVideo) {
		if allowVideo {
			return nil, models.NewValidationError("content_type must be an image or video type")
		}
		return nil, models.NewValidationError("content_type must be an image type")
	}

	key := storage.NewKey(prefix, in.UserID, extensionFor(in.Filename, ct))
	target, err := s.blobs.PresignPut(ctx, key, ct, s.ttl)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &SignedUpload{UploadTarget: *target, MediaType: mt}, nil
}

// PostMediaTarget signs a direct upload of a post attachment.
func (s *UploadService) PostMediaTarget(ctx context.Context, in SignUploadInput) (*SignedUpload, error) {
	return s.sign(ctx, PrefixPosts, in, true)
}

// CoverTarget signs a direct upload of a profile cover image.
func (s *UploadService) CoverTarget(ctx context.Context, in SignUploadInput) (*SignedUpload, error) {
	return s.sign(ctx, PrefixCovers, in, false)
}

// cappedReader fails once more than n bytes have been read.
type cappedReader struct {
	r        io.Reader
	n        int64
	exceeded bool
}

func (c *cappedReader) Read(p []byte) (int, error) {
	if c.n < 0 {
		c.exceeded = true
		return 0, fmt.Errorf("upload exceeds size limit")
	}
	if int64(len(p)) > c.n+1 {
		p = p[:c.n+1]
	}
	n, err := c.r.Read(p)
	c.n -= int64(n)
	if c.n < 0 {
		c.exceeded = true
		return n, fmt.Errorf("upload exceeds size limit")
	}
	return n, err
}

// UploadVideo streams a video body into the blob store.
func (s *UploadService) UploadVideo(ctx context.Context, userID uint, contentType string, body io.Reader) (*StoredObject, error) {
	ct := normalizeContentType(contentType)
	if mt, ok := mediaTypeOf(ct); !ok || mt != models.MediaVideo {
		return nil, models.NewValidationError("Content-Type must be a video type")
	}
	if body == nil {
		return nil, models.NewValidationError("No file uploaded")
	}

	key := storage.NewKey(PrefixPosts, userID, extensionFor("", ct))
	capped := &cappedReader{r: body, n: s.maxVideoBytes}
	if err := s.blobs.Put(ctx, key, capped, ct); err != nil {
		if capped.exceeded {
			return nil, models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", s.maxVideoBytes>>20))
		}
		return nil, models.NewInternalError(err)
	}
	if capped.exceeded {
		s.deleteBlob(ctx, key)
		return nil, models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", s.maxVideoBytes>>20))
	}
	return &StoredObject{URL: s.blobs.PublicURL(key), Key: key, MediaType: models.MediaVideo}, nil
}

func isAllowedImageMIME(contentType string) bool {
	switch normalizeContentType(contentType) {
	case "image/jpeg", "image/jpg", "image/png", "image/webp":
		return true
	default:
		return false
	}
}

// UploadAvatar normalizes an avatar to a bounded WebP and makes it the
// user's avatar. The previous avatar blob is removed afterwards.
func (s *UploadService) UploadAvatar(ctx context.Context, user *models.User, content []byte) (*models.User, error) {
	if len(content) == 0 {
		return nil, models.NewValidationError("No file uploaded")
	}
	if int64(len(content)) > s.maxAvatarBytes {
		return nil, models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", s.maxAvatarBytes>>20))
	}
	if !isAllowedImageMIME(http.DetectContentType(content)) {
		return nil, models.NewValidationError("Invalid image type")
	}
	decoded, _, err := image.Decode(bytes.NewReader(content))
	if err != nil {
		return nil, models.NewValidationError("Invalid image file")
	}

	encoded, err := encodeWebP(resizeToFit(decoded, AvatarMaxSize, AvatarMaxSize), WebPQuality)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	key := storage.NewKey(PrefixAvatars, user.ID, ".webp")
	if err := s.blobs.Put(ctx, key, bytes.NewReader(encoded), "image/webp"); err != nil {
		return nil, models.NewInternalError(err)
	}

	previous := user.AvatarURL
	url := s.blobs.PublicURL(key)
	if err := s.users.UpdateProfile(ctx, user, map[string]any{"avatar_url": url}); err != nil {
		s.deleteBlob(ctx, key)
		return nil, err
	}
	if old, ok := s.blobs.KeyFromURL(previous); ok && old != key {
		s.deleteBlob(ctx, old)
	}

	updated := *user
	updated.AvatarURL = url
	return &updated, nil
}

func (s *UploadService) deleteBlob(ctx context.Context, key string) {
	if err := s.blobs.Delete(ctx, key); err != nil {
		observability.BlobDeleteFailures.Inc()
		middleware.Logger.WarnContext(ctx, "blob delete failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
}

func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	if w <= 0 || h <= 0 {
		return src
	}
	if w <= maxWidth && h <= maxHeight {
		return src
	}

	scale := float64(maxWidth) / float64(w)
	if s := float64(maxHeight) / float64(h); s < scale {
		scale = s
	}
	newW := max(int(float64(w)*scale), 1)
	newH := max(int(float64(h)*scale), 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

func encodeWebP(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := webp.Encode(buf, img, &webp.Options{Quality: float32(quality)}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
