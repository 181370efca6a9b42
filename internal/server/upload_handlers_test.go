package server

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"murmur/internal/models"
	"murmur/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignedUploadRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	alice := env.user("alice")

	assertError(t, env.call(http.MethodPost, "/api/upload/post-media", alice,
		fiber.Map{"filename": "notes.pdf", "content_type": "application/pdf"}), fiber.StatusBadRequest, models.CodeValidation)
	assertError(t, env.call(http.MethodPost, "/api/upload/cover-images", alice,
		fiber.Map{"filename": "clip.mp4", "content_type": "video/mp4"}), fiber.StatusBadRequest, models.CodeValidation)

	resp := env.call(http.MethodPost, "/api/upload/post-media", alice,
		fiber.Map{"filename": "cat.PNG", "content_type": "image/png"})
	requireStatus(t, resp, fiber.StatusOK)
	target := decode[service.SignedUpload](t, resp)
	assert.Equal(t, http.MethodPut, target.Method)
	assert.Equal(t, models.MediaImage, target.MediaType)
	assert.True(t, strings.HasPrefix(target.Key, "posts/"), target.Key)
	assert.True(t, strings.HasSuffix(target.Key, ".png"), target.Key)

	// The in-process store accepts the signed PUT and serves the public URL.
	u, err := url.Parse(target.URL)
	require.NoError(t, err)
	put := httptest.NewRequest(http.MethodPut, u.RequestURI(), bytes.NewReader([]byte("pixels")))
	put.Header.Set(fiber.HeaderContentType, "image/png")
	requireStatus(t, env.raw(put), fiber.StatusOK)

	pub, err := url.Parse(target.PublicURL)
	require.NoError(t, err)
	get := env.raw(httptest.NewRequest(http.MethodGet, pub.RequestURI(), nil))
	requireStatus(t, get, fiber.StatusOK)
	assert.Equal(t, "image/png", get.Header.Get(fiber.HeaderContentType))

	expired := httptest.NewRequest(http.MethodPut, pub.RequestURI()+"?expires=1", bytes.NewReader([]byte("late")))
	assertError(t, env.raw(expired), fiber.StatusForbidden, models.CodeForbidden)
}

func videoRequest(u *models.User, contentType string, size int) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/upload/video", bytes.NewReader(make([]byte, size)))
	req.Header.Set(fiber.HeaderContentType, contentType)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+u.ExternalID)
	return req
}

func TestUploadVideo(t *testing.T) {
	env := newTestEnv(t)
	alice := env.user("alice")

	resp := env.raw(videoRequest(alice, "video/mp4", 4096))
	requireStatus(t, resp, fiber.StatusCreated)
	obj := decode[service.StoredObject](t, resp)
	assert.Equal(t, models.MediaVideo, obj.MediaType)
	stored, ok := env.blobs.Get(obj.Key)
	require.True(t, ok)
	assert.Len(t, stored.Data, 4096)

	assertError(t, env.raw(videoRequest(alice, "image/png", 16)), fiber.StatusBadRequest, models.CodeValidation)

	before := env.blobs.Len()
	assertError(t, env.raw(videoRequest(alice, "video/mp4", 1<<20+1)), fiber.StatusBadRequest, models.CodeValidation)
	assert.Equal(t, before, env.blobs.Len())
}

func avatarRequest(t *testing.T, u *models.User, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", "me.png")
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload/avatar", &buf)
	req.Header.Set(fiber.HeaderContentType, w.FormDataContentType())
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+u.ExternalID)
	return req
}

func TestUploadAvatar(t *testing.T) {
	env := newTestEnv(t)
	alice := env.user("alice")

	img := image.NewRGBA(image.Rect(0, 0, 64, 32))
	for x := 0; x < 64; x++ {
		img.Set(x, x%32, color.RGBA{R: 200, A: 255})
	}
	var content bytes.Buffer
	require.NoError(t, png.Encode(&content, img))

	resp := env.raw(avatarRequest(t, alice, content.Bytes()))
	requireStatus(t, resp, fiber.StatusOK)
	first := decode[models.User](t, resp)
	assert.True(t, strings.HasSuffix(first.AvatarURL, ".webp"), first.AvatarURL)

	resp = env.raw(avatarRequest(t, alice, content.Bytes()))
	requireStatus(t, resp, fiber.StatusOK)
	second := decode[models.User](t, resp)
	assert.NotEqual(t, first.AvatarURL, second.AvatarURL)

	// The replaced avatar blob is removed.
	assert.Equal(t, 1, env.blobs.Len())

	assertError(t, env.raw(avatarRequest(t, alice, []byte("not an image"))), fiber.StatusBadRequest, models.CodeValidation)
}
