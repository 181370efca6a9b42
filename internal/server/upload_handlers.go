package server

import (
	"bytes"
	"io"
	"strconv"
	"time"

	"murmur/internal/models"
	"murmur/internal/service"
	"murmur/internal/storage"

	"github.com/gofiber/fiber/v2"
)

// SignUploadRequest asks for a direct upload target.
type SignUploadRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
}

func (s *Server) signUpload(c *fiber.Ctx, sign func(*fiber.Ctx, service.SignUploadInput) (*service.SignedUpload, error)) error {
	var req SignUploadRequest
	if err := parseBody(c, &req); err != nil {
		return s.respondError(c, err)
	}
	target, err := sign(c, service.SignUploadInput{
		UserID:      viewerID(c),
		Filename:    req.Filename,
		ContentType: req.ContentType,
	})
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(target)
}

// SignPostMediaUpload handles POST /api/upload/post-media
// @Summary Sign a post media upload
// @Description Returns a PUT target for an image or video under posts/<user>/.
// @Tags uploads
// @Accept json
// @Produce json
// @Param request body SignUploadRequest true "File"
// @Success 200 {object} service.SignedUpload
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /upload/post-media [post]
func (s *Server) SignPostMediaUpload(c *fiber.Ctx) error {
	return s.signUpload(c, func(c *fiber.Ctx, in service.SignUploadInput) (*service.SignedUpload, error) {
		return s.uploadService.PostMediaTarget(c.UserContext(), in)
	})
}

// SignCoverImageUpload handles POST /api/upload/cover-images
// @Summary Sign a cover image upload
// @Tags uploads
// @Accept json
// @Produce json
// @Param request body SignUploadRequest true "File"
// @Success 200 {object} service.SignedUpload
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /upload/cover-images [post]
func (s *Server) SignCoverImageUpload(c *fiber.Ctx) error {
	return s.signUpload(c, func(c *fiber.Ctx, in service.SignUploadInput) (*service.SignedUpload, error) {
		return s.uploadService.CoverTarget(c.UserContext(), in)
	})
}

// requestBody returns the streamed request body, or the buffered one when
// fasthttp already read it whole.
func requestBody(c *fiber.Ctx) io.Reader {
	if r := c.Context().RequestBodyStream(); r != nil {
		return r
	}
	return bytes.NewReader(c.Body())
}

// UploadVideo handles POST /api/upload/video
// @Summary Upload a video through the API
// @Description The raw body is streamed to storage with the request Content-Type.
// @Tags uploads
// @Accept video/mp4
// @Produce json
// @Success 201 {object} service.StoredObject
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /upload/video [post]
func (s *Server) UploadVideo(c *fiber.Ctx) error {
	obj, err := s.uploadService.UploadVideo(c.UserContext(), viewerID(c), c.Get(fiber.HeaderContentType), requestBody(c))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(obj)
}

// UploadAvatar handles POST /api/upload/avatar
// @Summary Upload an avatar
// @Description JPEG, PNG or WebP; stored as WebP no larger than 512px.
// @Tags uploads
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Image"
// @Success 200 {object} models.User
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /upload/avatar [post]
func (s *Server) UploadAvatar(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return s.respondError(c, models.NewValidationError("No file uploaded"))
	}
	if file.Size > s.uploadService.MaxAvatarBytes() {
		return s.respondError(c, models.NewValidationError(
			"File too large (max "+strconv.FormatInt(s.uploadService.MaxAvatarBytes()>>20, 10)+"MB)"))
	}

	src, err := file.Open()
	if err != nil {
		return s.respondError(c, models.NewInternalError(err))
	}
	defer func() { _ = src.Close() }()

	content, err := io.ReadAll(src)
	if err != nil {
		return s.respondError(c, models.NewInternalError(err))
	}

	user, err := s.uploadService.UploadAvatar(c.UserContext(), viewer(c), content)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(user)
}

// mountMemoryBlobs serves the in-process store so signed uploads and public
// URLs work in development.
func (s *Server) mountMemoryBlobs(app *fiber.App, mem *storage.MemoryStore) {
	blobs := app.Group("/blobs")

	blobs.Get("/*", func(c *fiber.Ctx) error {
		obj, ok := mem.Get(c.Params("*"))
		if !ok {
			return s.respondError(c, models.NewNotFoundError("Blob", c.Params("*")))
		}
		c.Set(fiber.HeaderContentType, obj.ContentType)
		return c.Send(obj.Data)
	})

	blobs.Put("/*", func(c *fiber.Ctx) error {
		expires, err := strconv.ParseInt(c.Query("expires"), 10, 64)
		if err != nil || time.Now().Unix() > expires {
			return s.respondError(c, models.NewForbiddenError("Upload URL expired"))
		}
		if err := mem.Put(c.UserContext(), c.Params("*"), requestBody(c), c.Get(fiber.HeaderContentType)); err != nil {
			return s.respondError(c, models.NewInternalError(err))
		}
		return c.SendStatus(fiber.StatusOK)
	})
}
