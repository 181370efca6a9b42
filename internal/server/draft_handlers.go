package server

import (
	"murmur/internal/media"
	"murmur/internal/models"
	"murmur/internal/pagination"
	"murmur/internal/service"

	"github.com/gofiber/fiber/v2"
)

// DraftRequest is the body of draft create and update.
type DraftRequest struct {
	Content         string        `json:"content"`
	InReplyToPostID *uint         `json:"in_reply_to_post_id"`
	Media           []media.Input `json:"media"`
}

func (r DraftRequest) input() service.DraftInput {
	return service.DraftInput{
		Content:         r.Content,
		InReplyToPostID: r.InReplyToPostID,
		Media:           r.Media,
	}
}

type DraftListResponse struct {
	Drafts     []models.Draft  `json:"drafts"`
	Pagination pagination.Info `json:"pagination"`
}

type DraftResponse struct {
	Draft *models.Draft `json:"draft"`
}

// GetDrafts handles GET /api/drafts
// @Summary List the viewer's drafts
// @Tags drafts
// @Produce json
// @Param limit query int false "Page size"
// @Param cursor query int false "Draft id cursor"
// @Success 200 {object} DraftListResponse
// @Security BearerAuth
// @Router /drafts [get]
func (s *Server) GetDrafts(c *fiber.Ctx) error {
	page, err := s.pageParams(c)
	if err != nil {
		return s.respondError(c, err)
	}
	drafts, info, err := s.draftService.List(c.UserContext(), viewerID(c), page)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(DraftListResponse{Drafts: drafts, Pagination: info})
}

// CreateDraft handles POST /api/drafts
// @Summary Save a draft
// @Tags drafts
// @Accept json
// @Produce json
// @Param request body DraftRequest true "Draft"
// @Success 201 {object} DraftResponse
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /drafts [post]
func (s *Server) CreateDraft(c *fiber.Ctx) error {
	var req DraftRequest
	if err := parseBody(c, &req); err != nil {
		return s.respondError(c, err)
	}
	draft, err := s.draftService.Create(c.UserContext(), viewerID(c), req.input())
	if err != nil {
		return s.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(DraftResponse{Draft: draft})
}

// GetDraft handles GET /api/drafts/:id
// @Summary Get a draft
// @Tags drafts
// @Produce json
// @Param id path int true "Draft ID"
// @Success 200 {object} DraftResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /drafts/{id} [get]
func (s *Server) GetDraft(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return s.respondError(c, err)
	}
	draft, err := s.draftService.Get(c.UserContext(), viewerID(c), id)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(DraftResponse{Draft: draft})
}

// UpdateDraft handles PUT /api/drafts/:id
// @Summary Replace a draft
// @Tags drafts
// @Accept json
// @Produce json
// @Param id path int true "Draft ID"
// @Param request body DraftRequest true "Draft"
// @Success 200 {object} DraftResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /drafts/{id} [put]
func (s *Server) UpdateDraft(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return s.respondError(c, err)
	}
	var req DraftRequest
	if err := parseBody(c, &req); err != nil {
		return s.respondError(c, err)
	}
	draft, err := s.draftService.Update(c.UserContext(), viewerID(c), id, req.input())
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(DraftResponse{Draft: draft})
}

// DeleteDraft handles DELETE /api/drafts/:id
// @Summary Delete a draft
// @Tags drafts
// @Param id path int true "Draft ID"
// @Success 204
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /drafts/{id} [delete]
func (s *Server) DeleteDraft(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return s.respondError(c, err)
	}
	if err := s.draftService.Delete(c.UserContext(), viewerID(c), id); err != nil {
		return s.respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
