package server

import (
	"murmur/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreateCommunityRequest is the body of POST /api/communities.
type CreateCommunityRequest struct {
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	IsPrivate   bool   `json:"is_private"`
}

// CreateCommunity handles POST /api/communities
// @Summary Create a community
// @Description The creator becomes the owner member. The slug defaults to the slugified name.
// @Tags communities
// @Accept json
// @Produce json
// @Param request body CreateCommunityRequest true "Community"
// @Success 201 {object} models.Community
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /communities [post]
func (s *Server) CreateCommunity(c *fiber.Ctx) error {
	var req CreateCommunityRequest
	if err := parseBody(c, &req); err != nil {
		return s.respondError(c, err)
	}
	community, err := s.communityService.Create(c.UserContext(), service.CreateCommunityInput{
		CreatorID:   viewerID(c),
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
		IsPrivate:   req.IsPrivate,
	})
	if err != nil {
		return s.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(community)
}

// GetCommunity handles GET /api/communities/:id
// @Summary Get a community
// @Tags communities
// @Produce json
// @Param id path int true "Community ID"
// @Success 200 {object} service.CommunityDetail
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /communities/{id} [get]
func (s *Server) GetCommunity(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return s.respondError(c, err)
	}
	detail, err := s.communityService.Get(c.UserContext(), viewerID(c), id)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(detail)
}

// JoinCommunity handles POST /api/communities/:id/join
// @Summary Join a community
// @Tags communities
// @Produce json
// @Param id path int true "Community ID"
// @Success 200 {object} map[string]bool
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /communities/{id}/join [post]
func (s *Server) JoinCommunity(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return s.respondError(c, err)
	}
	if err := s.communityService.Join(c.UserContext(), viewerID(c), id); err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"is_member": true})
}

// LeaveCommunity handles DELETE /api/communities/:id/join
// @Summary Leave a community
// @Tags communities
// @Produce json
// @Param id path int true "Community ID"
// @Success 200 {object} map[string]bool
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /communities/{id}/join [delete]
func (s *Server) LeaveCommunity(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return s.respondError(c, err)
	}
	if err := s.communityService.Leave(c.UserContext(), viewerID(c), id); err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"is_member": false})
}

// GetCommunityPosts handles GET /api/communities/:id/posts
// @Summary List a community's posts
// @Tags communities
// @Produce json
// @Param id path int true "Community ID"
// @Param limit query int false "Page size"
// @Param cursor query int false "Post id cursor"
// @Param include_related query bool false "Attach related posts"
// @Success 200 {object} PostListResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /communities/{id}/posts [get]
func (s *Server) GetCommunityPosts(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return s.respondError(c, err)
	}
	page, err := s.pageParams(c)
	if err != nil {
		return s.respondError(c, err)
	}
	includeRelated, err := queryBool(c, "include_related", false)
	if err != nil {
		return s.respondError(c, err)
	}
	posts, info, err := s.communityService.Posts(c.UserContext(), viewerID(c), id, page, includeRelated)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(PostListResponse{Posts: posts, Pagination: info})
}
