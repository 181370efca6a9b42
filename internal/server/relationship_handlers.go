package server

import (
	"murmur/internal/models"

	"github.com/gofiber/fiber/v2"
)

// BookmarkRequest is the body of POST /api/bookmarks.
type BookmarkRequest struct {
	PostID uint `json:"post_id"`
}

// BookmarkPost handles POST /api/bookmarks
// @Summary Bookmark a post
// @Tags bookmarks
// @Accept json
// @Produce json
// @Param request body BookmarkRequest true "Post to bookmark"
// @Success 200 {object} map[string]bool
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /bookmarks [post]
func (s *Server) BookmarkPost(c *fiber.Ctx) error {
	var req BookmarkRequest
	if err := parseBody(c, &req); err != nil {
		return s.respondError(c, err)
	}
	if req.PostID == 0 {
		return s.respondError(c, models.NewValidationError("post_id is required"))
	}
	if err := s.relationshipService.Bookmark(c.UserContext(), viewerID(c), req.PostID); err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"bookmarked": true})
}

// UnbookmarkPost handles DELETE /api/bookmarks/:postId
// @Summary Remove a bookmark
// @Tags bookmarks
// @Produce json
// @Param postId path int true "Post ID"
// @Success 200 {object} map[string]bool
// @Security BearerAuth
// @Router /bookmarks/{postId} [delete]
func (s *Server) UnbookmarkPost(c *fiber.Ctx) error {
	postID, err := parseID(c, "postId")
	if err != nil {
		return s.respondError(c, err)
	}
	if err := s.relationshipService.Unbookmark(c.UserContext(), viewerID(c), postID); err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"bookmarked": false})
}

// GetFollowStatus handles GET /api/users/:id/follow
// @Summary Follow status in both directions
// @Tags follows
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} service.FollowStatus
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /users/{id}/follow [get]
func (s *Server) GetFollowStatus(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return s.respondError(c, err)
	}
	status, err := s.relationshipService.FollowStatus(c.UserContext(), viewerID(c), id)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(status)
}

// FollowUser handles POST /api/users/:id/follow
// @Summary Follow a user
// @Tags follows
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} map[string]bool
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /users/{id}/follow [post]
func (s *Server) FollowUser(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return s.respondError(c, err)
	}
	if err := s.relationshipService.Follow(c.UserContext(), viewerID(c), id); err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"is_following": true})
}

// UnfollowUser handles DELETE /api/users/:id/follow
// @Summary Unfollow a user
// @Tags follows
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} map[string]bool
// @Security BearerAuth
// @Router /users/{id}/follow [delete]
func (s *Server) UnfollowUser(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return s.respondError(c, err)
	}
	if err := s.relationshipService.Unfollow(c.UserContext(), viewerID(c), id); err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"is_following": false})
}

// GetBlockStatus handles GET /api/users/:id/block
// @Summary Whether the viewer blocks a user
// @Tags blocks
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} map[string]bool
// @Security BearerAuth
// @Router /users/{id}/block [get]
func (s *Server) GetBlockStatus(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return s.respondError(c, err)
	}
	blocked, err := s.relationshipService.IsBlocked(c.UserContext(), viewerID(c), id)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"is_blocked": blocked})
}

// BlockUser handles POST /api/users/:id/block
// @Summary Block a user
// @Description Blocking also removes follows in both directions.
// @Tags blocks
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} map[string]bool
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /users/{id}/block [post]
func (s *Server) BlockUser(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return s.respondError(c, err)
	}
	if err := s.relationshipService.Block(c.UserContext(), viewerID(c), id); err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"is_blocked": true})
}

// UnblockUser handles DELETE /api/users/:id/block
// @Summary Unblock a user
// @Tags blocks
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} map[string]bool
// @Security BearerAuth
// @Router /users/{id}/block [delete]
func (s *Server) UnblockUser(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return s.respondError(c, err)
	}
	if err := s.relationshipService.Unblock(c.UserContext(), viewerID(c), id); err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"is_blocked": false})
}
