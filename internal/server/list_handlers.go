package server

import (
	"murmur/internal/models"
	"murmur/internal/pagination"
	"murmur/internal/service"

	"github.com/gofiber/fiber/v2"
)

// UserListResponse is the body of follower, following and block listings.
type UserListResponse struct {
	Users      []models.UserListItem `json:"users"`
	Pagination pagination.Info       `json:"pagination"`
}

// GetBookmarks handles GET /api/bookmarks
// @Summary List bookmarked posts
// @Description Newest bookmark first. The cursor is the bookmark id.
// @Tags bookmarks
// @Produce json
// @Param limit query int false "Page size"
// @Param cursor query int false "Bookmark id cursor"
// @Param include_related query bool false "Attach related posts"
// @Success 200 {object} PostListResponse
// @Security BearerAuth
// @Router /bookmarks [get]
func (s *Server) GetBookmarks(c *fiber.Ctx) error {
	page, err := s.pageParams(c)
	if err != nil {
		return s.respondError(c, err)
	}
	includeRelated, err := queryBool(c, "include_related", false)
	if err != nil {
		return s.respondError(c, err)
	}

	posts, info, err := s.listService.Bookmarks(c.UserContext(), viewerID(c), page, includeRelated)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(PostListResponse{Posts: posts, Pagination: info})
}

// GetEngagement handles GET /api/engagement
// @Summary List posts the viewer engaged with
// @Description type=likes pages by like id; type=comments lists the viewer's replies and attaches the parent by default.
// @Tags engagement
// @Produce json
// @Param type query string true "likes or comments"
// @Param limit query int false "Page size"
// @Param cursor query int false "Cursor"
// @Param include_related query bool false "Attach related posts"
// @Success 200 {object} PostListResponse
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /engagement [get]
func (s *Server) GetEngagement(c *fiber.Ctx) error {
	kind, err := service.ParseEngagementType(c.Query("type"))
	if err != nil {
		return s.respondError(c, err)
	}
	page, err := s.pageParams(c)
	if err != nil {
		return s.respondError(c, err)
	}
	includeRelated, err := queryBool(c, "include_related", kind == service.EngagementComments)
	if err != nil {
		return s.respondError(c, err)
	}

	posts, info, err := s.listService.Engagement(c.UserContext(), viewerID(c), kind, page, includeRelated)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(PostListResponse{Posts: posts, Pagination: info})
}

type userListFunc func(c *fiber.Ctx, viewerID, userID uint, page pagination.Params) ([]models.UserListItem, pagination.Info, error)

func (s *Server) userList(c *fiber.Ctx, list userListFunc) error {
	page, err := s.pageParams(c)
	if err != nil {
		return s.respondError(c, err)
	}
	userID := viewerID(c)
	if id, err := queryID(c, "user_id"); err != nil {
		return s.respondError(c, err)
	} else if id != nil {
		userID = *id
	}

	users, info, err := list(c, viewerID(c), userID, page)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(UserListResponse{Users: users, Pagination: info})
}

// GetFollowers handles GET /api/followers
// @Summary List followers
// @Tags follows
// @Produce json
// @Param user_id query int false "User whose followers to list (default: viewer)"
// @Param limit query int false "Page size"
// @Param cursor query int false "Follow id cursor"
// @Success 200 {object} UserListResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /followers [get]
func (s *Server) GetFollowers(c *fiber.Ctx) error {
	return s.userList(c, func(c *fiber.Ctx, viewerID, userID uint, page pagination.Params) ([]models.UserListItem, pagination.Info, error) {
		return s.listService.Followers(c.UserContext(), viewerID, userID, page)
	})
}

// GetFollowing handles GET /api/follows
// @Summary List followed users
// @Tags follows
// @Produce json
// @Param user_id query int false "User whose follows to list (default: viewer)"
// @Param limit query int false "Page size"
// @Param cursor query int false "Follow id cursor"
// @Success 200 {object} UserListResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /follows [get]
func (s *Server) GetFollowing(c *fiber.Ctx) error {
	return s.userList(c, func(c *fiber.Ctx, viewerID, userID uint, page pagination.Params) ([]models.UserListItem, pagination.Info, error) {
		return s.listService.Following(c.UserContext(), viewerID, userID, page)
	})
}

// GetBlocks handles GET /api/blocks
// @Summary List blocked users
// @Tags blocks
// @Produce json
// @Param limit query int false "Page size"
// @Param cursor query int false "Block id cursor"
// @Success 200 {object} UserListResponse
// @Security BearerAuth
// @Router /blocks [get]
func (s *Server) GetBlocks(c *fiber.Ctx) error {
	page, err := s.pageParams(c)
	if err != nil {
		return s.respondError(c, err)
	}
	users, info, err := s.listService.Blocks(c.UserContext(), viewerID(c), page)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(UserListResponse{Users: users, Pagination: info})
}
