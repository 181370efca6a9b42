package server

import (
	"murmur/internal/media"
	"murmur/internal/models"
	"murmur/internal/pagination"
	"murmur/internal/service"

	"github.com/gofiber/fiber/v2"
)

// PostListResponse is the body of every post listing.
type PostListResponse struct {
	Posts      []models.PostView `json:"posts"`
	Pagination pagination.Info   `json:"pagination"`
}

// PostResponse wraps a single post.
type PostResponse struct {
	Post *models.PostView `json:"post"`
}

// CreatePostRequest is the body of POST /api/posts.
type CreatePostRequest struct {
	Content         string        `json:"content"`
	PostType        string        `json:"post_type"`
	InReplyToPostID *uint         `json:"in_reply_to_post_id"`
	QuoteOfPostID   *uint         `json:"quote_of_post_id"`
	RepostOfPostID  *uint         `json:"repost_of_post_id"`
	CommunityID     *uint         `json:"community_id"`
	Media           []media.Input `json:"media"`
}

func parsePostTypeFilter(raw string) (*models.PostType, error) {
	if raw == "" {
		return nil, nil
	}
	t := models.PostType(raw)
	switch t {
	case models.PostOriginal, models.PostReply, models.PostQuote, models.PostRepost:
		return &t, nil
	}
	return nil, models.NewValidationError("post_type must be original, reply, quote or repost")
}

// CreatePost handles POST /api/posts
// @Summary Create a post
// @Description Publish an original post, reply, quote or repost. Repeating an active repost returns the existing one with 200.
// @Tags posts
// @Accept json
// @Produce json
// @Param request body CreatePostRequest true "Post"
// @Success 201 {object} PostResponse
// @Success 200 {object} PostResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /posts [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var req CreatePostRequest
	if err := parseBody(c, &req); err != nil {
		return s.respondError(c, err)
	}

	view, created, err := s.postService.CreatePost(c.UserContext(), service.CreatePostInput{
		UserID:          viewerID(c),
		Content:         req.Content,
		PostType:        req.PostType,
		InReplyToPostID: req.InReplyToPostID,
		QuoteOfPostID:   req.QuoteOfPostID,
		RepostOfPostID:  req.RepostOfPostID,
		CommunityID:     req.CommunityID,
		Media:           req.Media,
	})
	if err != nil {
		return s.respondError(c, err)
	}

	status := fiber.StatusCreated
	if !created {
		status = fiber.StatusOK
	}
	return c.Status(status).JSON(PostResponse{Post: view})
}

// GetPosts handles GET /api/posts
// @Summary List the feed
// @Tags posts
// @Produce json
// @Param limit query int false "Page size"
// @Param cursor query int false "Return posts after this id"
// @Param sort query string false "desc or asc"
// @Param include_related query bool false "Attach the replied, quoted or reposted post"
// @Param include_total query bool false "Count all matching posts"
// @Param author_id query int false "Only posts by this user"
// @Param post_type query string false "original, reply, quote or repost"
// @Success 200 {object} PostListResponse
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /posts [get]
func (s *Server) GetPosts(c *fiber.Ctx) error {
	page, err := s.pageParams(c)
	if err != nil {
		return s.respondError(c, err)
	}
	includeRelated, err := queryBool(c, "include_related", false)
	if err != nil {
		return s.respondError(c, err)
	}
	includeTotal, err := queryBool(c, "include_total", false)
	if err != nil {
		return s.respondError(c, err)
	}
	authorID, err := queryID(c, "author_id")
	if err != nil {
		return s.respondError(c, err)
	}
	postType, err := parsePostTypeFilter(c.Query("post_type"))
	if err != nil {
		return s.respondError(c, err)
	}

	posts, info, err := s.postService.Feed(c.UserContext(), viewerID(c), service.FeedInput{
		Page:           page,
		IncludeRelated: includeRelated,
		IncludeTotal:   includeTotal,
		AuthorID:       authorID,
		PostType:       postType,
	})
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(PostListResponse{Posts: posts, Pagination: info})
}

// GetPost handles GET /api/posts/:id
// @Summary Get a post
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Param include_related query bool false "Attach the related post (default true)"
// @Success 200 {object} PostResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /posts/{id} [get]
func (s *Server) GetPost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return s.respondError(c, err)
	}
	includeRelated, err := queryBool(c, "include_related", true)
	if err != nil {
		return s.respondError(c, err)
	}

	view, err := s.postService.GetPost(c.UserContext(), viewerID(c), id, includeRelated)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(PostResponse{Post: view})
}

// DeletePost handles DELETE /api/posts/:id
// @Summary Delete a post
// @Tags posts
// @Param id path int true "Post ID"
// @Success 204
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /posts/{id} [delete]
func (s *Server) DeletePost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return s.respondError(c, err)
	}
	if err := s.postService.DeletePost(c.UserContext(), viewerID(c), id); err != nil {
		return s.respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// LikePost handles POST /api/posts/:id/like
// @Summary Like a post
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} service.LikeState
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /posts/{id}/like [post]
func (s *Server) LikePost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return s.respondError(c, err)
	}
	state, err := s.relationshipService.Like(c.UserContext(), viewerID(c), id)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(state)
}

// UnlikePost handles DELETE /api/posts/:id/like
// @Summary Remove a like
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} service.LikeState
// @Security BearerAuth
// @Router /posts/{id}/like [delete]
func (s *Server) UnlikePost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return s.respondError(c, err)
	}
	state, err := s.relationshipService.Unlike(c.UserContext(), viewerID(c), id)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(state)
}
