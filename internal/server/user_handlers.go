package server

import (
	"errors"
	"log/slog"
	"time"

	"murmur/internal/middleware"
	"murmur/internal/models"
	"murmur/internal/observability"
	"murmur/internal/service"
	"murmur/internal/webhook"

	"github.com/gofiber/fiber/v2"
)

// UpdateProfileRequest is the body of PUT /api/users/me. Absent fields are
// left unchanged.
type UpdateProfileRequest struct {
	Username    *string `json:"username"`
	DisplayName *string `json:"display_name"`
	Bio         *string `json:"bio"`
}

// GetMyProfile handles GET /api/users/me
// @Summary Get the current user's profile
// @Tags users
// @Produce json
// @Success 200 {object} models.Profile
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /users/me [get]
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	profile, err := s.userService.Me(c.UserContext(), viewer(c))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(profile)
}

// UpdateMyProfile handles PUT /api/users/me
// @Summary Edit the current user's profile
// @Tags users
// @Accept json
// @Produce json
// @Param request body UpdateProfileRequest true "Profile fields"
// @Success 200 {object} models.Profile
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /users/me [put]
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	var req UpdateProfileRequest
	if err := parseBody(c, &req); err != nil {
		return s.respondError(c, err)
	}
	profile, err := s.userService.UpdateProfile(c.UserContext(), service.UpdateProfileInput{
		UserID:      viewerID(c),
		Username:    req.Username,
		DisplayName: req.DisplayName,
		Bio:         req.Bio,
	})
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(profile)
}

// GetUserProfile handles GET /api/users/:id
// @Summary Get a user's profile
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} models.Profile
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /users/{id} [get]
func (s *Server) GetUserProfile(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return s.respondError(c, err)
	}
	profile, err := s.userService.GetProfile(c.UserContext(), viewerID(c), id)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(profile)
}

// IdentityWebhook handles POST /api/webhooks/identity
// @Summary Identity provider webhook
// @Description Svix-signed user lifecycle events. Unknown event types are acknowledged.
// @Tags webhooks
// @Accept json
// @Produce json
// @Param svix-id header string true "Delivery id"
// @Param svix-timestamp header string true "Unix seconds"
// @Param svix-signature header string true "v1 signatures"
// @Success 200 {object} map[string]bool
// @Failure 400 {object} models.ErrorResponse
// @Router /webhooks/identity [post]
func (s *Server) IdentityWebhook(c *fiber.Ctx) error {
	ctx := c.UserContext()
	body := c.Body()

	headers := webhook.HeadersFrom(func(k string) string { return c.Get(k) })
	if err := webhook.Verify(s.config.WebhookSecret, headers, body, time.Now(), s.config.WebhookTolerance()); err != nil {
		observability.WebhookEvents.WithLabelValues("unknown", "rejected").Inc()
		if errors.Is(err, webhook.ErrInvalidSecret) {
			middleware.Logger.ErrorContext(ctx, "webhook secret is misconfigured")
		} else {
			middleware.Logger.WarnContext(ctx, "webhook rejected",
				slog.String("svix_id", headers.ID),
				slog.String("error", err.Error()))
		}
		return s.respondError(c, models.NewValidationError("Invalid webhook signature"))
	}

	ev, err := webhook.Decode(body)
	if err != nil {
		observability.WebhookEvents.WithLabelValues("unknown", "invalid").Inc()
		return s.respondError(c, models.NewValidationError("Invalid webhook payload"))
	}

	if err := s.userService.HandleWebhook(ctx, ev); err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"received": true})
}
