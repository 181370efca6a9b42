// Package middleware provides request-scoped Fiber middleware: identity,
// logging, tracing, metrics and rate limiting.
package middleware

import (
	"errors"

	"murmur/internal/identity"
	"murmur/internal/models"

	"github.com/gofiber/fiber/v2"
)

// RequireIdentity verifies the bearer token with v, resolves the local user
// with r and stores it in c.Locals("userID") and c.Locals("user").
//
// A missing or untrusted token is 401. A trusted token with no local row is
// 404 USER_NOT_FOUND.
func RequireIdentity(v identity.Verifier, r identity.Resolver, withDetails bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthenticatedError("Authorization header required"), false)
		}

		token, ok := identity.ExtractBearer(authHeader)
		if !ok {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthenticatedError("Invalid authorization header format"), false)
		}

		ctx := c.UserContext()
		externalID, err := v.Verify(ctx, token)
		if err != nil {
			if !errors.Is(err, identity.ErrInvalidToken) {
				Logger.WarnContext(ctx, "identity verification failed", "error", err)
			}
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthenticatedError("Invalid or expired token"), false)
		}

		user, err := r.Resolve(ctx, externalID)
		if err != nil {
			status := models.StatusFor(err)
			if status == fiber.StatusInternalServerError {
				Logger.ErrorContext(ctx, "identity resolution failed", "error", err)
			}
			return models.RespondWithError(c, status, err, withDetails)
		}

		c.Locals("userID", user.ID)
		c.Locals("user", user)
		c.SetUserContext(WithUserID(ctx, user.ID))

		return c.Next()
	}
}
