package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"murmur/internal/models"
	"murmur/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const CodeRateLimited = "RATE_LIMITED"

// Limit is a fixed-window request budget per viewer.
type Limit struct {
	Name   string
	Max    int
	Window time.Duration
}

// Budgets for the write-heavy routes.
var (
	CreatePostLimit   = Limit{Name: "create_post", Max: 30, Window: time.Minute}
	RelationshipLimit = Limit{Name: "relationship", Max: 60, Window: time.Minute}
	UploadLimit       = Limit{Name: "upload", Max: 20, Window: time.Minute}
)

// Limiter counts requests in Redis. A disabled limiter, or one without a
// client, admits everything. Store errors admit the request.
type Limiter struct {
	rdb     *redis.Client
	enabled bool
}

func NewLimiter(rdb *redis.Client, enabled bool) *Limiter {
	return &Limiter{rdb: rdb, enabled: enabled && rdb != nil}
}

func limitKey(limit Limit, subject string) string {
	return fmt.Sprintf("rl:%s:%s", limit.Name, subject)
}

// Allow records one request by subject against limit and reports whether it
// fits, with the requests left in the window.
func (l *Limiter) Allow(ctx context.Context, limit Limit, subject string) (bool, int, error) {
	if l == nil || !l.enabled {
		return true, limit.Max, nil
	}

	key := limitKey(limit, subject)
	cnt, err := l.rdb.Incr(ctx, key).Result()
	if err != nil {
		return true, limit.Max, err
	}
	if cnt == 1 {
		if err := l.rdb.Expire(ctx, key, limit.Window).Err(); err != nil {
			return true, limit.Max, err
		}
	}
	remaining := limit.Max - int(cnt)
	if remaining < 0 {
		return false, 0, nil
	}
	return true, remaining, nil
}

// subject keys authenticated requests by viewer id and anonymous ones by IP.
func subject(c *fiber.Ctx) string {
	if uid, ok := c.Locals("userID").(uint); ok && uid != 0 {
		return "user:" + strconv.FormatUint(uint64(uid), 10)
	}
	return "ip:" + c.IP()
}

// Handler enforces limit on the route. Mount it after authentication so
// the budget follows the viewer across addresses.
func (l *Limiter) Handler(limit Limit) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if l == nil || !l.enabled {
			return c.Next()
		}
		ctx := c.UserContext()

		allowed, remaining, err := l.Allow(ctx, limit, subject(c))
		if err != nil {
			observability.RateLimitDecisions.WithLabelValues(limit.Name, "store_error").Inc()
			Logger.WarnContext(ctx, "rate limit store unavailable, admitting request",
				slog.String("limit", limit.Name),
				slog.String("error", err.Error()))
			return c.Next()
		}

		c.Set("X-RateLimit-Limit", strconv.Itoa(limit.Max))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		if !allowed {
			observability.RateLimitDecisions.WithLabelValues(limit.Name, "rejected").Inc()
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(limit.Window.Seconds())))
			return c.Status(fiber.StatusTooManyRequests).JSON(models.ErrorResponse{
				Error: "Rate limit exceeded",
				Code:  CodeRateLimited,
			})
		}
		observability.RateLimitDecisions.WithLabelValues(limit.Name, "allowed").Inc()
		return c.Next()
	}
}
