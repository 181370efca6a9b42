// Package server contains the HTTP handlers for the application's API endpoints.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "murmur/docs" // swagger docs
	"murmur/internal/config"
	"murmur/internal/database"
	"murmur/internal/identity"
	"murmur/internal/middleware"
	"murmur/internal/models"
	"murmur/internal/pagination"
	"murmur/internal/repository"
	"murmur/internal/service"
	"murmur/internal/storage"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// globalRateLimit is the per-IP request budget per minute in production.
const globalRateLimit = 300

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	verifier       identity.Verifier
	resolver       identity.Resolver
	blobs          storage.BlobStore
	limiter        *middleware.Limiter
	pageDefaults   pagination.Defaults

	postService         *service.PostService
	relationshipService *service.RelationshipService
	listService         *service.ListService
	draftService        *service.DraftService
	userService         *service.UserService
	uploadService       *service.UploadService
	communityService    *service.CommunityService
}

// Option overrides a dependency NewServerWithDeps would otherwise build
// from configuration.
type Option func(*Server)

// WithVerifier replaces the bearer token verifier.
func WithVerifier(v identity.Verifier) Option {
	return func(s *Server) { s.verifier = v }
}

// WithResolver replaces the identity to user resolver.
func WithResolver(r identity.Resolver) Option {
	return func(s *Server) { s.resolver = r }
}

// WithBlobStore replaces the object store.
func WithBlobStore(b storage.BlobStore) Option {
	return func(s *Server) { s.blobs = b }
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// bootstrap.InitRuntime establishes DB/Redis and applies the schema.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, opts ...Option) (*Server, error) {
	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("murmur-api"),
		limiter:        middleware.NewLimiter(redisClient, cfg.IsProduction()),
		pageDefaults: pagination.Defaults{
			Limit:    cfg.DefaultPageLimit,
			MaxLimit: cfg.MaxPageLimit,
		},
	}
	for _, opt := range opts {
		opt(s)
	}

	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	relRepo := repository.NewRelationshipRepository(db)
	communityRepo := repository.NewCommunityRepository(db)
	toggles := service.Toggles{
		Follows:   repository.NewFollowToggle(db),
		Blocks:    repository.NewBlockToggle(db),
		Likes:     repository.NewLikeToggle(db),
		Bookmarks: repository.NewBookmarkToggle(db),
	}

	if s.verifier == nil {
		v, err := newVerifier(cfg)
		if err != nil {
			return nil, err
		}
		s.verifier = v
	}
	if s.resolver == nil {
		s.resolver = identity.NewResolver(userRepo)
	}
	if s.blobs == nil {
		blobs, err := storage.New(cfg)
		if err != nil {
			return nil, fmt.Errorf("object store: %w", err)
		}
		s.blobs = blobs
	}

	limits := service.ContentLimits{
		MaxContentLength: cfg.MaxContentLength,
		MaxMediaPerPost:  cfg.MaxMediaPerPost,
	}
	aggregator := service.NewAggregator(repository.NewEngagementRepository(db), relRepo)

	s.postService = service.NewPostService(postRepo, relRepo, communityRepo, aggregator, s.blobs, limits)
	s.relationshipService = service.NewRelationshipService(userRepo, postRepo, relRepo, toggles)
	s.listService = service.NewListService(repository.NewListRepository(db), postRepo, userRepo, relRepo, aggregator)
	s.draftService = service.NewDraftService(repository.NewDraftRepository(db), postRepo, limits)
	s.userService = service.NewUserService(userRepo, relRepo, toggles.Follows, toggles.Blocks)
	s.uploadService = service.NewUploadService(s.blobs, userRepo, cfg)
	s.communityService = service.NewCommunityService(communityRepo, postRepo, relRepo, aggregator)

	return s, nil
}

func newVerifier(cfg *config.Config) (identity.Verifier, error) {
	if cfg.IdentityJWKSURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		v, err := identity.NewJWKSVerifier(ctx, cfg.IdentityJWKSURL, cfg.IdentityIssuer)
		if err != nil {
			return nil, fmt.Errorf("jwks verifier: %w", err)
		}
		return v, nil
	}
	if cfg.IdentityJWTSecret == "" {
		return nil, errors.New("IDENTITY_JWKS_URL or IDENTITY_JWT_SECRET must be set")
	}
	return identity.NewHMACVerifier(cfg.IdentityJWTSecret, cfg.IdentityIssuer), nil
}

// App builds the Fiber application once, with middleware and routes.
func (s *Server) App() *fiber.App {
	if s.app != nil {
		return s.app
	}
	s.app = fiber.New(fiber.Config{
		AppName:           "Murmur API",
		BodyLimit:         (s.config.MaxVideoUploadSizeMB + 1) * 1024 * 1024,
		StreamRequestBody: true,
		ErrorHandler:      s.errorHandler,
	})
	s.SetupMiddleware(s.app)
	s.SetupRoutes(s.app)
	return s.app
}

func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code := models.CodeInternal
		switch {
		case fe.Code == fiber.StatusNotFound:
			code = models.CodeNotFound
		case fe.Code < fiber.StatusInternalServerError:
			code = models.CodeValidation
		}
		return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message, Code: code})
	}
	return s.respondError(c, err)
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())

	// Tracing runs first so the context middleware can copy its trace id.
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(s.promMiddleware.Middleware)
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected browser requests still carry
	// CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        globalRateLimit,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions || !s.config.IsProduction()
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	app.Get("/swagger/*", swagger.HandlerDefault)

	if mem, ok := s.blobs.(*storage.MemoryStore); ok {
		s.mountMemoryBlobs(app, mem)
	}

	api := app.Group("/api")

	// Signature gated, no bearer token.
	api.Post("/webhooks/identity", s.IdentityWebhook)

	protected := api.Group("", s.AuthRequired())

	posts := protected.Group("/posts")
	posts.Get("/", s.GetPosts)
	posts.Post("/", s.limiter.Handler(middleware.CreatePostLimit), s.CreatePost)
	posts.Post("/:id/like", s.LikePost)
	posts.Delete("/:id/like", s.UnlikePost)
	posts.Get("/:id", s.GetPost)
	posts.Delete("/:id", s.DeletePost)

	bookmarks := protected.Group("/bookmarks")
	bookmarks.Get("/", s.GetBookmarks)
	bookmarks.Post("/", s.BookmarkPost)
	bookmarks.Delete("/:postId", s.UnbookmarkPost)

	protected.Get("/engagement", s.GetEngagement)
	protected.Get("/followers", s.GetFollowers)
	protected.Get("/follows", s.GetFollowing)
	protected.Get("/blocks", s.GetBlocks)

	// /me before /:id
	users := protected.Group("/users")
	users.Get("/me", s.GetMyProfile)
	users.Put("/me", s.UpdateMyProfile)
	relationLimit := s.limiter.Handler(middleware.RelationshipLimit)
	users.Get("/:id/follow", s.GetFollowStatus)
	users.Post("/:id/follow", relationLimit, s.FollowUser)
	users.Delete("/:id/follow", relationLimit, s.UnfollowUser)
	users.Get("/:id/block", s.GetBlockStatus)
	users.Post("/:id/block", relationLimit, s.BlockUser)
	users.Delete("/:id/block", relationLimit, s.UnblockUser)
	users.Get("/:id", s.GetUserProfile)

	drafts := protected.Group("/drafts")
	drafts.Get("/", s.GetDrafts)
	drafts.Post("/", s.CreateDraft)
	drafts.Get("/:id", s.GetDraft)
	drafts.Put("/:id", s.UpdateDraft)
	drafts.Delete("/:id", s.DeleteDraft)

	uploads := protected.Group("/upload", s.limiter.Handler(middleware.UploadLimit))
	uploads.Post("/post-media", s.SignPostMediaUpload)
	uploads.Post("/cover-images", s.SignCoverImageUpload)
	uploads.Post("/video", s.UploadVideo)
	uploads.Post("/avatar", s.UploadAvatar)

	communities := protected.Group("/communities")
	communities.Post("/", s.CreateCommunity)
	communities.Get("/:id/posts", s.GetCommunityPosts)
	communities.Post("/:id/join", s.JoinCommunity)
	communities.Delete("/:id/join", s.LeaveCommunity)
	communities.Get("/:id", s.GetCommunity)
}

// LivenessCheck reports that the process is up.
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck reports whether the database and cache are reachable.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if err := database.Ping(ctx, s.db); err != nil {
		dbStatus = "unhealthy"
	}

	// Redis is optional; only a configured client that fails to answer
	// makes the service unready.
	redisStatus := "disabled"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// AuthRequired returns the authentication middleware
func (s *Server) AuthRequired() fiber.Handler {
	return middleware.RequireIdentity(s.verifier, s.resolver, !s.config.IsProduction())
}

// Start builds the app and listens on the configured port.
func (s *Server) Start() error {
	middleware.Logger.Info("server starting", slog.String("port", s.config.Port))
	return s.App().Listen(":" + s.config.Port)
}

// Shutdown stops accepting requests, then closes the database and Redis.
func (s *Server) Shutdown(ctx context.Context) error {
	middleware.Logger.Info("shutting down server")

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("fiber shutdown failed", slog.String("error", err.Error()))
		}
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			middleware.Logger.Error("redis close failed", slog.String("error", err.Error()))
		}
	}

	if s.db != nil {
		sqlDB, err := s.db.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				return fmt.Errorf("close database: %w", err)
			}
		}
	}

	return nil
}
