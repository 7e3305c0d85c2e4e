// Package server contains the HTTP and WebSocket handlers for the blogging API.
package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	_ "inkwell/docs" // swagger docs
	"inkwell/internal/config"
	"inkwell/internal/featureflags"
	"inkwell/internal/media"
	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/notifications"
	"inkwell/internal/observability"
	"inkwell/internal/repository"
	"inkwell/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	store          *repository.Store
	redis          *redis.Client
	relay          media.Relay
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	rateLimiter    *middleware.RateLimiter
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc
	hub            *notifications.Hub
	flags          *featureflags.Manager
	uploadPolicy   media.Policy
	authService    *service.AuthService
	postService    *service.PostService
	uploadService  *service.UploadService
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// The bootstrap layer opens the store, Redis and the media relay; tests pass
// an in-memory store and relay. redisClient may be nil.
func NewServerWithDeps(cfg *config.Config, store *repository.Store, redisClient *redis.Client, relay media.Relay) (*Server, error) {
	if cfg == nil || store == nil || relay == nil {
		return nil, errors.New("server requires config, store and media relay")
	}

	hub := notifications.NewHub(notifications.NewNotifier(redisClient))

	flagConfig := cfg.FeatureFlags
	if flagConfig == "" {
		flagConfig = featureflags.Defaults
	}

	server := &Server{
		config:         cfg,
		store:          store,
		redis:          redisClient,
		relay:          relay,
		promMiddleware: middleware.InitMetrics("inkwell-api"),
		rateLimiter:    middleware.NewRateLimiter(redisClient, !cfg.IsLocal()),
		hub:            hub,
		flags:          featureflags.NewManager(flagConfig),
		uploadPolicy: media.Policy{
			MaxFileBytes: cfg.UploadMaxFileBytes(),
			MaxFiles:     cfg.UploadMaxFiles,
		},
	}

	server.authService = service.NewAuthService(store.Users, service.TokenConfig{
		Secret:   cfg.JWTSecret,
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      time.Duration(cfg.JWTTTLHours) * time.Hour,
	})
	server.postService = service.NewPostService(store.Posts, store.Users, relay, hub, cfg.UploadConcurrency)
	server.uploadService = service.NewUploadService(relay, cfg.UploadConcurrency)

	return server, nil
}

const multipartOverhead = 1 << 20

// App builds the Fiber application with middleware and routes installed.
func (s *Server) App() *fiber.App {
	// A full set of files plus multipart framing and form fields must fit,
	// so oversized requests reach the upload policy and get a 400.
	bodyLimit := int(s.config.UploadMaxFileBytes())*s.config.UploadMaxFiles + multipartOverhead
	if s.config.UploadMaxFiles <= 0 || s.config.UploadMaxFileBytes() <= 0 {
		bodyLimit = fiber.DefaultBodyLimit
	}
	app := fiber.New(fiber.Config{
		AppName:      "Inkwell API",
		BodyLimit:    bodyLimit,
		ErrorHandler: s.errorHandler,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
	}
	observability.Logger.ErrorContext(c.UserContext(), "unhandled error", slog.String("error", err.Error()))
	return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	app.Use(middleware.TracingMiddleware())

	// Context Middleware to propagate Request ID and trace ID
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers
	app.Use(helmet.New())

	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected requests still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: origins != "*",
		MaxAge:           86400,
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(models.ErrorResponse{
				Error: "Too many requests, please try again later.",
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

	api := app.Group("/api")
	api.Get("/health", s.ReadinessCheck)
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "Inkwell API Metrics Dashboard",
	}))
	api.Get("/swagger/*", swagger.HandlerDefault)

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/signup", s.rateLimiter.Limit(3, 10*time.Minute, "signup"), s.Signup)
	auth.Post("/login", s.rateLimiter.Limit(10, 5*time.Minute, "login"), s.Login)
	auth.Get("/profile", s.AuthRequired(), s.GetProfile)
	auth.Put("/profile", s.AuthRequired(), s.UpdateProfile)

	// Posts: the feed is public, everything else needs a token.
	posts := api.Group("/posts")
	posts.Get("/", s.GetPosts)
	// Define /user before the generic /:id route
	posts.Get("/user", s.AuthRequired(), s.GetMyPosts)
	posts.Post("/", s.AuthRequired(), s.CreatePost)
	posts.Post("/:id/like", s.AuthRequired(), s.ToggleLike)
	posts.Post("/:id/comment", s.AuthRequired(), s.AddComment)
	posts.Get("/:id", s.AuthRequired(), s.GetPost)
	posts.Put("/:id", s.AuthRequired(), s.UpdatePost)
	posts.Delete("/:id", s.AuthRequired(), s.DeletePost)

	// Standalone media relay access
	upload := api.Group("/upload", s.AuthRequired())
	upload.Post("/image", s.UploadImage)
	upload.Post("/document", s.UploadDocument)
	upload.Post("/multiple", s.UploadMultiple)

	api.Get("/features", s.AuthRequired(), s.GetFeatures)

	// Activity stream
	ws := api.Group("/ws", s.AuthRequired())
	ws.Get("/activity", s.ActivityHandler())
}

// Start wires the activity hub and serves HTTP on the configured port.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	s.app = s.App()

	if err := s.hub.StartWiring(s.shutdownCtx); err != nil {
		observability.Logger.Warn("activity stream running without redis fan-out",
			slog.String("error", err.Error()))
	}

	observability.Logger.Info("Server starting", slog.String("port", s.config.Port))
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	// Cancel the server-scoped context to stop the Redis subscriber
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			observability.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	if err := s.hub.Shutdown(ctx); err != nil {
		observability.Logger.Error("error shutting down activity hub", slog.String("error", err.Error()))
	}

	if err := s.store.Close(); err != nil {
		observability.Logger.Error("error closing store", slog.String("error", err.Error()))
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			observability.Logger.Error("error closing redis", slog.String("error", err.Error()))
		}
	}

	observability.Logger.Info("Server shutdown complete")
	return nil
}
