package api

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pugnascotia/fleetwatch/internal/config"
)

// Server represents the HTTP server with all configured routes and middleware.
type Server struct {
	app    *fiber.App
	config *config.ServerConfig
	logger *slog.Logger

	// Handlers
	tagUpdateHandler       *TagUpdateHandler
	suppressionRuleHandler *SuppressionRuleHandler
	alertHandler           *AlertHandler
}

// ServerDeps contains all dependencies required to create a new Server.
type ServerDeps struct {
	Config                 *config.ServerConfig
	Logger                 *slog.Logger
	TagUpdateHandler       *TagUpdateHandler
	SuppressionRuleHandler *SuppressionRuleHandler
	AlertHandler           *AlertHandler
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(deps ServerDeps) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		StrictRouting:         true,
		CaseSensitive:         true,
		ReadTimeout:           deps.Config.ReadTimeout,
		WriteTimeout:          deps.Config.WriteTimeout,
		IdleTimeout:           deps.Config.IdleTimeout,
		ErrorHandler:          customErrorHandler,
	})

	s := &Server{
		app:                    app,
		config:                 deps.Config,
		logger:                 deps.Logger,
		tagUpdateHandler:       deps.TagUpdateHandler,
		suppressionRuleHandler: deps.SuppressionRuleHandler,
		alertHandler:           deps.AlertHandler,
	}

	s.registerMiddleware()
	s.registerRoutes()

	return s
}

// registerMiddleware sets up all middleware for the server.
func (s *Server) registerMiddleware() {
	// Recovery middleware to handle panics
	s.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	// Request ID middleware for tracing
	s.app.Use(requestid.New())

	// Logger middleware for request logging
	s.app.Use(logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${method} | ${path} | ${error}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))
}

// registerRoutes sets up all API routes.
func (s *Server) registerRoutes() {
	// Health check endpoint (outside versioned API)
	s.app.Get("/healthz", s.healthCheck)

	// Prometheus metrics endpoint
	s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// API v1 routes
	v1 := s.app.Group("/v1")

	// Bulk agent tag updates
	v1.Post("/agents/tags", s.tagUpdateHandler.UpdateTags)

	// Suppression rule CRUD plus manual runs
	v1.Post("/suppression-rules", s.suppressionRuleHandler.Create)
	v1.Get("/suppression-rules", s.suppressionRuleHandler.List)
	v1.Get("/suppression-rules/:id", s.suppressionRuleHandler.GetByID)
	v1.Put("/suppression-rules/:id", s.suppressionRuleHandler.Update)
	v1.Delete("/suppression-rules/:id", s.suppressionRuleHandler.Delete)
	v1.Post("/suppression-rules/:id/run", s.suppressionRuleHandler.Run)

	// Alerts (read-only)
	v1.Get("/alerts", s.alertHandler.List)
}

// healthCheck returns the health status of the service.
func (s *Server) healthCheck(c *fiber.Ctx) error {
	return Success(c, map[string]string{
		"status": "healthy",
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	addr := s.config.Address()
	s.logger.Info("starting HTTP server", "address", addr)
	return s.app.Listen(addr)
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.app.ShutdownWithContext(ctx)
}

// customErrorHandler handles errors returned from handlers.
func customErrorHandler(c *fiber.Ctx, err error) error {
	if e, ok := err.(*fiber.Error); ok {
		return Error(c, e.Code, ErrCodeInternalError, e.Message)
	}

	return InternalError(c, fmt.Sprintf("unexpected error: %v", err))
}
