package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	apisetup "callbridge/internal/api"
	"callbridge/internal/bootstrap"
	"callbridge/internal/config"
	"callbridge/internal/observability"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// shutdownTimeout bounds draining HTTP requests and live call sessions
const shutdownTimeout = 10 * time.Second

// Server encapsulates the HTTP server and its dependencies
type Server struct {
	httpServer *http.Server
	router     *gin.Engine
	deps       *bootstrap.Dependencies
	config     *config.Config
	logger     *observability.Logger
}

// New creates a new Server instance
func New(cfg *config.Config, deps *bootstrap.Dependencies, logger *observability.Logger) *Server {
	return &Server{
		config: cfg,
		deps:   deps,
		logger: logger,
	}
}

// Setup configures the HTTP router with middleware and routes
func (s *Server) Setup() {
	s.router = gin.New()

	// Configure CORS
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "X-Request-ID"}
	corsConfig.AllowOrigins = []string{s.config.Services.BaseURL}

	// Allow localhost in non-production
	if os.Getenv("GO_ENV") != "production" {
		corsConfig.AllowOrigins = append(corsConfig.AllowOrigins, "http://localhost:3000")
	}

	// Apply middleware
	s.router.Use(cors.New(corsConfig))
	s.router.Use(observability.Middleware(s.logger))

	// Register routes
	rootRouter := s.router.Group("/")
	var startCallLimiter gin.HandlerFunc
	if s.deps.StartCallLimiter != nil {
		startCallLimiter = s.deps.StartCallLimiter.Middleware("start-call")
	}
	api := apisetup.New(rootRouter, s.deps.VoiceCallHandler, startCallLimiter)
	api.RegisterRoutes()
}

// Handler exposes the configured router
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start begins listening for HTTP requests
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Server.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Run the server in a goroutine so that it doesn't block
	go func() {
		s.logger.Info(ctx, fmt.Sprintf("Server starting on port %d", s.config.Server.Port))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error(ctx, "server failed to start", err)
			os.Exit(1)
		}
	}()

	return nil
}

// WaitForShutdown blocks until a shutdown signal is received, then gracefully shuts down
func (s *Server) WaitForShutdown(ctx context.Context) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
	case <-ctx.Done():
	}
	return s.Shutdown()
}

// Shutdown stops accepting requests, ends live call sessions and releases
// dependencies
func (s *Server) Shutdown() error {
	ctx := context.Background()
	s.logger.Info(ctx, "Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	// Hijacked media stream connections are not tracked by http.Server,
	// so live sessions are ended explicitly
	if err := s.deps.VoiceCallProcessor.Shutdown(shutdownCtx); err != nil {
		s.logger.Error(ctx, "live call sessions did not finish cleanup", err)
	}

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
	}

	s.deps.Cleanup()

	s.logger.Info(ctx, "Server exited gracefully")
	return nil
}
