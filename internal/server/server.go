package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alkime/journal/internal/config"
	"github.com/alkime/journal/internal/entry"
	"github.com/alkime/journal/internal/journal"
	"github.com/gin-contrib/static"
	"github.com/gin-gonic/gin"
)

// Entries is the entry repository behind /entries.
type Entries interface {
	CreateVoice(ctx context.Context, userID string, req entry.CreateVoiceRequest) (journal.Entry, error)
	Get(ctx context.Context, userID, id string) (journal.Entry, error)
	List(ctx context.Context, userID string, limit int) ([]journal.Entry, error)
	Update(ctx context.Context, userID, id string, patch entry.UpdateRequest) (journal.Entry, error)
	Delete(ctx context.Context, userID, id string) (journal.Entry, error)
}

// Transcriber turns a fetchable audio URL into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioURL string) (string, error)
}

// Corrector grammar-corrects a transcript.
type Corrector interface {
	Correct(ctx context.Context, transcript string) (journal.ProcessingResult, error)
}

// Deps are the backends the routes serve. Transcriber and Corrector are
// optional; their routes answer 503 when unset. MediaDir, when set, is
// served under /media.
type Deps struct {
	Entries     Entries
	Transcriber Transcriber
	Corrector   Corrector
	MediaDir    string
}

// Server represents the HTTP server
type Server struct {
	config *config.Config
	logger *slog.Logger
	router *gin.Engine
	deps   Deps
}

// New creates a new Server instance
func New(cfg *config.Config, deps Deps, logger *slog.Logger) *Server {
	// Set Gin mode based on environment
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))

	// Configure proxy trust for production (Fly.io)
	if cfg.IsProduction() {
		router.TrustedPlatform = gin.PlatformFlyIO
		logger.Debug("Configured trusted platform", "platform", "fly.io")
	}

	server := &Server{
		config: cfg,
		logger: logger,
		router: router,
		deps:   deps,
	}

	setupSecurityMiddleware(router, cfg, logger)
	server.setupRoutes()

	return server
}

// Router exposes the handler for tests and embedding.
func (s *Server) Router() http.Handler {
	return s.router
}

// Run starts the HTTP server
func Run(s *Server) error {
	s.logger.Info("Server listening", "port", s.config.Port)
	return s.router.Run(":" + s.config.Port)
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	entries := s.router.Group("/entries", s.requireUser)
	{
		entries.GET("", s.handleListEntries)
		entries.POST("/voice", s.handleCreateVoice)
		entries.GET("/:id", s.handleGetEntry)
		entries.PATCH("/:id", s.handleUpdateEntry)
		entries.DELETE("/:id", s.handleDeleteEntry)
	}

	s.router.POST("/transcribe", s.handleTranscribe)
	s.router.POST("/transcript/process", s.handleProcessTranscript)

	// Uploaded audio for the local storage backend, fetched back by /transcribe
	if s.deps.MediaDir != "" {
		s.router.Use(static.Serve("/media", static.LocalFile(s.deps.MediaDir, false)))
	}
}

// handleHealth handles the health check endpoint
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "journal",
	})
}
