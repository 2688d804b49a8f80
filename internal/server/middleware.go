package server

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/alkime/journal/internal/apiclient"
	"github.com/alkime/journal/internal/config"
	"github.com/gin-contrib/secure"
	"github.com/gin-gonic/gin"
)

const userKey = "journal.user"

// setupSecurityMiddleware configures and applies security middleware to the router
func setupSecurityMiddleware(router *gin.Engine, cfg *config.Config, logger *slog.Logger) {
	// Configure HSTS for production only
	stsSeconds := int64(0)
	if cfg.IsProduction() {
		stsSeconds = int64(cfg.HSTSMaxAge)
	}

	secureMiddleware := secure.New(secure.Config{
		STSSeconds:            stsSeconds,
		STSIncludeSubdomains:  true,
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "no-referrer",
		ContentSecurityPolicy: config.BuildCSP(cfg.CSPMode),
	})
	router.Use(secureMiddleware)

	logger.Debug("Configured security middleware",
		"hsts_enabled", cfg.IsProduction(),
		"csp_mode", cfg.CSPMode,
	)
}

// requestLogger logs one line per request through slog.
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		level := slog.LevelDebug
		if c.Writer.Status() >= http.StatusInternalServerError {
			level = slog.LevelWarn
		}

		logger.Log(c.Request.Context(), level, "request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

// requireUser resolves the journal owner from the user header, falling back
// to the configured single user.
func (s *Server) requireUser(c *gin.Context) {
	user := strings.TrimSpace(c.GetHeader(apiclient.UserHeader))
	if user == "" {
		user = s.config.JournalUser
	}

	if user == "" {
		abortWithError(c, http.StatusUnauthorized, "missing "+apiclient.UserHeader+" header", "")
		return
	}

	c.Set(userKey, user)
	c.Next()
}

func userFrom(c *gin.Context) string {
	return c.GetString(userKey)
}

func abortWithError(c *gin.Context, status int, message, code string) {
	c.AbortWithStatusJSON(status, apiclient.ErrorBody{Error: message, Code: code})
}
