package web

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"texforge/internal/compile"
	"texforge/internal/score"
	"texforge/internal/tex"
)

// NewRouter wires all API routes. The HTTP layer is a thin consumer of
// the service, compile manager and scorer; it holds no state of its own.
func NewRouter(svc *tex.Service, manager *compile.Manager, scorer *score.Scorer, staticDir string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if staticDir != "" {
		router.Static("/ui", staticDir)
		router.GET("/", func(c *gin.Context) {
			c.Redirect(http.StatusMovedPermanently, "/ui/index.html")
		})
	}

	api := router.Group("/api")
	{
		api.POST("/compile", CompileDocument(manager))
		api.GET("/download/:key", DownloadArtifact(manager))
		api.POST("/score", ScoreDocument(scorer))

		api.POST("/session/create", CreateSession(svc))
		api.DELETE("/session/:token", DestroySession(svc))

		// The router allows only one wildcard name per path position, so
		// :id doubles as the session token on the collection routes.
		api.GET("/files/:id", ListFiles(svc))
		api.POST("/files/:id/create", CreateFile(svc))
		api.PUT("/files/:id", UpdateFile(svc))
		api.POST("/files/:id/save-version", SaveVersion(svc))
		api.GET("/files/:id/versions/:token", ListVersions(svc))
		api.GET("/files/:id/latest/:token", GetLatestVersion(svc))
		api.GET("/versions/:id/:token", GetVersion(svc))
		api.DELETE("/files/:id/:token", DeleteFile(svc))

		api.POST("/pdfs/:id/save", RecordArtifact(svc, manager))
		api.GET("/pdfs/:id/:token", ListArtifacts(svc))

		api.GET("/settings/:token", GetSettings(svc))
		api.POST("/settings/:token/update", UpdateSettings(svc))
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Route not found"})
	})

	return router
}

// requestLogger logs one line per request via slog.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		slog.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
		)
	}
}

// respondError maps the service error taxonomy onto HTTP statuses.
// Compile failures keep their structured body; everything unrecognized
// is reported as a generic internal error without detail.
func respondError(c *gin.Context, err error) {
	var failure *compile.Failure
	switch {
	case errors.As(err, &failure):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   failure.Summary,
			"details": failure.Details,
			"hint":    failure.Hint,
		})
	case errors.Is(err, tex.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, tex.ErrAuth):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid session"})
	case errors.Is(err, tex.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	case errors.Is(err, score.ErrNotConfigured):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Scoring service is not configured"})
	default:
		slog.Error("request failed", "path", c.Request.URL.Path, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
