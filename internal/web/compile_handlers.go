package web

import (
	"encoding/base64"
	"net/http"

	"github.com/gin-gonic/gin"

	"texforge/internal/compile"
	"texforge/internal/score"
)

// CompileDocument accepts raw LaTeX and returns the compiled PDF as
// base64 plus the retrieval key, or structured diagnostics on failure.
// Compilation is deliberately independent of any saved document.
func CompileDocument(manager *compile.Manager) gin.HandlerFunc {
	type request struct {
		LatexCode string `json:"latexCode"`
	}
	return func(c *gin.Context) {
		var req request
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		result, err := manager.Compile(c.Request.Context(), req.LatexCode)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success":   true,
			"pdf":       base64.StdEncoding.EncodeToString(result.Artifact),
			"sessionId": string(result.Key),
		})
	}
}

// DownloadArtifact streams a previously compiled PDF. The key is the
// capability; there is no session check.
func DownloadArtifact(manager *compile.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		artifact, err := manager.Retrieve(compile.Key(c.Param("key")))
		if err != nil {
			respondError(c, err)
			return
		}
		c.Header("Content-Disposition", `attachment; filename="document.pdf"`)
		c.Data(http.StatusOK, "application/pdf", artifact)
	}
}

// ScoreDocument extracts plain text from the submitted LaTeX and asks
// the AI scorer for structured feedback.
func ScoreDocument(scorer *score.Scorer) gin.HandlerFunc {
	type request struct {
		LatexCode string `json:"latexCode"`
	}
	return func(c *gin.Context) {
		var req request
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		result, err := scorer.Score(c.Request.Context(), score.ExtractPlainText(req.LatexCode))
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "result": result})
	}
}
