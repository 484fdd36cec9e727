package web

import (
	"net/http"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"

	"texforge/internal/compile"
	"texforge/internal/model"
	"texforge/internal/tex"
)

// CreateSession issues a fresh guest session token.
func CreateSession(svc *tex.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, err := svc.CreateSession()
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success":   true,
			"sessionId": string(sess.Token),
			"expiresAt": sess.ExpiresAt,
		})
	}
}

// DestroySession invalidates a session token.
func DestroySession(svc *tex.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := svc.DestroySession(model.Token(c.Param("token"))); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

// ListFiles returns the caller's non-deleted documents, most recently
// updated first. The :id segment carries the session token here.
func ListFiles(svc *tex.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		docs, err := svc.ListDocuments(model.Token(c.Param("id")))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "files": toFileListJSON(docs)})
	}
}

// CreateFile registers a new document. The :id segment carries the
// session token here.
func CreateFile(svc *tex.Service) gin.HandlerFunc {
	type request struct {
		FileName    string `json:"fileName"`
		FileType    string `json:"fileType"`
		Description string `json:"description"`
	}
	return func(c *gin.Context) {
		var req request
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		doc, err := svc.CreateDocument(model.Token(c.Param("id")), req.FileName, req.FileType, req.Description)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "fileId": doc.ID})
	}
}

// UpdateFile renames a document and replaces its description.
func UpdateFile(svc *tex.Service) gin.HandlerFunc {
	type request struct {
		SessionID   string `json:"sessionId"`
		FileName    string `json:"fileName"`
		Description string `json:"description"`
	}
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		var req request
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		if err := svc.UpdateDocument(model.Token(req.SessionID), id, req.FileName, req.Description); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

// DeleteFile tombstones a document; its history stays retrievable.
func DeleteFile(svc *tex.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		if err := svc.DeleteDocument(model.Token(c.Param("token")), id); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

// SaveVersion appends an immutable version to a document's history.
func SaveVersion(svc *tex.Service) gin.HandlerFunc {
	type request struct {
		SessionID    string `json:"sessionId"`
		Content      string `json:"content"`
		VersionLabel string `json:"versionLabel"`
		IsAutosave   bool   `json:"isAutosave"`
	}
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		var req request
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		v, err := svc.SaveVersion(model.Token(req.SessionID), id, req.Content, req.VersionLabel, req.IsAutosave)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "version": toVersionJSON(v, false)})
	}
}

// ListVersions returns a document's history without content bodies.
func ListVersions(svc *tex.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		versions, err := svc.ListVersions(model.Token(c.Param("token")), id)
		if err != nil {
			respondError(c, err)
			return
		}

		out := make([]versionJSON, 0, len(versions))
		for _, v := range versions {
			out = append(out, toVersionJSON(v, false))
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "versions": out})
	}
}

// GetVersion returns a single version including its content.
func GetVersion(svc *tex.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		v, err := svc.GetVersion(model.Token(c.Param("token")), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "version": toVersionJSON(v, true)})
	}
}

// GetLatestVersion returns the document's current content: the version
// with the highest number.
func GetLatestVersion(svc *tex.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		v, err := svc.GetLatestVersion(model.Token(c.Param("token")), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "version": toVersionJSON(v, true)})
	}
}

// RecordArtifact links a compiled artifact (by its retrieval key) to a
// saved version of a document.
func RecordArtifact(svc *tex.Service, manager *compile.Manager) gin.HandlerFunc {
	type request struct {
		SessionID  string `json:"sessionId"`
		VersionID  int64  `json:"versionId"`
		CompileKey string `json:"compileKey"`
	}
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		var req request
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		path := manager.ArtifactPath(compile.Key(req.CompileKey))
		info, err := os.Stat(path)
		if err != nil {
			respondError(c, tex.ErrNotFound)
			return
		}

		a, err := svc.RecordArtifact(model.Token(req.SessionID), id, req.VersionID, path, info.Size())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "pdfId": a.ID})
	}
}

// ListArtifacts returns a document's artifact records, newest first.
func ListArtifacts(svc *tex.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		arts, err := svc.ListArtifacts(model.Token(c.Param("token")), id)
		if err != nil {
			respondError(c, err)
			return
		}

		out := make([]artifactJSON, 0, len(arts))
		for _, a := range arts {
			out = append(out, toArtifactJSON(a))
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "pdfs": out})
	}
}

// GetSettings returns the caller's settings, falling back to the stock
// defaults before the first save.
func GetSettings(svc *tex.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		settings, err := svc.GetSettings(model.Token(c.Param("token")))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "settings": toSettingsJSON(settings)})
	}
}

// UpdateSettings upserts the caller's settings row.
func UpdateSettings(svc *tex.Service) gin.HandlerFunc {
	type request struct {
		Theme            string `json:"theme"`
		AutoSave         bool   `json:"auto_save"`
		AutoSaveInterval int64  `json:"auto_save_interval"`
		DefaultTemplate  string `json:"default_template"`
	}
	return func(c *gin.Context) {
		var req request
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		err := svc.UpdateSettings(model.Token(c.Param("token")), model.Settings{
			Theme:              req.Theme,
			AutoSave:           req.AutoSave,
			AutoSaveIntervalMS: req.AutoSaveInterval,
			DefaultTemplate:    req.DefaultTemplate,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

// pathID parses the :id path segment, responding 400 on garbage.
func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid id"})
		return 0, false
	}
	return id, true
}
