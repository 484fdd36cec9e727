package web

import (
	"time"

	"texforge/internal/model"
)

// Response shapes kept wire-compatible with the existing editor UI:
// table column names, snake_case throughout.

type fileJSON struct {
	ID          int64     `json:"id"`
	FileName    string    `json:"file_name"`
	FileType    string    `json:"file_type"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toFileJSON(d *model.Document) fileJSON {
	return fileJSON{
		ID:          d.ID,
		FileName:    d.Name,
		FileType:    d.Kind,
		Description: d.Description,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

func toFileListJSON(docs []*model.Document) []fileJSON {
	out := make([]fileJSON, 0, len(docs))
	for _, d := range docs {
		out = append(out, toFileJSON(d))
	}
	return out
}

type versionJSON struct {
	ID            int64     `json:"id"`
	FileID        int64     `json:"file_id"`
	VersionNumber int64     `json:"version_number"`
	Content       string    `json:"content,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	VersionLabel  string    `json:"version_label,omitempty"`
	IsAutosave    bool      `json:"is_autosave"`
}

func toVersionJSON(v *model.Version, withContent bool) versionJSON {
	out := versionJSON{
		ID:            v.ID,
		FileID:        v.DocumentID,
		VersionNumber: v.VersionNumber,
		CreatedAt:     v.CreatedAt,
		VersionLabel:  v.Label,
		IsAutosave:    v.IsAutosave,
	}
	if withContent {
		out.Content = v.Content
	}
	return out
}

type artifactJSON struct {
	ID         int64     `json:"id"`
	FileID     int64     `json:"file_id"`
	VersionID  int64     `json:"version_id"`
	PDFPath    string    `json:"pdf_path"`
	FileSize   int64     `json:"file_size"`
	CompiledAt time.Time `json:"compiled_at"`
}

func toArtifactJSON(a *model.CompiledArtifact) artifactJSON {
	return artifactJSON{
		ID:         a.ID,
		FileID:     a.DocumentID,
		VersionID:  a.VersionID,
		PDFPath:    a.ArtifactPath,
		FileSize:   a.SizeBytes,
		CompiledAt: a.CompiledAt,
	}
}

type settingsJSON struct {
	Theme            string `json:"theme"`
	AutoSave         bool   `json:"auto_save"`
	AutoSaveInterval int64  `json:"auto_save_interval"`
	DefaultTemplate  string `json:"default_template"`
}

func toSettingsJSON(s *model.Settings) settingsJSON {
	return settingsJSON{
		Theme:            s.Theme,
		AutoSave:         s.AutoSave,
		AutoSaveInterval: s.AutoSaveIntervalMS,
		DefaultTemplate:  s.DefaultTemplate,
	}
}
