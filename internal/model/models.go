package model

import "time"

// Token is an opaque session identifier handed to clients.
// It is 64 hex characters (32 random bytes) and is unrelated to
// compile retrieval keys, which are UUIDs owned by the compile package.
type Token string

// UserID identifies a principal. The server currently runs with a single
// seeded guest user; see tex.IdentityResolver.
type UserID int64

// Session is a long-lived identity session.
// Validity is always re-checked against ExpiresAt at use time.
type Session struct {
	Token          Token
	OwnerID        UserID
	CreatedAt      time.Time
	LastAccessedAt time.Time
	ExpiresAt      time.Time
}

// Document is a logical, named unit of LaTeX content owned by a user.
// Deletion is a tombstone: the row survives, listings hide it.
type Document struct {
	ID          int64
	OwnerID     UserID
	Name        string
	Kind        string // defaults to "latex"
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Deleted     bool
}

// Version is an immutable snapshot of a document's content.
// VersionNumber starts at 1 and is strictly increasing per document
// with no gaps; versions are never updated or deleted.
type Version struct {
	ID            int64
	DocumentID    int64
	VersionNumber int64
	Content       string
	CreatedAt     time.Time
	CreatedBy     UserID
	Label         string // empty when unlabeled
	IsAutosave    bool
}

// CompiledArtifact links an immutable version to a build output on disk.
// Many artifacts may reference the same version (re-compiles).
type CompiledArtifact struct {
	ID           int64
	DocumentID   int64
	VersionID    int64
	ArtifactPath string
	SizeBytes    int64
	CompiledAt   time.Time
}

// Settings holds per-user editor preferences. One row per owner, upserted.
type Settings struct {
	OwnerID            UserID
	Theme              string
	AutoSave           bool
	AutoSaveIntervalMS int64
	DefaultTemplate    string
	UpdatedAt          time.Time
}

// DefaultSettings returns the settings a user gets before saving any.
func DefaultSettings(owner UserID) Settings {
	return Settings{
		OwnerID:            owner,
		Theme:              "light",
		AutoSave:           true,
		AutoSaveIntervalMS: 30000,
		DefaultTemplate:    "blank",
	}
}
