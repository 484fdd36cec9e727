package tex

import (
	"time"

	"texforge/internal/model"
)

// Database provides an interface for metadata storage operations.
// Find methods return (nil, nil) when no row matches; mapping that to
// ErrNotFound is the service's job.
type Database interface {
	// Session operations

	// CreateSession stores a new identity session.
	CreateSession(sess *model.Session) error

	// FindSessionByToken returns a session by its token, expired or not.
	// Expiry is the caller's concern.
	FindSessionByToken(token model.Token) (*model.Session, error)

	// TouchSession sets a session's last-accessed timestamp.
	TouchSession(token model.Token, at time.Time) error

	// DeleteSession removes a session.
	DeleteSession(token model.Token) error

	// Document operations

	// CreateDocument inserts a new document and returns it with its ID set.
	CreateDocument(doc *model.Document) (*model.Document, error)

	// FindDocument returns a document by ID, filtered by owner,
	// tombstoned or not. A document owned by someone else is (nil, nil),
	// same as absent.
	FindDocument(id int64, owner model.UserID) (*model.Document, error)

	// ListDocuments returns the owner's non-deleted documents,
	// most recently updated first.
	ListDocuments(owner model.UserID) ([]*model.Document, error)

	// UpdateDocument sets name and description and stamps updated_at.
	UpdateDocument(id int64, name, description string, at time.Time) error

	// SoftDeleteDocument sets the tombstone flag and stamps updated_at.
	// Versions and artifacts are not cascaded.
	SoftDeleteDocument(id int64, at time.Time) error

	// Version operations

	// CreateVersion inserts an immutable version, assigning the next
	// version number for the document atomically (max+1, starting at 1).
	// The returned version has ID and VersionNumber filled in.
	CreateVersion(v *model.Version) (*model.Version, error)

	// ListVersions returns all versions of a document, newest number first.
	ListVersions(documentID int64) ([]*model.Version, error)

	// FindVersionByID returns a version by its ID.
	FindVersionByID(id int64) (*model.Version, error)

	// FindLatestVersion returns the version with the highest number
	// for a document.
	FindLatestVersion(documentID int64) (*model.Version, error)

	// Artifact operations

	// CreateArtifact records a compiled artifact for a version.
	CreateArtifact(a *model.CompiledArtifact) (*model.CompiledArtifact, error)

	// ListArtifacts returns a document's artifact records, newest first.
	ListArtifacts(documentID int64) ([]*model.CompiledArtifact, error)

	// Settings operations

	// FindSettings returns the owner's settings row, if any.
	FindSettings(owner model.UserID) (*model.Settings, error)

	// UpsertSettings inserts or fully replaces the owner's settings row.
	UpsertSettings(s *model.Settings) error

	// Close closes the database connection.
	Close() error
}
