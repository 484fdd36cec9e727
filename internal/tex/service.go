package tex

import (
	"fmt"
	"strings"
	"time"

	"texforge/internal/model"
)

// DefaultKind is the document kind assigned when the caller omits one.
const DefaultKind = "latex"

// Service is the orchestration layer over the metadata store. Every
// document, version, artifact and settings operation resolves the
// caller's session first and enforces ownership before touching rows.
type Service struct {
	db         Database
	tokens     TokenSource
	identity   IdentityResolver
	logger     Logger
	clock      Clock
	sessionTTL time.Duration
}

// NewService creates a Service with the provided dependencies.
func NewService(db Database, tokens TokenSource, identity IdentityResolver, logger Logger, clock Clock, sessionTTL time.Duration) *Service {
	return &Service{
		db:         db,
		tokens:     tokens,
		identity:   identity,
		logger:     logger,
		clock:      clock,
		sessionTTL: sessionTTL,
	}
}

// Session lifecycle

// CreateSession issues a new session for the resolved identity.
func (s *Service) CreateSession() (*model.Session, error) {
	token, err := s.tokens.NewToken()
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	sess := &model.Session{
		Token:          token,
		OwnerID:        s.identity.Resolve(),
		CreatedAt:      now,
		LastAccessedAt: now,
		ExpiresAt:      now.Add(s.sessionTTL),
	}
	if err := s.db.CreateSession(sess); err != nil {
		return nil, fmt.Errorf("storing session: %w", err)
	}

	s.logger.Info("session created", "owner", sess.OwnerID)
	return sess, nil
}

// ValidateSession returns the session for the token, or ErrAuth if the
// token is unknown or expired. Expiry is checked against the clock on
// every call and is never cached; validation does not extend it.
func (s *Service) ValidateSession(token model.Token) (*model.Session, error) {
	if token == "" {
		return nil, ErrAuth
	}
	sess, err := s.db.FindSessionByToken(token)
	if err != nil {
		return nil, fmt.Errorf("looking up session: %w", err)
	}
	if sess == nil {
		return nil, ErrAuth
	}
	if !s.clock.Now().Before(sess.ExpiresAt) {
		return nil, ErrAuth
	}
	return sess, nil
}

// DestroySession removes the session. Destroying an unknown token is a no-op.
func (s *Service) DestroySession(token model.Token) error {
	if err := s.db.DeleteSession(token); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// resolveSession validates the token and opportunistically updates the
// session's last-accessed time. A failed touch never fails the caller.
func (s *Service) resolveSession(token model.Token) (*model.Session, error) {
	sess, err := s.ValidateSession(token)
	if err != nil {
		return nil, err
	}
	if err := s.db.TouchSession(token, s.clock.Now()); err != nil {
		s.logger.Debug("session touch failed", "error", err)
	}
	return sess, nil
}

// Document registry

// CreateDocument registers a new document for the session's owner.
// kind defaults to DefaultKind when empty.
func (s *Service) CreateDocument(token model.Token, name, kind, description string) (*model.Document, error) {
	sess, err := s.resolveSession(token)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: document name is required", ErrValidation)
	}
	if kind == "" {
		kind = DefaultKind
	}

	now := s.clock.Now()
	doc, err := s.db.CreateDocument(&model.Document{
		OwnerID:     sess.OwnerID,
		Name:        name,
		Kind:        kind,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return nil, fmt.Errorf("creating document: %w", err)
	}

	s.logger.Info("document created", "id", doc.ID, "name", doc.Name)
	return doc, nil
}

// ListDocuments returns the owner's non-deleted documents, most
// recently updated first.
func (s *Service) ListDocuments(token model.Token) ([]*model.Document, error) {
	sess, err := s.resolveSession(token)
	if err != nil {
		return nil, err
	}
	docs, err := s.db.ListDocuments(sess.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	return docs, nil
}

// GetDocument returns a document owned by the caller. Documents owned
// by anyone else surface as ErrNotFound.
func (s *Service) GetDocument(token model.Token, id int64) (*model.Document, error) {
	sess, err := s.resolveSession(token)
	if err != nil {
		return nil, err
	}
	return s.ownedDocument(id, sess.OwnerID)
}

// UpdateDocument renames a document and replaces its description.
func (s *Service) UpdateDocument(token model.Token, id int64, name, description string) error {
	sess, err := s.resolveSession(token)
	if err != nil {
		return err
	}
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: document name is required", ErrValidation)
	}
	if _, err := s.ownedDocument(id, sess.OwnerID); err != nil {
		return err
	}
	if err := s.db.UpdateDocument(id, name, description, s.clock.Now()); err != nil {
		return fmt.Errorf("updating document: %w", err)
	}
	return nil
}

// DeleteDocument tombstones a document. Its versions and artifacts
// remain retrievable by ID.
func (s *Service) DeleteDocument(token model.Token, id int64) error {
	sess, err := s.resolveSession(token)
	if err != nil {
		return err
	}
	if _, err := s.ownedDocument(id, sess.OwnerID); err != nil {
		return err
	}
	if err := s.db.SoftDeleteDocument(id, s.clock.Now()); err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	s.logger.Info("document deleted", "id", id)
	return nil
}

// Version store

// SaveVersion appends an immutable version to a document's history.
// The store assigns the next version number atomically.
func (s *Service) SaveVersion(token model.Token, documentID int64, content, label string, isAutosave bool) (*model.Version, error) {
	sess, err := s.resolveSession(token)
	if err != nil {
		return nil, err
	}
	if content == "" {
		return nil, fmt.Errorf("%w: content is required", ErrValidation)
	}
	if _, err := s.ownedDocument(documentID, sess.OwnerID); err != nil {
		return nil, err
	}

	v, err := s.db.CreateVersion(&model.Version{
		DocumentID: documentID,
		Content:    content,
		CreatedAt:  s.clock.Now(),
		CreatedBy:  sess.OwnerID,
		Label:      label,
		IsAutosave: isAutosave,
	})
	if err != nil {
		return nil, fmt.Errorf("creating version: %w", err)
	}

	s.logger.Debug("version saved", "document", documentID, "number", v.VersionNumber, "autosave", v.IsAutosave)
	return v, nil
}

// ListVersions returns a document's history, newest version first.
func (s *Service) ListVersions(token model.Token, documentID int64) ([]*model.Version, error) {
	sess, err := s.resolveSession(token)
	if err != nil {
		return nil, err
	}
	if _, err := s.ownedDocument(documentID, sess.OwnerID); err != nil {
		return nil, err
	}
	versions, err := s.db.ListVersions(documentID)
	if err != nil {
		return nil, fmt.Errorf("listing versions: %w", err)
	}
	return versions, nil
}

// GetVersion returns a single version by ID. Versions survive their
// document's tombstone.
func (s *Service) GetVersion(token model.Token, versionID int64) (*model.Version, error) {
	if _, err := s.resolveSession(token); err != nil {
		return nil, err
	}
	v, err := s.db.FindVersionByID(versionID)
	if err != nil {
		return nil, fmt.Errorf("finding version: %w", err)
	}
	if v == nil {
		return nil, ErrNotFound
	}
	return v, nil
}

// GetLatestVersion returns the version with the highest number, which
// defines the document's current content.
func (s *Service) GetLatestVersion(token model.Token, documentID int64) (*model.Version, error) {
	sess, err := s.resolveSession(token)
	if err != nil {
		return nil, err
	}
	if _, err := s.ownedDocument(documentID, sess.OwnerID); err != nil {
		return nil, err
	}
	v, err := s.db.FindLatestVersion(documentID)
	if err != nil {
		return nil, fmt.Errorf("finding latest version: %w", err)
	}
	if v == nil {
		return nil, ErrNotFound
	}
	return v, nil
}

// Artifact records

// RecordArtifact links a build output on disk to a specific version.
func (s *Service) RecordArtifact(token model.Token, documentID, versionID int64, artifactPath string, sizeBytes int64) (*model.CompiledArtifact, error) {
	sess, err := s.resolveSession(token)
	if err != nil {
		return nil, err
	}
	if versionID == 0 || artifactPath == "" {
		return nil, fmt.Errorf("%w: version and artifact path are required", ErrValidation)
	}
	if _, err := s.ownedDocument(documentID, sess.OwnerID); err != nil {
		return nil, err
	}

	a, err := s.db.CreateArtifact(&model.CompiledArtifact{
		DocumentID:   documentID,
		VersionID:    versionID,
		ArtifactPath: artifactPath,
		SizeBytes:    sizeBytes,
		CompiledAt:   s.clock.Now(),
	})
	if err != nil {
		return nil, fmt.Errorf("recording artifact: %w", err)
	}
	return a, nil
}

// ListArtifacts returns a document's artifact records, newest first.
func (s *Service) ListArtifacts(token model.Token, documentID int64) ([]*model.CompiledArtifact, error) {
	sess, err := s.resolveSession(token)
	if err != nil {
		return nil, err
	}
	if _, err := s.ownedDocument(documentID, sess.OwnerID); err != nil {
		return nil, err
	}
	arts, err := s.db.ListArtifacts(documentID)
	if err != nil {
		return nil, fmt.Errorf("listing artifacts: %w", err)
	}
	return arts, nil
}

// Settings

// GetSettings returns the owner's settings. Before the first save the
// owner gets the defaults.
func (s *Service) GetSettings(token model.Token) (*model.Settings, error) {
	sess, err := s.resolveSession(token)
	if err != nil {
		return nil, err
	}
	settings, err := s.db.FindSettings(sess.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}
	if settings == nil {
		defaults := model.DefaultSettings(sess.OwnerID)
		return &defaults, nil
	}
	return settings, nil
}

// UpdateSettings inserts or fully replaces the owner's settings row.
func (s *Service) UpdateSettings(token model.Token, settings model.Settings) error {
	sess, err := s.resolveSession(token)
	if err != nil {
		return err
	}
	settings.OwnerID = sess.OwnerID
	settings.UpdatedAt = s.clock.Now()
	if err := s.db.UpsertSettings(&settings); err != nil {
		return fmt.Errorf("saving settings: %w", err)
	}
	return nil
}

// ownedDocument loads a document filtered by owner, folding both
// absence and foreign ownership into ErrNotFound. Tombstoned documents
// still resolve; only listings hide them.
func (s *Service) ownedDocument(id int64, owner model.UserID) (*model.Document, error) {
	doc, err := s.db.FindDocument(id, owner)
	if err != nil {
		return nil, fmt.Errorf("finding document: %w", err)
	}
	if doc == nil {
		return nil, ErrNotFound
	}
	return doc, nil
}
