package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"texforge/internal/database/migrations"
	"texforge/internal/model"
	"texforge/internal/tex"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteDatabase implements the tex.Database interface using SQLite.
type SQLiteDatabase struct {
	db   *sql.DB
	path string
}

// NewSQLiteDatabase creates a new SQLite database connection.
// path can be a file path or ":memory:" for in-memory database.
func NewSQLiteDatabase(path string) (*SQLiteDatabase, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	return &SQLiteDatabase{
		db:   db,
		path: path,
	}, nil
}

// NewSQLiteDatabaseFromDB wraps an existing database connection.
// The caller is responsible for ensuring the connection is properly configured.
func NewSQLiteDatabaseFromDB(db *sql.DB) *SQLiteDatabase {
	return &SQLiteDatabase{
		db:   db,
		path: "",
	}
}

// OpenConnection opens and configures a SQLite database connection with
// appropriate PRAGMAs. Exported for tools and tests that need a properly
// configured connection. path can be a file path or ":memory:".
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite supports one writer; a single pooled connection also keeps
	// :memory: databases from silently splitting into separate stores.
	db.SetMaxOpenConns(1)

	// Enable foreign key constraints (SQLite default is OFF for backward compatibility)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return db, nil
}

// Session operations

func (s *SQLiteDatabase) CreateSession(sess *model.Session) error {
	_, err := s.db.ExecContext(context.Background(),
		`INSERT INTO sessions (token, user_id, created_at, last_accessed, expires_at)
		 VALUES (?, ?, ?, ?, ?)`,
		string(sess.Token), int64(sess.OwnerID), sess.CreatedAt, sess.LastAccessedAt, sess.ExpiresAt)
	if err != nil {
		return fmt.Errorf("creating session: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) FindSessionByToken(token model.Token) (*model.Session, error) {
	var sess model.Session
	err := s.db.QueryRowContext(context.Background(),
		`SELECT token, user_id, created_at, last_accessed, expires_at
		 FROM sessions WHERE token = ?`, string(token)).
		Scan(&sess.Token, &sess.OwnerID, &sess.CreatedAt, &sess.LastAccessedAt, &sess.ExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding session: %w", err)
	}
	return &sess, nil
}

func (s *SQLiteDatabase) TouchSession(token model.Token, at time.Time) error {
	_, err := s.db.ExecContext(context.Background(),
		`UPDATE sessions SET last_accessed = ? WHERE token = ?`, at, string(token))
	if err != nil {
		return fmt.Errorf("touching session: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) DeleteSession(token model.Token) error {
	_, err := s.db.ExecContext(context.Background(),
		`DELETE FROM sessions WHERE token = ?`, string(token))
	if err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// Document operations

func (s *SQLiteDatabase) CreateDocument(doc *model.Document) (*model.Document, error) {
	res, err := s.db.ExecContext(context.Background(),
		`INSERT INTO documents (user_id, name, kind, description, created_at, updated_at, is_deleted)
		 VALUES (?, ?, ?, ?, ?, ?, 0)`,
		int64(doc.OwnerID), doc.Name, doc.Kind, doc.Description, doc.CreatedAt, doc.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("creating document: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading document id: %w", err)
	}
	doc.ID = id
	return doc, nil
}

func (s *SQLiteDatabase) FindDocument(id int64, owner model.UserID) (*model.Document, error) {
	var doc model.Document
	err := s.db.QueryRowContext(context.Background(),
		`SELECT id, user_id, name, kind, description, created_at, updated_at, is_deleted
		 FROM documents WHERE id = ? AND user_id = ?`, id, int64(owner)).
		Scan(&doc.ID, &doc.OwnerID, &doc.Name, &doc.Kind, &doc.Description,
			&doc.CreatedAt, &doc.UpdatedAt, &doc.Deleted)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found (or owned by someone else)
		}
		return nil, fmt.Errorf("finding document: %w", err)
	}
	return &doc, nil
}

func (s *SQLiteDatabase) ListDocuments(owner model.UserID) ([]*model.Document, error) {
	rows, err := s.db.QueryContext(context.Background(),
		`SELECT id, user_id, name, kind, description, created_at, updated_at, is_deleted
		 FROM documents WHERE user_id = ? AND is_deleted = 0
		 ORDER BY updated_at DESC`, int64(owner))
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var docs []*model.Document
	for rows.Next() {
		var doc model.Document
		if err := rows.Scan(&doc.ID, &doc.OwnerID, &doc.Name, &doc.Kind, &doc.Description,
			&doc.CreatedAt, &doc.UpdatedAt, &doc.Deleted); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		docs = append(docs, &doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	return docs, nil
}

func (s *SQLiteDatabase) UpdateDocument(id int64, name, description string, at time.Time) error {
	_, err := s.db.ExecContext(context.Background(),
		`UPDATE documents SET name = ?, description = ?, updated_at = ?
		 WHERE id = ?`, name, description, at, id)
	if err != nil {
		return fmt.Errorf("updating document: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) SoftDeleteDocument(id int64, at time.Time) error {
	_, err := s.db.ExecContext(context.Background(),
		`UPDATE documents SET is_deleted = 1, updated_at = ?
		 WHERE id = ?`, at, id)
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	return nil
}

// Version operations

// CreateVersion assigns the next version number and inserts the row in a
// single transaction. The read-max-then-insert sequence must not
// interleave with another writer for the same document; the transaction
// (plus SQLite's single-writer model) guarantees that.
func (s *SQLiteDatabase) CreateVersion(v *model.Version) (*model.Version, error) {
	ctx := context.Background()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	var maxNumber int64
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version_number), 0) FROM versions WHERE document_id = ?`,
		v.DocumentID).Scan(&maxNumber)
	if err != nil {
		return nil, fmt.Errorf("reading current version number: %w", err)
	}

	v.VersionNumber = maxNumber + 1
	res, err := tx.ExecContext(ctx,
		`INSERT INTO versions (document_id, version_number, content, created_at, created_by, label, is_autosave)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		v.DocumentID, v.VersionNumber, v.Content, v.CreatedAt, int64(v.CreatedBy), v.Label, v.IsAutosave)
	if err != nil {
		return nil, fmt.Errorf("inserting version: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading version id: %w", err)
	}
	v.ID = id

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}
	return v, nil
}

func (s *SQLiteDatabase) ListVersions(documentID int64) ([]*model.Version, error) {
	rows, err := s.db.QueryContext(context.Background(),
		`SELECT id, document_id, version_number, content, created_at, created_by, label, is_autosave
		 FROM versions WHERE document_id = ?
		 ORDER BY version_number DESC`, documentID)
	if err != nil {
		return nil, fmt.Errorf("listing versions: %w", err)
	}
	defer rows.Close()

	var versions []*model.Version
	for rows.Next() {
		var v model.Version
		if err := rows.Scan(&v.ID, &v.DocumentID, &v.VersionNumber, &v.Content,
			&v.CreatedAt, &v.CreatedBy, &v.Label, &v.IsAutosave); err != nil {
			return nil, fmt.Errorf("scanning version: %w", err)
		}
		versions = append(versions, &v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing versions: %w", err)
	}
	return versions, nil
}

func (s *SQLiteDatabase) FindVersionByID(id int64) (*model.Version, error) {
	return s.scanVersion(
		`SELECT id, document_id, version_number, content, created_at, created_by, label, is_autosave
		 FROM versions WHERE id = ?`, id)
}

func (s *SQLiteDatabase) FindLatestVersion(documentID int64) (*model.Version, error) {
	return s.scanVersion(
		`SELECT id, document_id, version_number, content, created_at, created_by, label, is_autosave
		 FROM versions WHERE document_id = ?
		 ORDER BY version_number DESC LIMIT 1`, documentID)
}

func (s *SQLiteDatabase) scanVersion(query string, arg any) (*model.Version, error) {
	var v model.Version
	err := s.db.QueryRowContext(context.Background(), query, arg).
		Scan(&v.ID, &v.DocumentID, &v.VersionNumber, &v.Content,
			&v.CreatedAt, &v.CreatedBy, &v.Label, &v.IsAutosave)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding version: %w", err)
	}
	return &v, nil
}

// Artifact operations

func (s *SQLiteDatabase) CreateArtifact(a *model.CompiledArtifact) (*model.CompiledArtifact, error) {
	res, err := s.db.ExecContext(context.Background(),
		`INSERT INTO compiled_artifacts (document_id, version_id, artifact_path, size_bytes, compiled_at)
		 VALUES (?, ?, ?, ?, ?)`,
		a.DocumentID, a.VersionID, a.ArtifactPath, a.SizeBytes, a.CompiledAt)
	if err != nil {
		return nil, fmt.Errorf("recording artifact: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading artifact id: %w", err)
	}
	a.ID = id
	return a, nil
}

func (s *SQLiteDatabase) ListArtifacts(documentID int64) ([]*model.CompiledArtifact, error) {
	rows, err := s.db.QueryContext(context.Background(),
		`SELECT id, document_id, version_id, artifact_path, size_bytes, compiled_at
		 FROM compiled_artifacts WHERE document_id = ?
		 ORDER BY compiled_at DESC`, documentID)
	if err != nil {
		return nil, fmt.Errorf("listing artifacts: %w", err)
	}
	defer rows.Close()

	var arts []*model.CompiledArtifact
	for rows.Next() {
		var a model.CompiledArtifact
		if err := rows.Scan(&a.ID, &a.DocumentID, &a.VersionID, &a.ArtifactPath,
			&a.SizeBytes, &a.CompiledAt); err != nil {
			return nil, fmt.Errorf("scanning artifact: %w", err)
		}
		arts = append(arts, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing artifacts: %w", err)
	}
	return arts, nil
}

// Settings operations

func (s *SQLiteDatabase) FindSettings(owner model.UserID) (*model.Settings, error) {
	var st model.Settings
	err := s.db.QueryRowContext(context.Background(),
		`SELECT user_id, theme, auto_save, auto_save_interval, default_template, updated_at
		 FROM settings WHERE user_id = ?`, int64(owner)).
		Scan(&st.OwnerID, &st.Theme, &st.AutoSave, &st.AutoSaveIntervalMS,
			&st.DefaultTemplate, &st.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding settings: %w", err)
	}
	return &st, nil
}

func (s *SQLiteDatabase) UpsertSettings(st *model.Settings) error {
	_, err := s.db.ExecContext(context.Background(),
		`INSERT INTO settings (user_id, theme, auto_save, auto_save_interval, default_template, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
		   theme = excluded.theme,
		   auto_save = excluded.auto_save,
		   auto_save_interval = excluded.auto_save_interval,
		   default_template = excluded.default_template,
		   updated_at = excluded.updated_at`,
		int64(st.OwnerID), st.Theme, st.AutoSave, st.AutoSaveIntervalMS, st.DefaultTemplate, st.UpdatedAt)
	if err != nil {
		return fmt.Errorf("saving settings: %w", err)
	}
	return nil
}

// Path returns the database file path (or ":memory:" for in-memory databases).
func (s *SQLiteDatabase) Path() string {
	return s.path
}

// MigrateUp brings the schema to the latest version. Idempotent.
func (s *SQLiteDatabase) MigrateUp() error {
	return migrations.MigrateUp(s.db)
}

// CheckMigrations verifies the database schema is up-to-date.
func (s *SQLiteDatabase) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db)
}

// Close closes the database connection.
func (s *SQLiteDatabase) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Compile-time check that SQLiteDatabase implements tex.Database interface
var _ tex.Database = (*SQLiteDatabase)(nil)
