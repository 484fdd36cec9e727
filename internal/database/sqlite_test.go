package database

import (
	"sync"
	"testing"
	"time"

	"texforge/internal/model"
)

func newTestDB(t *testing.T) *SQLiteDatabase {
	t.Helper()
	db, err := NewSQLiteDatabase(":memory:")
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	if err := db.MigrateUp(); err != nil {
		db.Close()
		t.Fatalf("migrating: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func createTestDocument(t *testing.T, db *SQLiteDatabase, name string) *model.Document {
	t.Helper()
	now := time.Now().UTC()
	doc, err := db.CreateDocument(&model.Document{
		OwnerID:   1,
		Name:      name,
		Kind:      "latex",
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateDocument() error = %v", err)
	}
	return doc
}

func TestSQLiteDatabase_Sessions(t *testing.T) {
	db := newTestDB(t)
	now := time.Now().UTC().Truncate(time.Second)

	t.Run("round trip", func(t *testing.T) {
		sess := &model.Session{
			Token:          "abc123",
			OwnerID:        1,
			CreatedAt:      now,
			LastAccessedAt: now,
			ExpiresAt:      now.Add(24 * time.Hour),
		}
		if err := db.CreateSession(sess); err != nil {
			t.Fatalf("CreateSession() error = %v", err)
		}

		got, err := db.FindSessionByToken("abc123")
		if err != nil {
			t.Fatalf("FindSessionByToken() error = %v", err)
		}
		if got == nil {
			t.Fatal("session not found")
		}
		if got.OwnerID != 1 {
			t.Errorf("OwnerID = %d, want 1", got.OwnerID)
		}
		if !got.ExpiresAt.Equal(sess.ExpiresAt) {
			t.Errorf("ExpiresAt = %v, want %v", got.ExpiresAt, sess.ExpiresAt)
		}
	})

	t.Run("unknown token is nil, nil", func(t *testing.T) {
		got, err := db.FindSessionByToken("missing")
		if err != nil {
			t.Fatalf("FindSessionByToken() error = %v", err)
		}
		if got != nil {
			t.Fatalf("session = %+v, want nil", got)
		}
	})

	t.Run("delete removes the row", func(t *testing.T) {
		if err := db.DeleteSession("abc123"); err != nil {
			t.Fatalf("DeleteSession() error = %v", err)
		}
		got, err := db.FindSessionByToken("abc123")
		if err != nil {
			t.Fatalf("FindSessionByToken() error = %v", err)
		}
		if got != nil {
			t.Fatal("session still present after delete")
		}
	})
}

func TestSQLiteDatabase_DocumentTombstone(t *testing.T) {
	db := newTestDB(t)
	doc := createTestDocument(t, db, "doomed")

	deletedAt := time.Now().UTC().Add(time.Minute).Truncate(time.Second)
	if err := db.SoftDeleteDocument(doc.ID, deletedAt); err != nil {
		t.Fatalf("SoftDeleteDocument() error = %v", err)
	}

	t.Run("hidden from listing", func(t *testing.T) {
		docs, err := db.ListDocuments(1)
		if err != nil {
			t.Fatalf("ListDocuments() error = %v", err)
		}
		if len(docs) != 0 {
			t.Fatalf("len(docs) = %d, want 0", len(docs))
		}
	})

	t.Run("still directly fetchable", func(t *testing.T) {
		got, err := db.FindDocument(doc.ID, 1)
		if err != nil {
			t.Fatalf("FindDocument() error = %v", err)
		}
		if got == nil {
			t.Fatal("tombstoned document not fetchable by id")
		}
		if !got.Deleted {
			t.Error("Deleted = false, want true")
		}
		if !got.UpdatedAt.Equal(deletedAt) {
			t.Errorf("UpdatedAt = %v, want %v", got.UpdatedAt, deletedAt)
		}
	})
}

// Mutations take their timestamp from the caller so that all writes
// share a single time source.
func TestSQLiteDatabase_CallerTimestamps(t *testing.T) {
	db := newTestDB(t)
	now := time.Now().UTC().Truncate(time.Second)

	t.Run("touch session", func(t *testing.T) {
		sess := &model.Session{
			Token:          "touched",
			OwnerID:        1,
			CreatedAt:      now,
			LastAccessedAt: now,
			ExpiresAt:      now.Add(24 * time.Hour),
		}
		if err := db.CreateSession(sess); err != nil {
			t.Fatalf("CreateSession() error = %v", err)
		}

		later := now.Add(10 * time.Minute)
		if err := db.TouchSession("touched", later); err != nil {
			t.Fatalf("TouchSession() error = %v", err)
		}

		got, err := db.FindSessionByToken("touched")
		if err != nil {
			t.Fatalf("FindSessionByToken() error = %v", err)
		}
		if !got.LastAccessedAt.Equal(later) {
			t.Errorf("LastAccessedAt = %v, want %v", got.LastAccessedAt, later)
		}
	})

	t.Run("update document", func(t *testing.T) {
		doc := createTestDocument(t, db, "draft")

		later := now.Add(time.Hour)
		if err := db.UpdateDocument(doc.ID, "final", "done", later); err != nil {
			t.Fatalf("UpdateDocument() error = %v", err)
		}

		got, err := db.FindDocument(doc.ID, 1)
		if err != nil {
			t.Fatalf("FindDocument() error = %v", err)
		}
		if got.Name != "final" {
			t.Errorf("Name = %q, want %q", got.Name, "final")
		}
		if !got.UpdatedAt.Equal(later) {
			t.Errorf("UpdatedAt = %v, want %v", got.UpdatedAt, later)
		}
	})
}

func TestSQLiteDatabase_FindDocument_OwnerFiltered(t *testing.T) {
	db := newTestDB(t)
	doc := createTestDocument(t, db, "mine")

	got, err := db.FindDocument(doc.ID, 42)
	if err != nil {
		t.Fatalf("FindDocument() error = %v", err)
	}
	if got != nil {
		t.Fatalf("document visible to wrong owner: %+v", got)
	}
}

func TestSQLiteDatabase_CreateVersion(t *testing.T) {
	t.Run("numbers are contiguous per document", func(t *testing.T) {
		db := newTestDB(t)
		a := createTestDocument(t, db, "a")
		b := createTestDocument(t, db, "b")

		for i := 1; i <= 3; i++ {
			v, err := db.CreateVersion(&model.Version{
				DocumentID: a.ID, Content: "x", CreatedAt: time.Now(), CreatedBy: 1,
			})
			if err != nil {
				t.Fatalf("CreateVersion() error = %v", err)
			}
			if v.VersionNumber != int64(i) {
				t.Errorf("VersionNumber = %d, want %d", v.VersionNumber, i)
			}
		}

		// Independent counter per document.
		v, err := db.CreateVersion(&model.Version{
			DocumentID: b.ID, Content: "y", CreatedAt: time.Now(), CreatedBy: 1,
		})
		if err != nil {
			t.Fatalf("CreateVersion() error = %v", err)
		}
		if v.VersionNumber != 1 {
			t.Errorf("VersionNumber = %d, want 1", v.VersionNumber)
		}
	})

	t.Run("concurrent saves never duplicate numbers", func(t *testing.T) {
		db := newTestDB(t)
		doc := createTestDocument(t, db, "contended")

		const writers = 10
		var wg sync.WaitGroup
		errs := make(chan error, writers)
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := db.CreateVersion(&model.Version{
					DocumentID: doc.ID, Content: "x", CreatedAt: time.Now(), CreatedBy: 1,
				})
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			if err != nil {
				t.Fatalf("CreateVersion() error = %v", err)
			}
		}

		versions, err := db.ListVersions(doc.ID)
		if err != nil {
			t.Fatalf("ListVersions() error = %v", err)
		}
		if len(versions) != writers {
			t.Fatalf("len(versions) = %d, want %d", len(versions), writers)
		}
		seen := make(map[int64]bool)
		for _, v := range versions {
			if seen[v.VersionNumber] {
				t.Fatalf("duplicate version number %d", v.VersionNumber)
			}
			seen[v.VersionNumber] = true
		}
		for i := int64(1); i <= writers; i++ {
			if !seen[i] {
				t.Fatalf("missing version number %d", i)
			}
		}
	})
}

func TestSQLiteDatabase_FindLatestVersion(t *testing.T) {
	db := newTestDB(t)
	doc := createTestDocument(t, db, "doc")

	t.Run("empty history is nil, nil", func(t *testing.T) {
		got, err := db.FindLatestVersion(doc.ID)
		if err != nil {
			t.Fatalf("FindLatestVersion() error = %v", err)
		}
		if got != nil {
			t.Fatalf("version = %+v, want nil", got)
		}
	})

	t.Run("returns highest number", func(t *testing.T) {
		for _, content := range []string{"one", "two", "three"} {
			if _, err := db.CreateVersion(&model.Version{
				DocumentID: doc.ID, Content: content, CreatedAt: time.Now(), CreatedBy: 1,
			}); err != nil {
				t.Fatalf("CreateVersion() error = %v", err)
			}
		}

		got, err := db.FindLatestVersion(doc.ID)
		if err != nil {
			t.Fatalf("FindLatestVersion() error = %v", err)
		}
		if got == nil {
			t.Fatal("latest version not found")
		}
		if got.VersionNumber != 3 {
			t.Errorf("VersionNumber = %d, want 3", got.VersionNumber)
		}
		if got.Content != "three" {
			t.Errorf("Content = %q, want %q", got.Content, "three")
		}
	})
}

func TestSQLiteDatabase_UpsertSettings(t *testing.T) {
	db := newTestDB(t)
	now := time.Now().UTC()

	t.Run("insert then read", func(t *testing.T) {
		err := db.UpsertSettings(&model.Settings{
			OwnerID: 1, Theme: "dark", AutoSave: true,
			AutoSaveIntervalMS: 30000, DefaultTemplate: "blank", UpdatedAt: now,
		})
		if err != nil {
			t.Fatalf("UpsertSettings() error = %v", err)
		}

		got, err := db.FindSettings(1)
		if err != nil {
			t.Fatalf("FindSettings() error = %v", err)
		}
		if got == nil {
			t.Fatal("settings not found")
		}
		if got.Theme != "dark" {
			t.Errorf("Theme = %q, want %q", got.Theme, "dark")
		}
	})

	t.Run("second upsert replaces, not duplicates", func(t *testing.T) {
		err := db.UpsertSettings(&model.Settings{
			OwnerID: 1, Theme: "light", AutoSave: false,
			AutoSaveIntervalMS: 60000, DefaultTemplate: "article", UpdatedAt: now,
		})
		if err != nil {
			t.Fatalf("UpsertSettings() error = %v", err)
		}

		got, err := db.FindSettings(1)
		if err != nil {
			t.Fatalf("FindSettings() error = %v", err)
		}
		if got.Theme != "light" {
			t.Errorf("Theme = %q, want %q", got.Theme, "light")
		}
		if got.AutoSaveIntervalMS != 60000 {
			t.Errorf("AutoSaveIntervalMS = %d, want 60000", got.AutoSaveIntervalMS)
		}
	})

	t.Run("absent owner is nil, nil", func(t *testing.T) {
		got, err := db.FindSettings(99)
		if err != nil {
			t.Fatalf("FindSettings() error = %v", err)
		}
		if got != nil {
			t.Fatalf("settings = %+v, want nil", got)
		}
	})
}

func TestSQLiteDatabase_Artifacts(t *testing.T) {
	db := newTestDB(t)
	doc := createTestDocument(t, db, "doc")
	v, err := db.CreateVersion(&model.Version{
		DocumentID: doc.ID, Content: "x", CreatedAt: time.Now(), CreatedBy: 1,
	})
	if err != nil {
		t.Fatalf("CreateVersion() error = %v", err)
	}

	older := time.Now().UTC().Add(-time.Hour)
	newer := time.Now().UTC()
	for _, ts := range []time.Time{older, newer} {
		if _, err := db.CreateArtifact(&model.CompiledArtifact{
			DocumentID: doc.ID, VersionID: v.ID,
			ArtifactPath: "/work/document.pdf", SizeBytes: 100, CompiledAt: ts,
		}); err != nil {
			t.Fatalf("CreateArtifact() error = %v", err)
		}
	}

	arts, err := db.ListArtifacts(doc.ID)
	if err != nil {
		t.Fatalf("ListArtifacts() error = %v", err)
	}
	if len(arts) != 2 {
		t.Fatalf("len(arts) = %d, want 2", len(arts))
	}
	if !arts[0].CompiledAt.After(arts[1].CompiledAt) {
		t.Errorf("artifacts not newest first: %v then %v", arts[0].CompiledAt, arts[1].CompiledAt)
	}
}

func TestSQLiteDatabase_MigrateUpIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	if err := db.MigrateUp(); err != nil {
		t.Fatalf("second MigrateUp() error = %v", err)
	}
	if err := db.CheckMigrations(); err != nil {
		t.Fatalf("CheckMigrations() error = %v", err)
	}
}
