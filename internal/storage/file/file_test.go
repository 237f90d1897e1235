package file

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/parcel-notes/parcel/internal/model"
	"github.com/parcel-notes/parcel/internal/storage"
)

func testBackend(t *testing.T) *Backend {
	t.Helper()
	return New(t.TempDir(), zerolog.Nop())
}

func TestLoadFirstRun(t *testing.T) {
	b := testBackend(t)

	_, err := b.Load(context.Background())
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on a fresh directory, got %v", err)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	b := testBackend(t)
	folderID := "f1"
	doc := &model.Document{
		Version: model.Version,
		Notes: []model.Note{{
			ID:        "n1",
			Title:     "Groceries",
			Body:      "milk",
			FolderID:  &folderID,
			Pinned:    true,
			Color:     model.ColorMint,
			CreatedAt: 100,
			UpdatedAt: 200,
		}},
		Folders: []model.Folder{{ID: "f1", Name: "Notes", CreatedAt: 50, UpdatedAt: 50}},
	}

	if err := b.Save(context.Background(), doc); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := b.Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(got.Notes) != 1 || got.Notes[0].Title != "Groceries" {
		t.Errorf("loaded notes = %+v", got.Notes)
	}
	if got.Notes[0].FolderID == nil || *got.Notes[0].FolderID != "f1" {
		t.Error("folderId did not survive the round trip")
	}
	if len(got.Folders) != 1 || got.Folders[0].Name != "Notes" {
		t.Errorf("loaded folders = %+v", got.Folders)
	}
}

func TestLoadNullFolderID(t *testing.T) {
	b := testBackend(t)
	doc := &model.Document{
		Version: model.Version,
		Notes:   []model.Note{{ID: "n1", Color: model.ColorPaper}},
		Folders: []model.Folder{{ID: "f1", Name: "Notes"}},
	}
	if err := b.Save(context.Background(), doc); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// The envelope writes folderId explicitly as null, not as a missing key.
	raw, err := os.ReadFile(b.path())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(raw), `"folderId": null`) {
		t.Errorf("expected an explicit null folderId, got:\n%s", raw)
	}

	got, err := b.Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got.Notes[0].FolderID != nil {
		t.Error("null folderId should load as nil")
	}
}

func TestLoadCorruptJSON(t *testing.T) {
	b := testBackend(t)
	if err := os.MkdirAll(filepath.Dir(b.path()), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(b.path(), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := b.Load(context.Background())
	if err == nil {
		t.Fatal("expected an error for corrupt JSON")
	}
	msg := strings.ToLower(err.Error())
	if !strings.Contains(msg, "parse") && !strings.Contains(msg, "corrupt") {
		t.Errorf("corruption error must be classifiable, got %q", err)
	}
}

func TestLoadInvalidVersion(t *testing.T) {
	b := testBackend(t)
	if err := os.MkdirAll(filepath.Dir(b.path()), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(b.path(), []byte(`{"version": 99, "notes": [], "folders": []}`), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := b.Load(context.Background())
	if err == nil {
		t.Fatal("expected an error for an unsupported version")
	}
	if !strings.Contains(strings.ToLower(err.Error()), "corrupt") {
		t.Errorf("version error must be classifiable as corruption, got %q", err)
	}
}

func TestDataDir(t *testing.T) {
	dir := t.TempDir()
	b := New(dir, zerolog.Nop())

	want := filepath.Join(dir, "parcel")
	if got := b.DataDir(); got != want {
		t.Errorf("DataDir() = %q, want %q", got, want)
	}
}
