// Package file implements the storage backend as a single JSON document at
// <dataDir>/parcel/notes.json.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/parcel-notes/parcel/internal/model"
	"github.com/parcel-notes/parcel/internal/storage"
)

const (
	dataSubdir = "parcel"
	dataFile   = "notes.json"
)

// Backend stores the document on the local filesystem.
type Backend struct {
	dataDir string
	log     zerolog.Logger
}

// New creates a file backend rooted at the given application data directory.
func New(dataDir string, logger zerolog.Logger) *Backend {
	return &Backend{
		dataDir: dataDir,
		log:     logger.With().Str("component", "storage.file").Logger(),
	}
}

// DataDir returns the directory holding the notes file, for display in a
// settings surface.
func (b *Backend) DataDir() string {
	return filepath.Join(b.dataDir, dataSubdir)
}

func (b *Backend) path() string {
	return filepath.Join(b.dataDir, dataSubdir, dataFile)
}

// Load reads and decodes the document. A missing file maps to
// storage.ErrNotFound; decode and version failures produce messages the
// gateway classifies as corruption.
func (b *Backend) Load(ctx context.Context) (*model.Document, error) {
	data, err := os.ReadFile(b.path())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("read notes file: %w", err)
	}

	var doc model.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse notes file: %v (file may be corrupt)", err)
	}

	// The original format allows versions 1..=10; anything else means the
	// file was not written by this application.
	if doc.Version < 1 || doc.Version > 10 {
		return nil, fmt.Errorf("notes file has invalid version %d, file may be corrupt", doc.Version)
	}

	b.log.Debug().Int("notes", len(doc.Notes)).Int("folders", len(doc.Folders)).Msg("loaded notes file")
	return &doc, nil
}

// Save writes the document as indented JSON, creating the data directory if
// needed.
func (b *Backend) Save(ctx context.Context, doc *model.Document) error {
	path := b.path()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode notes file: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write notes file: %w", err)
	}

	b.log.Debug().Int("bytes", len(data)).Msg("saved notes file")
	return nil
}
