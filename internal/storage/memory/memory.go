// Package memory implements an in-memory storage backend, used by tests and by
// dev mode where nothing should touch the filesystem.
package memory

import (
	"context"
	"sync"

	"github.com/parcel-notes/parcel/internal/model"
	"github.com/parcel-notes/parcel/internal/storage"
)

// Backend keeps the document in memory. The zero value behaves like a first
// run: Load returns storage.ErrNotFound until something is saved.
//
// LoadErr and SaveErr, when set, are returned by the corresponding call
// instead of touching the document; tests use them to exercise the gateway's
// failure paths.
type Backend struct {
	mu  sync.Mutex
	doc *model.Document

	LoadErr error
	SaveErr error
}

// New creates an empty in-memory backend.
func New() *Backend {
	return &Backend{}
}

// NewWithDocument creates a backend pre-seeded with a document, as if it had
// been saved by an earlier session.
func NewWithDocument(doc *model.Document) *Backend {
	return &Backend{doc: doc.Clone()}
}

// Load returns a deep copy of the stored document.
func (b *Backend) Load(ctx context.Context) (*model.Document, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.LoadErr != nil {
		return nil, b.LoadErr
	}
	if b.doc == nil {
		return nil, storage.ErrNotFound
	}
	return b.doc.Clone(), nil
}

// Save stores a deep copy of the document.
func (b *Backend) Save(ctx context.Context, doc *model.Document) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.SaveErr != nil {
		return b.SaveErr
	}
	b.doc = doc.Clone()
	return nil
}

// Document returns a copy of what is currently persisted, or nil if nothing
// has been saved.
func (b *Backend) Document() *model.Document {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.doc.Clone()
}
