// Package storage defines the contract between the state store and the
// persistence backend holding the Parcel document.
package storage

import (
	"context"
	"errors"

	"github.com/parcel-notes/parcel/internal/model"
)

var (
	// ErrNotFound is returned by Load when no document exists yet (first run).
	ErrNotFound = errors.New("notes data not found")
)

// Backend persists the full document. Implementations must treat the document
// passed to Save as read-only and must return documents from Load that the
// caller is free to mutate.
type Backend interface {
	// Load reads the persisted document. It returns ErrNotFound when no
	// document has ever been saved, and an error mentioning "parse" or
	// "corrupt" when the stored data cannot be decoded.
	Load(ctx context.Context) (*model.Document, error)

	// Save writes the full document, replacing any previous one.
	Save(ctx context.Context, doc *model.Document) error
}
