package store

import (
	"strings"

	"github.com/parcel-notes/parcel/internal/model"
)

// sanitizeDocument validates and repairs a freshly loaded document. Folders
// without an id or a non-blank name are dropped; if none survive, a single
// default folder is synthesized. Notes without an id are dropped, and unknown
// colors are coerced to the default in place. The result seeds live state and
// the initial history snapshot.
func sanitizeDocument(doc *model.Document, now func() int64, newID func() string) ([]model.Note, []model.Folder) {
	var folders []model.Folder
	for _, f := range doc.Folders {
		if f.ID == "" || strings.TrimSpace(f.Name) == "" {
			continue
		}
		folders = append(folders, f)
	}
	if len(folders) == 0 {
		ts := now()
		folders = []model.Folder{{
			ID:        newID(),
			Name:      DefaultFolderName,
			CreatedAt: ts,
			UpdatedAt: ts,
		}}
	}

	var notes []model.Note
	for _, n := range doc.Notes {
		if n.ID == "" {
			continue
		}
		n = n.Clone()
		if !n.Color.Valid() {
			n.Color = model.DefaultColor
		}
		notes = append(notes, n)
	}

	return notes, folders
}
