package store

import (
	"sort"
	"strings"

	"github.com/parcel-notes/parcel/internal/model"
)

// untitledPlaceholder stands in for an empty title when sorting by title. The
// stored title is never changed.
const untitledPlaceholder = "Untitled"

// SelectedNote returns a copy of the selected note, or nil when nothing is
// selected. Pure lookup, recomputed on every call.
func (s *Store) SelectedNote() *model.Note {
	idx := s.noteIndex(s.selectedID)
	if s.selectedID == "" || idx < 0 {
		return nil
	}
	n := s.notes[idx].Clone()
	return &n
}

// VisibleNotes returns the notes matching the active folder filter and search
// query, pinned notes first, each partition ordered by the current sort key.
// The result is a copy; mutating it does not affect the store.
func (s *Store) VisibleNotes() []model.Note {
	notes := make([]model.Note, 0, len(s.notes))
	for _, n := range s.notes {
		if s.activeFolderID != "" {
			if n.FolderID == nil || *n.FolderID != s.activeFolderID {
				continue
			}
		}
		notes = append(notes, n.Clone())
	}

	if q := strings.ToLower(strings.TrimSpace(s.search)); q != "" {
		matched := notes[:0]
		for _, n := range notes {
			if strings.Contains(strings.ToLower(n.Title), q) ||
				strings.Contains(strings.ToLower(n.Body), q) {
				matched = append(matched, n)
			}
		}
		notes = matched
	}

	sort.SliceStable(notes, func(i, j int) bool {
		a, b := notes[i], notes[j]
		if a.Pinned != b.Pinned {
			return a.Pinned
		}
		switch s.sortBy {
		case SortCreated:
			return a.CreatedAt > b.CreatedAt
		case SortTitle:
			return strings.ToLower(titleForSort(a)) < strings.ToLower(titleForSort(b))
		default:
			// SortUpdated, and the fallback for unknown keys.
			return a.UpdatedAt > b.UpdatedAt
		}
	})
	return notes
}

func titleForSort(n model.Note) string {
	if n.Title == "" {
		return untitledPlaceholder
	}
	return n.Title
}
