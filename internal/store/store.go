// Package store implements the Parcel state store: the in-memory notes and
// folders model, its bounded undo/redo history, derived views over it, and the
// hydrate/save gateway to the storage backend.
//
// A Store is not safe for concurrent use. It is designed for a single logical
// owner (the UI boundary) that serializes all calls; only Hydrate and Save
// touch the backend and may block.
package store

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/parcel-notes/parcel/internal/model"
	"github.com/parcel-notes/parcel/internal/storage"
)

// DefaultFolderName is used whenever a folder has to be synthesized to keep
// the folder collection non-empty.
const DefaultFolderName = "Notes"

// SortKey selects the ordering of VisibleNotes within the pinned and unpinned
// partitions.
type SortKey string

const (
	SortUpdated SortKey = "updated"
	SortCreated SortKey = "created"
	SortTitle   SortKey = "title"
)

// NotePatch is a partial note update. Nil fields are left untouched. A non-nil
// FolderID moves the note; pointing it at the empty string clears the folder
// assignment.
type NotePatch struct {
	Title    *string
	Body     *string
	FolderID *string
	Pinned   *bool
	Color    *model.Color
}

// touchesText reports whether the patch edits title or body, the only changes
// that are recorded in history.
func (p NotePatch) touchesText() bool {
	return p.Title != nil || p.Body != nil
}

// Store owns the live application state.
type Store struct {
	backend storage.Backend
	log     zerolog.Logger

	now   func() int64
	newID func() string

	notes   []model.Note
	folders []model.Folder

	selectedID     string
	search         string
	activeFolderID string
	sortBy         SortKey

	hist     history
	hydrated bool
	lastErr  string
}

// New creates a store bound to the given backend. The store starts with a
// single default folder and an empty history; callers normally Hydrate before
// anything else.
func New(backend storage.Backend, logger zerolog.Logger) *Store {
	s := &Store{
		backend: backend,
		log:     logger.With().Str("component", "store").Logger(),
		now:     func() int64 { return time.Now().UnixMilli() },
		newID:   uuid.NewString,
		sortBy:  SortUpdated,
	}
	s.folders = []model.Folder{s.defaultFolder()}
	s.hist.reset(s.notes, s.folders)
	return s
}

func (s *Store) defaultFolder() model.Folder {
	now := s.now()
	return model.Folder{
		ID:        s.newID(),
		Name:      DefaultFolderName,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// tracked wraps a history-tracked mutation. A snapshot is recorded immediately
// before and immediately after applying it, so one user action consumes two
// stack slots. The "before" entry sits directly below the "after" entry, so
// the first undo already restores the pre-action state and the second merely
// consumes the duplicate slot without changing visible state. This mirrors the
// original application's recording policy and is deliberately not collapsed
// into a single snapshot.
func (s *Store) tracked(apply func()) {
	s.hist.push(s.notes, s.folders)
	apply()
	s.hist.push(s.notes, s.folders)
}

// CreateNote creates an empty note at the head of the collection and selects
// it. The folder is resolved from the explicit argument, else the active
// folder filter, else the first existing folder, else none. An empty color
// defaults to paper. Returns a copy of the new note.
func (s *Store) CreateNote(folderID string, color model.Color) model.Note {
	if folderID == "" {
		folderID = s.activeFolderID
	}
	if folderID == "" && len(s.folders) > 0 {
		folderID = s.folders[0].ID
	}
	if !color.Valid() {
		color = model.DefaultColor
	}

	var note model.Note
	s.tracked(func() {
		now := s.now()
		note = model.Note{
			ID:        s.newID(),
			Color:     color,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if folderID != "" {
			id := folderID
			note.FolderID = &id
		}
		s.notes = append([]model.Note{note}, model.CloneNotes(s.notes)...)
		s.selectedID = note.ID
	})
	return note.Clone()
}

// UpdateNote applies a partial update to the note with the given id, refreshing
// its updatedAt. An unknown id is a silent no-op. Only title/body edits are
// recorded in history; pin, folder and color changes apply without a snapshot.
func (s *Store) UpdateNote(id string, patch NotePatch) {
	idx := s.noteIndex(id)
	if idx < 0 {
		return
	}

	apply := func() {
		notes := model.CloneNotes(s.notes)
		n := &notes[idx]
		if patch.Title != nil {
			n.Title = *patch.Title
		}
		if patch.Body != nil {
			n.Body = *patch.Body
		}
		if patch.FolderID != nil {
			if *patch.FolderID == "" {
				n.FolderID = nil
			} else {
				fid := *patch.FolderID
				n.FolderID = &fid
			}
		}
		if patch.Pinned != nil {
			n.Pinned = *patch.Pinned
		}
		if patch.Color != nil && patch.Color.Valid() {
			n.Color = *patch.Color
		}
		n.UpdatedAt = s.now()
		s.notes = notes
	}

	if patch.touchesText() {
		s.tracked(apply)
	} else {
		apply()
	}
}

// DeleteNote removes the note with the given id. If it was selected, selection
// moves to the first remaining note or clears. An unknown id is a no-op.
func (s *Store) DeleteNote(id string) {
	if s.noteIndex(id) < 0 {
		return
	}
	s.tracked(func() {
		notes := make([]model.Note, 0, len(s.notes)-1)
		for _, n := range s.notes {
			if n.ID != id {
				notes = append(notes, n.Clone())
			}
		}
		s.notes = notes
		if s.selectedID == id {
			s.selectedID = ""
			if len(s.notes) > 0 {
				s.selectedID = s.notes[0].ID
			}
		}
	})
}

// CreateFolder appends a folder with the given name. Callers validate and trim
// the name before calling. Returns a copy of the new folder.
func (s *Store) CreateFolder(name string) model.Folder {
	var folder model.Folder
	s.tracked(func() {
		now := s.now()
		folder = model.Folder{
			ID:        s.newID(),
			Name:      name,
			CreatedAt: now,
			UpdatedAt: now,
		}
		s.folders = append(model.CloneFolders(s.folders), folder)
	})
	return folder
}

// RenameFolder renames the folder with the given id in place and refreshes its
// updatedAt. An unknown id is a no-op.
func (s *Store) RenameFolder(id, name string) {
	idx := s.folderIndex(id)
	if idx < 0 {
		return
	}
	s.tracked(func() {
		folders := model.CloneFolders(s.folders)
		folders[idx].Name = name
		folders[idx].UpdatedAt = s.now()
		s.folders = folders
	})
}

// DeleteFolder removes the folder with the given id, cascades notes that
// referenced it to no folder, and clears the active filter if it pointed at
// the deleted folder. If the last folder is removed a default folder is
// synthesized so the collection is never empty. An unknown id is a no-op.
func (s *Store) DeleteFolder(id string) {
	if s.folderIndex(id) < 0 {
		return
	}
	s.tracked(func() {
		folders := make([]model.Folder, 0, len(s.folders)-1)
		for _, f := range s.folders {
			if f.ID != id {
				folders = append(folders, f)
			}
		}
		if len(folders) == 0 {
			folders = append(folders, s.defaultFolder())
		}
		s.folders = folders

		notes := model.CloneNotes(s.notes)
		for i := range notes {
			if notes[i].FolderID != nil && *notes[i].FolderID == id {
				notes[i].FolderID = nil
			}
		}
		s.notes = notes

		if s.activeFolderID == id {
			s.activeFolderID = ""
		}
	})
}

// SelectNote sets the selected note. An empty id clears the selection; an
// unknown id is a no-op so the selection never dangles.
func (s *Store) SelectNote(id string) {
	if id == "" || s.noteIndex(id) >= 0 {
		s.selectedID = id
	}
}

// SetSearch sets the search query used by VisibleNotes.
func (s *Store) SetSearch(query string) {
	s.search = query
}

// SetActiveFolder sets the folder filter; an empty id shows notes from all
// folders, including ones outside any folder.
func (s *Store) SetActiveFolder(id string) {
	s.activeFolderID = id
}

// SetSortKey sets the ordering used by VisibleNotes.
func (s *Store) SetSortKey(key SortKey) {
	s.sortBy = key
}

// Undo steps back one history entry and replaces live state with it. No-op at
// the oldest entry.
func (s *Store) Undo() {
	snap, ok := s.hist.undo()
	if !ok {
		return
	}
	s.restore(snap)
}

// Redo steps forward one history entry and replaces live state with it. No-op
// at the newest entry.
func (s *Store) Redo() {
	snap, ok := s.hist.redo()
	if !ok {
		return
	}
	s.restore(snap)
}

// CanUndo reports whether Undo would change the history position.
func (s *Store) CanUndo() bool { return s.hist.canUndo() }

// CanRedo reports whether Redo would change the history position.
func (s *Store) CanRedo() bool { return s.hist.canRedo() }

// restore adopts a snapshot as live state. A selection that does not exist in
// the restored state is reassigned to the first note, or cleared.
func (s *Store) restore(snap snapshot) {
	s.notes = snap.notes
	s.folders = snap.folders
	if s.selectedID != "" && s.noteIndex(s.selectedID) < 0 {
		s.selectedID = ""
		if len(s.notes) > 0 {
			s.selectedID = s.notes[0].ID
		}
	}
}

// Hydrate loads the persisted document and adopts it as live state. Load
// failures never propagate: corruption resets to an empty state with a
// user-visible error, anything else is treated as a first run. Either way the
// store ends up hydrated with a freshly seeded history.
func (s *Store) Hydrate(ctx context.Context) {
	doc, err := s.backend.Load(ctx)
	if err != nil {
		if isCorruptionError(err) {
			s.log.Error().Err(err).Msg("notes data is corrupt, starting empty")
			s.adopt(nil, nil)
			s.lastErr = "Your notes data could not be read and may be corrupt. Starting with an empty workspace. (" + err.Error() + ")"
		} else {
			s.log.Info().Msg("no notes data found, starting fresh")
			s.adopt(nil, nil)
			s.lastErr = ""
		}
		return
	}

	notes, folders := sanitizeDocument(doc, s.now, s.newID)
	s.adopt(notes, folders)
	s.lastErr = ""
	s.log.Info().Int("notes", len(notes)).Int("folders", len(folders)).Msg("hydrated")
}

// adopt replaces live state, reseeds history with a single snapshot, selects
// the first note, and marks the store hydrated. A nil folder set gets the
// default folder.
func (s *Store) adopt(notes []model.Note, folders []model.Folder) {
	if len(folders) == 0 {
		folders = []model.Folder{s.defaultFolder()}
	}
	s.notes = model.CloneNotes(notes)
	s.folders = model.CloneFolders(folders)
	s.selectedID = ""
	if len(s.notes) > 0 {
		s.selectedID = s.notes[0].ID
	}
	s.hist.reset(s.notes, s.folders)
	s.hydrated = true
}

// Save writes the current document to the backend. Failures surface through
// LastError and never block the caller; editing continues against in-memory
// state and a later save retries implicitly.
func (s *Store) Save(ctx context.Context) {
	if err := s.backend.Save(ctx, s.Document()); err != nil {
		s.log.Error().Err(err).Msg("save failed")
		s.lastErr = "Saving your notes failed: " + err.Error()
		return
	}
	s.lastErr = ""
}

// isCorruptionError applies the documented classification heuristic: load
// errors mentioning corruption or a parse failure reset state, anything else
// is a first run.
func isCorruptionError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "corrupt") || strings.Contains(msg, "parse")
}

// Document returns a deep copy of the current persisted envelope.
func (s *Store) Document() *model.Document {
	return &model.Document{
		Version: model.Version,
		Notes:   model.CloneNotes(s.notes),
		Folders: model.CloneFolders(s.folders),
	}
}

// Notes returns a copy of all notes in collection order.
func (s *Store) Notes() []model.Note { return model.CloneNotes(s.notes) }

// Folders returns a copy of all folders in collection order.
func (s *Store) Folders() []model.Folder { return model.CloneFolders(s.folders) }

// SelectedNoteID returns the selected note's id, or "" when nothing is
// selected.
func (s *Store) SelectedNoteID() string { return s.selectedID }

// Search returns the current search query.
func (s *Store) Search() string { return s.search }

// ActiveFolderID returns the current folder filter, or "" for all folders.
func (s *Store) ActiveFolderID() string { return s.activeFolderID }

// Sort returns the current sort key.
func (s *Store) Sort() SortKey { return s.sortBy }

// Hydrated reports whether Hydrate has completed.
func (s *Store) Hydrated() bool { return s.hydrated }

// LastError returns the user-visible error message from the last gateway
// operation, or "" when the last operation succeeded.
func (s *Store) LastError() string { return s.lastErr }

func (s *Store) noteIndex(id string) int {
	for i, n := range s.notes {
		if n.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) folderIndex(id string) int {
	for i, f := range s.folders {
		if f.ID == id {
			return i
		}
	}
	return -1
}
