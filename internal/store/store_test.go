package store

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/parcel-notes/parcel/internal/model"
	"github.com/parcel-notes/parcel/internal/storage/memory"
)

// newTestStore wires a store with a deterministic clock and id sequence.
func newTestStore(backend *memory.Backend) *Store {
	s := New(backend, zerolog.Nop())
	var ids int
	s.newID = func() string {
		ids++
		return fmt.Sprintf("id-%d", ids)
	}
	var clock int64 = 1000
	s.now = func() int64 {
		clock++
		return clock
	}
	return s
}

func seededBackend(notes []model.Note, folders []model.Folder) *memory.Backend {
	return memory.NewWithDocument(&model.Document{
		Version: model.Version,
		Notes:   notes,
		Folders: folders,
	})
}

func TestHydrateFirstRun(t *testing.T) {
	s := newTestStore(memory.New())
	s.Hydrate(context.Background())

	if !s.Hydrated() {
		t.Fatal("store should be hydrated after a first run")
	}
	if s.LastError() != "" {
		t.Errorf("first run must not surface an error, got %q", s.LastError())
	}
	if len(s.Notes()) != 0 {
		t.Errorf("expected no notes, got %d", len(s.Notes()))
	}
	folders := s.Folders()
	if len(folders) != 1 || folders[0].Name != DefaultFolderName {
		t.Fatalf("expected one default folder, got %+v", folders)
	}
}

func TestHydrateCorruptionResetsWithError(t *testing.T) {
	backend := memory.New()
	backend.LoadErr = errors.New("failed to parse notes file: unexpected end of JSON input (file may be corrupt)")

	s := newTestStore(backend)
	s.Hydrate(context.Background())

	if !s.Hydrated() {
		t.Fatal("store should be hydrated even after corruption")
	}
	if s.LastError() == "" {
		t.Fatal("corruption must surface a user-visible error")
	}
	if !strings.Contains(s.LastError(), "unexpected end of JSON input") {
		t.Errorf("error message should carry the original error text, got %q", s.LastError())
	}
	if len(s.Notes()) != 0 || len(s.Folders()) != 1 {
		t.Errorf("corruption should reset to empty notes and one default folder, got %d notes / %d folders",
			len(s.Notes()), len(s.Folders()))
	}
}

func TestHydrateMissingDataIsNotAnError(t *testing.T) {
	backend := memory.New()
	backend.LoadErr = errors.New("read notes file: permission denied")

	s := newTestStore(backend)
	s.Hydrate(context.Background())

	// Anything that doesn't look like corruption is treated as a first run.
	if s.LastError() != "" {
		t.Errorf("non-corruption load failure must stay silent, got %q", s.LastError())
	}
	if !s.Hydrated() {
		t.Error("store should be hydrated")
	}
}

func TestHydrateSanitizesInvalidColor(t *testing.T) {
	backend := seededBackend(
		[]model.Note{
			{ID: "n1", Title: "Tartan", Color: "plaid"},
			{ID: "n2", Title: "Sea", Color: model.ColorSky},
			{ID: "", Title: "dropped"},
		},
		[]model.Folder{{ID: "f1", Name: "Notes"}},
	)

	s := newTestStore(backend)
	s.Hydrate(context.Background())

	notes := s.Notes()
	if len(notes) != 2 {
		t.Fatalf("expected 2 surviving notes, got %d", len(notes))
	}
	if notes[0].Color != model.ColorPaper {
		t.Errorf("invalid color must be coerced to paper, got %q", notes[0].Color)
	}
	if notes[1].Color != model.ColorSky {
		t.Errorf("valid color must be kept, got %q", notes[1].Color)
	}
}

func TestHydrateZeroValidFolders(t *testing.T) {
	backend := seededBackend(nil, []model.Folder{
		{ID: "", Name: "no id"},
		{ID: "f2", Name: "   "},
	})

	s := newTestStore(backend)
	s.Hydrate(context.Background())

	folders := s.Folders()
	if len(folders) != 1 {
		t.Fatalf("expected exactly one synthesized folder, got %d", len(folders))
	}
	if folders[0].Name != DefaultFolderName || folders[0].ID == "" {
		t.Errorf("unexpected synthesized folder: %+v", folders[0])
	}
}

func TestHydrateSelectsFirstNote(t *testing.T) {
	backend := seededBackend(
		[]model.Note{{ID: "n1", Color: model.ColorPaper}, {ID: "n2", Color: model.ColorPaper}},
		[]model.Folder{{ID: "f1", Name: "Notes"}},
	)

	s := newTestStore(backend)
	s.Hydrate(context.Background())

	if s.SelectedNoteID() != "n1" {
		t.Errorf("selected = %q, want n1", s.SelectedNoteID())
	}
}

func TestCreateNoteScenario(t *testing.T) {
	backend := seededBackend(nil, []model.Folder{{ID: "f1", Name: "Notes"}})
	s := newTestStore(backend)
	s.Hydrate(context.Background())

	note := s.CreateNote("", "")

	notes := s.Notes()
	if len(notes) != 1 {
		t.Fatalf("expected 1 note, got %d", len(notes))
	}
	if note.FolderID == nil || *note.FolderID != "f1" {
		t.Errorf("new note should land in the first folder, got %v", note.FolderID)
	}
	if note.Title != "" || note.Body != "" {
		t.Errorf("new note must start empty, got title=%q body=%q", note.Title, note.Body)
	}
	if note.Color != model.ColorPaper {
		t.Errorf("default color = %q, want paper", note.Color)
	}
	if s.SelectedNoteID() != note.ID {
		t.Errorf("new note must be selected, selected=%q", s.SelectedNoteID())
	}
}

func TestCreateNoteFolderResolution(t *testing.T) {
	backend := seededBackend(nil, []model.Folder{
		{ID: "f1", Name: "First"},
		{ID: "f2", Name: "Second"},
	})
	s := newTestStore(backend)
	s.Hydrate(context.Background())

	// Explicit argument wins.
	n := s.CreateNote("f2", "")
	if n.FolderID == nil || *n.FolderID != "f2" {
		t.Errorf("explicit folder ignored: %v", n.FolderID)
	}

	// Active filter next.
	s.SetActiveFolder("f2")
	n = s.CreateNote("", "")
	if n.FolderID == nil || *n.FolderID != "f2" {
		t.Errorf("active folder ignored: %v", n.FolderID)
	}

	// First folder as fallback.
	s.SetActiveFolder("")
	n = s.CreateNote("", "")
	if n.FolderID == nil || *n.FolderID != "f1" {
		t.Errorf("first-folder fallback ignored: %v", n.FolderID)
	}

	// With no folders at all the note is created outside any folder.
	s.folders = nil
	n = s.CreateNote("", "")
	if n.FolderID != nil {
		t.Errorf("expected no folder, got %q", *n.FolderID)
	}
}

func TestCreateNoteInsertsAtHead(t *testing.T) {
	s := newTestStore(memory.New())
	s.Hydrate(context.Background())

	first := s.CreateNote("", "")
	second := s.CreateNote("", "")

	notes := s.Notes()
	if notes[0].ID != second.ID || notes[1].ID != first.ID {
		t.Errorf("new notes must be inserted at the head, got order %q, %q", notes[0].ID, notes[1].ID)
	}
}

func TestUpdateNoteUnknownIDIsSilent(t *testing.T) {
	s := newTestStore(memory.New())
	s.Hydrate(context.Background())
	s.CreateNote("", "")
	depth := len(s.hist.stack)

	title := "ghost"
	s.UpdateNote("missing", NotePatch{Title: &title})

	if len(s.hist.stack) != depth {
		t.Error("updating a missing note must not record history")
	}
	if s.Notes()[0].Title != "" {
		t.Error("updating a missing note must not touch other notes")
	}
}

func TestUpdateNoteRefreshesUpdatedAt(t *testing.T) {
	s := newTestStore(memory.New())
	s.Hydrate(context.Background())
	note := s.CreateNote("", "")

	pinned := true
	s.UpdateNote(note.ID, NotePatch{Pinned: &pinned})

	got := s.Notes()[0]
	if !got.Pinned {
		t.Error("pin patch not applied")
	}
	if got.UpdatedAt <= note.UpdatedAt {
		t.Errorf("updatedAt must refresh on every patch, got %d <= %d", got.UpdatedAt, note.UpdatedAt)
	}
}

func TestUpdateNoteHistoryPolicy(t *testing.T) {
	s := newTestStore(memory.New())
	s.Hydrate(context.Background())
	note := s.CreateNote("", "")
	depth := len(s.hist.stack)

	// Pin, folder and color changes are not individually undoable.
	pinned := true
	folderID := ""
	color := model.ColorMint
	s.UpdateNote(note.ID, NotePatch{Pinned: &pinned})
	s.UpdateNote(note.ID, NotePatch{FolderID: &folderID})
	s.UpdateNote(note.ID, NotePatch{Color: &color})
	if len(s.hist.stack) != depth {
		t.Errorf("untracked patches grew history from %d to %d", depth, len(s.hist.stack))
	}

	// Title and body edits record two snapshots each.
	title := "Grocery List"
	s.UpdateNote(note.ID, NotePatch{Title: &title})
	if len(s.hist.stack) != depth+2 {
		t.Errorf("tracked patch must push two snapshots, stack went %d -> %d", depth, len(s.hist.stack))
	}
}

func TestUpdateNoteClearsFolder(t *testing.T) {
	backend := seededBackend(nil, []model.Folder{{ID: "f1", Name: "Notes"}})
	s := newTestStore(backend)
	s.Hydrate(context.Background())
	note := s.CreateNote("f1", "")

	empty := ""
	s.UpdateNote(note.ID, NotePatch{FolderID: &empty})

	if got := s.Notes()[0].FolderID; got != nil {
		t.Errorf("folder assignment should be cleared, got %q", *got)
	}
}

func TestDoubleSnapshotUndoPolicy(t *testing.T) {
	s := newTestStore(memory.New())
	s.Hydrate(context.Background())

	// Each tracked action consumes two history slots: a duplicate of the
	// prior state and the new state. Two undos therefore step back exactly
	// one action. This mirrors the original recording policy on purpose.
	states := [][]model.Note{s.Notes()}
	for k := 1; k <= 3; k++ {
		s.CreateNote("", "")
		states = append(states, s.Notes())
	}

	for k := 3; k >= 1; k-- {
		s.Undo()
		s.Undo()
		if got := s.Notes(); !reflect.DeepEqual(got, states[k-1]) {
			t.Fatalf("after undoing action %d, state = %+v, want %+v", k, got, states[k-1])
		}
	}
	if s.CanUndo() {
		t.Error("all actions undone, canUndo should be false")
	}
}

func TestUndoRedoRoundTripOnStore(t *testing.T) {
	s := newTestStore(memory.New())
	s.Hydrate(context.Background())
	s.CreateNote("", "")

	before := s.Notes()
	s.Undo()
	s.Redo()
	if got := s.Notes(); !reflect.DeepEqual(got, before) {
		t.Errorf("redo after undo must restore the pre-undo state, got %+v want %+v", got, before)
	}
}

func TestUndoScenarioTitleThenPin(t *testing.T) {
	s := newTestStore(memory.New())
	s.Hydrate(context.Background())
	note := s.CreateNote("", "")

	title := "Grocery List"
	pinned := true
	s.UpdateNote(note.ID, NotePatch{Title: &title})
	s.UpdateNote(note.ID, NotePatch{Pinned: &pinned})

	s.Undo()
	s.Undo()

	got := s.Notes()[0]
	if got.Title != "" {
		t.Errorf("title should revert to pre-edit value, got %q", got.Title)
	}
	// The pin toggle was never snapshotted, so no amount of undo/redo brings
	// it back.
	if got.Pinned {
		t.Error("untracked pin state must not survive a restore")
	}
}

func TestTrackedMutationDiscardsRedoBranch(t *testing.T) {
	s := newTestStore(memory.New())
	s.Hydrate(context.Background())
	s.CreateNote("", "")
	s.CreateNote("", "")

	s.Undo()
	s.Undo()
	if !s.CanRedo() {
		t.Fatal("expected a redo branch")
	}

	s.CreateNote("", "")
	if s.CanRedo() {
		t.Error("a tracked mutation after undo must discard the redo branch")
	}
}

func TestDeleteNoteMovesSelection(t *testing.T) {
	s := newTestStore(memory.New())
	s.Hydrate(context.Background())
	first := s.CreateNote("", "")
	second := s.CreateNote("", "")

	// second is at the head and selected.
	s.DeleteNote(second.ID)
	if s.SelectedNoteID() != first.ID {
		t.Errorf("selection should move to the first remaining note, got %q", s.SelectedNoteID())
	}

	s.DeleteNote(first.ID)
	if s.SelectedNoteID() != "" {
		t.Errorf("selection should clear when the last note goes, got %q", s.SelectedNoteID())
	}
}

func TestDeleteNoteKeepsUnrelatedSelection(t *testing.T) {
	s := newTestStore(memory.New())
	s.Hydrate(context.Background())
	first := s.CreateNote("", "")
	second := s.CreateNote("", "")
	s.SelectNote(first.ID)

	s.DeleteNote(second.ID)
	if s.SelectedNoteID() != first.ID {
		t.Errorf("deleting an unselected note must not move selection, got %q", s.SelectedNoteID())
	}
}

func TestDeleteFolderCascades(t *testing.T) {
	backend := seededBackend(nil, []model.Folder{
		{ID: "f1", Name: "Keep"},
		{ID: "f2", Name: "Drop"},
	})
	s := newTestStore(backend)
	s.Hydrate(context.Background())
	inDropped := s.CreateNote("f2", "")
	inKept := s.CreateNote("f1", "")
	s.SetActiveFolder("f2")

	s.DeleteFolder("f2")

	for _, n := range s.Notes() {
		switch n.ID {
		case inDropped.ID:
			if n.FolderID != nil {
				t.Errorf("cascaded note still references %q", *n.FolderID)
			}
		case inKept.ID:
			if n.FolderID == nil || *n.FolderID != "f1" {
				t.Error("note in a surviving folder must keep its assignment")
			}
		}
	}
	if s.ActiveFolderID() != "" {
		t.Errorf("active filter pointing at the deleted folder must clear, got %q", s.ActiveFolderID())
	}
}

func TestDeleteLastFolderSynthesizesDefault(t *testing.T) {
	backend := seededBackend(nil, []model.Folder{{ID: "f1", Name: "Only"}})
	s := newTestStore(backend)
	s.Hydrate(context.Background())

	s.DeleteFolder("f1")

	folders := s.Folders()
	if len(folders) != 1 {
		t.Fatalf("expected exactly one folder, got %d", len(folders))
	}
	if folders[0].Name != DefaultFolderName || folders[0].ID == "f1" {
		t.Errorf("expected a fresh default folder, got %+v", folders[0])
	}
}

func TestRenameFolder(t *testing.T) {
	backend := seededBackend(nil, []model.Folder{{ID: "f1", Name: "Old", UpdatedAt: 1}})
	s := newTestStore(backend)
	s.Hydrate(context.Background())

	s.RenameFolder("f1", "New")

	f := s.Folders()[0]
	if f.Name != "New" {
		t.Errorf("name = %q, want New", f.Name)
	}
	if f.UpdatedAt <= 1 {
		t.Error("rename must refresh updatedAt")
	}
	if !s.CanUndo() {
		t.Error("rename is history-tracked")
	}
}

func TestSelectNoteUnknownIDIgnored(t *testing.T) {
	s := newTestStore(memory.New())
	s.Hydrate(context.Background())
	note := s.CreateNote("", "")

	s.SelectNote("missing")
	if s.SelectedNoteID() != note.ID {
		t.Errorf("selecting an unknown id must not change selection, got %q", s.SelectedNoteID())
	}

	s.SelectNote("")
	if s.SelectedNoteID() != "" {
		t.Error("empty id must clear selection")
	}
}

func TestSaveWritesEnvelope(t *testing.T) {
	backend := memory.New()
	s := newTestStore(backend)
	s.Hydrate(context.Background())
	note := s.CreateNote("", "")

	s.Save(context.Background())

	doc := backend.Document()
	if doc == nil {
		t.Fatal("nothing was persisted")
	}
	if doc.Version != model.Version {
		t.Errorf("version = %d, want %d", doc.Version, model.Version)
	}
	if len(doc.Notes) != 1 || doc.Notes[0].ID != note.ID {
		t.Errorf("persisted notes = %+v", doc.Notes)
	}
	if s.LastError() != "" {
		t.Errorf("successful save must clear the error, got %q", s.LastError())
	}
}

func TestSaveFailureIsNonFatal(t *testing.T) {
	backend := memory.New()
	s := newTestStore(backend)
	s.Hydrate(context.Background())
	s.CreateNote("", "")

	backend.SaveErr = errors.New("disk full")
	s.Save(context.Background())

	if !strings.Contains(s.LastError(), "disk full") {
		t.Errorf("save failure must surface, got %q", s.LastError())
	}
	if len(s.Notes()) != 1 {
		t.Error("state must remain fully usable after a failed save")
	}

	// The next successful save clears the message.
	backend.SaveErr = nil
	s.Save(context.Background())
	if s.LastError() != "" {
		t.Errorf("successful save must clear the error, got %q", s.LastError())
	}
}

func TestHydrateResetsHistory(t *testing.T) {
	s := newTestStore(memory.New())
	s.Hydrate(context.Background())
	s.CreateNote("", "")
	if !s.CanUndo() {
		t.Fatal("expected undo history before rehydrate")
	}

	s.Hydrate(context.Background())
	if s.CanUndo() || s.CanRedo() {
		t.Error("hydrate must reseed history to a single snapshot")
	}
}
