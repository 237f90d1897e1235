package store

import "github.com/parcel-notes/parcel/internal/model"

// maxHistory bounds the snapshot stack; the oldest snapshot is evicted when a
// push would exceed it.
const maxHistory = 50

// snapshot is an independent full copy of {notes, folders} at one point in
// time. Snapshots never alias live state.
type snapshot struct {
	notes   []model.Note
	folders []model.Folder
}

// history is a bounded stack of snapshots with a current position. The entry
// at index is always the snapshot matching live state (or the one live state
// was last restored from).
type history struct {
	stack []snapshot
	index int
}

// reset discards all history and seeds the stack with a single snapshot of the
// given state.
func (h *history) reset(notes []model.Note, folders []model.Folder) {
	h.stack = []snapshot{{
		notes:   model.CloneNotes(notes),
		folders: model.CloneFolders(folders),
	}}
	h.index = 0
}

// push records a snapshot of the given state. Any redo branch beyond the
// current position is discarded first; then the oldest entry is evicted if the
// stack would exceed capacity. After a push the current position is always the
// last entry.
func (h *history) push(notes []model.Note, folders []model.Folder) {
	h.stack = h.stack[:h.index+1]
	h.stack = append(h.stack, snapshot{
		notes:   model.CloneNotes(notes),
		folders: model.CloneFolders(folders),
	})
	if len(h.stack) > maxHistory {
		h.stack = h.stack[1:]
	}
	h.index = len(h.stack) - 1
}

// undo steps the position back one entry and returns a copy of that snapshot.
// It reports false without moving when already at the oldest entry.
func (h *history) undo() (snapshot, bool) {
	if !h.canUndo() {
		return snapshot{}, false
	}
	h.index--
	return h.current(), true
}

// redo steps the position forward one entry and returns a copy of that
// snapshot. It reports false without moving when already at the newest entry.
func (h *history) redo() (snapshot, bool) {
	if !h.canRedo() {
		return snapshot{}, false
	}
	h.index++
	return h.current(), true
}

// current returns a copy of the snapshot at the current position.
func (h *history) current() snapshot {
	s := h.stack[h.index]
	return snapshot{
		notes:   model.CloneNotes(s.notes),
		folders: model.CloneFolders(s.folders),
	}
}

func (h *history) canUndo() bool {
	return h.index > 0
}

func (h *history) canRedo() bool {
	return h.index < len(h.stack)-1
}
