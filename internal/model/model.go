// Package model defines the persisted Parcel document: notes, folders and the
// versioned envelope they are stored in.
package model

// Version is the fixed envelope version written on every save.
const Version = 1

// Color is a note's color tag.
type Color string

const (
	ColorPaper    Color = "paper"
	ColorYellow   Color = "yellow"
	ColorMint     Color = "mint"
	ColorLavender Color = "lavender"
	ColorSalmon   Color = "salmon"
	ColorSky      Color = "sky"
)

// DefaultColor is assigned to new notes and to loaded notes whose color is not
// one of the known values.
const DefaultColor = ColorPaper

// Valid reports whether c is one of the six known colors.
func (c Color) Valid() bool {
	switch c {
	case ColorPaper, ColorYellow, ColorMint, ColorLavender, ColorSalmon, ColorSky:
		return true
	}
	return false
}

// Note is a single user document. FolderID is nil for notes outside any folder.
// Timestamps are Unix milliseconds.
type Note struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	Body      string  `json:"body"`
	FolderID  *string `json:"folderId"`
	Pinned    bool    `json:"pinned"`
	Color     Color   `json:"color"`
	CreatedAt int64   `json:"createdAt"`
	UpdatedAt int64   `json:"updatedAt"`
}

// Folder is a named grouping container for notes.
type Folder struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt int64  `json:"createdAt"`
	UpdatedAt int64  `json:"updatedAt"`
}

// Document is the persisted envelope.
type Document struct {
	Version int      `json:"version"`
	Notes   []Note   `json:"notes"`
	Folders []Folder `json:"folders"`
}

// Clone returns a deep copy of the note. The FolderID pointer is re-pointed so
// the copy never aliases the original.
func (n Note) Clone() Note {
	c := n
	if n.FolderID != nil {
		id := *n.FolderID
		c.FolderID = &id
	}
	return c
}

// CloneNotes deep-copies a note slice. The result never shares memory with the
// input; a nil input yields an empty non-nil slice.
func CloneNotes(notes []Note) []Note {
	out := make([]Note, len(notes))
	for i, n := range notes {
		out[i] = n.Clone()
	}
	return out
}

// CloneFolders deep-copies a folder slice.
func CloneFolders(folders []Folder) []Folder {
	out := make([]Folder, len(folders))
	copy(out, folders)
	return out
}

// Clone returns a deep copy of the document.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	return &Document{
		Version: d.Version,
		Notes:   CloneNotes(d.Notes),
		Folders: CloneFolders(d.Folders),
	}
}
