// Package export turns a Parcel document into the formats offered by the
// settings dialog: raw JSON, a Markdown digest, and a rendered HTML page.
package export

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/parcel-notes/parcel/internal/model"
)

// JSON returns the document as indented JSON, byte-identical in shape to the
// persisted file.
func JSON(doc *model.Document) (string, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode export: %w", err)
	}
	return string(data), nil
}

// Markdown renders the document as a Markdown digest: a header with totals,
// one section per folder with its notes, and a trailing section for notes
// outside any folder. Empty titles appear as "Untitled".
func Markdown(doc *model.Document) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Parcel Notes Export\n\n")
	fmt.Fprintf(&b, "*Total notes: %d*\n", len(doc.Notes))
	fmt.Fprintf(&b, "*Total folders: %d*\n\n", len(doc.Folders))

	byFolder := groupByFolder(doc)

	for _, folder := range doc.Folders {
		fmt.Fprintf(&b, "## Folder: %s\n\n", folder.Name)
		for _, note := range byFolder[folder.ID] {
			writeNoteMarkdown(&b, note)
		}
	}

	if orphans := byFolder[""]; len(orphans) > 0 {
		fmt.Fprintf(&b, "## Notes (No Folder)\n\n")
		for _, note := range orphans {
			writeNoteMarkdown(&b, note)
		}
	}

	return b.String()
}

func writeNoteMarkdown(b *strings.Builder, note model.Note) {
	fmt.Fprintf(b, "### %s\n\n", displayTitle(note))
	if note.Body != "" {
		fmt.Fprintf(b, "%s\n\n", note.Body)
	}
	fmt.Fprintf(b, "*Color: %s | Pinned: %t*\n\n", note.Color, note.Pinned)
}

// groupByFolder buckets notes by folder id, preserving document order. Notes
// outside any folder land under the empty key.
func groupByFolder(doc *model.Document) map[string][]model.Note {
	byFolder := make(map[string][]model.Note)
	for _, note := range doc.Notes {
		key := ""
		if note.FolderID != nil {
			key = *note.FolderID
		}
		byFolder[key] = append(byFolder[key], note)
	}
	return byFolder
}

func displayTitle(note model.Note) string {
	if note.Title == "" {
		return "Untitled"
	}
	return note.Title
}
