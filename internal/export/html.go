package export

import (
	"bytes"
	"fmt"
	"html"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	goldmarkhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/parcel-notes/parcel/internal/model"
)

// Renderer converts note bodies from Markdown to HTML.
type Renderer struct {
	md goldmark.Markdown
}

// NewRenderer creates a Markdown renderer with GFM extensions and syntax
// highlighting.
func NewRenderer() *Renderer {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			highlighting.NewHighlighting(
				highlighting.WithStyle("github"),
				highlighting.WithFormatOptions(
					chromahtml.WithClasses(true),
				),
			),
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			goldmarkhtml.WithHardWraps(),
			goldmarkhtml.WithXHTML(),
		),
	)

	return &Renderer{md: md}
}

// Render converts a single Markdown source to HTML.
func (r *Renderer) Render(source []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.md.Convert(source, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// HTML renders the document as a standalone HTML page mirroring the Markdown
// digest's structure, with note bodies rendered from Markdown.
func (r *Renderer) HTML(doc *model.Document) (string, error) {
	var b bytes.Buffer

	b.WriteString("<!DOCTYPE html>\n<html>\n<head><meta charset=\"utf-8\"><title>Parcel Notes Export</title></head>\n<body>\n")
	fmt.Fprintf(&b, "<h1>Parcel Notes Export</h1>\n")
	fmt.Fprintf(&b, "<p><em>Total notes: %d | Total folders: %d</em></p>\n", len(doc.Notes), len(doc.Folders))

	byFolder := groupByFolder(doc)

	writeNote := func(note model.Note) error {
		fmt.Fprintf(&b, "<section class=\"note note-%s\">\n<h3>%s</h3>\n", note.Color, html.EscapeString(displayTitle(note)))
		if note.Body != "" {
			body, err := r.Render([]byte(note.Body))
			if err != nil {
				return fmt.Errorf("render note %s: %w", note.ID, err)
			}
			b.Write(body)
		}
		b.WriteString("</section>\n")
		return nil
	}

	for _, folder := range doc.Folders {
		fmt.Fprintf(&b, "<h2>Folder: %s</h2>\n", html.EscapeString(folder.Name))
		for _, note := range byFolder[folder.ID] {
			if err := writeNote(note); err != nil {
				return "", err
			}
		}
	}

	if orphans := byFolder[""]; len(orphans) > 0 {
		b.WriteString("<h2>Notes (No Folder)</h2>\n")
		for _, note := range orphans {
			if err := writeNote(note); err != nil {
				return "", err
			}
		}
	}

	b.WriteString("</body>\n</html>\n")
	return b.String(), nil
}
