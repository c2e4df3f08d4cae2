// Package book holds the typed records for scraped books and the pure
// functions that derive dump and output file names from them.
package book

import (
	"fmt"
)

// Book is the canonical record for a single title, as returned by the
// content API and enriched from the reader page. It is persisted verbatim
// as the per-book JSON dump.
type Book struct {
	ID           string    `json:"id"`
	Slug         string    `json:"slug"`
	Title        string    `json:"title"`
	Author       string    `json:"author"`
	Language     string    `json:"language"`
	Category     string    `json:"category"`
	IsAudio      bool      `json:"is_audio"`
	AboutTheBook string    `json:"about_the_book"`
	ImageURL     string    `json:"image_url"`
	Images       Images    `json:"images"`
	Chapters     []Chapter `json:"chapters"`
}

// Images carries the cover art URL template. The template contains
// %type% and %size% placeholders that select aspect ratio and width.
type Images struct {
	URLTemplate string `json:"url_template"`
}

// Chapter is a single blink. Chapters are addressed by OrderNo, which is
// stable and unique within a book but not necessarily contiguous, so
// lookups must search rather than index.
type Chapter struct {
	ID      string `json:"id"`
	OrderNo int    `json:"order_no"`
	Title   string `json:"title"`
	Content string `json:"content,omitempty"`
	// Text is only ever present on API payloads that already embed the
	// chapter content (the free daily book does this). It is migrated to
	// Content on ingest and never written back to a dump.
	Text       string  `json:"text,omitempty"`
	Supplement *string `json:"supplement"`
}

// Category is a labeled grouping of books discovered from the site's
// navigation menu.
type Category struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// DefaultCategory is assigned to books scraped outside of category
// enumeration (single book, daily book, list file, sitemap remainder).
const DefaultCategory = "Uncategorized"

// SchemaError reports an API or DOM payload that does not match the
// expected book shape. It is raised at the boundary so that missing keys
// fail fast instead of surfacing deep inside rendering.
type SchemaError struct {
	Field  string
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("book payload field %q: %s", e.Field, e.Reason)
}

// Validate checks the invariants every Book must satisfy before it is
// persisted or rendered.
func (b *Book) Validate() error {
	if b.ID == "" {
		return &SchemaError{Field: "id", Reason: "missing"}
	}
	if b.Slug == "" {
		return &SchemaError{Field: "slug", Reason: "missing"}
	}
	if len(b.Chapters) == 0 {
		return &SchemaError{Field: "chapters", Reason: "missing or empty"}
	}
	seen := make(map[int]bool, len(b.Chapters))
	for _, ch := range b.Chapters {
		if seen[ch.OrderNo] {
			return &SchemaError{
				Field:  "chapters",
				Reason: fmt.Sprintf("duplicate order_no %d", ch.OrderNo),
			}
		}
		seen[ch.OrderNo] = true
	}
	return nil
}

// ChapterByOrderNo returns the chapter whose OrderNo equals no, or nil.
// OrderNo values are not array positions, so this is a search.
func (b *Book) ChapterByOrderNo(no int) *Chapter {
	for i := range b.Chapters {
		if b.Chapters[i].OrderNo == no {
			return &b.Chapters[i]
		}
	}
	return nil
}

// MigrateEmbeddedText moves API-embedded chapter text into Content and
// reports whether any chapter is still missing content and therefore has
// to be scraped from the rendered reader page.
func (b *Book) MigrateEmbeddedText() bool {
	needsContent := false
	for i := range b.Chapters {
		ch := &b.Chapters[i]
		if ch.Text != "" {
			ch.Content = ch.Text
			ch.Text = ""
			continue
		}
		if ch.Content == "" {
			needsContent = true
		}
	}
	return needsContent
}
