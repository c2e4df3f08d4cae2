// Package generate renders scraped book records into reader-facing
// artifacts: a standalone HTML page, an EPUB, optionally a PDF (via
// wkhtmltopdf) and a single tagged audio file (via ffmpeg).
package generate

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"blinkscrape/book"
)

//go:embed templates/book.html
var bookTemplateSrc string

//go:embed templates/epub.css
var epubCSS string

var bookTemplate = template.Must(template.New("book").Parse(bookTemplateSrc))

// Generator writes output artifacts under booksDir, one directory per
// book. Every artifact is skipped when its target file already exists,
// so re-running over the same dumps is cheap.
type Generator struct {
	booksDir string
}

func New(booksDir string) *Generator {
	return &Generator{booksDir: booksDir}
}

type htmlChapter struct {
	Title      string
	Content    template.HTML
	Supplement template.HTML
}

type htmlBook struct {
	Title        string
	Author       string
	Language     string
	AboutTheBook string
	CoverURL     string
	Chapters     []htmlChapter
}

// HTML renders the book page. coverFile, when non-empty, is a local
// image used in place of the online cover URL.
func (g *Generator) HTML(bk *book.Book, coverFile string) (string, error) {
	dir := book.PrettyDir(g.booksDir, bk)
	target := filepath.Join(dir, book.PrettyFilename(bk, ".html"))
	if _, err := os.Stat(target); err == nil {
		slog.Debug("html file already exists, not generating", "slug", bk.Slug)
		return target, nil
	}
	slog.Info("generating html", "slug", bk.Slug)

	view := htmlBook{
		Title:        bk.Title,
		Author:       bk.Author,
		Language:     bk.Language,
		AboutTheBook: bk.AboutTheBook,
		CoverURL:     bk.ImageURL,
	}
	if coverFile != "" {
		view.CoverURL = filepath.Base(coverFile)
	}
	for _, ch := range bk.Chapters {
		hc := htmlChapter{Title: ch.Title, Content: template.HTML(ch.Content)}
		if ch.Supplement != nil {
			hc.Supplement = template.HTML(*ch.Supplement)
		}
		view.Chapters = append(view.Chapters, hc)
	}

	var buf bytes.Buffer
	if err := bookTemplate.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("failed to render book template: %w", err)
	}
	// the reader markup pads chapters with empty paragraphs
	page := strings.ReplaceAll(buf.String(), "<p>&nbsp;</p>", "")

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create book directory: %w", err)
	}
	if err := os.WriteFile(target, []byte(page), 0o644); err != nil {
		return "", fmt.Errorf("failed to write html file: %w", err)
	}
	return target, nil
}
