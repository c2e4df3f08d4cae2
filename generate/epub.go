package generate

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/bmaupin/go-epub"

	"blinkscrape/book"
)

// EPUB builds the book as an EPUB with one XHTML section per chapter.
func (g *Generator) EPUB(bk *book.Book) (string, error) {
	dir := book.PrettyDir(g.booksDir, bk)
	target := filepath.Join(dir, book.PrettyFilename(bk, ".epub"))
	if _, err := os.Stat(target); err == nil {
		slog.Debug("epub file already exists, not generating", "slug", bk.Slug)
		return target, nil
	}
	slog.Info("generating epub", "slug", bk.Slug)

	e := epub.NewEpub(bk.Title)
	e.SetAuthor(bk.Author)
	e.SetIdentifier(bk.ID)
	if bk.Language != "" {
		e.SetLang(bk.Language)
	}
	if bk.AboutTheBook != "" {
		e.SetDescription(bk.AboutTheBook)
	}

	// AddCSS wants a source file on disk
	cssFile := filepath.Join(os.TempDir(), "blinkscrape-epub.css")
	if err := os.WriteFile(cssFile, []byte(epubCSS), 0o644); err != nil {
		return "", fmt.Errorf("failed to stage epub css: %w", err)
	}
	defer os.Remove(cssFile)
	cssPath, err := e.AddCSS(cssFile, "epub.css")
	if err != nil {
		return "", fmt.Errorf("failed to add epub css: %w", err)
	}

	for _, ch := range bk.Chapters {
		body := fmt.Sprintf("<h2>%s</h2>%s", ch.Title, ch.Content)
		if ch.Supplement != nil {
			body += *ch.Supplement
		}
		name := fmt.Sprintf("chapter_%d.xhtml", ch.OrderNo)
		if _, err := e.AddSection(body, ch.Title, name, cssPath); err != nil {
			return "", fmt.Errorf("failed to add chapter %d: %w", ch.OrderNo, err)
		}
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create book directory: %w", err)
	}
	if err := e.Write(target); err != nil {
		return "", fmt.Errorf("failed to write epub: %w", err)
	}
	return target, nil
}
