package generate

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	"blinkscrape/book"
)

// PDF prints the book's HTML page to PDF with wkhtmltopdf. When the
// binary is not on PATH the PDF is skipped with a warning; an empty
// path and nil error mean "not generated".
func (g *Generator) PDF(ctx context.Context, bk *book.Book, coverFile string) (string, error) {
	if _, err := exec.LookPath("wkhtmltopdf"); err != nil {
		slog.Warn("wkhtmltopdf needs to be installed and on PATH to generate pdf files")
		return "", nil
	}

	dir := book.PrettyDir(g.booksDir, bk)
	target := filepath.Join(dir, book.PrettyFilename(bk, ".pdf"))
	if _, err := os.Stat(target); err == nil {
		slog.Debug("pdf file already exists, not generating", "slug", bk.Slug)
		return target, nil
	}

	// the pdf is printed from the html artifact
	htmlFile, err := g.HTML(bk, coverFile)
	if err != nil {
		return "", err
	}

	slog.Debug("generating pdf", "slug", bk.Slug)
	cmd := exec.CommandContext(ctx, "wkhtmltopdf", "--quiet", htmlFile, target)
	if out, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("wkhtmltopdf failed: %w: %s", err, out)
	}
	return target, nil
}
