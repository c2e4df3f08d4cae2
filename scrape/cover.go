package scrape

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"blinkscrape/book"
)

// Cover art template tokens. The site generally offers sizes 130-1400
// and aspect types 1_1, 2-2_1 and 3_4; 640px square matches what the
// HTML output embeds.
const (
	coverType = "1_1"
	coverSize = "640"
)

// Cover downloads a book's cover art as filename inside the book's
// output directory. If a file named altFilename already exists there
// (an identical image downloaded for another purpose), it is copied
// instead of re-downloaded; an existing target is left untouched.
func (s *Scraper) Cover(ctx context.Context, bk *book.Book, filename, altFilename string) (string, error) {
	tmpl := bk.Images.URLTemplate
	if tmpl == "" {
		return "", &book.SchemaError{Field: "images.url_template", Reason: "missing"}
	}
	coverURL := strings.NewReplacer("%type%", coverType, "%size%", coverSize).Replace(tmpl)

	dir := book.PrettyDir(s.booksDir, bk)
	target := filepath.Join(dir, filename)
	alt := filepath.Join(dir, altFilename)

	if _, err := os.Stat(target); err == nil {
		slog.Debug("cover already exists, skipping", "path", target)
		return target, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create book directory: %w", err)
	}

	if _, err := os.Stat(alt); err == nil {
		slog.Debug("copying existing cover", "from", alt, "to", target)
		if err := copyFile(alt, target); err != nil {
			return "", err
		}
		return target, nil
	}

	slog.Info("downloading cover", "url", coverURL, "as", filename)
	if err := s.api.Download(ctx, coverURL, target); err != nil {
		return "", err
	}
	return target, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	return nil
}
