package book

import (
	"path"
	"path/filepath"
	"regexp"
	"strings"
)

// forbidden matches every character that cannot appear in a file or
// directory name on common filesystems, plus dots, which would otherwise
// interfere with extension handling downstream.
var forbidden = regexp.MustCompile(`[\\/*?:"<>|.]`)

// Sanitize strips filesystem-hostile characters from a title or author
// name so it can be used as a path component.
func Sanitize(name string) string {
	return strings.TrimSpace(forbidden.ReplaceAllString(name, ""))
}

// DumpStem derives the dump filename stem for a raw book URL: the tail
// path segment of the listing or reader URL.
func DumpStem(bookURL string) string {
	return path.Base(strings.TrimRight(strings.TrimSpace(bookURL), "/"))
}

// DumpStem returns the dump filename stem for an already-fetched book,
// which is keyed by slug rather than URL.
func (b *Book) DumpStem() string {
	return b.Slug
}

// PrettyDir is the output directory for a book's rendered artifacts:
// <root>/<category>/<author> - <title>.
func PrettyDir(root string, b *Book) string {
	category := b.Category
	if category == "" {
		category = DefaultCategory
	}
	return filepath.Join(root, category, PrettyFilename(b, ""))
}

// PrettyFilename is the "<author> - <title>" base name used for every
// rendered artifact, with an optional extension appended.
func PrettyFilename(b *Book, extension string) string {
	return Sanitize(b.Author) + " - " + Sanitize(b.Title) + extension
}
