// Package dump persists per-book JSON snapshots. The existence of a dump
// is the authoritative signal that a book's metadata scrape is complete;
// audio and rendered outputs have their own idempotence checks.
package dump

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"blinkscrape/book"
)

// ErrNotFound is returned by Load when no dump exists for the key.
var ErrNotFound = errors.New("no dump exists for this book")

// Store reads and writes book dumps under a single directory. Keys are
// dump stems: either the tail segment of a book URL or a book's slug
// (see book.DumpStem).
type Store struct {
	root string
}

// ReadError describes a failure to read a single dump file during List.
type ReadError struct {
	Filename string
	Err      error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("%s: %v", e.Filename, e.Err)
}

// ListResult contains the results of loading every dump in the store.
// Corrupted files are collected in Errors rather than failing the whole
// operation.
type ListResult struct {
	Books  []*book.Book
	Errors []ReadError
}

// NewStore creates a store rooted at dir. The directory is created lazily
// on the first Save.
func NewStore(dir string) *Store {
	return &Store{root: dir}
}

// Path returns the dump file path for a stem.
func (s *Store) Path(stem string) string {
	return filepath.Join(s.root, stem+".json")
}

// Exists reports whether a dump is present for the stem.
func (s *Store) Exists(stem string) bool {
	_, err := os.Stat(s.Path(stem))
	return err == nil
}

// Load reads and decodes the dump for a stem. Returns ErrNotFound when
// the dump is absent; a truncated or corrupt dump surfaces as a decode
// error (a crash mid-Save can leave one behind).
func (s *Store) Load(stem string) (*book.Book, error) {
	data, err := os.ReadFile(s.Path(stem))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", stem, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read dump: %w", err)
	}

	var b book.Book
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("failed to decode dump %s: %w", stem, err)
	}
	return &b, nil
}

// Save writes the book's dump, creating parent directories as needed and
// overwriting any previous dump unconditionally. Returns the written
// path.
func (s *Store) Save(b *book.Book) (string, error) {
	path := s.Path(b.DumpStem())

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create dump directory: %w", err)
	}

	data, err := json.MarshalIndent(b, "", "    ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal book: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write dump: %w", err)
	}
	return path, nil
}

// List loads every dump in the store. A non-nil error indicates a total
// failure (e.g. the directory is unreadable); per-file failures are
// reported in the result.
func (s *Store) List() (*ListResult, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return &ListResult{}, nil
		}
		return nil, fmt.Errorf("failed to read dump directory: %w", err)
	}

	result := &ListResult{}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		stem := strings.TrimSuffix(entry.Name(), ".json")
		b, err := s.Load(stem)
		if err != nil {
			result.Errors = append(result.Errors, ReadError{
				Filename: entry.Name(),
				Err:      err,
			})
			continue
		}
		result.Books = append(result.Books, b)
	}
	return result, nil
}
