package book

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"forbidden characters stripped", `A/B: Title?`, "AB Title"},
		{"dots stripped", "Mr. Penumbra", "Mr Penumbra"},
		{"windows reserved characters", `a\b*c?d:e"f<g>h|i`, "abcdefghi"},
		{"surrounding whitespace trimmed", "  spaced out  ", "spaced out"},
		{"clean name untouched", "Deep Work", "Deep Work"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sanitize(tt.in))
		})
	}
}

func TestDumpStem(t *testing.T) {
	assert.Equal(t, "deep-work-en",
		DumpStem("https://www.blinkist.com/en/books/deep-work-en"))
	assert.Equal(t, "deep-work-en",
		DumpStem("https://www.blinkist.com/en/nc/reader/deep-work-en/"))

	b := &Book{Slug: "atomic-habits-en"}
	assert.Equal(t, "atomic-habits-en", b.DumpStem())
}

func TestPrettyPaths(t *testing.T) {
	b := &Book{
		Title:    "Deep Work: Rules",
		Author:   "Cal Newport",
		Category: "Productivity",
	}

	assert.Equal(t, "Cal Newport - Deep Work Rules.html", PrettyFilename(b, ".html"))
	assert.Equal(t,
		filepath.Join("books", "Productivity", "Cal Newport - Deep Work Rules"),
		PrettyDir("books", b))
}

func TestPrettyDirDefaultsCategory(t *testing.T) {
	b := &Book{Title: "Untitled", Author: "Anon"}
	assert.Equal(t,
		filepath.Join("books", DefaultCategory, "Anon - Untitled"),
		PrettyDir("books", b))
}
