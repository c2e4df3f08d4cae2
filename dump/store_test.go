package dump

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blinkscrape/book"
)

func testBook() *book.Book {
	return &book.Book{
		ID:       "b1",
		Slug:     "deep-work-en",
		Title:    "Deep Work",
		Author:   "Cal Newport",
		Language: "en",
		Category: "Productivity",
		Chapters: []book.Chapter{
			{ID: "c0", OrderNo: 0, Title: "Intro", Content: "<p>hi</p>"},
		},
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "dump"))
	b := testBook()

	assert.False(t, store.Exists(b.DumpStem()))

	path, err := store.Save(b)
	require.NoError(t, err)
	assert.FileExists(t, path)
	assert.True(t, store.Exists(b.DumpStem()))

	// a URL-derived stem resolves to the same dump as the slug
	urlStem := book.DumpStem("https://www.blinkist.com/en/books/deep-work-en")
	assert.True(t, store.Exists(urlStem))

	loaded, err := store.Load(urlStem)
	require.NoError(t, err)
	assert.Equal(t, b, loaded)
}

func TestLoadNotFound(t *testing.T) {
	store := NewStore(t.TempDir())
	_, err := store.Load("missing-book")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestLoadCorruptDump(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{trunc"), 0o644))

	_, err := store.Load("bad")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestSaveOverwrites(t *testing.T) {
	store := NewStore(t.TempDir())
	b := testBook()
	_, err := store.Save(b)
	require.NoError(t, err)

	b.Title = "Deep Work Revised"
	_, err = store.Save(b)
	require.NoError(t, err)

	loaded, err := store.Load(b.DumpStem())
	require.NoError(t, err)
	assert.Equal(t, "Deep Work Revised", loaded.Title)
}

func TestList(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)

	_, err := store.Save(testBook())
	require.NoError(t, err)
	other := testBook()
	other.Slug = "atomic-habits-en"
	_, err = store.Save(other)
	require.NoError(t, err)

	// corrupt files are collected, not fatal
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte("nope"), 0o644))

	result, err := store.List()
	require.NoError(t, err)
	assert.Len(t, result.Books, 2)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "bad.json", result.Errors[0].Filename)
}

func TestListMissingDirectory(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "never-created"))
	result, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, result.Books)
}
