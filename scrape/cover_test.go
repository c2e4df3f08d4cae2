package scrape

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blinkscrape/book"
)

func newCoverServer(t *testing.T) (*httptest.Server, *int32) {
	t.Helper()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		require.Equal(t, "/images/1_1/640/deep-work.jpg", r.URL.Path)
		fmt.Fprint(w, "jpeg-bytes")
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func coverBook(srvURL string) *book.Book {
	bk := audioBook()
	bk.Images.URLTemplate = srvURL + "/images/%type%/%size%/deep-work.jpg"
	return bk
}

func TestCoverDownloads(t *testing.T) {
	srv, hits := newCoverServer(t)
	drv := newFakeDriver()
	s, _, booksDir := newTestScraper(t, drv, "")

	bk := coverBook(srv.URL)
	path, err := s.Cover(context.Background(), bk, "cover.jpg", "_cover.jpg")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(book.PrettyDir(booksDir, bk), "cover.jpg"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(data))
	assert.EqualValues(t, 1, *hits)
}

func TestCoverExistingTargetUntouched(t *testing.T) {
	srv, hits := newCoverServer(t)
	drv := newFakeDriver()
	s, _, booksDir := newTestScraper(t, drv, "")

	bk := coverBook(srv.URL)
	dir := book.PrettyDir(booksDir, bk)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cover.jpg"), []byte("kept"), 0o644))

	path, err := s.Cover(context.Background(), bk, "cover.jpg", "_cover.jpg")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "kept", string(data))
	assert.Zero(t, *hits)
}

func TestCoverCopiesAlternate(t *testing.T) {
	srv, hits := newCoverServer(t)
	drv := newFakeDriver()
	s, _, booksDir := newTestScraper(t, drv, "")

	bk := coverBook(srv.URL)
	dir := book.PrettyDir(booksDir, bk)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "_cover.jpg"), []byte("same-image"), 0o644))

	path, err := s.Cover(context.Background(), bk, "cover.jpg", "_cover.jpg")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "same-image", string(data))
	assert.Zero(t, *hits)
}

func TestCoverMissingTemplate(t *testing.T) {
	drv := newFakeDriver()
	s, _, _ := newTestScraper(t, drv, "")

	bk := audioBook()
	_, err := s.Cover(context.Background(), bk, "cover.jpg", "_cover.jpg")
	var schemaErr *book.SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, "images.url_template", schemaErr.Field)
}
