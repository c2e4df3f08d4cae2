package scrape

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blinkscrape/book"
)

func TestBooksForCategory(t *testing.T) {
	drv := newFakeDriver()
	drv.pages["https://site.test/en/nc/categories/health-en/books"] = `<html><body>
	<a class="letter-book-list__item" href="https://site.test/en/books/sleep-en">Sleep</a>
	<a class="letter-book-list__item" href="https://site.test/en/books/breath-en">Breath</a>
	</body></html>`
	s, _, _ := newTestScraper(t, drv, "")

	urls, err := s.BooksForCategory(book.Category{
		Label: "Health",
		URL:   "https://site.test/en/nc/categories/health-en",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://site.test/en/books/sleep-en",
		"https://site.test/en/books/breath-en",
	}, urls)
}

func TestAllBooks(t *testing.T) {
	sitemap := `<html><body>
	<div class="sitemap__section sitemap__section--books">
	  <a href="https://site.test/en/books/deep-work-en">Deep Work</a>
	  <a href="https://site.test/de/books/konzentriert-arbeiten-de">Konzentriert Arbeiten</a>
	</div>
	</body></html>`
	drv := newFakeDriver()
	drv.pages[testSite+"/en/sitemap"] = sitemap
	s, _, _ := newTestScraper(t, drv, "")

	t.Run("unfiltered", func(t *testing.T) {
		urls, err := s.AllBooks("")
		require.NoError(t, err)
		assert.Len(t, urls, 2)
	})

	t.Run("locale suffix filter", func(t *testing.T) {
		urls, err := s.AllBooks("de")
		require.NoError(t, err)
		assert.Equal(t, []string{"https://site.test/de/books/konzentriert-arbeiten-de"}, urls)
	})
}

func TestDailyBookURL(t *testing.T) {
	drv := newFakeDriver()
	drv.pages[testSite+"/en/nc/daily"] = `<html><body>
	<div class="daily-book__infos"><a href="https://site.test/en/books/free-today-en">Today</a></div>
	</body></html>`
	s, _, _ := newTestScraper(t, drv, "")

	url, err := s.DailyBookURL("en")
	require.NoError(t, err)
	assert.Equal(t, "https://site.test/en/books/free-today-en", url)
}

func TestDailyBookURLAbsent(t *testing.T) {
	drv := newFakeDriver()
	drv.pages[testSite+"/en/nc/daily"] = `<html><body><p>Nothing today</p></body></html>`
	s, _, _ := newTestScraper(t, drv, "")

	url, err := s.DailyBookURL("en")
	require.NoError(t, err)
	assert.Empty(t, url)
}
