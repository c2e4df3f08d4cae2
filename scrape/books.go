package scrape

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"blinkscrape/book"
)

// BooksForCategory collects every book URL on a category's listing page,
// in discovery order.
func (s *Scraper) BooksForCategory(cat book.Category) ([]string, error) {
	slog.Info("getting all books for category", "category", cat.Label)

	if err := s.drv.Navigate(strings.TrimRight(cat.URL, "/") + "/books"); err != nil {
		return nil, fmt.Errorf("failed to open category book list: %w", err)
	}

	doc, err := s.currentDocument()
	if err != nil {
		return nil, err
	}

	var urls []string
	doc.Find(".letter-book-list__item").Each(func(_ int, item *goquery.Selection) {
		if href, ok := item.Attr("href"); ok {
			urls = append(urls, href)
		}
	})
	slog.Info("found books", "count", len(urls))
	return urls, nil
}

// AllBooks collects every book URL from the sitewide sitemap, optionally
// constrained to URLs ending in the given locale suffix.
func (s *Scraper) AllBooks(languageFilter string) ([]string, error) {
	slog.Info("getting all books from sitemap")

	if err := s.drv.Navigate(s.siteURL + "/en/sitemap"); err != nil {
		return nil, fmt.Errorf("failed to open sitemap: %w", err)
	}

	doc, err := s.currentDocument()
	if err != nil {
		return nil, err
	}

	selector := ".sitemap__section.sitemap__section--books a"
	if languageFilter != "" {
		selector += fmt.Sprintf("[href$='%s']", languageFilter)
	}

	var urls []string
	doc.Find(selector).Each(func(_ int, item *goquery.Selection) {
		if href, ok := item.Attr("href"); ok {
			urls = append(urls, href)
		}
	})
	slog.Info("found books", "count", len(urls))
	return urls, nil
}

// DailyBookURL reads the promoted link from the daily-free-book page.
// Returns an empty string when no daily book is promoted.
func (s *Scraper) DailyBookURL(language string) (string, error) {
	if err := s.drv.Navigate(fmt.Sprintf("%s/%s/nc/daily", s.siteURL, language)); err != nil {
		return "", fmt.Errorf("failed to open daily book page: %w", err)
	}

	doc, err := s.currentDocument()
	if err != nil {
		return "", err
	}

	href, _ := doc.Find(".daily-book__infos a").First().Attr("href")
	return href, nil
}

// currentDocument parses the rendered HTML of the page the driver is
// currently on.
func (s *Scraper) currentDocument() (*goquery.Document, error) {
	html, err := s.drv.PageHTML()
	if err != nil {
		return nil, fmt.Errorf("failed to read page: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}
	return doc, nil
}
