package scrape

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"blinkscrape/book"
)

const (
	pageReadyTimeout = 360 * time.Second
	menuTimeout      = 45 * time.Second
)

// categoryContainerSelectors are tried in priority order: the site has
// renamed the categories container across markup versions, and the first
// match wins.
var categoryContainerSelectors = []string{
	".discover-menu__categories",
	".category-list",
}

// Categories discovers category links from the site's navigation menu
// and applies the include/exclude label filters.
//
// Include terms keep a category when at least one is a case-insensitive
// substring of its label; exclude terms are evaluated afterwards and can
// veto an included category.
func (s *Scraper) Categories(language string, include, exclude []string) ([]book.Category, error) {
	listURL := fmt.Sprintf("%s/%s/nc/login", s.siteURL, language)
	if err := s.drv.Navigate(listURL); err != nil {
		return nil, fmt.Errorf("failed to open category listing: %w", err)
	}

	// best-effort readiness wait: a timeout is logged, then enumeration
	// proceeds anyway
	if err := s.drv.WaitVisible(".main-banner-headline-v2", pageReadyTimeout); err != nil {
		slog.Warn("category listing page may not be fully loaded", "err", err)
	}

	// open the discover dropdown so the category links exist in the DOM
	if err := s.drv.WaitVisible(".header-menu__trigger", menuTimeout); err != nil {
		slog.Warn("could not find categories dropdown element", "err", err)
		return nil, &ElementNotFoundError{Selector: ".header-menu__trigger"}
	}
	if err := s.drv.Click(".header-menu__trigger"); err != nil {
		slog.Debug("dropdown not interactable, using scripted click", "err", err)
		if err := s.drv.ClickScript(".header-menu__trigger"); err != nil {
			return nil, fmt.Errorf("failed to open categories dropdown: %w", err)
		}
	}

	html, err := s.drv.PageHTML()
	if err != nil {
		return nil, fmt.Errorf("failed to read page: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}

	var container *goquery.Selection
	for _, sel := range categoryContainerSelectors {
		if m := doc.Find(sel); m.Length() > 0 {
			container = m.First()
			break
		}
		slog.Debug("categories container selector did not match", "selector", sel)
	}
	if container == nil {
		return nil, &ContainerNotFoundError{Candidates: categoryContainerSelectors}
	}

	var categories []book.Category
	container.Find("li").Each(func(_ int, li *goquery.Selection) {
		link := li.Find("a").First()
		href, ok := link.Attr("href")
		if !ok {
			return
		}
		// goquery decodes HTML entities; collapse the label's whitespace
		label := strings.Join(strings.Fields(link.Find("span").First().Text()), " ")
		if label == "" || !matchLabel(label, include, exclude) {
			return
		}
		categories = append(categories, book.Category{Label: label, URL: href})
	})

	labels := make([]string, len(categories))
	for i, c := range categories {
		labels[i] = c.Label
	}
	slog.Info("scraping categories", "categories", strings.Join(labels, ", "))
	return categories, nil
}

// matchLabel applies the include/exclude substring filters to a label.
func matchLabel(label string, include, exclude []string) bool {
	lower := strings.ToLower(label)

	if len(include) > 0 {
		kept := false
		for _, term := range include {
			if term != "" && strings.Contains(lower, strings.ToLower(term)) {
				kept = true
				break
			}
		}
		if !kept {
			return false
		}
	}

	for _, term := range exclude {
		if term != "" && strings.Contains(lower, strings.ToLower(term)) {
			return false
		}
	}
	return true
}
