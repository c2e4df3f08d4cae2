// Package scrape implements the book-scraping pipeline: category and
// book discovery, the per-book fetch/cache/resume state machine, and
// audio/cover retrieval. It drives the site through a browser session
// and talks to the content API directly.
package scrape

import (
	"time"

	"blinkscrape/browser"
	"blinkscrape/dump"
)

// Driver is the browser capability the scraper needs. browser.Session
// satisfies it; tests substitute a fake serving canned pages.
type Driver interface {
	Navigate(url string) error
	Location() (string, error)
	WaitVisible(sel string, timeout time.Duration) error
	Click(sel string) error
	ClickScript(sel string) error
	Attr(sel, name string) (string, bool, error)
	PageHTML() (string, error)
	ResetRequests(scope string)
	WaitForRequest(substr string, timeout time.Duration) (browser.Request, error)
}

// Config assembles a Scraper. Everything is passed explicitly; the
// scraper keeps no ambient state.
type Config struct {
	Driver   Driver
	API      *Client
	Dumps    *dump.Store
	BooksDir string

	// SiteURL overrides the production site root. Tests point it at a
	// local server.
	SiteURL string
	// InterceptScope restricts request capture to URLs containing this
	// substring. Defaults to "blinkist".
	InterceptScope string
	// ChapterDelay is the politeness pause before each per-chapter audio
	// request. Defaults to one second.
	ChapterDelay time.Duration
}

// Scraper runs all site-facing fetch operations over one browser session
// and one API client, strictly sequentially.
type Scraper struct {
	drv          Driver
	api          *Client
	dumps        *dump.Store
	booksDir     string
	siteURL      string
	scope        string
	chapterDelay time.Duration
}

// New creates a Scraper from cfg, applying defaults for the optional
// fields.
func New(cfg Config) *Scraper {
	s := &Scraper{
		drv:          cfg.Driver,
		api:          cfg.API,
		dumps:        cfg.Dumps,
		booksDir:     cfg.BooksDir,
		siteURL:      cfg.SiteURL,
		scope:        cfg.InterceptScope,
		chapterDelay: cfg.ChapterDelay,
	}
	if s.siteURL == "" {
		s.siteURL = "https://www.blinkist.com"
	}
	if s.scope == "" {
		s.scope = "blinkist"
	}
	if s.chapterDelay == 0 {
		s.chapterDelay = time.Second
	}
	return s
}
