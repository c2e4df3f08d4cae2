package scrape

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"

	"blinkscrape/browser"
	"blinkscrape/dump"
)

const testSite = "https://site.test"

// fakeDriver serves canned pages keyed by URL and implements the Driver
// surface without a browser. Attribute reads and HTML dumps run over the
// canned page for the current location, so selector behavior matches the
// real session.
type fakeDriver struct {
	mu sync.Mutex

	pages     map[string]string // navigated URL -> page HTML
	redirects map[string]string // navigated URL -> final location

	current     string
	navigations int

	clickErr       error // forces the scripted-click fallback
	scriptClickErr error
	waitErrs       map[string]error // selector -> WaitVisible result

	captured   []browser.Request
	captureErr error
	scopes     []string
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{
		pages:     make(map[string]string),
		redirects: make(map[string]string),
		waitErrs:  make(map[string]error),
	}
}

func (d *fakeDriver) Navigate(url string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.navigations++
	if final, ok := d.redirects[url]; ok {
		d.current = final
	} else {
		d.current = url
	}
	return nil
}

func (d *fakeDriver) Location() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current, nil
}

func (d *fakeDriver) WaitVisible(sel string, timeout time.Duration) error {
	return d.waitErrs[sel]
}

func (d *fakeDriver) Click(sel string) error       { return d.clickErr }
func (d *fakeDriver) ClickScript(sel string) error { return d.scriptClickErr }

func (d *fakeDriver) Attr(sel, name string) (string, bool, error) {
	doc, err := d.document()
	if err != nil {
		return "", false, err
	}
	value, ok := doc.Find(sel).First().Attr(name)
	return value, ok, nil
}

func (d *fakeDriver) PageHTML() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	html, ok := d.pages[d.current]
	if !ok {
		return "", fmt.Errorf("no page served for %s", d.current)
	}
	return html, nil
}

func (d *fakeDriver) ResetRequests(scope string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.scopes = append(d.scopes, scope)
}

func (d *fakeDriver) WaitForRequest(substr string, timeout time.Duration) (browser.Request, error) {
	if d.captureErr != nil {
		return browser.Request{}, d.captureErr
	}
	for _, req := range d.captured {
		if strings.Contains(req.URL, substr) {
			return req, nil
		}
	}
	return browser.Request{}, errors.New("no request captured")
}

func (d *fakeDriver) document() (*goquery.Document, error) {
	html, err := d.PageHTML()
	if err != nil {
		return nil, err
	}
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

// newTestScraper wires a scraper against the fake driver, a temp dump
// store, and an optional API root.
func newTestScraper(t *testing.T, drv *fakeDriver, apiURL string) (*Scraper, *dump.Store, string) {
	t.Helper()
	dumpDir := t.TempDir()
	booksDir := t.TempDir()
	store := dump.NewStore(dumpDir)
	s := New(Config{
		Driver:         drv,
		API:            NewClient(apiURL, apiURL),
		Dumps:          store,
		BooksDir:       booksDir,
		SiteURL:        testSite,
		InterceptScope: "site.test",
		ChapterDelay:   time.Millisecond,
	})
	return s, store, booksDir
}
