// Package browser wraps a single chromedp-driven Chrome session. It is
// the only component that talks CDP; everything above it sees a small
// navigate/wait/read surface plus intercepted network requests.
package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// A fixed desktop user agent. Running with chromedp's default UA gets the
// session flagged as a bot almost immediately.
const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) " +
	"Chrome/120.0.0.0 Safari/537.36"

// stealthJS hides the navigator.webdriver flag that headless Chrome
// exposes to every page.
const stealthJS = `Object.defineProperty(navigator, 'webdriver', {get: () => undefined})`

// Options configures a new Session.
type Options struct {
	Headless   bool
	NoSandbox  bool
	CookieFile string
}

// Session owns one Chrome instance and its cookie jar. It is not safe
// for concurrent use; the scraper is strictly sequential by design.
type Session struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	requests    *interceptor
	cookies     *CookieStore
}

// NewSession launches Chrome and prepares it for scraping: network event
// capture enabled, automation tells suppressed. The session dies with the
// parent context.
func NewSession(parent context.Context, opts Options) (*Session, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("window-size", "1920,1080"),
		chromedp.UserAgent(userAgent),
	)
	if opts.NoSandbox {
		allocOpts = append(allocOpts, chromedp.NoSandbox)
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(parent, allocOpts...)
	ctx, cancel := chromedp.NewContext(allocCtx)

	s := &Session{
		ctx:         ctx,
		cancel:      cancel,
		allocCancel: allocCancel,
		requests:    newInterceptor(),
		cookies:     NewCookieStore(opts.CookieFile),
	}
	s.requests.listen(ctx)

	err := chromedp.Run(ctx,
		network.Enable(),
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(stealthJS).Do(ctx)
			return err
		}),
	)
	if err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}
	return s, nil
}

// Close shuts the browser down.
func (s *Session) Close() {
	s.cancel()
	s.allocCancel()
}

// Navigate loads the given URL and waits for the navigation to complete.
func (s *Session) Navigate(url string) error {
	return chromedp.Run(s.ctx, chromedp.Navigate(url))
}

// Location returns the current page URL.
func (s *Session) Location() (string, error) {
	var url string
	err := chromedp.Run(s.ctx, chromedp.Location(&url))
	return url, err
}

// WaitVisible blocks until the selector matches a visible element or the
// timeout elapses.
func (s *Session) WaitVisible(sel string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()
	if err := chromedp.Run(ctx, chromedp.WaitVisible(sel, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("waiting for %q: %w", sel, err)
	}
	return nil
}

// Click clicks the first element matched by the selector.
func (s *Session) Click(sel string) error {
	ctx, cancel := context.WithTimeout(s.ctx, 10*time.Second)
	defer cancel()
	return chromedp.Run(ctx, chromedp.Click(sel, chromedp.ByQuery))
}

// ClickScript clicks via injected JavaScript. Fallback for elements the
// driver reports as present but not interactable.
func (s *Session) ClickScript(sel string) error {
	script := fmt.Sprintf("document.querySelector(%q).click()", sel)
	return chromedp.Run(s.ctx, chromedp.Evaluate(script, nil))
}

// Exists reports whether the selector matches any element on the current
// page, without waiting.
func (s *Session) Exists(sel string) (bool, error) {
	var found bool
	script := fmt.Sprintf("document.querySelector(%q) !== null", sel)
	err := chromedp.Run(s.ctx, chromedp.Evaluate(script, &found))
	return found, err
}

// Attr reads an attribute from the first element matched by the selector.
// The second return reports whether the attribute was present.
func (s *Session) Attr(sel, name string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(s.ctx, 10*time.Second)
	defer cancel()
	var value string
	var ok bool
	err := chromedp.Run(ctx, chromedp.AttributeValue(sel, name, &value, &ok, chromedp.ByQuery))
	return value, ok, err
}

// SendKeys types text into the element matched by the selector.
func (s *Session) SendKeys(sel, text string) error {
	ctx, cancel := context.WithTimeout(s.ctx, 10*time.Second)
	defer cancel()
	return chromedp.Run(ctx, chromedp.SendKeys(sel, text, chromedp.ByQuery))
}

// PageHTML returns the full rendered HTML of the current page.
func (s *Session) PageHTML() (string, error) {
	var html string
	err := chromedp.Run(s.ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	return html, err
}

// ResetRequests clears all captured network requests and restricts future
// capture to URLs containing scope.
func (s *Session) ResetRequests(scope string) {
	s.requests.reset(scope)
}

// WaitForRequest blocks until a captured request URL contains substr, or
// the timeout elapses.
func (s *Session) WaitForRequest(substr string, timeout time.Duration) (Request, error) {
	ctx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()
	return s.requests.waitFor(ctx, substr)
}
