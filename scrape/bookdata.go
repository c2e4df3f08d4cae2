package scrape

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"blinkscrape/book"
)

const readerContainerSelector = ".reader__container"

// BookDataOptions controls a single BookData call.
type BookDataOptions struct {
	// Category is assigned onto the persisted record. An empty label
	// falls back to book.DefaultCategory.
	Category book.Category
	// MatchLanguage skips books whose payload language differs. Empty
	// disables the check.
	MatchLanguage string
	// Force bypasses the dump check and re-fetches.
	Force bool
}

// BookData resolves a book URL to a complete, persisted book record.
//
// The dump is the resume mechanism: unless Force is set, an existing
// dump is returned directly with alreadyDumped=true and nothing touches
// the network. A language mismatch under MatchLanguage returns
// (nil, false, nil): an intentional skip, not an error. A redirect to
// the upgrade page returns ErrUpgradeRequired, which is fatal for the
// whole run.
func (s *Scraper) BookData(ctx context.Context, bookURL string, opts BookDataOptions) (bk *book.Book, alreadyDumped bool, err error) {
	stem := book.DumpStem(bookURL)
	if !opts.Force && s.dumps.Exists(stem) {
		slog.Debug("json dump already exists, skipping scrape", "url", bookURL)
		cached, err := s.dumps.Load(stem)
		if err != nil {
			return nil, false, fmt.Errorf("failed to load existing dump: %w", err)
		}
		return cached, true, nil
	}

	slog.Info("scraping book", "url", bookURL)

	// the listing URL and the reader URL differ only in one path segment
	readerURL := bookURL
	if !strings.Contains(readerURL, "/nc/reader/") {
		readerURL = strings.Replace(readerURL, "/books/", "/nc/reader/", 1)
	}

	current, err := s.drv.Location()
	if err != nil {
		return nil, false, fmt.Errorf("failed to read current location: %w", err)
	}
	if current != readerURL {
		if err := s.drv.Navigate(readerURL); err != nil {
			return nil, false, fmt.Errorf("failed to open reader page: %w", err)
		}
	}
	if err := s.checkUpgradeRedirect(); err != nil {
		return nil, false, err
	}

	id, ok, err := s.drv.Attr(readerContainerSelector, "data-book-id")
	if err != nil || !ok || id == "" {
		return nil, false, &ElementNotFoundError{Selector: readerContainerSelector}
	}

	fetched, err := s.api.Book(ctx, id)
	if err != nil {
		return nil, false, err
	}

	if opts.MatchLanguage != "" && fetched.Language != opts.MatchLanguage {
		slog.Warn("book not available in the requested language, skipping",
			"slug", fetched.Slug, "want", opts.MatchLanguage, "got", fetched.Language)
		return nil, false, nil
	}

	// titles and authors become path components downstream
	fetched.Title = book.Sanitize(fetched.Title)
	fetched.Author = book.Sanitize(fetched.Author)

	// promotional payloads embed chapter text already; everything else
	// has to be spliced in from the rendered reader page
	if fetched.MigrateEmbeddedText() {
		if err := s.scrapeChapterContent(fetched); err != nil {
			return nil, false, err
		}
	}

	fetched.Category = opts.Category.Label
	if fetched.Category == "" {
		fetched.Category = book.DefaultCategory
	}

	if _, err := s.dumps.Save(fetched); err != nil {
		return nil, false, fmt.Errorf("failed to persist book: %w", err)
	}
	return fetched, false, nil
}

// scrapeChapterContent splices chapter (and supplement) HTML from the
// rendered reader page into the book record. Blocks are matched to
// chapters by their data-chapterno attribute against order_no: DOM scan
// order is not guaranteed to equal logical order.
func (s *Scraper) scrapeChapterContent(bk *book.Book) error {
	doc, err := s.currentDocument()
	if err != nil {
		return err
	}

	doc.Find(".chapter.chapter").Each(func(_ int, block *goquery.Selection) {
		ch := chapterForBlock(bk, block)
		if ch == nil {
			return
		}
		content, err := block.Find(".chapter__content").First().Html()
		if err != nil {
			slog.Warn("failed to read chapter content block", "order_no", ch.OrderNo, "err", err)
			return
		}
		ch.Content = content
	})

	doc.Find(".chapter.supplement").Each(func(_ int, block *goquery.Selection) {
		ch := chapterForBlock(bk, block)
		if ch == nil {
			return
		}
		// first-write-wins: never clobber an existing supplement
		if ch.Supplement != nil && *ch.Supplement != "" {
			return
		}
		content, err := block.Find(".chapter__content").First().Html()
		if err != nil {
			slog.Warn("failed to read supplement block", "order_no", ch.OrderNo, "err", err)
			return
		}
		ch.Supplement = &content
	})

	return nil
}

// chapterForBlock resolves a rendered chapter block to the record with
// the matching order_no.
func chapterForBlock(bk *book.Book, block *goquery.Selection) *book.Chapter {
	noStr, ok := block.Attr("data-chapterno")
	if !ok {
		return nil
	}
	no, err := strconv.Atoi(strings.TrimSpace(noStr))
	if err != nil {
		return nil
	}
	return bk.ChapterByOrderNo(no)
}

// checkUpgradeRedirect detects the paywall redirect that means the
// account tier cannot read this content.
func (s *Scraper) checkUpgradeRedirect() error {
	current, err := s.drv.Location()
	if err != nil {
		return fmt.Errorf("failed to read current location: %w", err)
	}
	if strings.HasSuffix(strings.TrimRight(current, "/"), "/nc/plans") {
		return fmt.Errorf("%s: %w", current, ErrUpgradeRequired)
	}
	return nil
}
