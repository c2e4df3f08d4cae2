// Package run drives a whole scraping session: choosing which books to
// visit, fetching each one, and handing the results to the output
// generators. Processing is strictly sequential over one browser
// session.
package run

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"blinkscrape/book"
	"blinkscrape/config"
	"blinkscrape/dump"
	"blinkscrape/ledger"
	"blinkscrape/scrape"
)

// Scraper is the site-facing surface the runner drives.
type Scraper interface {
	Categories(language string, include, exclude []string) ([]book.Category, error)
	BooksForCategory(cat book.Category) ([]string, error)
	AllBooks(languageFilter string) ([]string, error)
	DailyBookURL(language string) (string, error)
	BookData(ctx context.Context, bookURL string, opts scrape.BookDataOptions) (*book.Book, bool, error)
	Audio(ctx context.Context, bk *book.Book, language string) ([]string, error)
	Cover(ctx context.Context, bk *book.Book, filename, altFilename string) (string, error)
}

// Generator renders output artifacts for a scraped book.
type Generator interface {
	HTML(bk *book.Book, coverFile string) (string, error)
	EPUB(bk *book.Book) (string, error)
	PDF(ctx context.Context, bk *book.Book, coverFile string) (string, error)
	CombineAudio(ctx context.Context, bk *book.Book, files []string, keepParts bool, coverFile string) (string, error)
}

// Summary is what a run reports when it ends, including after an
// interrupt or a fatal error.
type Summary struct {
	Processed int
	Elapsed   time.Duration
}

// Runner executes one scraping session according to its options.
type Runner struct {
	scraper Scraper
	gen     Generator
	dumps   *dump.Store
	ledger  *ledger.Ledger // nil disables run recording
	opts    config.Options

	cooldown time.Duration
}

func New(s Scraper, g Generator, dumps *dump.Store, led *ledger.Ledger, opts config.Options) *Runner {
	return &Runner{
		scraper:  s,
		gen:      g,
		dumps:    dumps,
		ledger:   led,
		opts:     opts,
		cooldown: time.Duration(opts.Cooldown) * time.Second,
	}
}

// Run works through the selected books and always returns a summary,
// even when it exits early. ErrUpgradeRequired and context cancellation
// abort the run; any other per-book failure is logged and skipped.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	start := time.Now()

	var runID uuid.UUID
	if r.ledger != nil {
		id, err := r.ledger.BeginRun()
		if err != nil {
			slog.Warn("failed to record run start", "err", err)
			r.ledger = nil
		} else {
			runID = id
		}
	}

	var processed []string
	var err error
	if r.opts.NoScrape {
		err = r.reprocessDumps(ctx, &processed, runID)
	} else {
		err = r.scrapeRun(ctx, &processed, runID)
	}

	summary := Summary{Processed: len(processed), Elapsed: time.Since(start)}
	if r.ledger != nil {
		if lerr := r.ledger.FinishRun(runID, summary.Processed); lerr != nil {
			slog.Warn("failed to record run end", "err", lerr)
		}
	}
	return summary, err
}

func (r *Runner) scrapeRun(ctx context.Context, processed *[]string, runID uuid.UUID) error {
	switch {
	case r.opts.BookURL != "" || r.opts.DailyBook:
		return r.scrapeSingle(ctx, processed, runID)
	case r.opts.BooksFile != "":
		return r.scrapeList(ctx, processed, runID)
	default:
		return r.scrapeCategories(ctx, processed, runID)
	}
}

func (r *Runner) scrapeSingle(ctx context.Context, processed *[]string, runID uuid.UUID) error {
	bookURL := r.opts.BookURL
	if r.opts.DailyBook {
		url, err := r.scraper.DailyBookURL(r.opts.Language)
		if err != nil {
			return fmt.Errorf("failed to find the daily book: %w", err)
		}
		if url == "" {
			slog.Info("no free daily book is on offer today")
			return nil
		}
		bookURL = url
	}

	_, err := r.processBook(ctx, bookURL, r.singleCategory(), processed, runID)
	if errors.Is(err, scrape.ErrUpgradeRequired) || errors.Is(err, context.Canceled) {
		return err
	}
	if err != nil {
		slog.Error("failed to process book", "url", bookURL, "err", err)
	}
	return nil
}

func (r *Runner) scrapeList(ctx context.Context, processed *[]string, runID uuid.UUID) error {
	f, err := os.Open(r.opts.BooksFile)
	if err != nil {
		return fmt.Errorf("failed to open book list: %w", err)
	}
	defer f.Close()

	var urls []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if trimmed := trimLine(line); trimmed != "" {
			urls = append(urls, trimmed)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read book list: %w", err)
	}

	return r.processBooks(ctx, urls, r.singleCategory(), processed, runID)
}

func (r *Runner) scrapeCategories(ctx context.Context, processed *[]string, runID uuid.UUID) error {
	categories, err := r.scraper.Categories(r.opts.Language, r.opts.Categories, r.opts.IgnoreCategories)
	if err != nil {
		return fmt.Errorf("failed to enumerate categories: %w", err)
	}

	for _, cat := range categories {
		urls, err := r.scraper.BooksForCategory(cat)
		if err != nil {
			slog.Error("failed to list books for category", "category", cat.Label, "err", err)
			continue
		}
		if err := r.processBooks(ctx, urls, cat, processed, runID); err != nil {
			return err
		}
	}

	// books the category listings never surfaced
	languageFilter := ""
	if r.opts.MatchLanguage {
		languageFilter = r.opts.Language
	}
	all, err := r.scraper.AllBooks(languageFilter)
	if err != nil {
		slog.Error("failed to enumerate the book sitemap", "err", err)
		return nil
	}
	remaining := subtract(all, *processed)
	slog.Info("scraping remaining uncategorized books", "count", len(remaining))
	return r.processBooks(ctx, remaining, book.Category{Label: book.DefaultCategory}, processed, runID)
}

// processBooks walks urls in order, with the cooldown pause after every
// book that actually touched the network.
func (r *Runner) processBooks(ctx context.Context, urls []string, cat book.Category, processed *[]string, runID uuid.UUID) error {
	for _, bookURL := range urls {
		dumpExists, err := r.processBook(ctx, bookURL, cat, processed, runID)
		if err != nil {
			if errors.Is(err, scrape.ErrUpgradeRequired) || errors.Is(err, context.Canceled) {
				return err
			}
			slog.Error("failed to process book, continuing", "url", bookURL, "err", err)
		}
		if !dumpExists {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(r.cooldown):
			}
		}
	}
	return nil
}

// processBook runs the full per-book pipeline: metadata, audio, cover
// and rendered outputs.
func (r *Runner) processBook(ctx context.Context, bookURL string, cat book.Category, processed *[]string, runID uuid.UUID) (dumpExists bool, err error) {
	matchLanguage := ""
	if r.opts.MatchLanguage {
		matchLanguage = r.opts.Language
	}

	bk, dumpExists, err := r.scraper.BookData(ctx, bookURL, scrape.BookDataOptions{
		Category:      cat,
		MatchLanguage: matchLanguage,
	})
	if err != nil {
		r.recordBook(runID, bookURL, "", cat.Label, ledger.StatusFailed)
		return dumpExists, err
	}
	if bk == nil {
		r.recordBook(runID, bookURL, "", cat.Label, ledger.StatusSkipped)
		return dumpExists, nil
	}

	if r.opts.Audio {
		r.fetchAudio(ctx, bk)
	}

	coverFile := ""
	if r.opts.SaveCover {
		path, err := r.scraper.Cover(ctx, bk, "cover.jpg", "_cover.jpg")
		if err != nil {
			slog.Warn("failed to download cover", "slug", bk.Slug, "err", err)
		} else {
			coverFile = path
		}
	}

	if err := r.generateOutputs(ctx, bk, coverFile); err != nil {
		r.recordBook(runID, bookURL, bk.Slug, bk.Category, ledger.StatusFailed)
		return dumpExists, err
	}

	*processed = append(*processed, bookURL)
	status := ledger.StatusScraped
	if dumpExists {
		status = ledger.StatusCached
	}
	r.recordBook(runID, bookURL, bk.Slug, bk.Category, status)
	return dumpExists, nil
}

// fetchAudio downloads and optionally concatenates a book's audio.
// Audio failures never fail the book: the text outputs still get
// generated.
func (r *Runner) fetchAudio(ctx context.Context, bk *book.Book) {
	if _, err := os.Stat(scrape.ConcatAudioPath(r.opts.BooksDir, bk)); err == nil {
		slog.Debug("concatenated audio already exists, skipping download", "slug", bk.Slug)
		return
	}

	files, err := r.scraper.Audio(ctx, bk, r.opts.Language)
	if errors.Is(err, scrape.ErrNoAudio) {
		slog.Debug("no audio blinks for this book", "slug", bk.Slug)
		return
	}
	if err != nil {
		slog.Warn("failed to scrape audio", "slug", bk.Slug, "err", err)
		return
	}

	if !r.opts.ConcatAudio || len(files) == 0 {
		return
	}

	coverTmp := ""
	if r.opts.EmbedCoverArt {
		path, err := r.scraper.Cover(ctx, bk, "_cover.jpg", "cover.jpg")
		if err != nil {
			slog.Warn("failed to download cover for embedding", "slug", bk.Slug, "err", err)
		} else {
			coverTmp = path
		}
	}

	if _, err := r.gen.CombineAudio(ctx, bk, files, r.opts.KeepParts, coverTmp); err != nil {
		slog.Warn("failed to combine audio", "slug", bk.Slug, "err", err)
	}

	if coverTmp != "" {
		slog.Debug("deleting temporary cover", "path", coverTmp)
		if err := os.Remove(coverTmp); err != nil && !os.IsNotExist(err) {
			slog.Warn("failed to delete temporary cover", "path", coverTmp, "err", err)
		}
	}
}

func (r *Runner) generateOutputs(ctx context.Context, bk *book.Book, coverFile string) error {
	if r.opts.CreateHTML {
		if _, err := r.gen.HTML(bk, coverFile); err != nil {
			return fmt.Errorf("failed to generate html: %w", err)
		}
	}
	if r.opts.CreateEPUB {
		if _, err := r.gen.EPUB(bk); err != nil {
			return fmt.Errorf("failed to generate epub: %w", err)
		}
	}
	if r.opts.CreatePDF {
		if _, err := r.gen.PDF(ctx, bk, coverFile); err != nil {
			return fmt.Errorf("failed to generate pdf: %w", err)
		}
	}
	return nil
}

// reprocessDumps regenerates outputs from existing dumps without any
// browser or network activity.
func (r *Runner) reprocessDumps(ctx context.Context, processed *[]string, runID uuid.UUID) error {
	result, err := r.dumps.List()
	if err != nil {
		return err
	}
	for _, re := range result.Errors {
		slog.Warn("skipping unreadable dump", "file", re.Filename, "err", re.Err)
	}

	for _, bk := range result.Books {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := r.generateOutputs(ctx, bk, ""); err != nil {
			slog.Error("failed to process dump, continuing", "slug", bk.Slug, "err", err)
			r.recordBook(runID, "", bk.Slug, bk.Category, ledger.StatusFailed)
			continue
		}
		*processed = append(*processed, bk.Slug)
		r.recordBook(runID, "", bk.Slug, bk.Category, ledger.StatusCached)
	}
	return nil
}

func (r *Runner) singleCategory() book.Category {
	label := r.opts.BookCategory
	if label == "" {
		label = book.DefaultCategory
	}
	return book.Category{Label: label}
}

func (r *Runner) recordBook(runID uuid.UUID, url, slug, category, status string) {
	if r.ledger == nil {
		return
	}
	if err := r.ledger.RecordBook(runID, url, slug, category, status); err != nil {
		slog.Warn("failed to record book in ledger", "slug", slug, "err", err)
	}
}

// subtract returns the members of all that are not in seen, preserving
// order.
func subtract(all, seen []string) []string {
	seenSet := make(map[string]struct{}, len(seen))
	for _, s := range seen {
		seenSet[s] = struct{}{}
	}
	var out []string
	for _, s := range all {
		if _, ok := seenSet[s]; !ok {
			out = append(out, s)
		}
	}
	return out
}

// trimLine cleans one book-list line; empty lines and #-comments are
// dropped.
func trimLine(line string) string {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return ""
	}
	return trimmed
}
