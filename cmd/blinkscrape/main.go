package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"blinkscrape/browser"
	"blinkscrape/config"
	"blinkscrape/dump"
	"blinkscrape/generate"
	"blinkscrape/ledger"
	"blinkscrape/run"
	"blinkscrape/scrape"
)

const (
	siteURL = "https://www.blinkist.com"
	apiURL  = "https://api.blinkist.com"
)

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if err := realMain(opts); err != nil {
		if errors.Is(err, context.Canceled) {
			slog.Warn("interrupted by user")
			os.Exit(130)
		}
		slog.Error("run failed", "err", err)
		os.Exit(1)
	}
}

func parseFlags(args []string) (config.Options, error) {
	opts := config.Defaults()

	fs := flag.NewFlagSet("blinkscrape", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "Usage: blinkscrape [flags] <email> <password>")
		fmt.Fprintln(fs.Output(), "       blinkscrape -no-scrape [flags]")
		fmt.Fprintln(fs.Output())
		fs.PrintDefaults()
	}

	var categories, ignoreCategories string
	fs.StringVar(&opts.Language, "language", opts.Language, "language to scrape books in (en or de)")
	fs.BoolVar(&opts.MatchLanguage, "match-language", false, "skip books not available in the requested language")
	fs.IntVar(&opts.Cooldown, "cooldown", opts.Cooldown, "seconds to wait between books that hit the network (minimum 1)")
	fs.BoolVar(&opts.Headless, "headless", opts.Headless, "run the browser headless (requires an existing login cookie)")
	fs.BoolVar(&opts.Audio, "audio", false, "download the audio blinks for each book")
	fs.BoolVar(&opts.ConcatAudio, "concat-audio", false, "concatenate audio blinks into one tagged file (requires ffmpeg)")
	fs.BoolVar(&opts.KeepParts, "keep-noncat", false, "keep the individual blink audio files after concatenation")
	fs.BoolVar(&opts.NoScrape, "no-scrape", false, "skip the website, only process existing dump files")
	fs.StringVar(&opts.BookURL, "book", "", "scrape only this book URL")
	fs.BoolVar(&opts.DailyBook, "daily-book", false, "scrape only the free daily book")
	fs.StringVar(&opts.BooksFile, "books", "", "scrape the book URLs listed in this file")
	fs.StringVar(&opts.BookCategory, "book-category", "", "category label for books given via -book/-daily-book/-books")
	fs.StringVar(&categories, "categories", "", "comma-separated substrings; only matching categories are scraped")
	fs.StringVar(&ignoreCategories, "ignore-categories", "", "comma-separated substrings; matching categories are skipped")
	fs.BoolVar(&opts.CreateHTML, "create-html", opts.CreateHTML, "generate a formatted html document for each book")
	fs.BoolVar(&opts.CreateEPUB, "create-epub", opts.CreateEPUB, "generate an epub document for each book")
	fs.BoolVar(&opts.CreatePDF, "create-pdf", false, "generate a pdf document for each book (requires wkhtmltopdf)")
	fs.BoolVar(&opts.SaveCover, "save-cover", false, "save the cover artwork in each book folder")
	fs.BoolVar(&opts.EmbedCoverArt, "embed-cover-art", false, "embed the cover artwork into the concatenated audio file")
	fs.BoolVar(&opts.NoSandbox, "no-sandbox", false, "pass --no-sandbox to the browser (needed when running as root)")
	fs.StringVar(&opts.DumpDir, "dump-dir", opts.DumpDir, "directory for the per-book json dumps")
	fs.StringVar(&opts.BooksDir, "books-dir", opts.BooksDir, "directory for the generated book folders")
	fs.StringVar(&opts.LedgerPath, "ledger", "", "path to the sqlite run ledger (empty disables it)")
	fs.BoolVar(&opts.Verbose, "v", false, "increase logging verbosity")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	opts.Categories = splitTerms(categories)
	opts.IgnoreCategories = splitTerms(ignoreCategories)

	if !opts.NoScrape {
		if fs.NArg() >= 2 {
			opts.Email = fs.Arg(0)
			opts.Password = fs.Arg(1)
		}
	}

	fileCfg, err := config.LoadConfigFile()
	if err != nil {
		return opts, err
	}
	opts.ApplyFile(fileCfg)

	return opts, opts.Validate()
}

func splitTerms(s string) []string {
	if s == "" {
		return nil
	}
	var terms []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			terms = append(terms, t)
		}
	}
	return terms
}

func realMain(opts config.Options) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var led *ledger.Ledger
	if opts.LedgerPath != "" {
		l, err := ledger.Open(opts.LedgerPath)
		if err != nil {
			slog.Warn("failed to open run ledger, continuing without it", "err", err)
		} else {
			led = l
			defer led.Close()
		}
	}

	dumps := dump.NewStore(opts.DumpDir)
	gen := generate.New(opts.BooksDir)

	var scraper run.Scraper
	if opts.NoScrape {
		scraper = nil
	} else {
		cookieFile := defaultCookieFile()

		// a first-time login needs a visible browser so the user can
		// solve the captcha
		headless := opts.Headless
		if _, err := os.Stat(cookieFile); err != nil {
			headless = false
		}

		session, err := browser.NewSession(ctx, browser.Options{
			Headless:   headless,
			NoSandbox:  opts.NoSandbox,
			CookieFile: cookieFile,
		})
		if err != nil {
			return fmt.Errorf("failed to start browser: %w", err)
		}
		defer session.Close()

		slog.Info("logging in", "email", opts.Email)
		if err := browser.Login(session, siteURL, opts.Language, opts.Email, opts.Password); err != nil {
			return err
		}

		scraper = scrape.New(scrape.Config{
			Driver:   session,
			API:      scrape.NewClient(apiURL, siteURL),
			Dumps:    dumps,
			BooksDir: opts.BooksDir,
			SiteURL:  siteURL,
		})
	}

	runner := run.New(scraper, gen, dumps, led, opts)
	summary, err := runner.Run(ctx)
	printSummary(summary)
	return err
}

func defaultCookieFile() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "cookies.json"
	}
	return filepath.Join(homeDir, ".blinkscrape", "cookies.json")
}

func printSummary(s run.Summary) {
	elapsed := int(s.Elapsed.Seconds())
	formatted := fmt.Sprintf("%02d:%02d:%02d", elapsed/3600, elapsed%3600/60, elapsed%60)
	plural := "s"
	if s.Processed == 1 {
		plural = ""
	}
	slog.Info(fmt.Sprintf("Processed %d book%s in %s", s.Processed, plural, formatted))
}
