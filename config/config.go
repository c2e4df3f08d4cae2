// Package config holds the run options assembled from CLI flags and the
// optional config file. Options are threaded explicitly; nothing here is
// global.
package config

import (
	"errors"
	"fmt"
)

// Options is the fully resolved configuration for one run.
type Options struct {
	Email    string
	Password string

	Language      string
	MatchLanguage bool
	Cooldown      int
	Headless      bool
	NoSandbox     bool

	Audio       bool
	ConcatAudio bool
	KeepParts   bool

	NoScrape         bool
	BookURL          string
	DailyBook        bool
	BooksFile        string
	BookCategory     string
	Categories       []string
	IgnoreCategories []string

	CreateHTML    bool
	CreateEPUB    bool
	CreatePDF     bool
	SaveCover     bool
	EmbedCoverArt bool

	DumpDir    string
	BooksDir   string
	LedgerPath string
	Verbose    bool
}

// Validate rejects option combinations the run loop cannot honor.
func (o *Options) Validate() error {
	if o.Cooldown < 1 {
		return errors.New("cooldown must be at least 1 second")
	}
	if !o.NoScrape && (o.Email == "" || o.Password == "") {
		return errors.New("email and password are required unless -no-scrape is set")
	}
	if o.BookURL != "" && o.BooksFile != "" {
		return errors.New("-book and -books are mutually exclusive")
	}
	if o.BookCategory != "" && o.BookURL == "" && o.BooksFile == "" {
		return fmt.Errorf("-book-category has no effect without -book or -books")
	}
	return nil
}

// ApplyFile fills unset options from the config file. Flags always win:
// only zero-valued fields are touched.
func (o *Options) ApplyFile(fc *FileConfig) {
	if fc == nil {
		return
	}
	if o.Email == "" {
		o.Email = fc.Credentials.Email
	}
	if o.Password == "" {
		o.Password = fc.Credentials.Password
	}
	if fc.Defaults.Language != "" && o.Language == defaultLanguage {
		o.Language = fc.Defaults.Language
	}
	if fc.Defaults.DumpDir != "" && o.DumpDir == defaultDumpDir {
		o.DumpDir = fc.Defaults.DumpDir
	}
	if fc.Defaults.BooksDir != "" && o.BooksDir == defaultBooksDir {
		o.BooksDir = fc.Defaults.BooksDir
	}
	if fc.Defaults.Ledger != "" && o.LedgerPath == "" {
		o.LedgerPath = fc.Defaults.Ledger
	}
}

// Flag defaults shared with the CLI so ApplyFile can tell "left at
// default" from "explicitly set".
const (
	defaultLanguage = "en"
	defaultDumpDir  = "dump"
	defaultBooksDir = "books"
)

// Defaults returns Options preloaded with the CLI defaults.
func Defaults() Options {
	return Options{
		Language: defaultLanguage,
		Cooldown: 1,
		DumpDir:  defaultDumpDir,
		BooksDir: defaultBooksDir,

		CreateHTML: true,
		CreateEPUB: true,
	}
}
