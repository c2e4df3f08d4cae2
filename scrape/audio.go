package scrape

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"blinkscrape/book"
)

const audioCaptureTimeout = 30 * time.Second

// Audio downloads every chapter's audio blink for a book and returns the
// per-chapter file paths in order.
//
// Results are three-way: ErrNoAudio when the book has no audio blinks at
// all (skip, not failure); any other error when the fetch was attempted
// and failed, in which case no partial file list is returned even though
// already-downloaded chapters stay on disk; nil error with the complete
// file list otherwise. A complete set already on disk is returned
// without touching the network.
func (s *Scraper) Audio(ctx context.Context, bk *book.Book, language string) ([]string, error) {
	if !bk.IsAudio {
		return nil, fmt.Errorf("%s: %w", bk.Slug, ErrNoAudio)
	}

	dir := book.PrettyDir(s.booksDir, bk)
	existing := ExistingChapterAudio(dir, bk)
	if len(existing) == len(bk.Chapters) {
		slog.Debug("audio for all blinks already downloaded", "slug", bk.Slug, "count", len(existing))
		return existing, nil
	}
	if len(existing) > 0 {
		slog.Debug("found partial audio, fetching the rest",
			"slug", bk.Slug, "have", len(existing), "want", len(bk.Chapters))
	}

	// the reader page fires the playback request for chapter 1 on load;
	// capture it to steal an authorized header set
	s.drv.ResetRequests(s.scope)

	readerURL := fmt.Sprintf("%s/%s/nc/reader/%s", s.siteURL, language, bk.Slug)
	slog.Info("scraping book audio", "url", readerURL)
	if err := s.drv.Navigate(readerURL); err != nil {
		return nil, fmt.Errorf("failed to open reader page: %w", err)
	}
	if err := s.checkUpgradeRedirect(); err != nil {
		return nil, err
	}

	captured, err := s.drv.WaitForRequest("audio", audioCaptureTimeout)
	if err != nil {
		return nil, fmt.Errorf("could not capture an audio endpoint request: %w", err)
	}

	files := make([]string, 0, len(bk.Chapters))
	for i := range bk.Chapters {
		ch := &bk.Chapters[i]

		// fixed politeness delay before every chapter request
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.chapterDelay):
		}

		signedURL, err := s.api.ChapterAudioURL(ctx, bk.ID, ch.ID, captured.Headers)
		if err != nil {
			// abort the whole book's audio fetch, not just this chapter
			return nil, fmt.Errorf("aborting audio scrape at blink %d: %w", ch.OrderNo, err)
		}

		dest := filepath.Join(dir, chapterAudioFilename(ch.OrderNo))
		if _, err := os.Stat(dest); err == nil {
			slog.Debug("audio for blink already downloaded, skipping", "order_no", ch.OrderNo)
		} else {
			slog.Info("downloading audio blink", "slug", bk.Slug, "order_no", ch.OrderNo)
			if err := s.api.Download(ctx, signedURL, dest); err != nil {
				return nil, fmt.Errorf("aborting audio scrape at blink %d: %w", ch.OrderNo, err)
			}
		}
		files = append(files, dest)
	}
	return files, nil
}

// ExistingChapterAudio returns the per-chapter audio files already on
// disk for a book, in chapter order.
func ExistingChapterAudio(dir string, bk *book.Book) []string {
	var files []string
	for _, ch := range bk.Chapters {
		path := filepath.Join(dir, chapterAudioFilename(ch.OrderNo))
		if _, err := os.Stat(path); err == nil {
			files = append(files, path)
		}
	}
	return files
}

// ConcatAudioPath is the target path of the concatenated, tagged audio
// artifact. Its presence supersedes per-chapter files entirely.
func ConcatAudioPath(booksDir string, bk *book.Book) string {
	return filepath.Join(book.PrettyDir(booksDir, bk), book.PrettyFilename(bk, ".m4a"))
}

func chapterAudioFilename(orderNo int) string {
	return fmt.Sprintf("%d.m4a", orderNo)
}
