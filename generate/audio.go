package generate

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"blinkscrape/book"
)

// CombineAudio concatenates the per-chapter audio files into one tagged
// m4a next to them. ffmpeg does the work in two passes: a stream-copy
// concat, then a remux that writes the metadata tags (and optionally
// embeds cover art). Source files are deleted afterwards unless
// keepParts is set. A missing ffmpeg skips the whole step with a
// warning.
func (g *Generator) CombineAudio(ctx context.Context, bk *book.Book, files []string, keepParts bool, coverFile string) (string, error) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		slog.Warn("ffmpeg needs to be installed and on PATH to combine audio files")
		return "", nil
	}
	if len(files) == 0 {
		return "", fmt.Errorf("no audio files to combine for %s", bk.Slug)
	}

	slog.Info("combining audio files", "slug", bk.Slug, "count", len(files))
	dir := book.PrettyDir(g.booksDir, bk)
	listFile := filepath.Join(dir, "temp.txt")
	concatFile := filepath.Join(dir, "concat.m4a")
	target := filepath.Join(dir, book.PrettyFilename(bk, ".m4a"))

	var list strings.Builder
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return "", fmt.Errorf("failed to resolve %s: %w", f, err)
		}
		// single quotes inside the concat list need the '\'' dance
		fmt.Fprintf(&list, "file '%s'\n", strings.ReplaceAll(abs, "'", `'\''`))
	}
	if err := os.WriteFile(listFile, []byte(list.String()), 0o644); err != nil {
		return "", fmt.Errorf("failed to write concat list: %w", err)
	}
	defer os.Remove(listFile)
	defer os.Remove(concatFile)

	silent := []string{"-nostats", "-loglevel", "0", "-y"}

	concatArgs := append(append([]string{}, silent...),
		"-f", "concat", "-safe", "0", "-i", listFile, "-c", "copy", concatFile)
	if out, err := exec.CommandContext(ctx, "ffmpeg", concatArgs...).CombinedOutput(); err != nil {
		return "", fmt.Errorf("ffmpeg concat failed: %w: %s", err, out)
	}

	tagArgs := append(append([]string{}, silent...), "-i", concatFile)
	if coverFile != "" {
		tagArgs = append(tagArgs, "-i", coverFile, "-map", "0", "-map", "1",
			"-disposition:v:0", "attached_pic")
	}
	tagArgs = append(tagArgs,
		"-c", "copy",
		"-metadata", "title="+bk.Title,
		"-metadata", "artist="+bk.Author,
		"-metadata", "album="+bk.Category,
		"-metadata", "genre=Blinkist",
		target)
	if out, err := exec.CommandContext(ctx, "ffmpeg", tagArgs...).CombinedOutput(); err != nil {
		return "", fmt.Errorf("ffmpeg tagging failed: %w: %s", err, out)
	}

	if !keepParts {
		slog.Debug("cleaning up individual audio files", "slug", bk.Slug)
		for _, f := range files {
			if err := os.Remove(f); err != nil && !os.IsNotExist(err) {
				slog.Warn("failed to remove audio part", "path", f, "err", err)
			}
		}
	}
	return target, nil
}
