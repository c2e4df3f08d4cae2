package scrape

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/go-resty/resty/v2"

	"blinkscrape/book"
)

// Client talks to the content API and downloads media. It shares nothing
// with the browser session except headers replayed from intercepted
// requests.
type Client struct {
	http    *resty.Client
	apiURL  string
	siteURL string
}

// NewClient creates an API client. apiURL is the metadata API root,
// siteURL the site root hosting the audio-resolution endpoint.
func NewClient(apiURL, siteURL string) *Client {
	return &Client{
		http:    resty.New().SetTimeout(60 * time.Second),
		apiURL:  apiURL,
		siteURL: siteURL,
	}
}

// Book fetches canonical book metadata by ID and validates it at the
// boundary.
func (c *Client) Book(ctx context.Context, id string) (*book.Book, error) {
	var payload struct {
		Book *book.Book `json:"book"`
	}

	res, err := c.http.R().
		SetContext(ctx).
		SetResult(&payload).
		Get(fmt.Sprintf("%s/v4/books/%s", c.apiURL, id))
	if err != nil {
		return nil, fmt.Errorf("book metadata request failed: %w", err)
	}
	if res.IsError() {
		return nil, fmt.Errorf("book metadata request for %s returned %s", id, res.Status())
	}
	if payload.Book == nil {
		return nil, &book.SchemaError{Field: "book", Reason: "missing from API response"}
	}
	if err := payload.Book.Validate(); err != nil {
		return nil, err
	}
	return payload.Book, nil
}

// ChapterAudioURL resolves the signed download URL for one chapter's
// audio. The captured browser headers are replayed verbatim; without
// them the endpoint rejects the request.
func (c *Client) ChapterAudioURL(ctx context.Context, bookID, chapterID string, headers map[string]string) (string, error) {
	endpoint := fmt.Sprintf("%s/api/books/%s/chapters/%s/audio", c.siteURL, bookID, chapterID)
	slog.Debug("fetching blink audio url", "endpoint", endpoint)

	res, err := c.http.R().
		SetContext(ctx).
		SetHeaders(headers).
		SetDoNotParseResponse(true).
		Get(endpoint)
	if err != nil {
		return "", fmt.Errorf("audio resolution request failed: %w", err)
	}
	defer res.RawBody().Close()

	raw, err := io.ReadAll(res.RawBody())
	if err != nil {
		return "", fmt.Errorf("failed to read audio response: %w", err)
	}
	if res.StatusCode() >= 400 {
		return "", fmt.Errorf("audio resolution returned %s", res.Status())
	}

	// replaying the browser's Accept-Encoding disables transparent
	// decompression, so the body may arrive gzip-compressed
	body, err := maybeGunzip(raw)
	if err != nil {
		return "", fmt.Errorf("failed to decompress audio response: %w", err)
	}

	var payload struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("malformed audio payload: %w", err)
	}
	if payload.URL == "" {
		return "", fmt.Errorf("audio payload for chapter %s has no url field", chapterID)
	}
	return payload.URL, nil
}

// Download streams the response body for url to dest, creating parent
// directories. A file already present at dest is kept as-is.
func (c *Client) Download(ctx context.Context, url, dest string) error {
	if _, err := os.Stat(dest); err == nil {
		slog.Debug("file already downloaded, skipping", "path", dest)
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("failed to create download directory: %w", err)
	}

	res, err := c.http.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(url)
	if err != nil {
		return fmt.Errorf("download request failed: %w", err)
	}
	defer res.RawBody().Close()

	if res.StatusCode() >= 400 {
		return fmt.Errorf("download of %s returned %s", url, res.Status())
	}

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dest, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, res.RawBody()); err != nil {
		return fmt.Errorf("failed to write %s: %w", dest, err)
	}
	return nil
}

var gzipMagic = []byte{0x1f, 0x8b}

func maybeGunzip(data []byte) ([]byte, error) {
	if !bytes.HasPrefix(data, gzipMagic) {
		return data, nil
	}
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}
