package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"
)

// CookieStore persists the browser's cookie jar to a JSON file between
// runs so an interactive login (and its CAPTCHA) only has to happen once.
// There is no expiry tracking: a stale cookie simply fails the login
// check and forces a fresh interactive login.
type CookieStore struct {
	path string
}

// NewCookieStore creates a store backed by the given file path.
func NewCookieStore(path string) *CookieStore {
	return &CookieStore{path: path}
}

// Exists reports whether a persisted cookie jar is available.
func (c *CookieStore) Exists() bool {
	_, err := os.Stat(c.path)
	return err == nil
}

// storedCookie is the on-disk cookie shape. CDP's read and write cookie
// types differ, so both are mapped through this record.
type storedCookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"`
	HTTPOnly bool    `json:"http_only"`
	Secure   bool    `json:"secure"`
}

func (c *CookieStore) load() ([]storedCookie, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read cookie file: %w", err)
	}
	var cookies []storedCookie
	if err := json.Unmarshal(data, &cookies); err != nil {
		return nil, fmt.Errorf("failed to decode cookie file: %w", err)
	}
	return cookies, nil
}

func (c *CookieStore) save(cookies []storedCookie) error {
	data, err := json.MarshalIndent(cookies, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cookies: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o700); err != nil {
		return fmt.Errorf("failed to create cookie directory: %w", err)
	}
	if err := os.WriteFile(c.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write cookie file: %w", err)
	}
	return nil
}

// LoadCookies installs the persisted cookie jar into the browser.
func (s *Session) LoadCookies() error {
	cookies, err := s.cookies.load()
	if err != nil {
		return err
	}

	params := make([]*network.CookieParam, 0, len(cookies))
	for _, ck := range cookies {
		p := &network.CookieParam{
			Name:     ck.Name,
			Value:    ck.Value,
			Domain:   ck.Domain,
			Path:     ck.Path,
			HTTPOnly: ck.HTTPOnly,
			Secure:   ck.Secure,
		}
		if ck.Expires > 0 {
			expires := cdp.TimeSinceEpoch(time.Unix(int64(ck.Expires), 0))
			p.Expires = &expires
		}
		params = append(params, p)
	}

	return chromedp.Run(s.ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return storage.SetCookies(params).Do(ctx)
	}))
}

// SaveCookies persists the browser's current cookie jar.
func (s *Session) SaveCookies() error {
	return chromedp.Run(s.ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		cookies, err := storage.GetCookies().Do(ctx)
		if err != nil {
			return fmt.Errorf("failed to read browser cookies: %w", err)
		}
		stored := make([]storedCookie, 0, len(cookies))
		for _, ck := range cookies {
			stored = append(stored, storedCookie{
				Name:     ck.Name,
				Value:    ck.Value,
				Domain:   ck.Domain,
				Path:     ck.Path,
				Expires:  ck.Expires,
				HTTPOnly: ck.HTTPOnly,
				Secure:   ck.Secure,
			})
		}
		return s.cookies.save(stored)
	}))
}
