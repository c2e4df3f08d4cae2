package browser

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// ErrLoginFailed is returned when the session cannot reach an
// authenticated state: unsolved CAPTCHA, rejected credentials, or the
// library page never rendering. Run-fatal.
var ErrLoginFailed = errors.New("unable to log in")

const (
	captchaProbeTimeout = 5 * time.Second
	captchaSolveTimeout = 60 * time.Second
	bannerTimeout       = 3 * time.Second
	libraryWaitTimeout  = 360 * time.Second
)

// Login establishes an authenticated session. Persisted cookies are
// loaded first so that repeat runs skip the interactive form; on success
// the (possibly refreshed) cookies are written back.
func Login(s *Session, siteURL, language, email, password string) error {
	loginURL := fmt.Sprintf("%s/%s/nc/login", siteURL, language)

	// a page has to be loaded before cookies can be installed
	if err := s.Navigate(loginURL); err != nil {
		return fmt.Errorf("failed to open login page: %w", err)
	}
	if s.cookies.Exists() {
		if err := s.LoadCookies(); err != nil {
			slog.Warn("could not load stored login cookies", "err", err)
		}
	}

	// if the logo doesn't render quickly, assume a CAPTCHA wall is up and
	// give the user a bounded window to solve it
	if err := s.WaitVisible(".header__logo", captchaProbeTimeout); err != nil {
		slog.Info("please solve the captcha to proceed")
		if err := s.WaitVisible(".header__logo", captchaSolveTimeout); err != nil {
			return fmt.Errorf("captcha not solved within %s: %w", captchaSolveTimeout, ErrLoginFailed)
		}
	}

	if err := s.Navigate(loginURL); err != nil {
		return fmt.Errorf("failed to open login page: %w", err)
	}

	// cookie banner dismissal is cosmetic; a timeout here is fine
	if err := s.WaitVisible(".cookie-disclaimer__cta", bannerTimeout); err == nil {
		if err := s.Click(".cookie-disclaimer__cta"); err != nil {
			slog.Debug("could not dismiss cookie banner", "err", err)
		}
	}

	// if the email input is absent we are already logged in
	formPresent, err := s.Exists("#login-form_login_email")
	if err != nil {
		return fmt.Errorf("failed to probe login form: %w", err)
	}
	if formPresent {
		slog.Info("not logged in, submitting credentials")
		if err := s.SendKeys("#login-form_login_email", email); err != nil {
			return fmt.Errorf("failed to fill email: %w", err)
		}
		if err := s.SendKeys("#login-form_login_password", password); err != nil {
			return fmt.Errorf("failed to fill password: %w", err)
		}
		if err := s.Click(`[name="commit"]`); err != nil {
			return fmt.Errorf("failed to submit login form: %w", err)
		}
	}

	// confirm by loading the library; switching the URL directly also
	// averts a second CAPTCHA page
	libraryURL := fmt.Sprintf("%s/%s/nc/library", siteURL, language)
	current, err := s.Location()
	if err != nil {
		return fmt.Errorf("failed to read current location: %w", err)
	}
	if strings.TrimRight(current, "/") != libraryURL {
		if err := s.Navigate(libraryURL); err != nil {
			return fmt.Errorf("failed to open library: %w", err)
		}
	}
	if err := s.WaitVisible(".main-banner-headline-v2", libraryWaitTimeout); err != nil {
		return fmt.Errorf("library page never rendered: %w", ErrLoginFailed)
	}

	slog.Info("logged in")
	if err := s.SaveCookies(); err != nil {
		slog.Warn("could not persist login cookies", "err", err)
	}
	return nil
}
