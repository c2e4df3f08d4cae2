package scrape

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUpgradeRequired means the site redirected to its upgrade/paywall
// page: the account's subscription tier cannot read this book, and since
// every remaining book would fail the same way, the whole run must stop.
var ErrUpgradeRequired = errors.New("redirected to the upgrade page: subscription tier cannot access this content")

// ErrNoAudio means the book has no audio blinks at all. Not a failure;
// callers skip the audio stage.
var ErrNoAudio = errors.New("book has no audio blinks")

// ElementNotFoundError reports a required page element that never turned
// up, usually because the site's markup changed. Per-book fatal; the run
// continues with the next book.
type ElementNotFoundError struct {
	Selector string
}

func (e *ElementNotFoundError) Error() string {
	return fmt.Sprintf("element %q not found on page", e.Selector)
}

// ContainerNotFoundError reports that none of the known candidate
// selectors for a container matched. The candidate list exists because
// the site has renamed these containers across versions.
type ContainerNotFoundError struct {
	Candidates []string
}

func (e *ContainerNotFoundError) Error() string {
	return fmt.Sprintf("no container matched any of: %s", strings.Join(e.Candidates, ", "))
}
