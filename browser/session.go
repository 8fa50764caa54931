// Package browser abstracts a headless browser behind the few operations
// the interaction engine needs. Two backends exist: rod, which keeps one
// Chromium process and gives every session its own incognito context,
// and chromedp, which starts a fresh process per session.
package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/use-agent/sift/config"
)

// ErrElementNotFound is returned by Session.Click when the selector
// matches nothing in the live page.
var ErrElementNotFound = errors.New("browser: element not found")

// Snapshot is the serialized DOM of a session at one point in time.
type Snapshot struct {
	HTML string
	URL  string
}

// Session is one isolated browsing context. It is used by a single
// goroutine and must be closed on every exit path.
type Session interface {
	Navigate(ctx context.Context, url string) error

	// WaitForSettle blocks until the DOM stops changing or timeout
	// elapses. Running out of time is not an error.
	WaitForSettle(ctx context.Context, timeout time.Duration) error

	Click(ctx context.Context, selector string) error

	// Scroll moves the viewport to the bottom of the document.
	Scroll(ctx context.Context) error

	// Height returns the document's scroll height in CSS pixels.
	Height(ctx context.Context) (int, error)

	// ExtractDOM marks computed-hidden and viewport-covering elements
	// and serializes the document.
	ExtractDOM(ctx context.Context) (Snapshot, error)

	Close() error
}

// Launcher starts sessions. Implementations are safe for concurrent use;
// sessions never share cookies or storage.
type Launcher interface {
	Launch(ctx context.Context) (Session, error)
	Close() error
}

// New returns the launcher selected by cfg.Engine. Engine "none" disables
// rendering and yields a nil launcher.
func New(cfg config.BrowserConfig) (Launcher, error) {
	switch strings.ToLower(cfg.Engine) {
	case "", "rod":
		l, err := NewRod(cfg)
		if err != nil {
			return nil, err
		}
		return l, nil
	case "chromedp":
		return NewChromedp(cfg), nil
	case "none", "off":
		return nil, nil
	default:
		return nil, fmt.Errorf("browser: unknown engine %q", cfg.Engine)
	}
}
