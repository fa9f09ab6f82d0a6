// Package browser defines the boundary between the harness and a browser
// driver.
//
// Backends (WebDriver in package wd, Playwright in package pw) implement
// Session and Element with immediate, non-waiting primitives. Bounded
// waiting lives here so every backend gets the same presence and
// interactability semantics.
package browser

import (
	"context"
	"errors"

	"github.com/roach88/tablecheck/internal/locator"
)

// Session is one live browser page shared by all rows of a run.
// Implementations are not safe for concurrent use.
type Session interface {
	// Navigate loads url in the current page.
	Navigate(ctx context.Context, url string) error
	// Find returns the first element matching ref, or ErrNoSuchElement.
	Find(ctx context.Context, ref locator.Reference) (Element, error)
	// FindAll returns every element matching ref; an empty result is not
	// an error.
	FindAll(ctx context.Context, ref locator.Reference) ([]Element, error)
	// Close ends the session and releases the browser.
	Close() error
}

// Element is a handle to one rendered element.
type Element interface {
	Click(ctx context.Context) error
	SendKeys(ctx context.Context, text string) error
	Clear(ctx context.Context) error
	Text(ctx context.Context) (string, error)
	Displayed(ctx context.Context) (bool, error)
	Enabled(ctx context.Context) (bool, error)
	// FindAll returns descendants matching ref.
	FindAll(ctx context.Context, ref locator.Reference) ([]Element, error)
}

var (
	// ErrNoSuchElement is returned by Find when nothing matches.
	ErrNoSuchElement = errors.New("no such element")
	// ErrStaleElement is returned when an element left the DOM.
	ErrStaleElement = errors.New("stale element reference")
	// ErrTimeout is wrapped by every bounded wait that expires.
	ErrTimeout = errors.New("timed out")
)

// IsTransient reports whether err is expected while a page is still
// rendering and should not abort a wait.
func IsTransient(err error) bool {
	return errors.Is(err, ErrNoSuchElement) || errors.Is(err, ErrStaleElement)
}
