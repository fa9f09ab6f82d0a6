// Package pw implements browser.Session on Chromium driven through
// github.com/playwright-community/playwright-go.
package pw

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/roach88/tablecheck/internal/browser"
	"github.com/roach88/tablecheck/internal/locator"
)

// Default viewport used when Options leaves the size unset.
const (
	DefaultViewportWidth  = 1920
	DefaultViewportHeight = 1080
)

// Options configures Open.
type Options struct {
	Headless bool
	Args     []string
	Width    int
	Height   int
	// ActionTimeout bounds each Playwright action such as a click.
	ActionTimeout time.Duration
	// Install downloads the driver and browsers before starting.
	Install bool
	Logger  *slog.Logger
}

// Session is a Playwright-backed browser.Session with a single page.
type Session struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	bctx    playwright.BrowserContext
	page    playwright.Page
	logger  *slog.Logger
	closed  bool
}

var _ browser.Session = (*Session)(nil)

// Open starts Playwright, launches Chromium and opens one page. The caller
// must Close the returned session.
func Open(ctx context.Context, opts Options) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	runOpts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}
	if opts.Install {
		if err := playwright.Install(runOpts); err != nil {
			return nil, fmt.Errorf("failed to install playwright: %w", err)
		}
	}
	pw, err := playwright.Run(runOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	headless := opts.Headless
	b, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: &headless,
		Args:     opts.Args,
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	width, height := opts.Width, opts.Height
	if width <= 0 || height <= 0 {
		width, height = DefaultViewportWidth, DefaultViewportHeight
	}
	bctx, err := b.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{Width: width, Height: height},
	})
	if err != nil {
		_ = b.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to create context: %w", err)
	}

	page, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		_ = b.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	if opts.ActionTimeout > 0 {
		page.SetDefaultTimeout(float64(opts.ActionTimeout.Milliseconds()))
	}

	s := New(page, logger)
	s.pw, s.browser, s.bctx = pw, b, bctx
	logger.Info("browser session started", "backend", "playwright", "browser", "chromium", "headless", headless)
	return s, nil
}

// New wraps an open page. Close then closes only the page.
func New(page playwright.Page, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{page: page, logger: logger}
}

// mapError translates Playwright failures into the browser sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "not attached to the DOM"),
		strings.Contains(msg, "Element is not attached"):
		return fmt.Errorf("%w: %v", browser.ErrStaleElement, err)
	}
	return err
}

// Navigate implements browser.Session.
func (s *Session) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := s.page.Goto(url); err != nil {
		return fmt.Errorf("goto %s: %w", url, err)
	}
	return nil
}

// Find implements browser.Session.
func (s *Session) Find(ctx context.Context, ref locator.Reference) (browser.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	h, err := s.page.QuerySelector(ref.Selector())
	if err != nil {
		return nil, mapError(err)
	}
	if h == nil {
		return nil, fmt.Errorf("%w: %s", browser.ErrNoSuchElement, ref)
	}
	return &element{h: h}, nil
}

// FindAll implements browser.Session.
func (s *Session) FindAll(ctx context.Context, ref locator.Reference) ([]browser.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	hs, err := s.page.QuerySelectorAll(ref.Selector())
	if err != nil {
		return nil, mapError(err)
	}
	return wrapAll(hs), nil
}

// Close closes the page, context and browser, then stops Playwright. It
// is safe to call more than once.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	var errs []error
	if err := s.page.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close page: %w", err))
	}
	if s.bctx != nil {
		if err := s.bctx.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close context: %w", err))
		}
	}
	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close browser: %w", err))
		}
	}
	if s.pw != nil {
		if err := s.pw.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stop playwright: %w", err))
		}
	}
	s.logger.Debug("browser session closed")
	return errors.Join(errs...)
}

type element struct {
	h playwright.ElementHandle
}

func wrapAll(hs []playwright.ElementHandle) []browser.Element {
	out := make([]browser.Element, len(hs))
	for i, h := range hs {
		out[i] = &element{h: h}
	}
	return out
}

func (e *element) Click(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return mapError(e.h.Click())
}

func (e *element) SendKeys(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return mapError(e.h.Type(text))
}

func (e *element) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return mapError(e.h.Fill(""))
}

func (e *element) Text(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s, err := e.h.InnerText()
	return s, mapError(err)
}

func (e *element) Displayed(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	ok, err := e.h.IsVisible()
	return ok, mapError(err)
}

func (e *element) Enabled(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	ok, err := e.h.IsEnabled()
	return ok, mapError(err)
}

func (e *element) FindAll(ctx context.Context, ref locator.Reference) ([]browser.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	hs, err := e.h.QuerySelectorAll(ref.Selector())
	if err != nil {
		return nil, mapError(err)
	}
	return wrapAll(hs), nil
}
