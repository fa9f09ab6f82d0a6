// Package wd implements browser.Session on a W3C WebDriver server through
// github.com/tebeka/selenium.
//
// Open either starts a local chromedriver or geckodriver service, or
// connects to a remote Selenium endpoint when Options.RemoteURL is set.
package wd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/tebeka/selenium"
	"github.com/tebeka/selenium/chrome"
	"github.com/tebeka/selenium/firefox"

	"github.com/roach88/tablecheck/internal/browser"
	"github.com/roach88/tablecheck/internal/locator"
)

// Options configures Open.
type Options struct {
	// RemoteURL is a running WebDriver endpoint. If empty, a driver
	// service is started from DriverPath on Port.
	RemoteURL  string
	DriverPath string
	Port       int
	// Browser is "chrome" (default) or "firefox".
	Browser  string
	Headless bool
	Args     []string
	// Maximize maximizes the window; otherwise Width and Height are used
	// when both are set.
	Maximize     bool
	Width        int
	Height       int
	ImplicitWait time.Duration
	// DriverOutput receives the driver service's output; nil discards it.
	DriverOutput io.Writer
	Logger       *slog.Logger
}

// Session is a WebDriver-backed browser.Session.
type Session struct {
	wd      selenium.WebDriver
	service *selenium.Service
	logger  *slog.Logger
	closed  bool
}

var _ browser.Session = (*Session)(nil)

// Open starts the browser described by opts. The caller must Close the
// returned session.
func Open(ctx context.Context, opts Options) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var service *selenium.Service
	executor := opts.RemoteURL
	if executor == "" {
		var err error
		service, executor, err = startService(opts)
		if err != nil {
			return nil, err
		}
		logger.Debug("driver service started", "browser", browserName(opts), "url", executor)
	}

	wd, err := selenium.NewRemote(Capabilities(opts), executor)
	if err != nil {
		if service != nil {
			_ = service.Stop()
		}
		return nil, fmt.Errorf("start webdriver session at %s: %w", executor, err)
	}

	s := New(wd, service, logger)
	if err := s.prepare(opts); err != nil {
		_ = s.Close()
		return nil, err
	}
	logger.Info("browser session started", "backend", "selenium", "browser", browserName(opts), "headless", opts.Headless)
	return s, nil
}

// New wraps an established WebDriver. service, if non-nil, is stopped on
// Close.
func New(wd selenium.WebDriver, service *selenium.Service, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{wd: wd, service: service, logger: logger}
}

func startService(opts Options) (*selenium.Service, string, error) {
	out := opts.DriverOutput
	if out == nil {
		out = io.Discard
	}
	port := opts.Port
	if port == 0 {
		port = 9515
	}

	switch browserName(opts) {
	case "firefox":
		path := opts.DriverPath
		if path == "" {
			path = "geckodriver"
		}
		svc, err := selenium.NewGeckoDriverService(path, port, selenium.Output(out))
		if err != nil {
			return nil, "", fmt.Errorf("start geckodriver: %w", err)
		}
		return svc, fmt.Sprintf("http://localhost:%d", port), nil
	default:
		path := opts.DriverPath
		if path == "" {
			path = "chromedriver"
		}
		svc, err := selenium.NewChromeDriverService(path, port, selenium.Output(out))
		if err != nil {
			return nil, "", fmt.Errorf("start chromedriver: %w", err)
		}
		return svc, fmt.Sprintf("http://localhost:%d/wd/hub", port), nil
	}
}

func (s *Session) prepare(opts Options) error {
	if err := s.wd.SetImplicitWaitTimeout(opts.ImplicitWait); err != nil {
		return fmt.Errorf("set implicit wait: %w", err)
	}
	switch {
	case opts.Maximize:
		if err := s.wd.MaximizeWindow(""); err != nil {
			// Headless browsers often have no window manager.
			s.logger.Warn("could not maximize window", "error", err)
		}
	case opts.Width > 0 && opts.Height > 0:
		if err := s.wd.ResizeWindow("", opts.Width, opts.Height); err != nil {
			return fmt.Errorf("resize window: %w", err)
		}
	}
	return nil
}

func browserName(opts Options) string {
	if opts.Browser == "" {
		return "chrome"
	}
	return opts.Browser
}

// Capabilities builds the session capabilities for opts.
func Capabilities(opts Options) selenium.Capabilities {
	name := browserName(opts)
	caps := selenium.Capabilities{"browserName": name}

	args := append([]string(nil), opts.Args...)
	switch name {
	case "firefox":
		if opts.Headless {
			args = append(args, "-headless")
		}
		caps.AddFirefox(firefox.Capabilities{Args: args})
	default:
		if opts.Headless {
			args = append(args, "--headless=new")
		}
		caps.AddChrome(chrome.Capabilities{Args: args, W3C: true})
	}
	return caps
}

// by maps a locator kind to the WebDriver strategy.
func by(k locator.Kind) string {
	switch k {
	case locator.ID:
		return selenium.ByID
	case locator.Name:
		return selenium.ByName
	case locator.LinkText:
		return selenium.ByLinkText
	case locator.PartialLinkText:
		return selenium.ByPartialLinkText
	case locator.CSSSelector:
		return selenium.ByCSSSelector
	case locator.ClassName:
		return selenium.ByClassName
	case locator.TagName:
		return selenium.ByTagName
	default:
		return selenium.ByXPATH
	}
}

// mapError translates WebDriver error codes into the browser sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	code := err.Error()
	var werr *selenium.Error
	if errors.As(err, &werr) {
		code = werr.Err
	}
	switch {
	case strings.Contains(code, "no such element"):
		return fmt.Errorf("%w: %v", browser.ErrNoSuchElement, err)
	case strings.Contains(code, "stale element reference"):
		return fmt.Errorf("%w: %v", browser.ErrStaleElement, err)
	}
	return err
}

// Navigate implements browser.Session.
func (s *Session) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.wd.Get(url)
}

// Find implements browser.Session.
func (s *Session) Find(ctx context.Context, ref locator.Reference) (browser.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	el, err := s.wd.FindElement(by(ref.Kind), ref.Value)
	if err != nil {
		return nil, mapError(err)
	}
	return &element{el: el}, nil
}

// FindAll implements browser.Session.
func (s *Session) FindAll(ctx context.Context, ref locator.Reference) ([]browser.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	els, err := s.wd.FindElements(by(ref.Kind), ref.Value)
	if err != nil {
		err = mapError(err)
		if errors.Is(err, browser.ErrNoSuchElement) {
			return nil, nil
		}
		return nil, err
	}
	return wrapAll(els), nil
}

// Close quits the browser and stops the driver service. It is safe to
// call more than once.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	var errs []error
	if err := s.wd.Quit(); err != nil {
		errs = append(errs, fmt.Errorf("quit browser: %w", err))
	}
	if s.service != nil {
		if err := s.service.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stop driver service: %w", err))
		}
	}
	s.logger.Debug("browser session closed")
	return errors.Join(errs...)
}

type element struct {
	el selenium.WebElement
}

func wrapAll(els []selenium.WebElement) []browser.Element {
	out := make([]browser.Element, len(els))
	for i, el := range els {
		out[i] = &element{el: el}
	}
	return out
}

func (e *element) Click(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return mapError(e.el.Click())
}

func (e *element) SendKeys(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return mapError(e.el.SendKeys(text))
}

func (e *element) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return mapError(e.el.Clear())
}

func (e *element) Text(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s, err := e.el.Text()
	return s, mapError(err)
}

func (e *element) Displayed(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	ok, err := e.el.IsDisplayed()
	return ok, mapError(err)
}

func (e *element) Enabled(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	ok, err := e.el.IsEnabled()
	return ok, mapError(err)
}

func (e *element) FindAll(ctx context.Context, ref locator.Reference) ([]browser.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	els, err := e.el.FindElements(by(ref.Kind), ref.Value)
	if err != nil {
		err = mapError(err)
		if errors.Is(err, browser.ErrNoSuchElement) {
			return nil, nil
		}
		return nil, err
	}
	return wrapAll(els), nil
}
