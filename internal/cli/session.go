package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/tablecheck/internal/browser"
	"github.com/roach88/tablecheck/internal/browser/pw"
	"github.com/roach88/tablecheck/internal/browser/wd"
	"github.com/roach88/tablecheck/internal/config"
)

// SessionOpener starts the browser session shared by a run.
type SessionOpener func(ctx context.Context, d config.Driver, logger *slog.Logger) (browser.Session, error)

// sessionSettings are the run flags that shape the session but live
// outside the manifest.
type sessionSettings struct {
	install       bool
	actionTimeout time.Duration
}

func (s sessionSettings) opener() SessionOpener {
	return func(ctx context.Context, d config.Driver, logger *slog.Logger) (browser.Session, error) {
		return openSession(ctx, d, s, logger)
	}
}

// openSession starts the backend named by d.
func openSession(ctx context.Context, d config.Driver, s sessionSettings, logger *slog.Logger) (browser.Session, error) {
	switch d.Backend {
	case config.BackendSelenium:
		sess, err := wd.Open(ctx, wd.Options{
			RemoteURL:    d.RemoteURL,
			DriverPath:   d.ChromeDriverPath,
			Port:         d.Port,
			Browser:      d.Browser,
			Headless:     d.Headless,
			Args:         d.Args,
			Maximize:     d.ShouldMaximize(),
			Width:        d.Width,
			Height:       d.Height,
			ImplicitWait: d.ImplicitWait.Std(),
			Logger:       logger,
		})
		if err != nil {
			return nil, err
		}
		return sess, nil
	case config.BackendPlaywright:
		sess, err := pw.Open(ctx, pw.Options{
			Headless:      d.Headless,
			Args:          d.Args,
			Width:         d.Width,
			Height:        d.Height,
			ActionTimeout: s.actionTimeout,
			Install:       s.install,
			Logger:        logger,
		})
		if err != nil {
			return nil, err
		}
		return sess, nil
	}
	return nil, fmt.Errorf("unknown backend %q", d.Backend)
}
