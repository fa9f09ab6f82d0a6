// Package probe reads observable UI state: whether the results table is
// rendered, how many data rows it shows, and its aggregate text.
package probe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/tablecheck/internal/browser"
	"github.com/roach88/tablecheck/internal/locator"
)

// DefaultTable is the baseline structural element.
var DefaultTable = locator.Reference{Kind: locator.TagName, Value: "table"}

// rowRef selects table rows, header included.
var rowRef = locator.Reference{Kind: locator.TagName, Value: "tr"}

// Snapshot is the UI state captured immediately before or after an action.
type Snapshot struct {
	TablePresent bool `json:"table_present"`
	RowCount     int  `json:"row_count"`
	// CountErr is set when the table was present but rows could not be read.
	CountErr error `json:"-"`
}

// Prober queries the current page of a session.
type Prober struct {
	Session browser.Session
	// Table is the baseline element; DefaultTable if zero.
	Table  locator.Reference
	Waiter browser.Waiter
	Logger *slog.Logger
}

func (p *Prober) table() locator.Reference {
	if p.Table == (locator.Reference{}) {
		return DefaultTable
	}
	return p.Table
}

// WaitTable blocks until the baseline element is present.
func (p *Prober) WaitTable(ctx context.Context) error {
	_, err := p.Waiter.WaitPresent(ctx, p.Session, p.table())
	return err
}

// TablePresent reports whether the baseline element is present now.
func (p *Prober) TablePresent(ctx context.Context) (bool, error) {
	return p.Present(ctx, p.table())
}

// Present reports whether ref matches an element now, without waiting.
func (p *Prober) Present(ctx context.Context, ref locator.Reference) (bool, error) {
	_, err := p.Session.Find(ctx, ref)
	if errors.Is(err, browser.ErrNoSuchElement) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// RowCount returns the number of data rows in the results table, i.e. all
// rows minus the header row.
func (p *Prober) RowCount(ctx context.Context) (int, error) {
	tbl, err := p.Session.Find(ctx, p.table())
	if err != nil {
		return 0, fmt.Errorf("find results table: %w", err)
	}
	rows, err := tbl.FindAll(ctx, rowRef)
	if err != nil {
		return 0, fmt.Errorf("read table rows: %w", err)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return len(rows) - 1, nil
}

// TableText returns the rendered text of the results table.
func (p *Prober) TableText(ctx context.Context) (string, error) {
	tbl, err := p.Session.Find(ctx, p.table())
	if err != nil {
		return "", fmt.Errorf("find results table: %w", err)
	}
	return tbl.Text(ctx)
}

// Snapshot captures table presence and row count. A failed count leaves
// RowCount at zero and records CountErr. A failed presence check is
// returned as an error.
func (p *Prober) Snapshot(ctx context.Context) (Snapshot, error) {
	present, err := p.TablePresent(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("check results table: %w", err)
	}
	if !present {
		return Snapshot{}, nil
	}
	n, err := p.RowCount(ctx)
	if err != nil {
		p.logger().Warn("could not count table rows", "error", err)
		return Snapshot{TablePresent: true, CountErr: err}, nil
	}
	return Snapshot{TablePresent: true, RowCount: n}, nil
}

func (p *Prober) logger() *slog.Logger {
	if p.Logger == nil {
		return slog.Default()
	}
	return p.Logger
}

// Settle defaults.
const (
	DefaultSettleBound = 1500 * time.Millisecond
	DefaultQuiet       = 300 * time.Millisecond
)

// SettleOptions bounds a Settle call.
type SettleOptions struct {
	// Bound is the longest Settle waits before proceeding.
	Bound time.Duration
	// Quiet is how long the row count must stay unchanged.
	Quiet time.Duration
	// Interval is the polling period.
	Interval time.Duration
	// ExpectChange makes Settle wait for the count to differ from the
	// baseline before the quiet window starts counting.
	ExpectChange bool
}

// SettleResult reports what Settle observed.
type SettleResult struct {
	Count    int
	Changed  bool
	TimedOut bool
	Elapsed  time.Duration
}

// Settle waits for an asynchronous table update triggered by an action.
// It polls the row count until the count satisfies opts and has been stable
// for opts.Quiet, or until opts.Bound elapses. Expiry is not an error; the
// caller proceeds with whatever the page shows.
func (p *Prober) Settle(ctx context.Context, baseline int, opts SettleOptions) (SettleResult, error) {
	if opts.Bound <= 0 {
		opts.Bound = DefaultSettleBound
	}
	start := time.Now()
	last := -1
	var stableSince time.Time

	w := browser.Waiter{Timeout: opts.Bound, Interval: opts.Interval}
	err := w.Until(ctx, func(ctx context.Context) (bool, error) {
		n, err := p.RowCount(ctx)
		if err != nil {
			// The table may be re-rendering; keep polling.
			last = -1
			return false, nil
		}
		now := time.Now()
		if n != last {
			last = n
			stableSince = now
		}
		if opts.ExpectChange && n == baseline {
			return false, nil
		}
		return now.Sub(stableSince) >= opts.Quiet, nil
	})

	res := SettleResult{Count: last, Changed: last >= 0 && last != baseline, Elapsed: time.Since(start)}
	if errors.Is(err, browser.ErrTimeout) {
		res.TimedOut = true
		return res, nil
	}
	return res, err
}
