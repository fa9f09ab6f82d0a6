package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/tablecheck/internal/browser"
	"github.com/roach88/tablecheck/internal/dataset"
	"github.com/roach88/tablecheck/internal/locator"
	"github.com/roach88/tablecheck/internal/probe"
)

// Clock provides the wall time used to measure row durations.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// IDGenerator produces run identifiers.
type IDGenerator interface {
	Generate() string
}

// UUIDGenerator generates UUIDv7 run IDs, which sort by creation time.
type UUIDGenerator struct{}

// Generate returns a new UUIDv7 string.
func (UUIDGenerator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Config bounds the runner's waits.
type Config struct {
	// Timeout bounds every presence and clickability wait.
	Timeout time.Duration
	// Interval is the polling period of those waits.
	Interval time.Duration
	// Settle bounds the post-action wait for the table to stabilize.
	// ExpectChange is decided per kind and ignored here.
	Settle probe.SettleOptions
	// Table is the baseline structural element; probe.DefaultTable if zero.
	Table locator.Reference
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the structured logger. The default discards output.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// WithClock sets the clock used for row durations.
func WithClock(c Clock) Option {
	return func(r *Runner) { r.clock = c }
}

// WithObserver registers fn to receive each outcome as soon as its row
// finishes.
func WithObserver(fn func(Outcome)) Option {
	return func(r *Runner) { r.observe = fn }
}

// Runner executes data-driven scenarios against one shared browser session.
//
// Rows run strictly in order. Every row is isolated: a fault or panic in
// one row becomes that row's failed Outcome and the next row still runs.
// The runner never closes the session; its owner does.
type Runner struct {
	session browser.Session
	prober  *probe.Prober
	waiter  browser.Waiter
	cfg     Config
	clock   Clock
	logger  *slog.Logger
	observe func(Outcome)
}

// NewRunner creates a runner driving session.
func NewRunner(session browser.Session, cfg Config, opts ...Option) *Runner {
	r := &Runner{
		session: session,
		cfg:     cfg,
		clock:   systemClock{},
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.waiter = browser.Waiter{Timeout: cfg.Timeout, Interval: cfg.Interval}
	r.prober = &probe.Prober{
		Session: session,
		Table:   cfg.Table,
		Waiter:  r.waiter,
		Logger:  r.logger,
	}
	if r.cfg.Settle.Interval <= 0 {
		r.cfg.Settle.Interval = cfg.Interval
	}
	return r
}

// Run executes kind against every row and returns one Outcome per row, in
// row order. Once ctx is done the remaining rows are reported as skipped.
func (r *Runner) Run(ctx context.Context, kind Kind, rows []dataset.Row) []Outcome {
	outcomes := make([]Outcome, 0, len(rows))
	for i, row := range rows {
		var out Outcome
		if ctx.Err() != nil {
			out = failedOutcome(kind, FailureUnexpected, "Skipped: run cancelled")
			out.CaseIndex = i + 1
		} else {
			out = r.runRow(ctx, kind, i+1, row)
		}
		outcomes = append(outcomes, out)
		if r.observe != nil {
			r.observe(out)
		}
	}
	return outcomes
}

func (r *Runner) runRow(ctx context.Context, kind Kind, index int, row dataset.Row) (out Outcome) {
	start := r.clock.Now()
	logger := r.logger.With("kind", string(kind), "case", index)

	var notes []Annotation
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("row panicked", "panic", rec)
			out = failedOutcome(kind, FailureUnexpected, fmt.Sprintf("Unexpected error: %v", rec))
		}
		out.CaseIndex = index
		out.Annotations = append(notes, out.Annotations...)
		out.Duration = r.clock.Now().Sub(start)

		if out.Passed {
			logger.Info("row passed", "message", out.Message, "warnings", len(out.Warnings()))
		} else {
			logger.Warn("row failed", "failure", string(out.Failure), "message", out.Message)
		}
	}()

	plan := planRow(kind, row)
	for _, col := range plan.defaulted() {
		p := plan.locators[col]
		logger.Warn("unrecognized locator prefix, treating as xpath",
			"column", col, "prefix", p.Prefix, "value", p.Value)
		notes = append(notes, Annotation{
			Level:   LevelWarning,
			Code:    CodeLocatorDefaulted,
			Message: fmt.Sprintf("Locator %s has unrecognized prefix '%s', treated as xpath", col, p.Prefix),
		})
	}
	logger.Debug("running row", "url", plan.siteURL)

	var err error
	switch kind {
	case KindSearch:
		out, err = r.search(ctx, plan)
	case KindSort:
		out, err = r.sort(ctx, plan)
	case KindDelete:
		out, err = r.delete(ctx, plan)
	default:
		err = fmt.Errorf("unknown scenario kind %q", kind)
	}
	if err != nil {
		out = faultOutcome(kind, err)
		if out.Failure == FailureUnexpected {
			logger.Error("row fault", "error", err)
		}
	}
	return out
}

// faultOutcome converts a row error into a failed outcome. A RowFault keeps
// its classification; anything else is an unexpected fault.
func faultOutcome(kind Kind, err error) Outcome {
	var fault *RowFault
	if errors.As(err, &fault) {
		return failedOutcome(kind, fault.Failure, fault.Message)
	}
	return failedOutcome(kind, FailureUnexpected, "Unexpected error: "+err.Error())
}

// open navigates to url, waits for the baseline element and captures the
// pre-action snapshot.
func (r *Runner) open(ctx context.Context, url string) (probe.Snapshot, error) {
	if err := r.session.Navigate(ctx, url); err != nil {
		return probe.Snapshot{}, fmt.Errorf("navigate to %s: %w", url, err)
	}
	if err := r.prober.WaitTable(ctx); err != nil {
		if errors.Is(err, browser.ErrTimeout) {
			return probe.Snapshot{}, &RowFault{
				Failure: FailureNotFound,
				Message: "Results table not found after loading " + url,
				Err:     err,
			}
		}
		return probe.Snapshot{}, err
	}
	return r.prober.Snapshot(ctx)
}

// locate waits for ref to be present and then interactable. The two waits
// fail with distinct classifications.
func (r *Runner) locate(ctx context.Context, ref locator.Reference, notFound, notInteractable string) (browser.Element, error) {
	if _, err := r.waiter.WaitPresent(ctx, r.session, ref); err != nil {
		if errors.Is(err, browser.ErrTimeout) {
			return nil, &RowFault{Failure: FailureNotFound, Message: notFound, Err: err}
		}
		return nil, err
	}
	el, err := r.waiter.WaitClickable(ctx, r.session, ref)
	if err != nil {
		if errors.Is(err, browser.ErrTimeout) {
			return nil, &RowFault{Failure: FailureNotInteractable, Message: notInteractable, Err: err}
		}
		return nil, err
	}
	return el, nil
}

// settle waits for the table to react to an action.
func (r *Runner) settle(ctx context.Context, baseline int, expectChange bool) (probe.SettleResult, error) {
	opts := r.cfg.Settle
	opts.ExpectChange = expectChange
	res, err := r.prober.Settle(ctx, baseline, opts)
	r.logger.Debug("table settled",
		"rows", res.Count,
		"changed", res.Changed,
		"timed_out", res.TimedOut,
		"elapsed", res.Elapsed)
	return res, err
}

// afterAction waits for the baseline element again and captures the
// post-action snapshot. A table that never comes back yields a snapshot
// with TablePresent false, which Verify reports as structural loss.
func (r *Runner) afterAction(ctx context.Context) (probe.Snapshot, error) {
	if err := r.prober.WaitTable(ctx); err != nil {
		if errors.Is(err, browser.ErrTimeout) {
			return probe.Snapshot{}, nil
		}
		return probe.Snapshot{}, err
	}
	return r.prober.Snapshot(ctx)
}

func noteSettle(out *Outcome, res probe.SettleResult, bound time.Duration) {
	if !res.TimedOut {
		return
	}
	if bound <= 0 {
		bound = probe.DefaultSettleBound
	}
	out.Annotate(LevelInfo, CodeSettleTimedOut, "Table did not settle within %s", bound)
}

func (r *Runner) search(ctx context.Context, plan rowPlan) (Outcome, error) {
	before, err := r.open(ctx, plan.siteURL)
	if err != nil {
		return Outcome{}, err
	}

	ref := plan.ref(ColSearchInput)
	field, err := r.locate(ctx, ref,
		"Search field not found: "+ref.Value,
		"Search field not interactable: "+ref.Value)
	if err != nil {
		return Outcome{}, err
	}
	if err := field.Clear(ctx); err != nil {
		return Outcome{}, fmt.Errorf("clear search field: %w", err)
	}
	if err := field.SendKeys(ctx, plan.searchText); err != nil {
		return Outcome{}, fmt.Errorf("type search text: %w", err)
	}

	settled, err := r.settle(ctx, before.RowCount, true)
	if err != nil {
		return Outcome{}, err
	}
	after, err := r.afterAction(ctx)
	if err != nil {
		return Outcome{}, err
	}

	extra := Extra{SearchText: plan.searchText}
	if after.TablePresent {
		extra.TableText, extra.TableTextErr = r.prober.TableText(ctx)
	}
	out := Verify(KindSearch, before, after, extra)
	noteSettle(&out, settled, r.cfg.Settle.Bound)

	if after.TablePresent {
		r.clearSearch(ctx, &out, field, before.RowCount, after.RowCount)
	}
	return out, nil
}

// clearSearch resets the search field so the next row starts from the
// full table. Faults here never fail the row.
func (r *Runner) clearSearch(ctx context.Context, out *Outcome, field browser.Element, full, filtered int) {
	if err := field.Clear(ctx); err != nil {
		out.Annotate(LevelWarning, CodeCleanupFailed, "Could not clear search field: %v", err)
		return
	}
	if _, err := r.settle(ctx, filtered, full != filtered); err != nil {
		out.Annotate(LevelWarning, CodeCleanupFailed, "Table did not settle after clearing search: %v", err)
		return
	}
	n, err := r.prober.RowCount(ctx)
	if err != nil {
		out.Annotate(LevelWarning, CodeCleanupFailed, "Could not count rows after clearing search: %v", err)
		return
	}
	out.Annotate(LevelInfo, CodeCleanup, "Rows after clearing search: %d", n)
}

func (r *Runner) sort(ctx context.Context, plan rowPlan) (Outcome, error) {
	before, err := r.open(ctx, plan.siteURL)
	if err != nil {
		return Outcome{}, err
	}

	ref := plan.ref(ColSortLabel)
	msg := "Sort element not found or not clickable: " + ref.Value
	ctl, err := r.locate(ctx, ref, msg+" (not found)", msg+" (not interactable)")
	if err != nil {
		return Outcome{}, err
	}
	if err := ctl.Click(ctx); err != nil {
		if ctx.Err() != nil {
			return Outcome{}, err
		}
		return Outcome{}, &RowFault{Failure: FailureNotInteractable, Message: msg + " (click failed)", Err: err}
	}

	settled, err := r.settle(ctx, before.RowCount, false)
	if err != nil {
		return Outcome{}, err
	}
	after, err := r.afterAction(ctx)
	if err != nil {
		return Outcome{}, err
	}

	secondary := plan.ref(ColCustomerButton)
	extra := Extra{SortLabel: ref.Value, SecondaryLabel: secondary.Value}
	if after.TablePresent {
		_, err := r.waiter.WaitPresent(ctx, r.session, secondary)
		if err != nil && ctx.Err() != nil {
			return Outcome{}, err
		}
		extra.SecondaryPresent = err == nil
	}
	out := Verify(KindSort, before, after, extra)
	noteSettle(&out, settled, r.cfg.Settle.Bound)
	return out, nil
}

func (r *Runner) delete(ctx context.Context, plan rowPlan) (Outcome, error) {
	before, err := r.open(ctx, plan.siteURL)
	if err != nil {
		return Outcome{}, err
	}

	ref := plan.ref(ColDeleteButton)
	btn, err := r.locate(ctx, ref,
		fmt.Sprintf("Delete button not found for customer '%s'", plan.customerID),
		"Delete button exists but is not clickable")
	if err != nil {
		return Outcome{}, err
	}
	if err := btn.Click(ctx); err != nil {
		if ctx.Err() != nil {
			return Outcome{}, err
		}
		return Outcome{}, &RowFault{
			Failure: FailureNotInteractable,
			Message: fmt.Sprintf("Could not click delete button: %v", err),
			Err:     err,
		}
	}

	settled, err := r.settle(ctx, before.RowCount, true)
	if err != nil {
		return Outcome{}, err
	}
	after, err := r.afterAction(ctx)
	if err != nil {
		return Outcome{}, err
	}

	extra := Extra{CustomerID: plan.customerID}
	if after.TablePresent {
		present, err := r.prober.Present(ctx, ref)
		if err != nil && ctx.Err() != nil {
			return Outcome{}, err
		}
		extra.DeleteControlGone = err == nil && !present
		extra.DeleteControlErr = err
	}
	out := Verify(KindDelete, before, after, extra)
	noteSettle(&out, settled, r.cfg.Settle.Bound)
	return out, nil
}
