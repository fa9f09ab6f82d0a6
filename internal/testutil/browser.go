package testutil

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/tablecheck/internal/browser"
	"github.com/roach88/tablecheck/internal/locator"
)

// TableRef is the baseline reference the fake page answers for its table.
var TableRef = locator.Reference{Kind: locator.TagName, Value: "table"}

var rowRef = locator.Reference{Kind: locator.TagName, Value: "tr"}

// FakeBrowser is an in-memory browser.Session.
//
// Pages are keyed by URL and keep their state across navigations, the way
// an application backed by session storage does. Navigating to an unknown
// URL yields a blank page.
type FakeBrowser struct {
	Pages       map[string]*FakePage
	Navigations []string
	CloseCount  int
	// NavigateErr, if set, is returned by every Navigate call.
	NavigateErr error

	current *FakePage
}

var _ browser.Session = (*FakeBrowser)(nil)

// NewFakeBrowser creates a browser with no pages.
func NewFakeBrowser() *FakeBrowser {
	return &FakeBrowser{Pages: make(map[string]*FakePage)}
}

// AddPage registers p under url and returns it.
func (b *FakeBrowser) AddPage(url string, p *FakePage) *FakePage {
	b.Pages[url] = p
	return p
}

// Current returns the page last navigated to, or nil.
func (b *FakeBrowser) Current() *FakePage {
	return b.current
}

// Closed reports whether Close was called at least once.
func (b *FakeBrowser) Closed() bool {
	return b.CloseCount > 0
}

// Navigate implements browser.Session.
func (b *FakeBrowser) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.Navigations = append(b.Navigations, url)
	if b.NavigateErr != nil {
		return b.NavigateErr
	}
	p, ok := b.Pages[url]
	if !ok {
		p = &FakePage{}
	}
	b.current = p
	return nil
}

// Find implements browser.Session.
func (b *FakeBrowser) Find(ctx context.Context, ref locator.Reference) (browser.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if b.current == nil {
		return nil, browser.ErrNoSuchElement
	}
	return b.current.find(ref)
}

// FindAll implements browser.Session.
func (b *FakeBrowser) FindAll(ctx context.Context, ref locator.Reference) ([]browser.Element, error) {
	el, err := b.Find(ctx, ref)
	if errors.Is(err, browser.ErrNoSuchElement) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return []browser.Element{el}, nil
}

// Close implements browser.Session.
func (b *FakeBrowser) Close() error {
	b.CloseCount++
	return nil
}

// FakePage is the rendered state behind one URL.
type FakePage struct {
	HasTable bool
	Header   string
	// All holds every data row; Rows is the currently visible subset.
	All  []string
	Rows []string

	Elements map[locator.Reference]*FakeElement
	// FindErr injects errors for specific references.
	FindErr map[locator.Reference]error

	pending []pendingChange
}

type pendingChange struct {
	remaining int
	apply     func(*FakePage)
}

// NewTablePage creates a page whose results table shows rows.
func NewTablePage(rows ...string) *FakePage {
	return &FakePage{
		HasTable: true,
		Header:   "First Name Last Name Post Code Account Number Delete Customer",
		All:      append([]string(nil), rows...),
		Rows:     append([]string(nil), rows...),
		Elements: make(map[locator.Reference]*FakeElement),
		FindErr:  make(map[locator.Reference]error),
	}
}

// Add places el on the page under ref.
func (p *FakePage) Add(ref locator.Reference, el *FakeElement) *FakeElement {
	if p.Elements == nil {
		p.Elements = make(map[locator.Reference]*FakeElement)
	}
	p.Elements[ref] = el
	return el
}

// Remove takes the element under ref off the page.
func (p *FakePage) Remove(ref locator.Reference) {
	delete(p.Elements, ref)
}

// After schedules fn to run once the row table has been read n more times.
// It models UI updates that land asynchronously after an action.
func (p *FakePage) After(n int, fn func(*FakePage)) {
	if n <= 0 {
		fn(p)
		return
	}
	p.pending = append(p.pending, pendingChange{remaining: n, apply: fn})
}

// Filter shows only rows containing text (case-insensitive); empty text
// shows every row.
func (p *FakePage) Filter(text string) {
	if text == "" {
		p.Rows = append([]string(nil), p.All...)
		return
	}
	p.Rows = nil
	for _, r := range p.All {
		if strings.Contains(strings.ToLower(r), strings.ToLower(text)) {
			p.Rows = append(p.Rows, r)
		}
	}
}

// DeleteRow removes the first row equal to row from the table.
func (p *FakePage) DeleteRow(row string) {
	p.All = without(p.All, row)
	p.Rows = without(p.Rows, row)
}

func without(rows []string, row string) []string {
	out := make([]string, 0, len(rows))
	removed := false
	for _, r := range rows {
		if !removed && r == row {
			removed = true
			continue
		}
		out = append(out, r)
	}
	return out
}

func (p *FakePage) tick() {
	var keep []pendingChange
	for _, c := range p.pending {
		c.remaining--
		if c.remaining <= 0 {
			c.apply(p)
			continue
		}
		keep = append(keep, c)
	}
	p.pending = keep
}

func (p *FakePage) find(ref locator.Reference) (browser.Element, error) {
	if err, ok := p.FindErr[ref]; ok && err != nil {
		return nil, err
	}
	if ref == TableRef {
		if !p.HasTable {
			return nil, browser.ErrNoSuchElement
		}
		return &tableElement{page: p}, nil
	}
	el, ok := p.Elements[ref]
	if !ok {
		return nil, browser.ErrNoSuchElement
	}
	el.page = p
	return el, nil
}

// FakeElement is a scripted control.
type FakeElement struct {
	Label    string
	Hidden   bool
	Disabled bool
	Value    string
	// ClickErr, if set, is returned by Click.
	ClickErr error
	// OnClick runs after a successful click.
	OnClick func(p *FakePage)
	// OnInput runs after the value changes through SendKeys or Clear.
	OnInput func(p *FakePage, value string)
	Clicks  int

	page *FakePage
}

var _ browser.Element = (*FakeElement)(nil)

func (e *FakeElement) Click(ctx context.Context) error {
	if e.ClickErr != nil {
		return e.ClickErr
	}
	e.Clicks++
	if e.OnClick != nil {
		e.OnClick(e.page)
	}
	return nil
}

func (e *FakeElement) SendKeys(ctx context.Context, text string) error {
	e.Value += text
	if e.OnInput != nil {
		e.OnInput(e.page, e.Value)
	}
	return nil
}

func (e *FakeElement) Clear(ctx context.Context) error {
	e.Value = ""
	if e.OnInput != nil {
		e.OnInput(e.page, e.Value)
	}
	return nil
}

func (e *FakeElement) Text(ctx context.Context) (string, error) {
	return e.Label, nil
}

func (e *FakeElement) Displayed(ctx context.Context) (bool, error) {
	return !e.Hidden, nil
}

func (e *FakeElement) Enabled(ctx context.Context) (bool, error) {
	return !e.Disabled, nil
}

func (e *FakeElement) FindAll(ctx context.Context, ref locator.Reference) ([]browser.Element, error) {
	return nil, nil
}

// tableElement renders the page's rows as a header row plus data rows.
type tableElement struct {
	page *FakePage
}

func (t *tableElement) FindAll(ctx context.Context, ref locator.Reference) ([]browser.Element, error) {
	if ref != rowRef {
		return nil, fmt.Errorf("fake table: unsupported lookup %s", ref)
	}
	t.page.tick()
	out := []browser.Element{&FakeElement{Label: t.page.Header}}
	for _, r := range t.page.Rows {
		out = append(out, &FakeElement{Label: r})
	}
	return out, nil
}

func (t *tableElement) Text(ctx context.Context) (string, error) {
	return strings.Join(append([]string{t.page.Header}, t.page.Rows...), "\n"), nil
}

func (t *tableElement) Click(ctx context.Context) error { return nil }
func (t *tableElement) SendKeys(ctx context.Context, text string) error { return nil }
func (t *tableElement) Clear(ctx context.Context) error { return nil }
func (t *tableElement) Displayed(ctx context.Context) (bool, error) { return true, nil }
func (t *tableElement) Enabled(ctx context.Context) (bool, error) { return true, nil }
