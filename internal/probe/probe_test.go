package probe

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tablecheck/internal/browser"
	"github.com/roach88/tablecheck/internal/locator"
	"github.com/roach88/tablecheck/internal/testutil"
)

const site = "https://bank.test/#/manager/list"

func newProber(t *testing.T, page *testutil.FakePage) (*Prober, *testutil.FakeBrowser) {
	t.Helper()
	b := testutil.NewFakeBrowser()
	b.AddPage(site, page)
	require.NoError(t, b.Navigate(context.Background(), site))
	return &Prober{
		Session: b,
		Waiter:  browser.Waiter{Timeout: 50 * time.Millisecond, Interval: time.Millisecond},
	}, b
}

func TestRowCount_ExcludesHeader(t *testing.T) {
	p, _ := newProber(t, testutil.NewTablePage("Harry Potter E725JB", "Ron Weasly E55555", "Albus Dumbledore E55656"))

	n, err := p.RowCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestRowCount_EmptyTable(t *testing.T) {
	p, _ := newProber(t, testutil.NewTablePage())

	n, err := p.RowCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestSnapshot_NoTable(t *testing.T) {
	p, _ := newProber(t, &testutil.FakePage{})

	snap, err := p.Snapshot(context.Background())
	require.NoError(t, err)
	assert.False(t, snap.TablePresent)
	assert.Equal(t, 0, snap.RowCount)
	assert.NoError(t, snap.CountErr)
}

func TestSnapshot_PresenceErrorReturned(t *testing.T) {
	page := testutil.NewTablePage("a")
	p, _ := newProber(t, page)
	boom := errors.New("invalid session id")
	page.FindErr[testutil.TableRef] = boom

	_, err := p.Snapshot(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestPresent(t *testing.T) {
	page := testutil.NewTablePage()
	btn := locator.Reference{Kind: locator.ID, Value: "del"}
	page.Add(btn, &testutil.FakeElement{Label: "Delete"})
	p, _ := newProber(t, page)

	ok, err := p.Present(context.Background(), btn)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = p.Present(context.Background(), locator.Reference{Kind: locator.ID, Value: "nope"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestWaitTable_Timeout(t *testing.T) {
	p, _ := newProber(t, &testutil.FakePage{})

	err := p.WaitTable(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, browser.ErrTimeout)
}

func TestTableText(t *testing.T) {
	p, _ := newProber(t, testutil.NewTablePage("Harry Potter"))

	text, err := p.TableText(context.Background())
	require.NoError(t, err)
	assert.Contains(t, text, "Harry Potter")
}

func TestSettle_WaitsForDelayedChange(t *testing.T) {
	page := testutil.NewTablePage("a", "b", "c")
	p, _ := newProber(t, page)
	page.After(5, func(fp *testutil.FakePage) { fp.DeleteRow("b") })

	res, err := p.Settle(context.Background(), 3, SettleOptions{
		Bound:        time.Second,
		Quiet:        2 * time.Millisecond,
		Interval:     time.Millisecond,
		ExpectChange: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Count)
	assert.True(t, res.Changed)
	assert.False(t, res.TimedOut)
}

func TestSettle_NoChangeTimesOutAndProceeds(t *testing.T) {
	p, _ := newProber(t, testutil.NewTablePage("a", "b"))

	res, err := p.Settle(context.Background(), 2, SettleOptions{
		Bound:        20 * time.Millisecond,
		Interval:     time.Millisecond,
		ExpectChange: true,
	})
	require.NoError(t, err)
	assert.True(t, res.TimedOut)
	assert.False(t, res.Changed)
	assert.Equal(t, 2, res.Count)
}

func TestSettle_StableWithoutExpectedChange(t *testing.T) {
	p, _ := newProber(t, testutil.NewTablePage("a", "b"))

	res, err := p.Settle(context.Background(), 2, SettleOptions{
		Bound:    time.Second,
		Quiet:    3 * time.Millisecond,
		Interval: time.Millisecond,
	})
	require.NoError(t, err)
	assert.False(t, res.TimedOut)
	assert.Equal(t, 2, res.Count)
}

func TestSettle_ContextCancelled(t *testing.T) {
	p, _ := newProber(t, testutil.NewTablePage("a"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Settle(ctx, 1, SettleOptions{Bound: time.Second, Interval: time.Millisecond, ExpectChange: true})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
