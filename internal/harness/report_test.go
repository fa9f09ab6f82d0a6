package harness

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tablecheck/internal/dataset"
	"github.com/roach88/tablecheck/internal/testutil"
)

func mixedReport() *Report {
	rep := NewReport(testutil.NewFixedIDGenerator("").Generate())

	found := newOutcome(KindSearch, "Search for 'Harry' executed successfully")
	found.CaseIndex = 1
	found.Annotate(LevelInfo, CodeSearchResults, "Search returned %d result(s) (from %d)", 1, 5)
	found.Annotate(LevelInfo, CodeSearchTextFound, "Search text '%s' found in results", "Harry")

	missing := failedOutcome(KindSearch, FailureNotFound, "Search field not found: searchCustomer")
	missing.CaseIndex = 2

	rep.Add(ScenarioReport{
		Name:     "customer-search",
		Kind:     KindSearch,
		Source:   "search.csv",
		Outcomes: []Outcome{found, missing},
	})

	unchanged := newOutcome(KindDelete, "Customer 'E55555' delete executed (row count unchanged)")
	unchanged.CaseIndex = 1
	unchanged.Annotate(LevelWarning, CodeRowCountUnchanged, "Row count unchanged (was %d, now %d)", 5, 5)

	boom := failedOutcome(KindDelete, FailureUnexpected, "Unexpected error: boom")
	boom.CaseIndex = 2

	rep.Add(ScenarioReport{
		Name:     "customer-delete",
		Kind:     KindDelete,
		Outcomes: []Outcome{unchanged, boom},
	})
	return rep
}

func TestReport_Tally(t *testing.T) {
	rep := mixedReport()

	assert.Equal(t, 4, rep.TestsRun)
	assert.Equal(t, 2, rep.Passed)
	assert.Equal(t, 1, rep.Failed)
	assert.Equal(t, 1, rep.Errored)
	assert.Equal(t, 1, rep.Warnings)
	assert.False(t, rep.Success())
}

func TestReport_SuccessWithWarnings(t *testing.T) {
	rep := NewReport("run")
	o := newOutcome(KindDelete, "Customer 'A' delete executed (row count unchanged)")
	o.Annotate(LevelWarning, CodeRowCountUnchanged, "unchanged")
	rep.Add(ScenarioReport{Name: "d", Kind: KindDelete, Outcomes: []Outcome{o}})

	assert.True(t, rep.Success(), "warnings must not fail a run")
	assert.Equal(t, 1, rep.Warnings)
}

func TestReport_DoesNotMutateOutcomes(t *testing.T) {
	o := failedOutcome(KindSort, FailureNotFound, "Sort element not found or not clickable: Name")
	o.CaseIndex = 3
	want := o

	rep := NewReport("run")
	rep.Add(ScenarioReport{Name: "s", Kind: KindSort, Outcomes: []Outcome{o}})

	assert.Equal(t, want, rep.Scenarios[0].Outcomes[0])
}

func TestWriteText_Golden(t *testing.T) {
	AssertGoldenReport(t, "mixed_report", mixedReport())
}

func TestWriteText_EmptyScenario(t *testing.T) {
	rep := NewReport("")
	rep.Add(ScenarioReport{Name: "empty", Kind: KindSort, Outcomes: nil})

	AssertGoldenReport(t, "empty_report", rep)
}

func TestWriteText_Summary(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, mixedReport()))

	out := buf.String()
	assert.Contains(t, out, "TEST EXECUTION SUMMARY")
	assert.Contains(t, out, "Tests Run: 4")
	assert.Contains(t, out, "Failures: 1")
	assert.Contains(t, out, "Errors: 1")
}

func TestRunSuite_RunsEveryScenario(t *testing.T) {
	const url = "http://app.test/customers"
	b := testutil.NewFakeBrowser()
	page := b.AddPage(url, testutil.NewTablePage("Harry Potter E11111", "Ron Weasly E22222"))
	page.Add(sortRef, &testutil.FakeElement{Label: "First Name"})
	page.Add(customerRef, &testutil.FakeElement{Label: "Customers"})

	sortScenario := &Scenario{
		Name: "sort",
		Kind: KindSort,
		Rows: []dataset.Row{
			{ColSiteURL: url, ColSortLabel: "linktext=First Name", ColCustomerButton: "id=customers"},
		},
	}
	searchScenario := &Scenario{
		Name: "search",
		Kind: KindSearch,
		Rows: []dataset.Row{
			{ColSiteURL: url, ColSearchInput: "id=missing", ColSearchText: "Harry"},
		},
	}

	runner := newTestRunner(b)
	rep := RunSuite(context.Background(), runner, []*Scenario{sortScenario, searchScenario}, "run-1")

	require.Len(t, rep.Scenarios, 2)
	assert.Equal(t, "run-1", rep.RunID)
	assert.Equal(t, 2, rep.TestsRun)
	assert.Equal(t, 1, rep.Passed)
	assert.Equal(t, 1, rep.Failed)
	assert.Equal(t, []string{url, url}, b.Navigations)
}
