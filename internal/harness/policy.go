package harness

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/tablecheck/internal/probe"
)

// Extra carries the per-kind observations Verify needs beyond row counts.
type Extra struct {
	// SearchText is the query typed into the search field.
	SearchText string
	// TableText is the rendered table text after a search.
	TableText string
	// TableTextErr is set when the table text could not be read.
	TableTextErr error

	// SortLabel is the locator value of the sort control.
	SortLabel string
	// SecondaryLabel names the control checked after sorting.
	SecondaryLabel string
	// SecondaryPresent reports whether that control resolved afterwards.
	SecondaryPresent bool

	// CustomerID identifies the deleted record in messages.
	CustomerID string
	// DeleteControlGone reports whether the delete control disappeared.
	DeleteControlGone bool
	// DeleteControlErr is set when the control could not be looked up.
	DeleteControlErr error
}

// Verify compares before/after snapshots for one row and decides the
// outcome. It is strict on structure and lenient on shape: the only hard
// failure it produces is a missing results table after the action; count
// and text mismatches become annotations on a passing outcome.
func Verify(kind Kind, before, after probe.Snapshot, extra Extra) Outcome {
	if !after.TablePresent {
		return failedOutcome(kind, FailureStructuralLoss, structuralLossMessage(kind))
	}

	var out Outcome
	switch kind {
	case KindDelete:
		out = verifyDelete(before, after, extra)
	case KindSort:
		out = verifySort(extra)
	case KindSearch:
		out = verifySearch(before, after, extra)
	default:
		return failedOutcome(kind, FailureUnexpected, "Unexpected error: unknown scenario kind "+string(kind))
	}

	if before.CountErr != nil {
		out.Annotate(LevelWarning, CodeRowCountUnavailable, "Could not count table rows before action: %v", before.CountErr)
	}
	if after.CountErr != nil {
		out.Annotate(LevelWarning, CodeRowCountUnavailable, "Could not count table rows after action: %v", after.CountErr)
	}
	out.Before = &Counts{TablePresent: before.TablePresent, Rows: before.RowCount}
	out.After = &Counts{TablePresent: after.TablePresent, Rows: after.RowCount}
	return out
}

func structuralLossMessage(kind Kind) string {
	switch kind {
	case KindDelete:
		return "Results table disappeared after deletion"
	case KindSort:
		return "Results table disappeared after sorting"
	default:
		return "Results table not found after search"
	}
}

func verifyDelete(before, after probe.Snapshot, extra Extra) Outcome {
	id := customerOrUnknown(extra.CustomerID)

	var out Outcome
	switch deleted := before.RowCount - after.RowCount; {
	case deleted > 0:
		out = newOutcome(KindDelete, fmt.Sprintf("Customer '%s' deleted successfully (%d row(s) deleted)", id, deleted))
		out.Annotate(LevelInfo, CodeRowsDeleted, "Successfully deleted %d customer(s)", deleted)
	case deleted == 0:
		out = newOutcome(KindDelete, fmt.Sprintf("Customer '%s' delete executed (row count unchanged)", id))
		out.Annotate(LevelWarning, CodeRowCountUnchanged,
			"Row count unchanged (was %d, now %d); customer may not have been deleted or was the last one",
			before.RowCount, after.RowCount)
	default:
		out = newOutcome(KindDelete, fmt.Sprintf("Customer '%s' delete executed (row count increased)", id))
		out.Annotate(LevelWarning, CodeRowCountIncreased,
			"Unexpected: row count increased (was %d, now %d)", before.RowCount, after.RowCount)
	}

	switch {
	case extra.DeleteControlErr != nil:
		out.Annotate(LevelWarning, CodeDeleteUnverified, "Could not check delete button after deletion: %v", extra.DeleteControlErr)
	case !extra.DeleteControlGone:
		out.Annotate(LevelWarning, CodeDeleteControlPresent, "Delete button still exists after deletion")
	}
	return out
}

func verifySort(extra Extra) Outcome {
	out := newOutcome(KindSort, "Successfully sorted by: '"+extra.SortLabel+"'")
	if !extra.SecondaryPresent {
		out.Annotate(LevelWarning, CodeSecondaryMissing, "Customer button verification failed: %s", extra.SecondaryLabel)
	}
	return out
}

func verifySearch(before, after probe.Snapshot, extra Extra) Outcome {
	if after.RowCount == 0 {
		out := newOutcome(KindSearch, "Search for '"+extra.SearchText+"' returned no matches")
		out.Annotate(LevelInfo, CodeZeroResults,
			"Search returned 0 results - no matches found for '%s'", extra.SearchText)
		return out
	}

	out := newOutcome(KindSearch, "Search for '"+extra.SearchText+"' executed successfully")
	out.Annotate(LevelInfo, CodeSearchResults, "Search returned %d result(s) (from %d)", after.RowCount, before.RowCount)

	switch {
	case extra.TableTextErr != nil:
		out.Annotate(LevelWarning, CodeSearchTextUnverified, "Could not verify search text in results: %v", extra.TableTextErr)
	case ContainsFolded(extra.TableText, extra.SearchText):
		out.Annotate(LevelInfo, CodeSearchTextFound, "Search text '%s' found in results", extra.SearchText)
	default:
		out.Annotate(LevelWarning, CodeSearchTextNotVisible,
			"Search text '%s' not visible in results, but table is present", extra.SearchText)
	}
	return out
}

// ContainsFolded reports whether needle occurs in haystack after Unicode
// normalization and case folding.
func ContainsFolded(haystack, needle string) bool {
	caser := cases.Fold()
	fold := func(s string) string {
		return caser.String(norm.NFC.String(s))
	}
	return strings.Contains(fold(haystack), fold(strings.TrimSpace(needle)))
}

func customerOrUnknown(id string) string {
	if id == "" {
		return "Unknown"
	}
	return id
}
