package harness

import (
	"fmt"
	"strings"
	"time"
)

// Kind is a category of user action under test.
type Kind string

// Scenario kinds.
const (
	KindSearch Kind = "search"
	KindSort   Kind = "sort"
	KindDelete Kind = "delete"
)

// Kinds lists every scenario kind in suite order.
var Kinds = []Kind{KindSearch, KindSort, KindDelete}

// ParseKind converts a case-insensitive kind name.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	switch k {
	case KindSearch, KindSort, KindDelete:
		return k, nil
	}
	return "", fmt.Errorf("unknown scenario kind %q: must be one of %v", s, Kinds)
}

// Title returns the kind name for headings ("Search").
func (k Kind) Title() string {
	if k == "" {
		return ""
	}
	return strings.ToUpper(string(k[:1])) + string(k[1:])
}

// Column names of the data-file contract.
const (
	ColSiteURL        = "siteUrl"
	ColSearchInput    = "searchInput"
	ColSearchText     = "searchText"
	ColSortLabel      = "sortLabel"
	ColCustomerButton = "customerButton"
	ColDeleteButton   = "deleteButton"
)

// Columns returns the data-file columns the kind requires.
func (k Kind) Columns() []string {
	switch k {
	case KindSearch:
		return []string{ColSiteURL, ColSearchInput, ColSearchText}
	case KindSort:
		return []string{ColSiteURL, ColSortLabel, ColCustomerButton}
	case KindDelete:
		return []string{ColSiteURL, ColDeleteButton}
	}
	return nil
}

// LocatorColumns returns the columns holding locator strings.
func (k Kind) LocatorColumns() []string {
	switch k {
	case KindSearch:
		return []string{ColSearchInput}
	case KindSort:
		return []string{ColSortLabel, ColCustomerButton}
	case KindDelete:
		return []string{ColDeleteButton}
	}
	return nil
}

// Failure classifies why an Outcome did not pass.
type Failure string

// Failure classes. Only these flip an Outcome to failed.
const (
	FailureNone            Failure = ""
	FailureNotFound        Failure = "element_not_found"
	FailureNotInteractable Failure = "element_not_interactable"
	FailureStructuralLoss  Failure = "structural_loss"
	FailureUnexpected      Failure = "unexpected_fault"
)

// Level grades an Annotation.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
)

// Annotation codes.
const (
	CodeRowsDeleted          = "rows_deleted"
	CodeRowCountUnchanged    = "row_count_unchanged"
	CodeRowCountIncreased    = "row_count_increased"
	CodeRowCountUnavailable  = "row_count_unavailable"
	CodeSearchResults        = "search_results"
	CodeZeroResults          = "zero_results"
	CodeSearchTextFound      = "search_text_found"
	CodeSearchTextNotVisible = "search_text_not_visible"
	CodeSearchTextUnverified = "search_text_unverified"
	CodeSecondaryMissing     = "secondary_control_missing"
	CodeDeleteControlPresent = "delete_control_still_present"
	CodeDeleteUnverified     = "delete_control_unverified"
	CodeLocatorDefaulted     = "locator_defaulted"
	CodeCleanup              = "cleanup"
	CodeCleanupFailed        = "cleanup_failed"
	CodeSettleTimedOut       = "settle_timed_out"
)

// Annotation is a non-fatal note attached to an Outcome. Warnings mark the
// lenient branches of the policy so they stay distinguishable from a clean
// pass.
type Annotation struct {
	Level   Level  `json:"level"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Outcome is the verdict for one data row.
type Outcome struct {
	// CaseIndex is the 1-based row index.
	CaseIndex   int           `json:"case"`
	Kind        Kind          `json:"kind"`
	Passed      bool          `json:"passed"`
	Message     string        `json:"message"`
	Failure     Failure       `json:"failure,omitempty"`
	Annotations []Annotation  `json:"annotations,omitempty"`
	Before      *Counts       `json:"before,omitempty"`
	After       *Counts       `json:"after,omitempty"`
	Duration    time.Duration `json:"duration_ns"`
}

// Counts is the reported part of a snapshot.
type Counts struct {
	TablePresent bool `json:"table_present"`
	Rows         int  `json:"rows"`
}

// newOutcome creates a passing outcome.
func newOutcome(kind Kind, message string) Outcome {
	return Outcome{Kind: kind, Passed: true, Message: message}
}

// failedOutcome creates a failed outcome of the given class.
func failedOutcome(kind Kind, failure Failure, message string) Outcome {
	return Outcome{Kind: kind, Passed: false, Failure: failure, Message: message}
}

// Annotate appends a formatted annotation.
func (o *Outcome) Annotate(level Level, code, format string, args ...any) {
	o.Annotations = append(o.Annotations, Annotation{
		Level:   level,
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	})
}

// Warnings returns the warning-level annotations.
func (o Outcome) Warnings() []Annotation {
	var out []Annotation
	for _, a := range o.Annotations {
		if a.Level == LevelWarning {
			out = append(out, a)
		}
	}
	return out
}

// Errored reports whether the outcome came from an unexpected fault rather
// than a verification failure.
func (o Outcome) Errored() bool {
	return !o.Passed && o.Failure == FailureUnexpected
}

// RowFault is a classified, row-scoped failure raised while executing a row.
type RowFault struct {
	Failure Failure
	Message string
	Err     error
}

func (f *RowFault) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %v", f.Message, f.Err)
	}
	return f.Message
}

func (f *RowFault) Unwrap() error {
	return f.Err
}
