package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/tablecheck/internal/dataset"
	"github.com/roach88/tablecheck/internal/locator"
)

// Scenario is one data-driven scenario: a kind and its ordered rows.
type Scenario struct {
	// Name uniquely identifies this scenario within a suite.
	Name string
	Kind Kind
	// Source names the data file the rows came from.
	Source string
	Rows   []dataset.Row
}

// NewScenario binds a data table to a kind after checking the kind's
// column contract.
func NewScenario(name string, kind Kind, table *dataset.Table) (*Scenario, error) {
	if err := table.Require(kind.Columns()...); err != nil {
		return nil, fmt.Errorf("scenario %q: %w", name, err)
	}
	return &Scenario{
		Name:   name,
		Kind:   kind,
		Source: table.Source,
		Rows:   table.Rows,
	}, nil
}

// rowPlan is a data row with its locator fields resolved.
type rowPlan struct {
	kind       Kind
	siteURL    string
	locators   map[string]locator.Parsed
	searchText string
	customerID string
}

func (p rowPlan) ref(column string) locator.Reference {
	return p.locators[column].Reference
}

// planRow resolves every locator column of row. Locators are parsed per
// row and never cached, since a row may target an element that only exists
// after an earlier row's action.
func planRow(kind Kind, row dataset.Row) rowPlan {
	p := rowPlan{
		kind:       kind,
		siteURL:    strings.TrimSpace(row.Get(ColSiteURL)),
		locators:   make(map[string]locator.Parsed),
		searchText: row.Get(ColSearchText),
	}
	for _, col := range kind.LocatorColumns() {
		p.locators[col] = locator.Resolve(row.Get(col))
	}
	if kind == KindDelete {
		p.customerID = CustomerID(p.ref(ColDeleteButton).Value)
	}
	return p
}

// defaulted returns the locator columns whose prefix was not recognized.
func (p rowPlan) defaulted() []string {
	var cols []string
	for _, col := range p.kind.LocatorColumns() {
		if p.locators[col].Resolution == locator.DefaultedToXPath {
			cols = append(cols, col)
		}
	}
	return cols
}

// DefaultedLocator is a locator field whose prefix was unknown and which
// therefore falls back to XPath.
type DefaultedLocator struct {
	Case   int    `json:"case"`
	Column string `json:"column"`
	Prefix string `json:"prefix"`
	Value  string `json:"value"`
}

// Defaulted lists the defaulted locator fields of every row, in row order.
func (s *Scenario) Defaulted() []DefaultedLocator {
	var out []DefaultedLocator
	for i, row := range s.Rows {
		plan := planRow(s.Kind, row)
		for _, col := range plan.defaulted() {
			p := plan.locators[col]
			out = append(out, DefaultedLocator{Case: i + 1, Column: col, Prefix: p.Prefix, Value: p.Value})
		}
	}
	return out
}

const normalizeSpaceMarker = "normalize-space(.)='"

// CustomerID extracts the record identifier from an XPath of the form
// ...normalize-space(.)='E55555']... as produced by recorder tools.
// It returns "Unknown" if the pattern is absent.
func CustomerID(xpath string) string {
	start := strings.Index(xpath, normalizeSpaceMarker)
	if start < 0 {
		return "Unknown"
	}
	start += len(normalizeSpaceMarker)
	end := strings.Index(xpath[start:], "']")
	if end <= 0 {
		return "Unknown"
	}
	return xpath[start : start+end]
}
