// Package dataset reads tabular scenario data.
//
// A data file is a CSV document whose first record names the columns. Every
// following record becomes one Row, in file order; the 1-based row index is
// the stable test-case identifier used in reports. Cell values are kept
// exactly as written; only header names are trimmed.
package dataset

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// utf8BOM is stripped from the first header cell (spreadsheet exports).
const utf8BOM = "\ufeff"

// Row maps column names to cell values for one record.
type Row map[string]string

// Get returns the value for column, or "" if the row lacks it.
func (r Row) Get(column string) string {
	return r[column]
}

// Table is an ordered set of rows read from one source.
type Table struct {
	// Source names where the rows came from (usually a file path).
	Source  string
	Columns []string
	Rows    []Row
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// ColumnError reports columns a scenario requires but the table lacks.
type ColumnError struct {
	Source  string
	Missing []string
}

func (e *ColumnError) Error() string {
	return fmt.Sprintf("%s: missing required column(s): %s", e.Source, strings.Join(e.Missing, ", "))
}

// ErrEmpty is returned when a source has no header record.
var ErrEmpty = errors.New("no header row")

// Load reads a CSV file into a Table.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read data file: %w", err)
	}
	t, err := Read(bytes.NewReader(data), path)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Read parses CSV records from r. source is used in error messages.
func Read(r io.Reader, source string) (*Table, error) {
	cr := csv.NewReader(r)
	cr.LazyQuotes = true
	// Short rows are padded below instead of rejected.
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%s: %w", source, ErrEmpty)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse header: %w", source, err)
	}

	columns := make([]string, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, utf8BOM)
		}
		columns[i] = strings.TrimSpace(h)
	}

	t := &Table{Source: source, Columns: columns}
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: failed to parse record %d: %w", source, len(t.Rows)+1, err)
		}
		if isBlank(record) {
			continue
		}
		row := make(Row, len(columns))
		for i, col := range columns {
			if i < len(record) {
				row[col] = record[i]
			} else {
				row[col] = ""
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// Require checks that the table has every named column.
func (t *Table) Require(columns ...string) error {
	have := make(map[string]bool, len(t.Columns))
	for _, c := range t.Columns {
		have[c] = true
	}
	var missing []string
	for _, c := range columns {
		if !have[c] {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return &ColumnError{Source: t.Source, Missing: missing}
	}
	return nil
}

func isBlank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
