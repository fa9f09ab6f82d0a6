package harness

import (
	"bytes"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// AssertGoldenReport renders rep as text and compares it against the golden
// file testdata/golden/{name}.golden.
//
// Reports compared this way must be built with a fixed run ID; durations
// never appear in the text layout.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func AssertGoldenReport(t *testing.T, name string, rep *Report) {
	t.Helper()

	var buf bytes.Buffer
	if err := WriteText(&buf, rep); err != nil {
		t.Fatalf("render report: %v", err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, buf.Bytes())
}
