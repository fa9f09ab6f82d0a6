package cli

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tablecheck/internal/harness"
	"github.com/roach88/tablecheck/internal/logging"
	"github.com/roach88/tablecheck/internal/probe"
	"github.com/roach88/tablecheck/internal/testutil"
)

const (
	testSiteURL   = "http://app.test/customers"
	deleteCSV     = "siteUrl,deleteButton\n" + testSiteURL + ",\"xpath=//tr[td[normalize-space(.)='E55555']]//button\"\n"
	sortCSV       = "siteUrl,sortLabel,customerButton\n" + testSiteURL + ",linktext=First Name,id=customers\n"
	fastTimeouts  = "timeouts:\n  element: 200ms\n  settle: 100ms\n  quiet: 10ms\n  poll_interval: 5ms\n"
	deleteOnlyYML = fastTimeouts + "scenarios:\n  - name: delete-customer\n    kind: delete\n    data: delete.csv\n"
)

// writeSuite writes files into a temp dir and returns the path of
// suite.yaml.
func writeSuite(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
	return filepath.Join(dir, "suite.yaml")
}

func TestLoadSuite(t *testing.T) {
	path := writeSuite(t, map[string]string{
		"suite.yaml": fastTimeouts + `scenarios:
  - name: sort-first-name
    kind: sort
    data: sort.csv
  - name: delete-customer
    kind: delete
    data: delete.csv
`,
		"sort.csv":   sortCSV,
		"delete.csv": deleteCSV,
	})

	s, errs := loadSuite(path, "", LoadModeFailFast, logging.Discard())
	require.Empty(t, errs)
	require.Len(t, s.scenarios, 2)
	assert.Equal(t, "sort-first-name", s.scenarios[0].Name)
	assert.Equal(t, harness.KindSort, s.scenarios[0].Kind)
	assert.Equal(t, harness.KindDelete, s.scenarios[1].Kind)
	assert.Len(t, s.scenarios[1].Rows, 1)
	assert.Equal(t, testutil.TableRef, s.baseline.Reference)
}

func TestLoadSuite_OnlyFilter(t *testing.T) {
	path := writeSuite(t, map[string]string{
		"suite.yaml": `scenarios:
  - name: sort-first-name
    kind: sort
    data: sort.csv
  - name: delete-customer
    kind: delete
    data: missing.csv
`,
		"sort.csv": sortCSV,
	})

	// The filtered-out scenario's data file is never read.
	s, errs := loadSuite(path, "sort-*", LoadModeFailFast, logging.Discard())
	require.Empty(t, errs)
	require.Len(t, s.scenarios, 1)
	assert.Equal(t, "sort-first-name", s.scenarios[0].Name)

	_, errs = loadSuite(path, "search-*", LoadModeFailFast, logging.Discard())
	require.Len(t, errs, 1)
	assert.True(t, errors.Is(errs[0], errNoScenarios))

	_, errs = loadSuite(path, "[", LoadModeFailFast, logging.Discard())
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "invalid --only pattern")
}

func TestLoadSuite_CollectAll(t *testing.T) {
	path := writeSuite(t, map[string]string{
		"suite.yaml": `scenarios:
  - name: a
    kind: delete
    data: missing.csv
  - name: b
    kind: search
    data: sort.csv
  - name: c
    kind: sort
    data: sort.csv
`,
		"sort.csv": sortCSV,
	})

	_, errs := loadSuite(path, "", LoadModeFailFast, logging.Discard())
	require.Len(t, errs, 1)

	s, errs := loadSuite(path, "", LoadModeCollectAll, logging.Discard())
	require.NotNil(t, s)
	require.Len(t, errs, 2)
	assert.Equal(t, CodeFileNotFound, ErrorCode(errs[0]))
	assert.Equal(t, CodeColumns, ErrorCode(errs[1]))
	require.Len(t, s.scenarios, 1)
	assert.Equal(t, "c", s.scenarios[0].Name)
}

func TestRunnerConfig(t *testing.T) {
	path := writeSuite(t, map[string]string{
		"suite.yaml": "baseline: id=results\nscenarios:\n  - name: d\n    kind: delete\n    data: delete.csv\n",
		"delete.csv": deleteCSV,
	})
	s, errs := loadSuite(path, "", LoadModeFailFast, logging.Discard())
	require.Empty(t, errs)

	cfg := s.runnerConfig()
	assert.Equal(t, DefaultElementTimeout, cfg.Timeout)
	assert.Equal(t, DefaultPollInterval, cfg.Interval)
	assert.Equal(t, probe.DefaultSettleBound, cfg.Settle.Bound)
	assert.Equal(t, probe.DefaultQuiet, cfg.Settle.Quiet)
	assert.Equal(t, "results", cfg.Table.Value)

	path = writeSuite(t, map[string]string{
		"suite.yaml": deleteOnlyYML,
		"delete.csv": deleteCSV,
	})
	s, errs = loadSuite(path, "", LoadModeFailFast, logging.Discard())
	require.Empty(t, errs)
	cfg = s.runnerConfig()
	assert.Equal(t, 200*time.Millisecond, cfg.Timeout)
	assert.Equal(t, 5*time.Millisecond, cfg.Interval)
	assert.Equal(t, 100*time.Millisecond, cfg.Settle.Bound)
	assert.Equal(t, 10*time.Millisecond, cfg.Settle.Quiet)
}
