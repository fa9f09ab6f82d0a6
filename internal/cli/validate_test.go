package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execValidate(t *testing.T, format string, verbose bool, path string) (string, string, error) {
	t.Helper()
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd := NewValidateCommand(&RootOptions{Format: format, Verbose: verbose})
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs([]string{path})
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestValidateValidSuite(t *testing.T) {
	path := writeSuite(t, map[string]string{
		"suite.yaml": "scenarios:\n  - name: sort-first-name\n    kind: sort\n    data: sort.csv\n",
		"sort.csv":   sortCSV + testSiteURL + ",linktext=Last Name,id=customers\n",
	})

	output, _, err := execValidate(t, "text", false, path)
	require.NoError(t, err)
	assert.Contains(t, output, "✓ Manifest valid: 1 scenario(s), 2 test case(s)")
	assert.Contains(t, output, "sort-first-name [sort]")
	assert.NotContains(t, output, "fall back to xpath")
}

func TestValidateListsDefaultedLocators(t *testing.T) {
	path := writeSuite(t, map[string]string{
		"suite.yaml": "baseline: table=results\nscenarios:\n  - name: sort-first-name\n    kind: sort\n    data: sort.csv\n",
		"sort.csv":   "siteUrl,sortLabel,customerButton\n" + testSiteURL + ",label=First Name,id=customers\n",
	})

	output, _, err := execValidate(t, "text", false, path)
	require.NoError(t, err, "defaulted locators are warnings only")
	assert.Contains(t, output, "⚠ baseline \"table=results\" falls back to xpath")
	assert.Contains(t, output, "⚠ 1 locator(s) fall back to xpath")
	assert.Contains(t, output, `sort-first-name case 1 sortLabel: unknown prefix "label" (value "First Name")`)
}

func TestValidateValidSuiteJSON(t *testing.T) {
	path := writeSuite(t, map[string]string{
		"suite.yaml": "scenarios:\n  - name: sort-first-name\n    kind: sort\n    data: sort.csv\n",
		"sort.csv":   "siteUrl,sortLabel,customerButton\n" + testSiteURL + ",label=First Name,id=customers\n",
	})

	output, _, err := execValidate(t, "json", false, path)
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	require.Len(t, resp.Data.Scenarios, 1)
	assert.Equal(t, 1, resp.Data.Scenarios[0].Cases)
	require.Len(t, resp.Data.Defaulted, 1)
	assert.Equal(t, "sort-first-name", resp.Data.Defaulted[0].Scenario)
	assert.Equal(t, "sortLabel", resp.Data.Defaulted[0].Column)
	assert.Equal(t, 1, resp.Data.Defaulted[0].Case)
}

func TestValidateNonExistentManifest(t *testing.T) {
	output, _, err := execValidate(t, "text", false, "/nonexistent/suite.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, output, "Error [E005]")
}

func TestValidateSchemaViolation(t *testing.T) {
	path := writeSuite(t, map[string]string{
		"suite.yaml": "scenarios:\n  - name: filter\n    kind: filter\n    data: f.csv\n",
	})

	output, _, err := execValidate(t, "text", false, path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, output, "✗ Validation failed")
	assert.Contains(t, output, CodeManifest)
}

func TestValidateCollectsDataErrors(t *testing.T) {
	path := writeSuite(t, map[string]string{
		"suite.yaml": `scenarios:
  - name: search-harry
    kind: search
    data: sort.csv
  - name: delete-customer
    kind: delete
    data: missing.csv
`,
		"sort.csv": sortCSV,
	})

	output, _, err := execValidate(t, "text", false, path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "validation failed with 2 error(s)")
	assert.Contains(t, output, "E004: scenario \"search-harry\"")
	assert.Contains(t, output, "searchInput, searchText")
	assert.Contains(t, output, "E005: scenario \"delete-customer\"")
}

func TestValidateCollectsDataErrorsJSON(t *testing.T) {
	path := writeSuite(t, map[string]string{
		"suite.yaml": "scenarios:\n  - name: search-harry\n    kind: search\n    data: sort.csv\n",
		"sort.csv":   sortCSV,
	})

	output, _, err := execValidate(t, "json", false, path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeColumns, resp.Error.Code)
}

func TestValidateVerboseOutput(t *testing.T) {
	path := writeSuite(t, map[string]string{
		"suite.yaml": "scenarios:\n  - name: sort-first-name\n    kind: sort\n    data: sort.csv\n",
		"sort.csv":   sortCSV,
	})

	output, logs, err := execValidate(t, "json", true, path)
	require.NoError(t, err)

	// Verbose output goes to stderr so stdout stays valid JSON.
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Contains(t, logs, "Validated scenario sort-first-name (sort): 1 case(s)")
	assert.Contains(t, logs, "loaded test cases")
}

func TestValidateExampleSuites(t *testing.T) {
	for _, name := range []string{"suite.yaml", "suite.cue"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join("..", "..", "examples", name)
			if _, err := os.Stat(path); os.IsNotExist(err) {
				t.Skip("examples directory not found")
			}

			output, _, err := execValidate(t, "text", false, path)
			require.NoError(t, err)
			assert.Contains(t, output, "✓ Manifest valid")
			assert.NotContains(t, output, "fall back to xpath")
		})
	}
}
