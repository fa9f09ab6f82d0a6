package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseText(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewParseCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"id=search", "label=First Name", "//button"})

	require.NoError(t, cmd.Execute())

	output := buf.String()
	assert.Contains(t, output, "✓ id=search\n  kind:       id\n  value:      search\n  resolution: recognized\n")
	assert.Contains(t, output, "⚠ label=First Name\n  kind:       xpath\n  value:      First Name\n  resolution: defaulted_to_xpath\n")
	assert.Contains(t, output, "✓ //button\n  kind:       xpath\n  value:      //button\n  resolution: bare\n")
}

func TestParseJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewParseCommand(&RootOptions{Format: "json"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"'css=button.delete'"})

	require.NoError(t, cmd.Execute())

	var resp struct {
		Status string          `json:"status"`
		Data   []ParsedLocator `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "css selector", resp.Data[0].Kind)
	assert.Equal(t, "button.delete", resp.Data[0].Value)
	assert.Equal(t, "css", resp.Data[0].Prefix)
	assert.Equal(t, "recognized", resp.Data[0].Resolution)
}

func TestParseMissingArgs(t *testing.T) {
	cmd := NewParseCommand(&RootOptions{Format: "text"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least 1 arg")
}
