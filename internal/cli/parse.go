package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/tablecheck/internal/locator"
)

// ParsedLocator is the parse command's view of one locator string.
type ParsedLocator struct {
	Input      string `json:"input"`
	Kind       string `json:"kind"`
	Value      string `json:"value"`
	Resolution string `json:"resolution"`
	Prefix     string `json:"prefix,omitempty"`
	Selector   string `json:"selector"`
}

// NewParseCommand creates the parse command.
func NewParseCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse <locator>...",
		Short: "Show how locator strings are resolved",
		Long: `Parse locator strings of the form [prefix=]value and show the
resulting element reference.

Recognized prefixes: id, name, xpath, link, linktext, partiallinktext, css,
cssselector, classname, tagname. Strings without a prefix, or with an
unknown one, are treated as XPath.

Example:
  tablecheck parse 'id=search' "//button[normalize-space(.)='E55555']"
  tablecheck parse --format json 'label=First Name'`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runParse(opts *RootOptions, args []string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:  opts.Format,
		Writer:  cmd.OutOrStdout(),
		Verbose: opts.Verbose,
	}

	results := make([]ParsedLocator, 0, len(args))
	for _, raw := range args {
		p := locator.Resolve(raw)
		results = append(results, ParsedLocator{
			Input:      raw,
			Kind:       p.Kind.String(),
			Value:      p.Value,
			Resolution: p.Resolution.String(),
			Prefix:     p.Prefix,
			Selector:   p.Selector(),
		})
	}

	if formatter.Format == "json" {
		return formatter.Success(results)
	}

	for _, r := range results {
		marker := "✓"
		if r.Resolution == locator.DefaultedToXPath.String() {
			marker = "⚠"
		}
		fmt.Fprintf(formatter.Writer, "%s %s\n", marker, r.Input)
		fmt.Fprintf(formatter.Writer, "  kind:       %s\n", r.Kind)
		fmt.Fprintf(formatter.Writer, "  value:      %s\n", r.Value)
		fmt.Fprintf(formatter.Writer, "  resolution: %s\n", r.Resolution)
		fmt.Fprintf(formatter.Writer, "  selector:   %s\n", r.Selector)
	}
	return nil
}
