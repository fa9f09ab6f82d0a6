package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"cuelang.org/go/cue/token"
	"github.com/spf13/cobra"

	"github.com/roach88/tablecheck/internal/config"
	"github.com/roach88/tablecheck/internal/harness"
	"github.com/roach88/tablecheck/internal/locator"
	"github.com/roach88/tablecheck/internal/logging"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid             bool                `json:"valid"`
	Scenarios         []ScenarioSummary   `json:"scenarios,omitempty"`
	Defaulted         []DefaultedLocator  `json:"defaulted,omitempty"`
	BaselineDefaulted bool                `json:"baseline_defaulted,omitempty"`
	Errors            []ValidationProblem `json:"errors,omitempty"`
}

// ScenarioSummary describes one loaded scenario.
type ScenarioSummary struct {
	Name   string       `json:"name"`
	Kind   harness.Kind `json:"kind"`
	Source string       `json:"source"`
	Cases  int          `json:"cases"`
}

// DefaultedLocator is a harness.DefaultedLocator with its scenario name.
type DefaultedLocator struct {
	Scenario string `json:"scenario"`
	harness.DefaultedLocator
}

// ValidationProblem is one reason a manifest or data file is invalid.
type ValidationProblem struct {
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <manifest>",
		Short: "Validate a suite manifest and its data files",
		Long: `Validate a suite manifest without starting a browser.

Checks the manifest against the schema, loads every scenario's data file,
checks the column contract of its kind and parses every locator field.
Locators whose prefix is not recognized fall back to XPath; they are listed
as warnings and do not fail validation.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, manifestPath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	logger := logging.Discard()
	if opts.Verbose {
		logger = logging.New(formatter.GetErrWriter(), logging.Options{Format: opts.Format, Verbose: true})
	}

	s, errs := loadSuite(manifestPath, "", LoadModeCollectAll, logger)

	// A manifest that could not be read is a command error; one that was
	// read but rejected is a validation failure.
	if s == nil {
		var verr *config.ValidationError
		if errors.As(errs[0], &verr) {
			return outputValidationErrors(formatter, []ValidationProblem{problemFromError(errs[0])})
		}
		return outputValidateError(formatter, ErrorCode(errs[0]), errs[0].Error(), nil)
	}

	result := ValidationResult{
		Valid:             len(errs) == 0,
		BaselineDefaulted: s.baseline.Resolution == locator.DefaultedToXPath,
	}
	for _, sc := range s.scenarios {
		formatter.VerboseLog("Validated scenario %s (%s): %d case(s)", sc.Name, sc.Kind, len(sc.Rows))
		result.Scenarios = append(result.Scenarios, ScenarioSummary{
			Name:   sc.Name,
			Kind:   sc.Kind,
			Source: sc.Source,
			Cases:  len(sc.Rows),
		})
		for _, d := range sc.Defaulted() {
			result.Defaulted = append(result.Defaulted, DefaultedLocator{Scenario: sc.Name, DefaultedLocator: d})
		}
	}
	for _, err := range errs {
		result.Errors = append(result.Errors, problemFromError(err))
	}

	if !result.Valid {
		return outputValidationErrors(formatter, result.Errors)
	}
	return outputValidateSuccess(formatter, s, result)
}

func problemFromError(err error) ValidationProblem {
	p := ValidationProblem{Code: ErrorCode(err), Message: err.Error()}
	var verr *config.ValidationError
	if errors.As(err, &verr) {
		p.Field = verr.Field
		p.Message = verr.Message
		p.Line = getLineFromCuePos(verr.Pos)
	}
	return p
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, s *suite, result ValidationResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	cases := 0
	for _, sc := range result.Scenarios {
		cases += sc.Cases
	}
	fmt.Fprintf(formatter.Writer, "✓ Manifest valid: %d scenario(s), %d test case(s)\n", len(result.Scenarios), cases)
	for _, sc := range result.Scenarios {
		fmt.Fprintf(formatter.Writer, "  %s [%s] %s: %d case(s)\n", sc.Name, sc.Kind, sc.Source, sc.Cases)
	}
	if result.BaselineDefaulted {
		fmt.Fprintf(formatter.Writer, "⚠ baseline %q falls back to xpath\n", s.manifest.Baseline)
	}
	if len(result.Defaulted) > 0 {
		fmt.Fprintf(formatter.Writer, "⚠ %d locator(s) fall back to xpath\n", len(result.Defaulted))
		for _, d := range result.Defaulted {
			fmt.Fprintf(formatter.Writer, "  %s case %d %s: unknown prefix %q (value %q)\n",
				d.Scenario, d.Case, d.Column, d.Prefix, d.Value)
		}
	}
	return nil
}

// outputValidateError outputs a single load error.
func outputValidateError(formatter *OutputFormatter, code, message string, details interface{}) error {
	_ = formatter.Error(code, message, details)
	// Load errors are command-level errors (exit code 2)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, errs []ValidationProblem) error {
	if formatter.Format == "json" {
		result := ValidationResult{
			Valid:  false,
			Errors: errs,
		}

		response := CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}

		// Validation failures = exit code 1 (test/validation failure)
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	// Text format
	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", err.Line)
		}
		if err.Field != "" {
			fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", err.Code, err.Field, err.Message)
		} else {
			fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", err.Code, err.Message)
		}
	}

	// Validation failures = exit code 1 (test/validation failure)
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}

// getLineFromCuePos extracts line number from a token.Pos.
func getLineFromCuePos(pos token.Pos) int {
	if pos.IsValid() {
		return pos.Line()
	}
	return 0
}
