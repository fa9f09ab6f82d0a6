package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/tablecheck/internal/config"
	"github.com/roach88/tablecheck/internal/harness"
	"github.com/roach88/tablecheck/internal/locator"
	"github.com/roach88/tablecheck/internal/logging"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Only     string
	Backend  string
	Headless bool
	Timeout  time.Duration
	Settle   time.Duration
	Install  bool

	// OpenSession allows overriding how the browser session is started
	// (for testing). If nil, the manifest's backend is launched.
	OpenSession SessionOpener

	// IDGenerator allows overriding the run ID generator (for testing).
	// If nil, defaults to harness.UUIDGenerator.
	IDGenerator harness.IDGenerator
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <manifest>",
		Short: "Run the scenarios of a suite manifest",
		Long: `Run every scenario of a suite manifest against one browser session.

Each scenario reads its rows from a CSV data file. For every row the
runner navigates to siteUrl, performs the scenario's action (search, sort
or delete) and checks the results table before and after. The session is
shared by all scenarios and closed when the run ends, including on Ctrl-C.

Exit codes:
  0 - every test case passed
  1 - at least one test case failed or errored
  2 - command error (bad manifest, unreadable data, browser did not start)

Example:
  tablecheck run suite.yaml
  tablecheck run --only 'delete*' --headless suite.yaml
  tablecheck run --backend playwright --install --format json suite.cue`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSuite(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Only, "only", "", "run only scenarios whose name matches this glob")
	cmd.Flags().StringVar(&opts.Backend, "backend", "", "browser backend (selenium|playwright), overrides the manifest")
	cmd.Flags().BoolVar(&opts.Headless, "headless", false, "run the browser headless, overrides the manifest")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 0, "element wait bound, overrides the manifest")
	cmd.Flags().DurationVar(&opts.Settle, "settle", 0, "post-action settle bound, overrides the manifest")
	cmd.Flags().BoolVar(&opts.Install, "install", false, "install the playwright driver and browsers before running")

	return cmd
}

func runSuite(opts *RunOptions, manifestPath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	idGen := opts.IDGenerator
	if idGen == nil {
		idGen = harness.UUIDGenerator{}
	}
	runID := idGen.Generate()
	logger := logging.New(cmd.ErrOrStderr(), logging.Options{
		Format:  opts.Format,
		Verbose: opts.Verbose,
		RunID:   runID,
	})

	s, errs := loadSuite(manifestPath, opts.Only, LoadModeFailFast, logger)
	if len(errs) > 0 {
		_ = formatter.Error(ErrorCode(errs[0]), errs[0].Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load suite", errs[0])
	}
	if err := applyRunFlags(opts, cmd, s.manifest); err != nil {
		_ = formatter.Error(CodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid flags", err)
	}
	cfg := s.runnerConfig()
	if cmd.Flags().Changed("timeout") {
		cfg.Timeout = opts.Timeout
	}
	if cmd.Flags().Changed("settle") {
		cfg.Settle.Bound = opts.Settle
	}
	if s.baseline.Resolution == locator.DefaultedToXPath {
		logger.Warn("baseline locator prefix not recognized, using xpath",
			"prefix", s.baseline.Prefix, "value", s.baseline.Value)
	}

	// Setup signal handling so the session is released on Ctrl-C.
	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, stopping after current test case", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	open := opts.OpenSession
	if open == nil {
		open = sessionSettings{install: opts.Install, actionTimeout: cfg.Timeout}.opener()
	}
	session, err := open(ctx, s.manifest.Driver, logger)
	if err != nil {
		_ = formatter.Error(CodeBrowser, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to start browser", err)
	}
	defer func() {
		if closeErr := session.Close(); closeErr != nil {
			logger.Error("error closing browser session", "error", closeErr)
		}
		logger.Info("browser session closed")
	}()

	runner := harness.NewRunner(session, cfg, harness.WithLogger(logger))
	rep := harness.RunSuite(ctx, runner, s.scenarios, runID)
	logger.Info("run finished",
		"tests_run", rep.TestsRun,
		"passed", rep.Passed,
		"failed", rep.Failed,
		"errored", rep.Errored)

	if opts.Format == "json" {
		return outputRunJSON(cmd, rep)
	}
	return outputRunText(cmd, rep)
}

// applyRunFlags overrides manifest driver settings with the flags the user
// set explicitly.
func applyRunFlags(opts *RunOptions, cmd *cobra.Command, m *config.Manifest) error {
	if cmd.Flags().Changed("backend") {
		switch opts.Backend {
		case config.BackendSelenium:
			if m.Driver.Browser == "chromium" {
				m.Driver.Browser = config.DefaultBrowser
			}
		case config.BackendPlaywright:
			m.Driver.Browser = "chromium"
		default:
			return fmt.Errorf("invalid backend %q: must be %s or %s",
				opts.Backend, config.BackendSelenium, config.BackendPlaywright)
		}
		m.Driver.Backend = opts.Backend
	}
	if cmd.Flags().Changed("headless") {
		m.Driver.Headless = opts.Headless
	}
	return nil
}

func outputRunJSON(cmd *cobra.Command, rep *harness.Report) error {
	response := CLIResponse{
		Status:  "ok",
		Data:    rep,
		TraceID: rep.RunID,
	}
	if !rep.Success() {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    CodeTestFailed,
			Message: failureSummary(rep),
		}
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(response); err != nil {
		return err
	}

	if !rep.Success() {
		return NewExitError(ExitFailure, failureSummary(rep))
	}
	return nil
}

func outputRunText(cmd *cobra.Command, rep *harness.Report) error {
	if err := harness.WriteText(cmd.OutOrStdout(), rep); err != nil {
		return err
	}
	if !rep.Success() {
		return NewExitError(ExitFailure, failureSummary(rep))
	}
	return nil
}

func failureSummary(rep *harness.Report) string {
	return fmt.Sprintf("%d failed, %d errored of %d test case(s)", rep.Failed, rep.Errored, rep.TestsRun)
}
