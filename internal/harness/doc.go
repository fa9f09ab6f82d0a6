// Package harness runs data-driven UI verification scenarios.
//
// A scenario binds one kind of user action (search, sort or delete) to the
// rows of a data file. For every row the Runner resolves the row's locator
// strings, navigates the shared browser session, waits for the results
// table, captures a snapshot, performs the action, lets the page settle,
// captures a second snapshot and hands both to Verify.
//
// # Verification policy
//
// Verify is strict on structure and lenient on shape. A row fails only when
//
//   - the action's control cannot be found or cannot be interacted with,
//   - the results table is gone after the action, or
//   - an unexpected fault (including a panic) interrupts the row.
//
// Count and text mismatches, such as a delete that did not reduce the row
// count, pass with a warning Annotation so they stay visible in reports.
//
// # Reporting
//
// RunSuite runs scenarios in order and aggregates a Report; WriteText
// renders it in the console layout and AssertGoldenReport compares that
// rendering against a golden file in tests.
//
// # Usage
//
//	runner := harness.NewRunner(session, harness.Config{Timeout: 10 * time.Second},
//	    harness.WithLogger(logger))
//	rep := harness.RunSuite(ctx, runner, scenarios, runID)
//	if err := harness.WriteText(os.Stdout, rep); err != nil {
//	    return err
//	}
package harness
