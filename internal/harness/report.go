package harness

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// ScenarioReport holds the outcomes of one scenario.
type ScenarioReport struct {
	Name     string    `json:"name"`
	Kind     Kind      `json:"kind"`
	Source   string    `json:"source,omitempty"`
	Outcomes []Outcome `json:"outcomes"`
}

// Report aggregates every outcome of a run.
//
// Failed counts verification failures (missing or unusable controls, lost
// table); Errored counts unexpected faults. The two never overlap.
type Report struct {
	RunID     string           `json:"run_id"`
	Scenarios []ScenarioReport `json:"scenarios"`
	TestsRun  int              `json:"tests_run"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Errored   int              `json:"errored"`
	Warnings  int              `json:"warnings"`
}

// NewReport creates an empty report for runID.
func NewReport(runID string) *Report {
	return &Report{RunID: runID, Scenarios: []ScenarioReport{}}
}

// Add appends a scenario and tallies its outcomes.
func (r *Report) Add(s ScenarioReport) {
	r.Scenarios = append(r.Scenarios, s)
	for _, o := range s.Outcomes {
		r.TestsRun++
		switch {
		case o.Passed:
			r.Passed++
		case o.Errored():
			r.Errored++
		default:
			r.Failed++
		}
		r.Warnings += len(o.Warnings())
	}
}

// Success reports whether every row passed.
func (r *Report) Success() bool {
	return r.Failed == 0 && r.Errored == 0
}

// RunSuite runs scenarios in order on runner's shared session and collects
// the report. It does not stop at failing scenarios.
func RunSuite(ctx context.Context, runner *Runner, scenarios []*Scenario, runID string) *Report {
	rep := NewReport(runID)
	for _, s := range scenarios {
		runner.logger.Info("starting scenario", "scenario", s.Name, "kind", string(s.Kind), "rows", len(s.Rows))
		rep.Add(ScenarioReport{
			Name:     s.Name,
			Kind:     s.Kind,
			Source:   s.Source,
			Outcomes: runner.Run(ctx, s.Kind, s.Rows),
		})
	}
	return rep
}

const (
	caseRule    = 60
	summaryRule = 70
)

// WriteText renders rep in the console layout: a banner per scenario, one
// block per row, then the execution summary.
func WriteText(w io.Writer, rep *Report) error {
	tw := &textWriter{w: w}
	if rep.RunID != "" {
		tw.printf("Run %s\n", rep.RunID)
	}
	for _, s := range rep.Scenarios {
		tw.printf("\n%s\n", strings.Repeat("=", caseRule))
		if s.Source != "" {
			tw.printf("%s Data-Driven Test Suite: %s (%s)\n", s.Kind.Title(), s.Name, s.Source)
		} else {
			tw.printf("%s Data-Driven Test Suite: %s\n", s.Kind.Title(), s.Name)
		}
		tw.printf("%s\n", strings.Repeat("=", caseRule))
		if len(s.Outcomes) == 0 {
			tw.printf("(no test cases)\n")
		}
		for _, o := range s.Outcomes {
			writeOutcome(tw, o)
		}
	}

	rule := strings.Repeat("=", summaryRule)
	tw.printf("\n%s\n", rule)
	tw.printf("TEST EXECUTION SUMMARY\n")
	tw.printf("%s\n", rule)
	tw.printf("Tests Run: %d\n", rep.TestsRun)
	tw.printf("Successes: %d\n", rep.Passed)
	tw.printf("Failures: %d\n", rep.Failed)
	tw.printf("Errors: %d\n", rep.Errored)
	if rep.Warnings > 0 {
		tw.printf("Warnings: %d\n", rep.Warnings)
	}
	tw.printf("%s\n", rule)
	return tw.err
}

func writeOutcome(tw *textWriter, o Outcome) {
	if o.Passed {
		tw.printf("✓ Test Case %d PASSED\n", o.CaseIndex)
		if o.Message != "" {
			tw.printf("    %s\n", o.Message)
		}
	} else {
		tw.printf("✗ Test Case %d FAILED\n", o.CaseIndex)
		if o.Message != "" {
			tw.printf("    Error: %s\n", o.Message)
		}
	}
	for _, a := range o.Annotations {
		marker := "ℹ"
		if a.Level == LevelWarning {
			marker = "⚠"
		}
		tw.printf("    %s %s\n", marker, a.Message)
	}
}

// textWriter remembers the first write error so rendering code can stay
// linear.
type textWriter struct {
	w   io.Writer
	err error
}

func (t *textWriter) printf(format string, args ...any) {
	if t.err != nil {
		return
	}
	_, t.err = fmt.Fprintf(t.w, format, args...)
}
