package cli

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/gobwas/glob"

	"github.com/roach88/tablecheck/internal/config"
	"github.com/roach88/tablecheck/internal/dataset"
	"github.com/roach88/tablecheck/internal/harness"
	"github.com/roach88/tablecheck/internal/locator"
	"github.com/roach88/tablecheck/internal/probe"
)

// Wait bounds used when neither the manifest nor a flag sets them.
const (
	DefaultElementTimeout = 10 * time.Second
	DefaultPollInterval   = 250 * time.Millisecond
)

// LoadMode controls how errors are handled while loading a suite.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll loads every scenario it can and collects the
	// errors of the rest.
	LoadModeCollectAll
)

// suite is a loaded manifest with its scenarios bound to their data.
type suite struct {
	manifest  *config.Manifest
	scenarios []*harness.Scenario
	baseline  locator.Parsed
}

// loadSuite reads the manifest at path and the data file of every scenario
// matching only. An empty only selects every scenario. A nil suite means
// the manifest itself could not be loaded.
func loadSuite(path, only string, mode LoadMode, logger *slog.Logger) (*suite, []error) {
	m, err := config.Load(path)
	if err != nil {
		return nil, []error{err}
	}

	var match glob.Glob
	if only != "" {
		match, err = glob.Compile(only)
		if err != nil {
			return nil, []error{fmt.Errorf("invalid --only pattern %q: %w", only, err)}
		}
	}

	s := &suite{manifest: m, baseline: locator.Resolve(m.Baseline)}
	var errs []error
	for _, sc := range m.Scenarios {
		if match != nil && !match.Match(sc.Name) {
			logger.Debug("scenario filtered out", "scenario", sc.Name, "only", only)
			continue
		}
		scenario, err := loadScenario(m, sc, logger)
		if err != nil {
			errs = append(errs, err)
			if mode == LoadModeFailFast {
				return nil, errs
			}
			continue
		}
		s.scenarios = append(s.scenarios, scenario)
	}

	if len(s.scenarios) == 0 && len(errs) == 0 {
		return nil, []error{fmt.Errorf("%w: no scenario name matches %q", errNoScenarios, only)}
	}
	return s, errs
}

func loadScenario(m *config.Manifest, sc config.Scenario, logger *slog.Logger) (*harness.Scenario, error) {
	kind, err := harness.ParseKind(sc.Kind)
	if err != nil {
		return nil, fmt.Errorf("scenario %q: %w", sc.Name, err)
	}
	table, err := dataset.Load(m.DataPath(sc))
	if err != nil {
		return nil, fmt.Errorf("scenario %q: %w", sc.Name, err)
	}
	logger.Info("loaded test cases", "scenario", sc.Name, "count", table.Len(), "file", filepath.Base(table.Source))
	return harness.NewScenario(sc.Name, kind, table)
}

// runnerConfig derives the runner's wait bounds from the manifest.
func (s *suite) runnerConfig() harness.Config {
	t := s.manifest.Timeouts
	return harness.Config{
		Timeout:  orDefault(t.Element.Std(), DefaultElementTimeout),
		Interval: orDefault(t.PollInterval.Std(), DefaultPollInterval),
		Settle: probe.SettleOptions{
			Bound: orDefault(t.Settle.Std(), probe.DefaultSettleBound),
			Quiet: orDefault(t.Quiet.Std(), probe.DefaultQuiet),
		},
		Table: s.baseline.Reference,
	}
}

func orDefault(d, def time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return def
}
