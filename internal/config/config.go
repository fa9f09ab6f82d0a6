// Package config loads suite manifests.
//
// A manifest names the browser backend, the wait bounds, the baseline
// element and the ordered list of scenarios with their data files. It may
// be written in YAML or CUE; both are checked against the same embedded
// CUE schema before being decoded.
package config

import (
	"encoding/json"
	"fmt"
	"time"

	"cuelang.org/go/cue/token"
	"gopkg.in/yaml.v3"
)

// Backends.
const (
	BackendSelenium   = "selenium"
	BackendPlaywright = "playwright"
)

// Defaults applied to fields the manifest leaves unset.
const (
	DefaultBackend  = BackendSelenium
	DefaultBrowser  = "chrome"
	DefaultPort     = 9515
	DefaultBaseline = "tagname=table"
)

// DefaultChromeArgs suppress first-run and notification popups that would
// otherwise cover the page under test.
var DefaultChromeArgs = []string{
	"--disable-notifications",
	"--disable-popup-blocking",
	"--no-sandbox",
	"--disable-dev-shm-usage",
	"--disable-gpu",
	"--no-first-run",
	"--no-default-browser-check",
}

// Manifest is a decoded suite manifest.
type Manifest struct {
	Driver    Driver     `yaml:"driver" json:"driver"`
	Timeouts  Timeouts   `yaml:"timeouts" json:"timeouts"`
	Baseline  string     `yaml:"baseline" json:"baseline"`
	Scenarios []Scenario `yaml:"scenarios" json:"scenarios"`

	// Dir is the directory of the manifest file; relative data paths
	// resolve against it.
	Dir string `yaml:"-" json:"-"`
}

// Driver configures the browser session.
type Driver struct {
	Backend string `yaml:"backend" json:"backend"`
	// RemoteURL connects to a running WebDriver server instead of
	// starting a local chromedriver.
	RemoteURL        string   `yaml:"remote_url" json:"remote_url"`
	ChromeDriverPath string   `yaml:"chromedriver_path" json:"chromedriver_path"`
	Port             int      `yaml:"port" json:"port"`
	Browser          string   `yaml:"browser" json:"browser"`
	Headless         bool     `yaml:"headless" json:"headless"`
	Args             []string `yaml:"args" json:"args"`
	// Maximize is nil when unset so the default (true) can be told apart
	// from an explicit false.
	Maximize     *bool    `yaml:"maximize" json:"maximize"`
	Width        int      `yaml:"width" json:"width"`
	Height       int      `yaml:"height" json:"height"`
	ImplicitWait Duration `yaml:"implicit_wait" json:"implicit_wait"`
}

// ShouldMaximize reports whether the window is maximized at startup.
func (d Driver) ShouldMaximize() bool {
	if d.Maximize == nil {
		return d.Width == 0 && d.Height == 0
	}
	return *d.Maximize
}

// Timeouts bounds the harness waits.
type Timeouts struct {
	Element      Duration `yaml:"element" json:"element"`
	Settle       Duration `yaml:"settle" json:"settle"`
	Quiet        Duration `yaml:"quiet" json:"quiet"`
	PollInterval Duration `yaml:"poll_interval" json:"poll_interval"`
}

// Scenario names one data file and the kind of action its rows drive.
type Scenario struct {
	Name string `yaml:"name" json:"name"`
	Kind string `yaml:"kind" json:"kind"`
	Data string `yaml:"data" json:"data"`
}

// Duration is a time.Duration written as a Go duration string ("1.5s").
type Duration time.Duration

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return fmt.Errorf("line %d: duration must be a string like \"1.5s\"", node.Line)
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*d = Duration(v)
	return nil
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration must be a string like \"1.5s\": %w", err)
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// ValidationError reports an invalid manifest, with the source position
// when one is known.
type ValidationError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *ValidationError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// applyDefaults fills unset fields.
func (m *Manifest) applyDefaults() {
	if m.Driver.Backend == "" {
		m.Driver.Backend = DefaultBackend
	}
	if m.Driver.Browser == "" {
		if m.Driver.Backend == BackendPlaywright {
			m.Driver.Browser = "chromium"
		} else {
			m.Driver.Browser = DefaultBrowser
		}
	}
	if m.Driver.Port == 0 {
		m.Driver.Port = DefaultPort
	}
	if m.Driver.Args == nil {
		m.Driver.Args = append([]string(nil), DefaultChromeArgs...)
	}
	if m.Baseline == "" {
		m.Baseline = DefaultBaseline
	}
}

// validate checks constraints the schema cannot express.
func (m *Manifest) validate() error {
	seen := make(map[string]bool, len(m.Scenarios))
	for i, s := range m.Scenarios {
		if seen[s.Name] {
			return &ValidationError{
				Field:   fmt.Sprintf("scenarios[%d].name", i),
				Message: fmt.Sprintf("duplicate scenario name %q", s.Name),
			}
		}
		seen[s.Name] = true
	}
	if m.Driver.Backend == BackendPlaywright && m.Driver.Browser != "chromium" {
		return &ValidationError{
			Field:   "driver.browser",
			Message: fmt.Sprintf("playwright backend supports only chromium, got %q", m.Driver.Browser),
		}
	}
	if m.Driver.Backend == BackendSelenium && m.Driver.Browser == "chromium" {
		return &ValidationError{
			Field:   "driver.browser",
			Message: "selenium backend expects chrome or firefox",
		}
	}
	return nil
}
