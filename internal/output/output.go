package output

import (
	"fmt"
	"io"
	"os"

	"github.com/mj1618/a11y-chain/internal/filters"
	"github.com/mj1618/a11y-chain/internal/interceptor"
	"github.com/mj1618/a11y-chain/internal/model"
)

// Format represents the output format.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// OutputFormat is the current output format, set by the root command's --format flag.
var OutputFormat Format = FormatYAML

// PrettyOutput enables pretty-printing for JSON output.
var PrettyOutput bool

// Stdout is where Print writes. Tests replace it.
var Stdout io.Writer = os.Stdout

// StepResult is the outcome of one replayed input.
type StepResult struct {
	Index    int    `yaml:"index"              json:"index"`
	Kind     string `yaml:"kind"               json:"kind"`
	Input    string `yaml:"input"              json:"input"`
	Consumed bool   `yaml:"consumed"           json:"consumed"`
	Error    string `yaml:"error,omitempty"    json:"error,omitempty"`
}

// ReplayResult is the top-level output of the `replay` command.
type ReplayResult struct {
	Features string                     `yaml:"features"           json:"features"`
	Chains   []interceptor.ChainInfo    `yaml:"chains"             json:"chains"`
	Steps    []StepResult               `yaml:"steps"              json:"steps"`
	Events   []model.AccessibilityEvent `yaml:"events"             json:"events"`
	Injected InjectedSummary            `yaml:"injected"           json:"injected"`
	Viewport *filters.Viewport          `yaml:"viewport,omitempty" json:"viewport,omitempty"`
	Trace    []filters.Record           `yaml:"trace,omitempty"    json:"trace,omitempty"`
}

// InjectedSummary counts what reached the platform.
type InjectedSummary struct {
	Pointers int               `yaml:"pointers"              json:"pointers"`
	Keys     int               `yaml:"keys"                  json:"keys"`
	Moves    int               `yaml:"moves"                 json:"moves"`
	Actions  []string          `yaml:"actions,omitempty"     json:"actions,omitempty"`
	Sink     filters.SinkStats `yaml:"sink"                  json:"sink"`
}

// ChainsResult describes the live chains.
type ChainsResult struct {
	Features string                  `yaml:"features"           json:"features"`
	Chains   []interceptor.ChainInfo `yaml:"chains"             json:"chains"`
	Sink     filters.SinkStats       `yaml:"sink"               json:"sink"`
	Viewport *filters.Viewport       `yaml:"viewport,omitempty" json:"viewport,omitempty"`
}

// FeaturesResult is the output of the `features` command.
type FeaturesResult struct {
	Mask     string        `yaml:"mask"               json:"mask"`
	Enabled  []string      `yaml:"enabled"            json:"enabled"`
	Features []FeatureInfo `yaml:"features,omitempty" json:"features,omitempty"`
}

// FeatureInfo describes one capability flag.
type FeatureInfo struct {
	Name    string `yaml:"name"    json:"name"`
	Bit     string `yaml:"bit"     json:"bit"`
	Enabled bool   `yaml:"enabled" json:"enabled"`
}

// Print serializes v to Stdout in the current output format.
func Print(v interface{}) error {
	return Fprint(Stdout, v)
}

// Fprint serializes v to w in the current output format.
func Fprint(w io.Writer, v interface{}) error {
	switch OutputFormat {
	case FormatJSON:
		return writeJSON(w, v, PrettyOutput)
	case FormatYAML:
		return writeYAML(w, v)
	default:
		return fmt.Errorf("unsupported output format: %s", OutputFormat)
	}
}

// ParseFormat validates a --format value.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatYAML, FormatJSON:
		return Format(s), nil
	default:
		return "", fmt.Errorf("invalid format %q: use yaml or json", s)
	}
}
