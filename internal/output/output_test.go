package output

import (
	"bytes"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/mj1618/a11y-chain/internal/filters"
	"github.com/mj1618/a11y-chain/internal/interceptor"
	"github.com/mj1618/a11y-chain/internal/model"
)

func capture(t *testing.T, format Format, pretty bool, fn func() error) string {
	t.Helper()
	var buf bytes.Buffer
	oldOut, oldFormat, oldPretty := Stdout, OutputFormat, PrettyOutput
	Stdout, OutputFormat, PrettyOutput = &buf, format, pretty
	defer func() { Stdout, OutputFormat, PrettyOutput = oldOut, oldFormat, oldPretty }()
	if err := fn(); err != nil {
		t.Fatal(err)
	}
	return buf.String()
}

func sampleReplay() ReplayResult {
	return ReplayResult{
		Features: "touch_exploration",
		Chains: []interceptor.ChainInfo{
			{Name: "pointer", Nodes: []string{"touch-guider", "input-sink"}},
		},
		Steps: []StepResult{{Index: 0, Kind: "pointer", Input: "down (10,20)", Consumed: true}},
		Events: []model.AccessibilityEvent{
			{Type: model.EventGesture, Gesture: model.GestureSwipeUp, Source: "touch-guider"},
		},
		Injected: InjectedSummary{Sink: filters.SinkStats{Delivered: 1}},
	}
}

func TestPrintYAML(t *testing.T) {
	out := capture(t, FormatYAML, false, func() error { return Print(sampleReplay()) })

	if strings.Count(out, "\n") <= 1 {
		t.Errorf("YAML output should be multi-line, got:\n%s", out)
	}
	var decoded ReplayResult
	if err := yaml.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("output is not valid YAML: %v", err)
	}
	if decoded.Features != "touch_exploration" {
		t.Errorf("features: got %q", decoded.Features)
	}
	if len(decoded.Events) != 1 || decoded.Events[0].Gesture != model.GestureSwipeUp {
		t.Errorf("events: got %+v", decoded.Events)
	}
	if !decoded.Steps[0].Consumed {
		t.Error("step consumed flag lost")
	}
}

func TestReplayResult_OmitEmpty(t *testing.T) {
	data, err := yaml.Marshal(ReplayResult{})
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]interface{}
	if err := yaml.Unmarshal(data, &m); err != nil {
		t.Fatal(err)
	}
	if _, ok := m["viewport"]; ok {
		t.Error("nil viewport should be omitted")
	}
	if _, ok := m["steps"]; !ok {
		t.Error("steps should always be present")
	}
}

func TestFprint_UnsupportedFormat(t *testing.T) {
	old := OutputFormat
	OutputFormat = "xml"
	defer func() { OutputFormat = old }()
	if err := Fprint(&bytes.Buffer{}, 1); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"yaml", FormatYAML, false},
		{"json", FormatJSON, false},
		{"toml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}
