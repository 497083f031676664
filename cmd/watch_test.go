package cmd

import (
	"encoding/json"
	"strings"
	"testing"
)

func jsonLines(t *testing.T, out string) []map[string]interface{} {
	t.Helper()
	var lines []map[string]interface{}
	for _, l := range strings.Split(strings.TrimSpace(out), "\n") {
		if l == "" {
			continue
		}
		var m map[string]interface{}
		if err := json.Unmarshal([]byte(l), &m); err != nil {
			t.Fatalf("line %q is not JSON: %v", l, err)
		}
		lines = append(lines, m)
	}
	return lines
}

func TestWatch_RunsStdinSteps(t *testing.T) {
	stdin := strings.Join([]string{
		`{"features": {"set": "magnification"}}`,
		`{"pointer": {"action": "down", "x": 960, "y": 540, "t": 0}}`,
		`{"pointer": {"action": "up", "x": 960, "y": 540, "t": 50}}`,
		`{"pointer": {"action": "down", "x": 960, "y": 540, "t": 100}}`,
		`{"pointer": {"action": "up", "x": 960, "y": 540, "t": 150}}`,
		`{"pointer": {"action": "down", "x": 960, "y": 540, "t": 200}}`,
		`{"pointer": {"action": "up", "x": 960, "y": 540, "t": 250}}`,
		`not json`,
		``,
	}, "\n")

	out, err := run(t, stdin, "watch", "--dry-run", "--no-reload")
	if err != nil {
		t.Fatal(err)
	}
	lines := jsonLines(t, out)
	if len(lines) < 3 {
		t.Fatalf("got %d lines:\n%s", len(lines), out)
	}

	var sawZoom, sawError bool
	for _, l := range lines {
		switch l["type"] {
		case "magnification_changed":
			if l["scale"] == 2.0 {
				sawZoom = true
			}
		case "error":
			if l["step"] == 8.0 {
				sawError = true
			}
		}
	}
	if !sawZoom {
		t.Errorf("no magnification event:\n%s", out)
	}
	if !sawError {
		t.Errorf("bad line not reported:\n%s", out)
	}

	done := lines[len(lines)-1]
	if done["type"] != "done" || done["steps"] != 8.0 {
		t.Errorf("last line = %v", done)
	}
}

func TestWatch_RejectsUnknownFeatures(t *testing.T) {
	if _, err := run(t, "", "watch", "--dry-run", "--features", "warp_drive"); err == nil {
		t.Error("unknown feature accepted")
	}
}

func TestWatch_ReportsWhyAStepIsMalformed(t *testing.T) {
	stdin := `{"move": {"dx": 1}, "key": {"key": "a"}}` + "\n" + `{}` + "\n"
	out, err := run(t, stdin, "watch", "--dry-run", "--no-reload")
	if err != nil {
		t.Fatal(err)
	}
	var errs []string
	for _, l := range jsonLines(t, out) {
		if l["type"] == "error" {
			errs = append(errs, l["error"].(string))
		}
	}
	if len(errs) != 2 {
		t.Fatalf("error lines = %v\n%s", errs, out)
	}
	for _, e := range errs {
		if !strings.Contains(e, "expected exactly one step kind") || strings.Contains(e, `unknown step kind ""`) {
			t.Errorf("error = %q", e)
		}
	}
	if !strings.Contains(errs[0], "key, move") {
		t.Errorf("error does not name the kinds: %q", errs[0])
	}
}
