package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/mj1618/a11y-chain/internal/model"
	"github.com/mj1618/a11y-chain/internal/output"
	"github.com/mj1618/a11y-chain/internal/store"
)

const tripleTapScript = `
- pointer: { action: down, x: 960, y: 540, t: 0 }
- pointer: { action: up,   x: 960, y: 540, t: 50 }
- pointer: { action: down, x: 960, y: 540, t: 100 }
- pointer: { action: up,   x: 960, y: 540, t: 150 }
- pointer: { action: down, x: 960, y: 540, t: 200 }
- pointer: { action: up,   x: 960, y: 540, t: 250 }
`

func TestReplay_TripleTapZooms(t *testing.T) {
	out, err := run(t, tripleTapScript, "replay", "--features", "magnification")
	if err != nil {
		t.Fatalf("replay: %v\n%s", err, out)
	}
	var res output.ReplayResult
	if err := yaml.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("output is not valid YAML: %v\n%s", err, out)
	}
	if res.Features != "magnification" {
		t.Errorf("features = %q", res.Features)
	}
	if len(res.Steps) != 6 || !res.Steps[4].Consumed {
		t.Errorf("steps = %+v", res.Steps)
	}
	if res.Viewport == nil || res.Viewport.Scale != 2 {
		t.Errorf("viewport = %+v", res.Viewport)
	}
	if res.Injected.Pointers != 4 {
		t.Errorf("injected %d pointers, want the first two taps", res.Injected.Pointers)
	}
	found := false
	for _, ev := range res.Events {
		if ev.Type == model.EventMagnificationChanged && ev.Scale == 2 {
			found = true
		}
	}
	if !found {
		t.Errorf("no magnification event in %+v", res.Events)
	}
}

func TestReplay_FileAndJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys.yaml")
	if err := os.WriteFile(path, []byte("- key: { key: enter }\n- move: { dx: 2, dy: 3 }\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	out, err := run(t, "", "replay", path, "--format", "json")
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	var res output.ReplayResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, out)
	}
	if res.Injected.Keys != 2 || res.Injected.Moves != 1 {
		t.Errorf("injected = %+v", res.Injected)
	}
	if res.Features != "none" || len(res.Chains) != 2 {
		t.Errorf("features=%q chains=%+v", res.Features, res.Chains)
	}
	want := []string{"key down enter", "key up enter"}
	if len(res.Injected.Actions) != 2 || res.Injected.Actions[0] != want[0] || res.Injected.Actions[1] != want[1] {
		t.Errorf("actions = %v", res.Injected.Actions)
	}
}

func TestReplay_StepErrorIsReported(t *testing.T) {
	out, err := run(t, "- move: { dx: 1 }\n- teleport: {}\n- move: { dx: 1 }\n", "replay")
	if err == nil || !strings.Contains(err.Error(), "step 2") {
		t.Fatalf("err = %v", err)
	}
	var res output.ReplayResult
	if err := yaml.Unmarshal([]byte(out), &res); err != nil {
		t.Fatal(err)
	}
	if len(res.Steps) != 2 || res.Steps[1].Error == "" {
		t.Errorf("steps = %+v", res.Steps)
	}

	if _, err := run(t, "- move: { dx: 1 }\n- teleport: {}\n- move: { dx: 1 }\n", "replay", "--stop-on-error=false"); err == nil {
		t.Error("continue on error should still fail the command")
	}
	if _, err := run(t, "", "replay"); err == nil {
		t.Error("empty script accepted")
	}
}

func TestReplay_Journal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.db")
	if _, err := run(t, tripleTapScript, "replay", "--features", "magnification", "--journal", path); err != nil {
		t.Fatal(err)
	}
	j, err := store.Open(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer j.Close()
	entries, err := j.Recent(store.Query{Type: model.EventMagnificationChanged})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("journal holds %d magnification events, want 1", len(entries))
	}

	out, err := run(t, "", "events", "--journal", path, "--type", "magnification_changed")
	if err != nil {
		t.Fatal(err)
	}
	var listed []store.Entry
	if err := yaml.Unmarshal([]byte(out), &listed); err != nil {
		t.Fatalf("events output: %v\n%s", err, out)
	}
	if len(listed) != 1 || listed[0].Event.Scale != 2 {
		t.Errorf("events = %+v", listed)
	}
}

func TestReplay_Trace(t *testing.T) {
	out, err := run(t, "- key: { key: enter }\n- move: { dx: 2, dy: 3 }\n", "replay", "--trace", "--format", "json")
	if err != nil {
		t.Fatal(err)
	}
	var res output.ReplayResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("%v\n%s", err, out)
	}
	if len(res.Trace) != 3 {
		t.Fatalf("trace = %+v", res.Trace)
	}
	if res.Trace[0].Kind != "key" || res.Trace[2].Kind != "move" || res.Trace[2].OffsetY != 3 {
		t.Errorf("trace = %+v", res.Trace)
	}
}
