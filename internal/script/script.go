// Package script parses and executes input scripts: lists of steps that feed
// pointer, key and control operations into an interceptor.
//
// A script is a YAML (or JSON) list where each step is a single-key map:
//
//   - features: { set: "touch_exploration,magnification" }
//   - pointer: { action: down, x: 100, y: 200, t: 0 }
//   - pointer: { action: up, x: 100, y: 200, t: 80 }
//   - key: { key: enter, action: press }
//   - move: { dx: 5, dy: 0 }
//   - gesture: { paths: [{ points: [{x: 10, y: 10}, {x: 10, y: 300}], duration_ms: 200 }] }
//   - sleep: { ms: 100 }
package script

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Step is one script entry: a step kind mapped to its parameters.
type Step map[string]map[string]interface{}

// Kind returns the step's single key and its parameters.
func (s Step) Kind() (string, map[string]interface{}, error) {
	if len(s) != 1 {
		keys := make([]string, 0, len(s))
		for k := range s {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return "", nil, fmt.Errorf("expected exactly one step kind, got %d (%s)", len(s), strings.Join(keys, ", "))
	}
	for k, params := range s {
		if params == nil {
			params = map[string]interface{}{}
		}
		return k, params, nil
	}
	return "", nil, nil
}

// Parse decodes a YAML or JSON list of steps.
func Parse(data []byte) ([]Step, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("no steps provided: expected a YAML list of steps")
	}
	var steps []Step
	if err := yaml.Unmarshal(data, &steps); err != nil {
		return nil, fmt.Errorf("parse steps: %w", err)
	}
	if len(steps) == 0 {
		return nil, fmt.Errorf("no steps provided: expected a YAML list of steps")
	}
	return steps, nil
}

// ParseLine decodes one JSONL line holding a single step object.
func ParseLine(line []byte) (Step, error) {
	var s Step
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.UseNumber()
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("parse step: %w", err)
	}
	if _, _, err := s.Kind(); err != nil {
		return nil, err
	}
	return s, nil
}

// Parameter extraction helpers for step maps and MCP tool arguments.

// StringParam returns params[key] as a string.
func StringParam(params map[string]interface{}, key, defaultVal string) string {
	if v, ok := params[key]; ok && v != nil {
		if s, ok := v.(string); ok {
			return s
		}
		// YAML and JSON may decode scalars as numbers or bools
		return fmt.Sprintf("%v", v)
	}
	return defaultVal
}

// FloatParam returns params[key] as a float64.
func FloatParam(params map[string]interface{}, key string, defaultVal float64) float64 {
	if v, ok := params[key]; ok {
		switch n := v.(type) {
		case int:
			return float64(n)
		case int64:
			return float64(n)
		case float64:
			return n
		case json.Number:
			if f, err := n.Float64(); err == nil {
				return f
			}
		}
	}
	return defaultVal
}

// IntParam returns params[key] as an int. Fractions are truncated.
func IntParam(params map[string]interface{}, key string, defaultVal int) int {
	if _, ok := params[key]; !ok {
		return defaultVal
	}
	return int(FloatParam(params, key, float64(defaultVal)))
}

// BoolParam returns params[key] as a bool.
func BoolParam(params map[string]interface{}, key string, defaultVal bool) bool {
	if v, ok := params[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return defaultVal
}

// ListParam returns params[key] as a list of maps. Non-map items are skipped.
func ListParam(params map[string]interface{}, key string) []map[string]interface{} {
	raw, ok := params[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]map[string]interface{}, 0, len(raw))
	for _, item := range raw {
		if m, ok := item.(map[string]interface{}); ok {
			out = append(out, m)
		}
	}
	return out
}
