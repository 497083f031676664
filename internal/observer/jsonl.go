package observer

import (
	"encoding/json"
	"io"
	"sync"

	"github.com/mj1618/a11y-chain/internal/model"
)

// JSONLWriter writes each event as one JSON line.
type JSONLWriter struct {
	mu  sync.Mutex
	enc *json.Encoder
	err error
}

// NewJSONLWriter returns a writer encoding to w.
func NewJSONLWriter(w io.Writer) *JSONLWriter {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &JSONLWriter{enc: enc}
}

func (j *JSONLWriter) OnAccessibilityEvent(ev model.AccessibilityEvent) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.err != nil {
		return
	}
	j.err = j.enc.Encode(ev)
}

// Err returns the first write error. Writing stops after it.
func (j *JSONLWriter) Err() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.err
}

// Encode writes v as one line, serialized with the event lines.
func (j *JSONLWriter) Encode(v interface{}) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.err != nil {
		return j.err
	}
	j.err = j.enc.Encode(v)
	return j.err
}
