package filters

import (
	"sync"

	"github.com/mj1618/a11y-chain/internal/chain"
	"github.com/mj1618/a11y-chain/internal/model"
)

// Record is one observation made by a Recorder.
type Record struct {
	Kind    string              `yaml:"kind"              json:"kind"`
	Pointer *model.PointerEvent `yaml:"pointer,omitempty" json:"pointer,omitempty"`
	Key     *model.KeyEvent     `yaml:"key,omitempty"     json:"key,omitempty"`
	OffsetX int32               `yaml:"dx,omitempty"      json:"dx,omitempty"`
	OffsetY int32               `yaml:"dy,omitempty"      json:"dy,omitempty"`
}

// Recorder copies every event it sees and passes it on. It is used by replay
// output and tests to observe a chain position.
type Recorder struct {
	chain.Base

	mu      sync.Mutex
	records []Record
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{Base: chain.Base{Kind: NameRecorder}}
}

func (r *Recorder) add(rec Record) {
	r.mu.Lock()
	r.records = append(r.records, rec)
	r.mu.Unlock()
}

func (r *Recorder) OnPointerEvent(ev *model.PointerEvent) bool {
	if !r.Destroyed() && ev != nil {
		r.add(Record{Kind: "pointer", Pointer: ev.Clone()})
	}
	return false
}

func (r *Recorder) OnKeyEvent(ev *model.KeyEvent) bool {
	if !r.Destroyed() && ev != nil {
		r.add(Record{Kind: "key", Key: ev.Clone()})
	}
	return false
}

func (r *Recorder) OnMoveMouse(offsetX, offsetY int32) {
	if !r.Destroyed() {
		r.add(Record{Kind: "move", OffsetX: offsetX, OffsetY: offsetY})
	}
}

// Records returns a copy of everything recorded so far.
func (r *Recorder) Records() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Record(nil), r.records...)
}

// Pointers returns the recorded pointer events.
func (r *Recorder) Pointers() []*model.PointerEvent {
	var out []*model.PointerEvent
	for _, rec := range r.Records() {
		if rec.Pointer != nil {
			out = append(out, rec.Pointer)
		}
	}
	return out
}

// Keys returns the recorded key events.
func (r *Recorder) Keys() []*model.KeyEvent {
	var out []*model.KeyEvent
	for _, rec := range r.Records() {
		if rec.Key != nil {
			out = append(out, rec.Key)
		}
	}
	return out
}

// Reset discards all records.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.records = nil
	r.mu.Unlock()
}
