package platform

import (
	"sync"

	"github.com/mj1618/a11y-chain/internal/model"
)

// Recording is an Injector that keeps what it is given in memory. It backs
// replay output and tests, and stands in on hosts without an input backend.
type Recording struct {
	mu       sync.Mutex
	pointers []*model.PointerEvent
	keys     []*model.KeyEvent
	moves    [][2]int32
	closed   bool
}

// NewRecording returns an empty Recording.
func NewRecording() *Recording {
	return &Recording{}
}

func (r *Recording) InjectPointer(ev *model.PointerEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pointers = append(r.pointers, ev.Clone())
	return nil
}

func (r *Recording) InjectKey(ev *model.KeyEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys = append(r.keys, ev.Clone())
	return nil
}

func (r *Recording) MoveCursor(offsetX, offsetY int32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.moves = append(r.moves, [2]int32{offsetX, offsetY})
	return nil
}

func (r *Recording) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

// Pointers returns the injected pointer events in order.
func (r *Recording) Pointers() []*model.PointerEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*model.PointerEvent(nil), r.pointers...)
}

// Keys returns the injected key events in order.
func (r *Recording) Keys() []*model.KeyEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*model.KeyEvent(nil), r.keys...)
}

// Moves returns the cursor offsets in order.
func (r *Recording) Moves() [][2]int32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][2]int32(nil), r.moves...)
}

// Closed reports whether Close was called.
func (r *Recording) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// Reset drops everything recorded so far.
func (r *Recording) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pointers, r.keys, r.moves = nil, nil, nil
}
