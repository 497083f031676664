package filters

import (
	"sync"
	"time"

	"github.com/mj1618/a11y-chain/internal/chain"
	"github.com/mj1618/a11y-chain/internal/model"
)

// DefaultKeyResultTimeout is how long a key waits for subscribers to answer
// before it is passed on unhandled.
const DefaultKeyResultTimeout = 500 * time.Millisecond

// KeySubscriber is an assistive service that wants to see key presses before
// applications do. It must answer each call with KeyEventFilter.SetResult,
// from any goroutine, using the sequence number it was given.
type KeySubscriber interface {
	Name() string
	OnKeyPressEvent(ev *model.KeyEvent, seq uint64)
}

type pendingKey struct {
	ev      *model.KeyEvent
	waiting int
	timer   *time.Timer
}

// KeyEventFilter offers every key event to its subscribers and holds it until
// they answer. If any subscriber handles the key it is dropped and a
// key-handled accessibility event is published; once all subscribers decline,
// or the timeout passes, the key continues down the chain.
type KeyEventFilter struct {
	chain.Base

	timeout time.Duration

	mu          sync.Mutex
	subscribers []KeySubscriber
	seq         uint64
	pending     map[uint64]*pendingKey
}

// NewKeyEventFilter returns a filter that waits up to timeout for answers.
// A zero timeout selects DefaultKeyResultTimeout.
func NewKeyEventFilter(timeout time.Duration) *KeyEventFilter {
	if timeout <= 0 {
		timeout = DefaultKeyResultTimeout
	}
	return &KeyEventFilter{
		Base:    chain.Base{Kind: NameKeyFilter},
		timeout: timeout,
		pending: map[uint64]*pendingKey{},
	}
}

// Subscribe adds s. Subscribing the same name twice replaces the first.
func (f *KeyEventFilter) Subscribe(s KeySubscriber) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, cur := range f.subscribers {
		if cur.Name() == s.Name() {
			f.subscribers[i] = s
			return
		}
	}
	f.subscribers = append(f.subscribers, s)
}

// Unsubscribe removes the subscriber called name.
func (f *KeyEventFilter) Unsubscribe(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, cur := range f.subscribers {
		if cur.Name() == name {
			f.subscribers = append(f.subscribers[:i], f.subscribers[i+1:]...)
			return
		}
	}
}

// SetSubscribers replaces every subscriber with subs.
func (f *KeyEventFilter) SetSubscribers(subs []KeySubscriber) {
	f.mu.Lock()
	f.subscribers = append([]KeySubscriber(nil), subs...)
	f.mu.Unlock()
}

// Pending returns the number of keys awaiting answers.
func (f *KeyEventFilter) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pending)
}

func (f *KeyEventFilter) OnKeyEvent(ev *model.KeyEvent) bool {
	if f.Destroyed() || !ev.Valid() || ev.Has(model.FlagSimulated) {
		return false
	}
	f.mu.Lock()
	if f.pending == nil || len(f.subscribers) == 0 {
		f.mu.Unlock()
		return false
	}
	subs := append([]KeySubscriber(nil), f.subscribers...)
	f.seq++
	seq := f.seq
	p := &pendingKey{ev: ev.Clone(), waiting: len(subs)}
	p.timer = time.AfterFunc(f.timeout, func() { f.expire(seq) })
	f.pending[seq] = p
	f.mu.Unlock()

	for _, s := range subs {
		s.OnKeyPressEvent(ev.Clone(), seq)
	}
	return true
}

// SetResult records a subscriber's answer for the key with sequence number
// seq. It reports false when the key is no longer pending.
func (f *KeyEventFilter) SetResult(seq uint64, handled bool) bool {
	f.mu.Lock()
	p, ok := f.pending[seq]
	if !ok {
		f.mu.Unlock()
		return false
	}
	if !handled {
		p.waiting--
		if p.waiting > 0 {
			f.mu.Unlock()
			return true
		}
	}
	delete(f.pending, seq)
	p.timer.Stop()
	f.mu.Unlock()

	if handled {
		f.OnAccessibilityEvent(model.AccessibilityEvent{
			Type:   model.EventKeyHandled,
			Device: p.ev.Device,
			Text:   p.ev.Code.String(),
		})
		return true
	}
	f.Emitter().EmitKeyEvent(p.ev)
	return true
}

func (f *KeyEventFilter) expire(seq uint64) {
	f.mu.Lock()
	p, ok := f.pending[seq]
	if ok {
		delete(f.pending, seq)
	}
	f.mu.Unlock()
	if ok {
		f.Emitter().EmitKeyEvent(p.ev)
	}
}

// ClearEvents drops keys from source that are still waiting for answers.
// They are not passed on.
func (f *KeyEventFilter) ClearEvents(source model.SourceID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for seq, p := range f.pending {
		if p.ev.Device == source {
			p.timer.Stop()
			delete(f.pending, seq)
		}
	}
}

func (f *KeyEventFilter) DestroyEvents() {
	if !f.MarkDestroyed() {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.pending {
		p.timer.Stop()
	}
	f.pending = nil
	f.subscribers = nil
}
