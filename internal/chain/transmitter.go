package chain

import (
	"sync/atomic"
	"time"

	"github.com/mj1618/a11y-chain/internal/model"
)

// Transmitter is one node of an event transmission chain.
//
// OnPointerEvent and OnKeyEvent return true when the node consumed the event;
// the chain then stops and later nodes never see it. A node may rewrite the
// event in place before returning false. Handlers must not block and must
// treat malformed events as not consumed.
//
// OnMoveMouse is advisory and is delivered to every node exactly once.
//
// OnAccessibilityEvent is how a node emits an accessibility notification. It
// goes to the chain's observer and is never passed to the next node.
//
// ClearEvents drops buffered state for one input source only. DestroyEvents
// releases everything the node holds; it must be idempotent and must not touch
// other nodes.
type Transmitter interface {
	OnPointerEvent(ev *model.PointerEvent) bool
	OnKeyEvent(ev *model.KeyEvent) bool
	OnMoveMouse(offsetX, offsetY int32)
	OnAccessibilityEvent(ev model.AccessibilityEvent)
	ClearEvents(source model.SourceID)
	DestroyEvents()
}

// Named is implemented by transmitters that report a display name.
type Named interface {
	Name() string
}

// Attacher is implemented by transmitters that want an Emitter for their
// position in a chain. The chain calls Attach when linking the node and
// Attach(nil) once it has been unlinked.
type Attacher interface {
	Attach(e Emitter)
}

type destroyReporter interface {
	Destroyed() bool
}

// NameOf returns the display name of t.
func NameOf(t Transmitter) string {
	if n, ok := t.(Named); ok {
		return n.Name()
	}
	return "transmitter"
}

type emitterRef struct {
	Emitter
}

// Base is embedded by concrete transmitters. Its zero value is usable: it
// consumes nothing, ignores mouse moves, clears nothing and publishes
// accessibility events through the attached Emitter.
type Base struct {
	Kind string

	emitter   atomic.Pointer[emitterRef]
	destroyed atomic.Bool
}

// Name returns Kind.
func (b *Base) Name() string {
	if b.Kind == "" {
		return "transmitter"
	}
	return b.Kind
}

// Attach implements Attacher.
func (b *Base) Attach(e Emitter) {
	if e == nil {
		b.emitter.Store(nil)
		return
	}
	b.emitter.Store(&emitterRef{e})
}

// Emitter returns the downstream handle for this node. A node that is not
// linked gets an emitter that drops everything.
func (b *Base) Emitter() Emitter {
	if ref := b.emitter.Load(); ref != nil {
		return ref.Emitter
	}
	return detached{}
}

func (b *Base) OnPointerEvent(*model.PointerEvent) bool { return false }

func (b *Base) OnKeyEvent(*model.KeyEvent) bool { return false }

func (b *Base) OnMoveMouse(int32, int32) {}

// OnAccessibilityEvent stamps ev with the node name and time if unset and
// publishes it to the chain's observer.
func (b *Base) OnAccessibilityEvent(ev model.AccessibilityEvent) {
	if ev.Source == "" {
		ev.Source = b.Name()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	b.Emitter().Publish(ev)
}

func (b *Base) ClearEvents(model.SourceID) {}

func (b *Base) DestroyEvents() { b.MarkDestroyed() }

// MarkDestroyed flips the node to destroyed. It returns true only for the
// first call, so overriding DestroyEvents implementations release their
// resources once:
//
//	func (n *Node) DestroyEvents() {
//		if !n.MarkDestroyed() {
//			return
//		}
//		...
//	}
func (b *Base) MarkDestroyed() bool {
	return b.destroyed.CompareAndSwap(false, true)
}

// Destroyed reports whether DestroyEvents has run.
func (b *Base) Destroyed() bool {
	return b.destroyed.Load()
}

func isDestroyed(t Transmitter) bool {
	if d, ok := t.(destroyReporter); ok {
		return d.Destroyed()
	}
	return false
}
