package chain

import "github.com/mj1618/a11y-chain/internal/model"

// Emitter is a node's handle on the part of the chain after it. Events sent
// through an Emitter start at the node's successor, so a node never sees its
// own synthesized events. Emitters may be used from any goroutine, including
// timers running outside a traversal.
type Emitter interface {
	EmitPointerEvent(ev *model.PointerEvent) bool
	EmitKeyEvent(ev *model.KeyEvent) bool
	EmitMoveMouse(offsetX, offsetY int32)
	Publish(ev model.AccessibilityEvent)
}

// Observer receives accessibility events published by the nodes of a chain.
// Implementations must not block.
type Observer interface {
	OnAccessibilityEvent(ev model.AccessibilityEvent)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ev model.AccessibilityEvent)

func (f ObserverFunc) OnAccessibilityEvent(ev model.AccessibilityEvent) { f(ev) }

// link is the Emitter a Chain hands to each node it links.
type link struct {
	chain *Chain
	node  Transmitter
}

func (l *link) EmitPointerEvent(ev *model.PointerEvent) bool {
	g, i := l.chain.acquireAfter(l.node)
	defer g.release()
	if i < 0 {
		return false
	}
	return g.pointerFrom(i, ev)
}

func (l *link) EmitKeyEvent(ev *model.KeyEvent) bool {
	g, i := l.chain.acquireAfter(l.node)
	defer g.release()
	if i < 0 {
		return false
	}
	return g.keyFrom(i, ev)
}

func (l *link) EmitMoveMouse(offsetX, offsetY int32) {
	g, i := l.chain.acquireAfter(l.node)
	defer g.release()
	if i < 0 {
		return
	}
	g.moveFrom(i, offsetX, offsetY)
}

func (l *link) Publish(ev model.AccessibilityEvent) {
	l.chain.publish(ev)
}

type detached struct{}

func (detached) EmitPointerEvent(*model.PointerEvent) bool { return false }
func (detached) EmitKeyEvent(*model.KeyEvent) bool         { return false }
func (detached) EmitMoveMouse(int32, int32)                {}
func (detached) Publish(model.AccessibilityEvent)          {}
