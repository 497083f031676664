package filters

import (
	"sync"
	"time"

	"github.com/mj1618/a11y-chain/internal/chain"
	"github.com/mj1618/a11y-chain/internal/model"
)

type guideMode int

const (
	guideTouch guideMode = iota
	guidePassthrough
)

type guideState struct {
	rec  *Recognizer
	taps *MultiTapRecognizer
	mode guideMode

	// tapSeq invalidates tapTimer once a newer event arrived.
	tapSeq   uint64
	tapTimer *time.Timer

	hovering  bool
	focus     model.PointerItem
	haveFocus bool
}

// guideOutput collects what a handler decided to send once the lock is released.
type guideOutput struct {
	pointers []*model.PointerEvent
	events   []model.AccessibilityEvent
}

func (o *guideOutput) emit(ev *model.PointerEvent) { o.pointers = append(o.pointers, ev) }

func (o *guideOutput) publish(ev model.AccessibilityEvent) { o.events = append(o.events, ev) }

// TouchGuider implements touch exploration for touchscreens. A single finger
// is buffered and classified: swipes become gesture notifications, a resting
// finger explores the screen through synthesized hover events, and a double
// tap clicks the last explored point. Touches with two or more fingers are
// passed through untouched, but taps made with two to four fingers are still
// counted and reported as gestures.
type TouchGuider struct {
	chain.Base

	cfg RecognizerConfig

	mu      sync.Mutex
	devices map[model.SourceID]*guideState
}

// NewTouchGuider returns a touch guider using cfg for recognition.
func NewTouchGuider(cfg RecognizerConfig) *TouchGuider {
	return &TouchGuider{
		Base:    chain.Base{Kind: NameTouchGuider},
		cfg:     cfg,
		devices: map[model.SourceID]*guideState{},
	}
}

func (g *TouchGuider) OnPointerEvent(ev *model.PointerEvent) bool {
	if g.Destroyed() || !ev.Valid() || ev.Source != model.SourceTouchscreen || ev.Has(model.FlagSimulated) {
		return false
	}
	var out guideOutput
	g.mu.Lock()
	if g.devices == nil {
		g.mu.Unlock()
		return false
	}
	st, ok := g.devices[ev.Device]
	if !ok {
		st = &guideState{rec: NewRecognizer(g.cfg), taps: NewMultiTapRecognizer(g.cfg)}
		g.devices[ev.Device] = st
	}
	g.countTaps(st, ev, &out)
	consumed := g.handle(st, ev, &out)
	g.mu.Unlock()

	for _, p := range out.pointers {
		g.Emitter().EmitPointerEvent(p)
	}
	for _, e := range out.events {
		g.OnAccessibilityEvent(e)
	}
	return consumed
}

func (g *TouchGuider) countTaps(st *guideState, ev *model.PointerEvent, out *guideOutput) {
	for _, t := range st.taps.Feed(ev, eventTime(ev.ActionTime)) {
		out.publish(g.multiTap(t, ev.Device))
	}
	st.tapSeq++
	st.stopTaps()
	if st.taps.Pending() {
		seq, device := st.tapSeq, ev.Device
		st.tapTimer = time.AfterFunc(g.cfg.DoubleTapTimeout, func() { g.expireTaps(device, seq) })
	}
}

// expireTaps reports a tap sequence nobody continued in time.
func (g *TouchGuider) expireTaps(device model.SourceID, seq uint64) {
	g.mu.Lock()
	st, ok := g.devices[device]
	if !ok || st.tapSeq != seq {
		g.mu.Unlock()
		return
	}
	st.tapTimer = nil
	t, ok := st.taps.Expire()
	g.mu.Unlock()
	if ok {
		g.OnAccessibilityEvent(g.multiTap(t, device))
	}
}

func (g *TouchGuider) handle(st *guideState, ev *model.PointerEvent, out *guideOutput) bool {
	p, _ := ev.Current()
	at := eventTime(ev.ActionTime)

	if ev.Action == model.PointerActionCancel {
		g.endHover(st, ev, at, out)
		st.rec.Clear()
		if st.mode == guidePassthrough {
			st.mode = guideTouch
			return false
		}
		return true
	}

	if st.mode == guidePassthrough {
		if ev.Action == model.PointerActionUp && remaining(ev) == 0 {
			st.mode = guideTouch
		}
		return false
	}

	if len(ev.Pointers) > 1 {
		st.rec.Clear()
		g.endHover(st, ev, at, out)
		st.mode = guidePassthrough
		if ev.Action == model.PointerActionDown {
			for _, other := range ev.Pointers {
				if other.ID != ev.PointerID {
					out.emit(synthesize(ev, model.PointerActionDown, other, at))
					break
				}
			}
		}
		return false
	}

	switch ev.Action {
	case model.PointerActionDown:
		st.rec.Down(p.X, p.Y, at)
		out.publish(g.event(model.EventTouchExplorationBegin, ev.Device, p))
		return true

	case model.PointerActionMove:
		res := st.rec.Move(p.X, p.Y, at)
		switch {
		case res.Outcome == OutcomeLongPress:
			out.publish(g.gesture(res.Gesture, ev.Device, st.focusOr(p)))
		case !st.rec.Recognizing():
			g.hover(st, ev, p, at, out)
		}
		return true

	case model.PointerActionUp:
		res := st.rec.Up(p.X, p.Y, at)
		switch res.Outcome {
		case OutcomeDoubleTap:
			target := st.focusOr(p)
			out.emit(synthesize(ev, model.PointerActionDown, target, at))
			out.emit(synthesize(ev, model.PointerActionUp, target, at))
			out.publish(g.gesture(res.Gesture, ev.Device, target))
		case OutcomeLongPress, OutcomeGesture:
			out.publish(g.gesture(res.Gesture, ev.Device, p))
		case OutcomeTap:
			g.hover(st, ev, p, at, out)
		}
		g.endHover(st, ev, at, out)
		out.publish(g.event(model.EventTouchExplorationEnd, ev.Device, p))
		return true
	}
	return false
}

func (st *guideState) focusOr(p model.PointerItem) model.PointerItem {
	if st.haveFocus {
		f := st.focus
		f.ID = p.ID
		return f
	}
	return p
}

func (g *TouchGuider) hover(st *guideState, ev *model.PointerEvent, p model.PointerItem, at time.Time, out *guideOutput) {
	action := model.PointerActionHoverMove
	if !st.hovering {
		action = model.PointerActionHoverEnter
		st.hovering = true
		out.publish(g.event(model.EventTouchGuideBegin, ev.Device, p))
	}
	p.Pressed = false
	st.focus, st.haveFocus = p, true
	out.emit(synthesize(ev, action, p, at))
}

func (g *TouchGuider) endHover(st *guideState, ev *model.PointerEvent, at time.Time, out *guideOutput) {
	if !st.hovering {
		return
	}
	st.hovering = false
	out.emit(synthesize(ev, model.PointerActionHoverExit, st.focus, at))
	out.publish(g.event(model.EventTouchGuideEnd, ev.Device, st.focus))
}

func (g *TouchGuider) event(typ model.EventType, device model.SourceID, p model.PointerItem) model.AccessibilityEvent {
	return model.AccessibilityEvent{Type: typ, Device: device, X: p.X, Y: p.Y}
}

func (g *TouchGuider) gesture(gt model.GestureType, device model.SourceID, p model.PointerItem) model.AccessibilityEvent {
	return model.AccessibilityEvent{Type: model.EventGesture, Gesture: gt, Device: device, X: p.X, Y: p.Y}
}

func (g *TouchGuider) multiTap(t MultiTap, device model.SourceID) model.AccessibilityEvent {
	return model.AccessibilityEvent{Type: model.EventGesture, Gesture: t.Gesture, Device: device, X: t.X, Y: t.Y}
}

func (st *guideState) stopTaps() {
	if st.tapTimer != nil {
		st.tapTimer.Stop()
		st.tapTimer = nil
	}
}

// ClearEvents forgets the stroke, hover, focus and tap state of one source.
func (g *TouchGuider) ClearEvents(source model.SourceID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if st, ok := g.devices[source]; ok {
		st.stopTaps()
		delete(g.devices, source)
	}
}

func (g *TouchGuider) DestroyEvents() {
	if !g.MarkDestroyed() {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, st := range g.devices {
		st.stopTaps()
	}
	g.devices = nil
}
