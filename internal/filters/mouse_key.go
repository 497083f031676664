package filters

import (
	"sync"
	"time"

	"github.com/mj1618/a11y-chain/internal/chain"
	"github.com/mj1618/a11y-chain/internal/model"
)

// MouseKeyStep is how far one numpad press moves the cursor.
const MouseKeyStep int32 = 5

// ButtonSelection is the button a mouse key click presses.
type ButtonSelection int

const (
	SelectLeft ButtonSelection = iota
	SelectRight
	SelectBoth
)

func (b ButtonSelection) String() string {
	switch b {
	case SelectRight:
		return "right"
	case SelectBoth:
		return "both"
	}
	return "left"
}

var mouseKeyOffsets = map[model.KeyCode][2]int32{
	model.KeyNumpad1: {-MouseKeyStep, MouseKeyStep},
	model.KeyNumpad2: {0, MouseKeyStep},
	model.KeyNumpad3: {MouseKeyStep, MouseKeyStep},
	model.KeyNumpad4: {-MouseKeyStep, 0},
	model.KeyNumpad6: {MouseKeyStep, 0},
	model.KeyNumpad7: {-MouseKeyStep, -MouseKeyStep},
	model.KeyNumpad8: {0, -MouseKeyStep},
	model.KeyNumpad9: {MouseKeyStep, -MouseKeyStep},
}

func isMouseKey(k model.KeyCode) bool {
	if _, ok := mouseKeyOffsets[k]; ok {
		return true
	}
	switch k {
	case model.KeyNumpad5, model.KeyNumpadAdd,
		model.KeyNumpadDivide, model.KeyNumpadMultiply, model.KeyNumpadSubtract:
		return true
	}
	return false
}

// MouseKey drives the mouse from the numeric keypad. It sits in the key chain
// and consumes numpad keys pressed with no other key held. Movement and
// clicks go into the pointer chain through the node returned by Tracker,
// which must be linked there; without it the keys are still consumed but have
// no effect.
//
//	7 8 9    move diagonally or vertically
//	4   6    move horizontally
//	1 2 3
//	5        click
//	+        double click
//	/ * -    select left, both or right button
type MouseKey struct {
	chain.Base

	mu       sync.Mutex
	selected ButtonSelection

	tracker *mouseKeyTracker
}

// NewMouseKey returns a MouseKey clicking the left button.
func NewMouseKey() *MouseKey {
	return &MouseKey{
		Base:    chain.Base{Kind: NameMouseKey},
		tracker: &mouseKeyTracker{Base: chain.Base{Kind: NameMouseKeyTracker}},
	}
}

// Tracker returns the pointer chain half of the mouse key feature. It records
// the last plain mouse move, which is where clicks land, and forwards
// everything.
func (m *MouseKey) Tracker() chain.Transmitter { return m.tracker }

// Selected returns the button clicks currently press.
func (m *MouseKey) Selected() ButtonSelection {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.selected
}

func (m *MouseKey) OnKeyEvent(ev *model.KeyEvent) bool {
	if m.Destroyed() || !ev.Valid() || ev.Has(model.FlagSimulated) {
		return false
	}
	if !isMouseKey(ev.Code) || !pressedAlone(ev) {
		return false
	}
	if ev.Action == model.KeyActionDown {
		m.execute(ev.Code)
	}
	return true
}

// pressedAlone reports whether no key other than ev.Code is held.
func pressedAlone(ev *model.KeyEvent) bool {
	for _, k := range ev.Pressed {
		if k != ev.Code {
			return false
		}
	}
	return true
}

func (m *MouseKey) execute(code model.KeyCode) {
	if off, ok := mouseKeyOffsets[code]; ok {
		m.tracker.move(off[0], off[1])
		return
	}
	switch code {
	case model.KeyNumpad5:
		m.tracker.click(m.Selected(), 1)
	case model.KeyNumpadAdd:
		m.tracker.click(m.Selected(), 2)
	case model.KeyNumpadDivide:
		m.selectButton(SelectLeft)
	case model.KeyNumpadMultiply:
		m.selectButton(SelectBoth)
	case model.KeyNumpadSubtract:
		m.selectButton(SelectRight)
	}
}

func (m *MouseKey) selectButton(b ButtonSelection) {
	m.mu.Lock()
	m.selected = b
	m.mu.Unlock()
}

func (m *MouseKey) DestroyEvents() {
	if !m.MarkDestroyed() {
		return
	}
	m.mu.Lock()
	m.selected = SelectLeft
	m.mu.Unlock()
}

type mouseKeyTracker struct {
	chain.Base

	mu   sync.Mutex
	last *model.PointerEvent
}

func (t *mouseKeyTracker) OnPointerEvent(ev *model.PointerEvent) bool {
	if t.Destroyed() || !ev.Valid() || ev.Has(model.FlagSimulated) {
		return false
	}
	if ev.Source == model.SourceMouse && ev.Action == model.PointerActionMove && len(ev.Pointers) == 1 {
		t.mu.Lock()
		t.last = ev.Clone()
		t.mu.Unlock()
	}
	return false
}

// move shifts the cursor downstream and keeps the remembered position in step.
func (t *mouseKeyTracker) move(dx, dy int32) {
	t.mu.Lock()
	if t.last != nil {
		for i := range t.last.Pointers {
			t.last.Pointers[i].X += float64(dx)
			t.last.Pointers[i].Y += float64(dy)
		}
	}
	t.mu.Unlock()
	t.Emitter().EmitMoveMouse(dx, dy)
}

func (t *mouseKeyTracker) click(sel ButtonSelection, count int) {
	t.mu.Lock()
	if t.last == nil {
		t.mu.Unlock()
		return
	}
	base := t.last.Clone()
	t.mu.Unlock()

	now := time.Now()
	base.ActionTime = now
	base.Flags |= model.FlagSimulated
	for i := range base.Pointers {
		base.Pointers[i].Pressed = true
		base.Pointers[i].DownTime = now
	}

	e := t.Emitter()
	send := func(action model.PointerAction, button model.MouseButton) {
		ev := base.Clone()
		ev.Action = action
		ev.Button = button
		e.EmitPointerEvent(ev)
	}
	for i := 0; i < count; i++ {
		switch sel {
		case SelectLeft:
			send(model.PointerActionButtonDown, model.ButtonLeft)
			send(model.PointerActionButtonUp, model.ButtonLeft)
		case SelectRight:
			send(model.PointerActionButtonDown, model.ButtonRight)
			send(model.PointerActionButtonUp, model.ButtonRight)
		case SelectBoth:
			send(model.PointerActionButtonDown, model.ButtonLeft)
			send(model.PointerActionButtonDown, model.ButtonRight)
			send(model.PointerActionButtonUp, model.ButtonLeft)
			send(model.PointerActionButtonUp, model.ButtonRight)
		}
	}
}

// ClearEvents forgets the remembered cursor when it came from source.
func (t *mouseKeyTracker) ClearEvents(source model.SourceID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.last != nil && t.last.Device == source {
		t.last = nil
	}
}

func (t *mouseKeyTracker) DestroyEvents() {
	if !t.MarkDestroyed() {
		return
	}
	t.mu.Lock()
	t.last = nil
	t.mu.Unlock()
}
