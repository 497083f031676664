// Package uinput injects input events into the Linux input subsystem through
// virtual /dev/uinput devices.
package uinput

import (
	"github.com/mj1618/a11y-chain/internal/model"
	"github.com/mj1618/a11y-chain/internal/platform"
)

// Event types and codes from linux/input-event-codes.h.
const (
	evSyn = 0x00
	evKey = 0x01
	evRel = 0x02
	evAbs = 0x03

	synReport = 0

	relX = 0x00
	relY = 0x01

	absX            = 0x00
	absY            = 0x01
	absMTSlot       = 0x2f
	absMTPositionX  = 0x35
	absMTPositionY  = 0x36
	absMTTrackingID = 0x39

	btnLeft   = 0x110
	btnRight  = 0x111
	btnMiddle = 0x112
	btnTouch  = 0x14a

	maxSlots = 10
)

// rawEvent is the payload of a struct input_event without its timestamp.
type rawEvent struct {
	Type  uint16
	Code  uint16
	Value int32
}

func syn() rawEvent { return rawEvent{Type: evSyn, Code: synReport} }

// encoder turns pointer and key events into raw input events. It keeps the
// state needed to express absolute mouse positions as relative motion and
// to track multitouch contacts.
type encoder struct {
	screen platform.Bounds

	mouseKnown   bool
	mouseX       float64
	mouseY       float64
	nextTracking int32
	tracking     map[int32]int32 // pointer id -> tracking id
}

func newEncoder(screen platform.Bounds) *encoder {
	return &encoder{screen: screen, tracking: map[int32]int32{}}
}

func buttonCode(b model.MouseButton) uint16 {
	switch b {
	case model.ButtonRight:
		return btnRight
	case model.ButtonMiddle:
		return btnMiddle
	default:
		return btnLeft
	}
}

// mouse encodes a mouse or touchpad event for the relative pointer device.
func (e *encoder) mouse(ev *model.PointerEvent) []rawEvent {
	p, ok := ev.Current()
	if !ok {
		return nil
	}
	var out []rawEvent
	if e.mouseKnown {
		dx, dy := int32(p.X-e.mouseX), int32(p.Y-e.mouseY)
		if dx != 0 {
			out = append(out, rawEvent{Type: evRel, Code: relX, Value: dx})
		}
		if dy != 0 {
			out = append(out, rawEvent{Type: evRel, Code: relY, Value: dy})
		}
	}
	e.mouseKnown, e.mouseX, e.mouseY = true, p.X, p.Y

	switch ev.Action {
	case model.PointerActionButtonDown, model.PointerActionDown:
		out = append(out, rawEvent{Type: evKey, Code: buttonCode(ev.Button), Value: 1})
	case model.PointerActionButtonUp, model.PointerActionUp, model.PointerActionCancel:
		out = append(out, rawEvent{Type: evKey, Code: buttonCode(ev.Button), Value: 0})
	}
	if len(out) == 0 {
		return nil
	}
	return append(out, syn())
}

// touch encodes a touchscreen event using the type B multitouch protocol.
func (e *encoder) touch(ev *model.PointerEvent) []rawEvent {
	if _, ok := ev.Current(); !ok {
		return nil
	}
	var out []rawEvent
	wasTouching := len(e.tracking) > 0

	for _, p := range ev.Pointers {
		if p.ID < 0 || p.ID >= maxSlots {
			continue
		}
		lifting := ev.Action == model.PointerActionCancel ||
			(ev.Action == model.PointerActionUp && p.ID == ev.PointerID)
		out = append(out, rawEvent{Type: evAbs, Code: absMTSlot, Value: p.ID})
		if lifting {
			if _, ok := e.tracking[p.ID]; ok {
				delete(e.tracking, p.ID)
				out = append(out, rawEvent{Type: evAbs, Code: absMTTrackingID, Value: -1})
			}
			continue
		}
		if _, ok := e.tracking[p.ID]; !ok {
			e.tracking[p.ID] = e.nextTracking
			out = append(out, rawEvent{Type: evAbs, Code: absMTTrackingID, Value: e.nextTracking})
			e.nextTracking++
		}
		x, y := e.screen.Clamp(p.X, p.Y)
		x -= float64(e.screen.X)
		y -= float64(e.screen.Y)
		out = append(out,
			rawEvent{Type: evAbs, Code: absMTPositionX, Value: int32(x)},
			rawEvent{Type: evAbs, Code: absMTPositionY, Value: int32(y)},
		)
		if p.ID == ev.PointerID {
			out = append(out,
				rawEvent{Type: evAbs, Code: absX, Value: int32(x)},
				rawEvent{Type: evAbs, Code: absY, Value: int32(y)},
			)
		}
	}

	touching := len(e.tracking) > 0
	switch {
	case touching && !wasTouching:
		out = append(out, rawEvent{Type: evKey, Code: btnTouch, Value: 1})
	case !touching && wasTouching:
		out = append(out, rawEvent{Type: evKey, Code: btnTouch, Value: 0})
	}
	if len(out) == 0 {
		return nil
	}
	return append(out, syn())
}

func (e *encoder) key(ev *model.KeyEvent) []rawEvent {
	if !ev.Valid() {
		return nil
	}
	value := int32(0)
	if ev.Action == model.KeyActionDown {
		value = 1
	}
	return []rawEvent{{Type: evKey, Code: uint16(ev.Code), Value: value}, syn()}
}

func (e *encoder) move(offsetX, offsetY int32) []rawEvent {
	var out []rawEvent
	if offsetX != 0 {
		out = append(out, rawEvent{Type: evRel, Code: relX, Value: offsetX})
	}
	if offsetY != 0 {
		out = append(out, rawEvent{Type: evRel, Code: relY, Value: offsetY})
	}
	if len(out) == 0 {
		return nil
	}
	if e.mouseKnown {
		e.mouseX += float64(offsetX)
		e.mouseY += float64(offsetY)
	}
	return append(out, syn())
}
