//go:build darwin && cgo

package darwin

/*
#cgo CFLAGS: -x objective-c
#cgo LDFLAGS: -framework CoreGraphics -framework ApplicationServices -framework Foundation
#include <CoreGraphics/CoreGraphics.h>

// Post a mouse event of the given type at screen coordinates.
// button: 0=left, 1=right, 2=middle (maps to kCGMouseButton*)
static int cg_mouse(int type, float x, float y, int button) {
    CGMouseButton cgButton = kCGMouseButtonLeft;
    if (button == 1) cgButton = kCGMouseButtonRight;
    if (button == 2) cgButton = kCGMouseButtonCenter;
    CGEventRef ev = CGEventCreateMouseEvent(NULL, (CGEventType)type, CGPointMake(x, y), cgButton);
    if (!ev) return -1;
    CGEventPost(kCGHIDEventTap, ev);
    CFRelease(ev);
    return 0;
}

static int cg_move_by(int dx, int dy) {
    CGEventRef cur = CGEventCreate(NULL);
    if (!cur) return -1;
    CGPoint p = CGEventGetLocation(cur);
    CFRelease(cur);
    p.x += dx;
    p.y += dy;
    CGEventRef move = CGEventCreateMouseEvent(NULL, kCGEventMouseMoved, p, kCGMouseButtonLeft);
    if (!move) return -1;
    CGEventPost(kCGHIDEventTap, move);
    CFRelease(move);
    return 0;
}

static int cg_key(CGKeyCode keyCode, int down) {
    CGEventRef ev = CGEventCreateKeyboardEvent(NULL, keyCode, down ? true : false);
    if (!ev) return -1;
    CGEventPost(kCGHIDEventTap, ev);
    CFRelease(ev);
    return 0;
}
*/
import "C"

import (
	"fmt"

	"github.com/mj1618/a11y-chain/internal/model"
)

// CGEventType values from CGEventTypes.h.
const (
	cgLeftMouseDown    = 1
	cgLeftMouseUp      = 2
	cgRightMouseDown   = 3
	cgRightMouseUp     = 4
	cgMouseMoved       = 5
	cgLeftMouseDragged = 6
	cgOtherMouseDown   = 25
	cgOtherMouseUp     = 26
)

// DarwinInjector implements platform.Injector for macOS. Touch contacts are
// posted as left-button mouse events since macOS has no touchscreen input.
type DarwinInjector struct{}

// NewInjector creates a new macOS injector.
func NewInjector() *DarwinInjector {
	return &DarwinInjector{}
}

func cgButton(b model.MouseButton) C.int {
	switch b {
	case model.ButtonRight:
		return 1
	case model.ButtonMiddle:
		return 2
	}
	return 0
}

func mouseType(ev *model.PointerEvent) (int, bool) {
	switch ev.Action {
	case model.PointerActionDown, model.PointerActionButtonDown:
		switch ev.Button {
		case model.ButtonRight:
			return cgRightMouseDown, true
		case model.ButtonMiddle:
			return cgOtherMouseDown, true
		}
		return cgLeftMouseDown, true
	case model.PointerActionUp, model.PointerActionCancel, model.PointerActionButtonUp:
		switch ev.Button {
		case model.ButtonRight:
			return cgRightMouseUp, true
		case model.ButtonMiddle:
			return cgOtherMouseUp, true
		}
		return cgLeftMouseUp, true
	case model.PointerActionMove:
		if ev.Source == model.SourceTouchscreen {
			return cgLeftMouseDragged, true
		}
		return cgMouseMoved, true
	case model.PointerActionHoverEnter, model.PointerActionHoverMove, model.PointerActionHoverExit:
		return cgMouseMoved, true
	}
	return 0, false
}

func (inj *DarwinInjector) InjectPointer(ev *model.PointerEvent) error {
	p, ok := ev.Current()
	if !ok {
		return nil
	}
	typ, ok := mouseType(ev)
	if !ok {
		return nil
	}
	if C.cg_mouse(C.int(typ), C.float(p.X), C.float(p.Y), cgButton(ev.Button)) != 0 {
		return fmt.Errorf("failed to post %s at (%.0f, %.0f)", ev.Action, p.X, p.Y)
	}
	return nil
}

func (inj *DarwinInjector) InjectKey(ev *model.KeyEvent) error {
	code, ok := keyCodeMap[ev.Code]
	if !ok {
		return fmt.Errorf("no macOS key code for %s", ev.Code)
	}
	down := C.int(0)
	if ev.Action == model.KeyActionDown {
		down = 1
	}
	if C.cg_key(C.CGKeyCode(code), down) != 0 {
		return fmt.Errorf("failed to post key %s", ev.Code)
	}
	return nil
}

func (inj *DarwinInjector) MoveCursor(offsetX, offsetY int32) error {
	if C.cg_move_by(C.int(offsetX), C.int(offsetY)) != 0 {
		return fmt.Errorf("failed to move cursor by (%d, %d)", offsetX, offsetY)
	}
	return nil
}

func (inj *DarwinInjector) Close() error { return nil }

// macOS virtual key codes from Carbon Events.h, keyed by Linux key code.
var keyCodeMap = map[model.KeyCode]uint16{
	model.KeyEsc: 0x35, model.KeyBackspace: 0x33, model.KeyTab: 0x30, model.KeyEnter: 0x24,
	model.KeyLeftCtrl: 0x3B, model.KeyA: 0x00, model.KeyLeftShift: 0x38, model.KeyLeftAlt: 0x3A,
	model.KeySpace: 0x31,
	model.KeyUp:    0x7E, model.KeyDown: 0x7D, model.KeyLeft: 0x7B, model.KeyRight: 0x7C,
	model.KeyNumpad0: 0x52, model.KeyNumpad1: 0x53, model.KeyNumpad2: 0x54, model.KeyNumpad3: 0x55,
	model.KeyNumpad4: 0x56, model.KeyNumpad5: 0x57, model.KeyNumpad6: 0x58, model.KeyNumpad7: 0x59,
	model.KeyNumpad8: 0x5B, model.KeyNumpad9: 0x5C,
	model.KeyNumpadDivide: 0x4B, model.KeyNumpadMultiply: 0x43, model.KeyNumpadSubtract: 0x4E,
	model.KeyNumpadAdd: 0x45,
}
