package model

import (
	"fmt"
	"strconv"
	"strings"
)

// SourceNames maps script/config names to source types.
var SourceNames = map[string]SourceType{
	"mouse":       SourceMouse,
	"touchscreen": SourceTouchscreen,
	"touchpad":    SourceTouchpad,
	"keyboard":    SourceKeyboard,
}

// PointerActionNames maps script names to pointer actions.
var PointerActionNames = map[string]PointerAction{
	"down":        PointerActionDown,
	"move":        PointerActionMove,
	"up":          PointerActionUp,
	"cancel":      PointerActionCancel,
	"button_down": PointerActionButtonDown,
	"button_up":   PointerActionButtonUp,
	"hover_enter": PointerActionHoverEnter,
	"hover_move":  PointerActionHoverMove,
	"hover_exit":  PointerActionHoverExit,
}

// ButtonNames maps script names to mouse buttons.
var ButtonNames = map[string]MouseButton{
	"none":   ButtonNone,
	"left":   ButtonLeft,
	"right":  ButtonRight,
	"middle": ButtonMiddle,
}

// KeyActionNames maps script names to key actions.
var KeyActionNames = map[string]KeyAction{
	"down":   KeyActionDown,
	"up":     KeyActionUp,
	"cancel": KeyActionCancel,
}

// KeyNames maps script names to key codes. Unlisted keys can be given by
// their numeric code.
var KeyNames = map[string]KeyCode{
	"esc":             KeyEsc,
	"backspace":       KeyBackspace,
	"tab":             KeyTab,
	"enter":           KeyEnter,
	"ctrl":            KeyLeftCtrl,
	"a":               KeyA,
	"shift":           KeyLeftShift,
	"alt":             KeyLeftAlt,
	"space":           KeySpace,
	"up":              KeyUp,
	"down":            KeyDown,
	"left":            KeyLeft,
	"right":           KeyRight,
	"numpad_0":        KeyNumpad0,
	"numpad_1":        KeyNumpad1,
	"numpad_2":        KeyNumpad2,
	"numpad_3":        KeyNumpad3,
	"numpad_4":        KeyNumpad4,
	"numpad_5":        KeyNumpad5,
	"numpad_6":        KeyNumpad6,
	"numpad_7":        KeyNumpad7,
	"numpad_8":        KeyNumpad8,
	"numpad_9":        KeyNumpad9,
	"numpad_divide":   KeyNumpadDivide,
	"numpad_multiply": KeyNumpadMultiply,
	"numpad_subtract": KeyNumpadSubtract,
	"numpad_add":      KeyNumpadAdd,
}

func lookupName[T comparable](names map[string]T, s, kind string) (T, error) {
	if v, ok := names[strings.ToLower(strings.TrimSpace(s))]; ok {
		return v, nil
	}
	var zero T
	return zero, fmt.Errorf("unknown %s: %q", kind, s)
}

func reverseName[T comparable](names map[string]T, v T) string {
	for name, val := range names {
		if val == v {
			return name
		}
	}
	return "unknown"
}

// ParseSource converts a name to a SourceType.
func ParseSource(s string) (SourceType, error) { return lookupName(SourceNames, s, "source") }

// ParsePointerAction converts a name to a PointerAction.
func ParsePointerAction(s string) (PointerAction, error) {
	return lookupName(PointerActionNames, s, "pointer action")
}

// ParseButton converts a name to a MouseButton.
func ParseButton(s string) (MouseButton, error) { return lookupName(ButtonNames, s, "mouse button") }

// ParseKeyAction converts a name to a KeyAction.
func ParseKeyAction(s string) (KeyAction, error) { return lookupName(KeyActionNames, s, "key action") }

// ParseKeyCode converts a key name or a decimal key code to a KeyCode.
func ParseKeyCode(s string) (KeyCode, error) {
	if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
		return KeyCode(n), nil
	}
	return lookupName(KeyNames, s, "key")
}

func (s SourceType) String() string    { return reverseName(SourceNames, s) }
func (a PointerAction) String() string { return reverseName(PointerActionNames, a) }
func (b MouseButton) String() string   { return reverseName(ButtonNames, b) }
func (a KeyAction) String() string     { return reverseName(KeyActionNames, a) }

func (k KeyCode) String() string {
	for name, code := range KeyNames {
		if code == k {
			return name
		}
	}
	return strconv.Itoa(int(k))
}

func (s SourceType) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *SourceType) UnmarshalText(b []byte) error {
	v, err := ParseSource(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

func (a PointerAction) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

func (a *PointerAction) UnmarshalText(b []byte) error {
	v, err := ParsePointerAction(string(b))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

func (b MouseButton) MarshalText() ([]byte, error) { return []byte(b.String()), nil }

func (b *MouseButton) UnmarshalText(text []byte) error {
	v, err := ParseButton(string(text))
	if err != nil {
		return err
	}
	*b = v
	return nil
}

func (a KeyAction) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

func (a *KeyAction) UnmarshalText(b []byte) error {
	v, err := ParseKeyAction(string(b))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

func (k KeyCode) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *KeyCode) UnmarshalText(b []byte) error {
	v, err := ParseKeyCode(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}
