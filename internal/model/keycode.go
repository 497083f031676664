package model

// KeyCode identifies a key independently of layout. Values follow the Linux
// input-event-codes numbering so the uinput backend can pass them through.
type KeyCode int32

const (
	KeyUnknown   KeyCode = 0
	KeyEsc       KeyCode = 1
	KeyBackspace KeyCode = 14
	KeyTab       KeyCode = 15
	KeyEnter     KeyCode = 28
	KeyLeftCtrl  KeyCode = 29
	KeyA         KeyCode = 30
	KeyLeftShift KeyCode = 42
	KeyLeftAlt   KeyCode = 56
	KeySpace     KeyCode = 57

	KeyNumpadMultiply KeyCode = 55
	KeyNumpad7        KeyCode = 71
	KeyNumpad8        KeyCode = 72
	KeyNumpad9        KeyCode = 73
	KeyNumpadSubtract KeyCode = 74
	KeyNumpad4        KeyCode = 75
	KeyNumpad5        KeyCode = 76
	KeyNumpad6        KeyCode = 77
	KeyNumpadAdd      KeyCode = 78
	KeyNumpad1        KeyCode = 79
	KeyNumpad2        KeyCode = 80
	KeyNumpad3        KeyCode = 81
	KeyNumpad0        KeyCode = 82
	KeyNumpadDivide   KeyCode = 98

	KeyUp    KeyCode = 103
	KeyLeft  KeyCode = 105
	KeyRight KeyCode = 106
	KeyDown  KeyCode = 108
)

// IsNumpad reports whether k is on the numeric keypad.
func (k KeyCode) IsNumpad() bool {
	switch k {
	case KeyNumpad0, KeyNumpad1, KeyNumpad2, KeyNumpad3, KeyNumpad4,
		KeyNumpad5, KeyNumpad6, KeyNumpad7, KeyNumpad8, KeyNumpad9,
		KeyNumpadDivide, KeyNumpadMultiply, KeyNumpadSubtract, KeyNumpadAdd:
		return true
	}
	return false
}
