package platform

import "github.com/mj1618/a11y-chain/internal/model"

// Injector is the final disposition for input events that no transmitter
// consumed. Events reaching an Injector carry model.FlagNoIntercept so an input
// source that sees them again does not feed them back into a chain.
type Injector interface {
	// InjectPointer delivers a touch, touchpad or mouse event to the OS.
	InjectPointer(ev *model.PointerEvent) error

	// InjectKey delivers a key event to the OS.
	InjectKey(ev *model.KeyEvent) error

	// MoveCursor moves the system cursor by a relative offset.
	MoveCursor(offsetX, offsetY int32) error

	// Close releases the backing device.
	Close() error
}
