package model

import "time"

// SourceType identifies the class of device an input event came from.
type SourceType int

const (
	SourceUnknown SourceType = iota
	SourceMouse
	SourceTouchscreen
	SourceTouchpad
	SourceKeyboard
)

// SourceID identifies one physical input source (one touch panel, one
// keyboard). It is the scope key for ClearEvents.
type SourceID int32

// Flag marks provenance bits on an input event.
type Flag uint32

const (
	// FlagNoIntercept marks an event re-injected by the chain's terminal node.
	// Input sources must not feed such an event back into the chain.
	FlagNoIntercept Flag = 1 << iota
	// FlagSimulated marks an event synthesized by a node (injected gesture,
	// mouse key click, touch exploration hover).
	FlagSimulated
)

// PointerAction is what happened to the pointer(s) in a PointerEvent.
type PointerAction int

const (
	PointerActionUnknown PointerAction = iota
	PointerActionDown
	PointerActionMove
	PointerActionUp
	PointerActionCancel
	PointerActionButtonDown
	PointerActionButtonUp
	PointerActionHoverEnter
	PointerActionHoverMove
	PointerActionHoverExit
)

// MouseButton is the button involved in a ButtonDown/ButtonUp action.
type MouseButton int

const (
	ButtonNone MouseButton = iota
	ButtonLeft
	ButtonRight
	ButtonMiddle
)

// PointerItem is one contact (finger, stylus, cursor) within a PointerEvent.
type PointerItem struct {
	ID       int32     `yaml:"id"                  json:"id"`
	X        float64   `yaml:"x"                   json:"x"`
	Y        float64   `yaml:"y"                   json:"y"`
	Pressed  bool      `yaml:"pressed,omitempty"   json:"pressed,omitempty"`
	DownTime time.Time `yaml:"down_time,omitempty" json:"down_time,omitempty"`
}

// PointerEvent is a touch, touchpad or mouse event. Nodes may rewrite it in
// place (e.g. remap coordinates) while it travels down the chain.
type PointerEvent struct {
	Source     SourceType    `yaml:"source"           json:"source"`
	Device     SourceID      `yaml:"device"           json:"device"`
	Action     PointerAction `yaml:"action"           json:"action"`
	PointerID  int32         `yaml:"pointer_id"       json:"pointer_id"`
	Pointers   []PointerItem `yaml:"pointers"         json:"pointers"`
	Button     MouseButton   `yaml:"button,omitempty" json:"button,omitempty"`
	ActionTime time.Time     `yaml:"time,omitempty"   json:"time,omitempty"`
	Flags      Flag          `yaml:"flags,omitempty"  json:"flags,omitempty"`
}

// Item returns the pointer with the given id.
func (e *PointerEvent) Item(id int32) (PointerItem, bool) {
	if e == nil {
		return PointerItem{}, false
	}
	for _, p := range e.Pointers {
		if p.ID == id {
			return p, true
		}
	}
	return PointerItem{}, false
}

// Current returns the pointer that triggered the action.
func (e *PointerEvent) Current() (PointerItem, bool) {
	if e == nil {
		return PointerItem{}, false
	}
	return e.Item(e.PointerID)
}

// SetItem replaces the pointer with the same id, appending it if absent.
func (e *PointerEvent) SetItem(item PointerItem) {
	for i := range e.Pointers {
		if e.Pointers[i].ID == item.ID {
			e.Pointers[i] = item
			return
		}
	}
	e.Pointers = append(e.Pointers, item)
}

// Valid reports whether the event carries enough data to be interpreted.
// Invalid events are forwarded unchanged by every node.
func (e *PointerEvent) Valid() bool {
	if e == nil || e.Action == PointerActionUnknown {
		return false
	}
	_, ok := e.Current()
	return ok
}

// Has reports whether flag f is set.
func (e *PointerEvent) Has(f Flag) bool {
	return e != nil && e.Flags&f != 0
}

// Clone returns a deep copy of the event.
func (e *PointerEvent) Clone() *PointerEvent {
	if e == nil {
		return nil
	}
	c := *e
	c.Pointers = append([]PointerItem(nil), e.Pointers...)
	return &c
}

// KeyAction is what happened to a key.
type KeyAction int

const (
	KeyActionUnknown KeyAction = iota
	KeyActionDown
	KeyActionUp
	KeyActionCancel
)

// KeyEvent is a keyboard event. Pressed lists every key held at the time of
// the event, including Code on a down action.
type KeyEvent struct {
	Device     SourceID  `yaml:"device"          json:"device"`
	Code       KeyCode   `yaml:"code"            json:"code"`
	Action     KeyAction `yaml:"action"          json:"action"`
	Pressed    []KeyCode `yaml:"pressed"         json:"pressed"`
	ActionTime time.Time `yaml:"time,omitempty"  json:"time,omitempty"`
	Flags      Flag      `yaml:"flags,omitempty" json:"flags,omitempty"`
}

// Valid reports whether the event carries a key and an action.
func (e *KeyEvent) Valid() bool {
	return e != nil && e.Code != KeyUnknown && e.Action != KeyActionUnknown
}

// Has reports whether flag f is set.
func (e *KeyEvent) Has(f Flag) bool {
	return e != nil && e.Flags&f != 0
}

// Clone returns a deep copy of the event.
func (e *KeyEvent) Clone() *KeyEvent {
	if e == nil {
		return nil
	}
	c := *e
	c.Pressed = append([]KeyCode(nil), e.Pressed...)
	return &c
}
