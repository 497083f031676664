package model

import "time"

// EventType classifies an outbound accessibility notification.
type EventType string

const (
	EventGesture               EventType = "gesture"
	EventTouchExplorationBegin EventType = "touch_exploration_begin"
	EventTouchExplorationEnd   EventType = "touch_exploration_end"
	EventTouchGuideBegin       EventType = "touch_guide_begin"
	EventTouchGuideEnd         EventType = "touch_guide_end"
	EventMagnificationChanged  EventType = "magnification_changed"
	EventGestureInjected       EventType = "gesture_injected"
	EventKeyHandled            EventType = "key_handled"
)

// GestureType names a recognized touch gesture.
type GestureType string

const (
	GestureNone               GestureType = ""
	GestureSwipeUp            GestureType = "swipe_up"
	GestureSwipeDown          GestureType = "swipe_down"
	GestureSwipeLeft          GestureType = "swipe_left"
	GestureSwipeRight         GestureType = "swipe_right"
	GestureSwipeUpThenDown    GestureType = "swipe_up_then_down"
	GestureSwipeUpThenLeft    GestureType = "swipe_up_then_left"
	GestureSwipeUpThenRight   GestureType = "swipe_up_then_right"
	GestureSwipeDownThenUp    GestureType = "swipe_down_then_up"
	GestureSwipeDownThenLeft  GestureType = "swipe_down_then_left"
	GestureSwipeDownThenRight GestureType = "swipe_down_then_right"
	GestureSwipeLeftThenUp    GestureType = "swipe_left_then_up"
	GestureSwipeLeftThenDown  GestureType = "swipe_left_then_down"
	GestureSwipeLeftThenRight GestureType = "swipe_left_then_right"
	GestureSwipeRightThenUp   GestureType = "swipe_right_then_up"
	GestureSwipeRightThenDown GestureType = "swipe_right_then_down"
	GestureSwipeRightThenLeft GestureType = "swipe_right_then_left"
	GestureDoubleTap          GestureType = "double_tap"
	GestureDoubleTapLongPress GestureType = "double_tap_long_press"
	GestureTripleTap          GestureType = "triple_tap"

	GestureTwoFingerSingleTap       GestureType = "two_finger_single_tap"
	GestureTwoFingerDoubleTap       GestureType = "two_finger_double_tap"
	GestureTwoFingerTripleTap       GestureType = "two_finger_triple_tap"
	GestureTwoFingerDoubleTapHold   GestureType = "two_finger_double_tap_and_hold"
	GestureTwoFingerTripleTapHold   GestureType = "two_finger_triple_tap_and_hold"
	GestureThreeFingerSingleTap     GestureType = "three_finger_single_tap"
	GestureThreeFingerDoubleTap     GestureType = "three_finger_double_tap"
	GestureThreeFingerTripleTap     GestureType = "three_finger_triple_tap"
	GestureThreeFingerDoubleTapHold GestureType = "three_finger_double_tap_and_hold"
	GestureThreeFingerTripleTapHold GestureType = "three_finger_triple_tap_and_hold"
	GestureFourFingerSingleTap      GestureType = "four_finger_single_tap"
	GestureFourFingerDoubleTap      GestureType = "four_finger_double_tap"
	GestureFourFingerTripleTap      GestureType = "four_finger_triple_tap"
	GestureFourFingerDoubleTapHold  GestureType = "four_finger_double_tap_and_hold"
	GestureFourFingerTripleTapHold  GestureType = "four_finger_triple_tap_and_hold"
)

// AccessibilityEvent is an outbound semantic notification produced by a node
// and delivered to the chain's observer, never to the next node.
type AccessibilityEvent struct {
	Type      EventType   `yaml:"type"              json:"type"`
	Gesture   GestureType `yaml:"gesture,omitempty" json:"gesture,omitempty"`
	Source    string      `yaml:"source"            json:"source"` // Name of the emitting node
	Device    SourceID    `yaml:"device,omitempty"  json:"device,omitempty"`
	Timestamp time.Time   `yaml:"ts"                json:"ts"`
	X         float64     `yaml:"x,omitempty"       json:"x,omitempty"`
	Y         float64     `yaml:"y,omitempty"       json:"y,omitempty"`
	Scale     float64     `yaml:"scale,omitempty"   json:"scale,omitempty"`
	Text      string      `yaml:"text,omitempty"    json:"text,omitempty"`
}
