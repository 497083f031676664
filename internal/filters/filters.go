// Package filters holds the concrete transmitters that make up the pointer
// and key chains: gesture injection, magnification, touch exploration, key
// filtering for assistive services, mouse keys, screen touch timing and the
// terminal input sink.
package filters

import (
	"time"

	"github.com/mj1618/a11y-chain/internal/model"
)

// InjectedDevice is the source id carried by gestures injected on behalf of
// an assistive service.
const InjectedDevice model.SourceID = -1

// Node names as reported by chain.NameOf.
const (
	NameInjector        = "touch-injector"
	NameMouseKey        = "mouse-key"
	NameMouseKeyTracker = "mouse-key-tracker"
	NameScreenTouch     = "screen-touch"
	NameZoom            = "zoom"
	NameTouchGuider     = "touch-guider"
	NameKeyFilter       = "key-filter"
	NameSink            = "input-sink"
	NameRecorder        = "recorder"
)

// eventTime returns the event's timestamp, falling back to now.
func eventTime(at time.Time) time.Time {
	if at.IsZero() {
		return time.Now()
	}
	return at
}

// remaining is the number of contacts still down after ev.
func remaining(ev *model.PointerEvent) int {
	n := len(ev.Pointers)
	if ev.Action == model.PointerActionUp || ev.Action == model.PointerActionCancel {
		n--
	}
	if n < 0 {
		return 0
	}
	return n
}

func synthesize(src *model.PointerEvent, action model.PointerAction, item model.PointerItem, at time.Time) *model.PointerEvent {
	return &model.PointerEvent{
		Source:     src.Source,
		Device:     src.Device,
		Action:     action,
		PointerID:  item.ID,
		Pointers:   []model.PointerItem{item},
		ActionTime: at,
		Flags:      model.FlagSimulated,
	}
}
