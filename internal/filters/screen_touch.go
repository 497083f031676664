package filters

import (
	"math"
	"sync"
	"time"

	"github.com/mj1618/a11y-chain/internal/chain"
	"github.com/mj1618/a11y-chain/internal/model"
)

var clickResponseTimes = []time.Duration{0, 300 * time.Millisecond, 600 * time.Millisecond}

var ignoreRepeatClickTimes = []time.Duration{
	100 * time.Millisecond,
	400 * time.Millisecond,
	700 * time.Millisecond,
	1000 * time.Millisecond,
	1300 * time.Millisecond,
}

// ClickResponseTime maps a response level (0 short, 1 medium, 2 long) to the
// time a finger must rest before the touch is delivered. Unknown levels map
// to the shortest time.
func ClickResponseTime(level int) time.Duration {
	if level < 0 || level >= len(clickResponseTimes) {
		return clickResponseTimes[0]
	}
	return clickResponseTimes[level]
}

// IgnoreRepeatClickTime maps a level (0 shortest to 4 longest) to the window
// after a release during which a new touch is ignored.
func IgnoreRepeatClickTime(level int) time.Duration {
	if level < 0 || level >= len(ignoreRepeatClickTimes) {
		return ignoreRepeatClickTimes[0]
	}
	return ignoreRepeatClickTimes[level]
}

// ScreenTouchConfig configures a ScreenTouch node.
type ScreenTouchConfig struct {
	ClickResponseLevel int
	IgnoreRepeatClick  bool
	IgnoreRepeatLevel  int
	MoveThreshold      float64 // movement that delivers a held touch immediately
}

type screenTouchState struct {
	start      model.PointerItem
	startTime  time.Time
	beyond     bool
	downHeld   bool
	intercept  bool
	lastUp     time.Time
	haveUp     bool
	lastDownID int32
}

// ScreenTouch adapts touchscreen timing for users with tremor or limited
// dexterity. With a click response delay, a touch is held back until the
// finger has rested for the delay or moved past the threshold; shorter taps
// are dropped. With ignore-repeat-click, a touch starting within the window
// after the previous release is dropped along with its moves and release.
type ScreenTouch struct {
	chain.Base

	responseDelay time.Duration
	ignoreRepeat  bool
	ignoreWindow  time.Duration
	threshold     float64

	mu      sync.Mutex
	devices map[model.SourceID]*screenTouchState
}

// NewScreenTouch returns a ScreenTouch using cfg.
func NewScreenTouch(cfg ScreenTouchConfig) *ScreenTouch {
	threshold := cfg.MoveThreshold
	if threshold <= 0 {
		threshold = 36
	}
	return &ScreenTouch{
		Base:          chain.Base{Kind: NameScreenTouch},
		responseDelay: ClickResponseTime(cfg.ClickResponseLevel),
		ignoreRepeat:  cfg.IgnoreRepeatClick,
		ignoreWindow:  IgnoreRepeatClickTime(cfg.IgnoreRepeatLevel),
		threshold:     threshold,
		devices:       map[model.SourceID]*screenTouchState{},
	}
}

func (s *ScreenTouch) delaying() bool { return s.responseDelay > 0 }

func (s *ScreenTouch) OnPointerEvent(ev *model.PointerEvent) bool {
	if s.Destroyed() || !ev.Valid() || ev.Source != model.SourceTouchscreen || ev.Has(model.FlagSimulated) {
		return false
	}
	if !s.delaying() && !s.ignoreRepeat {
		return false
	}
	var held *model.PointerEvent
	s.mu.Lock()
	if s.devices == nil {
		s.mu.Unlock()
		return false
	}
	st, ok := s.devices[ev.Device]
	if !ok {
		st = &screenTouchState{lastDownID: -1}
		s.devices[ev.Device] = st
	}
	consumed := s.handle(st, ev, &held)
	s.mu.Unlock()

	if held != nil {
		s.Emitter().EmitPointerEvent(held)
	}
	return consumed
}

func (s *ScreenTouch) handle(st *screenTouchState, ev *model.PointerEvent, held **model.PointerEvent) bool {
	p, _ := ev.Current()
	at := eventTime(ev.ActionTime)

	switch ev.Action {
	case model.PointerActionCancel:
		st.beyond, st.intercept, st.downHeld = false, false, false
		return false

	case model.PointerActionDown:
		if len(ev.Pointers) > 1 {
			return true
		}
		if s.ignoreRepeat && st.haveUp && at.Sub(st.lastUp) < s.ignoreWindow {
			st.intercept = true
			return true
		}
		st.intercept = false
		if s.ignoreRepeat && st.lastDownID == -1 {
			st.lastDownID = ev.PointerID
		}
		if s.delaying() {
			st.start, st.startTime = p, at
			st.beyond = false
			st.downHeld = true
			return true
		}
		return false

	case model.PointerActionMove:
		if len(ev.Pointers) > 1 {
			return true
		}
		if st.intercept {
			return true
		}
		if !s.delaying() || st.beyond {
			return false
		}
		if math.Hypot(p.X-st.start.X, p.Y-st.start.Y) > s.threshold {
			ev.Action = model.PointerActionDown
			st.beyond, st.downHeld = true, false
			return false
		}
		if at.Sub(st.startTime) < s.responseDelay {
			return true
		}
		if st.downHeld {
			ev.Action = model.PointerActionDown
			st.downHeld = false
		}
		return false

	case model.PointerActionUp:
		if s.ignoreRepeat && ev.PointerID == st.lastDownID {
			st.lastDownID = -1
		}
		if st.intercept {
			st.intercept = false
			return true
		}
		if s.ignoreRepeat {
			st.lastUp, st.haveUp = at, true
		}
		if !s.delaying() || st.beyond {
			st.beyond = false
			return false
		}
		if at.Sub(st.startTime) < s.responseDelay {
			st.downHeld = false
			return true
		}
		if st.downHeld {
			down := synthesize(ev, model.PointerActionDown, st.start, at)
			down.Flags = ev.Flags
			*held = down
			st.downHeld = false
		}
		return false
	}
	return false
}

// ClearEvents forgets held touches and repeat-click timing for source.
func (s *ScreenTouch) ClearEvents(source model.SourceID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.devices, source)
}

func (s *ScreenTouch) DestroyEvents() {
	if !s.MarkDestroyed() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.devices = nil
}
