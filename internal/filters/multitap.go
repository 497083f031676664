package filters

import (
	"time"

	"github.com/mj1618/a11y-chain/internal/model"
)

const (
	maxMultiTaps    = 3
	maxMultiFingers = 4
)

// multiTaps is indexed by [taps-1][fingers-2].
var multiTaps = [maxMultiTaps][maxMultiFingers - 1]model.GestureType{
	{model.GestureTwoFingerSingleTap, model.GestureThreeFingerSingleTap, model.GestureFourFingerSingleTap},
	{model.GestureTwoFingerDoubleTap, model.GestureThreeFingerDoubleTap, model.GestureFourFingerDoubleTap},
	{model.GestureTwoFingerTripleTap, model.GestureThreeFingerTripleTap, model.GestureFourFingerTripleTap},
}

// multiHolds is indexed by [earlier taps][fingers-2]. A first tap that is
// held is not a gesture.
var multiHolds = [maxMultiTaps][maxMultiFingers - 1]model.GestureType{
	{},
	{model.GestureTwoFingerDoubleTapHold, model.GestureThreeFingerDoubleTapHold, model.GestureFourFingerDoubleTapHold},
	{model.GestureTwoFingerTripleTapHold, model.GestureThreeFingerTripleTapHold, model.GestureFourFingerTripleTapHold},
}

// MultiTap is a recognized multi-finger gesture and where its fingers met.
type MultiTap struct {
	Gesture model.GestureType
	X, Y    float64
}

// MultiTapRecognizer counts taps made with two to four fingers on one input
// source. It is fed every event of the source, single-finger strokes
// included. Like Recognizer it holds no locks and keeps no timers: a tap that
// may still be followed by another stays pending until the next stroke shows
// it is over or the caller calls Expire.
type MultiTapRecognizer struct {
	cfg RecognizerConfig

	down      bool
	lifted    bool
	cancelled bool
	held      bool
	downTime  time.Time
	fingers   int
	starts    map[int32]point

	taps   int
	target int
	lastUp time.Time
	center point
}

// NewMultiTapRecognizer returns a MultiTapRecognizer using cfg.
func NewMultiTapRecognizer(cfg RecognizerConfig) *MultiTapRecognizer {
	return &MultiTapRecognizer{cfg: cfg, starts: map[int32]point{}}
}

// Pending reports whether a finished tap sequence waits for another tap.
func (r *MultiTapRecognizer) Pending() bool { return r.taps > 0 && !r.down }

// Feed processes one touch event and returns the gestures it completed,
// oldest first.
func (r *MultiTapRecognizer) Feed(ev *model.PointerEvent, at time.Time) []MultiTap {
	switch ev.Action {
	case model.PointerActionDown:
		return r.fingerDown(ev, at)
	case model.PointerActionMove:
		return r.move(ev, at)
	case model.PointerActionUp:
		return r.fingerUp(ev, at)
	case model.PointerActionCancel:
		r.Clear()
	}
	return nil
}

// Expire ends the pending tap sequence. It reports false when nothing was
// pending.
func (r *MultiTapRecognizer) Expire() (MultiTap, bool) {
	if r.taps == 0 {
		return MultiTap{}, false
	}
	t := MultiTap{Gesture: multiTaps[r.taps-1][r.target-2], X: r.center.x, Y: r.center.y}
	r.taps = 0
	return t, true
}

// Clear forgets the current stroke and any pending taps.
func (r *MultiTapRecognizer) Clear() {
	r.down = false
	r.taps = 0
	clear(r.starts)
}

func (r *MultiTapRecognizer) fingerDown(ev *model.PointerEvent, at time.Time) []MultiTap {
	var out []MultiTap
	if !r.down {
		if r.taps > 0 && at.Sub(r.lastUp) > r.cfg.DoubleTapTimeout {
			t, _ := r.Expire()
			out = append(out, t)
		}
		r.down = true
		r.lifted, r.cancelled, r.held = false, false, false
		r.downTime = at
		r.fingers = 0
		clear(r.starts)
	}
	if p, ok := ev.Current(); ok {
		r.starts[p.ID] = point{p.X, p.Y}
	}
	r.fingers = max(r.fingers, len(ev.Pointers))
	if r.fingers > 1 && (r.lifted || r.fingers > maxMultiFingers || at.Sub(r.downTime) > r.cfg.FingerDownWindow) {
		r.cancelled = true
	}
	return out
}

func (r *MultiTapRecognizer) move(ev *model.PointerEvent, at time.Time) []MultiTap {
	if !r.down || r.cancelled || r.held || r.fingers < 2 {
		return nil
	}
	limit := r.cfg.TouchSlop * float64(len(ev.Pointers))
	for _, it := range ev.Pointers {
		if s, ok := r.starts[it.ID]; ok && s.dist(point{it.X, it.Y}) >= limit {
			r.cancelled = true
			return nil
		}
	}
	if at.Sub(r.downTime) > r.cfg.LongPressTimeout {
		return r.hold()
	}
	return nil
}

func (r *MultiTapRecognizer) fingerUp(ev *model.PointerEvent, at time.Time) []MultiTap {
	if !r.down {
		return nil
	}
	r.lifted = true
	if remaining(ev) > 0 {
		return nil
	}
	r.down = false
	switch {
	case r.held:
		return nil
	case r.cancelled || r.fingers < 2:
		r.taps = 0
		return nil
	case at.Sub(r.downTime) > r.cfg.LongPressTimeout:
		return r.hold()
	}
	out := r.join()
	r.taps++
	r.target, r.lastUp, r.center = r.fingers, at, r.centroid()
	if r.taps == maxMultiTaps {
		t, _ := r.Expire()
		out = append(out, t)
	}
	return out
}

func (r *MultiTapRecognizer) hold() []MultiTap {
	r.held = true
	out := r.join()
	if g := multiHolds[r.taps][r.fingers-2]; g != model.GestureNone {
		c := r.centroid()
		out = append(out, MultiTap{Gesture: g, X: c.x, Y: c.y})
	}
	r.taps = 0
	return out
}

// join ends the earlier tap sequence unless the current stroke continues it:
// same finger count, quick enough and close enough.
func (r *MultiTapRecognizer) join() []MultiTap {
	if r.taps == 0 {
		return nil
	}
	gap := r.downTime.Sub(r.lastUp)
	if r.fingers == r.target && gap >= r.cfg.MinDoubleTapTime && gap <= r.cfg.DoubleTapTimeout &&
		r.centroid().dist(r.center) < r.cfg.DoubleTapSlop {
		return nil
	}
	t, _ := r.Expire()
	return []MultiTap{t}
}

func (r *MultiTapRecognizer) centroid() point {
	var c point
	if len(r.starts) == 0 {
		return c
	}
	for _, p := range r.starts {
		c.x += p.x
		c.y += p.y
	}
	n := float64(len(r.starts))
	return point{c.x / n, c.y / n}
}
