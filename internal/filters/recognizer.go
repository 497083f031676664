package filters

import (
	"math"
	"time"

	"github.com/mj1618/a11y-chain/internal/model"
)

// RecognizerConfig tunes single-finger gesture recognition.
type RecognizerConfig struct {
	// MinSwipeDistance is how far the finger must travel from the last
	// anchor point before a stroke counts as a gesture.
	MinSwipeDistance float64
	// SegmentDistance is the minimum movement between recorded path points.
	SegmentDistance float64
	// DoubleTapTimeout is the longest gap between the first up and the second down.
	DoubleTapTimeout time.Duration
	// MinDoubleTapTime is the shortest such gap; faster taps are treated as bounces.
	MinDoubleTapTime time.Duration
	// DoubleTapSlop is the maximum distance between the two taps.
	DoubleTapSlop float64
	// LongPressTimeout turns a held second tap into a double-tap long press.
	LongPressTimeout time.Duration
	// StartTimeout cancels recognition if the finger rests this long without
	// starting a gesture, handing the touch over to exploration.
	StartTimeout time.Duration
	// StrokeTimeout cancels a started gesture that stalls this long.
	StrokeTimeout time.Duration
	// FingerDownWindow is how soon after the first finger the others must
	// land for a multi-finger tap.
	FingerDownWindow time.Duration
	// TouchSlop is the per-finger movement allowed during a multi-finger tap.
	TouchSlop float64
}

// DefaultRecognizerConfig returns timings matching common screen readers.
func DefaultRecognizerConfig() RecognizerConfig {
	return RecognizerConfig{
		MinSwipeDistance: 75,
		SegmentDistance:  20,
		DoubleTapTimeout: 300 * time.Millisecond,
		MinDoubleTapTime: 40 * time.Millisecond,
		DoubleTapSlop:    100,
		LongPressTimeout: 400 * time.Millisecond,
		StartTimeout:     150 * time.Millisecond,
		StrokeTimeout:    300 * time.Millisecond,
		FingerDownWindow: 100 * time.Millisecond,
		TouchSlop:        8,
	}
}

// Outcome is the result of feeding one touch sample to a Recognizer.
type Outcome int

const (
	OutcomePending   Outcome = iota // still undecided
	OutcomeStarted                  // the stroke became a gesture
	OutcomeExplore                  // recognition gave up; the touch is exploration
	OutcomeTap                      // a single tap ended
	OutcomeDoubleTap                // the second tap of a double tap ended
	OutcomeLongPress                // the second tap was held
	OutcomeGesture                  // a swipe ended; see Result.Gesture
	OutcomeCancelled                // the stroke could not be classified
)

// Result is returned by Recognizer methods.
type Result struct {
	Outcome Outcome
	Gesture model.GestureType
}

type point struct{ x, y float64 }

func (p point) dist(q point) float64 { return math.Hypot(p.x-q.x, p.y-q.y) }

// Recognizer classifies the path of one finger on one input source. It holds
// no locks; callers serialize access.
type Recognizer struct {
	cfg RecognizerConfig

	recognizing bool
	started     bool
	route       []point
	anchor      point
	anchorTime  time.Time
	prev        point
	downTime    time.Time

	tapDown   point
	lastUp    time.Time
	haveUp    bool
	secondTap bool
}

// NewRecognizer returns a Recognizer using cfg.
func NewRecognizer(cfg RecognizerConfig) *Recognizer {
	return &Recognizer{cfg: cfg}
}

// Recognizing reports whether a stroke is still being classified.
func (r *Recognizer) Recognizing() bool { return r.recognizing }

// Started reports whether the current stroke has become a gesture.
func (r *Recognizer) Started() bool { return r.started }

// Down starts a stroke.
func (r *Recognizer) Down(x, y float64, at time.Time) Result {
	p := point{x, y}
	r.secondTap = false
	if r.haveUp {
		gap := at.Sub(r.lastUp)
		if gap >= r.cfg.MinDoubleTapTime && gap <= r.cfg.DoubleTapTimeout && p.dist(r.tapDown) < r.cfg.DoubleTapSlop {
			r.secondTap = true
		}
	}
	r.recognizing = true
	r.started = false
	r.route = append(r.route[:0], p)
	r.anchor, r.anchorTime = p, at
	r.prev = p
	r.downTime = at
	if !r.secondTap {
		r.tapDown = p
	}
	return Result{}
}

// Move extends the stroke.
func (r *Recognizer) Move(x, y float64, at time.Time) Result {
	if !r.recognizing {
		return Result{}
	}
	p := point{x, y}
	res := Result{}
	if p.dist(r.anchor) > r.cfg.MinSwipeDistance {
		r.anchor, r.anchorTime = p, at
		r.secondTap = false
		r.haveUp = false
		if !r.started {
			r.started = true
			res.Outcome = OutcomeStarted
		}
	} else {
		limit := r.cfg.StartTimeout
		if r.started {
			limit = r.cfg.StrokeTimeout
		}
		if r.secondTap && !r.started {
			if at.Sub(r.downTime) > r.cfg.LongPressTimeout {
				r.reset()
				return Result{Outcome: OutcomeLongPress, Gesture: model.GestureDoubleTapLongPress}
			}
		} else if at.Sub(r.anchorTime) > limit {
			wasStarted := r.started
			r.reset()
			if wasStarted {
				return Result{Outcome: OutcomeCancelled}
			}
			return Result{Outcome: OutcomeExplore}
		}
	}
	if math.Abs(p.x-r.prev.x) >= r.cfg.SegmentDistance || math.Abs(p.y-r.prev.y) >= r.cfg.SegmentDistance {
		r.prev = p
		r.route = append(r.route, p)
	}
	return res
}

// Up ends the stroke.
func (r *Recognizer) Up(x, y float64, at time.Time) Result {
	if !r.recognizing {
		return Result{}
	}
	p := point{x, y}
	switch {
	case r.secondTap:
		held := at.Sub(r.downTime) > r.cfg.LongPressTimeout
		r.reset()
		r.haveUp = false
		if held {
			return Result{Outcome: OutcomeLongPress, Gesture: model.GestureDoubleTapLongPress}
		}
		return Result{Outcome: OutcomeDoubleTap, Gesture: model.GestureDoubleTap}
	case r.started:
		if math.Abs(p.x-r.prev.x) >= r.cfg.SegmentDistance || math.Abs(p.y-r.prev.y) >= r.cfg.SegmentDistance {
			r.route = append(r.route, p)
		}
		g := classify(r.route, r.cfg.MinSwipeDistance/2)
		r.reset()
		if g == model.GestureNone {
			return Result{Outcome: OutcomeCancelled}
		}
		return Result{Outcome: OutcomeGesture, Gesture: g}
	}
	r.reset()
	if at.Sub(r.downTime) > r.cfg.LongPressTimeout {
		r.haveUp = false
		return Result{Outcome: OutcomeExplore}
	}
	r.lastUp, r.haveUp = at, true
	return Result{Outcome: OutcomeTap}
}

// Clear forgets the current stroke and any pending first tap.
func (r *Recognizer) Clear() {
	r.reset()
	r.haveUp = false
	r.secondTap = false
}

func (r *Recognizer) reset() {
	r.recognizing = false
	r.started = false
	r.route = r.route[:0]
}

type direction int

const (
	dirUp direction = iota
	dirDown
	dirLeft
	dirRight
)

var swipes = [4]model.GestureType{
	model.GestureSwipeUp, model.GestureSwipeDown, model.GestureSwipeLeft, model.GestureSwipeRight,
}

// twoStroke is indexed by [first][second] direction.
var twoStroke = [4][4]model.GestureType{
	{model.GestureSwipeUp, model.GestureSwipeUpThenDown, model.GestureSwipeUpThenLeft, model.GestureSwipeUpThenRight},
	{model.GestureSwipeDownThenUp, model.GestureSwipeDown, model.GestureSwipeDownThenLeft, model.GestureSwipeDownThenRight},
	{model.GestureSwipeLeftThenUp, model.GestureSwipeLeftThenDown, model.GestureSwipeLeft, model.GestureSwipeLeftThenRight},
	{model.GestureSwipeRightThenUp, model.GestureSwipeRightThenDown, model.GestureSwipeRightThenLeft, model.GestureSwipeRight},
}

// swipeDirection picks the dominant axis. Screen Y grows downwards.
func swipeDirection(from, to point) direction {
	dx, dy := to.x-from.x, to.y-from.y
	if math.Abs(dx) > math.Abs(dy) {
		if dx > 0 {
			return dirRight
		}
		return dirLeft
	}
	if dy > 0 {
		return dirDown
	}
	return dirUp
}

// classify splits the route into straight strokes and maps one or two strokes
// to a swipe. Strokes shorter than minStroke are treated as jitter.
func classify(route []point, minStroke float64) model.GestureType {
	dirs := strokes(route, minStroke)
	switch len(dirs) {
	case 1:
		return swipes[dirs[0]]
	case 2:
		return twoStroke[dirs[0]][dirs[1]]
	}
	return model.GestureNone
}

func strokes(route []point, minStroke float64) []direction {
	var dirs []direction
	var lens []float64
	for i := 1; i < len(route); i++ {
		l := route[i].dist(route[i-1])
		if l == 0 {
			continue
		}
		d := swipeDirection(route[i-1], route[i])
		if n := len(dirs); n > 0 && dirs[n-1] == d {
			lens[n-1] += l
			continue
		}
		dirs = append(dirs, d)
		lens = append(lens, l)
	}
	var out []direction
	for i, d := range dirs {
		if lens[i] < minStroke {
			continue
		}
		if n := len(out); n > 0 && out[n-1] == d {
			continue
		}
		out = append(out, d)
	}
	return out
}
