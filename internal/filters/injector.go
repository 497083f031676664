package filters

import (
	"errors"
	"sync"
	"time"

	"github.com/mj1618/a11y-chain/internal/chain"
	"github.com/mj1618/a11y-chain/internal/model"
)

// DefaultStrokeGap separates consecutive strokes of one injected gesture. It
// keeps two taps from being read as a single long touch.
const DefaultStrokeGap = 50 * time.Millisecond

// ErrEmptyGesture is returned when a gesture has no strokes or a stroke has no
// points.
var ErrEmptyGesture = errors.New("gesture has no points")

// GesturePoint is one sample of an injected stroke, in screen coordinates.
type GesturePoint struct {
	X float64 `yaml:"x" json:"x"`
	Y float64 `yaml:"y" json:"y"`
}

// GesturePath is one finger stroke. A single point is a tap; longer paths are
// swept through evenly over Duration.
type GesturePath struct {
	Points   []GesturePoint `yaml:"points"             json:"points"`
	Duration time.Duration  `yaml:"duration,omitempty" json:"duration,omitempty"`
}

// GestureDone is called once per injected gesture with false when the gesture
// was cancelled before it finished.
type GestureDone func(completed bool)

type injection struct {
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

func (in *injection) cancel() { in.once.Do(func() { close(in.stop) }) }

// TouchEventInjector plays gestures on behalf of assistive services. Injected
// touches enter the chain right after the injector, flagged as simulated, on
// the InjectedDevice source. A new gesture or a real touch cancels the one in
// progress; a cancelled stroke is closed with a cancel event.
type TouchEventInjector struct {
	chain.Base

	gap time.Duration

	mu  sync.Mutex
	cur *injection
}

// NewTouchEventInjector returns an injector that waits gap between strokes.
// A zero gap selects DefaultStrokeGap.
func NewTouchEventInjector(gap time.Duration) *TouchEventInjector {
	if gap <= 0 {
		gap = DefaultStrokeGap
	}
	return &TouchEventInjector{Base: chain.Base{Kind: NameInjector}, gap: gap}
}

// InjectGesture cancels any gesture in progress and starts playing paths in
// order. It returns once playback has started; done, if not nil, is called
// from the playback goroutine when it ends.
func (t *TouchEventInjector) InjectGesture(done GestureDone, paths ...GesturePath) error {
	if len(paths) == 0 {
		return ErrEmptyGesture
	}
	for _, p := range paths {
		if len(p.Points) == 0 {
			return ErrEmptyGesture
		}
	}
	if t.Destroyed() {
		return chain.ErrNotLinked
	}
	in := &injection{stop: make(chan struct{}), done: make(chan struct{})}

	t.mu.Lock()
	prev := t.cur
	t.cur = in
	t.mu.Unlock()
	if prev != nil {
		prev.cancel()
		<-prev.done
	}

	paths = append([]GesturePath(nil), paths...)
	go t.play(in, paths, done)
	return nil
}

// Injecting reports whether a gesture is being played.
func (t *TouchEventInjector) Injecting() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cur != nil
}

// Cancel stops the gesture in progress, if any, and waits for it to end.
func (t *TouchEventInjector) Cancel() {
	t.mu.Lock()
	in := t.cur
	t.mu.Unlock()
	if in != nil {
		in.cancel()
		<-in.done
	}
}

func (t *TouchEventInjector) play(in *injection, paths []GesturePath, done GestureDone) {
	completed := t.run(in, paths)

	t.mu.Lock()
	if t.cur == in {
		t.cur = nil
	}
	t.mu.Unlock()
	close(in.done)

	text := "completed"
	if !completed {
		text = "cancelled"
	}
	t.OnAccessibilityEvent(model.AccessibilityEvent{
		Type:   model.EventGestureInjected,
		Device: InjectedDevice,
		Text:   text,
	})
	if done != nil {
		done(completed)
	}
}

func (t *TouchEventInjector) run(in *injection, paths []GesturePath) bool {
	wait := func(d time.Duration) bool {
		if d <= 0 {
			select {
			case <-in.stop:
				return false
			default:
				return true
			}
		}
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-in.stop:
			return false
		case <-timer.C:
			return true
		}
	}

	for i, path := range paths {
		if i > 0 && !wait(t.gap) {
			return false
		}
		if !wait(0) {
			return false
		}
		t.send(model.PointerActionDown, path.Points[0])
		var step time.Duration
		if n := len(path.Points); n > 1 {
			step = path.Duration / time.Duration(n-1)
		}
		last := path.Points[0]
		for _, pt := range path.Points[1:] {
			if !wait(step) {
				t.send(model.PointerActionCancel, last)
				return false
			}
			t.send(model.PointerActionMove, pt)
			last = pt
		}
		t.send(model.PointerActionUp, path.Points[len(path.Points)-1])
	}
	return true
}

func (t *TouchEventInjector) send(action model.PointerAction, pt GesturePoint) {
	now := time.Now()
	item := model.PointerItem{
		ID:       0,
		X:        pt.X,
		Y:        pt.Y,
		Pressed:  action == model.PointerActionDown || action == model.PointerActionMove,
		DownTime: now,
	}
	t.Emitter().EmitPointerEvent(&model.PointerEvent{
		Source:     model.SourceTouchscreen,
		Device:     InjectedDevice,
		Action:     action,
		PointerID:  item.ID,
		Pointers:   []model.PointerItem{item},
		ActionTime: now,
		Flags:      model.FlagSimulated,
	})
}

// OnPointerEvent cancels injection when a real finger touches the screen. The
// touch itself is passed on.
func (t *TouchEventInjector) OnPointerEvent(ev *model.PointerEvent) bool {
	if t.Destroyed() || !ev.Valid() || ev.Has(model.FlagSimulated) {
		return false
	}
	if ev.Source == model.SourceTouchscreen && ev.Action == model.PointerActionDown {
		t.mu.Lock()
		if t.cur != nil {
			t.cur.cancel()
		}
		t.mu.Unlock()
	}
	return false
}

// ClearEvents cancels injection when source is InjectedDevice.
func (t *TouchEventInjector) ClearEvents(source model.SourceID) {
	if source != InjectedDevice {
		return
	}
	t.mu.Lock()
	if t.cur != nil {
		t.cur.cancel()
	}
	t.mu.Unlock()
}

func (t *TouchEventInjector) DestroyEvents() {
	if !t.MarkDestroyed() {
		return
	}
	t.Cancel()
}
