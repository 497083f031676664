package interceptor

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mj1618/a11y-chain/internal/chain"
	"github.com/mj1618/a11y-chain/internal/filters"
	"github.com/mj1618/a11y-chain/internal/model"
	"github.com/mj1618/a11y-chain/internal/platform"
)

type events struct {
	mu  sync.Mutex
	got []model.AccessibilityEvent
}

func (e *events) OnAccessibilityEvent(ev model.AccessibilityEvent) {
	e.mu.Lock()
	e.got = append(e.got, ev)
	e.mu.Unlock()
}

func (e *events) all() []model.AccessibilityEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]model.AccessibilityEvent(nil), e.got...)
}

func newTestInterceptor(t *testing.T) (*Interceptor, *platform.Recording, *events) {
	t.Helper()
	out := platform.NewRecording()
	obs := &events{}
	i, err := New(out, obs, DefaultOptions(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { i.Close() })
	return i, out, obs
}

func touchDown(dev model.SourceID, x, y float64) *model.PointerEvent {
	return &model.PointerEvent{
		Source:   model.SourceTouchscreen,
		Device:   dev,
		Action:   model.PointerActionDown,
		Pointers: []model.PointerItem{{X: x, Y: y, Pressed: true}},
	}
}

func keyDown(code model.KeyCode) *model.KeyEvent {
	return &model.KeyEvent{Device: 1, Code: code, Action: model.KeyActionDown, Pressed: []model.KeyCode{code}}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestNew_RejectsNilInjector(t *testing.T) {
	if _, err := New(nil, nil, DefaultOptions(), nil); !errors.Is(err, chain.ErrNilTransmitter) {
		t.Errorf("err = %v", err)
	}
}

func TestInterceptor_NoFeaturesPassesThrough(t *testing.T) {
	i, out, _ := newTestInterceptor(t)

	ev := touchDown(1, 10, 20)
	if i.ProcessPointerEvent(ev) {
		t.Fatal("pointer event consumed with no features")
	}
	if ev.ActionTime.IsZero() {
		t.Error("action time not stamped")
	}
	if i.ProcessKeyEvent(keyDown(model.KeyA)) {
		t.Fatal("key event consumed with no features")
	}
	i.MoveMouse(3, 4)

	if len(out.Pointers()) != 1 || len(out.Keys()) != 1 || len(out.Moves()) != 1 {
		t.Errorf("platform saw %d pointers, %d keys, %d moves", len(out.Pointers()), len(out.Keys()), len(out.Moves()))
	}
	if got, want := i.Stats(), (filters.SinkStats{Delivered: 2, Moves: 1}); got != want {
		t.Errorf("stats = %+v, want %+v", got, want)
	}
}

func TestInterceptor_IgnoresReinjectedEvents(t *testing.T) {
	i, out, _ := newTestInterceptor(t)

	ev := touchDown(1, 0, 0)
	ev.Flags = model.FlagNoIntercept
	if i.ProcessPointerEvent(ev) || i.ProcessPointerEvent(nil) {
		t.Error("reinjected or nil pointer event reported consumed")
	}
	k := keyDown(model.KeyA)
	k.Flags = model.FlagNoIntercept
	if i.ProcessKeyEvent(k) || i.ProcessKeyEvent(nil) {
		t.Error("reinjected or nil key event reported consumed")
	}
	if len(out.Pointers())+len(out.Keys()) != 0 {
		t.Error("reinjected events reached the platform again")
	}
}

func TestInterceptor_ChainLayout(t *testing.T) {
	tests := []struct {
		name        string
		mask        Feature
		wantPointer []string
		wantKey     []string
	}{
		{
			name:        "none",
			wantPointer: []string{filters.NameSink},
			wantKey:     []string{filters.NameSink},
		},
		{
			name:        "magnification and exploration",
			mask:        ScreenMagnification | TouchExploration,
			wantPointer: []string{filters.NameZoom, filters.NameTouchGuider, filters.NameSink},
			wantKey:     []string{filters.NameSink},
		},
		{
			name: "everything",
			mask: ScreenMagnification | TouchExploration | FilterKeyEvents | InjectTouchEvents | MouseKey | ScreenTouch,
			wantPointer: []string{
				filters.NameInjector, filters.NameMouseKeyTracker, filters.NameScreenTouch,
				filters.NameZoom, filters.NameTouchGuider, filters.NameSink,
			},
			wantKey: []string{filters.NameMouseKey, filters.NameKeyFilter, filters.NameSink},
		},
		{
			name:        "autoclick is reserved",
			mask:        MouseAutoclick,
			wantPointer: []string{filters.NameSink},
			wantKey:     []string{filters.NameSink},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			i, _, _ := newTestInterceptor(t)
			if _, err := i.SetAvailableFunctions(tt.mask); err != nil {
				t.Fatal(err)
			}
			infos := i.Chains()
			if len(infos) != 2 {
				t.Fatalf("chains = %+v", infos)
			}
			if !equal(infos[0].Nodes, tt.wantPointer) {
				t.Errorf("pointer chain = %v, want %v", infos[0].Nodes, tt.wantPointer)
			}
			if !equal(infos[1].Nodes, tt.wantKey) {
				t.Errorf("key chain = %v, want %v", infos[1].Nodes, tt.wantKey)
			}
			if i.Features() != tt.mask {
				t.Errorf("features = %s, want %s", i.Features(), tt.mask)
			}
		})
	}
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestInterceptor_SetAvailableFunctionsIsNoopWhenUnchanged(t *testing.T) {
	i, _, _ := newTestInterceptor(t)

	changed, err := i.SetAvailableFunctions(0)
	if err != nil || changed {
		t.Fatalf("empty mask on a fresh interceptor: changed=%v err=%v", changed, err)
	}
	if changed, _ = i.SetAvailableFunctions(TouchExploration); !changed {
		t.Fatal("new mask did not rebuild")
	}
	if changed, _ = i.SetAvailableFunctions(TouchExploration); changed {
		t.Error("same mask rebuilt")
	}
	opts := DefaultOptions()
	opts.StrokeGap = time.Second
	if changed, _ = i.Configure(TouchExploration, opts); !changed {
		t.Error("new options did not rebuild")
	}
}

func TestInterceptor_RebuildChangesRouting(t *testing.T) {
	i, out, _ := newTestInterceptor(t)

	if _, err := i.SetAvailableFunctions(TouchExploration); err != nil {
		t.Fatal(err)
	}
	if !i.ProcessPointerEvent(touchDown(1, 100, 100)) {
		t.Fatal("touch exploration should hold a single finger down")
	}
	if len(out.Pointers()) != 0 {
		t.Fatal("held touch reached the platform")
	}

	if _, err := i.SetAvailableFunctions(0); err != nil {
		t.Fatal(err)
	}
	if i.ProcessPointerEvent(touchDown(1, 100, 100)) {
		t.Error("pointer consumed after exploration was disabled")
	}
	if len(out.Pointers()) != 1 {
		t.Errorf("platform saw %d pointers, want 1", len(out.Pointers()))
	}
}

func TestInterceptor_InjectGesture(t *testing.T) {
	i, out, obs := newTestInterceptor(t)

	tap := filters.GesturePath{Points: []filters.GesturePoint{{X: 5, Y: 5}}}
	if err := i.InjectGesture(nil, tap); !errors.Is(err, ErrFeatureDisabled) {
		t.Fatalf("disabled injection: err = %v", err)
	}

	if _, err := i.SetAvailableFunctions(InjectTouchEvents); err != nil {
		t.Fatal(err)
	}
	done := make(chan bool, 1)
	if err := i.InjectGesture(func(ok bool) { done <- ok }, tap); err != nil {
		t.Fatal(err)
	}
	select {
	case ok := <-done:
		if !ok {
			t.Fatal("gesture cancelled")
		}
	case <-time.After(time.Second):
		t.Fatal("gesture never finished")
	}
	if n := len(out.Pointers()); n != 2 {
		t.Errorf("platform saw %d pointers, want down and up", n)
	}
	waitFor(t, "gesture event", func() bool { return len(obs.all()) == 1 })
	if ev := obs.all()[0]; ev.Type != model.EventGestureInjected {
		t.Errorf("event = %+v", ev)
	}

	if err := i.InjectGesture(nil); !errors.Is(err, filters.ErrEmptyGesture) {
		t.Errorf("empty gesture: err = %v", err)
	}
}

type answering struct {
	name string
	mu   sync.Mutex
	seqs []uint64
}

func (a *answering) Name() string { return a.name }

func (a *answering) OnKeyPressEvent(_ *model.KeyEvent, seq uint64) {
	a.mu.Lock()
	a.seqs = append(a.seqs, seq)
	a.mu.Unlock()
}

func (a *answering) last() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.seqs[len(a.seqs)-1]
}

func TestInterceptor_KeySubscribersSurviveRebuild(t *testing.T) {
	i, out, obs := newTestInterceptor(t)
	reader := &answering{name: "reader"}
	i.SubscribeKeys(reader)

	if i.SetKeyResult(1, true) {
		t.Error("result accepted with no key filter")
	}
	if _, err := i.SetAvailableFunctions(FilterKeyEvents); err != nil {
		t.Fatal(err)
	}
	if !i.ProcessKeyEvent(keyDown(model.KeyA)) {
		t.Fatal("key not offered to the subscriber")
	}
	if !i.SetKeyResult(reader.last(), false) {
		t.Fatal("answer rejected")
	}
	if n := len(out.Keys()); n != 1 {
		t.Errorf("declined key reached the platform %d times", n)
	}

	if _, err := i.SetAvailableFunctions(FilterKeyEvents | MouseKey); err != nil {
		t.Fatal(err)
	}
	i.ProcessKeyEvent(keyDown(model.KeyEnter))
	if !i.SetKeyResult(reader.last(), true) {
		t.Fatal("answer rejected after rebuild")
	}
	if n := len(out.Keys()); n != 1 {
		t.Errorf("handled key reached the platform")
	}
	if evs := obs.all(); len(evs) != 1 || evs[0].Type != model.EventKeyHandled || evs[0].Text != "enter" {
		t.Errorf("events = %+v", evs)
	}

	i.UnsubscribeKeys("reader")
	if i.ProcessKeyEvent(keyDown(model.KeyA)) {
		t.Error("key consumed after the subscriber left")
	}
}

func TestInterceptor_MouseKeyMovesCursor(t *testing.T) {
	i, out, _ := newTestInterceptor(t)
	if _, err := i.SetAvailableFunctions(MouseKey); err != nil {
		t.Fatal(err)
	}
	if !i.ProcessKeyEvent(keyDown(model.KeyNumpad6)) {
		t.Fatal("numpad 6 not consumed")
	}
	moves := out.Moves()
	if len(moves) != 1 || moves[0] != [2]int32{filters.MouseKeyStep, 0} {
		t.Errorf("moves = %v", moves)
	}
}

func TestInterceptor_ShieldSurvivesRebuild(t *testing.T) {
	i, _, _ := newTestInterceptor(t)
	if _, ok := i.Viewport(); ok {
		t.Fatal("viewport reported without magnification")
	}
	i.ShieldZoomGesture(true)
	if _, err := i.SetAvailableFunctions(ScreenMagnification); err != nil {
		t.Fatal(err)
	}

	start := time.Now()
	for n := 0; n < 3; n++ {
		at := start.Add(time.Duration(n) * 100 * time.Millisecond)
		down := touchDown(1, 960, 540)
		down.ActionTime = at
		i.ProcessPointerEvent(down)
		up := touchDown(1, 960, 540)
		up.Action = model.PointerActionUp
		up.ActionTime = at.Add(50 * time.Millisecond)
		i.ProcessPointerEvent(up)
	}
	vp, ok := i.Viewport()
	if !ok || vp.Scale != 1 {
		t.Errorf("shielded magnifier zoomed: %+v", vp)
	}
}

func TestInterceptor_ClearEvents(t *testing.T) {
	i, out, _ := newTestInterceptor(t)
	if _, err := i.SetAvailableFunctions(FilterKeyEvents); err != nil {
		t.Fatal(err)
	}
	reader := &answering{name: "reader"}
	i.SubscribeKeys(reader)
	i.ProcessKeyEvent(keyDown(model.KeyA))

	i.ClearEvents(1)
	if i.SetKeyResult(reader.last(), false) {
		t.Error("cleared key still pending")
	}
	if len(out.Keys()) != 0 {
		t.Error("cleared key reached the platform")
	}
}

func TestInterceptor_Close(t *testing.T) {
	out := platform.NewRecording()
	i, err := New(out, nil, DefaultOptions(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := i.SetAvailableFunctions(TouchExploration | FilterKeyEvents); err != nil {
		t.Fatal(err)
	}
	if err := i.Close(); err != nil {
		t.Fatal(err)
	}
	if err := i.Close(); err != nil {
		t.Errorf("second close: %v", err)
	}
	if !out.Closed() {
		t.Error("injector not closed")
	}
	if _, err := i.SetAvailableFunctions(0); !errors.Is(err, ErrClosed) {
		t.Errorf("configure after close: err = %v", err)
	}
	for _, info := range i.Chains() {
		if len(info.Nodes) != 0 {
			t.Errorf("%s chain still holds %v", info.Name, info.Nodes)
		}
	}
	if i.ProcessPointerEvent(touchDown(1, 0, 0)) {
		t.Error("closed interceptor consumed an event")
	}
}

func TestInterceptor_TraceSurvivesRebuild(t *testing.T) {
	i, _, _ := newTestInterceptor(t)
	rec, err := i.Trace()
	if err != nil {
		t.Fatal(err)
	}
	if again, _ := i.Trace(); again != rec {
		t.Error("second Trace returned a different recorder")
	}

	i.ProcessKeyEvent(keyDown(model.KeyEnter))
	if _, err := i.SetAvailableFunctions(MouseKey | ScreenMagnification); err != nil {
		t.Fatal(err)
	}
	infos := i.Chains()
	wantPointer := []string{filters.NameMouseKeyTracker, filters.NameZoom, filters.NameRecorder, filters.NameSink}
	if !equal(infos[0].Nodes, wantPointer) {
		t.Errorf("pointer chain = %v, want %v", infos[0].Nodes, wantPointer)
	}
	wantKey := []string{filters.NameMouseKey, filters.NameRecorder, filters.NameSink}
	if !equal(infos[1].Nodes, wantKey) {
		t.Errorf("key chain = %v, want %v", infos[1].Nodes, wantKey)
	}

	i.ProcessPointerEvent(touchDown(1, 10, 10))
	i.MoveMouse(3, 4)

	records := rec.Records()
	kinds := make([]string, len(records))
	for j, r := range records {
		kinds[j] = r.Kind
	}
	if !equal(kinds, []string{"key", "pointer", "move"}) {
		t.Errorf("trace = %v", kinds)
	}
}

func TestInterceptor_TraceAfterClose(t *testing.T) {
	i, _, _ := newTestInterceptor(t)
	i.Close()
	if _, err := i.Trace(); !errors.Is(err, ErrClosed) {
		t.Errorf("err = %v, want ErrClosed", err)
	}
}

// blockingInjector holds every pointer event until release is closed.
type blockingInjector struct {
	*platform.Recording
	entered chan struct{}
	release chan struct{}
}

func (b *blockingInjector) InjectPointer(ev *model.PointerEvent) error {
	select {
	case b.entered <- struct{}{}:
	default:
	}
	<-b.release
	return b.Recording.InjectPointer(ev)
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

func TestInterceptor_SettingsDuringRebuildReachNewNodes(t *testing.T) {
	inj := &blockingInjector{
		Recording: platform.NewRecording(),
		entered:   make(chan struct{}, 1),
		release:   make(chan struct{}),
	}
	i, err := New(inj, nil, DefaultOptions(), nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { i.Close() })

	// Park a traversal of the current chains in the sink.
	parked := make(chan struct{})
	go func() {
		i.ProcessPointerEvent(touchDown(9, 10, 10))
		close(parked)
	}()
	<-inj.entered

	rebuilt := make(chan error, 1)
	go func() {
		_, err := i.SetAvailableFunctions(FilterKeyEvents | ScreenMagnification)
		rebuilt <- err
	}()
	// The new pointer chain is published before the old one has drained.
	waitFor(t, "new pointer chain", func() bool { return contains(i.Chains()[0].Nodes, filters.NameZoom) })

	reader := &answering{name: "reader"}
	i.SubscribeKeys(reader)
	i.ShieldZoomGesture(true)

	close(inj.release)
	<-parked
	if err := <-rebuilt; err != nil {
		t.Fatal(err)
	}

	if !i.ProcessKeyEvent(keyDown(model.KeyA)) {
		t.Error("key not offered to a subscriber added during the rebuild")
	}

	start := time.Now()
	for n := 0; n < 3; n++ {
		at := start.Add(time.Duration(n) * 100 * time.Millisecond)
		down := touchDown(1, 500, 500)
		down.ActionTime = at
		i.ProcessPointerEvent(down)
		up := touchDown(1, 500, 500)
		up.Action = model.PointerActionUp
		up.ActionTime = at.Add(50 * time.Millisecond)
		i.ProcessPointerEvent(up)
	}
	if vp, _ := i.Viewport(); vp.Scale != 1 {
		t.Errorf("shield set during the rebuild was lost: %+v", vp)
	}
}
