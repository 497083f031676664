package filters

import (
	"testing"

	"github.com/mj1618/a11y-chain/internal/chain"
	"github.com/mj1618/a11y-chain/internal/model"
)

func mouseMove(x, y float64) *model.PointerEvent {
	return &model.PointerEvent{
		Source:    model.SourceMouse,
		Device:    7,
		Action:    model.PointerActionMove,
		PointerID: 0,
		Pointers:  []model.PointerItem{{ID: 0, X: x, Y: y}},
	}
}

type mouseKeyRig struct {
	mk       *MouseKey
	keys     *chain.Chain
	pointers *chain.Chain
	keyRec   *Recorder
	ptrRec   *Recorder
}

func newMouseKeyRig(t *testing.T) *mouseKeyRig {
	mk := NewMouseKey()
	keys, keyRec, _ := harness(t, mk)
	pointers, ptrRec, _ := harness(t, mk.Tracker())
	return &mouseKeyRig{mk: mk, keys: keys, pointers: pointers, keyRec: keyRec, ptrRec: ptrRec}
}

// press sends a down and an up for code and reports whether the down was consumed.
func (r *mouseKeyRig) press(code model.KeyCode) bool {
	consumed := r.keys.OnKeyEvent(key(1, code, model.KeyActionDown))
	r.keys.OnKeyEvent(key(1, code, model.KeyActionUp))
	return consumed
}

func (r *mouseKeyRig) clicks() []*model.PointerEvent {
	var out []*model.PointerEvent
	for _, ev := range r.ptrRec.Pointers() {
		if ev.Has(model.FlagSimulated) {
			out = append(out, ev)
		}
	}
	return out
}

func TestMouseKey_Moves(t *testing.T) {
	tests := []struct {
		key    model.KeyCode
		dx, dy int32
	}{
		{model.KeyNumpad1, -5, 5},
		{model.KeyNumpad2, 0, 5},
		{model.KeyNumpad3, 5, 5},
		{model.KeyNumpad4, -5, 0},
		{model.KeyNumpad6, 5, 0},
		{model.KeyNumpad7, -5, -5},
		{model.KeyNumpad8, 0, -5},
		{model.KeyNumpad9, 5, -5},
	}
	for _, tt := range tests {
		t.Run(tt.key.String(), func(t *testing.T) {
			r := newMouseKeyRig(t)
			if !r.press(tt.key) {
				t.Fatal("key not consumed")
			}
			recs := r.ptrRec.Records()
			if len(recs) != 1 || recs[0].Kind != "move" {
				t.Fatalf("pointer chain records = %+v, want one move", recs)
			}
			if recs[0].OffsetX != tt.dx || recs[0].OffsetY != tt.dy {
				t.Errorf("move = (%d,%d), want (%d,%d)", recs[0].OffsetX, recs[0].OffsetY, tt.dx, tt.dy)
			}
			if n := len(r.keyRec.Keys()); n != 0 {
				t.Errorf("%d key events leaked past mouse keys", n)
			}
		})
	}
}

func TestMouseKey_ClickNeedsAMousePosition(t *testing.T) {
	r := newMouseKeyRig(t)
	if !r.press(model.KeyNumpad5) {
		t.Fatal("numpad 5 not consumed")
	}
	if n := len(r.ptrRec.Pointers()); n != 0 {
		t.Fatalf("click without a known position produced %d events", n)
	}

	r.pointers.OnPointerEvent(mouseMove(100, 200))
	r.press(model.KeyNumpad5)
	got := r.clicks()
	want := []model.PointerAction{model.PointerActionButtonDown, model.PointerActionButtonUp}
	if !equalSlices(actions(got), want) {
		t.Fatalf("click actions = %v, want %v", actions(got), want)
	}
	for _, ev := range got {
		p, _ := ev.Current()
		if ev.Button != model.ButtonLeft || p.X != 100 || p.Y != 200 || !p.Pressed {
			t.Errorf("click event = %+v", ev)
		}
	}
}

func TestMouseKey_ClickFollowsMoves(t *testing.T) {
	r := newMouseKeyRig(t)
	r.pointers.OnPointerEvent(mouseMove(100, 200))
	r.press(model.KeyNumpad6)
	r.press(model.KeyNumpad2)
	r.press(model.KeyNumpad5)

	got := r.clicks()
	if len(got) != 2 {
		t.Fatalf("got %d click events, want 2", len(got))
	}
	if p, _ := got[0].Current(); p.X != 105 || p.Y != 205 {
		t.Errorf("click at (%v,%v), want (105,205)", p.X, p.Y)
	}
}

func TestMouseKey_ButtonSelection(t *testing.T) {
	tests := []struct {
		name    string
		keys    []model.KeyCode
		buttons []model.MouseButton
	}{
		{"default left", []model.KeyCode{model.KeyNumpad5},
			[]model.MouseButton{model.ButtonLeft, model.ButtonLeft}},
		{"right", []model.KeyCode{model.KeyNumpadSubtract, model.KeyNumpad5},
			[]model.MouseButton{model.ButtonRight, model.ButtonRight}},
		{"both", []model.KeyCode{model.KeyNumpadMultiply, model.KeyNumpad5},
			[]model.MouseButton{model.ButtonLeft, model.ButtonRight, model.ButtonLeft, model.ButtonRight}},
		{"back to left", []model.KeyCode{model.KeyNumpadSubtract, model.KeyNumpadDivide, model.KeyNumpad5},
			[]model.MouseButton{model.ButtonLeft, model.ButtonLeft}},
		{"double click", []model.KeyCode{model.KeyNumpadAdd},
			[]model.MouseButton{model.ButtonLeft, model.ButtonLeft, model.ButtonLeft, model.ButtonLeft}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newMouseKeyRig(t)
			r.pointers.OnPointerEvent(mouseMove(10, 10))
			for _, k := range tt.keys {
				r.press(k)
			}
			var got []model.MouseButton
			for _, ev := range r.clicks() {
				got = append(got, ev.Button)
			}
			if !equalSlices(got, tt.buttons) {
				t.Errorf("buttons = %v, want %v", got, tt.buttons)
			}
		})
	}
}

func TestMouseKey_PassesOtherKeys(t *testing.T) {
	tests := []struct {
		name string
		ev   *model.KeyEvent
	}{
		{"letter", key(1, model.KeyA, model.KeyActionDown)},
		{"numpad 0", key(1, model.KeyNumpad0, model.KeyActionDown)},
		{"with modifier", key(1, model.KeyNumpad5, model.KeyActionDown, model.KeyLeftShift, model.KeyNumpad5)},
		{"simulated", &model.KeyEvent{Code: model.KeyNumpad5, Action: model.KeyActionDown, Flags: model.FlagSimulated}},
		{"malformed", &model.KeyEvent{Action: model.KeyActionDown}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newMouseKeyRig(t)
			if r.keys.OnKeyEvent(tt.ev) {
				t.Fatal("consumed")
			}
			if n := len(r.keyRec.Keys()); n != 1 {
				t.Errorf("downstream saw %d keys, want 1", n)
			}
		})
	}
}

func TestMouseKey_TrackerClearAndDestroy(t *testing.T) {
	r := newMouseKeyRig(t)
	r.pointers.OnPointerEvent(mouseMove(10, 10))
	r.pointers.ClearEvents(3)
	r.press(model.KeyNumpad5)
	if len(r.clicks()) != 2 {
		t.Fatal("clearing another source forgot the cursor")
	}

	r.pointers.ClearEvents(7)
	r.press(model.KeyNumpad5)
	if len(r.clicks()) != 2 {
		t.Error("clearing the mouse source kept the cursor")
	}

	r.pointers.Teardown()
	r.keys.Teardown()
	if r.mk.OnKeyEvent(key(1, model.KeyNumpad5, model.KeyActionDown)) {
		t.Error("destroyed mouse key consumed a key")
	}
	if r.mk.Selected() != SelectLeft {
		t.Error("destroy should reset the button selection")
	}
}
