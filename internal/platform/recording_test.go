package platform

import (
	"testing"

	"github.com/mj1618/a11y-chain/internal/model"
)

func TestRecording_KeepsCopies(t *testing.T) {
	r := NewRecording()
	ev := &model.PointerEvent{Action: model.PointerActionDown, Pointers: []model.PointerItem{{ID: 0, X: 1}}}
	if err := r.InjectPointer(ev); err != nil {
		t.Fatal(err)
	}
	ev.Pointers[0].X = 50

	got := r.Pointers()
	if len(got) != 1 || got[0].Pointers[0].X != 1 {
		t.Errorf("recording aliased the caller's event: %+v", got)
	}

	_ = r.InjectKey(&model.KeyEvent{Code: model.KeyA, Action: model.KeyActionDown})
	_ = r.MoveCursor(2, -3)
	if len(r.Keys()) != 1 || len(r.Moves()) != 1 || r.Moves()[0] != [2]int32{2, -3} {
		t.Errorf("keys=%v moves=%v", r.Keys(), r.Moves())
	}

	r.Reset()
	if len(r.Pointers())+len(r.Keys())+len(r.Moves()) != 0 {
		t.Error("Reset left events behind")
	}
	_ = r.Close()
	if !r.Closed() {
		t.Error("Closed() = false after Close")
	}
}

var _ Injector = (*Recording)(nil)
