package filters

import (
	"testing"
	"time"

	"github.com/mj1618/a11y-chain/internal/model"
)

func TestTimingTables(t *testing.T) {
	tests := []struct {
		level    int
		response time.Duration
		ignore   time.Duration
	}{
		{-1, 0, 100 * time.Millisecond},
		{0, 0, 100 * time.Millisecond},
		{1, 300 * time.Millisecond, 400 * time.Millisecond},
		{2, 600 * time.Millisecond, 700 * time.Millisecond},
		{3, 0, 1000 * time.Millisecond},
		{4, 0, 1300 * time.Millisecond},
		{5, 0, 100 * time.Millisecond},
	}
	for _, tt := range tests {
		if got := ClickResponseTime(tt.level); got != tt.response {
			t.Errorf("ClickResponseTime(%d) = %v, want %v", tt.level, got, tt.response)
		}
		if got := IgnoreRepeatClickTime(tt.level); got != tt.ignore {
			t.Errorf("IgnoreRepeatClickTime(%d) = %v, want %v", tt.level, got, tt.ignore)
		}
	}
}

type touchStep struct {
	ev       *model.PointerEvent
	consumed bool
}

func TestScreenTouch_ResponseDelay(t *testing.T) {
	down := model.PointerActionDown
	move := model.PointerActionMove
	up := model.PointerActionUp

	tests := []struct {
		name  string
		steps []touchStep
		want  []model.PointerAction
	}{
		{
			name: "short tap is dropped",
			steps: []touchStep{
				{touch(1, down, 100, 100, ms(0)), true},
				{touch(1, move, 101, 100, ms(50)), true},
				{touch(1, up, 101, 100, ms(100)), true},
			},
		},
		{
			name: "resting finger is delivered on the first late move",
			steps: []touchStep{
				{touch(1, down, 100, 100, ms(0)), true},
				{touch(1, move, 101, 100, ms(350)), false},
				{touch(1, move, 102, 100, ms(400)), false},
				{touch(1, up, 102, 100, ms(450)), false},
			},
			want: []model.PointerAction{down, move, up},
		},
		{
			name: "moving past the threshold delivers at once",
			steps: []touchStep{
				{touch(1, down, 100, 100, ms(0)), true},
				{touch(1, move, 200, 100, ms(50)), false},
				{touch(1, move, 250, 100, ms(60)), false},
				{touch(1, up, 250, 100, ms(70)), false},
			},
			want: []model.PointerAction{down, move, up},
		},
		{
			name: "held tap without moves gets its down back",
			steps: []touchStep{
				{touch(1, down, 100, 100, ms(0)), true},
				{touch(1, up, 100, 100, ms(400)), false},
			},
			want: []model.PointerAction{down, up},
		},
		{
			name: "second finger is swallowed",
			steps: []touchStep{
				{touch(1, down, 100, 100, ms(0)), true},
				{twoFinger(1, down, 100, 100, 200, 200, ms(10)), true},
				{twoFinger(1, move, 100, 100, 210, 200, ms(20)), true},
			},
		},
		{
			name: "cancel is forwarded",
			steps: []touchStep{
				{touch(1, down, 100, 100, ms(0)), true},
				{touch(1, model.PointerActionCancel, 100, 100, ms(10)), false},
			},
			want: []model.PointerAction{model.PointerActionCancel},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec, _ := harness(t, NewScreenTouch(ScreenTouchConfig{ClickResponseLevel: 1}))
			for i, s := range tt.steps {
				if got := c.OnPointerEvent(s.ev); got != s.consumed {
					t.Fatalf("step %d (%v): consumed = %v, want %v", i, s.ev.Action, got, s.consumed)
				}
			}
			if got := actions(rec.Pointers()); !equalSlices(got, tt.want) {
				t.Errorf("downstream actions = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScreenTouch_HeldDownKeepsStartPoint(t *testing.T) {
	c, rec, _ := harness(t, NewScreenTouch(ScreenTouchConfig{ClickResponseLevel: 2}))
	c.OnPointerEvent(touch(1, model.PointerActionDown, 40, 60, ms(0)))
	c.OnPointerEvent(touch(1, model.PointerActionUp, 45, 60, ms(700)))

	got := rec.Pointers()
	if len(got) != 2 {
		t.Fatalf("downstream saw %d events, want 2", len(got))
	}
	p, _ := got[0].Current()
	if got[0].Action != model.PointerActionDown || p.X != 40 || p.Y != 60 {
		t.Errorf("replayed down = %v at (%v,%v), want down at (40,60)", got[0].Action, p.X, p.Y)
	}
	if got[0].Has(model.FlagSimulated) {
		t.Error("replayed down must look like the real touch to later nodes")
	}
}

func TestScreenTouch_IgnoreRepeatClick(t *testing.T) {
	c, rec, _ := harness(t, NewScreenTouch(ScreenTouchConfig{IgnoreRepeatClick: true, IgnoreRepeatLevel: 1}))

	steps := []touchStep{
		{touch(1, model.PointerActionDown, 100, 100, ms(0)), false},
		{touch(1, model.PointerActionUp, 100, 100, ms(50)), false},
		{touch(1, model.PointerActionDown, 100, 100, ms(200)), true},
		{touch(1, model.PointerActionMove, 105, 100, ms(210)), true},
		{touch(1, model.PointerActionUp, 105, 100, ms(250)), true},
		{touch(1, model.PointerActionDown, 100, 100, ms(600)), false},
	}
	for i, s := range steps {
		if got := c.OnPointerEvent(s.ev); got != s.consumed {
			t.Fatalf("step %d (%v): consumed = %v, want %v", i, s.ev.Action, got, s.consumed)
		}
	}
	want := []model.PointerAction{model.PointerActionDown, model.PointerActionUp, model.PointerActionDown}
	if got := actions(rec.Pointers()); !equalSlices(got, want) {
		t.Errorf("downstream actions = %v, want %v", got, want)
	}
}

func TestScreenTouch_StateIsPerSource(t *testing.T) {
	st := NewScreenTouch(ScreenTouchConfig{IgnoreRepeatClick: true, IgnoreRepeatLevel: 4})
	c, _, _ := harness(t, st)

	c.OnPointerEvent(touch(1, model.PointerActionDown, 0, 0, ms(0)))
	c.OnPointerEvent(touch(1, model.PointerActionUp, 0, 0, ms(50)))
	if c.OnPointerEvent(touch(2, model.PointerActionDown, 0, 0, ms(100))) {
		t.Error("repeat window of source 1 applied to source 2")
	}
	if !c.OnPointerEvent(touch(1, model.PointerActionDown, 0, 0, ms(100))) {
		t.Fatal("repeat on source 1 not ignored")
	}
	c.OnPointerEvent(touch(1, model.PointerActionUp, 0, 0, ms(120)))

	c.ClearEvents(2)
	if !c.OnPointerEvent(touch(1, model.PointerActionDown, 0, 0, ms(200))) {
		t.Error("clearing source 2 reset source 1")
	}
	c.OnPointerEvent(touch(1, model.PointerActionUp, 0, 0, ms(220)))
	c.ClearEvents(1)
	if c.OnPointerEvent(touch(1, model.PointerActionDown, 0, 0, ms(300))) {
		t.Error("clearing source 1 did not reset its repeat window")
	}
}

func TestScreenTouch_DisabledAndDestroyedPassThrough(t *testing.T) {
	off := NewScreenTouch(ScreenTouchConfig{})
	if off.OnPointerEvent(touch(1, model.PointerActionDown, 0, 0, ms(0))) {
		t.Error("node with no delay and no repeat filter consumed a touch")
	}

	st := NewScreenTouch(ScreenTouchConfig{ClickResponseLevel: 2})
	st.DestroyEvents()
	st.DestroyEvents()
	if st.OnPointerEvent(touch(1, model.PointerActionDown, 0, 0, ms(0))) {
		t.Error("destroyed node consumed a touch")
	}
	st.ClearEvents(1)
}
