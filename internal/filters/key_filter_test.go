package filters

import (
	"sync"
	"testing"
	"time"

	"github.com/mj1618/a11y-chain/internal/model"
)

// subscriber answers key presses according to answer, or not at all when
// answer is nil.
type subscriber struct {
	name   string
	filter *KeyEventFilter
	answer func(ev *model.KeyEvent) bool

	mu   sync.Mutex
	seqs []uint64
}

func (s *subscriber) Name() string { return s.name }

func (s *subscriber) OnKeyPressEvent(ev *model.KeyEvent, seq uint64) {
	s.mu.Lock()
	s.seqs = append(s.seqs, seq)
	s.mu.Unlock()
	if s.answer != nil {
		s.filter.SetResult(seq, s.answer(ev))
	}
}

func (s *subscriber) received() []uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]uint64(nil), s.seqs...)
}

func always(v bool) func(*model.KeyEvent) bool {
	return func(*model.KeyEvent) bool { return v }
}

func TestKeyEventFilter_NoSubscribersPassesThrough(t *testing.T) {
	f := NewKeyEventFilter(0)
	c, rec, _ := harness(t, f)
	if c.OnKeyEvent(key(1, model.KeyA, model.KeyActionDown)) {
		t.Fatal("consumed without subscribers")
	}
	if n := len(rec.Keys()); n != 1 {
		t.Errorf("downstream saw %d keys, want 1", n)
	}
}

func TestKeyEventFilter_Answers(t *testing.T) {
	tests := []struct {
		name       string
		answers    []func(*model.KeyEvent) bool
		wantPassed int
		wantEvents int
	}{
		{"handled", []func(*model.KeyEvent) bool{always(true)}, 0, 1},
		{"declined", []func(*model.KeyEvent) bool{always(false)}, 1, 0},
		{"all decline", []func(*model.KeyEvent) bool{always(false), always(false)}, 1, 0},
		{"one handles", []func(*model.KeyEvent) bool{always(false), always(true)}, 0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewKeyEventFilter(time.Minute)
			c, rec, log := harness(t, f)
			for i, a := range tt.answers {
				f.Subscribe(&subscriber{name: string(rune('a' + i)), filter: f, answer: a})
			}

			if !c.OnKeyEvent(key(1, model.KeyA, model.KeyActionDown)) {
				t.Fatal("offered key should be consumed by the filter")
			}
			if n := len(rec.Keys()); n != tt.wantPassed {
				t.Errorf("downstream saw %d keys, want %d", n, tt.wantPassed)
			}
			events := log.all()
			if len(events) != tt.wantEvents {
				t.Fatalf("events = %+v, want %d", events, tt.wantEvents)
			}
			if tt.wantEvents > 0 && (events[0].Type != model.EventKeyHandled || events[0].Text != "a") {
				t.Errorf("event = %+v", events[0])
			}
			if f.Pending() != 0 {
				t.Errorf("pending = %d after all answers", f.Pending())
			}
		})
	}
}

func TestKeyEventFilter_TimeoutPassesKeyOn(t *testing.T) {
	f := NewKeyEventFilter(20 * time.Millisecond)
	c, rec, _ := harness(t, f)
	silent := &subscriber{name: "silent", filter: f}
	f.Subscribe(silent)

	if !c.OnKeyEvent(key(1, model.KeyEnter, model.KeyActionDown)) {
		t.Fatal("key not held for the subscriber")
	}
	waitFor(t, "timed out key", func() bool { return len(rec.Keys()) == 1 })

	seqs := silent.received()
	if len(seqs) != 1 {
		t.Fatalf("subscriber saw %d keys", len(seqs))
	}
	if f.SetResult(seqs[0], true) {
		t.Error("late answer accepted")
	}
}

func TestKeyEventFilter_ClearEventsDropsPendingOfSource(t *testing.T) {
	f := NewKeyEventFilter(time.Minute)
	c, rec, _ := harness(t, f)
	silent := &subscriber{name: "silent", filter: f}
	f.Subscribe(silent)

	c.OnKeyEvent(key(1, model.KeyA, model.KeyActionDown))
	c.OnKeyEvent(key(2, model.KeyA, model.KeyActionDown))
	c.ClearEvents(1)
	c.ClearEvents(1)
	if f.Pending() != 1 {
		t.Fatalf("pending = %d, want 1", f.Pending())
	}

	seqs := silent.received()
	if f.SetResult(seqs[0], false) {
		t.Error("answer for a cleared key accepted")
	}
	if !f.SetResult(seqs[1], false) {
		t.Error("answer for source 2 rejected")
	}
	keys := rec.Keys()
	if len(keys) != 1 || keys[0].Device != 2 {
		t.Errorf("downstream keys = %+v, want the source 2 key", keys)
	}
}

func TestKeyEventFilter_SubscribeReplacesAndUnsubscribe(t *testing.T) {
	f := NewKeyEventFilter(time.Minute)
	c, rec, _ := harness(t, f)
	first := &subscriber{name: "reader", filter: f, answer: always(true)}
	second := &subscriber{name: "reader", filter: f, answer: always(false)}
	f.Subscribe(first)
	f.Subscribe(second)

	c.OnKeyEvent(key(1, model.KeyA, model.KeyActionDown))
	if len(first.received()) != 0 || len(second.received()) != 1 {
		t.Fatal("second subscription under the same name should replace the first")
	}
	if len(rec.Keys()) != 1 {
		t.Error("declined key not passed on")
	}

	f.Unsubscribe("reader")
	f.Unsubscribe("missing")
	if c.OnKeyEvent(key(1, model.KeyA, model.KeyActionDown)) {
		t.Error("consumed after the last subscriber left")
	}
}

func TestKeyEventFilter_SetSubscribers(t *testing.T) {
	f := NewKeyEventFilter(time.Minute)
	c, _, _ := harness(t, f)
	old := &subscriber{name: "old", filter: f, answer: always(false)}
	f.Subscribe(old)
	reader := &subscriber{name: "reader", filter: f, answer: always(true)}
	f.SetSubscribers([]KeySubscriber{reader})

	if !c.OnKeyEvent(key(1, model.KeyA, model.KeyActionDown)) {
		t.Fatal("key not consumed by the new subscriber")
	}
	if len(old.received()) != 0 || len(reader.received()) != 1 {
		t.Errorf("old=%v reader=%v", old.received(), reader.received())
	}

	f.SetSubscribers(nil)
	if c.OnKeyEvent(key(1, model.KeyA, model.KeyActionDown)) {
		t.Error("consumed with no subscribers")
	}
}

func TestKeyEventFilter_Destroy(t *testing.T) {
	f := NewKeyEventFilter(time.Minute)
	silent := &subscriber{name: "silent", filter: f}
	f.Subscribe(silent)
	f.OnKeyEvent(key(1, model.KeyA, model.KeyActionDown))

	f.DestroyEvents()
	f.DestroyEvents()
	if f.Pending() != 0 {
		t.Error("destroy kept pending keys")
	}
	if f.OnKeyEvent(key(1, model.KeyA, model.KeyActionDown)) {
		t.Error("destroyed filter consumed a key")
	}
	if f.SetResult(silent.received()[0], false) {
		t.Error("answer accepted after destroy")
	}
	f.ClearEvents(1)
}
