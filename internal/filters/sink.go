package filters

import (
	"log/slog"
	"sync/atomic"

	"github.com/mj1618/a11y-chain/internal/chain"
	"github.com/mj1618/a11y-chain/internal/model"
	"github.com/mj1618/a11y-chain/internal/platform"
)

// SinkStats counts what an InputSink handed to the platform.
type SinkStats struct {
	Delivered uint64 `yaml:"delivered" json:"delivered"`
	Failed    uint64 `yaml:"failed"    json:"failed"`
	Moves     uint64 `yaml:"moves"     json:"moves"`
}

// InputSink is the last node of a chain. Every event that reaches it is
// injected into the platform with FlagNoIntercept set, so the input source
// does not feed it back in. It never consumes; a chain result of false means
// the event went to the platform.
type InputSink struct {
	chain.Base

	injector platform.Injector
	log      *slog.Logger

	delivered atomic.Uint64
	failed    atomic.Uint64
	moves     atomic.Uint64
}

// NewInputSink returns a sink writing to injector. A nil logger uses the
// process default.
func NewInputSink(injector platform.Injector, log *slog.Logger) *InputSink {
	if log == nil {
		log = slog.Default()
	}
	return &InputSink{
		Base:     chain.Base{Kind: NameSink},
		injector: injector,
		log:      log.With("component", NameSink),
	}
}

func (s *InputSink) OnPointerEvent(ev *model.PointerEvent) bool {
	if s.Destroyed() || ev == nil {
		return false
	}
	out := ev.Clone()
	out.Flags |= model.FlagNoIntercept
	s.count(s.injector.InjectPointer(out), "pointer")
	return false
}

func (s *InputSink) OnKeyEvent(ev *model.KeyEvent) bool {
	if s.Destroyed() || ev == nil {
		return false
	}
	out := ev.Clone()
	out.Flags |= model.FlagNoIntercept
	s.count(s.injector.InjectKey(out), "key")
	return false
}

func (s *InputSink) OnMoveMouse(offsetX, offsetY int32) {
	if s.Destroyed() {
		return
	}
	if err := s.injector.MoveCursor(offsetX, offsetY); err != nil {
		s.failed.Add(1)
		s.log.Debug("move cursor failed", "error", err)
		return
	}
	s.moves.Add(1)
}

func (s *InputSink) count(err error, kind string) {
	if err != nil {
		s.failed.Add(1)
		s.log.Debug("inject failed", "kind", kind, "error", err)
		return
	}
	s.delivered.Add(1)
}

// Stats returns the delivery counters.
func (s *InputSink) Stats() SinkStats {
	return SinkStats{
		Delivered: s.delivered.Load(),
		Failed:    s.failed.Load(),
		Moves:     s.moves.Load(),
	}
}
