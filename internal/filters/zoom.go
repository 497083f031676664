package filters

import (
	"math"
	"sync"
	"time"

	"github.com/mj1618/a11y-chain/internal/chain"
	"github.com/mj1618/a11y-chain/internal/model"
	"github.com/mj1618/a11y-chain/internal/platform"
)

// ZoomState is the magnification state machine.
type ZoomState int

const (
	ZoomReady   ZoomState = iota // not magnified
	ZoomIn                       // magnified, single-finger input remapped
	ZoomSliding                  // magnified, two fingers panning the viewport
)

func (s ZoomState) String() string {
	switch s {
	case ZoomIn:
		return "zoom_in"
	case ZoomSliding:
		return "sliding"
	}
	return "ready"
}

// ZoomConfig configures a ZoomHandler.
type ZoomConfig struct {
	Scale      float64
	MinScale   float64
	MaxScale   float64
	TapTimeout time.Duration // longest gap between the downs of a triple tap
	TapSlop    float64       // largest distance between them
	Screen     platform.Bounds
}

// DefaultZoomConfig returns a 2x zoom on the default screen.
func DefaultZoomConfig() ZoomConfig {
	return ZoomConfig{
		Scale:      2,
		MinScale:   1,
		MaxScale:   8,
		TapTimeout: 300 * time.Millisecond,
		TapSlop:    100,
		Screen:     platform.DefaultScreen,
	}
}

// Viewport describes the magnified region.
type Viewport struct {
	State   string  `yaml:"state"    json:"state"`
	Scale   float64 `yaml:"scale"    json:"scale"`
	CenterX float64 `yaml:"center_x" json:"center_x"`
	CenterY float64 `yaml:"center_y" json:"center_y"`
}

type tapTrack struct {
	count int
	last  time.Time
	x, y  float64
}

// ZoomHandler is the screen magnifier. A triple tap toggles magnification at
// the tapped point. While magnified, single-finger touches are remapped from
// the magnified view to screen coordinates and passed on, two fingers pan the
// viewport, and mouse movement drags the viewport along.
type ZoomHandler struct {
	chain.Base

	cfg ZoomConfig

	mu       sync.Mutex
	state    ZoomState
	scale    float64
	cx, cy   float64
	shielded bool
	taps     map[model.SourceID]*tapTrack
	swallow  map[model.SourceID]bool
	slideDev model.SourceID
	slideX   float64
	slideY   float64
}

// NewZoomHandler returns a handler in the ready state.
func NewZoomHandler(cfg ZoomConfig) *ZoomHandler {
	if cfg.Screen.Empty() {
		cfg.Screen = platform.DefaultScreen
	}
	if cfg.MinScale < 1 {
		cfg.MinScale = 1
	}
	if cfg.MaxScale < cfg.MinScale {
		cfg.MaxScale = cfg.MinScale
	}
	z := &ZoomHandler{
		Base:    chain.Base{Kind: NameZoom},
		cfg:     cfg,
		taps:    map[model.SourceID]*tapTrack{},
		swallow: map[model.SourceID]bool{},
	}
	z.resetViewport()
	return z
}

func (z *ZoomHandler) resetViewport() {
	z.state = ZoomReady
	z.scale = 1
	z.cx, z.cy = z.cfg.Screen.Center()
}

func (z *ZoomHandler) OnPointerEvent(ev *model.PointerEvent) bool {
	if z.Destroyed() || !ev.Valid() || ev.Source != model.SourceTouchscreen {
		return false
	}
	p, _ := ev.Current()
	at := eventTime(ev.ActionTime)
	simulated := ev.Has(model.FlagSimulated)

	var changed bool
	var cancel *model.PointerEvent
	consumed := false

	z.mu.Lock()
	switch {
	case z.shielded:
	case z.swallow[ev.Device]:
		consumed = true
		if z.state == ZoomSliding && z.slideDev == ev.Device && ev.Action == model.PointerActionMove && len(ev.Pointers) >= 2 {
			z.pan(ev)
		}
		if (ev.Action == model.PointerActionUp || ev.Action == model.PointerActionCancel) && remaining(ev) < 2 && z.state == ZoomSliding && z.slideDev == ev.Device {
			z.state = ZoomIn
			changed = true
		}
		if (ev.Action == model.PointerActionUp && remaining(ev) == 0) || ev.Action == model.PointerActionCancel {
			delete(z.swallow, ev.Device)
		}
	case simulated:
	case ev.Action == model.PointerActionDown && len(ev.Pointers) == 1 && z.tripleTap(ev.Device, p, at):
		if z.state == ZoomReady {
			z.zoomIn(p.X, p.Y)
		} else {
			z.resetViewport()
		}
		z.swallow[ev.Device] = true
		changed, consumed = true, true
	case z.state == ZoomIn && len(ev.Pointers) >= 2 &&
		(ev.Action == model.PointerActionDown || ev.Action == model.PointerActionMove):
		z.state = ZoomSliding
		z.slideDev = ev.Device
		z.slideX, z.slideY = midpoint(ev.Pointers)
		z.swallow[ev.Device] = true
		for _, other := range ev.Pointers {
			if other.ID != ev.PointerID {
				cancel = synthesize(ev, model.PointerActionCancel, other, at)
				break
			}
		}
		consumed = true
	}
	if !consumed && z.state != ZoomReady {
		z.remap(ev)
	}
	vp := z.viewport()
	z.mu.Unlock()

	if cancel != nil {
		z.Emitter().EmitPointerEvent(cancel)
	}
	if changed {
		z.publish(vp)
	}
	return consumed
}

// OnMoveMouse drags the magnified viewport along with the cursor.
func (z *ZoomHandler) OnMoveMouse(offsetX, offsetY int32) {
	if z.Destroyed() {
		return
	}
	z.mu.Lock()
	if z.state == ZoomReady || z.shielded {
		z.mu.Unlock()
		return
	}
	cx, cy := z.cx, z.cy
	z.cx += float64(offsetX)
	z.cy += float64(offsetY)
	z.clampCenter()
	moved := z.cx != cx || z.cy != cy
	vp := z.viewport()
	z.mu.Unlock()
	if moved {
		z.publish(vp)
	}
}

func (z *ZoomHandler) tripleTap(dev model.SourceID, p model.PointerItem, at time.Time) bool {
	t, ok := z.taps[dev]
	if ok && at.Sub(t.last) <= z.cfg.TapTimeout && math.Hypot(p.X-t.x, p.Y-t.y) <= z.cfg.TapSlop {
		t.count++
	} else {
		t = &tapTrack{count: 1}
		z.taps[dev] = t
	}
	t.last, t.x, t.y = at, p.X, p.Y
	if t.count >= 3 {
		delete(z.taps, dev)
		return true
	}
	return false
}

func (z *ZoomHandler) zoomIn(x, y float64) {
	z.state = ZoomIn
	z.scale = math.Max(z.cfg.MinScale, math.Min(z.cfg.Scale, z.cfg.MaxScale))
	z.cx, z.cy = x, y
	z.clampCenter()
}

// pan moves the viewport opposite to the fingers, as if dragging the content.
func (z *ZoomHandler) pan(ev *model.PointerEvent) {
	mx, my := midpoint(ev.Pointers)
	z.cx -= (mx - z.slideX) / z.scale
	z.cy -= (my - z.slideY) / z.scale
	z.slideX, z.slideY = mx, my
	z.clampCenter()
}

// clampCenter keeps the magnified region inside the screen.
func (z *ZoomHandler) clampCenter() {
	s := z.cfg.Screen
	halfW := float64(s.Width) / (2 * z.scale)
	halfH := float64(s.Height) / (2 * z.scale)
	z.cx = math.Max(float64(s.X)+halfW, math.Min(z.cx, float64(s.X+s.Width)-halfW))
	z.cy = math.Max(float64(s.Y)+halfH, math.Min(z.cy, float64(s.Y+s.Height)-halfH))
}

// remap converts every pointer from magnified-view to screen coordinates.
func (z *ZoomHandler) remap(ev *model.PointerEvent) {
	sx, sy := z.cfg.Screen.Center()
	for i := range ev.Pointers {
		ev.Pointers[i].X = z.cx + (ev.Pointers[i].X-sx)/z.scale
		ev.Pointers[i].Y = z.cy + (ev.Pointers[i].Y-sy)/z.scale
	}
}

func (z *ZoomHandler) viewport() Viewport {
	return Viewport{State: z.state.String(), Scale: z.scale, CenterX: z.cx, CenterY: z.cy}
}

func (z *ZoomHandler) publish(vp Viewport) {
	z.OnAccessibilityEvent(model.AccessibilityEvent{
		Type:  model.EventMagnificationChanged,
		X:     vp.CenterX,
		Y:     vp.CenterY,
		Scale: vp.Scale,
		Text:  vp.State,
	})
}

// Viewport returns the current magnification.
func (z *ZoomHandler) Viewport() Viewport {
	z.mu.Lock()
	defer z.mu.Unlock()
	return z.viewport()
}

// Shield suspends zoom gestures. Shielding also drops any magnification.
func (z *ZoomHandler) Shield(on bool) {
	z.mu.Lock()
	wasZoomed := z.state != ZoomReady
	z.shielded = on
	if on {
		z.resetViewport()
		z.taps = map[model.SourceID]*tapTrack{}
		z.swallow = map[model.SourceID]bool{}
	}
	vp := z.viewport()
	z.mu.Unlock()
	if on && wasZoomed {
		z.publish(vp)
	}
}

// ClearEvents drops tap tracking for source and ends a pan it started.
func (z *ZoomHandler) ClearEvents(source model.SourceID) {
	z.mu.Lock()
	defer z.mu.Unlock()
	delete(z.taps, source)
	delete(z.swallow, source)
	if z.state == ZoomSliding && z.slideDev == source {
		z.state = ZoomIn
	}
}

func (z *ZoomHandler) DestroyEvents() {
	if !z.MarkDestroyed() {
		return
	}
	z.mu.Lock()
	defer z.mu.Unlock()
	z.resetViewport()
	z.taps = nil
	z.swallow = nil
}

func midpoint(items []model.PointerItem) (float64, float64) {
	var x, y float64
	for _, p := range items {
		x += p.X
		y += p.Y
	}
	n := float64(len(items))
	return x / n, y / n
}
