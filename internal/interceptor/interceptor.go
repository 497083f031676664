// Package interceptor owns the pointer and key chains. It builds them from a
// feature mask, rebuilds them when the mask or options change, and is the
// single entry point input sources deliver events to.
package interceptor

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mj1618/a11y-chain/internal/chain"
	"github.com/mj1618/a11y-chain/internal/filters"
	"github.com/mj1618/a11y-chain/internal/model"
	"github.com/mj1618/a11y-chain/internal/platform"
)

var (
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("interceptor closed")
	// ErrFeatureDisabled is returned by operations whose node is not linked.
	ErrFeatureDisabled = errors.New("feature not enabled")
)

// Options tunes the nodes the interceptor builds.
type Options struct {
	Recognizer  filters.RecognizerConfig
	Zoom        filters.ZoomConfig
	ScreenTouch filters.ScreenTouchConfig
	KeyTimeout  time.Duration
	StrokeGap   time.Duration
}

// DefaultOptions returns the default node settings.
func DefaultOptions() Options {
	return Options{
		Recognizer: filters.DefaultRecognizerConfig(),
		Zoom:       filters.DefaultZoomConfig(),
		KeyTimeout: filters.DefaultKeyResultTimeout,
		StrokeGap:  filters.DefaultStrokeGap,
	}
}

// nodeSet is one build of the chains. Nil fields are features that are off.
type nodeSet struct {
	features Feature
	opts     Options

	injector    *filters.TouchEventInjector
	mouseKey    *filters.MouseKey
	screenTouch *filters.ScreenTouch
	zoom        *filters.ZoomHandler
	guider      *filters.TouchGuider
	keyFilter   *filters.KeyEventFilter
}

// ChainInfo describes one chain for display.
type ChainInfo struct {
	Name  string   `yaml:"name"  json:"name"`
	Nodes []string `yaml:"nodes" json:"nodes"`
}

// Interceptor routes input through the accessibility chains and hands what
// survives to a platform injector.
type Interceptor struct {
	log      *slog.Logger
	injector platform.Injector

	pointer     *chain.Chain
	key         *chain.Chain
	pointerSink *filters.InputSink
	keySink     *filters.InputSink
	trace       *filters.Recorder // guarded by reconfigure

	reconfigure sync.Mutex // held across rebuilds
	closed      bool

	cur atomic.Pointer[nodeSet]

	mu       sync.Mutex // guards subs and shielded, held while they are applied to nodes
	subs     []filters.KeySubscriber
	shielded bool
}

// New returns an interceptor with no features enabled: both chains hold only
// their sink. Accessibility events from every node go to observer.
func New(injector platform.Injector, observer chain.Observer, opts Options, log *slog.Logger) (*Interceptor, error) {
	if injector == nil {
		return nil, fmt.Errorf("new interceptor: %w", chain.ErrNilTransmitter)
	}
	if log == nil {
		log = slog.Default()
	}
	i := &Interceptor{
		log:         log.With("component", "interceptor"),
		injector:    injector,
		pointerSink: filters.NewInputSink(injector, log),
		keySink:     filters.NewInputSink(injector, log),
	}
	var err error
	if i.pointer, err = chain.New("pointer", i.pointerSink); err != nil {
		return nil, err
	}
	if i.key, err = chain.New("key", i.keySink); err != nil {
		return nil, err
	}
	if observer != nil {
		i.pointer.SetObserver(observer)
		i.key.SetObserver(observer)
	}
	i.cur.Store(&nodeSet{opts: opts})
	return i, nil
}

// Features returns the enabled feature mask.
func (i *Interceptor) Features() Feature { return i.cur.Load().features }

// SetAvailableFunctions enables exactly the features in mask. It reports
// whether the chains were rebuilt; an unchanged mask is a no-op.
func (i *Interceptor) SetAvailableFunctions(mask Feature) (bool, error) {
	return i.Configure(mask, i.cur.Load().opts)
}

// Configure enables the features in mask with opts. The chains are rebuilt
// only when either differs from the current configuration. Old nodes are
// unlinked, drained and destroyed before Configure returns.
func (i *Interceptor) Configure(mask Feature, opts Options) (bool, error) {
	i.reconfigure.Lock()
	defer i.reconfigure.Unlock()
	if i.closed {
		return false, ErrClosed
	}
	old := i.cur.Load()
	if old.features == mask && old.opts == opts {
		return false, nil
	}

	n := i.build(mask, opts)
	pointerNodes, keyNodes := n.chains(i.pointerSink, i.keySink, i.trace)

	removedPointer, err := i.pointer.Reset(pointerNodes...)
	if err != nil {
		return false, fmt.Errorf("rebuild pointer chain: %w", err)
	}
	removedKey, err := i.key.Reset(keyNodes...)
	if err != nil {
		return false, fmt.Errorf("rebuild key chain: %w", err)
	}
	i.cur.Store(n)
	// Subscribers or a shield set while the old chains drained were applied to
	// the old nodes only.
	i.mu.Lock()
	i.applyLocked(n)
	i.mu.Unlock()

	for _, t := range append(removedPointer, removedKey...) {
		t.DestroyEvents()
	}

	if mask.Has(MouseAutoclick) {
		i.log.Warn("mouse autoclick is not implemented; flag ignored")
	}
	i.log.Info("chains rebuilt",
		"features", mask.String(),
		"pointer", i.pointer.Names(),
		"key", i.key.Names(),
		"destroyed", len(removedPointer)+len(removedKey))
	return true, nil
}

func (i *Interceptor) build(mask Feature, opts Options) *nodeSet {
	n := &nodeSet{features: mask, opts: opts}
	if mask.Has(InjectTouchEvents) {
		n.injector = filters.NewTouchEventInjector(opts.StrokeGap)
	}
	if mask.Has(MouseKey) {
		n.mouseKey = filters.NewMouseKey()
	}
	if mask.Has(ScreenTouch) {
		n.screenTouch = filters.NewScreenTouch(opts.ScreenTouch)
	}
	if mask.Has(ScreenMagnification) {
		n.zoom = filters.NewZoomHandler(opts.Zoom)
	}
	if mask.Has(TouchExploration) {
		n.guider = filters.NewTouchGuider(opts.Recognizer)
	}
	if mask.Has(FilterKeyEvents) {
		n.keyFilter = filters.NewKeyEventFilter(opts.KeyTimeout)
	}
	i.mu.Lock()
	i.applyLocked(n)
	i.mu.Unlock()
	return n
}

// applyLocked gives n's nodes the current shield and key subscribers.
func (i *Interceptor) applyLocked(n *nodeSet) {
	if n.zoom != nil {
		n.zoom.Shield(i.shielded)
	}
	if n.keyFilter != nil {
		n.keyFilter.SetSubscribers(i.subs)
	}
}

// chains returns the pointer and key sequences for n, each ending in its sink.
// A non-nil trace sits directly in front of both sinks.
func (n *nodeSet) chains(pointerSink, keySink chain.Transmitter, trace *filters.Recorder) (pointer, key []chain.Transmitter) {
	if n.injector != nil {
		pointer = append(pointer, n.injector)
	}
	if n.mouseKey != nil {
		pointer = append(pointer, n.mouseKey.Tracker())
	}
	if n.screenTouch != nil {
		pointer = append(pointer, n.screenTouch)
	}
	if n.zoom != nil {
		pointer = append(pointer, n.zoom)
	}
	if n.guider != nil {
		pointer = append(pointer, n.guider)
	}
	if trace != nil {
		pointer = append(pointer, trace)
	}
	pointer = append(pointer, pointerSink)

	if n.mouseKey != nil {
		key = append(key, n.mouseKey)
	}
	if n.keyFilter != nil {
		key = append(key, n.keyFilter)
	}
	if trace != nil {
		key = append(key, trace)
	}
	key = append(key, keySink)
	return pointer, key
}

// Trace links a recorder in front of both sinks and returns it. It sees
// exactly what is handed to the platform, survives rebuilds and is shared by
// the two chains, so its records keep their delivery order.
func (i *Interceptor) Trace() (*filters.Recorder, error) {
	i.reconfigure.Lock()
	defer i.reconfigure.Unlock()
	if i.closed {
		return nil, ErrClosed
	}
	if i.trace != nil {
		return i.trace, nil
	}
	trace := filters.NewRecorder()
	pointerNodes, keyNodes := i.cur.Load().chains(i.pointerSink, i.keySink, trace)
	if _, err := i.pointer.Reset(pointerNodes...); err != nil {
		return nil, fmt.Errorf("link trace: %w", err)
	}
	if _, err := i.key.Reset(keyNodes...); err != nil {
		return nil, fmt.Errorf("link trace: %w", err)
	}
	i.trace = trace
	return trace, nil
}

// ProcessPointerEvent runs ev through the pointer chain. It reports whether a
// node consumed the event; false means it reached the platform. Events
// already flagged FlagNoIntercept came out of a sink and are ignored.
func (i *Interceptor) ProcessPointerEvent(ev *model.PointerEvent) bool {
	if ev == nil || ev.Has(model.FlagNoIntercept) {
		return false
	}
	if ev.ActionTime.IsZero() {
		ev.ActionTime = time.Now()
	}
	return i.pointer.OnPointerEvent(ev)
}

// ProcessKeyEvent runs ev through the key chain.
func (i *Interceptor) ProcessKeyEvent(ev *model.KeyEvent) bool {
	if ev == nil || ev.Has(model.FlagNoIntercept) {
		return false
	}
	if ev.ActionTime.IsZero() {
		ev.ActionTime = time.Now()
	}
	return i.key.OnKeyEvent(ev)
}

// MoveMouse delivers a cursor offset to every node of the pointer chain.
func (i *Interceptor) MoveMouse(offsetX, offsetY int32) {
	i.pointer.OnMoveMouse(offsetX, offsetY)
}

// ClearEvents drops buffered state for source in both chains.
func (i *Interceptor) ClearEvents(source model.SourceID) {
	i.log.Debug("clear events", "source", source)
	i.pointer.ClearEvents(source)
	i.key.ClearEvents(source)
}

// ShieldZoomGesture suspends or resumes magnification gestures. The setting
// survives rebuilds.
func (i *Interceptor) ShieldZoomGesture(on bool) {
	i.mu.Lock()
	i.shielded = on
	if z := i.cur.Load().zoom; z != nil {
		z.Shield(on)
	}
	i.mu.Unlock()
	i.log.Debug("shield zoom gesture", "on", on)
}

// Viewport returns the magnifier state when magnification is enabled.
func (i *Interceptor) Viewport() (filters.Viewport, bool) {
	z := i.cur.Load().zoom
	if z == nil {
		return filters.Viewport{}, false
	}
	return z.Viewport(), true
}

// InjectGesture plays paths through the pointer chain on behalf of an
// assistive service.
func (i *Interceptor) InjectGesture(done filters.GestureDone, paths ...filters.GesturePath) error {
	inj := i.cur.Load().injector
	if inj == nil {
		return fmt.Errorf("inject gesture: %w", ErrFeatureDisabled)
	}
	if err := inj.InjectGesture(done, paths...); err != nil {
		return fmt.Errorf("inject gesture: %w", err)
	}
	return nil
}

// SubscribeKeys registers s with the key filter, now and after rebuilds.
func (i *Interceptor) SubscribeKeys(s filters.KeySubscriber) {
	i.mu.Lock()
	replaced := false
	for j, cur := range i.subs {
		if cur.Name() == s.Name() {
			i.subs[j] = s
			replaced = true
		}
	}
	if !replaced {
		i.subs = append(i.subs, s)
	}
	if f := i.cur.Load().keyFilter; f != nil {
		f.Subscribe(s)
	}
	i.mu.Unlock()
}

// UnsubscribeKeys removes the subscriber called name.
func (i *Interceptor) UnsubscribeKeys(name string) {
	i.mu.Lock()
	for j, cur := range i.subs {
		if cur.Name() == name {
			i.subs = append(i.subs[:j], i.subs[j+1:]...)
			break
		}
	}
	if f := i.cur.Load().keyFilter; f != nil {
		f.Unsubscribe(name)
	}
	i.mu.Unlock()
}

// SetKeyResult forwards a subscriber's answer to the key filter.
func (i *Interceptor) SetKeyResult(seq uint64, handled bool) bool {
	f := i.cur.Load().keyFilter
	if f == nil {
		return false
	}
	return f.SetResult(seq, handled)
}

// Chains describes the current pointer and key chains.
func (i *Interceptor) Chains() []ChainInfo {
	return []ChainInfo{
		{Name: i.pointer.Name(), Nodes: i.pointer.Names()},
		{Name: i.key.Name(), Nodes: i.key.Names()},
	}
}

// Stats returns what the sinks handed to the platform.
func (i *Interceptor) Stats() filters.SinkStats {
	p, k := i.pointerSink.Stats(), i.keySink.Stats()
	return filters.SinkStats{
		Delivered: p.Delivered + k.Delivered,
		Failed:    p.Failed + k.Failed,
		Moves:     p.Moves + k.Moves,
	}
}

// Close tears down both chains and closes the injector.
func (i *Interceptor) Close() error {
	i.reconfigure.Lock()
	defer i.reconfigure.Unlock()
	if i.closed {
		return nil
	}
	i.closed = true
	destroyed := len(i.pointer.Teardown()) + len(i.key.Teardown())
	i.log.Info("interceptor closed", "destroyed", destroyed)
	if err := i.injector.Close(); err != nil {
		return fmt.Errorf("close injector: %w", err)
	}
	return nil
}
