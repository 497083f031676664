package script

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/mj1618/a11y-chain/internal/filters"
	"github.com/mj1618/a11y-chain/internal/interceptor"
	"github.com/mj1618/a11y-chain/internal/model"
	"github.com/mj1618/a11y-chain/internal/output"
)

// Kinds lists the supported step kinds.
var Kinds = []string{"pointer", "key", "move", "clear", "features", "shield", "gesture", "sleep"}

type contact struct {
	device model.SourceID
	id     int32
}

// Executor turns steps into interceptor calls. It tracks pressed pointers and
// keys so each event carries the full set of active contacts.
type Executor struct {
	ic   *interceptor.Interceptor
	base time.Time

	mu       sync.Mutex
	pointers map[contact]model.PointerItem
	keys     map[model.SourceID]map[model.KeyCode]bool
}

// NewExecutor returns an executor feeding ic. Step times given as "t" are
// milliseconds after the executor was created.
func NewExecutor(ic *interceptor.Interceptor) *Executor {
	return &Executor{
		ic:       ic,
		base:     time.Now(),
		pointers: make(map[contact]model.PointerItem),
		keys:     make(map[model.SourceID]map[model.KeyCode]bool),
	}
}

// Run executes steps in order. With stopOnError the first failing step ends
// the run; the error names the step.
func (e *Executor) Run(ctx context.Context, steps []Step, stopOnError bool) ([]output.StepResult, error) {
	results := make([]output.StepResult, 0, len(steps))
	var firstErr error
	for i, s := range steps {
		kind, params, err := s.Kind()
		var res output.StepResult
		if err == nil {
			res, err = e.Exec(ctx, kind, params)
		}
		res.Index = i + 1
		if err != nil {
			res.Error = err.Error()
			if firstErr == nil {
				firstErr = fmt.Errorf("step %d: %w", i+1, err)
			}
		}
		results = append(results, res)
		if err != nil && (stopOnError || ctx.Err() != nil) {
			break
		}
	}
	return results, firstErr
}

// Exec runs one step.
func (e *Executor) Exec(ctx context.Context, kind string, params map[string]interface{}) (output.StepResult, error) {
	res := output.StepResult{Kind: kind}
	var err error
	switch kind {
	case "pointer":
		err = e.execPointer(params, &res)
	case "key":
		err = e.execKey(params, &res)
	case "move":
		dx, dy := int32(IntParam(params, "dx", 0)), int32(IntParam(params, "dy", 0))
		e.ic.MoveMouse(dx, dy)
		res.Input = fmt.Sprintf("(%d,%d)", dx, dy)
	case "clear":
		device := model.SourceID(IntParam(params, "device", 0))
		e.forget(device)
		e.ic.ClearEvents(device)
		res.Input = fmt.Sprintf("device %d", device)
	case "features":
		err = e.execFeatures(params, &res)
	case "shield":
		on := BoolParam(params, "on", true)
		e.ic.ShieldZoomGesture(on)
		res.Input = fmt.Sprintf("%t", on)
	case "gesture":
		err = e.execGesture(ctx, params, &res)
	case "sleep":
		ms := IntParam(params, "ms", 0)
		if ms <= 0 {
			return res, fmt.Errorf("ms must be > 0")
		}
		res.Input = fmt.Sprintf("%dms", ms)
		select {
		case <-time.After(time.Duration(ms) * time.Millisecond):
		case <-ctx.Done():
			err = ctx.Err()
		}
	default:
		err = fmt.Errorf("unknown step kind %q: supported: %v", kind, Kinds)
	}
	return res, err
}

func (e *Executor) at(params map[string]interface{}) time.Time {
	if _, ok := params["t"]; !ok {
		return time.Now()
	}
	return e.base.Add(time.Duration(FloatParam(params, "t", 0) * float64(time.Millisecond)))
}

func (e *Executor) execPointer(params map[string]interface{}, res *output.StepResult) error {
	action, err := model.ParsePointerAction(StringParam(params, "action", ""))
	if err != nil {
		return err
	}
	source, err := model.ParseSource(StringParam(params, "source", "touchscreen"))
	if err != nil {
		return err
	}
	button, err := model.ParseButton(StringParam(params, "button", "none"))
	if err != nil {
		return err
	}
	if (action == model.PointerActionButtonDown || action == model.PointerActionButtonUp) && button == model.ButtonNone {
		button = model.ButtonLeft
	}
	device := model.SourceID(IntParam(params, "device", 0))
	at := e.at(params)
	item := model.PointerItem{
		ID: int32(IntParam(params, "id", 0)),
		X:  FloatParam(params, "x", 0),
		Y:  FloatParam(params, "y", 0),
	}

	ev := &model.PointerEvent{
		Source:     source,
		Device:     device,
		Action:     action,
		PointerID:  item.ID,
		Button:     button,
		ActionTime: at,
	}
	ev.Pointers = e.track(device, action, item, at)
	res.Input = fmt.Sprintf("%s #%d (%g,%g)", action, item.ID, item.X, item.Y)
	res.Consumed = e.ic.ProcessPointerEvent(ev)
	return nil
}

// track updates the active contacts for action and returns the pointers the
// event carries.
func (e *Executor) track(device model.SourceID, action model.PointerAction, item model.PointerItem, at time.Time) []model.PointerItem {
	e.mu.Lock()
	defer e.mu.Unlock()
	key := contact{device, item.ID}
	if prev, ok := e.pointers[key]; ok {
		item.DownTime = prev.DownTime
		item.Pressed = prev.Pressed
	}
	switch action {
	case model.PointerActionDown, model.PointerActionButtonDown:
		item.Pressed = true
		item.DownTime = at
		e.pointers[key] = item
	case model.PointerActionMove:
		if _, ok := e.pointers[key]; ok {
			e.pointers[key] = item
		}
	}

	out := e.active(device)
	if _, ok := e.pointers[key]; !ok {
		out = append(out, item)
	} else {
		for i := range out {
			if out[i].ID == item.ID {
				out[i] = item
			}
		}
	}

	switch action {
	case model.PointerActionUp, model.PointerActionButtonUp:
		delete(e.pointers, key)
	case model.PointerActionCancel:
		for k := range e.pointers {
			if k.device == device {
				delete(e.pointers, k)
			}
		}
	}
	return out
}

func (e *Executor) active(device model.SourceID) []model.PointerItem {
	var out []model.PointerItem
	for k, p := range e.pointers {
		if k.device == device {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (e *Executor) forget(device model.SourceID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for k := range e.pointers {
		if k.device == device {
			delete(e.pointers, k)
		}
	}
	delete(e.keys, device)
}

func (e *Executor) execKey(params map[string]interface{}, res *output.StepResult) error {
	code, err := model.ParseKeyCode(StringParam(params, "key", ""))
	if err != nil {
		return err
	}
	if code == model.KeyUnknown {
		return fmt.Errorf("key is required")
	}
	device := model.SourceID(IntParam(params, "device", 0))
	actionName := StringParam(params, "action", "press")
	res.Input = fmt.Sprintf("%s %s", actionName, code)

	if actionName == "press" {
		down := e.keyEvent(device, code, model.KeyActionDown, e.at(params))
		res.Consumed = e.ic.ProcessKeyEvent(down)
		up := e.keyEvent(device, code, model.KeyActionUp, e.at(params))
		e.ic.ProcessKeyEvent(up)
		return nil
	}
	action, err := model.ParseKeyAction(actionName)
	if err != nil {
		return err
	}
	res.Consumed = e.ic.ProcessKeyEvent(e.keyEvent(device, code, action, e.at(params)))
	return nil
}

func (e *Executor) keyEvent(device model.SourceID, code model.KeyCode, action model.KeyAction, at time.Time) *model.KeyEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	held := e.keys[device]
	if held == nil {
		held = make(map[model.KeyCode]bool)
		e.keys[device] = held
	}
	if action == model.KeyActionDown {
		held[code] = true
	}
	pressed := make([]model.KeyCode, 0, len(held))
	for k := range held {
		pressed = append(pressed, k)
	}
	sort.Slice(pressed, func(i, j int) bool { return pressed[i] < pressed[j] })
	switch action {
	case model.KeyActionUp:
		delete(held, code)
	case model.KeyActionCancel:
		delete(e.keys, device)
	}
	return &model.KeyEvent{Device: device, Code: code, Action: action, Pressed: pressed, ActionTime: at}
}

func (e *Executor) execFeatures(params map[string]interface{}, res *output.StepResult) error {
	mask, err := interceptor.ParseFeatures(StringParam(params, "set", ""))
	if err != nil {
		return err
	}
	rebuilt, err := e.ic.SetAvailableFunctions(mask)
	if err != nil {
		return err
	}
	res.Input = mask.String()
	if !rebuilt {
		res.Input += " (unchanged)"
	}
	return nil
}

// GesturePaths decodes the "paths" parameter of a gesture step.
func GesturePaths(params map[string]interface{}) ([]filters.GesturePath, error) {
	raw := ListParam(params, "paths")
	if len(raw) == 0 {
		return nil, fmt.Errorf("gesture needs at least one path: %w", filters.ErrEmptyGesture)
	}
	paths := make([]filters.GesturePath, 0, len(raw))
	for i, p := range raw {
		points := ListParam(p, "points")
		if len(points) == 0 {
			return nil, fmt.Errorf("path %d: %w", i+1, filters.ErrEmptyGesture)
		}
		gp := filters.GesturePath{
			Duration: time.Duration(IntParam(p, "duration_ms", 0)) * time.Millisecond,
		}
		for _, pt := range points {
			gp.Points = append(gp.Points, filters.GesturePoint{X: FloatParam(pt, "x", 0), Y: FloatParam(pt, "y", 0)})
		}
		paths = append(paths, gp)
	}
	return paths, nil
}

func (e *Executor) execGesture(ctx context.Context, params map[string]interface{}, res *output.StepResult) error {
	paths, err := GesturePaths(params)
	if err != nil {
		return err
	}
	res.Input = fmt.Sprintf("%d path(s)", len(paths))
	if !BoolParam(params, "wait", true) {
		return e.ic.InjectGesture(nil, paths...)
	}
	done := make(chan bool, 1)
	if err := e.ic.InjectGesture(func(completed bool) { done <- completed }, paths...); err != nil {
		return err
	}
	select {
	case completed := <-done:
		if !completed {
			return fmt.Errorf("gesture cancelled")
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
