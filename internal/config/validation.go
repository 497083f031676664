package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mj1618/a11y-chain/internal/logging"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid config")

// ValidationError describes one invalid field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// ValidationErrors is every problem found in one pass.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Is makes errors.Is(err, ErrInvalid) hold for any ValidationErrors.
func (e ValidationErrors) Is(target error) bool { return target == ErrInvalid }

// Validate checks ranges and names. It returns ValidationErrors.
func (c *Config) Validate() error {
	var errs ValidationErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if l := c.ScreenTouch.ClickResponseLevel; l < 0 || l > 2 {
		add("screen_touch.click_response_level", "must be 0..2, got %d", l)
	}
	if l := c.ScreenTouch.IgnoreRepeatLevel; l < 0 || l > 4 {
		add("screen_touch.ignore_repeat_level", "must be 0..4, got %d", l)
	}
	if c.ScreenTouch.MoveThreshold < 0 {
		add("screen_touch.move_threshold", "must not be negative")
	}

	z := c.Zoom
	if z.MinScale < 1 {
		add("zoom.min_scale", "must be at least 1, got %g", z.MinScale)
	}
	if z.MaxScale < z.MinScale {
		add("zoom.max_scale", "must be at least min_scale (%g), got %g", z.MinScale, z.MaxScale)
	}
	if z.Scale < z.MinScale || z.Scale > z.MaxScale {
		add("zoom.scale", "must be between min_scale and max_scale, got %g", z.Scale)
	}
	if z.ScreenWidth <= 0 || z.ScreenHeight <= 0 {
		add("zoom.screen", "must have a positive size, got %dx%d", z.ScreenWidth, z.ScreenHeight)
	}

	g := c.Gesture
	if g.MinSwipeDistance <= 0 {
		add("gesture.min_swipe_distance", "must be positive")
	}
	if g.DoubleTapTimeoutMs <= 0 {
		add("gesture.double_tap_timeout_ms", "must be positive")
	}
	if g.KeyTimeoutMs <= 0 {
		add("gesture.key_timeout_ms", "must be positive")
	}
	if g.StrokeGapMs < 0 {
		add("gesture.stroke_gap_ms", "must not be negative")
	}

	if c.Observer.Buffer <= 0 {
		add("observer.buffer", "must be positive")
	}
	if c.Observer.Recent < 0 {
		add("observer.recent", "must not be negative")
	}

	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		add("logging.level", "%v", err)
	}
	if _, err := logging.ParseFormat(c.Logging.Format); err != nil {
		add("logging.format", "%v", err)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
