// Package config handles configuration loading, validation and hot reload for
// a11y-chain.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/mj1618/a11y-chain/internal/filters"
	"github.com/mj1618/a11y-chain/internal/interceptor"
	"github.com/mj1618/a11y-chain/internal/logging"
	"github.com/mj1618/a11y-chain/internal/platform"
)

// Environment variables applied on top of the file.
const (
	EnvLogLevel = "A11Y_CHAIN_LOG_LEVEL"
	EnvFeatures = "A11Y_CHAIN_FEATURES"
	EnvConfig   = "A11Y_CHAIN_CONFIG"
)

// Config holds the complete a11y-chain configuration.
type Config struct {
	// Features selects the accessibility capabilities to enable.
	Features FeaturesConfig `toml:"features" json:"features" yaml:"features"`

	// ScreenTouch tunes touch timing for users with limited dexterity.
	ScreenTouch ScreenTouchConfig `toml:"screen_touch" json:"screen_touch" yaml:"screen_touch"`

	// Zoom configures the screen magnifier.
	Zoom ZoomConfig `toml:"zoom" json:"zoom" yaml:"zoom"`

	// Gesture configures gesture recognition, key filtering and injection.
	Gesture GestureConfig `toml:"gesture" json:"gesture" yaml:"gesture"`

	// Observer selects where accessibility events go.
	Observer ObserverConfig `toml:"observer" json:"observer" yaml:"observer"`

	// Logging configuration.
	Logging LoggingConfig `toml:"logging" json:"logging" yaml:"logging"`
}

// FeaturesConfig has one switch per capability.
type FeaturesConfig struct {
	Magnification     bool `toml:"magnification" json:"magnification" yaml:"magnification"`
	TouchExploration  bool `toml:"touch_exploration" json:"touch_exploration" yaml:"touch_exploration"`
	FilterKeyEvents   bool `toml:"filter_key_events" json:"filter_key_events" yaml:"filter_key_events"`
	InjectTouchEvents bool `toml:"inject_touch_events" json:"inject_touch_events" yaml:"inject_touch_events"`
	MouseAutoclick    bool `toml:"mouse_autoclick" json:"mouse_autoclick" yaml:"mouse_autoclick"`
	MouseKey          bool `toml:"mouse_key" json:"mouse_key" yaml:"mouse_key"`
	ScreenTouch       bool `toml:"screen_touch" json:"screen_touch" yaml:"screen_touch"`
}

// ScreenTouchConfig mirrors filters.ScreenTouchConfig.
type ScreenTouchConfig struct {
	// ClickResponseLevel selects the hold delay: 0 none, 1 short, 2 long.
	ClickResponseLevel int `toml:"click_response_level" json:"click_response_level" yaml:"click_response_level"`

	// IgnoreRepeatClick drops touches that start soon after a release.
	IgnoreRepeatClick bool `toml:"ignore_repeat_click" json:"ignore_repeat_click" yaml:"ignore_repeat_click"`

	// IgnoreRepeatLevel selects the repeat window, 0 (shortest) to 4.
	IgnoreRepeatLevel int `toml:"ignore_repeat_level" json:"ignore_repeat_level" yaml:"ignore_repeat_level"`

	// MoveThreshold is the movement in pixels that releases a held touch.
	MoveThreshold float64 `toml:"move_threshold" json:"move_threshold" yaml:"move_threshold"`
}

// ZoomConfig configures magnification.
type ZoomConfig struct {
	Scale        float64 `toml:"scale" json:"scale" yaml:"scale"`
	MinScale     float64 `toml:"min_scale" json:"min_scale" yaml:"min_scale"`
	MaxScale     float64 `toml:"max_scale" json:"max_scale" yaml:"max_scale"`
	ScreenWidth  int     `toml:"screen_width" json:"screen_width" yaml:"screen_width"`
	ScreenHeight int     `toml:"screen_height" json:"screen_height" yaml:"screen_height"`
}

// GestureConfig configures touch exploration and the ability-facing nodes.
type GestureConfig struct {
	MinSwipeDistance   float64 `toml:"min_swipe_distance" json:"min_swipe_distance" yaml:"min_swipe_distance"`
	DoubleTapTimeoutMs int     `toml:"double_tap_timeout_ms" json:"double_tap_timeout_ms" yaml:"double_tap_timeout_ms"`
	KeyTimeoutMs       int     `toml:"key_timeout_ms" json:"key_timeout_ms" yaml:"key_timeout_ms"`
	StrokeGapMs        int     `toml:"stroke_gap_ms" json:"stroke_gap_ms" yaml:"stroke_gap_ms"`
}

// ObserverConfig selects accessibility event sinks.
type ObserverConfig struct {
	// DBus emits every event as a session bus signal.
	DBus bool `toml:"dbus" json:"dbus" yaml:"dbus"`

	// JournalPath is a sqlite file events are appended to. Empty disables it.
	JournalPath string `toml:"journal_path" json:"journal_path" yaml:"journal_path"`

	// Buffer is the size of the hub's delivery queue.
	Buffer int `toml:"buffer" json:"buffer" yaml:"buffer"`

	// Recent is how many events the hub keeps for inspection.
	Recent int `toml:"recent" json:"recent" yaml:"recent"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	Level  string `toml:"level" json:"level" yaml:"level"`
	Format string `toml:"format" json:"format" yaml:"format"`
	Output string `toml:"output" json:"output" yaml:"output"`
}

// Default returns a configuration with every feature off and the default
// timings.
func Default() *Config {
	rec := filters.DefaultRecognizerConfig()
	zoom := filters.DefaultZoomConfig()
	return &Config{
		ScreenTouch: ScreenTouchConfig{
			MoveThreshold: 36,
		},
		Zoom: ZoomConfig{
			Scale:        zoom.Scale,
			MinScale:     zoom.MinScale,
			MaxScale:     zoom.MaxScale,
			ScreenWidth:  platform.DefaultScreen.Width,
			ScreenHeight: platform.DefaultScreen.Height,
		},
		Gesture: GestureConfig{
			MinSwipeDistance:   rec.MinSwipeDistance,
			DoubleTapTimeoutMs: int(rec.DoubleTapTimeout / time.Millisecond),
			KeyTimeoutMs:       int(filters.DefaultKeyResultTimeout / time.Millisecond),
			StrokeGapMs:        int(filters.DefaultStrokeGap / time.Millisecond),
		},
		Observer: ObserverConfig{
			Buffer: 256,
			Recent: 100,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}

// Dir returns the per-user configuration directory.
func Dir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "a11y-chain")
	}
	return ".a11y-chain"
}

// Path returns the configuration file to use: $A11Y_CHAIN_CONFIG or the
// default location.
func Path() string {
	if p := os.Getenv(EnvConfig); p != "" {
		return p
	}
	return filepath.Join(Dir(), "a11y-chain.toml")
}

// Load reads the configuration at path, applies environment overrides and
// validates the result. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		path = Path()
	}
	cfg, err := loadFile(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFile decodes path by extension on top of the defaults.
func loadFile(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	switch filepath.Ext(path) {
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("decode JSON: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("decode YAML: %w", err)
		}
	default:
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("decode TOML: %w", err)
		}
	}
	return cfg, nil
}

// ApplyEnvOverrides applies A11Y_CHAIN_LOG_LEVEL and A11Y_CHAIN_FEATURES. The
// features variable replaces the [features] table entirely; "none" turns
// everything off.
func (c *Config) ApplyEnvOverrides() error {
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(EnvFeatures); v != "" {
		mask, err := interceptor.ParseFeatures(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvFeatures, err)
		}
		c.SetFeatureMask(mask)
	}
	return nil
}

// FeatureMask returns the enabled features as a bitmask.
func (c *Config) FeatureMask() interceptor.Feature {
	var mask interceptor.Feature
	set := func(on bool, f interceptor.Feature) {
		if on {
			mask |= f
		}
	}
	set(c.Features.Magnification, interceptor.ScreenMagnification)
	set(c.Features.TouchExploration, interceptor.TouchExploration)
	set(c.Features.FilterKeyEvents, interceptor.FilterKeyEvents)
	set(c.Features.InjectTouchEvents, interceptor.InjectTouchEvents)
	set(c.Features.MouseAutoclick, interceptor.MouseAutoclick)
	set(c.Features.MouseKey, interceptor.MouseKey)
	set(c.Features.ScreenTouch, interceptor.ScreenTouch)
	return mask
}

// SetFeatureMask sets the feature switches from mask. Unknown bits are lost.
func (c *Config) SetFeatureMask(mask interceptor.Feature) {
	c.Features = FeaturesConfig{
		Magnification:     mask.Has(interceptor.ScreenMagnification),
		TouchExploration:  mask.Has(interceptor.TouchExploration),
		FilterKeyEvents:   mask.Has(interceptor.FilterKeyEvents),
		InjectTouchEvents: mask.Has(interceptor.InjectTouchEvents),
		MouseAutoclick:    mask.Has(interceptor.MouseAutoclick),
		MouseKey:          mask.Has(interceptor.MouseKey),
		ScreenTouch:       mask.Has(interceptor.ScreenTouch),
	}
}

// Screen returns the configured screen geometry.
func (c *Config) Screen() platform.Bounds {
	return platform.Bounds{Width: c.Zoom.ScreenWidth, Height: c.Zoom.ScreenHeight}
}

// Options maps the configuration onto interceptor node settings.
func (c *Config) Options() interceptor.Options {
	opts := interceptor.DefaultOptions()
	opts.Recognizer.MinSwipeDistance = c.Gesture.MinSwipeDistance
	opts.Recognizer.DoubleTapTimeout = time.Duration(c.Gesture.DoubleTapTimeoutMs) * time.Millisecond
	opts.Zoom.Scale = c.Zoom.Scale
	opts.Zoom.MinScale = c.Zoom.MinScale
	opts.Zoom.MaxScale = c.Zoom.MaxScale
	opts.Zoom.Screen = c.Screen()
	opts.ScreenTouch = filters.ScreenTouchConfig{
		ClickResponseLevel: c.ScreenTouch.ClickResponseLevel,
		IgnoreRepeatClick:  c.ScreenTouch.IgnoreRepeatClick,
		IgnoreRepeatLevel:  c.ScreenTouch.IgnoreRepeatLevel,
		MoveThreshold:      c.ScreenTouch.MoveThreshold,
	}
	opts.KeyTimeout = time.Duration(c.Gesture.KeyTimeoutMs) * time.Millisecond
	opts.StrokeGap = time.Duration(c.Gesture.StrokeGapMs) * time.Millisecond
	return opts
}

// LogConfig converts the [logging] table for the logging package.
func (c *Config) LogConfig() (*logging.Config, error) {
	out := logging.DefaultConfig()
	level, err := logging.ParseLevel(c.Logging.Level)
	if err != nil {
		return nil, err
	}
	format, err := logging.ParseFormat(c.Logging.Format)
	if err != nil {
		return nil, err
	}
	out.Level = level
	out.Format = format
	if c.Logging.Output != "" {
		out.Output = c.Logging.Output
	}
	return out, nil
}

// YAML renders the configuration as YAML.
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}

// TOML renders the configuration as TOML.
func (c *Config) TOML() ([]byte, error) {
	var b strings.Builder
	if err := toml.NewEncoder(&b).Encode(c); err != nil {
		return nil, fmt.Errorf("encode TOML: %w", err)
	}
	return []byte(b.String()), nil
}

// Save writes the configuration to path as TOML, creating parent directories.
func Save(c *Config, path string) error {
	data, err := c.TOML()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
