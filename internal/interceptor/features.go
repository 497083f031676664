package interceptor

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Feature is a bit set of accessibility capabilities. The values match the
// capability flags assistive services request.
type Feature uint32

const (
	ScreenMagnification Feature = 0x1
	TouchExploration    Feature = 0x2
	FilterKeyEvents     Feature = 0x4
	InjectTouchEvents   Feature = 0x8
	MouseAutoclick      Feature = 0x10 // reserved; no node implements it yet
	MouseKey            Feature = 0x40
	ScreenTouch         Feature = 0x80
)

// FeatureNames maps config and CLI names to features.
var FeatureNames = map[string]Feature{
	"magnification":       ScreenMagnification,
	"touch_exploration":   TouchExploration,
	"filter_key_events":   FilterKeyEvents,
	"inject_touch_events": InjectTouchEvents,
	"mouse_autoclick":     MouseAutoclick,
	"mouse_key":           MouseKey,
	"screen_touch":        ScreenTouch,
}

// AllFeatures lists every known feature in bit order.
func AllFeatures() []Feature {
	out := make([]Feature, 0, len(FeatureNames))
	for _, f := range FeatureNames {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Has reports whether every bit of g is set in f.
func (f Feature) Has(g Feature) bool { return f&g == g }

// Names returns the names of the set bits in bit order. Unknown bits are
// rendered in hex.
func (f Feature) Names() []string {
	var names []string
	rest := f
	for _, g := range AllFeatures() {
		if f.Has(g) {
			names = append(names, g.name())
			rest &^= g
		}
	}
	if rest != 0 {
		names = append(names, fmt.Sprintf("0x%x", uint32(rest)))
	}
	return names
}

func (f Feature) name() string {
	for name, g := range FeatureNames {
		if g == f {
			return name
		}
	}
	return fmt.Sprintf("0x%x", uint32(f))
}

func (f Feature) String() string {
	if f == 0 {
		return "none"
	}
	return strings.Join(f.Names(), "|")
}

// ParseFeatures parses a comma or pipe separated list of feature names or
// numeric masks ("0x3", "130"). An empty string or "none" is the empty set.
func ParseFeatures(s string) (Feature, error) {
	var f Feature
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == '|' }) {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" || part == "none" {
			continue
		}
		if g, ok := FeatureNames[part]; ok {
			f |= g
			continue
		}
		n, err := strconv.ParseUint(part, 0, 32)
		if err != nil {
			return 0, fmt.Errorf("unknown feature %q", part)
		}
		f |= Feature(n)
	}
	return f, nil
}
