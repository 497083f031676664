package platform

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Bounds represents a screen rectangle. Y grows downwards.
type Bounds struct {
	X, Y, Width, Height int
}

// DefaultScreen is used when no screen geometry is configured.
var DefaultScreen = Bounds{Width: 1920, Height: 1080}

// ParseBBox parses a "x,y,w,h" string into a Bounds.
func ParseBBox(s string) (*Bounds, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return nil, fmt.Errorf("invalid bbox %q: expected x,y,w,h", s)
	}
	vals := make([]int, 4)
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("invalid bbox %q: %w", s, err)
		}
		vals[i] = v
	}
	if vals[2] < 0 || vals[3] < 0 {
		return nil, fmt.Errorf("invalid bbox %q: negative size", s)
	}
	return &Bounds{X: vals[0], Y: vals[1], Width: vals[2], Height: vals[3]}, nil
}

// Empty reports whether b has no area.
func (b Bounds) Empty() bool { return b.Width <= 0 || b.Height <= 0 }

// Contains reports whether the point lies inside b.
func (b Bounds) Contains(x, y float64) bool {
	return x >= float64(b.X) && x < float64(b.X+b.Width) &&
		y >= float64(b.Y) && y < float64(b.Y+b.Height)
}

// Center returns the midpoint of b.
func (b Bounds) Center() (float64, float64) {
	return float64(b.X) + float64(b.Width)/2, float64(b.Y) + float64(b.Height)/2
}

// Clamp moves the point to the nearest position inside b.
func (b Bounds) Clamp(x, y float64) (float64, float64) {
	maxX := float64(b.X + b.Width - 1)
	maxY := float64(b.Y + b.Height - 1)
	return math.Max(float64(b.X), math.Min(x, maxX)), math.Max(float64(b.Y), math.Min(y, maxY))
}
