package magnify

import (
	"image"
	"image/color"
	"testing"

	"github.com/mj1618/a11y-chain/internal/filters"
)

func TestSourceRect(t *testing.T) {
	bounds := image.Rect(0, 0, 1920, 1080)
	tests := []struct {
		name   string
		cx, cy float64
		scale  float64
		want   image.Rectangle
	}{
		{"unzoomed", 960, 540, 1, bounds},
		{"centered 2x", 960, 540, 2, image.Rect(480, 270, 1440, 810)},
		{"clamped to top left", 0, 0, 2, image.Rect(0, 0, 960, 540)},
		{"clamped to bottom right", 1920, 1080, 4, image.Rect(1440, 810, 1920, 1080)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SourceRect(bounds, tt.cx, tt.cy, tt.scale); got != tt.want {
				t.Errorf("SourceRect = %v, want %v", got, tt.want)
			}
		})
	}
}

// quadrants returns a 200x100 image whose left half is red and right half blue.
func quadrants() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 200, 100))
	red := color.RGBA{R: 255, A: 255}
	blue := color.RGBA{B: 255, A: 255}
	for y := 0; y < 100; y++ {
		for x := 0; x < 200; x++ {
			if x < 100 {
				img.SetRGBA(x, y, red)
			} else {
				img.SetRGBA(x, y, blue)
			}
		}
	}
	return img
}

func TestRender(t *testing.T) {
	src := quadrants()

	out := Render(src, filters.Viewport{Scale: 2, CenterX: 50, CenterY: 50}, Options{Fast: true})
	if out.Bounds() != image.Rect(0, 0, 200, 100) {
		t.Fatalf("bounds = %v", out.Bounds())
	}
	if c := out.RGBAAt(150, 50); c.R < 200 || c.B > 50 {
		t.Errorf("zoomed into the red half, right side is %v", c)
	}

	out = Render(src, filters.Viewport{Scale: 1, CenterX: 100, CenterY: 50}, Options{})
	if c := out.RGBAAt(190, 50); c.B < 200 {
		t.Errorf("unzoomed right edge is %v, want blue", c)
	}
}

func TestRender_Overlays(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 200, 100))
	vp := filters.Viewport{State: "zoom_in", Scale: 2, CenterX: 100, CenterY: 50}

	plain := Render(src, vp, Options{})
	decorated := Render(src, vp, Options{Label: true, Focus: true})

	if countDiff(plain, decorated) == 0 {
		t.Fatal("overlays drew nothing")
	}
	if c := decorated.RGBAAt(100-16, 50); c != focusColor {
		t.Errorf("focus box edge = %v, want %v", c, focusColor)
	}
}

func countDiff(a, b *image.RGBA) int {
	n := 0
	for i := range a.Pix {
		if a.Pix[i] != b.Pix[i] {
			n++
		}
	}
	return n
}

func TestToRGBA(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 4, 4))
	gray.SetGray(1, 1, color.Gray{Y: 200})
	rgba := ToRGBA(gray)
	if c := rgba.RGBAAt(1, 1); c.R != 200 || c.A != 255 {
		t.Errorf("converted pixel = %v", c)
	}
	if ToRGBA(rgba) != rgba {
		t.Error("RGBA input should be returned as is")
	}
}

func TestCheckerboard(t *testing.T) {
	img := Checkerboard(80, 40, 20)
	if img.RGBAAt(25, 5) == img.RGBAAt(45, 5) {
		t.Error("adjacent cells share a color")
	}
}
