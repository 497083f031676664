// Package magnify renders what the screen magnifier shows: the region of a
// screen image around the viewport center, scaled up to full size.
package magnify

import (
	"fmt"
	"image"
	"image/color"
	stddraw "image/draw"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/mj1618/a11y-chain/internal/filters"
)

// Options controls rendering.
type Options struct {
	// Label draws the scale and center in the top left corner.
	Label bool
	// Focus outlines the point under the viewport center.
	Focus bool
	// Fast uses approximate bilinear scaling instead of Catmull-Rom.
	Fast bool
}

var (
	textColor    = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	outlineColor = color.RGBA{R: 0, G: 0, B: 0, A: 200}
	focusColor   = color.RGBA{R: 255, G: 0, B: 0, A: 255}
)

// SourceRect returns the part of bounds visible at scale around (cx, cy).
// The rectangle keeps the aspect ratio of bounds and is shifted, not shrunk,
// to stay inside it.
func SourceRect(bounds image.Rectangle, cx, cy, scale float64) image.Rectangle {
	if scale <= 1 {
		return bounds
	}
	w := int(math.Round(float64(bounds.Dx()) / scale))
	h := int(math.Round(float64(bounds.Dy()) / scale))
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	x := int(math.Round(cx)) - w/2
	y := int(math.Round(cy)) - h/2
	x = clamp(x, bounds.Min.X, bounds.Max.X-w)
	y = clamp(y, bounds.Min.Y, bounds.Max.Y-h)
	return image.Rect(x, y, x+w, y+h)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Render returns the magnified view of src for vp. The output has the size
// of src.
func Render(src image.Image, vp filters.Viewport, opts Options) *image.RGBA {
	bounds := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	scale := vp.Scale
	if scale < 1 {
		scale = 1
	}
	sr := SourceRect(bounds, vp.CenterX, vp.CenterY, scale)

	var scaler draw.Interpolator = draw.CatmullRom
	if opts.Fast {
		scaler = draw.ApproxBiLinear
	}
	scaler.Scale(dst, dst.Bounds(), src, sr, draw.Src, nil)

	if opts.Focus {
		fx := int(math.Round((vp.CenterX - float64(sr.Min.X)) * float64(dst.Bounds().Dx()) / float64(sr.Dx())))
		fy := int(math.Round((vp.CenterY - float64(sr.Min.Y)) * float64(dst.Bounds().Dy()) / float64(sr.Dy())))
		half := int(8 * scale)
		drawRectangle(dst, fx-half, fy-half, fx+half, fy+half, focusColor)
	}
	if opts.Label {
		label := fmt.Sprintf("%.1fx (%.0f,%.0f) %s", scale, vp.CenterX, vp.CenterY, vp.State)
		drawTextWithOutline(dst, label, 4, 4+13)
	}
	return dst
}

// ToRGBA converts any image to RGBA.
func ToRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	b := img.Bounds()
	rgba := image.NewRGBA(b)
	stddraw.Draw(rgba, b, img, b.Min, stddraw.Src)
	return rgba
}

// Checkerboard returns a w x h test pattern with cell sized squares and a
// grid coordinate label in every fourth cell, for previewing without a
// screen capture.
func Checkerboard(w, h, cell int) *image.RGBA {
	if cell <= 0 {
		cell = 40
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	light := color.RGBA{R: 230, G: 230, B: 230, A: 255}
	dark := color.RGBA{R: 90, G: 110, B: 140, A: 255}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := light
			if (x/cell+y/cell)%2 == 1 {
				c = dark
			}
			img.SetRGBA(x, y, c)
		}
	}
	for y := 0; y < h; y += cell * 4 {
		for x := 0; x < w; x += cell * 4 {
			drawTextWithOutline(img, fmt.Sprintf("%d,%d", x, y), x+2, y+13)
		}
	}
	return img
}

// drawRectangle outlines the rectangle, clipped to the image.
func drawRectangle(img *image.RGBA, x1, y1, x2, y2 int, c color.Color) {
	b := img.Bounds()
	for x := x1; x < x2; x++ {
		setIn(img, b, x, y1, c)
		setIn(img, b, x, y2-1, c)
	}
	for y := y1; y < y2; y++ {
		setIn(img, b, x1, y, c)
		setIn(img, b, x2-1, y, c)
	}
}

func setIn(img *image.RGBA, b image.Rectangle, x, y int, c color.Color) {
	if image.Pt(x, y).In(b) {
		img.Set(x, y, c)
	}
}

// drawTextWithOutline draws text with its baseline at (x, y) in basicfont
// with a one pixel dark outline.
func drawTextWithOutline(img *image.RGBA, text string, x, y int) {
	draw1 := func(dx, dy int, c color.Color) {
		d := &font.Drawer{
			Dst:  img,
			Src:  image.NewUniform(c),
			Face: basicfont.Face7x13,
			Dot:  fixed.P(x+dx, y+dy),
		}
		d.DrawString(text)
	}
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			if dx != 0 || dy != 0 {
				draw1(dx, dy, outlineColor)
			}
		}
	}
	draw1(0, 0, textColor)
}
