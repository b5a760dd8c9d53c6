package geometry

import (
	"fmt"
	"image"
	"math"
)

// Point is a pointer position in viewport space. Fractional values are
// allowed; they are rounded when a rectangle is produced.
type Point struct {
	X float64
	Y float64
}

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y float64) Point { return Point{X: x, Y: y} }

// Size is the extent of the viewport the pointer events are expressed in.
type Size struct {
	Width  int
	Height int
}

// Empty reports whether the size has no area.
func (s Size) Empty() bool { return s.Width <= 0 || s.Height <= 0 }

// Rect is a capture rectangle in viewport pixels. Width and Height are never
// negative when produced by Normalize or Clamp.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Empty reports whether the rectangle has zero area.
func (r Rect) Empty() bool { return r.Width <= 0 || r.Height <= 0 }

func (r Rect) String() string {
	return fmt.Sprintf("%dx%d+%d+%d", r.Width, r.Height, r.X, r.Y)
}

// Image returns r as an image.Rectangle in the same space.
func (r Rect) Image() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// Scale maps r into a raster that is factor times denser than viewport space.
// Each coordinate is rounded independently to whole pixels.
func (r Rect) Scale(factor float64) image.Rectangle {
	x := int(math.Round(float64(r.X) * factor))
	y := int(math.Round(float64(r.Y) * factor))
	w := int(math.Round(float64(r.Width) * factor))
	h := int(math.Round(float64(r.Height) * factor))
	return image.Rect(x, y, x+w, y+h)
}

// Mapper turns the two corners of a drag into a capture rectangle.
type Mapper interface {
	Normalize(p1, p2 Point) Rect
}

// ViewportMapper is the default Mapper. It works purely in viewport
// coordinates and ignores any scroll offset.
type ViewportMapper struct{}

// Normalize implements Mapper.
func (ViewportMapper) Normalize(p1, p2 Point) Rect { return Normalize(p1, p2) }

// Normalize returns the rectangle spanned by p1 and p2 regardless of the order
// the corners were given in. Degenerate drags yield a zero-area rectangle.
func Normalize(p1, p2 Point) Rect {
	left := math.Round(math.Min(p1.X, p2.X))
	top := math.Round(math.Min(p1.Y, p2.Y))
	right := math.Round(math.Max(p1.X, p2.X))
	bottom := math.Round(math.Max(p1.Y, p2.Y))
	return Rect{
		X:      int(left),
		Y:      int(top),
		Width:  int(right - left),
		Height: int(bottom - top),
	}
}

// Clamp intersects r with the viewport. A rectangle entirely outside the
// viewport collapses to zero area at the nearest edge.
func Clamp(r Rect, vp Size) Rect {
	x0 := clampInt(r.X, 0, vp.Width)
	y0 := clampInt(r.Y, 0, vp.Height)
	x1 := clampInt(r.X+r.Width, 0, vp.Width)
	y1 := clampInt(r.Y+r.Height, 0, vp.Height)
	if x1 < x0 {
		x1 = x0
	}
	if y1 < y0 {
		y1 = y0
	}
	return Rect{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

func clampInt(v, lo, hi int) int {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
