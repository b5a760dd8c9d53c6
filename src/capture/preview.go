package capture

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"

	"qr-region-select/src/geometry"
)

const (
	MinPreviewSize     = 100
	MaxPreviewSize     = 180
	DefaultPreviewSize = MaxPreviewSize
	previewStroke      = 2
)

var (
	polygonColor = color.NRGBA{R: 0x00, G: 0xff, B: 0x00, A: 0xff}
	borderColor  = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
)

// ClampPreviewSize keeps a configured preview edge inside the supported range.
// Zero or negative selects the default.
func ClampPreviewSize(size int) int {
	switch {
	case size <= 0:
		return DefaultPreviewSize
	case size < MinPreviewSize:
		return MinPreviewSize
	case size > MaxPreviewSize:
		return MaxPreviewSize
	}
	return size
}

// RenderPreview scales src into a size x size square. The aspect ratio is not
// preserved, matching how the polygon is later mapped onto it.
func RenderPreview(src image.Image, size int) *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, size, size))
	draw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}

// MarkPreview highlights a found symbol on a preview rendered from a
// srcW x srcH crop. With a polygon the outline is drawn in green; without one
// a white inset border flags the hit.
func MarkPreview(preview *image.NRGBA, polygon []geometry.Point, srcW, srcH int) {
	if preview == nil || srcW <= 0 || srcH <= 0 {
		return
	}
	size := preview.Rect.Dx()
	if len(polygon) < 2 {
		inset := float64(previewStroke)
		far := float64(size) - 2*inset
		border := []geometry.Point{
			geometry.Pt(inset, inset),
			geometry.Pt(far, inset),
			geometry.Pt(far, far),
			geometry.Pt(inset, far),
		}
		strokePolygon(preview, border, borderColor)
		return
	}

	sx := float64(size) / float64(srcW)
	sy := float64(preview.Rect.Dy()) / float64(srcH)
	scaled := make([]geometry.Point, len(polygon))
	for i, p := range polygon {
		scaled[i] = geometry.Pt(p.X*sx, p.Y*sy)
	}
	strokePolygon(preview, scaled, polygonColor)
}

func strokePolygon(img *image.NRGBA, pts []geometry.Point, c color.NRGBA) {
	for i := range pts {
		strokeLine(img, pts[i], pts[(i+1)%len(pts)], c)
	}
}

// strokeLine walks the segment one pixel at a time and stamps a square pen.
func strokeLine(img *image.NRGBA, a, b geometry.Point, c color.NRGBA) {
	dx, dy := b.X-a.X, b.Y-a.Y
	steps := int(math.Ceil(math.Max(math.Abs(dx), math.Abs(dy))))
	if steps == 0 {
		steps = 1
	}
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		x := int(math.Round(a.X + dx*t))
		y := int(math.Round(a.Y + dy*t))
		for oy := 0; oy < previewStroke; oy++ {
			for ox := 0; ox < previewStroke; ox++ {
				px, py := x+ox-previewStroke/2, y+oy-previewStroke/2
				if image.Pt(px, py).In(img.Rect) {
					img.SetNRGBA(px, py, c)
				}
			}
		}
	}
}
