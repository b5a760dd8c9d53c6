// Package winpopup shows small topmost popups that never take focus.
package winpopup

import "image"

// Corner picks the screen corner a popup sits in.
type Corner int

const (
	BottomLeft Corner = iota
	BottomRight
)

const margin = 20

// Origin returns the top-left point of a w*h popup placed in corner c of screen.
func Origin(screen image.Rectangle, w, h int, c Corner) image.Point {
	x := screen.Min.X + margin
	if c == BottomRight {
		x = screen.Max.X - w - margin
	}
	y := screen.Max.Y - h - margin
	if x < screen.Min.X {
		x = screen.Min.X
	}
	if y < screen.Min.Y {
		y = screen.Min.Y
	}
	return image.Pt(x, y)
}

// Fit returns the largest rectangle with the aspect ratio of a srcW*srcH
// image that fits in box, centred.
func Fit(srcW, srcH int, box image.Rectangle) image.Rectangle {
	if srcW <= 0 || srcH <= 0 || box.Empty() {
		return image.Rectangle{}
	}
	w, h := box.Dx(), srcH*box.Dx()/srcW
	if h > box.Dy() {
		w, h = srcW*box.Dy()/srcH, box.Dy()
	}
	x := box.Min.X + (box.Dx()-w)/2
	y := box.Min.Y + (box.Dy()-h)/2
	return image.Rect(x, y, x+w, y+h)
}

// BGRA repacks img top-down as 32-bit BGRX pixels, the layout of a BI_RGB DIB.
// Translucent pixels are flattened onto white.
func BGRA(img *image.NRGBA) []byte {
	b := img.Rect
	out := make([]byte, 0, b.Dx()*b.Dy()*4)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[img.PixOffset(b.Min.X, y):]
		for x := 0; x < b.Dx(); x++ {
			p := row[x*4 : x*4+4]
			a := uint32(p[3])
			blend := func(c uint8) byte {
				return byte((uint32(c)*a + 255*(255-a)) / 255)
			}
			out = append(out, blend(p[2]), blend(p[1]), blend(p[0]), 0)
		}
	}
	return out
}

// ColorRef converts 0xRRGGBB into a GDI COLORREF (0x00BBGGRR).
func ColorRef(rgb uint32) uint32 {
	r := rgb >> 16 & 0xff
	g := rgb >> 8 & 0xff
	b := rgb & 0xff
	return b<<16 | g<<8 | r
}
