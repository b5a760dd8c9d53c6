// Package qrtest renders QR symbols into images for tests.
package qrtest

import (
	"image"
	"image/color"
	"testing"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
	"golang.org/x/image/draw"
)

// Symbol encodes text as a QR symbol (with quiet zone) at least size pixels wide.
func Symbol(t testing.TB, text string, size int) *image.Gray {
	t.Helper()
	m, err := qrcode.NewQRCodeWriter().Encode(text, gozxing.BarcodeFormat_QR_CODE, size, size, nil)
	if err != nil {
		t.Fatalf("encode %q: %v", text, err)
	}
	img := image.NewGray(image.Rect(0, 0, m.GetWidth(), m.GetHeight()))
	for y := 0; y < m.GetHeight(); y++ {
		for x := 0; x < m.GetWidth(); x++ {
			if m.Get(x, y) {
				img.SetGray(x, y, color.Gray{Y: 0})
			} else {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return img
}

// Viewport returns a w*h white raster with sym pasted at origin, scaled by
// factor with nearest-neighbour sampling so module edges stay sharp.
func Viewport(w, h int, sym image.Image, origin image.Point, factor float64) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	sb := sym.Bounds()
	dw := int(float64(sb.Dx()) * factor)
	dh := int(float64(sb.Dy()) * factor)
	dr := image.Rect(origin.X, origin.Y, origin.X+dw, origin.Y+dh)
	draw.NearestNeighbor.Scale(img, dr, sym, sb, draw.Src, nil)
	return img
}

// RGBA flattens img into a packed non-premultiplied RGBA buffer.
func RGBA(img image.Image) ([]byte, int, int) {
	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out.Pix, b.Dx(), b.Dy()
}
