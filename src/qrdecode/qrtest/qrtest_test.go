package qrtest

import (
	"image"
	"image/color"
	"testing"
)

func TestViewportScalesSymbol(t *testing.T) {
	sym := image.NewGray(image.Rect(0, 0, 2, 2))
	sym.SetGray(0, 0, color.Gray{Y: 0})
	sym.SetGray(1, 0, color.Gray{Y: 255})
	sym.SetGray(0, 1, color.Gray{Y: 255})
	sym.SetGray(1, 1, color.Gray{Y: 0})

	img := Viewport(20, 20, sym, image.Pt(5, 5), 3)

	tests := []struct {
		x, y  int
		black bool
	}{
		{4, 4, false},
		{5, 5, true},
		{7, 7, true},
		{8, 5, false},
		{5, 8, false},
		{10, 10, true},
		{11, 11, false},
	}
	for _, tt := range tests {
		r, _, _, _ := img.At(tt.x, tt.y).RGBA()
		if got := r == 0; got != tt.black {
			t.Errorf("pixel (%d,%d) black=%v, expected %v", tt.x, tt.y, got, tt.black)
		}
	}
}

func TestViewportZeroFactorIsBlank(t *testing.T) {
	img := Viewport(8, 8, Symbol(t, "x", 21), image.Point{}, 0)
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			if r, _, _, _ := img.At(x, y).RGBA(); r != 0xffff {
				t.Fatalf("pixel (%d,%d) not white", x, y)
			}
		}
	}
}
