package tray

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"log"
	"sync"
)

const iconSize = 32

var (
	iconOnce sync.Once
	iconData []byte
)

// finder pattern rows for a 7x7 QR finder, 1 = dark.
var finder = [7]uint8{0x7f, 0x41, 0x5d, 0x5d, 0x5d, 0x41, 0x7f}

// IconPNG renders the tray icon: three QR finder patterns on white.
func IconPNG() []byte {
	img := image.NewNRGBA(image.Rect(0, 0, iconSize, iconSize))
	white := color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	dark := color.NRGBA{R: 0x1b, G: 0x1b, B: 0x1b, A: 0xff}
	for y := 0; y < iconSize; y++ {
		for x := 0; x < iconSize; x++ {
			img.SetNRGBA(x, y, white)
		}
	}

	const module = 2
	stamp := func(ox, oy int) {
		for row := 0; row < 7; row++ {
			for col := 0; col < 7; col++ {
				if finder[row]&(1<<(6-col)) == 0 {
					continue
				}
				for dy := 0; dy < module; dy++ {
					for dx := 0; dx < module; dx++ {
						img.SetNRGBA(ox+col*module+dx, oy+row*module+dy, dark)
					}
				}
			}
		}
	}
	stamp(1, 1)
	stamp(iconSize-1-7*module, 1)
	stamp(1, iconSize-1-7*module)
	// a few data modules in the free corner
	for i := 0; i < 4; i++ {
		img.SetNRGBA(20+i*3, 20+i*2, dark)
		img.SetNRGBA(21+i*3, 20+i*2, dark)
		img.SetNRGBA(20+i*3, 21+i*2, dark)
		img.SetNRGBA(21+i*3, 21+i*2, dark)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		log.Printf("tray: failed to encode icon: %v", err)
		return nil
	}
	return buf.Bytes()
}

// Icon returns the icon bytes in the format the platform tray expects.
func Icon() []byte {
	iconOnce.Do(func() {
		iconData = platformIcon(IconPNG())
	})
	return iconData
}
