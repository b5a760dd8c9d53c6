//go:build windows

package popup

import (
	"image"
	"log"

	"qr-region-select/src/logutil"
	"qr-region-select/src/winpopup"
)

const (
	previewPad        = 8
	captionHeight     = 44
	maxCaptionText    = 160
	previewBackground = 0xFFFFFF
	captionFound      = 0x1B5E20
	captionMissing    = 0xB71C1C
)

type screenDisplay struct {
	window *winpopup.Window
	box    int
}

// NewScreenDisplay returns a Display that shows each preview, the crop with
// its caption below, in a popup in the lower-right corner of the primary screen.
func NewScreenDisplay(size int) Display {
	w := size + 2*previewPad
	h := size + 2*previewPad + captionHeight
	return &screenDisplay{
		window: winpopup.New("QRSelectPreview", w, h, winpopup.BottomRight),
		box:    size,
	}
}

func (d *screenDisplay) Display(p Preview) {
	img := p.Image
	caption := logutil.Sanitize(p.Caption(), maxCaptionText)
	color := uint32(captionMissing)
	if p.Found {
		color = captionFound
	}
	box := image.Rect(previewPad, previewPad, previewPad+d.box, previewPad+d.box)

	err := d.window.Show(func(c *winpopup.Canvas) {
		c.Fill(c.Bounds, previewBackground)
		if img != nil {
			c.Image(winpopup.Fit(img.Rect.Dx(), img.Rect.Dy(), box), img)
		}
		text := image.Rect(previewPad, box.Max.Y+4, c.Bounds.Max.X-previewPad, c.Bounds.Max.Y-4)
		c.Text(text, caption, color, true)
	})
	if err != nil {
		log.Printf("Popup: failed to show preview window: %v", err)
	}
}

func (d *screenDisplay) Close() { d.window.Hide() }
