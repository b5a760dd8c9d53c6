package qrdecode

import (
	"fmt"
	"image"
	"log"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"

	"qr-region-select/src/geometry"
)

// Result is a located QR symbol.
type Result struct {
	Text string
	// Polygon holds four corner points (top-left, top-right, bottom-right,
	// bottom-left) in the pixel space of the decoded buffer, or nil when the
	// reader did not report a location.
	Polygon []geometry.Point
}

// Decoder is the black-box symbol reader. pixels is a tightly packed,
// non-premultiplied RGBA buffer of width*height*4 bytes.
type Decoder interface {
	Decode(pixels []byte, width, height int) (Result, bool)
}

// Reader decodes QR symbols with the ZXing port.
type Reader struct {
	hints map[gozxing.DecodeHintType]interface{}
}

// NewReader returns a Reader that spends extra effort on hard images.
func NewReader() *Reader {
	return &Reader{hints: map[gozxing.DecodeHintType]interface{}{
		gozxing.DecodeHintType_TRY_HARDER: true,
	}}
}

// Decode implements Decoder. Malformed input and reader failures are reported
// as "not found"; it never panics.
func (r *Reader) Decode(pixels []byte, width, height int) (res Result, ok bool) {
	defer func() {
		if p := recover(); p != nil {
			log.Printf("qrdecode: reader panicked on %dx%d buffer: %v", width, height, p)
			res, ok = Result{}, false
		}
	}()

	img, err := wrap(pixels, width, height)
	if err != nil {
		log.Printf("qrdecode: %v", err)
		return Result{}, false
	}

	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		log.Printf("qrdecode: failed to build bitmap: %v", err)
		return Result{}, false
	}

	out, err := qrcode.NewQRCodeReader().Decode(bmp, r.hints)
	if err != nil {
		return Result{}, false
	}

	return Result{
		Text:    out.GetText(),
		Polygon: cornersFromFinders(out.GetResultPoints()),
	}, true
}

func wrap(pixels []byte, width, height int) (*image.NRGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid buffer dimensions %dx%d", width, height)
	}
	if len(pixels) != width*height*4 {
		return nil, fmt.Errorf("buffer length %d does not match %dx%d RGBA", len(pixels), width, height)
	}
	return &image.NRGBA{
		Pix:    pixels,
		Stride: width * 4,
		Rect:   image.Rect(0, 0, width, height),
	}, nil
}

// cornersFromFinders turns the reader's finder-pattern centers (bottom-left,
// top-left, top-right, optional alignment) into a four-point polygon. The
// bottom-right corner completes the parallelogram.
func cornersFromFinders(points []gozxing.ResultPoint) []geometry.Point {
	if len(points) < 3 {
		return nil
	}
	bl := geometry.Pt(points[0].GetX(), points[0].GetY())
	tl := geometry.Pt(points[1].GetX(), points[1].GetY())
	tr := geometry.Pt(points[2].GetX(), points[2].GetY())
	br := geometry.Pt(tr.X+bl.X-tl.X, tr.Y+bl.Y-tl.Y)
	return []geometry.Point{tl, tr, br, bl}
}
