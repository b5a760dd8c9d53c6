package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"qr-region-select/src/geometry"
	"qr-region-select/src/qrdecode"
	"qr-region-select/src/screenshot"
)

var (
	// ErrCapture marks failures of the screenshot collaborator or unusable data from it.
	ErrCapture = errors.New("capture error")
	// ErrInvalidSelection marks empty or out-of-bounds selections. It only ever
	// travels inside a StatusMiss outcome.
	ErrInvalidSelection = errors.New("invalid selection")
)

// Status discriminates the outcome of one capture attempt.
type Status int

const (
	StatusMiss Status = iota
	StatusDecoded
	StatusCaptureError
)

func (s Status) String() string {
	switch s {
	case StatusDecoded:
		return "decoded"
	case StatusCaptureError:
		return "capture-error"
	default:
		return "miss"
	}
}

// Outcome is the single result the pipeline hands back to its caller.
type Outcome struct {
	Status Status
	Result qrdecode.Result
	// Err is set for StatusCaptureError and, wrapping ErrInvalidSelection,
	// for misses caused by an unusable rectangle.
	Err error
	// Scale is captured raster width divided by viewport width.
	Scale float64
	// Crop is the region of the captured raster that was decoded.
	Crop    image.Rectangle
	Preview *image.NRGBA
}

// Pipeline crops a viewport screenshot to a selection and decodes it.
type Pipeline struct {
	screens     screenshot.Capturer
	decoder     qrdecode.Decoder
	previewSize int
}

// NewPipeline wires the collaborators. previewSize is clamped to the supported
// preview range.
func NewPipeline(screens screenshot.Capturer, decoder qrdecode.Decoder, previewSize int) *Pipeline {
	return &Pipeline{
		screens:     screens,
		decoder:     decoder,
		previewSize: ClampPreviewSize(previewSize),
	}
}

// Capture runs one attempt for rect, expressed in the coordinate space of
// viewport. It never retries and never panics on decoder failures.
func (p *Pipeline) Capture(ctx context.Context, rect geometry.Rect, viewport geometry.Size) Outcome {
	clamped := geometry.Clamp(rect, viewport)
	if clamped.Empty() {
		log.Printf("capture: empty selection %v in viewport %dx%d, skipping screenshot", rect, viewport.Width, viewport.Height)
		return Outcome{Status: StatusMiss, Err: fmt.Errorf("%w: %v", ErrInvalidSelection, rect)}
	}

	data, err := p.screens.CaptureViewport(ctx)
	if err != nil {
		log.Printf("capture: screenshot failed: %v", err)
		return Outcome{Status: StatusCaptureError, Err: fmt.Errorf("%w: %v", ErrCapture, err)}
	}
	if len(data) == 0 {
		log.Printf("capture: screenshot returned no data")
		return Outcome{Status: StatusCaptureError, Err: fmt.Errorf("%w: %v", ErrCapture, screenshot.ErrNoImage)}
	}

	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		log.Printf("capture: failed to decode screenshot (%d bytes): %v", len(data), err)
		return Outcome{Status: StatusCaptureError, Err: fmt.Errorf("%w: undecodable screenshot: %v", ErrCapture, err)}
	}

	bounds := src.Bounds()
	scale := float64(bounds.Dx()) / float64(viewport.Width)
	crop := clamped.Scale(scale).Add(bounds.Min).Intersect(bounds)
	log.Printf("capture: %s %dx%d, viewport %dx%d, scale %.3f, selection %v -> crop %v",
		format, bounds.Dx(), bounds.Dy(), viewport.Width, viewport.Height, scale, clamped, crop)

	out := Outcome{Status: StatusMiss, Scale: scale, Crop: crop}
	if crop.Empty() {
		out.Err = fmt.Errorf("%w: crop %v outside %v", ErrInvalidSelection, crop, bounds)
		return out
	}

	region := extract(src, crop)
	out.Preview = RenderPreview(region, p.previewSize)

	Binarize(region)
	w, h := region.Rect.Dx(), region.Rect.Dy()
	res, ok := p.decode(region.Pix, w, h)
	if !ok {
		log.Printf("capture: no QR code in %dx%d crop", w, h)
		return out
	}

	log.Printf("capture: decoded %d characters", len(res.Text))
	out.Status = StatusDecoded
	out.Result = res
	MarkPreview(out.Preview, res.Polygon, w, h)
	return out
}

func (p *Pipeline) decode(pix []byte, w, h int) (res qrdecode.Result, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("capture: decoder panicked: %v", r)
			res, ok = qrdecode.Result{}, false
		}
	}()
	return p.decoder.Decode(pix, w, h)
}

// extract copies crop out of src into a fresh buffer at full resolution.
func extract(src image.Image, crop image.Rectangle) *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, crop.Dx(), crop.Dy()))
	draw.Draw(dst, dst.Bounds(), src, crop.Min, draw.Src)
	return dst
}
