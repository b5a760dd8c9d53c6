package screenshot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"strings"

	kbscreenshot "github.com/kbinani/screenshot"
	vovascreenshot "github.com/vova616/screenshot"
)

const (
	BackendKbinani = "kbinani"
	BackendVova    = "vova616"
)

// ErrNoImage is returned when a backend produced no raster at all.
var ErrNoImage = errors.New("capture returned no image")

// Capturer returns the whole visible viewport as encoded image bytes, at the
// raster's native resolution.
type Capturer interface {
	CaptureViewport(ctx context.Context) ([]byte, error)
}

// New returns the Capturer for the named backend. An empty name selects kbinani.
func New(backend string, display int) (Capturer, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendKbinani:
		return &displayCapturer{display: display}, nil
	case BackendVova:
		return &rectCapturer{display: display, bounds: DisplayBounds, grab: vovascreenshot.CaptureRect}, nil
	default:
		return nil, fmt.Errorf("unknown capture backend %q", backend)
	}
}

// displayCapturer grabs one display through the kbinani backend.
type displayCapturer struct {
	display int
}

func (c *displayCapturer) CaptureViewport(ctx context.Context) ([]byte, error) {
	return encodeAsync(ctx, func() (*image.RGBA, error) {
		n := kbscreenshot.NumActiveDisplays()
		if n == 0 {
			return nil, fmt.Errorf("no active displays found")
		}
		if c.display < 0 || c.display >= n {
			return nil, fmt.Errorf("display %d out of range (%d active)", c.display, n)
		}
		return kbscreenshot.CaptureDisplay(c.display)
	})
}

// rectCapturer grabs the bounds of one display through the vova616 backend,
// so the raster matches the display the overlay covers.
type rectCapturer struct {
	display int
	bounds  func(display int) (image.Rectangle, error)
	grab    func(image.Rectangle) (*image.RGBA, error)
}

func (c *rectCapturer) CaptureViewport(ctx context.Context) ([]byte, error) {
	return encodeAsync(ctx, func() (*image.RGBA, error) {
		r, err := c.bounds(c.display)
		if err != nil {
			return nil, err
		}
		return c.grab(r)
	})
}

// File serves a previously saved screenshot as the viewport. Path "-" reads
// from Stdin once and replays the bytes on later calls.
type File struct {
	Path  string
	Stdin io.Reader

	data []byte
}

func (f *File) CaptureViewport(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.data != nil {
		return f.data, nil
	}
	var (
		data []byte
		err  error
	)
	if f.Path == "-" {
		in := f.Stdin
		if in == nil {
			in = os.Stdin
		}
		data, err = io.ReadAll(in)
	} else {
		data, err = os.ReadFile(f.Path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", f.Path, err)
	}
	if len(data) == 0 {
		return nil, ErrNoImage
	}
	f.data = data
	return data, nil
}

// DisplayBounds returns the bounds of the given display in physical pixels.
func DisplayBounds(display int) (image.Rectangle, error) {
	n := kbscreenshot.NumActiveDisplays()
	if n == 0 {
		return image.Rectangle{}, fmt.Errorf("no active displays found")
	}
	if display < 0 || display >= n {
		return image.Rectangle{}, fmt.Errorf("display %d out of range (%d active)", display, n)
	}
	return kbscreenshot.GetDisplayBounds(display), nil
}

// encodeAsync runs a blocking grab off the caller's goroutine so ctx can
// abandon it. A grab that outlives ctx finishes in the background.
func encodeAsync(ctx context.Context, grab func() (*image.RGBA, error)) ([]byte, error) {
	type result struct {
		data []byte
		err  error
	}
	resCh := make(chan result, 1)
	go func() {
		img, err := grab()
		if err != nil {
			resCh <- result{err: fmt.Errorf("failed to capture viewport: %w", err)}
			return
		}
		if img == nil || img.Bounds().Empty() {
			resCh <- result{err: ErrNoImage}
			return
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			resCh <- result{err: fmt.Errorf("failed to encode image as PNG: %w", err)}
			return
		}
		resCh <- result{data: buf.Bytes()}
	}()

	select {
	case r := <-resCh:
		return r.data, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
