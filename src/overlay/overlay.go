package overlay

import (
	"context"
	"errors"
	"image"

	"qr-region-select/src/geometry"
)

var ErrUnsupported = errors.New("selection overlay not implemented for this platform")

// Kind identifies an input event delivered by the overlay.
type Kind int

const (
	PointerDown Kind = iota
	PointerMove
	PointerUp
	Cancel
)

func (k Kind) String() string {
	switch k {
	case PointerDown:
		return "down"
	case PointerMove:
		return "move"
	case PointerUp:
		return "up"
	case Cancel:
		return "cancel"
	}
	return "unknown"
}

// Input is one pointer or key event in viewport coordinates.
type Input struct {
	Kind  Kind
	Point geometry.Point
}

// Surface is the selection overlay covering the viewport.
//
// Show materializes the overlay and returns the viewport size. Input events are
// delivered to sink from the overlay's own thread, so sink must not block.
// DrawSelection only affects what the user sees. Teardown returns once the
// overlay is gone from the screen; calling it on a hidden surface is a no-op.
type Surface interface {
	Show(ctx context.Context, sink func(Input)) (geometry.Size, error)
	DrawSelection(r geometry.Rect)
	Teardown() error
}

// New returns the platform overlay covering bounds, given in virtual desktop
// coordinates. An empty bounds covers the primary display.
func New(bounds image.Rectangle) Surface {
	return newPlatformSurface(bounds)
}
