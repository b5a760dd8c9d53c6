//go:build !windows

package overlay

import (
	"context"
	"image"

	"qr-region-select/src/geometry"
)

type stubSurface struct{}

func newPlatformSurface(image.Rectangle) Surface { return stubSurface{} }

func (stubSurface) Show(context.Context, func(Input)) (geometry.Size, error) {
	return geometry.Size{}, ErrUnsupported
}

func (stubSurface) DrawSelection(geometry.Rect) {}

func (stubSurface) Teardown() error { return nil }
