// Package grid generates interrogation grids: lists of window
// rectangles tiling an image with a given overlap or stride.
package grid

import (
	"errors"
	"fmt"
	"math"

	"github.com/openpiv/openpiv-go/internal/domain/geom"
)

// Grid errors.
var (
	// ErrBadOverlap indicates an overlap outside [0, 1).
	ErrBadOverlap = errors.New("grid: overlap must be in [0, 1)")

	// ErrWindowTooLarge indicates an interrogation window that does
	// not fit the image.
	ErrWindowTooLarge = errors.New("grid: window larger than image")

	// ErrBadOffset indicates a non-positive window offset.
	ErrBadOffset = errors.New("grid: offset must be positive")
)

// Cartesian produces a centred cartesian grid of interrogation windows
// of size ia over an image of size im, with the given fractional
// overlap between successive windows.
//
// For an image 100x50 with 32x32 windows at 0.5 overlap the ten
// windows have bottom-left corners
// (2,1) (18,1) (34,1) (50,1) (66,1) (2,17) (18,17) (34,17) (50,17) (66,17).
func Cartesian(im, ia geom.Size, overlap float64) ([]geom.Rect, error) {
	if overlap < 0 || overlap >= 1 {
		return nil, fmt.Errorf("%w: %g", ErrBadOverlap, overlap)
	}
	sx := int(math.Round(float64(ia.W) * (1 - overlap)))
	sy := int(math.Round(float64(ia.H) * (1 - overlap)))
	return CartesianOffset(im, ia, sx, sy)
}

// CartesianOffset produces a centred cartesian grid with an explicit
// pixel stride between successive windows. Windows are emitted
// row-major, bottom row first; every window lies wholly inside the
// image.
func CartesianOffset(im, ia geom.Size, dx, dy int) ([]geom.Rect, error) {
	if dx <= 0 || dy <= 0 {
		return nil, fmt.Errorf("%w: (%d, %d)", ErrBadOffset, dx, dy)
	}
	if ia.W > im.W || ia.H > im.H {
		return nil, fmt.Errorf("%w: %v in %v", ErrWindowTooLarge, ia, im)
	}

	nx := 1 + (im.W-ia.W)/dx
	ny := 1 + (im.H-ia.H)/dy

	// centre the grid
	mx := (im.W - (ia.W + (nx-1)*dx)) / 2
	my := (im.H - (ia.H + (ny-1)*dy)) / 2

	rects := make([]geom.Rect, 0, nx*ny)
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			rects = append(rects, geom.RectAt(geom.Pt(mx+i*dx, my+j*dy), ia))
		}
	}
	return rects, nil
}
