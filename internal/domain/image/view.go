package image

import (
	"fmt"

	"github.com/openpiv/openpiv-go/internal/domain/geom"
)

// View is a non-owning window onto an Image. Reads and writes go
// through to the underlying buffer. A view always references the
// owning image directly; constructing a view of a view composes the
// origins rather than chaining indirections.
type View[P Pixel] struct {
	src *Image[P]
	// offsets of the view's bottom-left corner within the source
	// buffer, in pixels
	x0, y0 int
	sz     geom.Size
}

// NewView constructs a view of im covering r, where r is expressed in
// im's global coordinate frame. Fails when r is not wholly contained in
// the image.
func NewView[P Pixel](im *Image[P], r geom.Rect) (*View[P], error) {
	x0, y0, err := im.localRect(r)
	if err != nil {
		return nil, fmt.Errorf("view: %w", err)
	}
	return &View[P]{src: im, x0: x0, y0: y0, sz: r.Size()}, nil
}

// SubView constructs a view of the same underlying image covering r,
// where r is expressed in v's local coordinate frame. The resulting
// view references the owning image directly.
func (v *View[P]) SubView(r geom.Rect) (*View[P], error) {
	if r.Left() < 0 || r.Bottom() < 0 ||
		r.Right() > v.sz.W || r.Top() > v.sz.H {
		return nil, fmt.Errorf("view: %w: %v not within %v", ErrOutOfBounds, r, geom.RectFromSize(v.sz))
	}
	return &View[P]{
		src: v.src,
		x0:  v.x0 + r.Left(),
		y0:  v.y0 + r.Bottom(),
		sz:  r.Size(),
	}, nil
}

// Underlying returns the owning image.
func (v *View[P]) Underlying() *Image[P] { return v.src }

// Size returns the view's extent.
func (v *View[P]) Size() geom.Size { return v.sz }

// Rect returns the view's rectangle in the underlying image's global
// coordinate frame.
func (v *View[P]) Rect() geom.Rect {
	bl := v.src.Rect().BottomLeft()
	return geom.RectAt(geom.Pt(bl.X+v.x0, bl.Y+v.y0), v.sz)
}

// Width returns the horizontal extent.
func (v *View[P]) Width() int { return v.sz.W }

// Height returns the vertical extent.
func (v *View[P]) Height() int { return v.sz.H }

// PixelCount returns Width*Height.
func (v *View[P]) PixelCount() int { return v.sz.Area() }

// Line returns row y of the view as a writable slice of the underlying
// buffer. Panics when y is out of range.
func (v *View[P]) Line(y int) []P {
	if y < 0 || y >= v.sz.H {
		panic(fmt.Sprintf("view: line %d out of range [0,%d)", y, v.sz.H))
	}
	row := v.src.Line(v.y0 + y)
	return row[v.x0 : v.x0+v.sz.W : v.x0+v.sz.W]
}

// At returns the pixel at view-local (x, y).
func (v *View[P]) At(x, y int) P { return v.Line(y)[x] }

// Set writes the pixel at view-local (x, y).
func (v *View[P]) Set(x, y int, p P) { v.Line(y)[x] = p }

// Resize moves the view's extent, keeping its origin. Fails when the
// grown view would leave the underlying image.
func (v *View[P]) Resize(s geom.Size) error {
	if v.x0+s.W > v.src.Width() || v.y0+s.H > v.src.Height() {
		return fmt.Errorf("view: %w: resize to %v", ErrOutOfBounds, s)
	}
	v.sz = s
	return nil
}
