package image

import (
	"errors"
	"fmt"

	"github.com/openpiv/openpiv-go/internal/domain/geom"
	"github.com/openpiv/openpiv-go/internal/domain/pixel"
)

// Image errors.
var (
	// ErrSizeMismatch indicates two operands have incompatible dimensions.
	ErrSizeMismatch = errors.New("image: size mismatch")

	// ErrOutOfBounds indicates a rectangle or index falls outside its
	// source image.
	ErrOutOfBounds = errors.New("image: out of bounds")
)

// Pixel constrains the element types an image buffer can hold.
type Pixel interface {
	~uint8 | ~uint16 | ~uint32 | ~float64 | ~complex128 |
		pixel.RGBA8 | pixel.RGBA16 | pixel.YUVA16
}

// RealPixel constrains the ordered scalar pixel types; peak search and
// greyscale statistics are defined over these.
type RealPixel interface {
	~uint8 | ~uint16 | ~uint32 | ~float64
}

// ImageLike is the capability set shared by owning images and views.
// Line returns a writable sub-slice of the underlying buffer, so the
// interface serves both reads and writes.
type ImageLike[P Pixel] interface {
	// Size returns the pixel extent.
	Size() geom.Size
	// Rect returns the position and extent in the underlying image's
	// global coordinate frame.
	Rect() geom.Rect
	Width() int
	Height() int
	PixelCount() int
	// Line returns row y in local coordinates. Row 0 is the bottom row.
	Line(y int) []P
}

// Image is an owning 2-D pixel buffer in contiguous row-major layout.
// The zero value is an empty image. Copy with Clone; plain assignment
// shares the buffer.
type Image[P Pixel] struct {
	rect geom.Rect
	data []P
}

// Convenience aliases for the pixel depths the codec and correlation
// layers traffic in.
type (
	G8Image     = Image[uint8]
	G16Image    = Image[uint16]
	G32Image    = Image[uint32]
	GFImage     = Image[float64]
	CImage      = Image[complex128]
	RGBA16Image = Image[pixel.RGBA16]
)

// New constructs a zero-filled image of the given size with a zero
// origin.
func New[P Pixel](s geom.Size) *Image[P] {
	return NewAt[P](geom.RectFromSize(s))
}

// NewAt constructs a zero-filled image occupying r: the buffer has
// r.Size() pixels and the image's global origin is r.BottomLeft().
func NewAt[P Pixel](r geom.Rect) *Image[P] {
	return &Image[P]{
		rect: r,
		data: make([]P, r.Area()),
	}
}

// NewFilled constructs an image of the given size with every pixel set
// to v.
func NewFilled[P Pixel](s geom.Size, v P) *Image[P] {
	im := New[P](s)
	for i := range im.data {
		im.data[i] = v
	}
	return im
}

// Size returns the pixel extent.
func (im *Image[P]) Size() geom.Size { return im.rect.Size() }

// Rect returns the image's rectangle in global coordinates.
func (im *Image[P]) Rect() geom.Rect { return im.rect }

// Width returns the horizontal extent.
func (im *Image[P]) Width() int { return im.rect.Width() }

// Height returns the vertical extent.
func (im *Image[P]) Height() int { return im.rect.Height() }

// PixelCount returns Width*Height.
func (im *Image[P]) PixelCount() int { return len(im.data) }

// Line returns row y as a writable slice of the backing buffer. It
// panics when y is out of range.
func (im *Image[P]) Line(y int) []P {
	w := im.rect.Width()
	return im.data[y*w : (y+1)*w : (y+1)*w]
}

// At returns the pixel at local (x, y). Panics when out of range.
func (im *Image[P]) At(x, y int) P { return im.Line(y)[x] }

// Set writes the pixel at local (x, y). Panics when out of range.
func (im *Image[P]) Set(x, y int, v P) { im.Line(y)[x] = v }

// AtIndex returns the pixel at linear index i (row-major).
func (im *Image[P]) AtIndex(i int) P { return im.data[i] }

// SetIndex writes the pixel at linear index i.
func (im *Image[P]) SetIndex(i int, v P) { im.data[i] = v }

// Data exposes the backing buffer. The returned slice aliases the
// image; it is not a copy.
func (im *Image[P]) Data() []P { return im.data }

// Resize reallocates the buffer for a new size; it is a no-op when the
// size is unchanged. Existing contents are invalidated (the new buffer
// is zero-filled). The image keeps its origin.
func (im *Image[P]) Resize(s geom.Size) {
	if s == im.rect.Size() {
		return
	}
	im.rect = geom.RectAt(im.rect.BottomLeft(), s)
	im.data = make([]P, s.Area())
}

// Clone returns a deep copy.
func (im *Image[P]) Clone() *Image[P] {
	out := &Image[P]{
		rect: im.rect,
		data: make([]P, len(im.data)),
	}
	copy(out.data, im.data)
	return out
}

// localRect translates r from the global frame into buffer offsets,
// checking containment.
func (im *Image[P]) localRect(r geom.Rect) (x0, y0 int, err error) {
	if !r.Within(im.rect) {
		return 0, 0, fmt.Errorf("%w: %v not within %v", ErrOutOfBounds, r, im.rect)
	}
	return r.Left() - im.rect.Left(), r.Bottom() - im.rect.Bottom(), nil
}
