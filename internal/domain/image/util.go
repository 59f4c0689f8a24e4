package image

import (
	"fmt"

	"github.com/openpiv/openpiv-go/internal/domain/geom"
	"github.com/openpiv/openpiv-go/internal/domain/pixel"
)

// Fill sets every pixel of im to v.
func Fill[P Pixel](im ImageLike[P], v P) {
	for y := 0; y < im.Height(); y++ {
		row := im.Line(y)
		for x := range row {
			row[x] = v
		}
	}
}

// FillFunc sets every pixel from a generator over local (x, y)
// coordinates.
func FillFunc[P Pixel](im ImageLike[P], g func(x, y int) P) {
	for y := 0; y < im.Height(); y++ {
		row := im.Line(y)
		for x := range row {
			row[x] = g(x, y)
		}
	}
}

// Apply updates every pixel in place through op, which receives the
// row-major linear index alongside the current value.
func Apply[P Pixel](im ImageLike[P], op func(i int, v P) P) {
	w := im.Width()
	for y := 0; y < im.Height(); y++ {
		row := im.Line(y)
		for x := range row {
			row[x] = op(y*w+x, row[x])
		}
	}
}

// PixelSum returns the sum of all pixels as float64.
func PixelSum[P RealPixel](im ImageLike[P]) float64 {
	var sum float64
	for y := 0; y < im.Height(); y++ {
		for _, v := range im.Line(y) {
			sum += float64(v)
		}
	}
	return sum
}

// ImageRange returns the minimum and maximum pixel values.
func ImageRange[P RealPixel](im ImageLike[P]) (lo, hi P) {
	first := true
	for y := 0; y < im.Height(); y++ {
		for _, v := range im.Line(y) {
			if first {
				lo, hi = v, v
				first = false
				continue
			}
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
	}
	return lo, hi
}

// Transpose maps src into dst with axes swapped. dst must already have
// the transposed dimensions.
func Transpose[P Pixel](src, dst ImageLike[P]) error {
	if src.Width() != dst.Height() || src.Height() != dst.Width() {
		return fmt.Errorf("%w: transpose %v into %v", ErrSizeMismatch, src.Size(), dst.Size())
	}
	for y := 0; y < src.Height(); y++ {
		row := src.Line(y)
		for x, v := range row {
			dst.Line(x)[y] = v
		}
	}
	return nil
}

// TransposeNew returns a newly allocated transposed copy of im.
func TransposeNew[P Pixel](im ImageLike[P]) *Image[P] {
	out := New[P](im.Size().Transposed())
	// dimensions are transposed by construction
	_ = Transpose[P](im, out)
	return out
}

// SwapQuadrants exchanges diagonal quadrants in place (Q1 with Q3, Q2
// with Q4), moving the DC bin of an FFT between corner and centre. For
// even dimensions the operation is its own inverse; for odd dimensions
// the split is at floor(w/2), floor(h/2).
func SwapQuadrants[P Pixel](im ImageLike[P]) {
	w, h := im.Width(), im.Height()
	for y := 0; y < h; y++ {
		a := im.Line(y)
		b := im.Line((y + h/2) % h)
		for x := 0; x < w/2; x++ {
			xx := (x + w/2) % w
			a[x], b[xx] = b[xx], a[x]
		}
	}
}

// SplitRGBA separates a colour image into r, g, b, a greyscale planes.
func SplitRGBA(im ImageLike[pixel.RGBA16]) (r, g, b, a *G16Image) {
	r = New[uint16](im.Size())
	g = New[uint16](im.Size())
	b = New[uint16](im.Size())
	a = New[uint16](im.Size())
	for y := 0; y < im.Height(); y++ {
		row := im.Line(y)
		rr, gg, bb, aa := r.Line(y), g.Line(y), b.Line(y), a.Line(y)
		for x, p := range row {
			rr[x], gg[x], bb[x], aa[x] = p.R, p.G, p.B, p.A
		}
	}
	return r, g, b, a
}

// JoinRGBA packs four greyscale planes into a colour image. All planes
// must share one size.
func JoinRGBA(r, g, b, a ImageLike[uint16]) (*RGBA16Image, error) {
	if r.Size() != g.Size() || g.Size() != b.Size() || b.Size() != a.Size() {
		return nil, fmt.Errorf("%w: join channels", ErrSizeMismatch)
	}
	out := New[pixel.RGBA16](r.Size())
	for y := 0; y < r.Height(); y++ {
		rr, gg, bb, aa := r.Line(y), g.Line(y), b.Line(y), a.Line(y)
		row := out.Line(y)
		for x := range row {
			row[x] = pixel.RGBA16{R: rr[x], G: gg[x], B: bb[x], A: aa[x]}
		}
	}
	return out, nil
}

// SplitComplex separates a complex image into real and imaginary
// planes.
func SplitComplex(im ImageLike[complex128]) (re, ip *GFImage) {
	re = New[float64](im.Size())
	ip = New[float64](im.Size())
	for y := 0; y < im.Height(); y++ {
		row := im.Line(y)
		rr, ii := re.Line(y), ip.Line(y)
		for x, c := range row {
			rr[x] = real(c)
			ii[x] = imag(c)
		}
	}
	return re, ip
}

// JoinComplex packs real and imaginary planes into a complex image.
// Both planes must share one size.
func JoinComplex(re, ip ImageLike[float64]) (*CImage, error) {
	if re.Size() != ip.Size() {
		return nil, fmt.Errorf("%w: join complex", ErrSizeMismatch)
	}
	out := New[complex128](re.Size())
	for y := 0; y < re.Height(); y++ {
		rr, ii := re.Line(y), ip.Line(y)
		row := out.Line(y)
		for x := range row {
			row[x] = complex(rr[x], ii[x])
		}
	}
	return out, nil
}

// Extract copies the sub-region r (in im's global frame) into a new
// owning image whose rectangle is r, preserving the origin.
func Extract[P Pixel](im *Image[P], r geom.Rect) (*Image[P], error) {
	x0, y0, err := im.localRect(r)
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}
	out := NewAt[P](r)
	for y := 0; y < r.Height(); y++ {
		copy(out.Line(y), im.Line(y0+y)[x0:x0+r.Width()])
	}
	return out, nil
}
