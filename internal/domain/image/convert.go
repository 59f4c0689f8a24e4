package image

import (
	"github.com/openpiv/openpiv-go/internal/domain/pixel"
)

// ConvertInto resizes dst to src's size and assigns every pixel through
// f. This is the element-wise conversion-assignment driver; the named
// conversions below are thin wrappers.
func ConvertInto[A, B Pixel](dst *Image[B], src ImageLike[A], f func(A) B) {
	dst.Resize(src.Size())
	for y := 0; y < src.Height(); y++ {
		in := src.Line(y)
		out := dst.Line(y)
		for x, v := range in {
			out[x] = f(v)
		}
	}
}

// convert allocates a destination at src's rectangle and converts into
// it, preserving the source origin.
func convert[A, B Pixel](src ImageLike[A], f func(A) B) *Image[B] {
	dst := NewAt[B](src.Rect())
	for y := 0; y < src.Height(); y++ {
		in := src.Line(y)
		out := dst.Line(y)
		for x, v := range in {
			out[x] = f(v)
		}
	}
	return dst
}

// ToGF widens any real greyscale image to float64.
func ToGF[P RealPixel](src ImageLike[P]) *GFImage {
	return convert(src, func(v P) float64 { return float64(v) })
}

// ToComplex converts a real greyscale image to complex with zero
// imaginary part.
func ToComplex[P RealPixel](src ImageLike[P]) *CImage {
	return convert(src, func(v P) complex128 { return complex(float64(v), 0) })
}

// GFFromComplex converts a complex image to greyscale magnitude.
func GFFromComplex(src ImageLike[complex128]) *GFImage {
	return convert(src, pixel.FromComplex)
}

// G16FromRGBA16 converts colour to 16-bit greyscale using the integer
// BT.709 fast path.
func G16FromRGBA16(src ImageLike[pixel.RGBA16]) *G16Image {
	return convert(src, pixel.RGBA16.Luma16)
}

// GFFromRGBA16 converts colour to floating-point greyscale using the
// ITU-R BT.709 luminance weights.
func GFFromRGBA16(src ImageLike[pixel.RGBA16]) *GFImage {
	return convert(src, pixel.RGBA16.LumaF)
}

// RGBA16FromG16 broadcasts greyscale to colour with opaque alpha.
func RGBA16FromG16(src ImageLike[uint16]) *RGBA16Image {
	return convert(src, pixel.Grey16)
}

// GFFromG16 widens 16-bit greyscale to float64.
func GFFromG16(src ImageLike[uint16]) *GFImage {
	return ToGF(src)
}
