// Package fft implements the radix-2 decimate-in-time 2-D FFT used for
// window correlation, together with the correlation primitives built on
// it.
//
// An Engine is constructed for one window size (both dimensions powers
// of two) and precomputes twiddle-factor tables for every sub-length.
// Engines are safe for concurrent use: each in-flight call borrows a
// scratch set (output buffer, transpose buffer, 1-D line buffer) from a
// per-engine pool, so no locking is held during a transform.
//
// The reverse transform does not normalise: REVERSE(FORWARD(x)) equals
// x scaled by W*H.
package fft

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/openpiv/openpiv-go/internal/domain/geom"
	"github.com/openpiv/openpiv-go/internal/domain/image"
)

// FFT errors.
var (
	// ErrNotPow2 indicates an engine size with a non-power-of-two
	// dimension.
	ErrNotPow2 = errors.New("fft: dimensions must be powers of two")

	// ErrSizeMismatch indicates an input whose size differs from the
	// engine's configured size.
	ErrSizeMismatch = errors.New("fft: input size differs from engine size")
)

// Direction selects the transform sign.
type Direction int

const (
	// Forward applies the negative-exponent transform.
	Forward Direction = iota
	// Reverse applies the positive-exponent transform (unnormalised).
	Reverse
)

func (d Direction) String() string {
	if d == Forward {
		return "forward"
	}
	return "reverse"
}

// Engine performs 2-D FFTs and correlations at one fixed size.
type Engine struct {
	size    geom.Size
	forward map[int][]complex128
	reverse map[int][]complex128
	pool    sync.Pool
}

// scratch is the per-call working set.
type scratch struct {
	output *image.CImage
	temp   *image.CImage
	buf    []complex128
}

func isPow2(v int) bool { return v > 0 && v&(v-1) == 0 }

// New constructs an engine for the given size. Both dimensions must be
// powers of two.
func New(s geom.Size) (*Engine, error) {
	if !isPow2(s.W) || !isPow2(s.H) {
		return nil, fmt.Errorf("%w: %v", ErrNotPow2, s)
	}
	e := &Engine{
		size:    s,
		forward: twiddleTables(s, Forward),
		reverse: twiddleTables(s, Reverse),
	}
	e.pool.New = func() any {
		return &scratch{
			output: image.New[complex128](s),
			temp:   image.New[complex128](s.Transposed()),
			buf:    make([]complex128, s.Maximal().W),
		}
	}
	return e, nil
}

// Size returns the configured transform size.
func (e *Engine) Size() geom.Size { return e.size }

// twiddleTables builds the factor table for each sub-length n from the
// maximal dimension down to 2: entry i holds exp(s*j*pi*i/n), s = -1
// forward, +1 reverse.
func twiddleTables(s geom.Size, d Direction) map[int][]complex128 {
	sign := -1.0
	if d == Reverse {
		sign = 1.0
	}
	tables := make(map[int][]complex128)
	for n := s.Maximal().W; n >= 2; n /= 2 {
		tw := make([]complex128, n)
		for i := range tw {
			theta := sign * math.Pi * float64(i) / float64(n)
			tw[i] = complex(math.Cos(theta), math.Sin(theta))
		}
		tables[n] = tw
	}
	return tables
}

func (e *Engine) tables(d Direction) map[int][]complex128 {
	if d == Forward {
		return e.forward
	}
	return e.reverse
}

// fftInner is the recursive decimate-in-time butterfly. in and out are
// same-length working buffers that swap roles on each level; tw is the
// full-length twiddle table.
func fftInner(in, out, tw []complex128, n, step int) {
	if step >= n {
		return
	}
	double := 2 * step
	fftInner(out, in, tw, n, double)
	fftInner(out[step:], in[step:], tw, n, double)
	for i := 0; i < n; i += double {
		ev := out[i]
		od := out[i+step] * tw[i]
		in[i/2] = ev + od
		in[(i+n)/2] = ev - od
	}
}

// fft1d transforms one contiguous line in place.
func (e *Engine) fft1d(line []complex128, d Direction, buf []complex128) {
	n := len(line)
	if n < 2 {
		return
	}
	copy(buf[:n], line)
	fftInner(line, buf[:n], e.tables(d)[n], n, 1)
}

// fft2d runs the row/transpose/row/transpose passes over sc.output.
func (e *Engine) fft2d(sc *scratch, d Direction) {
	for y := 0; y < sc.output.Height(); y++ {
		e.fft1d(sc.output.Line(y), d, sc.buf)
	}
	// transpose output -> temp, do columns as rows, flip back
	_ = image.Transpose[complex128](sc.output, sc.temp)
	for y := 0; y < sc.temp.Height(); y++ {
		e.fft1d(sc.temp.Line(y), d, sc.buf)
	}
	_ = image.Transpose[complex128](sc.temp, sc.output)
}

func (e *Engine) acquire() *scratch { return e.pool.Get().(*scratch) }

func (e *Engine) release(sc *scratch) { e.pool.Put(sc) }

// loadComplex copies in into sc.output.
func loadComplex(sc *scratch, in image.ImageLike[complex128]) {
	for y := 0; y < in.Height(); y++ {
		copy(sc.output.Line(y), in.Line(y))
	}
}

// loadReal copies a real image into sc.output with zero imaginary
// parts.
func loadReal(sc *scratch, in image.ImageLike[float64]) {
	for y := 0; y < in.Height(); y++ {
		src := in.Line(y)
		dst := sc.output.Line(y)
		for x, v := range src {
			dst[x] = complex(v, 0)
		}
	}
}

// loadPacked packs two real images as re+j*im into sc.output.
func loadPacked(sc *scratch, a, b image.ImageLike[float64]) {
	for y := 0; y < a.Height(); y++ {
		ra := a.Line(y)
		rb := b.Line(y)
		dst := sc.output.Line(y)
		for x := range ra {
			dst[x] = complex(ra[x], rb[x])
		}
	}
}

func (e *Engine) checkSize(s geom.Size) error {
	if s != e.size {
		return fmt.Errorf("%w: %v, want %v", ErrSizeMismatch, s, e.size)
	}
	return nil
}

// Transform performs a 2-D FFT of a complex image, returning a new
// image.
func (e *Engine) Transform(in image.ImageLike[complex128], d Direction) (*image.CImage, error) {
	if err := e.checkSize(in.Size()); err != nil {
		return nil, err
	}
	sc := e.acquire()
	defer e.release(sc)

	loadComplex(sc, in)
	e.fft2d(sc, d)
	return sc.output.Clone(), nil
}

// TransformReal performs a 2-D FFT of a real image.
func (e *Engine) TransformReal(in image.ImageLike[float64], d Direction) (*image.CImage, error) {
	if err := e.checkSize(in.Size()); err != nil {
		return nil, err
	}
	sc := e.acquire()
	defer e.release(sc)

	loadReal(sc, in)
	e.fft2d(sc, d)
	return sc.output.Clone(), nil
}

// TransformRealPair transforms two real images with a single complex
// FFT by packing a+j*b, then unravelling the spectrum by symmetry.
// The DC row, the Nyquist row and the DC column of the outputs are
// left zero; correlation peaks are unaffected.
func (e *Engine) TransformRealPair(a, b image.ImageLike[float64]) (fa, fb *image.CImage, err error) {
	if err := e.checkSize(a.Size()); err != nil {
		return nil, nil, err
	}
	if err := e.checkSize(b.Size()); err != nil {
		return nil, nil, err
	}
	sc := e.acquire()
	defer e.release(sc)

	loadPacked(sc, a, b)
	e.fft2d(sc, Forward)

	w, h := e.size.W, e.size.H
	fa = image.New[complex128](e.size)
	fb = image.New[complex128](e.size)
	f := sc.output
	for y := 1; y < h/2; y++ {
		for x := 1; x < w; x++ {
			t1 := f.At(x, y)
			t2 := f.At(w-x, h-y)
			t2c := complex(real(t2), -imag(t2))

			av := 0.5 * (t1 + t2c)
			fa.Set(x, y, av)
			fa.Set(w-x, h-y, complex(real(av), -imag(av)))

			bv := 0.5 * (t1 - t2c)
			bv = complex(imag(bv), -real(bv))
			fb.Set(x, y, bv)
			fb.Set(w-x, h-y, complex(real(bv), -imag(bv)))
		}
	}
	return fa, fb, nil
}

// correlateSpectra evaluates reverse(fb * conj(fa)), takes the real
// part and moves the zero-shift bin to the image centre.
func (e *Engine) correlateSpectra(fa, fb *image.CImage) (*image.GFImage, error) {
	var prod image.CImage
	image.EvalInto[complex128](&prod,
		image.Mul(image.Ref[complex128](fb), image.Conj(image.Ref[complex128](fa))))

	rev, err := e.Transform(&prod, Reverse)
	if err != nil {
		return nil, err
	}
	out := image.Eval(image.RealPart(image.Ref[complex128](rev)))
	image.SwapQuadrants[float64](out)
	return out, nil
}

// CrossCorrelate computes the circular cross-correlation of a and b.
// The peak of the result locates the displacement of b's content
// relative to a's, with zero shift at the image centre.
func (e *Engine) CrossCorrelate(a, b image.ImageLike[float64]) (*image.GFImage, error) {
	fa, err := e.TransformReal(a, Forward)
	if err != nil {
		return nil, err
	}
	fb, err := e.TransformReal(b, Forward)
	if err != nil {
		return nil, err
	}
	return e.correlateSpectra(fa, fb)
}

// CrossCorrelateReal computes the same correlation as CrossCorrelate
// using one packed forward transform for the two real inputs.
func (e *Engine) CrossCorrelateReal(a, b image.ImageLike[float64]) (*image.GFImage, error) {
	fa, fb, err := e.TransformRealPair(a, b)
	if err != nil {
		return nil, err
	}
	return e.correlateSpectra(fa, fb)
}

// AutoCorrelate computes the circular auto-correlation of a: the
// inverse transform of the power spectrum, centred.
func (e *Engine) AutoCorrelate(a image.ImageLike[float64]) (*image.GFImage, error) {
	fa, err := e.TransformReal(a, Forward)
	if err != nil {
		return nil, err
	}
	return e.correlateSpectra(fa, fa)
}
