package fft

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openpiv/openpiv-go/internal/domain/geom"
	"github.com/openpiv/openpiv-go/internal/domain/image"
)

func TestNew_RequiresPowerOfTwo(t *testing.T) {
	t.Parallel()

	_, err := New(geom.Sz(100, 64))
	require.ErrorIs(t, err, ErrNotPow2)

	_, err = New(geom.Sz(64, 100))
	require.ErrorIs(t, err, ErrNotPow2)

	e, err := New(geom.Sz(64, 32))
	require.NoError(t, err)
	assert.Equal(t, geom.Sz(64, 32), e.Size())
}

func TestTransform_RejectsWrongSize(t *testing.T) {
	t.Parallel()

	e, err := New(geom.Sz(32, 32))
	require.NoError(t, err)

	_, err = e.TransformReal(image.New[float64](geom.Sz(64, 64)), Forward)
	require.ErrorIs(t, err, ErrSizeMismatch)
}

// sinePattern fills a w×h image with 128*sin(2πx/λ + 2πy/λ).
func sinePattern(w, h int, lambda float64) *image.GFImage {
	im := image.New[float64](geom.Sz(w, h))
	image.FillFunc[float64](im, func(x, y int) float64 {
		return 128 * math.Sin(2*math.Pi*float64(x)/lambda+2*math.Pi*float64(y)/lambda)
	})
	return im
}

func TestTransformReal_SinePatternHasTwoBins(t *testing.T) {
	t.Parallel()

	const n = 256
	e, err := New(geom.Sz(n, n))
	require.NoError(t, err)

	f, err := e.TransformReal(sinePattern(n, n, 8), Forward)
	require.NoError(t, err)

	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			c := f.At(x, y)
			mag2 := real(c)*real(c) + imag(c)*imag(c)
			if (x == 32 && y == 32) || (x == 224 && y == 224) {
				assert.Greater(t, mag2, 1e6, "expected signal bin at (%d,%d)", x, y)
				continue
			}
			assert.Less(t, mag2, 1e-9, "unexpected energy at (%d,%d)", x, y)
		}
	}
}

func TestTransform_ReverseUndoesForwardScaled(t *testing.T) {
	t.Parallel()

	const n = 16
	e, err := New(geom.Sz(n, n))
	require.NoError(t, err)

	in := image.New[float64](geom.Sz(n, n))
	image.FillFunc[float64](in, func(x, y int) float64 {
		return math.Sin(float64(3*x+7*y)) + 0.25*float64(x)
	})

	fwd, err := e.TransformReal(in, Forward)
	require.NoError(t, err)
	back, err := e.Transform(fwd, Reverse)
	require.NoError(t, err)

	// the reverse transform is unnormalised: expect the input scaled
	// by W*H
	scale := float64(n * n)
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			assert.InDelta(t, in.At(x, y)*scale, real(back.At(x, y)), 1e-9)
			assert.InDelta(t, 0, imag(back.At(x, y)), 1e-9)
		}
	}
}

func TestTransformRealPair_MatchesSeparateTransforms(t *testing.T) {
	t.Parallel()

	const n = 256
	e, err := New(geom.Sz(n, n))
	require.NoError(t, err)

	a := sinePattern(n, n, 8)
	b := image.New[float64](geom.Sz(n, n))
	image.FillFunc[float64](b, func(x, y int) float64 {
		return 128 * math.Sin(2*math.Pi*float64(n-x)/8+2*math.Pi*float64(y)/8)
	})

	fa, fb, err := e.TransformRealPair(a, b)
	require.NoError(t, err)

	// a's bins sit on the main diagonal, b's on the anti-diagonal
	assertBin := func(f *image.CImage, x, y int) {
		c := f.At(x, y)
		assert.Greater(t, real(c)*real(c)+imag(c)*imag(c), 1e6,
			"expected signal bin at (%d,%d)", x, y)
	}
	assertBin(fa, 32, 32)
	assertBin(fa, 224, 224)
	assertBin(fb, 32, 224)
	assertBin(fb, 224, 32)

	// cross-check against the one-image transforms
	sfa, err := e.TransformReal(a, Forward)
	require.NoError(t, err)
	sfb, err := e.TransformReal(b, Forward)
	require.NoError(t, err)
	for y := 1; y < n/2; y++ {
		for x := 1; x < n; x++ {
			assert.InDelta(t, real(sfa.At(x, y)), real(fa.At(x, y)), 1e-6)
			assert.InDelta(t, imag(sfa.At(x, y)), imag(fa.At(x, y)), 1e-6)
			assert.InDelta(t, real(sfb.At(x, y)), real(fb.At(x, y)), 1e-6)
			assert.InDelta(t, imag(sfb.At(x, y)), imag(fb.At(x, y)), 1e-6)
		}
	}
}

func TestAutoCorrelate_PeakAtCentre(t *testing.T) {
	t.Parallel()

	const n = 64
	e, err := New(geom.Sz(n, n))
	require.NoError(t, err)

	im := particleField(n, n, 99)
	out, err := e.AutoCorrelate(im)
	require.NoError(t, err)

	px, py := argmax(out)
	assert.Equal(t, n/2, px)
	assert.Equal(t, n/2, py)
}

func TestCrossCorrelate_SelfPeakAtCentre(t *testing.T) {
	t.Parallel()

	const n = 64
	e, err := New(geom.Sz(n, n))
	require.NoError(t, err)

	im := particleField(n, n, 7)
	out, err := e.CrossCorrelate(im, im)
	require.NoError(t, err)

	px, py := argmax(out)
	assert.Equal(t, n/2, px)
	assert.Equal(t, n/2, py)
}

// particleField builds a deterministic pseudo-random particle image.
func particleField(w, h int, seed uint64) *image.GFImage {
	im := image.New[float64](geom.Sz(w, h))
	s := seed
	next := func() uint64 {
		s ^= s << 13
		s ^= s >> 7
		s ^= s << 17
		return s
	}
	for i := 0; i < w*h/20; i++ {
		cx := int(next() % uint64(w))
		cy := int(next() % uint64(h))
		amp := 50 + float64(next()%150)
		for dy := -2; dy <= 2; dy++ {
			for dx := -2; dx <= 2; dx++ {
				x, y := cx+dx, cy+dy
				if x < 0 || y < 0 || x >= w || y >= h {
					continue
				}
				r2 := float64(dx*dx + dy*dy)
				im.Set(x, y, im.At(x, y)+amp*math.Exp(-r2/1.5))
			}
		}
	}
	return im
}

func argmax(im *image.GFImage) (int, int) {
	bx, by := 0, 0
	best := math.Inf(-1)
	for y := 0; y < im.Height(); y++ {
		for x, v := range im.Line(y) {
			if v > best {
				best = v
				bx, by = x, y
			}
		}
	}
	return bx, by
}

func TestCrossCorrelate_RecoversShift(t *testing.T) {
	t.Parallel()

	// a 256x256 particle scene; the second window shows the same
	// content displaced by +5 rows
	scene := particleField(256, 256, 12345)

	winA, err := image.Extract(scene, geom.RectAt(geom.Pt(20, 25), geom.Sz(128, 128)))
	require.NoError(t, err)
	winB, err := image.Extract(scene, geom.RectAt(geom.Pt(20, 20), geom.Sz(128, 128)))
	require.NoError(t, err)

	e, err := New(geom.Sz(128, 128))
	require.NoError(t, err)

	out, err := e.CrossCorrelate(winA, winB)
	require.NoError(t, err)

	px, py := argmax(out)
	assert.InDelta(t, 64, px, 1)
	assert.InDelta(t, 69, py, 1)

	peaks := image.FindPeaks(out, 2, 1)
	require.NotEmpty(t, peaks)
	p, err := image.FitSimpleGaussian(peaks[0])
	require.NoError(t, err)
	assert.InDelta(t, 0.0, p.X-64, 0.2)
	assert.InDelta(t, 5.0, p.Y-64, 0.2)
}

func TestCrossCorrelateReal_MatchesCrossCorrelate(t *testing.T) {
	t.Parallel()

	const n = 64
	a := particleField(n, n, 1)
	b := particleField(n, n, 2)

	e, err := New(geom.Sz(n, n))
	require.NoError(t, err)

	full, err := e.CrossCorrelate(a, b)
	require.NoError(t, err)
	packed, err := e.CrossCorrelateReal(a, b)
	require.NoError(t, err)

	// the packed path zeroes the DC/Nyquist lines of the spectra, so
	// compare peak locations rather than exact values
	fx, fy := argmax(full)
	px, py := argmax(packed)
	assert.Equal(t, fx, px)
	assert.Equal(t, fy, py)
}

func TestEngine_ConcurrentUse(t *testing.T) {
	t.Parallel()

	const n = 32
	e, err := New(geom.Sz(n, n))
	require.NoError(t, err)

	im := particleField(n, n, 77)
	want, err := e.AutoCorrelate(im)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 16; i++ {
				got, err := e.AutoCorrelate(im)
				if err != nil {
					t.Error(err)
					return
				}
				for k := 0; k < got.PixelCount(); k++ {
					if math.Abs(got.AtIndex(k)-want.AtIndex(k)) > 1e-6 {
						t.Errorf("concurrent result diverged at %d", k)
						return
					}
				}
			}
		}()
	}
	wg.Wait()
}
