package image

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openpiv/openpiv-go/internal/domain/geom"
)

// placePeak writes a small bump with a strict maximum of height h at
// (cx, cy).
func placePeak(im *GFImage, cx, cy int, h float64) {
	im.Set(cx, cy, h)
	im.Set(cx-1, cy, h/2)
	im.Set(cx+1, cy, h/2)
	im.Set(cx, cy-1, h/2)
	im.Set(cx, cy+1, h/2)
}

func TestFindPeaks_SortedDescending(t *testing.T) {
	t.Parallel()

	im := New[float64](geom.Sz(100, 100))
	placePeak(im, 20, 20, 20)
	placePeak(im, 30, 30, 30)
	placePeak(im, 40, 40, 40)
	placePeak(im, 50, 50, 50)

	peaks := FindPeaks(im, 3, 1)
	require.Len(t, peaks, 3)

	assert.Equal(t, 50.0, peaks[0].At(1, 1))
	assert.Equal(t, 40.0, peaks[1].At(1, 1))
	assert.Equal(t, 30.0, peaks[2].At(1, 1))

	// rects centre on the maxima in the image frame
	assert.Equal(t, geom.RectAt(geom.Pt(49, 49), geom.Sz(3, 3)), peaks[0].Rect())
	assert.Equal(t, geom.RectAt(geom.Pt(39, 39), geom.Sz(3, 3)), peaks[1].Rect())
}

func TestFindPeaks_FewerThanRequested(t *testing.T) {
	t.Parallel()

	im := New[float64](geom.Sz(32, 32))
	placePeak(im, 16, 16, 5)

	peaks := FindPeaks(im, 2, 1)
	assert.Len(t, peaks, 1)
}

func TestFindPeaks_NoPlateauDetection(t *testing.T) {
	t.Parallel()

	// a flat image has no strict maxima
	im := NewFilled(geom.Sz(16, 16), 3.0)
	assert.Empty(t, FindPeaks(im, 2, 1))
}

func TestFindPeaks_InteriorAsymmetry(t *testing.T) {
	t.Parallel()

	im := New[float64](geom.Sz(32, 32))

	// scan rows stop at height-2*radius: a peak on row 30 is outside
	// the vertical interior for radius 1, but one at column 30 is
	// inside the horizontal interior
	placePeak(im, 16, 30, 9)
	assert.Empty(t, FindPeaks(im, 2, 1))

	im2 := New[float64](geom.Sz(32, 32))
	placePeak(im2, 30, 16, 9)
	assert.Len(t, FindPeaks(im2, 2, 1), 1)
}

func TestFitSimpleGaussian_SymmetricPeakHasZeroOffset(t *testing.T) {
	t.Parallel()

	patch := NewAt[float64](geom.RectAt(geom.Pt(10, 10), geom.Sz(3, 3)))
	Fill[float64](patch, 1)
	patch.Set(1, 1, 9)
	patch.Set(0, 1, 3)
	patch.Set(2, 1, 3)
	patch.Set(1, 0, 3)
	patch.Set(1, 2, 3)

	p, err := FitSimpleGaussian(patch)
	require.NoError(t, err)
	assert.InDelta(t, 11.0, p.X, 1e-12)
	assert.InDelta(t, 11.0, p.Y, 1e-12)
}

func TestFitSimpleGaussian_AsymmetricPeakShifts(t *testing.T) {
	t.Parallel()

	patch := New[float64](geom.Sz(3, 3))
	Fill[float64](patch, 1)
	patch.Set(1, 1, 9)
	patch.Set(0, 1, 2)
	patch.Set(2, 1, 4) // brighter right neighbour pulls the fit right
	patch.Set(1, 0, 3)
	patch.Set(1, 2, 3)

	p, err := FitSimpleGaussian(patch)
	require.NoError(t, err)
	assert.Greater(t, p.X, 1.0)
	assert.InDelta(t, 1.0, p.Y, 1e-12)
}

func TestFitSimpleGaussian_RejectsWrongSize(t *testing.T) {
	t.Parallel()

	patch := New[float64](geom.Sz(5, 5))
	_, err := FitSimpleGaussian(patch)
	require.ErrorIs(t, err, ErrSizeMismatch)
}

func TestFitSimpleGaussian_NonPositiveSamples(t *testing.T) {
	t.Parallel()

	patch := New[float64](geom.Sz(3, 3))
	patch.Set(1, 1, 5)
	// all neighbours zero: both axis fits guard to zero offset
	p, err := FitSimpleGaussian(patch)
	require.NoError(t, err)
	assert.Equal(t, geom.Pt(1.0, 1.0), p)
}
