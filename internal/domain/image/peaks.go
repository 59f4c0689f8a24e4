package image

import (
	"fmt"
	"math"
	"sort"

	"github.com/openpiv/openpiv-go/internal/domain/geom"
)

// FindPeaks locates up to n local maxima and returns each as an owning
// (2r+1)×(2r+1) extract centred on the maximum, sorted descending by
// centre value; ties keep scan order. A pixel is a peak iff strictly
// greater than its four 4-connected neighbours.
//
// The scan covers rows [radius, height-2*radius) but columns
// [radius, width-radius): the interior is one radius narrower at the
// top than at the sides.
//
// Fewer than n peaks yields a shorter slice.
func FindPeaks[P RealPixel](im *Image[P], n int, radius int) []*Image[P] {
	var peaks []*Image[P]
	bl := im.Rect().BottomLeft()
	side := geom.Sz(2*radius+1, 2*radius+1)

	for y := radius; y < im.Height()-2*radius; y++ {
		above := im.Line(y - 1)
		row := im.Line(y)
		below := im.Line(y + 1)
		for x := radius; x < im.Width()-radius; x++ {
			if row[x-1] < row[x] && row[x+1] < row[x] &&
				above[x] < row[x] && below[x] < row[x] {
				r := geom.RectAt(geom.Pt(bl.X+x-radius, bl.Y+y-radius), side)
				p, err := Extract(im, r)
				if err != nil {
					// peak interiors are within the image by construction
					continue
				}
				peaks = append(peaks, p)
			}
		}
	}

	sort.SliceStable(peaks, func(i, j int) bool {
		return peaks[j].At(radius, radius) < peaks[i].At(radius, radius)
	})
	if len(peaks) > n {
		peaks = peaks[:n]
	}
	return peaks
}

// FitSimpleGaussian refines a 3×3 peak to sub-pixel accuracy with
// three-point Gaussian fits along each axis, returning the peak
// position in the patch's coordinate frame. Fails unless the patch is
// exactly 3×3. Non-positive samples contribute a zero offset on their
// axis.
func FitSimpleGaussian[P RealPixel](peak *Image[P]) (geom.Point2[float64], error) {
	if peak.Size() != geom.Sz(3, 3) {
		return geom.Point2[float64]{}, fmt.Errorf("%w: gaussian fit needs a 3x3 patch, got %v",
			ErrSizeMismatch, peak.Size())
	}

	fit := func(l, c, r float64) float64 {
		if l <= 0 || c <= 0 || r <= 0 {
			return 0
		}
		num := math.Log(l) - math.Log(r)
		den := 2 * (math.Log(l) + math.Log(r) - 2*math.Log(c))
		if den == 0 {
			return 0
		}
		return num / den
	}

	mid := peak.Rect().Midpoint()
	return geom.Pt(
		float64(mid.X)+fit(float64(peak.At(0, 1)), float64(peak.At(1, 1)), float64(peak.At(2, 1))),
		float64(mid.Y)+fit(float64(peak.At(1, 0)), float64(peak.At(1, 1)), float64(peak.At(1, 2))),
	), nil
}
