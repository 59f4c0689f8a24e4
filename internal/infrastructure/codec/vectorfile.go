package codec

import (
	"bufio"
	"fmt"
	"io"

	"github.com/openpiv/openpiv-go/internal/domain/geom"
)

// VectorRecord is one displacement vector as written to a vector file.
// Coordinates are in image-bottom-origin convention; the batch layer
// performs the y flip before records reach the writer.
type VectorRecord struct {
	// XY is the window centre.
	XY geom.Point2[float64]
	// V is the displacement.
	V geom.Vec2[float64]
	// SNR is the primary/secondary peak ratio.
	SNR float64
	// Peak is the primary correlation peak height.
	Peak float64
	// Valid is false for windows where no peak pair was found.
	Valid bool
	// Filtered marks records removed by post-filters. The single-pass
	// engine never sets it; the column is kept for file compatibility.
	Filtered bool
}

// vectorHeader is the first line of every vector file.
const vectorHeader = "x\ty\tu\tv\tsnr\tvalid\tfiltered\tintensity"

// WriteVectorField writes the tab-separated vector file: a header line
// followed by one record per line.
func WriteVectorField(w io.Writer, records []VectorRecord) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintln(bw, vectorHeader); err != nil {
		return fmt.Errorf("vector file: header: %w", err)
	}
	for _, r := range records {
		_, err := fmt.Fprintf(bw, "%g\t%g\t%g\t%g\t%g\t%d\t%d\t%g\n",
			r.XY.X, r.XY.Y, r.V.X, r.V.Y, r.SNR, boolFlag(r.Valid), boolFlag(r.Filtered), r.Peak)
		if err != nil {
			return fmt.Errorf("vector file: record: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("vector file: flush: %w", err)
	}
	return nil
}

func boolFlag(b bool) int {
	if b {
		return 1
	}
	return 0
}
