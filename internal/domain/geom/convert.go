package geom

import (
	"errors"
	"fmt"
	"math"
)

// ErrNarrowing indicates a numeric conversion would truncate.
var ErrNarrowing = errors.New("geom: narrowing conversion")

// IntFromUint32 converts a wire-format dimension to int, failing when
// the value does not fit. On 64-bit platforms this never fails but the
// check keeps 32-bit builds honest.
func IntFromUint32(v uint32) (int, error) {
	if uint64(v) > uint64(math.MaxInt) {
		return 0, fmt.Errorf("%w: %d exceeds int", ErrNarrowing, v)
	}
	return int(v), nil
}

// Uint16FromInt converts a sample value to uint16, failing when out of
// range.
func Uint16FromInt(v int) (uint16, error) {
	if v < 0 || v > math.MaxUint16 {
		return 0, fmt.Errorf("%w: %d exceeds uint16", ErrNarrowing, v)
	}
	return uint16(v), nil
}

// Uint32FromInt converts a non-negative int to uint32, failing when out
// of range.
func Uint32FromInt(v int) (uint32, error) {
	if v < 0 || int64(v) > math.MaxUint32 {
		return 0, fmt.Errorf("%w: %d exceeds uint32", ErrNarrowing, v)
	}
	return uint32(v), nil
}
